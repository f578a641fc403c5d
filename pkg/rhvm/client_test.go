// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rhvm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hostqe/upgradecheck/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine is an in-memory engine serving the subset of the REST API the client uses.
type fakeEngine struct {
	mu       sync.Mutex
	nextID   int
	dcs      map[string]*DataCenter
	clusters map[string]*Cluster
	hosts    map[string]*Host
	networks map[string][]*Network
	events   map[string]string // event id -> host name
	requests []string
	failPath string

	// stuck hosts ignore deactivate and never reach maintenance.
	stuck bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		dcs:      map[string]*DataCenter{},
		clusters: map[string]*Cluster{},
		hosts:    map[string]*Host{},
		networks: map[string][]*Network{},
		events:   map[string]string{},
	}
}

func (e *fakeEngine) id() string {
	e.nextID++
	return fmt.Sprintf("id-%d", e.nextID)
}

func searchName(r *http.Request, prefix string) string {
	return strings.TrimPrefix(r.URL.Query().Get("search"), prefix)
}

func (e *fakeEngine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.mu.Lock()
	defer e.mu.Unlock()

	user, pass, ok := r.BasicAuth()
	if !ok || user != "admin@internal" || pass != "secret" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, apiPath)
	e.requests = append(e.requests, r.Method+" "+path)
	if e.failPath != "" && path == e.failPath {
		http.Error(w, "engine exploded", http.StatusInternalServerError)
		return
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case r.Method == http.MethodPost && path == "/datacenters":
		var dc DataCenter
		_ = json.NewDecoder(r.Body).Decode(&dc)
		dc.ID = e.id()
		e.dcs[dc.Name] = &dc
		e.networks[dc.ID] = []*Network{{ID: e.id(), Name: managementNet}}
		writeJSON(w, dc)
	case r.Method == http.MethodGet && path == "/datacenters":
		var out dataCenterList
		if dc, ok := e.dcs[searchName(r, "name=")]; ok {
			out.DataCenters = append(out.DataCenters, *dc)
		}
		writeJSON(w, out)
	case r.Method == http.MethodGet && len(parts) == 3 && parts[0] == "datacenters" && parts[2] == "networks":
		var out networkList
		for _, n := range e.networks[parts[1]] {
			out.Networks = append(out.Networks, *n)
		}
		writeJSON(w, out)
	case r.Method == http.MethodDelete && len(parts) == 2 && parts[0] == "datacenters":
		if r.URL.Query().Get("force") != "true" {
			http.Error(w, "force required", http.StatusConflict)
			return
		}
		for name, dc := range e.dcs {
			if dc.ID == parts[1] {
				delete(e.dcs, name)
			}
		}
	case r.Method == http.MethodPut && len(parts) == 2 && parts[0] == "networks":
		var n Network
		_ = json.NewDecoder(r.Body).Decode(&n)
		for _, nets := range e.networks {
			for _, existing := range nets {
				if existing.ID == parts[1] {
					existing.VLAN = n.VLAN
				}
			}
		}
	case r.Method == http.MethodPost && path == "/clusters":
		var c Cluster
		_ = json.NewDecoder(r.Body).Decode(&c)
		c.ID = e.id()
		e.clusters[c.Name] = &c
	case r.Method == http.MethodGet && path == "/clusters":
		var out clusterList
		if c, ok := e.clusters[searchName(r, "name=")]; ok {
			out.Clusters = append(out.Clusters, *c)
		}
		writeJSON(w, out)
	case r.Method == http.MethodDelete && len(parts) == 2 && parts[0] == "clusters":
		for name, c := range e.clusters {
			if c.ID == parts[1] {
				delete(e.clusters, name)
			}
		}
	case r.Method == http.MethodPost && path == "/hosts":
		var h Host
		_ = json.NewDecoder(r.Body).Decode(&h)
		h.ID = e.id()
		h.Status = "installing"
		e.hosts[h.Name] = &h
		e.events[e.id()] = h.Name
		e.events[e.id()] = h.Name
	case r.Method == http.MethodGet && path == "/hosts":
		var out hostList
		if h, ok := e.hosts[searchName(r, "name=")]; ok {
			out.Hosts = append(out.Hosts, *h)
		}
		writeJSON(w, out)
	case r.Method == http.MethodPost && len(parts) == 3 && parts[0] == "hosts":
		for _, h := range e.hosts {
			if h.ID != parts[1] {
				continue
			}
			switch parts[2] {
			case "deactivate":
				if !e.stuck {
					h.Status = StatusMaintenance
				}
			case "upgrade":
				h.Status = "upgrading"
			}
		}
	case r.Method == http.MethodDelete && len(parts) == 2 && parts[0] == "hosts":
		for name, h := range e.hosts {
			if h.ID == parts[1] {
				delete(e.hosts, name)
			}
		}
	case r.Method == http.MethodGet && path == "/events":
		var out eventList
		host := searchName(r, "host.name=")
		for id, name := range e.events {
			if name == host {
				out.Events = append(out.Events, Event{ID: id})
			}
		}
		writeJSON(w, out)
	case r.Method == http.MethodDelete && len(parts) == 2 && parts[0] == "events":
		delete(e.events, parts[1])
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newEngineURL(t *testing.T, e *fakeEngine) string {
	t.Helper()
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv.URL + apiPath
}

func newTestClient(t *testing.T, e *fakeEngine) *Client {
	t.Helper()
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	c, err := NewClient("engine.test",
		WithBaseURL(srv.URL+apiPath),
		WithCredentials("admin@internal", "secret"),
		WithHTTPClient(srv.Client()),
		WithRateLimit(1000, 100),
		WithMaintenanceWait(3, time.Millisecond),
	)
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	_, err := NewClient("")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidRequest))

	c, err := NewClient("engine.example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://engine.example.com/ovirt-engine/api", c.baseURL)
	assert.Equal(t, "engine.example.com", c.FQDN())
}

func TestClient_RegistrationFlow(t *testing.T) {
	e := newFakeEngine()
	c := newTestClient(t, e)
	ctx := context.Background()

	require.NoError(t, c.AddDatacenter(ctx, "dc1"))
	require.NoError(t, c.UpdateNetwork(ctx, "dc1", "vlan", "50"))
	require.NoError(t, c.AddCluster(ctx, "dc1", "cl1", "Intel Conroe Family"))
	require.NoError(t, c.AddHost(ctx, "10.0.0.5", "h1", "redhat", "cl1"))

	dcID := e.dcs["dc1"].ID
	require.Len(t, e.networks[dcID], 1)
	require.NotNil(t, e.networks[dcID][0].VLAN)
	assert.Equal(t, "50", e.networks[dcID][0].VLAN.ID)
	assert.False(t, e.dcs["dc1"].Local)

	cl := e.clusters["cl1"]
	require.NotNil(t, cl.CPU)
	assert.Equal(t, "Intel Conroe Family", cl.CPU.Type)
	assert.Equal(t, "dc1", cl.DataCenter.Name)

	h, err := c.ListHost(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", h.Address)
	assert.Equal(t, "installing", h.Status)

	require.NoError(t, c.UpgradeHost(ctx, "h1"))
	h, err = c.ListHost(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "upgrading", h.Status)
}

func TestClient_UpdateNetworkUnsupportedKey(t *testing.T) {
	c := newTestClient(t, newFakeEngine())

	err := c.UpdateNetwork(context.Background(), "dc1", "mtu", "9000")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidRequest))
}

func TestClient_ListHostMissing(t *testing.T) {
	c := newTestClient(t, newFakeEngine())

	_, err := c.ListHost(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeManagementAPI))
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestClient_Teardown(t *testing.T) {
	e := newFakeEngine()
	c := newTestClient(t, e)
	ctx := context.Background()

	require.NoError(t, c.AddDatacenter(ctx, "dc1"))
	require.NoError(t, c.AddCluster(ctx, "dc1", "cl1", "AMD Opteron G1"))
	require.NoError(t, c.AddHost(ctx, "10.0.0.5", "h1", "redhat", "cl1"))
	require.Len(t, e.events, 2)

	require.NoError(t, c.RemoveHost(ctx, "h1"))
	require.NoError(t, c.DeleteHostEvents(ctx, "h1"))
	require.NoError(t, c.RemoveCluster(ctx, "cl1"))
	require.NoError(t, c.RemoveDatacenter(ctx, "dc1"))

	assert.Empty(t, e.hosts)
	assert.Empty(t, e.events)
	assert.Empty(t, e.clusters)
	assert.Empty(t, e.dcs)
	assert.Contains(t, e.requests, "POST /hosts/id-4/deactivate")
}

func TestClient_RemoveHostNeverInMaintenance(t *testing.T) {
	e := newFakeEngine()
	e.stuck = true
	c := newTestClient(t, e)
	ctx := context.Background()

	require.NoError(t, c.AddDatacenter(ctx, "dc1"))
	require.NoError(t, c.AddCluster(ctx, "dc1", "cl1", "AMD Opteron G1"))
	require.NoError(t, c.AddHost(ctx, "10.0.0.5", "h1", "redhat", "cl1"))

	err := c.RemoveHost(ctx, "h1")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeManagementAPI))
	assert.Contains(t, e.hosts, "h1")

	lookups := 0
	for _, r := range e.requests {
		if r == "GET /hosts" {
			lookups++
		}
	}
	// one lookup before deactivate, then one per maintenance check
	assert.Equal(t, 1+3, lookups)
	assert.NotContains(t, e.requests, "DELETE /hosts/id-4")
}

func TestClient_RemoveHostCanceled(t *testing.T) {
	e := newFakeEngine()
	e.stuck = true
	e.hosts["h1"] = &Host{ID: "id-1", Name: "h1", Status: StatusUp}

	c, err := NewClient("engine.test",
		WithBaseURL(newEngineURL(t, e)),
		WithCredentials("admin@internal", "secret"),
		WithMaintenanceWait(100, time.Hour),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = c.RemoveHost(ctx, "h1")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTimeout))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClient_RemoveAbsentIsNoop(t *testing.T) {
	c := newTestClient(t, newFakeEngine())
	ctx := context.Background()

	assert.NoError(t, c.RemoveHost(ctx, "h1"))
	assert.NoError(t, c.DeleteHostEvents(ctx, "h1"))
	assert.NoError(t, c.RemoveCluster(ctx, "cl1"))
	assert.NoError(t, c.RemoveDatacenter(ctx, "dc1"))
}

func TestClient_ErrorStatus(t *testing.T) {
	e := newFakeEngine()
	e.failPath = "/clusters"
	c := newTestClient(t, e)

	err := c.AddCluster(context.Background(), "dc1", "cl1", "AMD Opteron G1")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeManagementAPI))

	var se *errors.StructuredError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Context["status"])
	assert.Contains(t, se.Context["body"], "engine exploded")
}

func TestClient_BadCredentials(t *testing.T) {
	e := newFakeEngine()
	srv := httptest.NewServer(e)
	defer srv.Close()

	c, err := NewClient("engine.test",
		WithBaseURL(srv.URL+apiPath),
		WithCredentials("admin@internal", "wrong"),
		WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	err = c.AddDatacenter(context.Background(), "dc1")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeManagementAPI))
}

func TestClient_CanceledContext(t *testing.T) {
	c := newTestClient(t, newFakeEngine())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.AddDatacenter(ctx, "dc1")
	require.Error(t, err)
}

func TestNewHTTPClient(t *testing.T) {
	hc := NewHTTPClient(true, 0)
	assert.Equal(t, 30*time.Second, hc.Timeout)

	tr, ok := hc.Transport.(*http.Transport)
	require.True(t, ok)
	assert.True(t, tr.TLSClientConfig.InsecureSkipVerify)

	hc = NewHTTPClient(false, 5*time.Second)
	assert.Equal(t, 5*time.Second, hc.Timeout)
}
