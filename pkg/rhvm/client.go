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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hostqe/upgradecheck/pkg/defaults"
	"github.com/hostqe/upgradecheck/pkg/errors"
	"golang.org/x/time/rate"
	"k8s.io/apimachinery/pkg/util/wait"
)

const (
	apiPath          = "/ovirt-engine/api"
	managementNet    = "ovirtmgmt"
	networkKeyVLAN   = "vlan"
	maxErrorBodySize = 512

	defaultMaintenanceChecks   = 30
	defaultMaintenanceInterval = 10 * time.Second
)

// Option configures a Client.
type Option func(*Client)

// WithCredentials sets the basic auth user and password.
func WithCredentials(user, password string) Option {
	return func(c *Client) {
		c.user = user
		c.password = password
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithBaseURL overrides the https://<fqdn>/ovirt-engine/api endpoint.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithRateLimit bounds outgoing requests per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMaintenanceWait sets how long RemoveHost waits for a host to reach maintenance.
func WithMaintenanceWait(checks int, interval time.Duration) Option {
	return func(c *Client) {
		c.maintenanceChecks = checks
		c.maintenanceInterval = interval
	}
}

// Client talks to the engine REST API with JSON bodies and basic auth.
type Client struct {
	fqdn     string
	baseURL  string
	user     string
	password string
	http     *http.Client
	limiter  *rate.Limiter

	maintenanceChecks   int
	maintenanceInterval time.Duration
}

var _ Manager = (*Client)(nil)

// NewClient returns a client for the engine at fqdn.
func NewClient(fqdn string, opts ...Option) (*Client, error) {
	if fqdn == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "engine fqdn is required")
	}

	c := &Client{
		fqdn:                fqdn,
		baseURL:             "https://" + fqdn + apiPath,
		user:                "admin@internal",
		http:                NewHTTPClient(true, defaults.HTTPClientTimeout),
		limiter:             rate.NewLimiter(rate.Limit(defaults.ManagementRequestsPerSecond), defaults.ManagementBurst),
		maintenanceChecks:   defaultMaintenanceChecks,
		maintenanceInterval: defaultMaintenanceInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FQDN returns the engine host name.
func (c *Client) FQDN() string {
	return c.fqdn
}

// AddDatacenter creates a shared-storage datacenter.
func (c *Client) AddDatacenter(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/datacenters", nil, DataCenter{Name: name, Local: false}, nil)
}

// UpdateNetwork changes a property of the datacenter management network.
// Only the "vlan" key is supported.
func (c *Client) UpdateNetwork(ctx context.Context, datacenter, key, value string) error {
	if key != networkKeyVLAN {
		return errors.NewWithContext(errors.ErrCodeInvalidRequest, "unsupported network property",
			map[string]any{"key": key})
	}

	dc, err := c.findDatacenter(ctx, datacenter)
	if err != nil {
		return err
	}
	if dc == nil {
		return notFound("datacenter", datacenter)
	}

	var nets networkList
	if err := c.do(ctx, http.MethodGet, "/datacenters/"+dc.ID+"/networks", nil, nil, &nets); err != nil {
		return err
	}
	for _, n := range nets.Networks {
		if n.Name == managementNet {
			return c.do(ctx, http.MethodPut, "/networks/"+n.ID, nil, Network{VLAN: &VLAN{ID: value}}, nil)
		}
	}
	return notFound("network", managementNet)
}

// AddCluster creates a cluster in datacenter with the given CPU family.
func (c *Client) AddCluster(ctx context.Context, datacenter, name, cpuType string) error {
	body := Cluster{
		Name:       name,
		CPU:        &CPU{Type: cpuType},
		DataCenter: &Ref{Name: datacenter},
	}
	return c.do(ctx, http.MethodPost, "/clusters", nil, body, nil)
}

// AddHost registers the host at address into cluster.
func (c *Client) AddHost(ctx context.Context, address, name, password, cluster string) error {
	body := Host{
		Name:         name,
		Address:      address,
		RootPassword: password,
		Cluster:      &Ref{Name: cluster},
	}
	return c.do(ctx, http.MethodPost, "/hosts", nil, body, nil)
}

// ListHost returns the named host. A missing host is an error.
func (c *Client) ListHost(ctx context.Context, name string) (*Host, error) {
	h, err := c.findHost(ctx, name)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, notFound("host", name)
	}
	return h, nil
}

// UpgradeHost asks the engine to upgrade the host in place.
func (c *Client) UpgradeHost(ctx context.Context, name string) error {
	h, err := c.ListHost(ctx, name)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/hosts/"+h.ID+"/upgrade", nil, struct{}{}, nil)
}

// RemoveHost moves the host to maintenance and deletes it.
func (c *Client) RemoveHost(ctx context.Context, name string) error {
	h, err := c.findHost(ctx, name)
	if err != nil {
		return err
	}
	if h == nil {
		slog.Debug("host already absent", "host", name)
		return nil
	}

	if h.Status != StatusMaintenance {
		if err := c.do(ctx, http.MethodPost, "/hosts/"+h.ID+"/deactivate", nil, struct{}{}, nil); err != nil {
			return err
		}
		if err := c.waitMaintenance(ctx, name); err != nil {
			return err
		}
	}
	return c.do(ctx, http.MethodDelete, "/hosts/"+h.ID, nil, nil, nil)
}

func (c *Client) waitMaintenance(ctx context.Context, name string) error {
	backoff := wait.Backoff{Duration: c.maintenanceInterval, Factor: 1, Steps: c.maintenanceChecks}
	err := wait.ExponentialBackoffWithContext(ctx, backoff, func(ctx context.Context) (bool, error) {
		h, err := c.findHost(ctx, name)
		if err != nil {
			return false, err
		}
		return h == nil || h.Status == StatusMaintenance, nil
	})
	switch {
	case err == nil:
		return nil
	case !wait.Interrupted(err):
		return err
	case ctx.Err() != nil:
		return errors.Wrap(errors.ErrCodeTimeout, "waiting for maintenance", ctx.Err())
	}
	return errors.NewWithContext(errors.ErrCodeManagementAPI, "host did not reach maintenance",
		map[string]any{"host": name})
}

// DeleteHostEvents removes the audit events recorded for the host.
func (c *Client) DeleteHostEvents(ctx context.Context, name string) error {
	var events eventList
	q := url.Values{"search": {"host.name=" + name}}
	if err := c.do(ctx, http.MethodGet, "/events", q, nil, &events); err != nil {
		return err
	}
	for _, e := range events.Events {
		if err := c.do(ctx, http.MethodDelete, "/events/"+e.ID, nil, nil, nil); err != nil {
			return err
		}
	}
	return nil
}

// RemoveCluster deletes the named cluster.
func (c *Client) RemoveCluster(ctx context.Context, name string) error {
	var list clusterList
	if err := c.do(ctx, http.MethodGet, "/clusters", searchByName(name), nil, &list); err != nil {
		return err
	}
	for _, cl := range list.Clusters {
		if cl.Name == name {
			return c.do(ctx, http.MethodDelete, "/clusters/"+cl.ID, nil, nil, nil)
		}
	}
	slog.Debug("cluster already absent", "cluster", name)
	return nil
}

// RemoveDatacenter force-deletes the named datacenter.
func (c *Client) RemoveDatacenter(ctx context.Context, name string) error {
	dc, err := c.findDatacenter(ctx, name)
	if err != nil {
		return err
	}
	if dc == nil {
		slog.Debug("datacenter already absent", "datacenter", name)
		return nil
	}
	return c.do(ctx, http.MethodDelete, "/datacenters/"+dc.ID, url.Values{"force": {"true"}}, nil, nil)
}

func (c *Client) findHost(ctx context.Context, name string) (*Host, error) {
	var list hostList
	if err := c.do(ctx, http.MethodGet, "/hosts", searchByName(name), nil, &list); err != nil {
		return nil, err
	}
	for i := range list.Hosts {
		if list.Hosts[i].Name == name {
			return &list.Hosts[i], nil
		}
	}
	return nil, nil
}

func (c *Client) findDatacenter(ctx context.Context, name string) (*DataCenter, error) {
	var list dataCenterList
	if err := c.do(ctx, http.MethodGet, "/datacenters", searchByName(name), nil, &list); err != nil {
		return nil, err
	}
	for i := range list.DataCenters {
		if list.DataCenters[i].Name == name {
			return &list.DataCenters[i], nil
		}
	}
	return nil, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeTimeout, "rate limiter wait", err)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	errCtx := map[string]any{"method": method, "url": target}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.WrapWithContext(errors.ErrCodeInternal, "failed to encode request", err, errCtx)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeManagementAPI, "failed to build request", err, errCtx)
	}
	req.SetBasicAuth(c.user, c.password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	slog.Debug("engine request", "method", method, "url", target)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeManagementAPI, "engine request failed", err, errCtx)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Debug("failed to close response body", "error", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		errCtx["status"] = resp.StatusCode
		errCtx["body"] = strings.TrimSpace(string(snippet))
		return errors.NewWithContext(errors.ErrCodeManagementAPI,
			fmt.Sprintf("engine returned %s", resp.Status), errCtx)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return errors.WrapWithContext(errors.ErrCodeManagementAPI, "failed to decode response", err, errCtx)
	}
	return nil
}

func searchByName(name string) url.Values {
	return url.Values{"search": {"name=" + name}}
}

func notFound(kind, name string) error {
	return errors.Wrap(errors.ErrCodeManagementAPI, kind+" lookup failed",
		errors.NewWithContext(errors.ErrCodeNotFound, kind+" not found", map[string]any{"name": name}))
}
