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

// Package rhvmtest provides an in-memory rhvm.Manager for driver tests.
package rhvmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/hostqe/upgradecheck/pkg/errors"
	"github.com/hostqe/upgradecheck/pkg/rhvm"
)

// Manager records calls and serves host status from a scripted sequence.
type Manager struct {
	mu       sync.Mutex
	calls    []string
	statuses []string
	fail     map[string]int
	hosts    map[string]*rhvm.Host
}

var _ rhvm.Manager = (*Manager)(nil)

// New returns a Manager whose hosts report "up" unless scripted otherwise.
func New() *Manager {
	return &Manager{
		fail:  map[string]int{},
		hosts: map[string]*rhvm.Host{},
	}
}

// Statuses scripts the values ListHost reports. The last one repeats.
func (m *Manager) Statuses(s ...string) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses[:0], s...)
	return m
}

// Fail makes the next n calls of method return a management error.
func (m *Manager) Fail(method string, n int) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[method] = n
	return m
}

// Calls returns the recorded calls as "Method(arg,...)".
func (m *Manager) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// Count returns how many times method was called.
func (m *Manager) Count(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	prefix := method + "("
	for _, c := range m.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

// HasHost reports whether the host is currently registered.
func (m *Manager) HasHost(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.hosts[name]
	return ok
}

func (m *Manager) record(method string, args ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	call := method + "("
	for i, a := range args {
		if i > 0 {
			call += ","
		}
		call += a
	}
	m.calls = append(m.calls, call+")")
	if m.fail[method] > 0 {
		m.fail[method]--
		return errors.New(errors.ErrCodeManagementAPI, fmt.Sprintf("scripted %s failure", method))
	}
	return nil
}

func (m *Manager) AddDatacenter(_ context.Context, name string) error {
	return m.record("AddDatacenter", name)
}

func (m *Manager) UpdateNetwork(_ context.Context, datacenter, key, value string) error {
	return m.record("UpdateNetwork", datacenter, key, value)
}

func (m *Manager) AddCluster(_ context.Context, datacenter, name, cpuType string) error {
	return m.record("AddCluster", datacenter, name, cpuType)
}

func (m *Manager) AddHost(_ context.Context, address, name, password, cluster string) error {
	if err := m.record("AddHost", address, name, cluster); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hosts[name] = &rhvm.Host{ID: name, Name: name, Address: address, Cluster: &rhvm.Ref{Name: cluster}}
	return nil
}

func (m *Manager) ListHost(_ context.Context, name string) (*rhvm.Host, error) {
	if err := m.record("ListHost", name); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	status := rhvm.StatusUp
	if len(m.statuses) > 0 {
		status = m.statuses[0]
		if len(m.statuses) > 1 {
			m.statuses = m.statuses[1:]
		}
	}
	h := rhvm.Host{Name: name, Status: status}
	if reg, ok := m.hosts[name]; ok {
		h = *reg
		h.Status = status
	}
	return &h, nil
}

func (m *Manager) UpgradeHost(_ context.Context, name string) error {
	return m.record("UpgradeHost", name)
}

func (m *Manager) RemoveHost(_ context.Context, name string) error {
	if err := m.record("RemoveHost", name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hosts, name)
	return nil
}

func (m *Manager) DeleteHostEvents(_ context.Context, name string) error {
	return m.record("DeleteHostEvents", name)
}

func (m *Manager) RemoveCluster(_ context.Context, name string) error {
	return m.record("RemoveCluster", name)
}

func (m *Manager) RemoveDatacenter(_ context.Context, name string) error {
	return m.record("RemoveDatacenter", name)
}
