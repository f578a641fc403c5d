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

package upgrade

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hostqe/upgradecheck/pkg/errors"
	"github.com/hostqe/upgradecheck/pkg/rhvm"
	"k8s.io/apimachinery/pkg/util/wait"
)

const (
	vlanDeviceCmd = `ls /etc/sysconfig/network-scripts | egrep 'ifcfg-.*\.' | awk -F '-' '{print $2}'`
	vlanIPCmdTmpl = `ip -f inet addr show %s | grep inet | awk '{print $2}' | awk -F'/' '{print $1}'`
	cpuModelCmd   = `lscpu | grep "Model name"`
)

// CPUFamily maps lscpu model output to the engine cluster CPU type.
func CPUFamily(lscpu string) (string, error) {
	switch {
	case strings.Contains(lscpu, "AMD"):
		return CPUTypeAMD, nil
	case strings.Contains(lscpu, "Intel"):
		return CPUTypeIntel, nil
	default:
		return "", errors.NewWithContext(errors.ErrCodeCheckFailed, "unknown cpu vendor",
			map[string]any{"lscpu": lscpu})
	}
}

// VLANID returns the tag of a VLAN device name such as "em1.50".
func VLANID(device string) string {
	if i := strings.LastIndex(device, "."); i >= 0 {
		return device[i+1:]
	}
	return ""
}

// EngineFQDN returns the engine serving the source build stream.
func (d *Driver) EngineFQDN(rc RunContext) (string, error) {
	stream := fmt.Sprintf("%d.%d", rc.Source.Stream.Major, rc.Source.Stream.Minor)
	fqdn, ok := d.settings.EngineFQDNs[stream]
	if !ok || fqdn == "" {
		return "", errors.NewWithContext(errors.ErrCodeInvalidRequest, "no engine configured for build stream",
			map[string]any{"stream": stream, "source": rc.Source.String()})
	}
	return fqdn, nil
}

func (d *Driver) hostIP(ctx context.Context, rc RunContext, vlan bool) (ip, vlanID string, err error) {
	if !vlan {
		return rc.Host.Address, "", nil
	}

	device, err := d.run(ctx, vlanDeviceCmd)
	if err != nil {
		return "", "", err
	}
	device = strings.TrimSpace(device)
	if device == "" || strings.Contains(device, "\n") {
		return "", "", errors.NewWithContext(errors.ErrCodeCheckFailed, "expected exactly one vlan device",
			map[string]any{"devices": device})
	}

	ip, err = d.run(ctx, fmt.Sprintf(vlanIPCmdTmpl, device))
	if err != nil {
		return "", "", err
	}
	ip = strings.TrimSpace(ip)
	vlanID = VLANID(device)
	if ip == "" || vlanID == "" {
		return "", "", errors.NewWithContext(errors.ErrCodeCheckFailed, "vlan device has no address or tag",
			map[string]any{"device": device, "ip": ip})
	}
	return ip, vlanID, nil
}

// Register creates a datacenter, cluster and host on the engine for this run.
// Stale objects with the same names are removed first. If creation fails
// part way, the returned context still carries the registration so that
// Teardown removes what was created.
func (d *Driver) Register(ctx context.Context, rc RunContext, vlan bool) (RunContext, error) {
	fqdn, err := d.EngineFQDN(rc)
	if err != nil {
		return rc, err
	}
	ip, vlanID, err := d.hostIP(ctx, rc, vlan)
	if err != nil {
		return rc, err
	}
	lscpu, err := d.run(ctx, cpuModelCmd)
	if err != nil {
		return rc, err
	}
	cpuType, err := CPUFamily(lscpu)
	if err != nil {
		return rc, err
	}

	name := rc.Host.Label()
	reg := HostRegistration{
		EngineFQDN: fqdn,
		Datacenter: name,
		Cluster:    name,
		HostName:   name,
		HostIP:     ip,
		VLANID:     vlanID,
		CPUType:    cpuType,
	}

	slog.Info("registering host",
		"engine", reg.EngineFQDN,
		"datacenter", reg.Datacenter,
		"cluster", reg.Cluster,
		"host", reg.HostName,
		"ip", reg.HostIP,
		"vlan", reg.VLANID,
		"cpu", reg.CPUType)

	m, err := d.managers(fqdn)
	if err != nil {
		return rc, errors.Wrap(errors.ErrCodeManagementAPI, "failed to create engine client", err)
	}

	// remove leftovers from an earlier aborted run
	d.removeWithRetry(ctx, m, reg)

	rc = rc.WithRegistration(reg, m)

	if err := m.AddDatacenter(ctx, reg.Datacenter); err != nil {
		return rc, errors.Wrap(errors.ErrCodeManagementAPI, "failed to add datacenter", err)
	}
	if vlan {
		if err := m.UpdateNetwork(ctx, reg.Datacenter, "vlan", reg.VLANID); err != nil {
			return rc, errors.Wrap(errors.ErrCodeManagementAPI, "failed to set management vlan", err)
		}
	}
	if err := m.AddCluster(ctx, reg.Datacenter, reg.Cluster, reg.CPUType); err != nil {
		return rc, errors.Wrap(errors.ErrCodeManagementAPI, "failed to add cluster", err)
	}
	if err := m.AddHost(ctx, reg.HostIP, reg.HostName, rc.Host.Password, reg.Cluster); err != nil {
		return rc, errors.Wrap(errors.ErrCodeManagementAPI, "failed to add host", err)
	}

	slog.Info("host registered", "host", reg.HostName)
	return rc, nil
}

// Teardown removes the run's engine objects. It never fails; errors are
// logged and retried with a fixed backoff.
func (d *Driver) Teardown(ctx context.Context, rc RunContext) {
	if !rc.Registered() {
		return
	}
	d.removeWithRetry(ctx, rc.Manager, *rc.Registration)
}

func (d *Driver) removeWithRetry(ctx context.Context, m rhvm.Manager, reg HostRegistration) bool {
	attempts := d.settings.TeardownAttempts
	backoff := wait.Backoff{Duration: d.settings.TeardownBackoff, Factor: 1, Steps: attempts}

	attempt := 0
	err := wait.ExponentialBackoffWithContext(ctx, backoff, func(ctx context.Context) (bool, error) {
		attempt++
		if err := removeRegistration(ctx, m, reg); err != nil {
			teardownTotal.WithLabelValues("error").Inc()
			slog.Error("teardown attempt failed", "attempt", attempt, "of", attempts, "error", err)
			return false, nil
		}
		teardownTotal.WithLabelValues("success").Inc()
		return true, nil
	})
	if err == nil {
		return true
	}
	slog.Error("giving up teardown, engine objects may remain",
		"host", reg.HostName, "cluster", reg.Cluster, "datacenter", reg.Datacenter)
	return false
}

func removeRegistration(ctx context.Context, m rhvm.Manager, reg HostRegistration) error {
	if reg.HostName != "" {
		slog.Info("removing host", "host", reg.HostName)
		if err := m.RemoveHost(ctx, reg.HostName); err != nil {
			return err
		}
		if err := m.DeleteHostEvents(ctx, reg.HostName); err != nil {
			return err
		}
	}
	if reg.Cluster != "" {
		slog.Info("removing cluster", "cluster", reg.Cluster)
		if err := m.RemoveCluster(ctx, reg.Cluster); err != nil {
			return err
		}
	}
	if reg.Datacenter != "" {
		slog.Info("removing datacenter", "datacenter", reg.Datacenter)
		if err := m.RemoveDatacenter(ctx, reg.Datacenter); err != nil {
			return err
		}
	}
	return nil
}
