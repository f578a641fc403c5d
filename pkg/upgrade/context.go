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
	"strings"

	"github.com/hostqe/upgradecheck/pkg/rhvm"
	"github.com/hostqe/upgradecheck/pkg/version"
)

// HostTarget identifies the machine under test.
type HostTarget struct {
	// Address is the SSH address of the host.
	Address string `json:"address" yaml:"address"`

	// Password is the root password, also handed to the engine on registration.
	Password string `json:"-" yaml:"-"`

	// MachineName is the lab inventory name, e.g. "dell-per510-01.lab.example.com".
	MachineName string `json:"machineName,omitempty" yaml:"machineName,omitempty"`
}

// Label returns the first DNS label of the machine name, falling back to the address.
func (h HostTarget) Label() string {
	name := h.MachineName
	if name == "" {
		name = h.Address
	}
	label, _, _ := strings.Cut(name, ".")
	return label
}

// HostRegistration is the set of engine objects created for one run.
type HostRegistration struct {
	EngineFQDN string `json:"engineFqdn" yaml:"engineFqdn"`
	Datacenter string `json:"datacenter" yaml:"datacenter"`
	Cluster    string `json:"cluster" yaml:"cluster"`
	HostName   string `json:"hostName" yaml:"hostName"`
	HostIP     string `json:"hostIp" yaml:"hostIp"`
	VLANID     string `json:"vlanId,omitempty" yaml:"vlanId,omitempty"`
	CPUType    string `json:"cpuType" yaml:"cpuType"`
}

// RunContext is the state threaded through the steps of one run. It is a
// value: steps return an updated copy and never modify the one they receive.
type RunContext struct {
	Host     HostTarget
	Source   version.Build
	Target   version.Build
	Strategy Strategy

	// Registration and Manager are set once the host has been registered.
	Registration *HostRegistration
	Manager      rhvm.Manager

	// UpdateRPMPath is the fetched update package on the host.
	UpdateRPMPath string

	// KernelSpaceRPM is the kernel module package installed before the upgrade.
	KernelSpaceRPM string

	// UserSpaceBaseline is the user-space package listing recorded before the upgrade.
	UserSpaceBaseline string
}

// NewRunContext returns the initial context of a run.
func NewRunContext(host HostTarget, source, target version.Build, strategy Strategy) RunContext {
	return RunContext{
		Host:     host,
		Source:   source,
		Target:   target,
		Strategy: strategy,
	}
}

// Registered reports whether engine objects may exist for this run.
func (rc RunContext) Registered() bool {
	return rc.Registration != nil && rc.Manager != nil
}

// WithRegistration returns a copy carrying reg and the manager that created it.
func (rc RunContext) WithRegistration(reg HostRegistration, m rhvm.Manager) RunContext {
	rc.Registration = &reg
	rc.Manager = m
	return rc
}

// WithUpdateRPM returns a copy with the fetched update package path.
func (rc RunContext) WithUpdateRPM(path string) RunContext {
	rc.UpdateRPMPath = path
	return rc
}

// WithKernelSpaceRPM returns a copy with the installed kernel-space package.
func (rc RunContext) WithKernelSpaceRPM(name string) RunContext {
	rc.KernelSpaceRPM = name
	return rc
}

// WithUserSpaceBaseline returns a copy with the recorded user-space listing.
func (rc RunContext) WithUserSpaceBaseline(listing string) RunContext {
	rc.UserSpaceBaseline = listing
	return rc
}
