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

import "context"

// Host status values reported by the engine.
const (
	StatusUp          = "up"
	StatusMaintenance = "maintenance"
)

// Manager is the subset of the management server API used by an upgrade run.
// Remove* calls succeed when the object is already absent.
type Manager interface {
	AddDatacenter(ctx context.Context, name string) error
	UpdateNetwork(ctx context.Context, datacenter, key, value string) error
	AddCluster(ctx context.Context, datacenter, name, cpuType string) error
	AddHost(ctx context.Context, address, name, password, cluster string) error
	ListHost(ctx context.Context, name string) (*Host, error)
	UpgradeHost(ctx context.Context, name string) error
	RemoveHost(ctx context.Context, name string) error
	DeleteHostEvents(ctx context.Context, name string) error
	RemoveCluster(ctx context.Context, name string) error
	RemoveDatacenter(ctx context.Context, name string) error
}

// Ref names or identifies another object in a request body.
type Ref struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// Host is a hypervisor host registered with the engine.
type Host struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	Address      string `json:"address,omitempty"`
	Status       string `json:"status,omitempty"`
	RootPassword string `json:"root_password,omitempty"`
	Cluster      *Ref   `json:"cluster,omitempty"`
}

// DataCenter groups clusters and logical networks.
type DataCenter struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Local bool   `json:"local"`
}

// CPU selects the cluster CPU family.
type CPU struct {
	Type string `json:"type"`
}

// Cluster groups hosts sharing a CPU family.
type Cluster struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	CPU        *CPU   `json:"cpu,omitempty"`
	DataCenter *Ref   `json:"data_center,omitempty"`
}

// VLAN tags a logical network.
type VLAN struct {
	ID string `json:"id"`
}

// Network is a logical network of a datacenter.
type Network struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	VLAN *VLAN  `json:"vlan,omitempty"`
}

// Event is an engine audit log entry.
type Event struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
}

type hostList struct {
	Hosts []Host `json:"host"`
}

type dataCenterList struct {
	DataCenters []DataCenter `json:"data_center"`
}

type clusterList struct {
	Clusters []Cluster `json:"cluster"`
}

type networkList struct {
	Networks []Network `json:"network"`
}

type eventList struct {
	Events []Event `json:"event"`
}
