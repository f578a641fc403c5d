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
	"time"

	"github.com/hostqe/upgradecheck/pkg/defaults"
)

// Host paths and packages touched by the pipelines.
const (
	RepoDir             = "/etc/yum.repos.d"
	HostRepoFile        = "rhvh.repo"
	RHELRepoFile        = "rhel73.repo"
	KernelSpacePackage  = "kmod-oracleasm"
	UserSpacePackage    = "httpd"
	AddedMarkerFile     = "/etc/upgrade_test"
	AddedMarkerContent  = "test"
	UpdatedMarkerFile   = "/etc/my.cnf"
	UpdatedMarkerLine   = "# test"
	RoutedNetwork       = "10.0.0.0/8"
	DefaultCockpitPort  = 9090
	DefaultRPMNameTmpl  = "redhat-virtualization-host-image-update-%s.el7.noarch.rpm"
	CPUTypeAMD          = "AMD Opteron G1"
	CPUTypeIntel        = "Intel Conroe Family"
	persistedRPMDir     = "/var/imgbased/persisted-rpms"
	networkScriptsDir   = "/etc/sysconfig/network-scripts"
	updateDownloadDir   = "/root"
	curlRetries         = 20
	rebootCommand       = "systemctl reboot"
	imgbaseWCommand     = "imgbase w"
	userSpaceListingCmd = "rpm -qa | grep httpd"
)

// Settings tunes a Driver. The zero value is not usable; start from DefaultSettings.
type Settings struct {
	// EngineFQDNs maps a source build stream ("4.0", "4.1") to its engine.
	EngineFQDNs map[string]string

	// LocalRepoDir holds rhvh.repo and rhel73.repo on the machine running the harness.
	LocalRepoDir string

	// UpdateRPMName is a format string taking the target version token.
	UpdateRPMName string

	// UpdateRPMURL is a format string taking the update package file name.
	UpdateRPMURL string

	CockpitPort int

	CommandTimeout        time.Duration
	DownloadTimeout       time.Duration
	PackageInstallTimeout time.Duration
	YumUpdateTimeout      time.Duration
	YumInstallTimeout     time.Duration
	RebootCommandTimeout  time.Duration
	CockpitTimeout        time.Duration

	HostStatusMaxCount int
	HostStatusInterval time.Duration

	EnterSystemMaxCount int
	EnterSystemInterval time.Duration
	EnterSystemTimeout  time.Duration

	TeardownAttempts int
	TeardownBackoff  time.Duration
}

// DefaultSettings returns settings populated from pkg/defaults.
func DefaultSettings() Settings {
	return Settings{
		EngineFQDNs:           map[string]string{},
		LocalRepoDir:          ".",
		UpdateRPMName:         DefaultRPMNameTmpl,
		CockpitPort:           DefaultCockpitPort,
		CommandTimeout:        defaults.RemoteCommandTimeout,
		DownloadTimeout:       defaults.DownloadTimeout,
		PackageInstallTimeout: defaults.PackageInstallTimeout,
		YumUpdateTimeout:      defaults.YumUpdateTimeout,
		YumInstallTimeout:     defaults.YumInstallTimeout,
		RebootCommandTimeout:  defaults.RebootCommandTimeout,
		CockpitTimeout:        defaults.CockpitProbeTimeout,
		HostStatusMaxCount:    defaults.HostStatusMaxCount,
		HostStatusInterval:    defaults.HostStatusInterval,
		EnterSystemMaxCount:   defaults.EnterSystemMaxCount,
		EnterSystemInterval:   defaults.EnterSystemInterval,
		EnterSystemTimeout:    defaults.EnterSystemTimeout,
		TeardownAttempts:      defaults.TeardownAttempts,
		TeardownBackoff:       defaults.TeardownBackoff,
	}
}
