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
package defaults

import "time"

// Remote execution timeouts.
const (
	// SSHDialTimeout is the timeout for establishing an SSH connection to the host.
	SSHDialTimeout = 10 * time.Second

	// RemoteCommandTimeout is the default timeout for a single remote command.
	RemoteCommandTimeout = 5 * time.Minute

	// DownloadTimeout bounds curl downloads executed on the host.
	DownloadTimeout = 10 * time.Minute

	// PackageInstallTimeout bounds auxiliary package installs on the host.
	PackageInstallTimeout = 10 * time.Minute

	// YumUpdateTimeout bounds the yum update of the host image.
	YumUpdateTimeout = 30 * time.Minute

	// YumInstallTimeout bounds the yum install of the update package.
	YumInstallTimeout = 30 * time.Minute

	// RebootCommandTimeout bounds the reboot command, which usually drops the session.
	RebootCommandTimeout = 10 * time.Second
)

// Polling bounds for waiting on the host.
const (
	// HostStatusMaxCount is the number of status queries before the host is declared not up.
	HostStatusMaxCount = 20

	// HostStatusInterval is the wait between host status queries.
	HostStatusInterval = 30 * time.Second

	// EnterSystemMaxCount is the number of login attempts after a reboot.
	EnterSystemMaxCount = 40

	// EnterSystemInterval is the wait before each login attempt after a reboot.
	EnterSystemInterval = 30 * time.Second

	// EnterSystemTimeout bounds a single login attempt after a reboot.
	EnterSystemTimeout = 60 * time.Second
)

// Teardown parameters for management server cleanup.
const (
	// TeardownAttempts is the number of deregistration attempts.
	TeardownAttempts = 3

	// TeardownBackoff is the fixed wait between deregistration attempts.
	TeardownBackoff = 20 * time.Second
)

// HTTP client timeouts for outbound requests.
const (
	// HTTPClientTimeout is the default total timeout for HTTP requests.
	HTTPClientTimeout = 30 * time.Second

	// HTTPConnectTimeout is the timeout for establishing connections.
	HTTPConnectTimeout = 5 * time.Second

	// HTTPTLSHandshakeTimeout is the timeout for TLS handshake.
	HTTPTLSHandshakeTimeout = 5 * time.Second

	// HTTPResponseHeaderTimeout is the timeout for reading response headers.
	HTTPResponseHeaderTimeout = 10 * time.Second

	// HTTPIdleConnTimeout is the timeout for idle connections in the pool.
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPKeepAlive is the keep-alive duration for connections.
	HTTPKeepAlive = 30 * time.Second

	// HTTPExpectContinueTimeout is the timeout for Expect: 100-continue.
	HTTPExpectContinueTimeout = 1 * time.Second

	// CockpitProbeTimeout bounds the web console reachability probe.
	CockpitProbeTimeout = 15 * time.Second
)

// Management API client parameters.
const (
	// ManagementRequestsPerSecond is the steady-state request rate to the management server.
	ManagementRequestsPerSecond = 5

	// ManagementBurst is the request burst allowed above the steady rate.
	ManagementBurst = 10
)

// Publishing timeouts.
const (
	// PublishTimeout bounds uploading run artifacts and emitting run events.
	PublishTimeout = 2 * time.Minute

	// NATSReconnectWait is the wait between NATS reconnect attempts.
	NATSReconnectWait = 2 * time.Second
)

// CLI timeouts for command-line operations.
const (
	// CLISnapshotTimeout is the default timeout for a standalone snapshot.
	CLISnapshotTimeout = 5 * time.Minute

	// CLIRunTimeout is the default timeout for a full upgrade run.
	CLIRunTimeout = 4 * time.Hour
)
