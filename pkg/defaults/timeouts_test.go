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

import (
	"testing"
	"time"
)

func TestTimeoutConstants(t *testing.T) {
	tests := []struct {
		name     string
		timeout  time.Duration
		minValue time.Duration
		maxValue time.Duration
	}{
		// Remote execution timeouts
		{"SSHDialTimeout", SSHDialTimeout, 1 * time.Second, 60 * time.Second},
		{"RemoteCommandTimeout", RemoteCommandTimeout, 30 * time.Second, 15 * time.Minute},
		{"DownloadTimeout", DownloadTimeout, 1 * time.Minute, 30 * time.Minute},
		{"YumUpdateTimeout", YumUpdateTimeout, 5 * time.Minute, 2 * time.Hour},
		{"YumInstallTimeout", YumInstallTimeout, 5 * time.Minute, 2 * time.Hour},
		{"RebootCommandTimeout", RebootCommandTimeout, 1 * time.Second, 60 * time.Second},

		// Polling
		{"HostStatusInterval", HostStatusInterval, 5 * time.Second, 5 * time.Minute},
		{"EnterSystemInterval", EnterSystemInterval, 5 * time.Second, 5 * time.Minute},
		{"EnterSystemTimeout", EnterSystemTimeout, 5 * time.Second, 5 * time.Minute},

		// Teardown
		{"TeardownBackoff", TeardownBackoff, 1 * time.Second, 2 * time.Minute},

		// HTTP client timeouts
		{"HTTPClientTimeout", HTTPClientTimeout, 10 * time.Second, 60 * time.Second},
		{"HTTPConnectTimeout", HTTPConnectTimeout, 1 * time.Second, 15 * time.Second},
		{"CockpitProbeTimeout", CockpitProbeTimeout, 1 * time.Second, 60 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.timeout < tt.minValue {
				t.Errorf("%s (%v) is below minimum expected value (%v)", tt.name, tt.timeout, tt.minValue)
			}
			if tt.timeout > tt.maxValue {
				t.Errorf("%s (%v) is above maximum expected value (%v)", tt.name, tt.timeout, tt.maxValue)
			}
		})
	}
}

func TestTeardownAttempts(t *testing.T) {
	if TeardownAttempts != 3 {
		t.Errorf("TeardownAttempts = %d, want 3", TeardownAttempts)
	}
}

func TestPollingBoundsPositive(t *testing.T) {
	if HostStatusMaxCount <= 0 {
		t.Errorf("HostStatusMaxCount (%d) must be positive", HostStatusMaxCount)
	}
	if EnterSystemMaxCount <= 0 {
		t.Errorf("EnterSystemMaxCount (%d) must be positive", EnterSystemMaxCount)
	}
}

func TestHTTPClientTimeoutRelationships(t *testing.T) {
	// Connect timeout should be less than total timeout
	if HTTPConnectTimeout >= HTTPClientTimeout {
		t.Errorf("HTTPConnectTimeout (%v) should be less than HTTPClientTimeout (%v)",
			HTTPConnectTimeout, HTTPClientTimeout)
	}

	if HTTPTLSHandshakeTimeout >= HTTPClientTimeout {
		t.Errorf("HTTPTLSHandshakeTimeout (%v) should be less than HTTPClientTimeout (%v)",
			HTTPTLSHandshakeTimeout, HTTPClientTimeout)
	}
}

func TestRebootShorterThanLoginAttempt(t *testing.T) {
	// The reboot command usually loses its session; it should not hold up the login loop.
	if RebootCommandTimeout > EnterSystemTimeout {
		t.Errorf("RebootCommandTimeout (%v) should not exceed EnterSystemTimeout (%v)",
			RebootCommandTimeout, EnterSystemTimeout)
	}
}
