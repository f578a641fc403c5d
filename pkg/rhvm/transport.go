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
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/hostqe/upgradecheck/pkg/defaults"
)

// NewHTTPClient returns an http.Client tuned with the harness transport timeouts.
// Engines and web consoles on test hosts use self-signed certificates, so
// verification can be turned off.
func NewHTTPClient(insecureSkipVerify bool, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaults.HTTPClientTimeout
	}

	dialer := &net.Dialer{
		Timeout:   defaults.HTTPConnectTimeout,
		KeepAlive: defaults.HTTPKeepAlive,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   defaults.HTTPTLSHandshakeTimeout,
		ResponseHeaderTimeout: defaults.HTTPResponseHeaderTimeout,
		IdleConnTimeout:       defaults.HTTPIdleConnTimeout,
		ExpectContinueTimeout: defaults.HTTPExpectContinueTimeout,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   5,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: insecureSkipVerify, //nolint:gosec // lab engines use self-signed certs
		},
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
