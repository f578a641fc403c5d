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

// Package rhvm is a small client for the virtualization management engine
// REST API (the "/ovirt-engine/api" endpoint).
//
// Only the calls an upgrade run needs are covered: datacenter, cluster and
// host registration, the in-place host upgrade, and the teardown of those
// objects. Requests are JSON with basic auth and pass through a rate limiter
// so that polling loops cannot flood the engine.
//
// Usage:
//
//	c, err := rhvm.NewClient("engine.example.com",
//	    rhvm.WithCredentials("admin@internal", password))
//	if err != nil {
//	    return err
//	}
//	host, err := c.ListHost(ctx, "dell-per510-01")
//
// Failures are StructuredErrors with code MANAGEMENT_API_FAILURE carrying the
// HTTP status and a truncated response body. Remove calls are idempotent: an
// object that no longer exists is not an error.
package rhvm
