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

// Package defaults provides centralized configuration constants for the harness.
//
// # Timeout Categories
//
// Timeouts are organized by component:
//
//   - Remote execution: SSH dial, per-command, download and yum bounds
//   - Polling: host status and post-reboot login loops
//   - Teardown: management server cleanup attempts and backoff
//   - HTTP client: management API and web console probes
//
// # Usage
//
//	ctx, cancel := context.WithTimeout(ctx, defaults.CLISnapshotTimeout)
//	defer cancel()
//
// Every polling bound here can be overridden through configuration; these are
// the values used when nothing is set.
package defaults
