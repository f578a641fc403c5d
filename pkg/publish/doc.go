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

// Package publish ships finished runs out of the harness.
//
// Two sinks exist: S3 uploads the report and both snapshots under
// "<prefix>/<host>/<run id>/", and NATS emits a small RunEvent on
// "upgradecheck.runs.<status>" for dashboards and chat bots. All fans a run
// out to every configured sink in parallel.
package publish
