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

// Package header provides the common header written at the top of every
// serialized harness document: snapshots, verification results and run reports.
//
// # Usage
//
//	var s snapshotter.Snapshot
//	s.Init(header.KindSnapshot, header.APIVersion, version)
//
// Init stamps the header with an RFC3339 timestamp and the tool version:
//
//	kind: Snapshot
//	apiVersion: upgradecheck.hostqe.io/v1alpha1
//	metadata:
//	  timestamp: "2017-05-22T10:30:00Z"
//	  version: v0.3.0
//
// Additional metadata such as the host address can be attached with
// WithMetadata when building a header through New.
package header
