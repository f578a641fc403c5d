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

// Package report defines the document produced by one upgrade run.
//
// A Report carries the run identity (ID, strategy, builds, host), the
// outcome of every case, the merged verifier result and both snapshots.
// Status is error when the run stopped before its cases (a failed step or
// snapshot), failed when any case failed, and passed otherwise.
//
// Reports serialize through pkg/serializer like every other document and
// WriteSummary renders the short form printed at the end of "upgradecheck run".
package report
