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

// Package serializer writes and reads harness documents (snapshots,
// verification results, run reports) as JSON, YAML or a flattened table.
//
// Usage:
//
//	writer := serializer.NewFileWriterOrStdout(serializer.FormatYAML, "report.yaml")
//	defer writer.Close()
//	if err := writer.Serialize(ctx, report); err != nil {
//		return err
//	}
//
//	snap, err := serializer.FromFile[snapshotter.Snapshot]("old.yaml")
//
// Table output is write-only; JSON and YAML round-trip.
package serializer
