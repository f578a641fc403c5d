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

// Package orchestrator runs a complete upgrade check against one host.
//
// A run is strictly sequential:
//
//  1. drop any cached SSH connection
//  2. collect the "old" snapshot
//  3. run the strategy pipeline (pkg/upgrade)
//  4. collect the "new" snapshot
//  5. evaluate the cases
//  6. remove the engine objects created by the run
//
// Step 6 always happens, including after a panic or a canceled context.
// Failures in steps 2 to 4 end the run with report.StatusError; case failures
// give report.StatusFailed. Every case runs even if an earlier one failed,
// except that roll_back_check is ordered last because it switches layers.
//
// Usage:
//
//	o := orchestrator.New(driver, orchestrator.WithVersion(version))
//	rep := o.Run(ctx, upgrade.NewRunContext(host, source, target, strategy))
//	if !rep.Passed() {
//	    ...
//	}
package orchestrator
