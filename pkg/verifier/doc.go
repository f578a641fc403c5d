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

// Package verifier compares the state of a host before and after an upgrade.
//
// Each check is a pure function of an Input (the old and new snapshots plus
// the source and target builds). A check logs what it compared and returns
// nil or a StructuredError describing the mismatch:
//
//	imgbased-version  imgbased package components never decrease      (packages)
//	update-version    placeholder update before, target token after    (packages)
//	imgbase-w         each side runs its build, target sorts later     (basic)
//	imgbase-layout    layers listed, new layout extends the old one    (basic)
//	initiator-name    iSCSI initiator identity is unchanged            (basic)
//	lvs               volumes kept, layer/migrated/pool-meta rules     (cmds)
//	findmnt           mounts kept, new layer and migrated mounts       (cmds)
//
// The migrated volume and mount rules only apply when the upgrade crosses
// version.LayoutMigrationCutoff; see Input.LayoutMigration.
//
// CheckSignedPackages works on live rpm output rather than snapshots and is
// invoked separately.
//
// Verifier runs every check of a selection without short-circuiting and
// returns a Result with one CheckResult per check and a Summary:
//
//	v := verifier.New(verifier.WithVersion(version))
//	res, err := v.Verify(ctx, verifier.Input{Old: old, New: new, Source: src, Target: tgt})
//	if err != nil {
//	    return err
//	}
//	if !res.Passed() {
//	    for _, f := range res.Failures() {
//	        fmt.Println(f.Name, f.Code, f.Message)
//	    }
//	}
//
// Running the verifier twice on the same input produces the same results.
package verifier
