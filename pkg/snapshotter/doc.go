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

// Package snapshotter captures the state of a hypervisor host before and after
// an upgrade.
//
// A Collector runs a fixed, read-only battery of commands through a
// remote.Runner and stores each trimmed output in a named field of a
// Snapshot:
//
//	imgbased_ver         rpm -qa |grep --color=never imgbased
//	update_ver           rpm -qa |grep --color=never update
//	imgbase_w            imgbase w
//	imgbase_layout       imgbase layout
//	initiatorname_iscsi  cat /etc/iscsi/initiatorname.iscsi
//	lvs                  lvs -a -o lv_name,lv_size --unit=m --noheadings --separator ' '
//	findmnt              findmnt -r -n
//
// Commands run sequentially with a per-command timeout. Collection is
// all-or-nothing: the first failing command aborts it with a
// SNAPSHOT_INCOMPLETE error and no partial snapshot is returned.
//
// Usage:
//
//	c := &snapshotter.Collector{Runner: session, Host: "10.0.0.5", Version: version}
//	old, err := c.Collect(ctx, snapshotter.TagOld)
//
// Snapshots carry a header (kind Snapshot) and can be written with Save and
// read back with Load, which is how the snapshot and verify commands exchange
// them.
//
// # Observability
//
//   - upgradecheck_snapshot_collection_duration_seconds{tag}
//   - upgradecheck_snapshot_collection_total{status}
//   - upgradecheck_snapshot_command_duration_seconds{measurement}
package snapshotter
