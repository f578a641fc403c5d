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

package verifier

import (
	"strings"

	"github.com/hostqe/upgradecheck/pkg/snapshotter"
	"github.com/hostqe/upgradecheck/pkg/version"
)

const (
	testSource = "redhat-virtualization-host-4.1-20170421.0"
	testTarget = "redhat-virtualization-host-4.1-20170522.0"

	oldLayout = "rhvh-4.1-0.20170421.0\n +- rhvh-4.1-0.20170421.0+1"
	newLayout = oldLayout + "\nrhvh-4.1-0.20170522.0\n +- rhvh-4.1-0.20170522.0+1"
)

var oldLVSLines = []string{
	"  WARNING: Not using lvmetad because config setting use_lvmetad=0.",
	"  pool00 100000.00m",
	"  [pool00_tmeta] 512.00m",
	"  rhvh-4.1-0.20170421.0 50000.00m",
	"  rhvh-4.1-0.20170421.0+1 50000.00m",
	"  root 50000.00m",
	"  swap 4096.00m",
	"  var 15360.00m",
}

var newLVSLines = []string{
	"  pool00 100000.00m",
	"  [pool00_tmeta] 1024.00m",
	"  rhvh-4.1-0.20170421.0 50000.00m",
	"  rhvh-4.1-0.20170421.0+1 50000.00m",
	"  rhvh-4.1-0.20170522.0 50000.00m",
	"  rhvh-4.1-0.20170522.0+1 50000.00m",
	"  root 50000.00m",
	"  swap 4096.00m",
	"  var 15360.00m",
	"  home 1024.00m",
	"  tmp 2048.00m",
	"  var-log 8192.00m",
	"  var-log-audit 2048.00m",
}

var oldFindmntLines = []string{
	"/ /dev/mapper/rhvh-rhvh--4.1--0.20170421.0+1 ext4 rw,relatime,discard",
	"/boot /dev/sda1 ext4 rw,relatime",
	"/var /dev/mapper/rhvh-var ext4 rw,relatime",
}

var newFindmntLines = []string{
	"/ /dev/mapper/rhvh-rhvh--4.1--0.20170522.0+1 ext4 rw,relatime,discard",
	"/boot /dev/sda1 ext4 rw,relatime",
	"/var /dev/mapper/rhvh-var ext4 rw,relatime",
	"/home /dev/mapper/rhvh-home ext4 rw,relatime",
	"/tmp /dev/mapper/rhvh-tmp ext4 rw,relatime",
	"/var/log /dev/mapper/rhvh-var_log ext4 rw,relatime",
	"/var/log/audit /dev/mapper/rhvh-var_log_audit ext4 rw,relatime",
}

// crlf joins lines the way a pty returns them.
func crlf(lines []string) string {
	return strings.Join(lines, "\r\n")
}

func without(lines []string, drop string) []string {
	var out []string
	for _, l := range lines {
		if !strings.Contains(l, drop) {
			out = append(out, l)
		}
	}
	return out
}

func replaced(lines []string, from, to string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.ReplaceAll(l, from, to)
	}
	return out
}

// goodInput is an upgrade across the layout cutoff that passes every check.
func goodInput() Input {
	return Input{
		Old: &snapshotter.Snapshot{
			Tag:             snapshotter.TagOld,
			ImgbasedVersion: "imgbased-0.9.20-0.1.el7ev.noarch",
			UpdateVersion:   "redhat-virtualization-host-image-update-placeholder-4.1-0.20170421.el7.noarch",
			ImgbaseW:        "You are on rhvh-4.1-0.20170421.0+1",
			ImgbaseLayout:   oldLayout,
			InitiatorName:   "InitiatorName=iqn.1994-05.com.redhat:6a3d4c2b1a",
			LVS:             crlf(oldLVSLines),
			Findmnt:         crlf(oldFindmntLines),
		},
		New: &snapshotter.Snapshot{
			Tag:             snapshotter.TagNew,
			ImgbasedVersion: "imgbased-0.9.26-0.1.el7ev.noarch",
			UpdateVersion:   "redhat-virtualization-host-image-update-4.1-20170522.0.el7.noarch",
			ImgbaseW:        "You are on rhvh-4.1-0.20170522.0+1",
			ImgbaseLayout:   newLayout,
			InitiatorName:   "InitiatorName=iqn.1994-05.com.redhat:6a3d4c2b1a",
			LVS:             crlf(newLVSLines),
			Findmnt:         crlf(newFindmntLines),
		},
		Source: version.MustParseBuild(testSource),
		Target: version.MustParseBuild(testTarget),
	}
}

// withSnapshots copies in with fresh snapshot values so tests can edit them.
func withSnapshots(in Input) Input {
	o, n := *in.Old, *in.New
	in.Old, in.New = &o, &n
	return in
}
