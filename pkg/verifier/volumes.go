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
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/hostqe/upgradecheck/pkg/errors"
)

// PoolMetaFloor is the minimum thin pool metadata size in MiB after an upgrade.
const PoolMetaFloor = 1024

// GatedVolume is a logical volume introduced by the layout migration.
type GatedVolume struct {
	Name string
	Size string
}

// GatedVolumes are the volumes added by the layout migration, with their sizes.
var GatedVolumes = []GatedVolume{
	{Name: "home", Size: "1024.00m"},
	{Name: "tmp", Size: "2048.00m"},
	{Name: "var-log", Size: "8192.00m"},
	{Name: "var-log-audit", Size: "2048.00m"},
}

// GatedMounts are the mount targets added by the layout migration.
var GatedMounts = []string{"/home", "/tmp", "/var/log", "/var/log/audit"}

var poolMetaPattern = regexp.MustCompile(`^\[pool.*_tmeta\]`)

// lineSet is a normalized listing: trimmed, non-empty, warnings removed.
type lineSet map[string]struct{}

func normalizeLines(raw string) lineSet {
	set := lineSet{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "WARNING") {
			continue
		}
		set[line] = struct{}{}
	}
	return set
}

// minus returns the sorted lines of s that are not in other.
func (s lineSet) minus(other lineSet) []string {
	var out []string
	for line := range s {
		if _, ok := other[line]; !ok {
			out = append(out, line)
		}
	}
	sort.Strings(out)
	return out
}

func (s lineSet) sorted() []string {
	out := make([]string, 0, len(s))
	for line := range s {
		out = append(out, line)
	}
	sort.Strings(out)
	return out
}

func firstField(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func lastField(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// byFirstField returns the sorted lines whose first field equals key.
func byFirstField(lines []string, key string) []string {
	var out []string
	for _, l := range lines {
		if firstField(l) == key {
			out = append(out, l)
		}
	}
	return out
}

// LayerDevice returns the device-mapper spelling of a layer name, with every
// "-" doubled as in /dev/mapper/rhvh-rhvh--4.1--0.20170522.0+1.
func LayerDevice(layer string) string {
	return strings.ReplaceAll(layer, "-", "--")
}

// CheckLVS requires every old logical volume to survive unchanged, the new
// layer volumes to exist, the migrated volumes to be present when the upgrade
// crosses the layout cutoff, and the pool metadata volume to follow the size
// floor rule. All sub-checks run; the first failure is returned.
func CheckLVS(in Input) error {
	oldSet := normalizeLines(in.Old.LVS)
	newSet := normalizeLines(in.New.LVS)

	// pool metadata resizes are governed by the floor rule below
	var missing []string
	for _, line := range oldSet.minus(newSet) {
		if !poolMetaPattern.MatchString(line) {
			missing = append(missing, line)
		}
	}
	slog.Info("check lvs", "old", len(oldSet), "new", len(newSet), "missing", len(missing))
	if len(missing) > 0 {
		slog.Error("logical volumes removed by upgrade", "missing", missing)
		return errors.NewWithContext(errors.ErrCodeVolumeRegression, "logical volumes removed by upgrade",
			map[string]any{"missing": missing})
	}

	newLines := newSet.sorted()
	added := newSet.minus(oldSet)
	var errs []error
	errs = append(errs, checkLayerVolumes(CurrentLayer(in.New.ImgbaseW), newLines))
	if in.LayoutMigration() {
		errs = append(errs, checkGatedVolumes(oldSet.sorted(), added))
	} else {
		slog.Info("layout migration not crossed, skipping new volume check",
			"source", in.Source.DateToken(), "target", in.Target.DateToken())
	}
	errs = append(errs, checkPoolMeta(oldSet.sorted(), newLines))

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func checkLayerVolumes(layer string, newLines []string) error {
	base, _, _ := strings.Cut(layer, "+")
	for _, key := range []string{layer, base} {
		found := false
		if key != "" {
			for _, line := range newLines {
				if strings.Contains(line, key) {
					found = true
					break
				}
			}
		}
		if !found {
			slog.Error("layer volume missing", "layer", key)
			return errors.NewWithContext(errors.ErrCodeVolumeRegression, "layer volume missing",
				map[string]any{"layer": key})
		}
	}
	return nil
}

func checkGatedVolumes(oldLines, added []string) error {
	for _, lv := range GatedVolumes {
		inOld := byFirstField(oldLines, lv.Name)
		inAdded := byFirstField(added, lv.Name)

		switch {
		case len(inOld) > 0 && len(inAdded) > 0:
			slog.Error("existing volume changed", "lv", lv.Name, "lines", inAdded)
			return errors.NewWithContext(errors.ErrCodeVolumeRegression, "existing volume changed",
				map[string]any{"lv": lv.Name, "lines": inAdded})
		case len(inOld) == 0 && len(inAdded) == 0:
			slog.Error("volume not added", "lv", lv.Name)
			return errors.NewWithContext(errors.ErrCodeVolumeRegression, "volume not added",
				map[string]any{"lv": lv.Name})
		case len(inOld) == 0:
			if size := lastField(inAdded[0]); size != lv.Size {
				slog.Error("added volume has wrong size", "lv", lv.Name, "size", size, "want", lv.Size)
				return errors.NewWithContext(errors.ErrCodeVolumeRegression, "added volume has wrong size",
					map[string]any{"lv": lv.Name, "size": size, "want": lv.Size})
			}
		}
	}
	return nil
}

// poolMetaSize returns the floored size in MiB of the first pool metadata volume.
func poolMetaSize(lines []string) (int, bool) {
	for _, l := range lines {
		if !poolMetaPattern.MatchString(l) {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.ToLower(lastField(l)), "m"), 64)
		if err != nil {
			return 0, false
		}
		return int(math.Floor(f)), true
	}
	return 0, false
}

func checkPoolMeta(oldLines, newLines []string) error {
	oldSize, okOld := poolMetaSize(oldLines)
	newSize, okNew := poolMetaSize(newLines)
	if !okOld || !okNew {
		slog.Error("pool metadata volume not found", "old", okOld, "new", okNew)
		return errors.NewWithContext(errors.ErrCodeCheckFailed, "pool metadata volume not found",
			map[string]any{"old_found": okOld, "new_found": okNew})
	}

	want := oldSize
	if oldSize < PoolMetaFloor {
		want = PoolMetaFloor
	}

	slog.Info("check pool metadata size", "old", oldSize, "new", newSize, "want", want)

	if newSize != want {
		slog.Error("pool metadata size mismatch", "old", oldSize, "new", newSize, "want", want)
		return errors.NewWithContext(errors.ErrCodeVolumeRegression, "pool metadata size mismatch",
			map[string]any{"old": oldSize, "new": newSize, "want": want})
	}
	return nil
}

// CheckFindmnt requires every old mount to survive, except those of the
// replaced root layer, the new layer to be mounted only after the upgrade,
// and the migrated mount targets to be present when the cutoff is crossed.
func CheckFindmnt(in Input) error {
	oldSet := normalizeLines(in.Old.Findmnt)
	newSet := normalizeLines(in.New.Findmnt)
	oldDev := LayerDevice(CurrentLayer(in.Old.ImgbaseW))
	newDev := LayerDevice(CurrentLayer(in.New.ImgbaseW))

	var missing []string
	for _, line := range oldSet.minus(newSet) {
		if oldDev != "" && strings.Contains(line, oldDev) {
			continue
		}
		missing = append(missing, line)
	}

	added := newSet.minus(oldSet)
	slog.Info("check findmnt", "added", added, "missing", missing)

	if len(missing) > 0 {
		slog.Error("mounts removed by upgrade", "missing", missing)
		return errors.NewWithContext(errors.ErrCodeMountRegression, "mounts removed by upgrade",
			map[string]any{"missing": missing})
	}

	if newDev == "" {
		return errors.New(errors.ErrCodeCheckFailed, "new layer unknown")
	}
	for _, line := range oldSet.sorted() {
		if strings.Contains(line, newDev) {
			slog.Error("new layer already mounted before upgrade", "layer", newDev)
			return errors.NewWithContext(errors.ErrCodeMountRegression, "new layer already mounted before upgrade",
				map[string]any{"layer": newDev})
		}
	}
	if !containsAny(added, newDev) {
		slog.Error("new layer not mounted", "layer", newDev)
		return errors.NewWithContext(errors.ErrCodeMountRegression, "new layer not mounted",
			map[string]any{"layer": newDev})
	}

	if !in.LayoutMigration() {
		slog.Info("layout migration not crossed, skipping new mount check",
			"source", in.Source.DateToken(), "target", in.Target.DateToken())
		return nil
	}

	oldLines := oldSet.sorted()
	for _, target := range GatedMounts {
		inOld := byFirstField(oldLines, target)
		inAdded := byFirstField(added, target)
		switch {
		case len(inOld) > 0 && len(inAdded) > 0:
			slog.Error("existing mount changed", "target", target, "lines", inAdded)
			return errors.NewWithContext(errors.ErrCodeMountRegression, "existing mount changed",
				map[string]any{"target": target, "lines": inAdded})
		case len(inOld) == 0 && len(inAdded) == 0:
			slog.Error("mount not added", "target", target)
			return errors.NewWithContext(errors.ErrCodeMountRegression, "mount not added",
				map[string]any{"target": target})
		}
	}
	return nil
}

func containsAny(lines []string, sub string) bool {
	for _, l := range lines {
		if strings.Contains(l, sub) {
			return true
		}
	}
	return false
}
