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
	"fmt"
	"log/slog"
	"strings"

	"github.com/hostqe/upgradecheck/pkg/errors"
	"github.com/hostqe/upgradecheck/pkg/snapshotter"
	"github.com/hostqe/upgradecheck/pkg/version"
)

const (
	// UpdatePlaceholder marks the update package shipped with a fresh install.
	UpdatePlaceholder = "placeholder"

	// SignedQueryCommand lists every installed package with its signature.
	SignedQueryCommand = "rpm -qa --qf '%{name}-%{version}-%{release}.%{arch} (%{SIGPGP:pgpsig})\\n'"

	signedKeyMarker = "Key ID"
	buildTokenWidth = 12
	buildTokenTrim  = 4
)

// Input is everything a check may look at. Checks never modify it.
type Input struct {
	Old    *snapshotter.Snapshot
	New    *snapshotter.Snapshot
	Source version.Build
	Target version.Build
}

func (in Input) validate() error {
	if in.Old == nil || in.New == nil {
		return errors.New(errors.ErrCodeInvalidRequest, "both snapshots are required")
	}
	return nil
}

// LayoutMigration reports whether the upgrade crosses the layout cutoff date.
func (in Input) LayoutMigration() bool {
	return version.RequiresLayoutMigration(in.Source, in.Target)
}

// CheckImgbasedVersion requires the imgbased package version not to regress.
func CheckImgbasedVersion(in Input) error {
	oldVer, err := version.PackageComponents(in.Old.ImgbasedVersion)
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeCheckFailed, "cannot parse old imgbased version", err,
			map[string]any{"imgbased_ver": in.Old.ImgbasedVersion})
	}
	newVer, err := version.PackageComponents(in.New.ImgbasedVersion)
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeCheckFailed, "cannot parse new imgbased version", err,
			map[string]any{"imgbased_ver": in.New.ImgbasedVersion})
	}

	slog.Info("check imgbased version", "old", oldVer.String(), "new", newVer.String())

	if err := version.CheckMonotonic(oldVer, newVer); err != nil {
		slog.Error("imgbased version regressed", "old", oldVer.String(), "new", newVer.String(), "error", err)
		return errors.WrapWithContext(errors.ErrCodeVersionRegression, "imgbased version regressed", err,
			map[string]any{"old": oldVer.String(), "new": newVer.String()})
	}
	return nil
}

// CheckUpdateVersion requires the old update package to be the placeholder and
// the new one to carry the target version token.
func CheckUpdateVersion(in Input) error {
	token := in.Target.VersionToken()
	slog.Info("check update version", "old", in.Old.UpdateVersion, "new", in.New.UpdateVersion, "target", token)

	if !strings.Contains(in.Old.UpdateVersion, UpdatePlaceholder) {
		slog.Error("old update package is not the placeholder", "old", in.Old.UpdateVersion)
		return errors.NewWithContext(errors.ErrCodeCheckFailed, "old update package is not the placeholder",
			map[string]any{"old": in.Old.UpdateVersion})
	}
	if !strings.Contains(in.New.UpdateVersion, token) {
		slog.Error("new update package does not match target", "new", in.New.UpdateVersion, "target", token)
		return errors.NewWithContext(errors.ErrCodeCheckFailed, "new update package does not match target build",
			map[string]any{"new": in.New.UpdateVersion, "target": token})
	}
	return nil
}

// BuildToken returns the 8 characters that end 4 characters before the end of
// an "imgbase w" line: the build date of "...-0.20170421.0+1".
func BuildToken(line string) (string, error) {
	line = strings.TrimSpace(line)
	if len(line) < buildTokenWidth {
		return "", errors.NewWithContext(errors.ErrCodeCheckFailed, "imgbase line too short",
			map[string]any{"line": line})
	}
	return line[len(line)-buildTokenWidth : len(line)-buildTokenTrim], nil
}

// CheckImgbaseW requires each side to run its expected build and the new
// build token to sort after the old one. Tokens are fixed-width dates, so
// byte order is date order.
func CheckImgbaseW(in Input) error {
	oldTok, err := BuildToken(in.Old.ImgbaseW)
	if err != nil {
		return err
	}
	newTok, err := BuildToken(in.New.ImgbaseW)
	if err != nil {
		return err
	}

	slog.Info("check imgbase w", "old", oldTok, "new", newTok,
		"source", in.Source.String(), "target", in.Target.String())

	ctx := map[string]any{
		"old": oldTok, "new": newTok,
		"source": in.Source.String(), "target": in.Target.String(),
	}
	switch {
	case !strings.Contains(in.Source.String(), oldTok):
		slog.Error("old build is not the source build", "old", oldTok, "source", in.Source.String())
		return errors.NewWithContext(errors.ErrCodeCheckFailed, "old build is not the source build", ctx)
	case !strings.Contains(in.Target.String(), newTok):
		slog.Error("new build is not the target build", "new", newTok, "target", in.Target.String())
		return errors.NewWithContext(errors.ErrCodeCheckFailed, "new build is not the target build", ctx)
	case newTok <= oldTok:
		slog.Error("new build is not newer than old build", "old", oldTok, "new", newTok)
		return errors.NewWithContext(errors.ErrCodeVersionRegression, "new build is not newer than old build", ctx)
	}
	return nil
}

// CurrentLayer returns the last field of an "imgbase w" line.
func CurrentLayer(imgbaseW string) string {
	fields := strings.Fields(imgbaseW)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// CheckImgbaseLayout requires each side's current layer to be listed in its
// own layout, and the new layout to extend the old one.
func CheckImgbaseLayout(in Input) error {
	oldLayer := CurrentLayer(in.Old.ImgbaseW)
	newLayer := CurrentLayer(in.New.ImgbaseW)

	slog.Info("check imgbase layout", "old_layer", oldLayer, "new_layer", newLayer,
		"old_layout", in.Old.ImgbaseLayout, "new_layout", in.New.ImgbaseLayout)

	if oldLayer == "" || !strings.Contains(in.Old.ImgbaseLayout, oldLayer) {
		slog.Error("old layer missing from old layout", "layer", oldLayer)
		return errors.NewWithContext(errors.ErrCodeCheckFailed, "old layer missing from old layout",
			map[string]any{"layer": oldLayer})
	}
	if !strings.Contains(in.New.ImgbaseLayout, in.Old.ImgbaseLayout) {
		slog.Error("old layout is not contained in new layout")
		return errors.NewWithContext(errors.ErrCodeCheckFailed, "old layout is not contained in new layout",
			map[string]any{"old_layout": in.Old.ImgbaseLayout, "new_layout": in.New.ImgbaseLayout})
	}
	if newLayer == "" || !strings.Contains(in.New.ImgbaseLayout, newLayer) {
		slog.Error("new layer missing from new layout", "layer", newLayer)
		return errors.NewWithContext(errors.ErrCodeCheckFailed, "new layer missing from new layout",
			map[string]any{"layer": newLayer})
	}
	return nil
}

func iqnSuffix(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// CheckInitiatorName requires the iSCSI initiator identity to survive the upgrade.
func CheckInitiatorName(in Input) error {
	oldID := iqnSuffix(in.Old.InitiatorName)
	newID := iqnSuffix(in.New.InitiatorName)

	slog.Info("check iscsi initiator", "old", in.Old.InitiatorName, "new", in.New.InitiatorName)

	if oldID != newID {
		slog.Error("iscsi initiator changed", "old", oldID, "new", newID)
		return errors.NewWithContext(errors.ErrCodeCheckFailed, "iscsi initiator name changed",
			map[string]any{"old": oldID, "new": newID})
	}
	return nil
}

// CheckSignedPackages counts the lines of a signature query that carry no key
// and do not belong to the target's own update package. Any such line fails.
func CheckSignedPackages(output string, target version.Build) error {
	exempt := "update-" + target.VersionToken()

	var unsigned []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, signedKeyMarker) || strings.Contains(line, exempt) {
			continue
		}
		unsigned = append(unsigned, line)
	}

	slog.Info("check signed packages", "unsigned", len(unsigned))

	if len(unsigned) != 0 {
		slog.Error("unsigned packages installed", "packages", unsigned)
		return errors.NewWithContext(errors.ErrCodeCheckFailed,
			fmt.Sprintf("%d unsigned packages installed", len(unsigned)),
			map[string]any{"packages": unsigned})
	}
	return nil
}
