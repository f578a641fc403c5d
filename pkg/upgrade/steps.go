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

package upgrade

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/hostqe/upgradecheck/pkg/errors"
	"github.com/hostqe/upgradecheck/pkg/remote"
)

func (d *Driver) run(ctx context.Context, cmd string) (string, error) {
	return d.session.Run(ctx, cmd, d.settings.CommandTimeout)
}

func (d *Driver) seedMarkerFiles(ctx context.Context, rc RunContext) (RunContext, error) {
	cmds := []string{
		fmt.Sprintf("echo %s > %s", remote.Quote(AddedMarkerContent), AddedMarkerFile),
		fmt.Sprintf("echo %s >> %s", remote.Quote(UpdatedMarkerLine), UpdatedMarkerFile),
	}
	for _, cmd := range cmds {
		if _, err := d.run(ctx, cmd); err != nil {
			return rc, err
		}
	}
	return rc, nil
}

// CheckMarkerFiles reports whether the seeded marker files survived.
func (d *Driver) CheckMarkerFiles(ctx context.Context) error {
	for file, want := range map[string]string{
		AddedMarkerFile:   AddedMarkerContent,
		UpdatedMarkerFile: UpdatedMarkerLine,
	} {
		ok, err := remote.FileContains(ctx, d.session, file, d.settings.CommandTimeout, want)
		if err != nil {
			return err
		}
		if !ok {
			return errors.NewWithContext(errors.ErrCodeCheckFailed, "marker file content lost",
				map[string]any{"file": file, "want": want})
		}
	}
	return nil
}

func (d *Driver) putRepoStep(name string) StepFunc {
	return func(ctx context.Context, rc RunContext) (RunContext, error) {
		return rc, d.putRepo(ctx, name)
	}
}

func (d *Driver) putRepo(ctx context.Context, name string) error {
	local := filepath.Join(d.settings.LocalRepoDir, name)
	slog.Info("putting repo file on host", "file", local, "dir", RepoDir)
	if err := d.session.Put(ctx, local, RepoDir); err != nil {
		return errors.WrapWithContext(errors.ErrCodeRemoteExec, "failed to put repo file", err,
			map[string]any{"file": local})
	}
	return nil
}

func (d *Driver) removeRepo(ctx context.Context, name string) error {
	repo := path.Join(RepoDir, name)
	_, err := d.run(ctx, fmt.Sprintf("mv %s %s.bak", repo, repo))
	return err
}

// installRPMs installs a kernel-space and a user-space package before the
// upgrade so that their persistence can be checked afterwards.
func (d *Driver) installRPMs(ctx context.Context, rc RunContext) (RunContext, error) {
	if err := d.putRepo(ctx, RHELRepoFile); err != nil {
		return rc, err
	}

	installLog := fmt.Sprintf("/root/%s.log", KernelSpacePackage)
	cmd := fmt.Sprintf("yum install -y %s > %s", KernelSpacePackage, installLog)
	if _, err := d.session.Run(ctx, cmd, d.settings.PackageInstallTimeout); err != nil {
		slog.Error("kernel-space package install failed", "package", KernelSpacePackage, "log", installLog)
		return rc, err
	}
	rc = rc.WithKernelSpaceRPM(KernelSpacePackage)
	if err := d.CheckKernelSpaceRPM(ctx, rc); err != nil {
		return rc, err
	}

	installLog = fmt.Sprintf("/root/%s.log", UserSpacePackage)
	cmd = fmt.Sprintf("yum install -y %s > %s", UserSpacePackage, installLog)
	if _, err := d.session.Run(ctx, cmd, d.settings.PackageInstallTimeout); err != nil {
		slog.Error("user-space package install failed", "package", UserSpacePackage, "log", installLog)
		return rc, err
	}
	baseline, err := d.run(ctx, userSpaceListingCmd)
	if err != nil {
		return rc, err
	}
	rc = rc.WithUserSpaceBaseline(baseline)

	return rc, d.removeRepo(ctx, RHELRepoFile)
}

// CheckKernelSpaceRPM verifies the kernel-space package is linked into the
// running kernel and persisted across image layers.
func (d *Driver) CheckKernelSpaceRPM(ctx context.Context, rc RunContext) error {
	pkg := rc.KernelSpaceRPM
	if pkg == "" {
		return errors.New(errors.ErrCodeInvalidRequest, "no kernel-space package installed in this run")
	}
	key := pkg
	if parts := strings.Split(pkg, "-"); len(parts) > 1 {
		key = parts[1]
	}

	kernel, err := d.run(ctx, "uname -r")
	if err != nil {
		return err
	}

	weak := fmt.Sprintf("/usr/lib/modules/%s/weak-updates/", strings.TrimSpace(kernel))
	ok, out, err := remote.OutputContains(ctx, d.session, "ls "+weak, d.settings.CommandTimeout, key)
	if err != nil {
		return err
	}
	if !ok {
		slog.Error("kernel module not in weak-updates", "dir", weak, "want", key, "output", out)
		return errors.NewWithContext(errors.ErrCodeCheckFailed, "kernel module not in weak-updates",
			map[string]any{"dir": weak, "want": key})
	}

	ok, out, err = remote.OutputContains(ctx, d.session, "ls "+persistedRPMDir, d.settings.CommandTimeout, pkg)
	if err != nil {
		return err
	}
	if !ok {
		slog.Error("package not persisted", "dir", persistedRPMDir, "want", pkg, "output", out)
		return errors.NewWithContext(errors.ErrCodeCheckFailed, "package not persisted",
			map[string]any{"dir": persistedRPMDir, "want": pkg})
	}
	return nil
}

// CheckUserSpaceRPM verifies the user-space package listing matches the
// one recorded before the upgrade.
func (d *Driver) CheckUserSpaceRPM(ctx context.Context, rc RunContext) error {
	if rc.UserSpaceBaseline == "" {
		return errors.New(errors.ErrCodeInvalidRequest, "no user-space baseline recorded in this run")
	}
	out, err := d.run(ctx, userSpaceListingCmd)
	if err != nil {
		return err
	}
	if out != rc.UserSpaceBaseline {
		slog.Error("user-space package not persisted", "baseline", rc.UserSpaceBaseline, "current", out)
		return errors.NewWithContext(errors.ErrCodeCheckFailed, "user-space package not persisted",
			map[string]any{"baseline": rc.UserSpaceBaseline, "current": out})
	}
	return nil
}

// UpdateRPMName returns the update package file name for the target build.
func (d *Driver) UpdateRPMName(rc RunContext) string {
	return fmt.Sprintf(d.settings.UpdateRPMName, rc.Target.VersionToken())
}

func (d *Driver) fetchUpdateRPM(ctx context.Context, rc RunContext) (RunContext, error) {
	if d.settings.UpdateRPMURL == "" {
		return rc, errors.New(errors.ErrCodeInvalidRequest, "update package URL is not configured")
	}
	name := d.UpdateRPMName(rc)
	url := fmt.Sprintf(d.settings.UpdateRPMURL, name)
	dest := path.Join(updateDownloadDir, name)

	slog.Info("fetching update package", "url", url, "dest", dest)

	cmd := fmt.Sprintf("curl --retry %d --remote-time -o %s %s", curlRetries, dest, url)
	if _, err := d.session.Run(ctx, cmd, d.settings.DownloadTimeout); err != nil {
		return rc, err
	}
	return rc.WithUpdateRPM(dest), nil
}

func (d *Driver) yumUpdate(ctx context.Context, rc RunContext) (RunContext, error) {
	slog.Info("running yum update, see /root/yum_update.log on host")
	_, err := d.session.Run(ctx, "yum -y update > /root/yum_update.log", d.settings.YumUpdateTimeout)
	return rc, err
}

func (d *Driver) yumInstall(ctx context.Context, rc RunContext) (RunContext, error) {
	if rc.UpdateRPMPath == "" {
		return rc, errors.New(errors.ErrCodeInvalidRequest, "no update package fetched")
	}
	slog.Info("running yum install, see /root/yum_install.log on host", "rpm", rc.UpdateRPMPath)
	cmd := fmt.Sprintf("yum -y install %s > /root/yum_install.log", rc.UpdateRPMPath)
	_, err := d.session.Run(ctx, cmd, d.settings.YumInstallTimeout)
	return rc, err
}

// ParseDefaultRoute returns the gateway and device of an "ip route" default line.
func ParseDefaultRoute(line string) (gateway, nic string, err error) {
	fields := strings.Fields(line)
	if len(fields) < 5 || fields[0] != "default" {
		return "", "", errors.NewWithContext(errors.ErrCodeCheckFailed, "unexpected default route",
			map[string]any{"route": line})
	}
	return fields[2], fields[4], nil
}

func (d *Driver) addRoute(ctx context.Context, rc RunContext) (RunContext, error) {
	line, err := d.run(ctx, "ip route | grep --color=never default | head -1")
	if err != nil {
		return rc, err
	}
	gateway, nic, err := ParseDefaultRoute(line)
	if err != nil {
		return rc, err
	}

	slog.Info("adding route", "network", RoutedNetwork, "gateway", gateway, "nic", nic)

	if _, err := d.run(ctx, fmt.Sprintf("ip route add %s via %s dev %s", RoutedNetwork, gateway, nic)); err != nil {
		return rc, err
	}
	persist := fmt.Sprintf("echo %s > %s/route-%s",
		remote.Quote(RoutedNetwork+" via "+gateway), networkScriptsDir, nic)
	_, err = d.run(ctx, persist)
	return rc, err
}

func (d *Driver) engineUpgrade(ctx context.Context, rc RunContext) (RunContext, error) {
	if !rc.Registered() {
		return rc, errors.New(errors.ErrCodeInvalidRequest, "host is not registered")
	}
	slog.Info("requesting engine upgrade", "host", rc.Registration.HostName)
	if err := rc.Manager.UpgradeHost(ctx, rc.Registration.HostName); err != nil {
		return rc, errors.Wrap(errors.ErrCodeManagementAPI, "engine upgrade failed", err)
	}
	return rc, nil
}

func (d *Driver) rebootStep(manual bool) StepFunc {
	return func(ctx context.Context, rc RunContext) (RunContext, error) {
		_, err := d.EnterSystem(ctx, manual)
		return rc, err
	}
}

func (d *Driver) waitHostUpStep(ctx context.Context, rc RunContext) (RunContext, error) {
	return rc, d.WaitHostUp(ctx, rc)
}

func (d *Driver) cockpitStep(ctx context.Context, rc RunContext) (RunContext, error) {
	return rc, d.CheckCockpit(ctx, rc.Host.Address)
}

func (d *Driver) registerStep(vlan bool) StepFunc {
	return func(ctx context.Context, rc RunContext) (RunContext, error) {
		return d.Register(ctx, rc, vlan)
	}
}
