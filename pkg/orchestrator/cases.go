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

package orchestrator

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hostqe/upgradecheck/pkg/errors"
	"github.com/hostqe/upgradecheck/pkg/remote"
	"github.com/hostqe/upgradecheck/pkg/upgrade"
	"github.com/hostqe/upgradecheck/pkg/verifier"
)

// Case names.
const (
	CasePackages       = "packages_check"
	CaseBasicUpgrade   = "basic_upgrade_check"
	CaseSettings       = "settings_check"
	CaseCmds           = "cmds_check"
	CaseSigned         = "signed_check"
	CaseKernelSpaceRPM = "knl_space_rpm_check"
	CaseUserSpaceRPM   = "usr_space_rpm_check"
	CaseRollBack       = "roll_back_check"
	CaseCannotUpdate   = "cannot_update_check"
	CaseCannotInstall  = "cannot_install_check"
)

const (
	rollbackCommand     = "imgbase rollback"
	yumUpdateCommand    = "yum update"
	noUpdatesMarker     = "No packages marked for update"
	nothingToDoMarker   = "Nothing to do"
	yumInstallCmdPrefix = "yum install "
)

type caseFunc func(ctx context.Context, o *Orchestrator, rs *runState) error

var registry = map[string]caseFunc{
	CasePackages:       groupCase(verifier.GroupPackages),
	CaseBasicUpgrade:   basicUpgradeCase,
	CaseSettings:       settingsCase,
	CaseCmds:           groupCase(verifier.GroupCmds),
	CaseSigned:         signedCase,
	CaseKernelSpaceRPM: kernelSpaceCase,
	CaseUserSpaceRPM:   userSpaceCase,
	CaseRollBack:       rollBackCase,
	CaseCannotUpdate:   cannotUpdateCase,
	CaseCannotInstall:  cannotInstallCase,
}

// Cases returns every known case name, sorted.
func Cases() []string {
	return []string{
		CaseBasicUpgrade,
		CaseCannotInstall,
		CaseCannotUpdate,
		CaseCmds,
		CaseKernelSpaceRPM,
		CasePackages,
		CaseRollBack,
		CaseSettings,
		CaseSigned,
		CaseUserSpaceRPM,
	}
}

// DefaultCases returns the cases run after an upgrade with strategy s.
// The rollback case changes the running layer and is always last.
func DefaultCases(s upgrade.Strategy) []string {
	switch s {
	case upgrade.StrategyYumUpdate:
		return []string{
			CasePackages, CaseBasicUpgrade, CaseSettings, CaseCmds, CaseSigned,
			CaseKernelSpaceRPM, CaseUserSpaceRPM, CaseCannotUpdate, CaseRollBack,
		}
	case upgrade.StrategyYumInstall:
		return []string{
			CasePackages, CaseBasicUpgrade, CaseCmds, CaseSigned, CaseCannotInstall, CaseRollBack,
		}
	case upgrade.StrategyRhvmUpgrade:
		return []string{
			CasePackages, CaseBasicUpgrade, CaseCmds, CaseSigned, CaseRollBack,
		}
	default:
		return nil
	}
}

// ValidateCases returns an error naming every unknown case.
func ValidateCases(names []string) error {
	var unknown []string
	for _, n := range names {
		if _, ok := registry[n]; !ok {
			unknown = append(unknown, n)
		}
	}
	if len(unknown) > 0 {
		return errors.NewWithContext(errors.ErrCodeInvalidRequest, "unknown cases: "+strings.Join(unknown, ", "),
			map[string]any{"known": Cases()})
	}
	return nil
}

func (o *Orchestrator) runCase(ctx context.Context, name string, rs *runState) error {
	fn, ok := registry[name]
	if !ok {
		return errors.NewWithContext(errors.ErrCodeInvalidRequest, "unknown case", map[string]any{"case": name})
	}
	return fn(ctx, o, rs)
}

func groupCase(group string) caseFunc {
	return func(ctx context.Context, o *Orchestrator, rs *runState) error {
		return o.verifyGroup(ctx, rs, group)
	}
}

func (o *Orchestrator) verifyGroup(ctx context.Context, rs *runState, group string) error {
	res, err := o.verifier.VerifyGroup(ctx, rs.input(), group)
	if err != nil {
		return err
	}
	rs.report.AddVerification(res)

	failures := res.Failures()
	if len(failures) == 0 {
		return nil
	}
	names := make([]string, 0, len(failures))
	for _, f := range failures {
		names = append(names, f.Name)
	}
	return errors.NewWithContext(failures[0].Code,
		fmt.Sprintf("%s checks failed: %s", group, strings.Join(names, ", ")),
		map[string]any{"failed": names})
}

// basicUpgradeCase adds the live cockpit and engine status checks to the
// basic group. Every part runs even if an earlier one fails.
func basicUpgradeCase(ctx context.Context, o *Orchestrator, rs *runState) error {
	return stderrors.Join(
		o.verifyGroup(ctx, rs, verifier.GroupBasic),
		o.driver.CheckCockpit(ctx, rs.rc.Host.Address),
		o.driver.WaitHostUp(ctx, rs.rc),
	)
}

func settingsCase(ctx context.Context, o *Orchestrator, _ *runState) error {
	return o.driver.CheckMarkerFiles(ctx)
}

func signedCase(ctx context.Context, o *Orchestrator, rs *runState) error {
	out, err := o.exec(ctx, verifier.SignedQueryCommand)
	if err != nil {
		return err
	}
	return verifier.CheckSignedPackages(out, rs.rc.Target)
}

func kernelSpaceCase(ctx context.Context, o *Orchestrator, rs *runState) error {
	return o.driver.CheckKernelSpaceRPM(ctx, rs.rc)
}

func userSpaceCase(ctx context.Context, o *Orchestrator, rs *runState) error {
	return o.driver.CheckUserSpaceRPM(ctx, rs.rc)
}

// rollBackCase switches the host back to the previous layer, reboots, and
// expects the pre-upgrade build with its state intact.
func rollBackCase(ctx context.Context, o *Orchestrator, rs *runState) error {
	if _, err := o.exec(ctx, rollbackCommand); err != nil {
		return err
	}

	current, err := o.driver.EnterSystem(ctx, true)
	if err != nil {
		return err
	}
	if want := strings.TrimSpace(rs.old.ImgbaseW); strings.TrimSpace(current) != want {
		slog.Error("rollback did not restore the old layer", "want", want, "got", current)
		return errors.NewWithContext(errors.ErrCodeCheckFailed, "rollback did not restore the old layer",
			map[string]any{"want": want, "got": current})
	}

	if err := o.driver.WaitHostUp(ctx, rs.rc); err != nil {
		return err
	}
	if rs.rc.KernelSpaceRPM != "" {
		if err := o.driver.CheckKernelSpaceRPM(ctx, rs.rc); err != nil {
			return err
		}
	}
	if rs.rc.UserSpaceBaseline != "" {
		if err := o.driver.CheckUserSpaceRPM(ctx, rs.rc); err != nil {
			return err
		}
	}
	return nil
}

func cannotUpdateCase(ctx context.Context, o *Orchestrator, _ *runState) error {
	ok, out, err := remote.OutputContains(ctx, o.driver.Session(), yumUpdateCommand,
		o.driver.Settings().CommandTimeout, noUpdatesMarker)
	if err != nil {
		return err
	}
	if !ok {
		slog.Error("host still offers updates", "output", out)
		return errors.NewWithContext(errors.ErrCodeCheckFailed, "host still offers updates",
			map[string]any{"output": out})
	}
	return nil
}

// cannotInstallCase expects reinstalling the update package to be refused.
func cannotInstallCase(ctx context.Context, o *Orchestrator, rs *runState) error {
	if rs.rc.UpdateRPMPath == "" {
		return errors.New(errors.ErrCodeInvalidRequest, "no update package fetched in this run")
	}
	out, err := o.exec(ctx, yumInstallCmdPrefix+rs.rc.UpdateRPMPath)
	if err == nil || !strings.Contains(out, nothingToDoMarker) {
		slog.Error("update package was not refused", "output", out, "error", err)
		return errors.NewWithContext(errors.ErrCodeCheckFailed, "update package was not refused",
			map[string]any{"output": out})
	}
	return nil
}
