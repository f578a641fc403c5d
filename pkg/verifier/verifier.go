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
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/hostqe/upgradecheck/pkg/errors"
	"github.com/hostqe/upgradecheck/pkg/header"
)

// Check names.
const (
	CheckImgbasedVersionName = "imgbased-version"
	CheckUpdateVersionName   = "update-version"
	CheckImgbaseWName        = "imgbase-w"
	CheckImgbaseLayoutName   = "imgbase-layout"
	CheckInitiatorNameName   = "initiator-name"
	CheckLVSName             = "lvs"
	CheckFindmntName         = "findmnt"
)

// Check groups.
const (
	GroupPackages = "packages"
	GroupBasic    = "basic"
	GroupCmds     = "cmds"
)

// Check is a named pure comparison of two snapshots.
type Check struct {
	Name  string
	Group string
	Fn    func(Input) error
}

var registry = []Check{
	{CheckImgbasedVersionName, GroupPackages, CheckImgbasedVersion},
	{CheckUpdateVersionName, GroupPackages, CheckUpdateVersion},
	{CheckImgbaseWName, GroupBasic, CheckImgbaseW},
	{CheckImgbaseLayoutName, GroupBasic, CheckImgbaseLayout},
	{CheckInitiatorNameName, GroupBasic, CheckInitiatorName},
	{CheckLVSName, GroupCmds, CheckLVS},
	{CheckFindmntName, GroupCmds, CheckFindmnt},
}

// Checks returns every snapshot check in execution order.
func Checks() []Check {
	out := make([]Check, len(registry))
	copy(out, registry)
	return out
}

// Groups returns the check group names in execution order.
func Groups() []string {
	return []string{GroupPackages, GroupBasic, GroupCmds}
}

// ChecksInGroup returns the checks of one group.
func ChecksInGroup(group string) []Check {
	var out []Check
	for _, c := range registry {
		if c.Group == group {
			out = append(out, c)
		}
	}
	return out
}

// Verifier runs snapshot checks and aggregates their outcomes.
type Verifier struct {
	// Version is written into the result header.
	Version string
}

// Option is a functional option for configuring Verifier instances.
type Option func(*Verifier)

// WithVersion sets the Verifier version string.
func WithVersion(version string) Option {
	return func(v *Verifier) {
		v.Version = version
	}
}

// New creates a new Verifier with the provided options.
func New(opts ...Option) *Verifier {
	v := &Verifier{}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify runs every check against in. A failing check does not stop the
// others; the result lists each outcome.
func (v *Verifier) Verify(ctx context.Context, in Input) (*Result, error) {
	return v.run(ctx, in, registry)
}

// VerifyGroup runs the checks of a single group.
func (v *Verifier) VerifyGroup(ctx context.Context, in Input, group string) (*Result, error) {
	checks := ChecksInGroup(group)
	if len(checks) == 0 {
		return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest, "unknown check group",
			map[string]any{"group": group})
	}
	return v.run(ctx, in, checks)
}

func (v *Verifier) run(ctx context.Context, in Input, checks []Check) (*Result, error) {
	start := time.Now()

	if err := in.validate(); err != nil {
		return nil, err
	}

	result := NewResult()
	result.Init(header.KindVerificationResult, v.Version, header.WithHost(in.Old.Host))
	result.Source = in.Source.String()
	result.Target = in.Target.String()
	result.LayoutMigration = in.LayoutMigration()

	for _, c := range checks {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(errors.ErrCodeTimeout, "verification canceled", ctx.Err())
		default:
		}

		cr := evaluate(c, in)
		checkTotal.WithLabelValues(c.Name, string(cr.Status)).Inc()
		result.Results = append(result.Results, cr)
	}

	result.summarize()
	result.Summary.Duration = time.Since(start)

	slog.Info("verification complete",
		"passed", result.Summary.Passed,
		"failed", result.Summary.Failed,
		"status", result.Summary.Status)

	return result, nil
}

// evaluate runs one check and converts its error into a CheckResult.
func evaluate(c Check, in Input) CheckResult {
	cr := CheckResult{Name: c.Name, Group: c.Group, Status: CheckStatusPassed}

	err := c.Fn(in)
	if err == nil {
		return cr
	}

	cr.Status = CheckStatusFailed
	cr.Code = errors.CodeOf(err)
	cr.Message = err.Error()

	var se *errors.StructuredError
	if stderrors.As(err, &se) && len(se.Context) > 0 {
		cr.Details = make(map[string]any, len(se.Context))
		for k, val := range se.Context {
			cr.Details[k] = val
		}
	}
	return cr
}
