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
	"time"

	"github.com/hostqe/upgradecheck/pkg/errors"
	"github.com/hostqe/upgradecheck/pkg/header"
)

// Status is the overall verification outcome.
type Status string

const (
	// StatusPass indicates every check passed.
	StatusPass Status = "pass"

	// StatusFail indicates one or more checks failed.
	StatusFail Status = "fail"
)

// CheckStatus is the outcome of a single check.
type CheckStatus string

const (
	CheckStatusPassed CheckStatus = "passed"
	CheckStatusFailed CheckStatus = "failed"
)

// Result is the complete verification outcome for one pair of snapshots.
type Result struct {
	header.Header `json:",inline" yaml:",inline"`

	// Source and Target are the raw build identifiers compared.
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`

	// LayoutMigration is true when the gated volume and mount checks were active.
	LayoutMigration bool `json:"layoutMigration" yaml:"layoutMigration"`

	// Summary contains aggregate statistics.
	Summary Summary `json:"summary" yaml:"summary"`

	// Results contains per-check details in execution order.
	Results []CheckResult `json:"results" yaml:"results"`
}

// Summary contains aggregate statistics about a verification.
type Summary struct {
	Passed   int           `json:"passed" yaml:"passed"`
	Failed   int           `json:"failed" yaml:"failed"`
	Total    int           `json:"total" yaml:"total"`
	Status   Status        `json:"status" yaml:"status"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// CheckResult is the outcome of one named check.
type CheckResult struct {
	// Name is the check name, e.g. "lvs".
	Name string `json:"name" yaml:"name"`

	// Group is the check group, e.g. "cmds".
	Group string `json:"group" yaml:"group"`

	Status CheckStatus `json:"status" yaml:"status"`

	// Code is the error code of a failed check.
	Code errors.ErrorCode `json:"code,omitempty" yaml:"code,omitempty"`

	// Message describes the mismatch of a failed check.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// Details carries the mismatching values.
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}

// NewResult creates a Result with an initialized Results slice.
func NewResult() *Result {
	return &Result{
		Results: make([]CheckResult, 0),
	}
}

// Passed reports whether every check passed.
func (r *Result) Passed() bool {
	return r != nil && r.Summary.Status == StatusPass
}

// Failures returns the failed checks.
func (r *Result) Failures() []CheckResult {
	var out []CheckResult
	for _, cr := range r.Results {
		if cr.Status == CheckStatusFailed {
			out = append(out, cr)
		}
	}
	return out
}

// Merge appends other's checks to r and recomputes the summary.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Results = append(r.Results, other.Results...)
	r.LayoutMigration = r.LayoutMigration || other.LayoutMigration
	r.Summary.Duration += other.Summary.Duration
	r.summarize()
}

func (r *Result) summarize() {
	r.Summary.Passed, r.Summary.Failed = 0, 0
	for _, cr := range r.Results {
		switch cr.Status {
		case CheckStatusPassed:
			r.Summary.Passed++
		case CheckStatusFailed:
			r.Summary.Failed++
		}
	}
	r.Summary.Total = len(r.Results)
	r.Summary.Status = StatusPass
	if r.Summary.Failed > 0 {
		r.Summary.Status = StatusFail
	}
}
