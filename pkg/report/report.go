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

package report

import (
	"time"

	"github.com/hostqe/upgradecheck/pkg/errors"
	"github.com/hostqe/upgradecheck/pkg/header"
	"github.com/hostqe/upgradecheck/pkg/snapshotter"
	"github.com/hostqe/upgradecheck/pkg/verifier"
)

// Status is the overall outcome of a run.
type Status string

const (
	// StatusPassed means the upgrade ran and every case passed.
	StatusPassed Status = "passed"

	// StatusFailed means the upgrade ran and at least one case failed.
	StatusFailed Status = "failed"

	// StatusError means the run stopped before cases could be evaluated.
	StatusError Status = "error"
)

// CaseStatus is the outcome of one case.
type CaseStatus string

const (
	CaseStatusPassed CaseStatus = "passed"
	CaseStatusFailed CaseStatus = "failed"
)

// CaseResult records a single case.
type CaseResult struct {
	Name     string           `json:"name" yaml:"name"`
	Status   CaseStatus       `json:"status" yaml:"status"`
	Code     errors.ErrorCode `json:"code,omitempty" yaml:"code,omitempty"`
	Message  string           `json:"message,omitempty" yaml:"message,omitempty"`
	Duration time.Duration    `json:"duration" yaml:"duration"`
}

// Report is the document written at the end of a run.
type Report struct {
	header.Header `json:",inline" yaml:",inline"`

	RunID    string `json:"runId" yaml:"runId"`
	Strategy string `json:"strategy" yaml:"strategy"`
	Source   string `json:"source" yaml:"source"`
	Target   string `json:"target" yaml:"target"`
	Host     string `json:"host" yaml:"host"`

	Status Status `json:"status" yaml:"status"`

	// Error is set when Status is StatusError.
	Error string           `json:"error,omitempty" yaml:"error,omitempty"`
	Code  errors.ErrorCode `json:"code,omitempty" yaml:"code,omitempty"`

	StartTime time.Time `json:"startTime" yaml:"startTime"`
	EndTime   time.Time `json:"endTime" yaml:"endTime"`

	Cases []CaseResult `json:"cases,omitempty" yaml:"cases,omitempty"`

	// Verification accumulates the verifier results of every snapshot case.
	Verification *verifier.Result `json:"verification,omitempty" yaml:"verification,omitempty"`

	Old *snapshotter.Snapshot `json:"old,omitempty" yaml:"old,omitempty"`
	New *snapshotter.Snapshot `json:"new,omitempty" yaml:"new,omitempty"`
}

// New returns a report for a run that starts now.
func New(runID, version string) *Report {
	r := &Report{
		RunID:     runID,
		StartTime: time.Now().UTC(),
	}
	r.Init(header.KindRunReport, version, header.WithRunID(runID))
	return r
}

// AddCase records the outcome of a case. A nil err is a pass.
func (r *Report) AddCase(name string, err error, d time.Duration) CaseResult {
	c := CaseResult{
		Name:     name,
		Status:   CaseStatusPassed,
		Duration: d,
	}
	if err != nil {
		c.Status = CaseStatusFailed
		c.Code = errors.CodeOf(err)
		c.Message = err.Error()
	}
	r.Cases = append(r.Cases, c)
	return c
}

// AddVerification merges a verifier result into the report.
func (r *Report) AddVerification(res *verifier.Result) {
	if res == nil {
		return
	}
	if r.Verification == nil {
		r.Verification = res
		return
	}
	r.Verification.Merge(res)
}

// Finish sets the end time and the overall status. A non-nil err marks the
// run as errored regardless of cases.
func (r *Report) Finish(err error) {
	r.EndTime = time.Now().UTC()

	if err != nil {
		r.Status = StatusError
		r.Error = err.Error()
		r.Code = errors.CodeOf(err)
		return
	}

	r.Status = StatusPassed
	if len(r.FailedCases()) > 0 {
		r.Status = StatusFailed
	}
}

// Passed reports whether the run finished with every case passing.
func (r *Report) Passed() bool {
	return r.Status == StatusPassed
}

// FailedCases returns the cases that did not pass, in run order.
func (r *Report) FailedCases() []CaseResult {
	var out []CaseResult
	for _, c := range r.Cases {
		if c.Status != CaseStatusPassed {
			out = append(out, c)
		}
	}
	return out
}

// Duration returns the wall time of the run, or zero if it has not finished.
func (r *Report) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}
