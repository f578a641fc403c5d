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
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/hostqe/upgradecheck/pkg/errors"
	"github.com/hostqe/upgradecheck/pkg/report"
	"github.com/hostqe/upgradecheck/pkg/snapshotter"
	"github.com/hostqe/upgradecheck/pkg/upgrade"
	"github.com/hostqe/upgradecheck/pkg/verifier"
)

// Orchestrator runs one upgrade end to end and produces its report.
type Orchestrator struct {
	driver      *upgrade.Driver
	verifier    *verifier.Verifier
	snapshotter snapshotter.Snapshotter
	cases       []string
	version     string
	newRunID    func() string
}

// Option is a functional option for configuring an Orchestrator.
type Option func(*Orchestrator)

// WithCases overrides the per-strategy default cases.
func WithCases(names ...string) Option {
	return func(o *Orchestrator) {
		o.cases = names
	}
}

// WithVersion sets the harness version written into documents.
func WithVersion(version string) Option {
	return func(o *Orchestrator) {
		o.version = version
	}
}

// WithSnapshotter replaces the SSH snapshot collector.
func WithSnapshotter(s snapshotter.Snapshotter) Option {
	return func(o *Orchestrator) {
		o.snapshotter = s
	}
}

// New returns an Orchestrator that drives the host behind driver.
func New(driver *upgrade.Driver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		driver:   driver,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.verifier = verifier.New(verifier.WithVersion(o.version))
	return o
}

type runState struct {
	rc     upgrade.RunContext
	old    *snapshotter.Snapshot
	new    *snapshotter.Snapshot
	report *report.Report
}

func (rs *runState) input() verifier.Input {
	return verifier.Input{
		Old:    rs.old,
		New:    rs.new,
		Source: rs.rc.Source,
		Target: rs.rc.Target,
	}
}

// Run drives the upgrade described by rc and evaluates its cases. It never
// returns an error: failures, including panics, end up in the report status.
// Engine objects created during the run are always removed, even when ctx is
// canceled.
func (o *Orchestrator) Run(ctx context.Context, rc upgrade.RunContext) (rep *report.Report) {
	rep = report.New(o.newRunID(), o.version)
	rep.Strategy = rc.Strategy.String()
	rep.Source = rc.Source.String()
	rep.Target = rc.Target.String()
	rep.Host = rc.Host.Address

	rs := &runState{rc: rc, report: rep}
	log := slog.With("run", rep.RunID, "host", rep.Host, "strategy", rep.Strategy)
	log.Info("starting upgrade run", "source", rep.Source, "target", rep.Target)

	defer func() {
		if r := recover(); r != nil {
			log.Error("run panicked", "panic", r, "stack", string(debug.Stack()))
			rep.Finish(errors.NewWithContext(errors.ErrCodeInternal, fmt.Sprintf("run panicked: %v", r), nil))
		}

		o.driver.Teardown(context.WithoutCancel(ctx), rs.rc)

		runsTotal.WithLabelValues(rep.Strategy, string(rep.Status)).Inc()
		runDuration.WithLabelValues(rep.Strategy).Observe(rep.Duration().Seconds())
		log.Info("upgrade run finished", "status", rep.Status, "duration", rep.Duration())
	}()

	err := o.run(ctx, rs)
	if err != nil {
		log.Error("upgrade run failed", "error", err)
	}
	rep.Finish(err)
	return rep
}

func (o *Orchestrator) run(ctx context.Context, rs *runState) error {
	if !rs.rc.Strategy.IsValid() {
		return errors.NewWithContext(errors.ErrCodeInvalidRequest, "unknown upgrade strategy",
			map[string]any{"strategy": rs.rc.Strategy.String()})
	}
	cases := o.cases
	if len(cases) == 0 {
		cases = DefaultCases(rs.rc.Strategy)
	}
	if err := ValidateCases(cases); err != nil {
		return err
	}

	// a stale connection may point at a previous install of the same machine
	o.driver.Session().Disconnect()

	snap := o.collector(rs.rc)

	old, err := snap.Collect(ctx, snapshotter.TagOld)
	if err != nil {
		return err
	}
	rs.old = old
	rs.report.Old = old

	rs.rc, err = o.driver.Run(ctx, rs.rc)
	if err != nil {
		return err
	}

	newSnap, err := snap.Collect(ctx, snapshotter.TagNew)
	if err != nil {
		return err
	}
	rs.new = newSnap
	rs.report.New = newSnap

	for _, name := range cases {
		start := time.Now()
		cerr := o.runCase(ctx, name, rs)
		c := rs.report.AddCase(name, cerr, time.Since(start))
		caseTotal.WithLabelValues(name, string(c.Status)).Inc()
		if cerr != nil {
			slog.Error("case failed", "case", name, "error", cerr)
		} else {
			slog.Info("case passed", "case", name)
		}
	}
	return nil
}

func (o *Orchestrator) collector(rc upgrade.RunContext) snapshotter.Snapshotter {
	if o.snapshotter != nil {
		return o.snapshotter
	}
	return &snapshotter.Collector{
		Runner:  o.driver.Session(),
		Host:    rc.Host.Address,
		Version: o.version,
		Timeout: o.driver.Settings().CommandTimeout,
	}
}

func (o *Orchestrator) exec(ctx context.Context, cmd string) (string, error) {
	return o.driver.Session().Run(ctx, cmd, o.driver.Settings().CommandTimeout)
}
