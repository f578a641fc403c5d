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
	"log/slog"
	"net/http"
	"time"

	"github.com/hostqe/upgradecheck/pkg/errors"
	"github.com/hostqe/upgradecheck/pkg/remote"
	"github.com/hostqe/upgradecheck/pkg/rhvm"
)

// ManagerFactory returns a management client for the engine at fqdn.
type ManagerFactory func(fqdn string) (rhvm.Manager, error)

// StepFunc performs one pipeline step. On error the returned context still
// carries whatever the step created, so that teardown can remove it.
type StepFunc func(ctx context.Context, rc RunContext) (RunContext, error)

// Step is a named pipeline stage.
type Step struct {
	Name string
	Fn   StepFunc
}

// Driver runs upgrade pipelines against one host session.
type Driver struct {
	session  remote.Session
	managers ManagerFactory
	http     *http.Client
	settings Settings
}

// Option configures a Driver.
type Option func(*Driver)

// WithSettings replaces the default settings.
func WithSettings(s Settings) Option {
	return func(d *Driver) {
		d.settings = s
	}
}

// WithHTTPClient sets the client used for the web console probe.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Driver) {
		d.http = c
	}
}

// NewDriver returns a Driver for session using managers to reach the engine.
func NewDriver(session remote.Session, managers ManagerFactory, opts ...Option) *Driver {
	d := &Driver{
		session:  session,
		managers: managers,
		settings: DefaultSettings(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.http == nil {
		d.http = rhvm.NewHTTPClient(true, d.settings.CockpitTimeout)
	}
	return d
}

// Settings returns the driver settings.
func (d *Driver) Settings() Settings {
	return d.settings
}

// Session returns the remote session the driver runs commands on.
func (d *Driver) Session() remote.Session {
	return d.session
}

// Pipeline returns the ordered steps of strategy.
func (d *Driver) Pipeline(s Strategy) ([]Step, error) {
	switch s {
	case StrategyYumUpdate:
		return []Step{
			{"seed-marker-files", d.seedMarkerFiles},
			{"put-host-repo", d.putRepoStep(HostRepoFile)},
			{"register-host", d.registerStep(false)},
			{"wait-host-up", d.waitHostUpStep},
			{"check-cockpit", d.cockpitStep},
			{"install-rpms", d.installRPMs},
			{"yum-update", d.yumUpdate},
			{"reboot", d.rebootStep(true)},
		}, nil
	case StrategyYumInstall:
		return []Step{
			{"fetch-update-rpm", d.fetchUpdateRPM},
			{"register-host", d.registerStep(false)},
			{"wait-host-up", d.waitHostUpStep},
			{"check-cockpit", d.cockpitStep},
			{"yum-install", d.yumInstall},
			{"reboot", d.rebootStep(true)},
		}, nil
	case StrategyRhvmUpgrade:
		return []Step{
			{"add-route", d.addRoute},
			{"put-host-repo", d.putRepoStep(HostRepoFile)},
			{"register-host", d.registerStep(true)},
			{"wait-host-up", d.waitHostUpStep},
			{"check-cockpit", d.cockpitStep},
			{"engine-upgrade", d.engineUpgrade},
			{"wait-host-back", d.rebootStep(false)},
		}, nil
	default:
		return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest, "unknown upgrade strategy",
			map[string]any{"strategy": string(s)})
	}
}

// Run executes the pipeline of rc.Strategy. The first failing step stops the
// pipeline; the context returned alongside the error reflects every step
// that ran, including the failing one.
func (d *Driver) Run(ctx context.Context, rc RunContext) (RunContext, error) {
	steps, err := d.Pipeline(rc.Strategy)
	if err != nil {
		return rc, err
	}
	return d.runSteps(ctx, rc, steps)
}

func (d *Driver) runSteps(ctx context.Context, rc RunContext, steps []Step) (RunContext, error) {
	strategy := rc.Strategy.String()
	slog.Info("starting upgrade pipeline", "strategy", strategy, "steps", len(steps))

	for i, step := range steps {
		slog.Info("running step", "strategy", strategy, "step", step.Name, "index", i+1)

		start := time.Now()
		next, err := step.Fn(ctx, rc)
		stepDuration.WithLabelValues(strategy, step.Name).Observe(time.Since(start).Seconds())
		rc = next

		if err != nil {
			stepTotal.WithLabelValues(step.Name, "error").Inc()
			slog.Error("step failed", "strategy", strategy, "step", step.Name, "error", err)
			return rc, errors.WrapWithContext(errors.CodeOf(err), "upgrade step "+step.Name+" failed", err,
				map[string]any{"strategy": strategy, "step": step.Name})
		}
		stepTotal.WithLabelValues(step.Name, "success").Inc()
	}

	slog.Info("upgrade pipeline finished", "strategy", strategy)
	return rc, nil
}
