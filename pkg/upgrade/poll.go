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
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/hostqe/upgradecheck/pkg/errors"
	"github.com/hostqe/upgradecheck/pkg/rhvm"
	"k8s.io/apimachinery/pkg/util/wait"
)

// errHostNotBack ends the reboot wait once every attempt has failed.
var errHostNotBack = stderrors.New("host did not come back")

// WaitHostUp polls the engine until the registered host reports "up". An
// unregistered context passes immediately. A client error ends the wait.
func (d *Driver) WaitHostUp(ctx context.Context, rc RunContext) error {
	if !rc.Registered() {
		return nil
	}
	name := rc.Registration.HostName
	maxCount := d.settings.HostStatusMaxCount
	backoff := wait.Backoff{Duration: d.settings.HostStatusInterval, Factor: 1, Steps: maxCount}

	var last string
	attempt := 0
	err := wait.ExponentialBackoffWithContext(ctx, backoff, func(ctx context.Context) (bool, error) {
		attempt++
		pollAttempts.WithLabelValues("host-status").Inc()
		h, err := rc.Manager.ListHost(ctx, name)
		if err != nil {
			return false, errors.WrapWithContext(errors.ErrCodeManagementAPI, "failed to query host status", err,
				map[string]any{"host": name})
		}
		last = h.Status
		if last == rhvm.StatusUp {
			slog.Info("host is up on engine", "host", name, "attempt", attempt)
			return true, nil
		}
		slog.Debug("host not up yet", "host", name, "status", last, "attempt", attempt)
		return false, nil
	})
	switch {
	case err == nil:
		return nil
	case !wait.Interrupted(err):
		return err
	case ctx.Err() != nil:
		return errors.Wrap(errors.ErrCodeTimeout, "host status wait canceled", ctx.Err())
	}

	slog.Error("host is not up on engine", "host", name, "status", last)
	return errors.NewWithContext(errors.ErrCodeTimeout, "host did not come up on engine",
		map[string]any{"host": name, "status": last, "attempts": maxCount})
}

// EnterSystem waits for the host to come back after a reboot and returns its
// "imgbase w" output. With manual set the reboot is issued first; the engine
// reboots the host itself after an engine-driven upgrade.
func (d *Driver) EnterSystem(ctx context.Context, manual bool) (string, error) {
	slog.Info("waiting for host to come back", "manual_reboot", manual)

	if manual {
		// the connection usually drops before the command returns
		if _, err := d.session.Run(ctx, rebootCommand, d.settings.RebootCommandTimeout); err != nil {
			slog.Debug("reboot command returned error", "error", err)
		}
	}
	d.session.Disconnect()

	maxCount := d.settings.EnterSystemMaxCount
	var (
		out     string
		lastErr error
		attempt int
	)
	// The first attempt also waits one interval so the host has gone down.
	err := wait.PollUntilContextCancel(ctx, d.settings.EnterSystemInterval, false,
		func(ctx context.Context) (bool, error) {
			if attempt >= maxCount {
				return false, errHostNotBack
			}
			attempt++
			pollAttempts.WithLabelValues("enter-system").Inc()
			res, err := d.session.Run(ctx, imgbaseWCommand, d.settings.EnterSystemTimeout)
			if err != nil {
				lastErr = err
				slog.Debug("host not reachable yet", "attempt", attempt, "error", err)
				if attempt >= maxCount {
					return false, errHostNotBack
				}
				return false, nil
			}
			out = res
			slog.Info("host is back", "imgbase_w", out, "attempt", attempt)
			return true, nil
		},
	)
	if err == nil {
		return out, nil
	}
	if !stderrors.Is(err, errHostNotBack) {
		return "", errors.Wrap(errors.ErrCodeTimeout, "reboot wait canceled", err)
	}

	slog.Error("host did not come back", "attempts", maxCount)
	return "", errors.WrapWithContext(errors.ErrCodeTimeout, "host did not come back after reboot", lastErr,
		map[string]any{"attempts": maxCount})
}

// CheckCockpit requires the web console on host to answer with 200.
func (d *Driver) CheckCockpit(ctx context.Context, host string) error {
	url := "http://" + net.JoinHostPort(host, strconv.Itoa(d.settings.CockpitPort))

	reqCtx, cancel := context.WithTimeout(ctx, d.settings.CockpitTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeInvalidRequest, "invalid cockpit url", err,
			map[string]any{"url": url})
	}

	resp, err := d.http.Do(req)
	if err != nil {
		slog.Error("cockpit unreachable", "url", url, "error", err)
		return errors.WrapWithContext(errors.ErrCodeCheckFailed, "cockpit unreachable", err,
			map[string]any{"url": url})
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Debug("failed to close cockpit response", "error", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		slog.Error("cockpit returned unexpected status", "url", url, "status", resp.StatusCode)
		return errors.NewWithContext(errors.ErrCodeCheckFailed, "cockpit returned unexpected status",
			map[string]any{"url": url, "status": resp.StatusCode})
	}
	slog.Info("cockpit reachable", "url", url)
	return nil
}
