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

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/hostqe/upgradecheck/pkg/config"
	"github.com/hostqe/upgradecheck/pkg/logging"
)

const (
	name           = "upgradecheck"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags
	buildVersion = versionDefault
	commit       = "unknown"
	date         = "unknown"
)

// Execute runs the command line and exits non-zero on failure.
// This is called by main.main().
func Execute() {
	// LOG_LEVEL governs anything logged before the root Before hook applies --log-level.
	logging.SetDefaultStructuredLogger(name, buildVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().Run(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cli.Command {
	return &cli.Command{
		Name:                  name,
		EnableShellCompletion: true,
		Usage:                 "Host image upgrade verification harness",
		Version:               fmt.Sprintf("%s (commit: %s, built: %s)", buildVersion, commit, date),
		Description: `upgradecheck drives an in-place upgrade of a virtualization host image and
verifies that the host state after the upgrade is consistent with the state
before it.

  run       - register the host, upgrade it, verify it and deregister it
  snapshot  - capture the host state command battery to a file
  verify    - compare two captured snapshots offline
  history   - list and show past runs
  cases     - list the available cases`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "config file (default is ./upgradecheck.yaml or $HOME/.upgradecheck/upgradecheck.yaml)",
				Sources: cli.EnvVars("UPGRADECHECK_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "metrics-file",
				Usage: "write Prometheus metrics in text format to this file on exit",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logLevel := cmd.String("log-level")
			logging.SetDefaultStructuredLoggerWithLevel(name, buildVersion, logLevel)
			slog.Debug("starting",
				"name", name,
				"version", buildVersion,
				"commit", commit,
				"date", date,
				"logLevel", logLevel)
			return ctx, nil
		},
		After: func(_ context.Context, cmd *cli.Command) error {
			return writeMetrics(cmd.String("metrics-file"))
		},
		Commands: []*cli.Command{
			runCmd(),
			snapshotCmd(),
			verifyCmd(),
			historyCmd(),
			casesCmd(),
		},
	}
}

func writeMetrics(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics to %q: %w", path, err)
	}
	slog.Debug("metrics written", "path", path)
	return nil
}

// loadConfig reads the config file named by --config and validates it.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
