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

	"github.com/urfave/cli/v3"

	"github.com/hostqe/upgradecheck/pkg/config"
	"github.com/hostqe/upgradecheck/pkg/defaults"
	"github.com/hostqe/upgradecheck/pkg/errors"
	"github.com/hostqe/upgradecheck/pkg/history"
	"github.com/hostqe/upgradecheck/pkg/orchestrator"
	"github.com/hostqe/upgradecheck/pkg/publish"
	"github.com/hostqe/upgradecheck/pkg/report"
	"github.com/hostqe/upgradecheck/pkg/upgrade"
	"github.com/hostqe/upgradecheck/pkg/version"
)

func runCmd() *cli.Command {
	return &cli.Command{
		Name:                  "run",
		EnableShellCompletion: true,
		Usage:                 "Upgrade a host and verify it",
		Description: `Register the host with the management engine for its source stream, upgrade
it with the strategy named by the upgrade definition, verify the host state
against the state captured before the upgrade and deregister it.

The host is always deregistered, also when a step fails. The run report is
written to --output and a summary is printed to stderr. The command exits
non-zero unless every case passed.

# Strategies

  yum_update    - yum update from the image repository
  yum_install   - yum install of a fetched image-update package
  rhvm_upgrade  - upgrade triggered by the management engine

# Examples

Upgrade with yum update:
  upgradecheck run --host 10.66.8.150 --password redhat \
    --machine-name dell-per510-01.lab.example.com \
    --source redhat-virtualization-host-4.1-20170421.0 \
    --target redhat-virtualization-host-4.1-20170522.0 \
    --definition ati_upgrade_yum_update.ks

Run only selected cases and keep a JSON report:
  upgradecheck run ... --case packages_check --case roll_back_check \
    --format json --output report.json`,
		Flags: []cli.Flag{
			hostFlag(),
			passwordFlag(),
			&cli.StringFlag{
				Name:  "machine-name",
				Usage: "lab inventory name of the host, used to name engine objects",
			},
			&cli.StringFlag{
				Name:     "source",
				Usage:    "build installed on the host before the upgrade",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "target",
				Usage:    "build the host is upgraded to",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "definition",
				Usage: "upgrade definition name; the strategy is derived from it",
			},
			&cli.StringFlag{
				Name:  "strategy",
				Usage: "upgrade strategy, overrides --definition",
			},
			&cli.StringSliceFlag{
				Name:  "case",
				Usage: "case to run, can be repeated (default: per-strategy list)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "bound for the whole run",
				Value: defaults.CLIRunTimeout,
			},
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			strategy, err := strategyFromCmd(cmd)
			if err != nil {
				return err
			}

			source, err := version.ParseBuild(cmd.String("source"))
			if err != nil {
				return fmt.Errorf("invalid --source: %w", err)
			}
			target, err := version.ParseBuild(cmd.String("target"))
			if err != nil {
				return fmt.Errorf("invalid --target: %w", err)
			}

			host := upgrade.HostTarget{
				Address:     cmd.String("host"),
				Password:    cmd.String("password"),
				MachineName: cmd.String("machine-name"),
			}

			session, err := newSession(cfg, host.Address, host.Password)
			if err != nil {
				return err
			}
			defer session.Disconnect()

			cases := cmd.StringSlice("case")
			if len(cases) == 0 {
				cases = cfg.Cases
			}

			opts := []orchestrator.Option{orchestrator.WithVersion(buildVersion)}
			if len(cases) > 0 {
				opts = append(opts, orchestrator.WithCases(cases...))
			}

			driver := upgrade.NewDriver(session, managerFactory(cfg), upgrade.WithSettings(cfg.Settings()))

			runCtx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
			defer cancel()

			slog.Info("starting run",
				"host", host.Address,
				"strategy", strategy,
				"source", source.String(),
				"target", target.String())

			rep := orchestrator.New(driver, opts...).Run(runCtx, upgrade.NewRunContext(host, source, target, strategy))

			if err := writeDocument(ctx, outFormat, cmd.String("output"), rep); err != nil {
				return err
			}
			if err := rep.WriteSummary(os.Stderr); err != nil {
				slog.Warn("failed to print summary", "error", err)
			}

			recordRun(context.WithoutCancel(ctx), cfg, rep)

			return runError(rep)
		},
	}
}

// strategyFromCmd reads --strategy, falling back to the strategy named by --definition.
func strategyFromCmd(cmd *cli.Command) (upgrade.Strategy, error) {
	if s := cmd.String("strategy"); s != "" {
		strategy := upgrade.Strategy(s)
		if !strategy.IsValid() {
			return "", errors.NewWithContext(errors.ErrCodeInvalidRequest, "unknown strategy",
				map[string]any{"strategy": s})
		}
		return strategy, nil
	}
	if d := cmd.String("definition"); d != "" {
		return upgrade.StrategyFromDefinition(d)
	}
	return "", errors.New(errors.ErrCodeInvalidRequest, "one of --definition or --strategy is required")
}

// recordRun stores the report in the run history and publishes it. Failures
// are logged; they never change the outcome of the run.
func recordRun(ctx context.Context, cfg *config.Config, rep *report.Report) {
	if cfg.HistoryPath != "" {
		if err := saveHistory(ctx, cfg.HistoryPath, rep); err != nil {
			slog.Error("failed to record run history", "path", cfg.HistoryPath, "error", err)
		}
	}

	var pubs []publish.Publisher
	if cfg.S3Enabled() {
		s3, err := publish.NewS3(ctx, cfg.S3())
		if err != nil {
			slog.Error("failed to create artifact publisher", "error", err)
		} else {
			pubs = append(pubs, s3)
		}
	}
	if cfg.NATSEnabled() {
		nc, err := publish.NewNATS(cfg.NATS())
		if err != nil {
			slog.Error("failed to create event publisher", "error", err)
		} else {
			defer nc.Close()
			pubs = append(pubs, nc)
		}
	}
	if len(pubs) == 0 {
		return
	}
	if err := publish.All(ctx, rep, pubs...); err != nil {
		slog.Error("failed to publish run", "runId", rep.RunID, "error", err)
	}
}

func saveHistory(ctx context.Context, path string, rep *report.Report) error {
	store, err := history.Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			slog.Warn("failed to close history", "error", cerr)
		}
	}()
	return store.Record(ctx, rep)
}

// runError converts a report that did not pass into a command error.
func runError(rep *report.Report) error {
	if rep.Passed() {
		return nil
	}
	code := rep.Code
	if code == "" {
		code = errors.ErrCodeCheckFailed
	}
	msg := fmt.Sprintf("run %s %s", rep.RunID, rep.Status)
	if failed := rep.FailedCases(); len(failed) > 0 {
		msg = fmt.Sprintf("%s: %d of %d cases failed", msg, len(failed), len(rep.Cases))
	}
	return errors.NewWithContext(code, msg, map[string]any{"runId": rep.RunID})
}
