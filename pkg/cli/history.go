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
	"errors"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/hostqe/upgradecheck/pkg/history"
	"github.com/hostqe/upgradecheck/pkg/report"
)

func historyCmd() *cli.Command {
	return &cli.Command{
		Name:                  "history",
		EnableShellCompletion: true,
		Usage:                 "List and show past runs",
		Description: `Query the run history database written by "upgradecheck run" when
history-path is configured.

# Examples

List the last failed yum_update runs of a host:
  upgradecheck history list --host 10.66.8.150 --strategy yum_update --status failed

Show the full report of one run:
  upgradecheck history show 3f0c9a56-7d0e-4d55-9d5b-0c1e2f6a8b11 -o report.yaml`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "db",
				Usage: "history database path (default: history-path from config)",
			},
		},
		Commands: []*cli.Command{
			historyListCmd(),
			historyShowCmd(),
		},
	}
}

func historyListCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List runs, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "only runs against this host"},
			&cli.StringFlag{Name: "strategy", Usage: "only runs with this strategy"},
			&cli.StringFlag{Name: "status", Usage: "only runs with this status (passed, failed, error)"},
			&cli.IntFlag{Name: "limit", Usage: "maximum number of runs", Value: 20},
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}

			return withHistory(ctx, cmd, func(store *history.Store) error {
				runs, err := store.List(ctx, history.Filter{
					Host:     cmd.String("host"),
					Strategy: cmd.String("strategy"),
					Status:   report.Status(cmd.String("status")),
					Limit:    int(cmd.Int("limit")),
				})
				if err != nil {
					return err
				}
				return writeDocument(ctx, outFormat, cmd.String("output"), runs)
			})
		},
	}
}

func historyShowCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show the report of one run",
		ArgsUsage: "RUN_ID",
		Flags: []cli.Flag{
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}

			runID := cmd.Args().First()
			if runID == "" {
				return errors.New("run ID is required")
			}

			return withHistory(ctx, cmd, func(store *history.Store) error {
				rep, err := store.Get(ctx, runID)
				if err != nil {
					return err
				}
				return writeDocument(ctx, outFormat, cmd.String("output"), rep)
			})
		},
	}
}

func withHistory(ctx context.Context, cmd *cli.Command, fn func(*history.Store) error) error {
	path := cmd.String("db")
	if path == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path = cfg.HistoryPath
	}
	if path == "" {
		return errors.New("no history database: set --db or history-path")
	}

	store, err := history.Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			slog.Warn("failed to close history", "error", cerr)
		}
	}()
	return fn(store)
}
