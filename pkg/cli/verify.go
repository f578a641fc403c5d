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
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/hostqe/upgradecheck/pkg/errors"
	"github.com/hostqe/upgradecheck/pkg/snapshotter"
	"github.com/hostqe/upgradecheck/pkg/verifier"
	"github.com/hostqe/upgradecheck/pkg/version"
)

func verifyCmd() *cli.Command {
	return &cli.Command{
		Name:                  "verify",
		EnableShellCompletion: true,
		Usage:                 "Compare two host snapshots",
		Description: fmt.Sprintf(`Compare the snapshot captured before an upgrade with the one captured after
it. Every check runs; the result lists the outcome of each.

# Check Groups

  %s

# Examples

Verify all groups:
  upgradecheck verify --old old.yaml --new new.yaml \
    --source redhat-virtualization-host-4.1-20170421.0 \
    --target redhat-virtualization-host-4.1-20170522.0

Verify only the volume and mount checks and fail on any mismatch:
  upgradecheck verify --old old.yaml --new new.yaml --source ... --target ... \
    --group cmds --fail-on-error`, strings.Join(verifier.Groups(), ", ")),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "old",
				Usage:    "snapshot captured before the upgrade",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "new",
				Usage:    "snapshot captured after the upgrade",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "source",
				Usage:    "build installed before the upgrade",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "target",
				Usage:    "build upgraded to",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "group",
				Usage: "check group to run, can be repeated (default: all)",
			},
			&cli.BoolFlag{
				Name:  "fail-on-error",
				Usage: "exit with non-zero status if any check fails",
			},
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}

			in, err := verifyInputFromCmd(cmd)
			if err != nil {
				return err
			}

			v := verifier.New(verifier.WithVersion(buildVersion))

			var result *verifier.Result
			groups := cmd.StringSlice("group")
			if len(groups) == 0 {
				result, err = v.Verify(ctx, in)
				if err != nil {
					return err
				}
			} else {
				for _, g := range groups {
					res, err := v.VerifyGroup(ctx, in, g)
					if err != nil {
						return err
					}
					if result == nil {
						result = res
						continue
					}
					result.Merge(res)
				}
			}

			if err := writeDocument(ctx, outFormat, cmd.String("output"), result); err != nil {
				return err
			}

			failed := result.Failures()
			if cmd.Bool("fail-on-error") && len(failed) > 0 {
				names := make([]string, 0, len(failed))
				for _, f := range failed {
					names = append(names, f.Name)
				}
				return errors.NewWithContext(failed[0].Code,
					fmt.Sprintf("%d of %d checks failed: %s", len(failed), result.Summary.Total, strings.Join(names, ", ")),
					map[string]any{"failed": names})
			}
			return nil
		},
	}
}

func verifyInputFromCmd(cmd *cli.Command) (verifier.Input, error) {
	var in verifier.Input

	source, err := version.ParseBuild(cmd.String("source"))
	if err != nil {
		return in, fmt.Errorf("invalid --source: %w", err)
	}
	target, err := version.ParseBuild(cmd.String("target"))
	if err != nil {
		return in, fmt.Errorf("invalid --target: %w", err)
	}

	slog.Info("loading snapshots", "old", cmd.String("old"), "new", cmd.String("new"))

	old, err := snapshotter.Load(cmd.String("old"))
	if err != nil {
		return in, err
	}
	updated, err := snapshotter.Load(cmd.String("new"))
	if err != nil {
		return in, err
	}

	return verifier.Input{Old: old, New: updated, Source: source, Target: target}, nil
}
