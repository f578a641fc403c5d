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

	"github.com/urfave/cli/v3"

	"github.com/hostqe/upgradecheck/pkg/defaults"
	"github.com/hostqe/upgradecheck/pkg/snapshotter"
)

func snapshotCmd() *cli.Command {
	return &cli.Command{
		Name:                  "snapshot",
		EnableShellCompletion: true,
		Usage:                 "Capture host state",
		Description: `Run the read-only state command battery on a host and write the snapshot:
  - imgbased and image-update package versions
  - imgbase w and imgbase layout
  - iSCSI initiator name
  - logical volumes (lvs)
  - mounts (findmnt)

Two snapshots of the same host, one before and one after an upgrade, can be
compared offline with "upgradecheck verify".

# Examples

Capture the state before an upgrade:
  upgradecheck snapshot --host 10.66.8.150 --password redhat --tag old -o old.yaml

Capture the state after it as JSON:
  upgradecheck snapshot --host 10.66.8.150 --tag new --format json -o new.json`,
		Flags: []cli.Flag{
			hostFlag(),
			passwordFlag(),
			&cli.StringFlag{
				Name:  "tag",
				Usage: "snapshot tag (old, new)",
				Value: string(snapshotter.TagOld),
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "bound for the whole capture",
				Value: defaults.CLISnapshotTimeout,
			},
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}

			tag := snapshotter.Tag(cmd.String("tag"))
			if !tag.IsValid() {
				return fmt.Errorf("invalid tag: %q", tag)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			host := cmd.String("host")
			session, err := newSession(cfg, host, cmd.String("password"))
			if err != nil {
				return err
			}
			defer session.Disconnect()

			ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
			defer cancel()

			c := &snapshotter.Collector{
				Runner:  session,
				Host:    host,
				Version: buildVersion,
				Timeout: cfg.CommandTimeout,
			}

			slog.Info("capturing snapshot", "host", host, "tag", tag)

			snap, err := c.Collect(ctx, tag)
			if err != nil {
				return err
			}
			return writeDocument(ctx, outFormat, cmd.String("output"), snap)
		},
	}
}
