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

package snapshotter

import (
	"context"
	"log/slog"
	"time"

	"github.com/hostqe/upgradecheck/pkg/defaults"
	"github.com/hostqe/upgradecheck/pkg/errors"
	"github.com/hostqe/upgradecheck/pkg/header"
	"github.com/hostqe/upgradecheck/pkg/remote"
	"github.com/hostqe/upgradecheck/pkg/serializer"
)

// Commands run by the collector, in order.
const (
	CmdImgbasedVersion = "rpm -qa |grep --color=never imgbased"
	CmdUpdateVersion   = "rpm -qa |grep --color=never update"
	CmdImgbaseW        = "imgbase w"
	CmdImgbaseLayout   = "imgbase layout"
	CmdInitiatorName   = "cat /etc/iscsi/initiatorname.iscsi"
	CmdLVS             = "lvs -a -o lv_name,lv_size --unit=m --noheadings --separator ' '"
	CmdFindmnt         = "findmnt -r -n"
)

type measurement struct {
	name string
	cmd  string
	set  func(*Snapshot, string)
}

var battery = []measurement{
	{"imgbased_ver", CmdImgbasedVersion, func(s *Snapshot, v string) { s.ImgbasedVersion = v }},
	{"update_ver", CmdUpdateVersion, func(s *Snapshot, v string) { s.UpdateVersion = v }},
	{"imgbase_w", CmdImgbaseW, func(s *Snapshot, v string) { s.ImgbaseW = v }},
	{"imgbase_layout", CmdImgbaseLayout, func(s *Snapshot, v string) { s.ImgbaseLayout = v }},
	{"initiatorname_iscsi", CmdInitiatorName, func(s *Snapshot, v string) { s.InitiatorName = v }},
	{"lvs", CmdLVS, func(s *Snapshot, v string) { s.LVS = v }},
	{"findmnt", CmdFindmnt, func(s *Snapshot, v string) { s.Findmnt = v }},
}

// Collector runs the read-only command battery against one host.
type Collector struct {
	// Runner executes the commands. Required.
	Runner remote.Runner

	// Host is recorded in the snapshot.
	Host string

	// Version is written into the snapshot header.
	Version string

	// Timeout bounds each command. Zero uses defaults.RemoteCommandTimeout.
	Timeout time.Duration
}

var _ Snapshotter = (*Collector)(nil)

// Collect runs every command in order. Commands are not retried; the first
// failure aborts the collection and no snapshot is returned.
func (c *Collector) Collect(ctx context.Context, tag Tag) (*Snapshot, error) {
	if c.Runner == nil {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "collector has no runner")
	}
	if !tag.IsValid() {
		return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest, "invalid snapshot tag",
			map[string]any{"tag": string(tag)})
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaults.RemoteCommandTimeout
	}

	slog.Debug("starting host snapshot", slog.String("tag", string(tag)), slog.String("host", c.Host))

	start := time.Now()
	defer func() {
		snapshotCollectionDuration.WithLabelValues(string(tag)).Observe(time.Since(start).Seconds())
	}()

	snap := NewSnapshot(tag)
	snap.Init(header.KindSnapshot, c.Version, header.WithHost(c.Host), header.WithTag(string(tag)))
	snap.Host = c.Host

	for _, m := range battery {
		cmdStart := time.Now()
		out, err := c.Runner.Run(ctx, m.cmd, timeout)
		snapshotCommandDuration.WithLabelValues(m.name).Observe(time.Since(cmdStart).Seconds())
		if err != nil {
			snapshotCollectionTotal.WithLabelValues("error").Inc()
			slog.Error("snapshot command failed",
				slog.String("tag", string(tag)),
				slog.String("measurement", m.name),
				slog.String("error", err.Error()))
			return nil, errors.WrapWithContext(errors.ErrCodeSnapshotIncomplete, "failed to collect "+m.name, err,
				map[string]any{"tag": string(tag), "measurement": m.name, "command": m.cmd})
		}
		m.set(snap, out)
		slog.Debug("collected measurement", slog.String("tag", string(tag)), slog.String("measurement", m.name))
	}

	snapshotCollectionTotal.WithLabelValues("success").Inc()
	slog.Info("host snapshot complete", slog.String("tag", string(tag)), slog.String("host", c.Host))

	return snap, nil
}

// Save serializes snap with s.
func Save(ctx context.Context, s serializer.Serializer, snap *Snapshot) error {
	if err := s.Serialize(ctx, snap); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to serialize snapshot", err)
	}
	return nil
}

// Load reads and validates a snapshot document from a local file.
func Load(path string) (*Snapshot, error) {
	snap, err := serializer.FromFile[Snapshot](path)
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeInvalidRequest, "failed to load snapshot", err,
			map[string]any{"path": path})
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}
