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

package publish

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/hostqe/upgradecheck/pkg/defaults"
	"github.com/hostqe/upgradecheck/pkg/errors"
	"github.com/hostqe/upgradecheck/pkg/report"
)

// DefaultSubjectPrefix is the subject prefix for run events.
const DefaultSubjectPrefix = "upgradecheck.runs"

// NATSConfig holds the settings for emitting run events.
type NATSConfig struct {
	// URL is the server URL, e.g. "nats://nats.lab.example.com:4222". Required.
	URL string

	// SubjectPrefix defaults to DefaultSubjectPrefix. Events go to
	// "<prefix>.<status>".
	SubjectPrefix string
}

// RunEvent is the message emitted when a run finishes.
type RunEvent struct {
	RunID       string           `json:"runId"`
	Host        string           `json:"host"`
	Strategy    string           `json:"strategy"`
	Source      string           `json:"source"`
	Target      string           `json:"target"`
	Status      report.Status    `json:"status"`
	Code        errors.ErrorCode `json:"code,omitempty"`
	Error       string           `json:"error,omitempty"`
	FailedCases []string         `json:"failedCases,omitempty"`
	FinishedAt  time.Time        `json:"finishedAt"`
}

// NewRunEvent summarizes rep.
func NewRunEvent(rep *report.Report) RunEvent {
	ev := RunEvent{
		RunID:      rep.RunID,
		Host:       rep.Host,
		Strategy:   rep.Strategy,
		Source:     rep.Source,
		Target:     rep.Target,
		Status:     rep.Status,
		Code:       rep.Code,
		Error:      rep.Error,
		FinishedAt: rep.EndTime,
	}
	for _, c := range rep.FailedCases() {
		ev.FailedCases = append(ev.FailedCases, c.Name)
	}
	return ev
}

type natsConn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// NATS emits a RunEvent per finished run.
type NATS struct {
	conn   natsConn
	close  func()
	prefix string
}

var _ Publisher = (*NATS)(nil)

// NewNATS connects to the server in cfg.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "NATS URL is required")
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("upgradecheck"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(defaults.NATSReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeInternal, "failed to connect to NATS", err,
			map[string]any{"url": cfg.URL})
	}

	return newNATS(nc, func() {
		if derr := nc.Drain(); derr != nil {
			slog.Debug("nats drain failed", "error", derr)
			nc.Close()
		}
	}, cfg.SubjectPrefix), nil
}

func newNATS(conn natsConn, closeFn func(), prefix string) *NATS {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATS{conn: conn, close: closeFn, prefix: prefix}
}

// Name implements Publisher.
func (p *NATS) Name() string {
	return "nats"
}

// Subject returns the subject an event for status is sent to.
func (p *NATS) Subject(status report.Status) string {
	return p.prefix + "." + string(status)
}

// Publish sends the run event and waits for the server to acknowledge the flush.
func (p *NATS) Publish(ctx context.Context, rep *report.Report) error {
	data, err := json.Marshal(NewRunEvent(rep))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to encode run event", err)
	}

	subject := p.Subject(rep.Status)
	if err := p.conn.Publish(subject, data); err != nil {
		return errors.WrapWithContext(errors.ErrCodeInternal, "failed to publish run event", err,
			map[string]any{"subject": subject})
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return errors.WrapWithContext(errors.ErrCodeInternal, "failed to flush run event", err,
			map[string]any{"subject": subject})
	}
	return nil
}

// Close drains the connection.
func (p *NATS) Close() {
	if p.close != nil {
		p.close()
	}
}
