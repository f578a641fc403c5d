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

package history

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	// registers the "sqlite" driver
	_ "modernc.org/sqlite"

	"github.com/hostqe/upgradecheck/pkg/errors"
	"github.com/hostqe/upgradecheck/pkg/report"
)

// fixed width so that text order is time order
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is the summary row of one recorded run.
type Run struct {
	RunID       string           `json:"runId" yaml:"runId"`
	Strategy    string           `json:"strategy" yaml:"strategy"`
	Source      string           `json:"source" yaml:"source"`
	Target      string           `json:"target" yaml:"target"`
	Host        string           `json:"host" yaml:"host"`
	Status      report.Status    `json:"status" yaml:"status"`
	Code        errors.ErrorCode `json:"code,omitempty" yaml:"code,omitempty"`
	Error       string           `json:"error,omitempty" yaml:"error,omitempty"`
	CasesTotal  int              `json:"casesTotal" yaml:"casesTotal"`
	CasesFailed int              `json:"casesFailed" yaml:"casesFailed"`
	StartedAt   time.Time        `json:"startedAt" yaml:"startedAt"`
	FinishedAt  time.Time        `json:"finishedAt" yaml:"finishedAt"`
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Host     string
	Strategy string
	Status   report.Status
	Limit    int
}

// Store keeps run reports in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	slog.Debug("opening run history", "path", path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeInternal, "failed to open run history", err,
			map[string]any{"path": path})
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errors.WrapWithContext(errors.ErrCodeInternal, "failed to create run history schema", err,
			map[string]any{"path": path})
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts rep, replacing an earlier record with the same run ID.
func (s *Store) Record(ctx context.Context, rep *report.Report) error {
	if rep == nil || rep.RunID == "" {
		return errors.New(errors.ErrCodeInvalidRequest, "report has no run ID")
	}
	if rep.Status == "" {
		return errors.NewWithContext(errors.ErrCodeInvalidRequest, "report is not finished",
			map[string]any{"runId": rep.RunID})
	}

	doc, err := json.Marshal(rep)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to encode report", err)
	}

	const query = `
		INSERT OR REPLACE INTO runs (run_id, strategy, source, target, host, status, error_code, error,
		                             cases_total, cases_failed, started_at, finished_at, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		rep.RunID, rep.Strategy, rep.Source, rep.Target, rep.Host, string(rep.Status),
		string(rep.Code), rep.Error, len(rep.Cases), len(rep.FailedCases()),
		rep.StartTime.UTC().Format(timeLayout), rep.EndTime.UTC().Format(timeLayout), string(doc))
	if err != nil {
		slog.Error("failed to record run", "run", rep.RunID, "error", err)
		return errors.WrapWithContext(errors.ErrCodeInternal, "failed to record run", err,
			map[string]any{"runId": rep.RunID})
	}

	slog.Debug("run recorded", "run", rep.RunID, "status", rep.Status)
	return nil
}

// Get returns the full report of a run.
func (s *Store) Get(ctx context.Context, runID string) (*report.Report, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT report FROM runs WHERE run_id = ?`, runID).Scan(&doc)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewWithContext(errors.ErrCodeNotFound, "run not found", map[string]any{"runId": runID})
	}
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeInternal, "failed to query run", err,
			map[string]any{"runId": runID})
	}

	var rep report.Report
	if err := json.Unmarshal([]byte(doc), &rep); err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeInternal, "failed to decode stored report", err,
			map[string]any{"runId": runID})
	}
	return &rep, nil
}

// List returns run summaries, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Run, error) {
	var (
		where []string
		args  []any
	)
	if f.Host != "" {
		where = append(where, "host = ?")
		args = append(args, f.Host)
	}
	if f.Strategy != "" {
		where = append(where, "strategy = ?")
		args = append(args, f.Strategy)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}

	query := `SELECT run_id, strategy, source, target, host, status, error_code, error,
		cases_total, cases_failed, started_at, finished_at FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to list runs", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			status            string
			code, msg         sql.NullString
			started, finished string
		)
		if err := rows.Scan(&r.RunID, &r.Strategy, &r.Source, &r.Target, &r.Host, &status, &code, &msg,
			&r.CasesTotal, &r.CasesFailed, &started, &finished); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, "failed to scan run", err)
		}
		r.Status = report.Status(status)
		r.Code = errors.ErrorCode(code.String)
		r.Error = msg.String
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, "invalid start time in run history", err)
		}
		if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, "invalid finish time in run history", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to read runs", err)
	}
	return runs, nil
}
