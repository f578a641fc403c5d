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

// schema holds one row per run. The full report is kept as JSON so that a
// run can be re-rendered without the host.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id       TEXT PRIMARY KEY,
    strategy     TEXT NOT NULL,
    source       TEXT NOT NULL,
    target       TEXT NOT NULL,
    host         TEXT NOT NULL,
    status       TEXT NOT NULL CHECK(status IN ('passed', 'failed', 'error')),
    error_code   TEXT,
    error        TEXT,
    cases_total  INTEGER NOT NULL DEFAULT 0,
    cases_failed INTEGER NOT NULL DEFAULT 0,
    started_at   TEXT NOT NULL,
    finished_at  TEXT NOT NULL,
    report       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_host ON runs(host);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`
