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

// Package logging configures structured logging for the harness on top of log/slog.
//
// Features:
//   - JSON output to stderr
//   - Automatic module and version context
//   - Source location for debug logs
//   - Level parsing from flags or LOG_LEVEL
//
// # Usage
//
//	func main() {
//	    logging.SetDefaultStructuredLoggerWithLevel("upgradecheck", version, "info")
//	    slog.Info("collecting state", "tag", "old", "host", host)
//	}
//
// The LOG_LEVEL environment variable is used when no explicit level is given:
//
//	LOG_LEVEL=debug upgradecheck run --config upgradecheck.yaml
//
// # Output Format
//
//	{
//	    "time": "2017-05-22T10:30:00.123Z",
//	    "level": "INFO",
//	    "msg": "check passed",
//	    "module": "upgradecheck",
//	    "version": "v0.3.0",
//	    "check": "imgbase-layout"
//	}
//
// Verification checks log their inputs at DEBUG and every mismatch at ERROR,
// so a failed run can be diagnosed from the log alone.
package logging
