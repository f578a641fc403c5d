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

package remote

import (
	"context"
	"strings"
	"time"
)

// Runner executes shell commands on a remote host.
//
// Run returns the combined, whitespace-trimmed output of the command. A
// non-zero exit, a transport failure or an elapsed timeout yields an error
// with code REMOTE_EXEC_FAILURE; the output collected so far is still returned.
type Runner interface {
	Run(ctx context.Context, cmd string, timeout time.Duration) (string, error)
}

// Session is a Runner that can also copy files to the host and drop its
// connection, which is needed around reboots.
type Session interface {
	Runner

	// Put copies a local file into remoteDir, keeping its base name.
	Put(ctx context.Context, localPath, remoteDir string) error

	// Disconnect closes any cached connection. The next Run reconnects.
	Disconnect()
}

// OutputContains runs cmd and reports whether its output contains every want string.
func OutputContains(ctx context.Context, r Runner, cmd string, timeout time.Duration, want ...string) (bool, string, error) {
	out, err := r.Run(ctx, cmd, timeout)
	if err != nil {
		return false, out, err
	}
	for _, w := range want {
		if !strings.Contains(out, w) {
			return false, out, nil
		}
	}
	return true, out, nil
}

// FileContains reports whether the remote file at path contains every want string.
func FileContains(ctx context.Context, r Runner, path string, timeout time.Duration, want ...string) (bool, error) {
	ok, _, err := OutputContains(ctx, r, "cat "+Quote(path), timeout, want...)
	return ok, err
}

// Quote single-quotes s for a POSIX shell.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
