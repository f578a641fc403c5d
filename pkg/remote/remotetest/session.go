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

// Package remotetest provides an in-memory remote.Session for tests.
package remotetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hostqe/upgradecheck/pkg/errors"
)

// Response is a canned command result. Failed responses return a
// REMOTE_EXEC_FAILURE error alongside Output.
type Response struct {
	Output string
	Failed bool
}

// Session answers commands from a table. Exact matches win over prefix
// matches, and the longest prefix wins among prefixes. Queued responses are
// consumed in order; the last one repeats.
type Session struct {
	mu          sync.Mutex
	exact       map[string][]Response
	prefix      map[string][]Response
	calls       []string
	puts        []string
	disconnects int
	putErr      error
}

// New returns an empty Session. Unknown commands fail.
func New() *Session {
	return &Session{
		exact:  map[string][]Response{},
		prefix: map[string][]Response{},
	}
}

// On registers successful output for an exact command.
func (s *Session) On(cmd string, outputs ...string) *Session {
	return s.OnResponses(cmd, okResponses(outputs)...)
}

// OnFail registers a failing result for an exact command.
func (s *Session) OnFail(cmd, output string) *Session {
	return s.OnResponses(cmd, Response{Output: output, Failed: true})
}

// OnResponses queues responses for an exact command.
func (s *Session) OnResponses(cmd string, rs ...Response) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exact[cmd] = append(s.exact[cmd], rs...)
	return s
}

// OnPrefix registers successful output for any command starting with prefix.
func (s *Session) OnPrefix(prefix string, outputs ...string) *Session {
	return s.OnPrefixResponses(prefix, okResponses(outputs)...)
}

// OnPrefixFail registers a failing result for any command starting with prefix.
func (s *Session) OnPrefixFail(prefix, output string) *Session {
	return s.OnPrefixResponses(prefix, Response{Output: output, Failed: true})
}

// OnPrefixResponses queues responses for commands starting with prefix.
func (s *Session) OnPrefixResponses(prefix string, rs ...Response) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefix[prefix] = append(s.prefix[prefix], rs...)
	return s
}

// FailPuts makes every Put return err.
func (s *Session) FailPuts(err error) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putErr = err
	return s
}

// Run implements remote.Runner.
func (s *Session) Run(ctx context.Context, cmd string, _ time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, cmd)
	if err := ctx.Err(); err != nil {
		return "", errors.Wrap(errors.ErrCodeRemoteExec, "context done", err)
	}

	queue, key, fromPrefix := s.lookup(cmd)
	if queue == nil {
		return "", errors.NewWithContext(errors.ErrCodeRemoteExec, "unexpected command", map[string]any{"command": cmd})
	}

	r := queue[0]
	if len(queue) > 1 {
		if fromPrefix {
			s.prefix[key] = queue[1:]
		} else {
			s.exact[key] = queue[1:]
		}
	}

	if r.Failed {
		return r.Output, errors.NewWithContext(errors.ErrCodeRemoteExec, "remote command failed", map[string]any{"command": cmd})
	}
	return r.Output, nil
}

func (s *Session) lookup(cmd string) ([]Response, string, bool) {
	if q, ok := s.exact[cmd]; ok && len(q) > 0 {
		return q, cmd, false
	}

	keys := make([]string, 0, len(s.prefix))
	for k := range s.prefix {
		if strings.HasPrefix(cmd, k) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, "", false
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	return s.prefix[keys[0]], keys[0], true
}

// Put implements remote.Session and records "local -> dir".
func (s *Session) Put(_ context.Context, localPath, remoteDir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.puts = append(s.puts, fmt.Sprintf("%s -> %s", localPath, remoteDir))
	return nil
}

// Disconnect implements remote.Session.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnects++
}

// Calls returns every command run so far, in order.
func (s *Session) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Called reports whether any command containing sub was run.
func (s *Session) Called(sub string) bool {
	for _, c := range s.Calls() {
		if strings.Contains(c, sub) {
			return true
		}
	}
	return false
}

// Puts returns every recorded file copy.
func (s *Session) Puts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.puts...)
}

// Disconnects returns how many times Disconnect was called.
func (s *Session) Disconnects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnects
}

func okResponses(outputs []string) []Response {
	if len(outputs) == 0 {
		outputs = []string{""}
	}
	rs := make([]Response, len(outputs))
	for i, o := range outputs {
		rs[i] = Response{Output: o}
	}
	return rs
}
