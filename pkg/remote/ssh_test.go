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
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	cerrors "github.com/hostqe/upgradecheck/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

const testPassword = "redhat"

type execResult struct {
	output string
	status uint32
	hang   bool
}

// testServer is a minimal in-process SSH server answering exec requests.
type testServer struct {
	host, port string

	mu       sync.Mutex
	commands []string
	uploads  map[string]string
	conns    int
}

func newTestServer(t *testing.T, handler func(cmd string) execResult) *testServer {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(_ ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if string(pass) == testPassword {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected")
		},
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	srv := &testServer{host: host, port: port, uploads: map[string]string{}}

	go func() {
		for {
			nc, err := ln.Accept()
			if err != nil {
				return
			}
			go srv.serveConn(nc, cfg, handler)
		}
	}()
	return srv
}

func (s *testServer) serveConn(nc net.Conn, cfg *ssh.ServerConfig, handler func(string) execResult) {
	_, chans, reqs, err := ssh.NewServerConn(nc, cfg)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns++
	s.mu.Unlock()

	go ssh.DiscardRequests(reqs)
	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "unsupported")
			continue
		}
		ch, chReqs, err := newCh.Accept()
		if err != nil {
			continue
		}
		go s.serveSession(ch, chReqs, handler)
	}
}

func (s *testServer) serveSession(ch ssh.Channel, reqs <-chan *ssh.Request, handler func(string) execResult) {
	for req := range reqs {
		if req.Type != "exec" {
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
			continue
		}
		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			_ = req.Reply(false, nil)
			continue
		}
		_ = req.Reply(true, nil)

		s.mu.Lock()
		s.commands = append(s.commands, payload.Command)
		s.mu.Unlock()

		if target, ok := strings.CutPrefix(payload.Command, "cat > "); ok {
			data, _ := io.ReadAll(ch)
			s.mu.Lock()
			s.uploads[strings.Trim(target, "'")] = string(data)
			s.mu.Unlock()
			s.finish(ch, "", 0)
			continue
		}

		res := handler(payload.Command)
		if res.hang {
			continue
		}
		s.finish(ch, res.output, res.status)
	}
}

func (s *testServer) finish(ch ssh.Channel, output string, status uint32) {
	_, _ = io.WriteString(ch, output)
	_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
	_ = ch.Close()
}

func (s *testServer) connCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns
}

func (s *testServer) client(t *testing.T) *SSHClient {
	t.Helper()
	c, err := NewSSHClient(Config{Host: s.host, Port: s.port, Password: testPassword})
	require.NoError(t, err)
	t.Cleanup(c.Disconnect)
	return c
}

func hostHandler(cmd string) execResult {
	switch cmd {
	case "imgbase w":
		return execResult{output: "You are on rhvh-4.1-0.20170421.0+1\r\n"}
	case "false":
		return execResult{output: "boom", status: 1}
	case "hang":
		return execResult{hang: true}
	default:
		return execResult{output: "", status: 127}
	}
}

func TestNewSSHClient_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing host", Config{Password: "x"}},
		{"missing auth", Config{Host: "10.0.0.1"}},
		{"bad key", Config{Host: "10.0.0.1", PrivateKey: []byte("not a key")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSSHClient(tt.cfg)
			require.Error(t, err)
			assert.True(t, cerrors.IsCode(err, cerrors.ErrCodeInvalidRequest))
		})
	}
}

func TestNewSSHClient_Defaults(t *testing.T) {
	c, err := NewSSHClient(Config{Host: "10.0.0.1", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, "root", c.cfg.User)
	assert.Equal(t, "22", c.cfg.Port)
	assert.Equal(t, "10.0.0.1", c.Host())
}

func TestNewSSHClientFromKeyFile_Missing(t *testing.T) {
	_, err := NewSSHClientFromKeyFile(Config{Host: "h"}, filepath.Join(t.TempDir(), "id_rsa"))
	require.Error(t, err)
}

func TestSSHClient_Run(t *testing.T) {
	srv := newTestServer(t, hostHandler)
	c := srv.client(t)

	out, err := c.Run(context.Background(), "imgbase w", time.Second*5)
	require.NoError(t, err)
	assert.Equal(t, "You are on rhvh-4.1-0.20170421.0+1", out)

	// connection is reused between commands
	_, err = c.Run(context.Background(), "imgbase w", time.Second*5)
	require.NoError(t, err)
	assert.Equal(t, 1, srv.connCount())
}

func TestSSHClient_RunNonZeroExit(t *testing.T) {
	srv := newTestServer(t, hostHandler)
	c := srv.client(t)

	out, err := c.Run(context.Background(), "false", time.Second*5)
	require.Error(t, err)
	assert.Equal(t, "boom", out)
	assert.True(t, cerrors.IsCode(err, cerrors.ErrCodeRemoteExec))
}

func TestSSHClient_RunTimeout(t *testing.T) {
	srv := newTestServer(t, hostHandler)
	c := srv.client(t)

	start := time.Now()
	_, err := c.Run(context.Background(), "hang", 200*time.Millisecond)
	require.Error(t, err)
	assert.True(t, cerrors.IsCode(err, cerrors.ErrCodeRemoteExec))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSSHClient_DisconnectReconnects(t *testing.T) {
	srv := newTestServer(t, hostHandler)
	c := srv.client(t)

	_, err := c.Run(context.Background(), "imgbase w", time.Second*5)
	require.NoError(t, err)
	c.Disconnect()
	c.Disconnect()

	_, err = c.Run(context.Background(), "imgbase w", time.Second*5)
	require.NoError(t, err)
	assert.Equal(t, 2, srv.connCount())
}

func TestSSHClient_RunUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port, _ := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, ln.Close())

	c, err := NewSSHClient(Config{Host: host, Port: port, Password: testPassword, DialTimeout: time.Second})
	require.NoError(t, err)

	_, err = c.Run(context.Background(), "imgbase w", time.Second)
	require.Error(t, err)
	assert.True(t, cerrors.IsCode(err, cerrors.ErrCodeRemoteExec))
}

func TestSSHClient_RunSilentHandshake(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	// Accept TCP and never speak SSH.
	var mu sync.Mutex
	var accepted []net.Conn
	go func() {
		for {
			conn, aerr := ln.Accept()
			if aerr != nil {
				return
			}
			mu.Lock()
			accepted = append(accepted, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		mu.Lock()
		defer mu.Unlock()
		for _, conn := range accepted {
			_ = conn.Close()
		}
	})

	host, port, _ := net.SplitHostPort(ln.Addr().String())
	c, err := NewSSHClient(Config{Host: host, Port: port, Password: testPassword, DialTimeout: time.Minute})
	require.NoError(t, err)

	start := time.Now()
	_, err = c.Run(context.Background(), "imgbase w", 200*time.Millisecond)
	require.Error(t, err)
	assert.True(t, cerrors.IsCode(err, cerrors.ErrCodeRemoteExec))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSSHClient_RunCanceledBeforeConnect(t *testing.T) {
	srv := newTestServer(t, hostHandler)
	c := srv.client(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Run(ctx, "imgbase w", time.Second)
	require.Error(t, err)
	assert.True(t, cerrors.IsCode(err, cerrors.ErrCodeRemoteExec))
	assert.Equal(t, 0, srv.connCount())
}

func TestSSHClient_Put(t *testing.T) {
	srv := newTestServer(t, hostHandler)
	c := srv.client(t)

	local := filepath.Join(t.TempDir(), "rhvh.repo")
	require.NoError(t, os.WriteFile(local, []byte("[rhvh]\nbaseurl=http://repo/\n"), 0o600))

	require.NoError(t, c.Put(context.Background(), local, "/etc/yum.repos.d/"))

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Equal(t, "[rhvh]\nbaseurl=http://repo/\n", srv.uploads["/etc/yum.repos.d/rhvh.repo"])
}

func TestSSHClient_PutMissingLocal(t *testing.T) {
	c, err := NewSSHClient(Config{Host: "h", Password: "x"})
	require.NoError(t, err)
	err = c.Put(context.Background(), filepath.Join(t.TempDir(), "nope.repo"), "/etc/yum.repos.d/")
	require.Error(t, err)
}
