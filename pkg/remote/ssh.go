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
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hostqe/upgradecheck/pkg/defaults"
	"github.com/hostqe/upgradecheck/pkg/errors"
	"golang.org/x/crypto/ssh"
)

const defaultPort = "22"

// Config describes how to reach the host under test.
type Config struct {
	Host       string
	Port       string
	User       string
	Password   string
	PrivateKey []byte

	// DialTimeout bounds the TCP dial. The SSH handshake is bounded by the
	// timeout of the command that opens the connection.
	DialTimeout time.Duration
}

// SSHClient implements Session over golang.org/x/crypto/ssh. The connection is
// opened lazily and reused by every command until Disconnect is called or the
// host drops it.
type SSHClient struct {
	cfg    Config
	auth   []ssh.AuthMethod
	mu     sync.Mutex
	client *ssh.Client
}

// NewSSHClient validates cfg and returns a client. No connection is made yet.
func NewSSHClient(cfg Config) (*SSHClient, error) {
	if cfg.Host == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "ssh host is required")
	}
	if cfg.User == "" {
		cfg.User = "root"
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaults.SSHDialTimeout
	}

	var auth []ssh.AuthMethod
	if len(cfg.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidRequest, "unable to parse private key", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}
	if len(auth) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "ssh password or private key is required")
	}

	return &SSHClient{cfg: cfg, auth: auth}, nil
}

// NewSSHClientFromKeyFile is NewSSHClient with the private key read from disk.
func NewSSHClientFromKeyFile(cfg Config, privateKeyPath string) (*SSHClient, error) {
	key, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read private key: %w", err)
	}
	cfg.PrivateKey = key
	return NewSSHClient(cfg)
}

// Host returns the address commands are sent to.
func (c *SSHClient) Host() string {
	return c.cfg.Host
}

func (c *SSHClient) addr() string {
	return net.JoinHostPort(c.cfg.Host, c.cfg.Port)
}

// connect returns the cached connection or dials a new one. The TCP dial and
// the SSH handshake are both bounded by ctx; a host that accepts TCP but
// never completes the handshake fails when ctx expires.
func (c *SSHClient) connect(ctx context.Context) (*ssh.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	config := &ssh.ClientConfig{
		User: c.cfg.User,
		Auth: c.auth,
		// Hosts are reinstalled between runs, so their keys are never stable.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	addr := c.addr()
	dialer := &net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to %s: %w", addr, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			runFuncAndLogErr(conn.Close)
			return nil, fmt.Errorf("unable to set handshake deadline for %s: %w", addr, err)
		}
	}
	stop := context.AfterFunc(ctx, func() { runFuncAndLogErr(conn.Close) })

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if !stop() {
		if err == nil {
			runFuncAndLogErr(sshConn.Close)
		}
		return nil, fmt.Errorf("ssh handshake with %s aborted: %w", addr, ctx.Err())
	}
	if err != nil {
		runFuncAndLogErr(conn.Close)
		return nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}
	if err := conn.SetDeadline(time.Time{}); err != nil {
		runFuncAndLogErr(sshConn.Close)
		return nil, fmt.Errorf("unable to clear handshake deadline for %s: %w", addr, err)
	}

	c.client = ssh.NewClient(sshConn, chans, reqs)
	return c.client, nil
}

// openSession opens a session on client, closing client if ctx expires first.
func openSession(ctx context.Context, client *ssh.Client) (*ssh.Session, error) {
	stop := context.AfterFunc(ctx, func() { runFuncAndLogErr(client.Close) })
	session, err := client.NewSession()
	if !stop() {
		if err == nil {
			runFuncAndLogErr(session.Close)
		}
		return nil, fmt.Errorf("unable to create SSH session: %w", ctx.Err())
	}
	return session, err
}

func (c *SSHClient) newSession(ctx context.Context) (*ssh.Session, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	session, err := openSession(ctx, client)
	if err == nil {
		return session, nil
	}
	if ctx.Err() != nil {
		c.Disconnect()
		return nil, err
	}

	// A cached connection goes stale when the host reboots; retry once on a fresh one.
	slog.Debug("ssh session failed on cached connection, reconnecting", "host", c.cfg.Host, "error", err)
	c.Disconnect()
	client, err = c.connect(ctx)
	if err != nil {
		return nil, err
	}
	session, err = openSession(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("unable to create SSH session: %w", err)
	}
	return session, nil
}

// Run executes cmd with the given timeout. A zero timeout uses the default remote command timeout.
func (c *SSHClient) Run(ctx context.Context, cmd string, timeout time.Duration) (string, error) {
	return c.run(ctx, cmd, timeout, nil)
}

func (c *SSHClient) run(ctx context.Context, cmd string, timeout time.Duration, stdin *os.File) (string, error) {
	if timeout <= 0 {
		timeout = defaults.RemoteCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errCtx := map[string]any{
		"host":    c.cfg.Host,
		"command": cmd,
		"timeout": timeout.String(),
	}

	slog.Debug("running remote command", "host", c.cfg.Host, "command", cmd, "timeout", timeout)

	session, err := c.newSession(ctx)
	if err != nil {
		return "", errors.WrapWithContext(errors.ErrCodeRemoteExec, "unable to open session", err, errCtx)
	}
	defer runFuncAndLogErr(session.Close)

	var out syncBuffer
	session.Stdout = &out
	session.Stderr = &out
	if stdin != nil {
		session.Stdin = stdin
	}

	done := make(chan error, 1)
	go func() {
		done <- session.Run(cmd)
	}()

	select {
	case err := <-done:
		output := strings.TrimSpace(out.String())
		if err != nil {
			slog.Debug("remote command failed", "host", c.cfg.Host, "command", cmd, "error", err, "output", output)
			return output, errors.WrapWithContext(errors.ErrCodeRemoteExec, "remote command failed", err, errCtx)
		}
		return output, nil
	case <-ctx.Done():
		if serr := session.Signal(ssh.SIGKILL); serr != nil {
			slog.Debug("failed to signal remote command", "command", cmd, "error", serr)
		}
		runFuncAndLogErr(session.Close)
		output := strings.TrimSpace(out.String())
		slog.Debug("remote command timed out", "host", c.cfg.Host, "command", cmd, "timeout", timeout)
		return output, errors.WrapWithContext(errors.ErrCodeRemoteExec, "remote command timed out", ctx.Err(), errCtx)
	}
}

// Put streams localPath to remoteDir/<base name> through the session's stdin.
func (c *SSHClient) Put(ctx context.Context, localPath, remoteDir string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidRequest, "unable to open local file", err)
	}
	defer runFuncAndLogErr(f.Close)

	target := path.Join(remoteDir, filepath.Base(localPath))
	slog.Info("copying file to host", "host", c.cfg.Host, "local", localPath, "remote", target)

	if _, err := c.run(ctx, "cat > "+Quote(target), defaults.RemoteCommandTimeout, f); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", localPath, target, err)
	}
	return nil
}

// Disconnect closes the cached connection, if any.
func (c *SSHClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		runFuncAndLogErr(c.client.Close)
		c.client = nil
	}
}

func runFuncAndLogErr(f func() error) {
	if err := f(); err != nil {
		slog.Debug("error closing ssh resource", "err", err.Error())
	}
}

// syncBuffer serializes writes from the stdout and stderr copiers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
