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

	"github.com/hostqe/upgradecheck/pkg/config"
	"github.com/hostqe/upgradecheck/pkg/remote"
	"github.com/hostqe/upgradecheck/pkg/rhvm"
	"github.com/hostqe/upgradecheck/pkg/serializer"
	"github.com/hostqe/upgradecheck/pkg/upgrade"
)

// newSession returns an SSH session to host using the configured user and
// either the configured key file or password.
func newSession(cfg *config.Config, host, password string) (*remote.SSHClient, error) {
	rc := remote.Config{
		Host:     host,
		User:     cfg.SSHUser,
		Password: password,
	}
	if cfg.SSHKeyFile != "" {
		return remote.NewSSHClientFromKeyFile(rc, cfg.SSHKeyFile)
	}
	return remote.NewSSHClient(rc)
}

// managerFactory returns engine clients authenticated with the configured credentials.
func managerFactory(cfg *config.Config) upgrade.ManagerFactory {
	return func(fqdn string) (rhvm.Manager, error) {
		c, err := rhvm.NewClient(fqdn,
			rhvm.WithCredentials(cfg.EngineUser, cfg.EnginePassword),
			rhvm.WithHTTPClient(rhvm.NewHTTPClient(cfg.EngineInsecure, cfg.EngineTimeout)),
		)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// writeDocument serializes v to path, or stdout when path is empty.
func writeDocument(ctx context.Context, format serializer.Format, path string, v any) error {
	ser := serializer.NewFileWriterOrStdout(format, path)
	defer func() {
		if err := ser.Close(); err != nil {
			slog.Warn("failed to close output", "path", path, "error", err)
		}
	}()

	if err := ser.Serialize(ctx, v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
