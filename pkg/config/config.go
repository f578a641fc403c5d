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

package config

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hostqe/upgradecheck/pkg/defaults"
	"github.com/hostqe/upgradecheck/pkg/errors"
	"github.com/hostqe/upgradecheck/pkg/publish"
	"github.com/hostqe/upgradecheck/pkg/upgrade"
)

const (
	// EnvPrefix is prepended to every environment variable name.
	EnvPrefix = "UPGRADECHECK"

	// FileName is the config file searched for when no path is given.
	FileName = "upgradecheck"

	// keyDelimiter replaces viper's "." so that stream keys like "4.1" stay whole.
	keyDelimiter = "::"
)

// Config holds all harness configuration.
type Config struct {
	// Management engine
	EngineFQDNs    map[string]string `mapstructure:"engine-fqdns"`
	EngineUser     string            `mapstructure:"engine-user"`
	EnginePassword string            `mapstructure:"engine-password"`
	EngineInsecure bool              `mapstructure:"engine-insecure"`
	EngineTimeout  time.Duration     `mapstructure:"engine-timeout"`

	// Host access
	SSHUser    string `mapstructure:"ssh-user"`
	SSHKeyFile string `mapstructure:"ssh-key-file"`

	// Update packages
	RepoDir       string `mapstructure:"repo-dir"`
	UpdateRPMName string `mapstructure:"update-rpm-name"`
	UpdateRPMURL  string `mapstructure:"update-rpm-url"`
	CockpitPort   int    `mapstructure:"cockpit-port"`

	// Timeouts
	CommandTimeout        time.Duration `mapstructure:"command-timeout"`
	DownloadTimeout       time.Duration `mapstructure:"download-timeout"`
	PackageInstallTimeout time.Duration `mapstructure:"package-install-timeout"`
	YumUpdateTimeout      time.Duration `mapstructure:"yum-update-timeout"`
	YumInstallTimeout     time.Duration `mapstructure:"yum-install-timeout"`
	RebootCommandTimeout  time.Duration `mapstructure:"reboot-command-timeout"`
	CockpitTimeout        time.Duration `mapstructure:"cockpit-timeout"`

	// Polling
	HostStatusMaxCount  int           `mapstructure:"host-status-max-count"`
	HostStatusInterval  time.Duration `mapstructure:"host-status-interval"`
	EnterSystemMaxCount int           `mapstructure:"enter-system-max-count"`
	EnterSystemInterval time.Duration `mapstructure:"enter-system-interval"`
	EnterSystemTimeout  time.Duration `mapstructure:"enter-system-timeout"`
	TeardownAttempts    int           `mapstructure:"teardown-attempts"`
	TeardownBackoff     time.Duration `mapstructure:"teardown-backoff"`

	// Cases overrides the per-strategy default case list when not empty.
	Cases []string `mapstructure:"cases"`

	// HistoryPath is the SQLite run history. Empty disables history.
	HistoryPath string `mapstructure:"history-path"`

	// Artifact upload. An empty bucket disables it.
	S3Bucket          string `mapstructure:"s3-bucket"`
	S3Prefix          string `mapstructure:"s3-prefix"`
	S3Region          string `mapstructure:"s3-region"`
	S3Endpoint        string `mapstructure:"s3-endpoint"`
	S3UsePathStyle    bool   `mapstructure:"s3-use-path-style"`
	S3AccessKeyID     string `mapstructure:"s3-access-key-id"`
	S3SecretAccessKey string `mapstructure:"s3-secret-access-key"`

	// Run events. An empty URL disables them.
	NATSURL           string `mapstructure:"nats-url"`
	NATSSubjectPrefix string `mapstructure:"nats-subject-prefix"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine-fqdns", map[string]string{})
	v.SetDefault("engine-user", "admin@internal")
	v.SetDefault("engine-password", "")
	v.SetDefault("engine-insecure", true)
	v.SetDefault("engine-timeout", defaults.HTTPClientTimeout)

	v.SetDefault("ssh-user", "root")
	v.SetDefault("ssh-key-file", "")

	v.SetDefault("repo-dir", ".")
	v.SetDefault("update-rpm-name", upgrade.DefaultRPMNameTmpl)
	v.SetDefault("update-rpm-url", "")
	v.SetDefault("cockpit-port", upgrade.DefaultCockpitPort)

	v.SetDefault("command-timeout", defaults.RemoteCommandTimeout)
	v.SetDefault("download-timeout", defaults.DownloadTimeout)
	v.SetDefault("package-install-timeout", defaults.PackageInstallTimeout)
	v.SetDefault("yum-update-timeout", defaults.YumUpdateTimeout)
	v.SetDefault("yum-install-timeout", defaults.YumInstallTimeout)
	v.SetDefault("reboot-command-timeout", defaults.RebootCommandTimeout)
	v.SetDefault("cockpit-timeout", defaults.CockpitProbeTimeout)

	v.SetDefault("host-status-max-count", defaults.HostStatusMaxCount)
	v.SetDefault("host-status-interval", defaults.HostStatusInterval)
	v.SetDefault("enter-system-max-count", defaults.EnterSystemMaxCount)
	v.SetDefault("enter-system-interval", defaults.EnterSystemInterval)
	v.SetDefault("enter-system-timeout", defaults.EnterSystemTimeout)
	v.SetDefault("teardown-attempts", defaults.TeardownAttempts)
	v.SetDefault("teardown-backoff", defaults.TeardownBackoff)

	v.SetDefault("cases", []string{})
	v.SetDefault("history-path", "")

	v.SetDefault("s3-bucket", "")
	v.SetDefault("s3-prefix", "upgradecheck")
	v.SetDefault("s3-region", "us-east-1")
	v.SetDefault("s3-endpoint", "")
	v.SetDefault("s3-use-path-style", false)
	v.SetDefault("s3-access-key-id", "")
	v.SetDefault("s3-secret-access-key", "")

	v.SetDefault("nats-url", "")
	v.SetDefault("nats-subject-prefix", publish.DefaultSubjectPrefix)
}

// Load reads configuration from defaults, the config file and the environment.
// An explicit path must exist; without one, upgradecheck.yaml is looked up in
// the working directory and $HOME/.upgradecheck and is optional.
func Load(path string) (*Config, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WrapWithContext(errors.ErrCodeInvalidRequest, "failed to read config file", err,
				map[string]any{"path": path})
		}
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.upgradecheck")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !stderrors.As(err, &notFound) {
				return nil, errors.Wrap(errors.ErrCodeInvalidRequest, "failed to read config file", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRequest, "failed to unmarshal config", err)
	}
	return &cfg, nil
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	positive := map[string]time.Duration{
		"engine-timeout":          c.EngineTimeout,
		"command-timeout":         c.CommandTimeout,
		"download-timeout":        c.DownloadTimeout,
		"package-install-timeout": c.PackageInstallTimeout,
		"yum-update-timeout":      c.YumUpdateTimeout,
		"yum-install-timeout":     c.YumInstallTimeout,
		"reboot-command-timeout":  c.RebootCommandTimeout,
		"cockpit-timeout":         c.CockpitTimeout,
		"enter-system-timeout":    c.EnterSystemTimeout,
	}
	for key, d := range positive {
		if d <= 0 {
			return invalid("%s must be positive", key)
		}
	}
	if c.HostStatusInterval < 0 || c.EnterSystemInterval < 0 || c.TeardownBackoff < 0 {
		return invalid("poll intervals cannot be negative")
	}
	if c.HostStatusMaxCount < 1 {
		return invalid("host-status-max-count must be at least 1")
	}
	if c.EnterSystemMaxCount < 1 {
		return invalid("enter-system-max-count must be at least 1")
	}
	if c.TeardownAttempts < 1 {
		return invalid("teardown-attempts must be at least 1")
	}
	if c.CockpitPort < 1 || c.CockpitPort > 65535 {
		return invalid("cockpit-port %d is out of range", c.CockpitPort)
	}
	if !strings.Contains(c.UpdateRPMName, "%s") {
		return invalid("update-rpm-name must contain %%s")
	}
	if c.UpdateRPMURL != "" && !strings.Contains(c.UpdateRPMURL, "%s") {
		return invalid("update-rpm-url must contain %%s")
	}
	if c.RepoDir == "" {
		return invalid("repo-dir cannot be empty")
	}
	for stream, fqdn := range c.EngineFQDNs {
		if fqdn == "" {
			return invalid("engine-fqdns entry %q is empty", stream)
		}
	}
	if c.S3Bucket != "" && c.S3Region == "" {
		return invalid("s3-region is required with s3-bucket")
	}
	if (c.S3AccessKeyID == "") != (c.S3SecretAccessKey == "") {
		return invalid("s3-access-key-id and s3-secret-access-key must be set together")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidRequest, fmt.Sprintf(format, args...))
}

// Settings converts the configuration into driver settings.
func (c *Config) Settings() upgrade.Settings {
	fqdns := make(map[string]string, len(c.EngineFQDNs))
	for k, v := range c.EngineFQDNs {
		fqdns[k] = v
	}
	return upgrade.Settings{
		EngineFQDNs:           fqdns,
		LocalRepoDir:          c.RepoDir,
		UpdateRPMName:         c.UpdateRPMName,
		UpdateRPMURL:          c.UpdateRPMURL,
		CockpitPort:           c.CockpitPort,
		CommandTimeout:        c.CommandTimeout,
		DownloadTimeout:       c.DownloadTimeout,
		PackageInstallTimeout: c.PackageInstallTimeout,
		YumUpdateTimeout:      c.YumUpdateTimeout,
		YumInstallTimeout:     c.YumInstallTimeout,
		RebootCommandTimeout:  c.RebootCommandTimeout,
		CockpitTimeout:        c.CockpitTimeout,
		HostStatusMaxCount:    c.HostStatusMaxCount,
		HostStatusInterval:    c.HostStatusInterval,
		EnterSystemMaxCount:   c.EnterSystemMaxCount,
		EnterSystemInterval:   c.EnterSystemInterval,
		EnterSystemTimeout:    c.EnterSystemTimeout,
		TeardownAttempts:      c.TeardownAttempts,
		TeardownBackoff:       c.TeardownBackoff,
	}
}

// S3Enabled reports whether run artifacts are uploaded.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

// S3 returns the artifact upload settings.
func (c *Config) S3() publish.S3Config {
	return publish.S3Config{
		Bucket:          c.S3Bucket,
		Prefix:          c.S3Prefix,
		Region:          c.S3Region,
		Endpoint:        c.S3Endpoint,
		UsePathStyle:    c.S3UsePathStyle,
		AccessKeyID:     c.S3AccessKeyID,
		SecretAccessKey: c.S3SecretAccessKey,
	}
}

// NATSEnabled reports whether run events are emitted.
func (c *Config) NATSEnabled() bool {
	return c.NATSURL != ""
}

// NATS returns the run event settings.
func (c *Config) NATS() publish.NATSConfig {
	return publish.NATSConfig{
		URL:           c.NATSURL,
		SubjectPrefix: c.NATSSubjectPrefix,
	}
}
