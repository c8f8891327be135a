// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration, loaded from a single YAML file
// named by --config or SSHAGENTD_CONFIG. There are no discovery
// fallbacks; every field has a usable default for flag-only operation.
type Config struct {
	// SocketPath is the agent socket clients reach via SSH_AUTH_SOCK.
	SocketPath string `yaml:"socket_path"`

	// ControlSocketPath is the daemon-only admin socket. Defaults to
	// SocketPath with a .admin.sock suffix.
	ControlSocketPath string `yaml:"control_socket_path"`

	// LogLevel is one of ERR, WAR, INF, DEB, TRA, VDE.
	LogLevel string `yaml:"log_level"`

	// ConfirmSignatures forces a confirmation prompt for every sign
	// request, not only for keys added with the confirm constraint.
	ConfirmSignatures bool `yaml:"confirm_signatures"`

	// AsyncOperations runs sign and list handling off the transport
	// goroutine so a pending prompt does not stall that connection's
	// read loop.
	AsyncOperations bool `yaml:"async_operations"`

	// ExpirySweepSeconds is how often expired keys are removed.
	ExpirySweepSeconds int `yaml:"expiry_sweep_seconds"`
}

// SweepInterval returns the expiry sweep period as a duration.
func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.ExpirySweepSeconds) * time.Second
}

func defaultConfig() Config {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = os.TempDir()
	}
	return Config{
		SocketPath:         filepath.Join(runtimeDir, "sshagentd.sock"),
		LogLevel:           "INF",
		AsyncOperations:    true,
		ExpirySweepSeconds: 60,
	}
}

// loadConfig merges the config file (if any) over the defaults.
func loadConfig(path string) (Config, error) {
	config := defaultConfig()

	if path == "" {
		path = os.Getenv("SSHAGENTD_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if level := os.Getenv("SSHAGENTD_LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}
	if config.ControlSocketPath == "" {
		config.ControlSocketPath = config.SocketPath + ".admin.sock"
	}
	if config.ExpirySweepSeconds <= 0 {
		config.ExpirySweepSeconds = 60
	}
	return config, nil
}

// slogLevel maps the short level names onto slog levels. TRA and VDE
// both land below Debug; slog has no finer tiers.
func slogLevel(name string) (slog.Level, error) {
	switch name {
	case "ERR":
		return slog.LevelError, nil
	case "WAR":
		return slog.LevelWarn, nil
	case "INF":
		return slog.LevelInfo, nil
	case "DEB":
		return slog.LevelDebug, nil
	case "TRA", "VDE":
		return slog.LevelDebug - 4, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (want ERR, WAR, INF, DEB, TRA, or VDE)", name)
	}
}
