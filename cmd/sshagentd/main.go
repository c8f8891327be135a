// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// sshagentd is a reference agent daemon built on the agent library: a
// Unix-socket transport for SSH clients plus a CBOR admin socket for
// operators.
//
// Usage:
//
//	sshagentd [--config sshagentd.yaml] [--socket /path/agent.sock]
//
// Point SSH_AUTH_SOCK at the agent socket and stock ssh, ssh-add, and
// ssh-agent forwarding interoperate. Exit status is 0 on clean
// shutdown and 1 on transport setup failure.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/sshagent/agent"
	"github.com/bureau-foundation/sshagent/extension"
	"github.com/bureau-foundation/sshagent/lib/clock"
	"github.com/bureau-foundation/sshagent/sshkey"
)

func main() {
	configPath := pflag.String("config", "", "path to YAML config (or SSHAGENTD_CONFIG)")
	socketOverride := pflag.String("socket", "", "agent socket path (overrides config)")
	pflag.Parse()

	config, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *socketOverride != "" {
		config.SocketPath = *socketOverride
		config.ControlSocketPath = config.SocketPath + ".admin.sock"
	}

	level, err := slogLevel(config.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config, logger); err != nil {
		logger.Error("agent failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, config Config, logger *slog.Logger) error {
	algorithms := sshkey.DefaultRegistry()
	extensions := extension.DefaultRegistry(algorithms)
	manager := agent.NewManager(agent.ManagerConfig{
		Algorithms:   algorithms,
		Clock:        clock.Real(),
		Logger:       logger,
		LockProvider: agent.NewArgon2LockProvider(),
	})

	// Agent socket, reachable by SSH clients.
	agentListener, err := listenUnix(config.SocketPath)
	if err != nil {
		return err
	}
	defer agentListener.Close()
	defer os.Remove(config.SocketPath)

	// Admin socket, daemon-only.
	controlListener, err := listenUnix(config.ControlSocketPath)
	if err != nil {
		return err
	}
	defer controlListener.Close()
	defer os.Remove(config.ControlSocketPath)

	logger.Info("agent listening",
		"socket", config.SocketPath, "control_socket", config.ControlSocketPath)

	// Periodic expiry sweep; the manager does not run its own timer.
	sweeper := clock.Real().NewTicker(config.SweepInterval())
	defer sweeper.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sweeper.C:
				manager.CleanupExpired()
			}
		}
	}()

	go serveControl(ctx, controlListener, manager, config, logger)

	go func() {
		<-ctx.Done()
		agentListener.Close()
		controlListener.Close()
	}()

	for {
		conn, err := agentListener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("shutting down")
				return nil
			}
			return fmt.Errorf("accepting agent connection: %w", err)
		}
		go serveSession(ctx, conn.(*net.UnixConn), manager, extensions, config, logger)
	}
}

func listenUnix(path string) (*net.UnixListener, error) {
	// A stale socket from an unclean shutdown blocks the bind; remove
	// it. A live agent on the same path loses, which is the historical
	// ssh-agent behavior.
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("removing stale socket %s: %w", path, err)
	}
	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("restricting %s: %w", path, err)
	}
	return listener, nil
}

func serveSession(ctx context.Context, conn *net.UnixConn, manager *agent.Manager,
	extensions *extension.Registry, config Config, logger *slog.Logger) {
	defer conn.Close()

	handler := newConnHandler(conn, config, logger)
	session := agent.NewSession(agent.SessionConfig{
		Manager:    manager,
		Extensions: extensions,
		Handler:    handler,
		Logger:     logger,
		Async:      config.AsyncOperations,
	})
	defer session.Close()

	logger.Debug("client connected", "client", handler.Client())

	buffer := make([]byte, 4096)
	for {
		n, err := conn.Read(buffer)
		if err != nil {
			if err != io.EOF && ctx.Err() == nil {
				logger.Debug("connection read failed", "client", handler.Client(), "error", err)
			}
			return
		}
		if err := session.Process(buffer[:n]); err != nil {
			// Fatal for this session only: malformed framing or a
			// concurrent blocking request.
			logger.Error("dropping session", "client", handler.Client(), "error", err)
			return
		}
	}
}
