// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/bureau-foundation/sshagent/agent"
	"github.com/bureau-foundation/sshagent/control"
	"github.com/bureau-foundation/sshagent/lib/clock"
	"github.com/bureau-foundation/sshagent/lib/secret"
)

// serveControl answers admin requests on the daemon-only socket: one
// request, one response per connection.
func serveControl(ctx context.Context, listener *net.UnixListener, manager *agent.Manager,
	config Config, logger *slog.Logger) {
	started := clock.Real().Now()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("accepting control connection", "error", err)
			}
			return
		}
		go func() {
			defer conn.Close()

			var request control.Request
			if err := control.ReadMessage(conn, &request); err != nil {
				logger.Debug("malformed control request", "error", err)
				return
			}
			response := handleControl(manager, config, started, request)
			if err := control.WriteMessage(conn, &response); err != nil {
				logger.Debug("writing control response", "error", err)
			}
		}()
	}
}

func handleControl(manager *agent.Manager, config Config, started time.Time,
	request control.Request) control.Response {
	switch request.Action {
	case control.ActionStatus:
		return control.Response{OK: true, Status: &control.Status{
			Locked:        manager.Locked(),
			KeyCount:      len(manager.Keys()),
			UptimeSeconds: int64(clock.Real().Now().Sub(started).Seconds()),
			SocketPath:    config.SocketPath,
		}}

	case control.ActionListKeys:
		keys := manager.Keys()
		infos := make([]control.KeyInfo, 0, len(keys))
		for _, key := range keys {
			infos = append(infos, control.KeyInfo{
				Fingerprint: key.Fingerprint(),
				Type:        key.Type(),
				Comment:     key.Comment(),
				Bits:        key.Bits(),
				Family:      key.Family(),
				Constrained: len(key.Constraints()) > 0,
				Confirm:     key.ConfirmRequired(),
			})
		}
		return control.Response{OK: true, Keys: infos}

	case control.ActionRemoveKey:
		key := manager.GetByFingerprint(request.Fingerprint)
		if key == nil {
			return errorResponse("no key with fingerprint %s", request.Fingerprint)
		}
		manager.Remove(key.PublicBlob())
		return control.Response{OK: true}

	case control.ActionLock, control.ActionUnlock:
		passphrase, err := secret.ReadPassphrase(request.PassphraseFile)
		if err != nil {
			return errorResponse("reading passphrase: %v", err)
		}
		defer passphrase.Close()
		if request.Action == control.ActionLock {
			err = manager.Lock(passphrase)
		} else {
			err = manager.Unlock(passphrase)
		}
		if err != nil {
			return errorResponse("%v", err)
		}
		return control.Response{OK: true}

	default:
		return errorResponse("unknown action %q", request.Action)
	}
}

func errorResponse(format string, args ...any) control.Response {
	return control.Response{OK: false, Error: fmt.Sprintf(format, args...)}
}
