// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/bureau-foundation/sshagent/agent"
	"github.com/bureau-foundation/sshagent/constraint"
)

// connHandler wires one Unix socket connection into the session: the
// send path, the peer identity from SO_PEERCRED, and the confirmation
// prompt on the daemon's terminal.
type connHandler struct {
	conn    *net.UnixConn
	config  Config
	logger  *slog.Logger
	client  string
	writeMu sync.Mutex
}

func newConnHandler(conn *net.UnixConn, config Config, logger *slog.Logger) *connHandler {
	return &connHandler{
		conn:   conn,
		config: config,
		logger: logger,
		client: peerIdentity(conn),
	}
}

// peerIdentity names the connected peer from its socket credentials.
func peerIdentity(conn *net.UnixConn) string {
	raw, err := conn.SyscallConn()
	if err != nil {
		return "unknown"
	}
	var cred *unix.Ucred
	var credErr error
	controlErr := raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if controlErr != nil || credErr != nil || cred == nil {
		return "unknown"
	}
	return fmt.Sprintf("pid %d uid %d", cred.Pid, cred.Uid)
}

func (h *connHandler) Send(frame []byte) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	_, err := h.conn.Write(frame)
	return err
}

func (h *connHandler) Client() string { return h.client }

func (h *connHandler) RequiresConfirmation(key *agent.Key) bool {
	return h.config.ConfirmSignatures
}

func (h *connHandler) HandleExtension(name string, body []byte) bool {
	// No daemon-specific extensions; the library's built-ins apply.
	return false
}

// promptMu serializes confirmation prompts on the daemon's terminal
// across sessions.
var promptMu sync.Mutex

func (h *connHandler) ConfirmSign(key *agent.Key, info constraint.MatchInfo) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		h.logger.Warn("confirmation required but no terminal, refusing",
			"fingerprint", key.Fingerprint(), "client", h.client)
		return false
	}

	promptMu.Lock()
	defer promptMu.Unlock()

	fmt.Fprintf(os.Stderr, "\nAllow %s to sign with %s %s (%s)?\n",
		h.client, key.Type(), key.Fingerprint(), key.Comment())
	if info.To != "" {
		destination := info.To
		if info.User != "" {
			destination = info.User + "@" + destination
		}
		fmt.Fprintf(os.Stderr, "  destination: %s\n", destination)
	}
	fmt.Fprint(os.Stderr, "  [y/N] ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
