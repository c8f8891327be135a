// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package extension

import (
	"fmt"

	"github.com/bureau-foundation/sshagent/constraint"
	"github.com/bureau-foundation/sshagent/lib/wire"
	"github.com/bureau-foundation/sshagent/sshkey"
)

// SessionBindName is the wire name of the session-bind extension.
const SessionBindName = "session-bind@openssh.com"

// SessionBind is the session-bind@openssh.com message extension: a
// signed declaration from the SSH client that this agent connection is
// scoped to a particular (host key, session id), optionally as a
// forwarding hop. Decoding verifies the signature; a bind that does
// not verify must poison the session (the session handles that on the
// error return).
type SessionBind struct {
	keys *sshkey.Registry

	HostKey   []byte
	SessionID []byte
	Signature []byte
	Forwarded bool
}

// Name returns the extension's wire name.
func (s *SessionBind) Name() string { return SessionBindName }

// Decode reads blob host_key || blob session_id || blob signature ||
// byte forwarded, then verifies that the signature is a valid
// signature of the session id under the host key.
func (s *SessionBind) Decode(reader *wire.Reader) error {
	var err error
	if s.HostKey, err = reader.ReadBlob(); err != nil {
		return fmt.Errorf("session-bind: reading host key: %w", err)
	}
	if s.SessionID, err = reader.ReadBlob(); err != nil {
		return fmt.Errorf("session-bind: reading session id: %w", err)
	}
	if s.Signature, err = reader.ReadBlob(); err != nil {
		return fmt.Errorf("session-bind: reading signature: %w", err)
	}
	forwarded, err := reader.ReadByte()
	if err != nil {
		return fmt.Errorf("session-bind: reading forwarded flag: %w", err)
	}
	s.Forwarded = forwarded != 0

	if err := s.keys.Verify(s.HostKey, s.SessionID, s.Signature); err != nil {
		return fmt.Errorf("session-bind: signature verification failed: %w", err)
	}
	return nil
}

// Binding returns the session binding this extension carries.
func (s *SessionBind) Binding() constraint.Binding {
	return constraint.Binding{
		HostKey:   s.HostKey,
		SessionID: s.SessionID,
		Forwarded: s.Forwarded,
	}
}
