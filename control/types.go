// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Actions accepted on the admin socket.
const (
	ActionStatus    = "status"
	ActionListKeys  = "list-keys"
	ActionRemoveKey = "remove-key"
	ActionLock      = "lock"
	ActionUnlock    = "unlock"
)

// Request is a CBOR-encoded admin request.
type Request struct {
	// Action is one of the Action constants.
	Action string `cbor:"action"`

	// Fingerprint addresses a key for remove-key.
	Fingerprint string `cbor:"fingerprint,omitempty"`

	// PassphraseFile is a path the daemon reads the lock or unlock
	// passphrase from. The passphrase itself never crosses the admin
	// socket.
	PassphraseFile string `cbor:"passphrase_file,omitempty"`
}

// Response is a CBOR-encoded admin response.
type Response struct {
	// OK reports whether the action succeeded. Error carries the
	// reason when it did not.
	OK    bool   `cbor:"ok"`
	Error string `cbor:"error,omitempty"`

	// Status is set for status requests.
	Status *Status `cbor:"status,omitempty"`

	// Keys is set for list-keys requests.
	Keys []KeyInfo `cbor:"keys,omitempty"`
}

// Status is the agent-wide state snapshot.
type Status struct {
	Locked        bool   `cbor:"locked"`
	KeyCount      int    `cbor:"key_count"`
	UptimeSeconds int64  `cbor:"uptime_seconds"`
	SocketPath    string `cbor:"socket_path"`
}

// KeyInfo is one held identity as the admin surface presents it.
type KeyInfo struct {
	Fingerprint string `cbor:"fingerprint"`
	Type        string `cbor:"type"`
	Comment     string `cbor:"comment"`
	Bits        int    `cbor:"bits"`
	Family      string `cbor:"family"`
	Constrained bool   `cbor:"constrained"`
	Confirm     bool   `cbor:"confirm"`
	Lifetime    uint32 `cbor:"lifetime,omitempty"`
}

// maxMessageSize bounds an admin message. Listings are small; anything
// bigger is a protocol error.
const maxMessageSize = 1 << 20

// WriteMessage CBOR-encodes v and writes it as a length-prefixed
// frame.
func WriteMessage(w io.Writer, v any) error {
	body, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("control: encoding message: %w", err)
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("control: writing message header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("control: writing message body: %w", err)
	}
	return nil
}

// ReadMessage reads one length-prefixed frame and CBOR-decodes it
// into v.
func ReadMessage(r io.Reader, v any) error {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return fmt.Errorf("control: reading message header: %w", err)
	}
	length := binary.BigEndian.Uint32(header[:])
	if length > maxMessageSize {
		return fmt.Errorf("control: %d-byte message exceeds maximum %d", length, maxMessageSize)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return fmt.Errorf("control: reading message body: %w", err)
	}
	if err := cbor.Unmarshal(body, v); err != nil {
		return fmt.Errorf("control: decoding message: %w", err)
	}
	return nil
}
