// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package constraint

import (
	"bytes"
	"fmt"

	"github.com/bureau-foundation/sshagent/lib/wire"
)

// HopKey is one host key attached to a hop. Keys flagged as
// certificate authorities are recorded but never matched; the agent
// does not perform certificate verification.
type HopKey struct {
	Blob []byte
	IsCA bool
}

// Hop describes one end of an SSH connection: the user and hostname
// the client claims, and the host keys that authenticate the far side.
// The zero Hop means "any endpoint".
type Hop struct {
	User     string
	Hostname string
	Keys     []HopKey
}

// ParseHop decodes a hop blob: string user || string hostname ||
// blob extensions || (blob key || byte is_ca)*. Extensions inside a
// hop are not supported and fail the decode.
func ParseHop(data []byte) (Hop, error) {
	reader := wire.NewReader(data)
	var hop Hop
	var err error

	if hop.User, err = reader.ReadString(); err != nil {
		return Hop{}, fmt.Errorf("constraint: reading hop user: %w", err)
	}
	if hop.Hostname, err = reader.ReadString(); err != nil {
		return Hop{}, fmt.Errorf("constraint: reading hop hostname: %w", err)
	}
	extensions, err := reader.ReadBlob()
	if err != nil {
		return Hop{}, fmt.Errorf("constraint: reading hop extensions: %w", err)
	}
	if len(extensions) > 0 {
		return Hop{}, fmt.Errorf("constraint: extensions in hop descriptor not supported")
	}

	for reader.Remaining() > 0 {
		blob, err := reader.ReadBlob()
		if err != nil {
			return Hop{}, fmt.Errorf("constraint: reading hop key: %w", err)
		}
		isCA, err := reader.ReadByte()
		if err != nil {
			return Hop{}, fmt.Errorf("constraint: reading hop key CA flag: %w", err)
		}
		hop.Keys = append(hop.Keys, HopKey{Blob: blob, IsCA: isCA != 0})
	}
	return hop, nil
}

// Marshal encodes the hop back to its wire form.
func (h Hop) Marshal() ([]byte, error) {
	writer := wire.NewWriter()
	if err := writer.WriteString(h.User); err != nil {
		return nil, err
	}
	if err := writer.WriteString(h.Hostname); err != nil {
		return nil, err
	}
	if err := writer.WriteBlob(nil); err != nil { // no extensions
		return nil, err
	}
	for _, key := range h.Keys {
		if err := writer.WriteBlob(key.Blob); err != nil {
			return nil, err
		}
		ca := byte(0)
		if key.IsCA {
			ca = 1
		}
		if err := writer.WriteByte(ca); err != nil {
			return nil, err
		}
	}
	return writer.Bytes(), nil
}

// IsEmpty reports whether the hop is the "any endpoint" hop.
func (h Hop) IsEmpty() bool {
	return h.User == "" && h.Hostname == "" && len(h.Keys) == 0
}

// MatchesKey reports whether any non-CA key of the hop equals key
// byte-for-byte. CA keys are skipped; an empty key entry never
// matches.
func (h Hop) MatchesKey(key []byte) bool {
	for _, hopKey := range h.Keys {
		if len(hopKey.Blob) == 0 {
			return false
		}
		if hopKey.IsCA {
			continue
		}
		if bytes.Equal(hopKey.Blob, key) {
			return true
		}
	}
	return false
}

// String renders the hop for logs and confirmation prompts: "Any" for
// the empty hop, otherwise "user@host (N keys)".
func (h Hop) String() string {
	if h.IsEmpty() {
		return "Any"
	}
	var out string
	if h.User != "" {
		out = h.User + "@"
	}
	out += h.Hostname
	if len(h.Keys) > 0 {
		out += fmt.Sprintf(" (%d keys)", len(h.Keys))
	}
	return out
}
