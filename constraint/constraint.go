// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package constraint

import (
	"fmt"

	"github.com/bureau-foundation/sshagent/lib/wire"
)

// MatchInfo records the hop pair and user of the last constraint that
// matched, for confirmation prompts. The session clears it at every
// sign-request boundary.
type MatchInfo struct {
	From string
	To   string
	User string
}

// Clear resets the match info.
func (m *MatchInfo) Clear() {
	*m = MatchInfo{}
}

// DestinationConstraint restricts which remote host and user a key may
// sign for: a from-hop (where the connection originates; empty means
// the local host) and a to-hop (where it terminates).
type DestinationConstraint struct {
	From Hop
	To   Hop
}

// Parse decodes a destination constraint blob: blob from_hop ||
// blob to_hop || blob extensions. Extensions are not supported.
// Invariants enforced here: the to-hop carries a hostname and at least
// one key; the from-hop carries no user; the from-hop's hostname and
// keys are either both present or both absent.
func Parse(data []byte) (DestinationConstraint, error) {
	reader := wire.NewReader(data)
	fromBlob, err := reader.ReadBlob()
	if err != nil {
		return DestinationConstraint{}, fmt.Errorf("constraint: reading from hop: %w", err)
	}
	toBlob, err := reader.ReadBlob()
	if err != nil {
		return DestinationConstraint{}, fmt.Errorf("constraint: reading to hop: %w", err)
	}
	extensions, err := reader.ReadBlob()
	if err != nil {
		return DestinationConstraint{}, fmt.Errorf("constraint: reading extensions: %w", err)
	}
	if len(extensions) > 0 {
		return DestinationConstraint{}, fmt.Errorf("constraint: extensions in destination constraint not supported")
	}

	from, err := ParseHop(fromBlob)
	if err != nil {
		return DestinationConstraint{}, err
	}
	to, err := ParseHop(toBlob)
	if err != nil {
		return DestinationConstraint{}, err
	}

	if (from.Hostname == "") != (len(from.Keys) == 0) || from.User != "" {
		return DestinationConstraint{}, fmt.Errorf("constraint: invalid from hop")
	}
	if to.Hostname == "" || len(to.Keys) == 0 {
		return DestinationConstraint{}, fmt.Errorf("constraint: invalid to hop")
	}

	return DestinationConstraint{From: from, To: to}, nil
}

// Marshal encodes the constraint back to its wire form.
func (c DestinationConstraint) Marshal() ([]byte, error) {
	fromBlob, err := c.From.Marshal()
	if err != nil {
		return nil, err
	}
	toBlob, err := c.To.Marshal()
	if err != nil {
		return nil, err
	}
	writer := wire.NewWriter()
	if err := writer.WriteBlob(fromBlob); err != nil {
		return nil, err
	}
	if err := writer.WriteBlob(toBlob); err != nil {
		return nil, err
	}
	if err := writer.WriteBlob(nil); err != nil { // no extensions
		return nil, err
	}
	return writer.Bytes(), nil
}

// Matches evaluates the constraint against one step of a binding walk.
// An empty fromKey requires the constraint's from-hop to be the empty
// hop; a present fromKey must equal one of its non-CA keys. A present
// toKey must match the to-hop's keys the same way. A user is compared
// exactly against the to-hop's user when both are present. On a match,
// the hop hostnames and user are recorded into matchInfo (when
// non-nil).
func (c DestinationConstraint) Matches(fromKey, toKey []byte, user string, matchInfo *MatchInfo) bool {
	if len(fromKey) == 0 {
		if c.From.Hostname != "" || len(c.From.Keys) > 0 {
			return false
		}
	} else if !c.From.MatchesKey(fromKey) {
		return false
	}

	if len(toKey) > 0 && !c.To.MatchesKey(toKey) {
		return false
	}

	if c.To.User != "" && user != "" {
		// Stock OpenSSH treats this as a pattern; here it is an exact
		// match.
		if c.To.User != user {
			return false
		}
	}

	if matchInfo != nil {
		matchInfo.From = c.From.Hostname
		matchInfo.To = c.To.Hostname
		matchInfo.User = user
	}
	return true
}

// String renders the constraint as "from => to" for logs and prompts.
func (c DestinationConstraint) String() string {
	return c.From.String() + " => " + c.To.String()
}
