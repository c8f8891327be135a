// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package extension

import (
	"fmt"

	"github.com/bureau-foundation/sshagent/constraint"
	"github.com/bureau-foundation/sshagent/lib/wire"
)

// RestrictDestinationName is the wire name of the restrict-destination
// constraint extension.
const RestrictDestinationName = "restrict-destination-v00@openssh.com"

// RestrictDestination is the restrict-destination-v00@openssh.com
// constraint extension: the list of destination constraints attached
// to a key by ssh-add -h. When present on an add-identity message, the
// list replaces the key's constraints wholesale.
type RestrictDestination struct {
	Constraints []constraint.DestinationConstraint
}

// Name returns the extension's wire name.
func (e *RestrictDestination) Name() string { return RestrictDestinationName }

// Decode reads a blob holding one or more concatenated constraint
// blobs. An empty body is malformed: a restriction to nowhere is a
// client bug, not "no restriction".
func (e *RestrictDestination) Decode(reader *wire.Reader) error {
	body, err := reader.ReadBlob()
	if err != nil {
		return fmt.Errorf("restrict-destination: reading body: %w", err)
	}
	if len(body) == 0 {
		return fmt.Errorf("restrict-destination: empty constraint list")
	}

	inner := wire.NewReader(body)
	for inner.Remaining() > 0 {
		blob, err := inner.ReadBlob()
		if err != nil {
			return fmt.Errorf("restrict-destination: reading constraint: %w", err)
		}
		parsed, err := constraint.Parse(blob)
		if err != nil {
			return err
		}
		e.Constraints = append(e.Constraints, parsed)
	}
	return nil
}
