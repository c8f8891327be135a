// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package message

import (
	"fmt"

	"github.com/bureau-foundation/sshagent/lib/wire"
)

// ParseRemoveIdentity decodes a remove-identity frame, returning the
// public blob that addresses the key to remove.
func ParseRemoveIdentity(frame Frame) ([]byte, error) {
	if frame.Type != TypeRemoveIdentity {
		return nil, fmt.Errorf("%w: %s is not a remove-identity", ErrBadType, frame.Type)
	}
	reader := wire.NewReader(frame.Payload)
	blob, err := reader.ReadBlob()
	if err != nil {
		return nil, fmt.Errorf("remove-identity: reading key blob: %w", err)
	}
	return blob, nil
}

// EncodeRemoveIdentity encodes a remove-identity frame for a client.
func EncodeRemoveIdentity(publicBlob []byte) ([]byte, error) {
	writer := wire.NewWriter()
	if err := beginFrame(writer, TypeRemoveIdentity); err != nil {
		return nil, err
	}
	if err := writer.WriteBlob(publicBlob); err != nil {
		return nil, err
	}
	if err := writer.Finalize(); err != nil {
		return nil, err
	}
	return writer.Bytes(), nil
}
