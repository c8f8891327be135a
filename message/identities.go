// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package message

import (
	"fmt"

	"github.com/bureau-foundation/sshagent/lib/wire"
)

// Identity is one entry of an identities-answer: the public wire blob
// and its comment.
type Identity struct {
	Blob    []byte
	Comment string
}

// EncodeIdentitiesAnswer encodes an identities-answer frame.
func EncodeIdentitiesAnswer(identities []Identity) ([]byte, error) {
	writer := wire.NewWriter()
	if err := beginFrame(writer, TypeIdentitiesAnswer); err != nil {
		return nil, err
	}
	if err := writer.WriteUint32(uint32(len(identities))); err != nil {
		return nil, err
	}
	for _, identity := range identities {
		if err := writer.WriteBlob(identity.Blob); err != nil {
			return nil, err
		}
		if err := writer.WriteString(identity.Comment); err != nil {
			return nil, err
		}
	}
	if err := writer.Finalize(); err != nil {
		return nil, err
	}
	return writer.Bytes(), nil
}

// ParseIdentitiesAnswer decodes an identities-answer frame.
func ParseIdentitiesAnswer(frame Frame) ([]Identity, error) {
	if frame.Type != TypeIdentitiesAnswer {
		return nil, fmt.Errorf("%w: %s is not an identities answer", ErrBadType, frame.Type)
	}
	reader := wire.NewReader(frame.Payload)
	count, err := reader.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("identities-answer: reading count: %w", err)
	}
	identities := make([]Identity, 0, count)
	for range count {
		var identity Identity
		if identity.Blob, err = reader.ReadBlob(); err != nil {
			return nil, fmt.Errorf("identities-answer: reading key blob: %w", err)
		}
		if identity.Comment, err = reader.ReadString(); err != nil {
			return nil, fmt.Errorf("identities-answer: reading comment: %w", err)
		}
		identities = append(identities, identity)
	}
	return identities, nil
}
