// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package message

import (
	"fmt"

	"github.com/bureau-foundation/sshagent/lib/secret"
	"github.com/bureau-foundation/sshagent/lib/wire"
)

// ParsePassphrase decodes a lock or unlock frame, returning the
// passphrase in a secret buffer. The caller owns the buffer and must
// Close it.
func ParsePassphrase(frame Frame) (*secret.Buffer, error) {
	if frame.Type != TypeLock && frame.Type != TypeUnlock {
		return nil, fmt.Errorf("%w: %s is not a lock or unlock", ErrBadType, frame.Type)
	}
	reader := wire.NewReader(frame.Payload)
	passphrase, err := reader.ReadBlobSecure()
	if err != nil {
		return nil, fmt.Errorf("lock: reading passphrase: %w", err)
	}
	return passphrase, nil
}

// EncodeLock encodes a lock frame. The passphrase buffer is read but
// not closed. The returned frame carries the passphrase; the caller
// must wipe it (secret.Zero) after sending.
func EncodeLock(passphrase *secret.Buffer) ([]byte, error) {
	return encodePassphrase(TypeLock, passphrase)
}

// EncodeUnlock encodes an unlock frame, with the same caveats as
// EncodeLock.
func EncodeUnlock(passphrase *secret.Buffer) ([]byte, error) {
	return encodePassphrase(TypeUnlock, passphrase)
}

func encodePassphrase(t Type, passphrase *secret.Buffer) ([]byte, error) {
	writer := wire.NewWriter()
	if err := beginFrame(writer, t); err != nil {
		return nil, err
	}
	if err := writer.WriteBlobSecure(passphrase); err != nil {
		return nil, err
	}
	if err := writer.Finalize(); err != nil {
		return nil, err
	}
	return writer.Bytes(), nil
}
