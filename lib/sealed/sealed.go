// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"

	"github.com/bureau-foundation/sshagent/lib/secret"
)

// scryptWorkFactor is the log2 work factor passed to age's scrypt
// recipient. 18 matches the age CLI default: slow enough to blunt
// offline guessing of the lock passphrase, fast enough that locking an
// agent with dozens of keys stays interactive.
const scryptWorkFactor = 18

// Seal encrypts plaintext under the given passphrase using age's
// scrypt recipient. The plaintext buffer is read but not closed; the
// caller decides when to release it. The returned ciphertext is not
// sensitive and may live on the Go heap.
func Seal(plaintext *secret.Buffer, passphrase *secret.Buffer) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(passphrase.String())
	if err != nil {
		return nil, fmt.Errorf("sealed: creating scrypt recipient: %w", err)
	}
	recipient.SetWorkFactor(scryptWorkFactor)

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipient)
	if err != nil {
		return nil, fmt.Errorf("sealed: starting encryption: %w", err)
	}
	if _, err := writer.Write(plaintext.Bytes()); err != nil {
		return nil, fmt.Errorf("sealed: writing plaintext: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("sealed: finalizing encryption: %w", err)
	}
	return ciphertext.Bytes(), nil
}

// Unseal decrypts ciphertext produced by Seal with the given
// passphrase. The plaintext is returned in a fresh secret.Buffer that
// the caller must Close. A wrong passphrase is indistinguishable from
// corrupted ciphertext; both return an error.
func Unseal(ciphertext []byte, passphrase *secret.Buffer) (*secret.Buffer, error) {
	identity, err := age.NewScryptIdentity(passphrase.String())
	if err != nil {
		return nil, fmt.Errorf("sealed: creating scrypt identity: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("sealed: decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("sealed: reading plaintext: %w", err)
	}

	// NewFromBytes zeros the heap copy after moving it into the
	// protected region.
	buffer, err := secret.NewFromBytes(plaintext)
	if err != nil {
		return nil, err
	}
	return buffer, nil
}
