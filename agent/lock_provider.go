// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/bureau-foundation/sshagent/lib/secret"
)

// LockProvider stores a verifier for the global lock passphrase. The
// manager calls Lock when the agent locks and Verify on every unlock
// attempt. The provider must never retain the passphrase itself, only
// a derived verifier.
type LockProvider interface {
	// Lock derives and stores a verifier for the passphrase.
	Lock(passphrase *secret.Buffer) error

	// Verify checks a passphrase against the stored verifier.
	Verify(passphrase *secret.Buffer) bool
}

// Argon2id parameters for the lock verifier. Unlock is interactive
// and rate-limited by the manager's backoff, so moderate cost is
// enough.
const (
	argon2Time    = 2
	argon2Memory  = 64 * 1024 // KiB
	argon2Threads = 1
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// Argon2LockProvider is the stock LockProvider: an argon2id hash with
// a fresh random salt per lock.
type Argon2LockProvider struct {
	salt []byte
	hash []byte
}

// NewArgon2LockProvider returns an empty provider. The verifier is
// populated on the first Lock.
func NewArgon2LockProvider() *Argon2LockProvider {
	return &Argon2LockProvider{}
}

// Lock derives the argon2id verifier for the passphrase, replacing any
// previous one.
func (p *Argon2LockProvider) Lock(passphrase *secret.Buffer) error {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("agent: generating lock salt: %w", err)
	}
	p.salt = salt
	p.hash = argon2.IDKey(passphrase.Bytes(), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return nil
}

// Verify checks the passphrase against the stored verifier in constant
// time. A provider that was never locked verifies nothing.
func (p *Argon2LockProvider) Verify(passphrase *secret.Buffer) bool {
	if p.hash == nil {
		return false
	}
	candidate := argon2.IDKey(passphrase.Bytes(), p.salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return subtle.ConstantTimeCompare(candidate, p.hash) == 1
}
