// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed provides passphrase-based encryption for private key
// material held by the agent. It wraps filippo.io/age's scrypt
// recipient to provide the two operations the key manager needs while
// the agent is locked: seal a private key's wire blob under the lock
// passphrase, and unseal it again on unlock.
//
// Sealing consumes the plaintext (the caller's secret.Buffer is read,
// not closed) and returns ciphertext as plain bytes -- age ciphertext
// is not sensitive, only the passphrase and plaintext are. Unsealing
// returns the plaintext in a fresh secret.Buffer (mmap-backed, locked
// against swap, excluded from core dumps, zeroed on close).
//
// A wrong passphrase surfaces as an error from [Unseal]; callers that
// count failed attempts (the key manager's unlock backoff) treat any
// unseal error as a failed attempt.
//
// Depends on filippo.io/age and lib/secret.
package sealed
