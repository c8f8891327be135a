// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"fmt"
	"time"

	"github.com/bureau-foundation/sshagent/constraint"
	"github.com/bureau-foundation/sshagent/lib/sealed"
	"github.com/bureau-foundation/sshagent/lib/secret"
	"github.com/bureau-foundation/sshagent/sshkey"
)

// Key is one identity held by the manager: the public half (always
// visible) plus the private handle, which is live while the agent is
// unlocked and sealed under the lock passphrase otherwise.
//
// Keys are owned by the manager; sessions look them up by public blob
// for the duration of a single operation and must not cache pointers.
type Key struct {
	algorithm sshkey.Algorithm

	publicBlob  []byte
	fingerprint string
	comment     string

	private sshkey.PrivateKey // nil while locked
	sealedP []byte            // age ciphertext of the private layout while locked

	addedAt         time.Time
	lifetime        uint32 // seconds, 0 means no expiry
	confirmRequired bool
	constraints     []constraint.DestinationConstraint
}

// Type returns the SSH algorithm name, e.g. "ssh-ed25519".
func (k *Key) Type() string { return k.algorithm.Name() }

// Family returns the display family, e.g. "ED25519".
func (k *Key) Family() string { return k.algorithm.Family() }

// Bits returns the key size for display.
func (k *Key) Bits() int { return k.algorithm.Bits(k.publicBlob) }

// PublicBlob returns the canonical public wire blob. The slice is
// shared; callers must not modify it.
func (k *Key) PublicBlob() []byte { return k.publicBlob }

// Fingerprint returns the SHA256 display fingerprint.
func (k *Key) Fingerprint() string { return k.fingerprint }

// Comment returns the human comment attached at add time.
func (k *Key) Comment() string { return k.comment }

// ConfirmRequired reports whether the key was added with the confirm
// constraint.
func (k *Key) ConfirmRequired() bool { return k.confirmRequired }

// Constraints returns the key's destination constraints. The slice is
// shared; callers must not modify it.
func (k *Key) Constraints() []constraint.DestinationConstraint { return k.constraints }

// Randomart renders the visual fingerprint of the key.
func (k *Key) Randomart() []string {
	return sshkey.Randomart(k.publicBlob, k.Family(), k.Bits())
}

// AuthorizedLine renders the key as an authorized_keys line.
func (k *Key) AuthorizedLine() string {
	return sshkey.AuthorizedLine(k.Type(), k.publicBlob, k.comment)
}

// Sign produces the SSH-framed signature over data. Fails while the
// key is sealed under the lock passphrase.
func (k *Key) Sign(data []byte, flags uint32) ([]byte, error) {
	if k.private == nil {
		return nil, ErrLocked
	}
	return k.private.Sign(data, flags)
}

// Permitted evaluates the key's destination constraints against a
// session binding chain. Listing passes user == "".
func (k *Key) Permitted(bindings []constraint.Binding, bindingFailed bool, user string, matchInfo *constraint.MatchInfo) bool {
	return constraint.Permitted(k.constraints, bindings, bindingFailed, user, matchInfo)
}

// expired reports whether the key's lifetime has elapsed at now.
func (k *Key) expired(now time.Time) bool {
	return k.lifetime > 0 && now.Sub(k.addedAt) >= time.Duration(k.lifetime)*time.Second
}

// seal encrypts the private layout under the lock passphrase and
// destroys the live handle. Signing fails until unseal.
func (k *Key) seal(passphrase *secret.Buffer) error {
	plaintext, err := k.private.Marshal()
	if err != nil {
		return fmt.Errorf("agent: serializing %s for sealing: %w", k.fingerprint, err)
	}
	defer plaintext.Close()

	ciphertext, err := sealed.Seal(plaintext, passphrase)
	if err != nil {
		return fmt.Errorf("agent: sealing %s: %w", k.fingerprint, err)
	}
	k.sealedP = ciphertext
	k.private.Destroy()
	k.private = nil
	return nil
}

// unseal decrypts the private layout and rebuilds the live handle. A
// wrong passphrase surfaces as an error from the decrypt.
func (k *Key) unseal(passphrase *secret.Buffer) error {
	plaintext, err := sealed.Unseal(k.sealedP, passphrase)
	if err != nil {
		return fmt.Errorf("agent: unsealing %s: %w", k.fingerprint, err)
	}
	defer plaintext.Close()

	private, err := k.algorithm.ParsePrivate(plaintext.Bytes())
	if err != nil {
		return fmt.Errorf("agent: rebuilding %s after unseal: %w", k.fingerprint, err)
	}
	k.private = private
	k.sealedP = nil
	return nil
}

// destroy wipes what can be wiped when the key leaves the store.
func (k *Key) destroy() {
	if k.private != nil {
		k.private.Destroy()
		k.private = nil
	}
	k.sealedP = nil
}
