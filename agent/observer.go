// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

// Observer receives key manager events. Observers are invoked
// synchronously on the mutating goroutine and must not call back into
// the manager.
type Observer interface {
	// KeyAdded fires after an identity is inserted.
	KeyAdded(key *Key)

	// KeyPreRemove fires before an identity is erased, while its
	// handle is still valid.
	KeyPreRemove(key *Key)

	// KeyRemoved fires after an identity is erased.
	KeyRemoved(fingerprint string)

	// KeysCleared fires after remove-all has emptied the store.
	KeysCleared()

	// KeyUsed fires when a session signs with a key.
	KeyUsed(key *Key, session *Session)

	// KeyDeclined fires when the confirmation hook refuses a signing.
	KeyDeclined(key *Key, session *Session)

	// Locked fires when the manager locks.
	Locked()

	// Unlocked fires when the manager unlocks.
	Unlocked()
}

// NopObserver implements Observer with empty methods, for embedders
// that care about a subset of events.
type NopObserver struct{}

func (NopObserver) KeyAdded(*Key) {}
func (NopObserver) KeyPreRemove(*Key) {}
func (NopObserver) KeyRemoved(string) {}
func (NopObserver) KeysCleared() {}
func (NopObserver) KeyUsed(*Key, *Session) {}
func (NopObserver) KeyDeclined(*Key, *Session) {}
func (NopObserver) Locked() {}
func (NopObserver) Unlocked() {}
