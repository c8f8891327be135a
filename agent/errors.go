// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds surfaced by the manager and session. Everything here is
// recoverable at the session boundary (it becomes a FAILURE reply)
// except ErrConcurrentRequest, which terminates the offending session.
var (
	// ErrKeyNotFound is returned by Manager.Sign for a public blob the
	// manager does not hold. Manager.Remove of such a blob is a no-op.
	ErrKeyNotFound = errors.New("agent: key not found")

	// ErrNotPermitted names a refusal by destination constraints. The
	// session answers such a refusal with a FAILURE reply directly; no
	// function in this package returns this error.
	ErrNotPermitted = errors.New("agent: key not permitted by destination constraints")

	// ErrBindingFailed names a sign refusal on a session whose
	// session-bind verification failed. The session answers it with a
	// FAILURE reply directly; no function in this package returns it.
	ErrBindingFailed = errors.New("agent: session binding failed")

	// ErrLocked is returned by Key.Sign (and so Manager.Sign) while the
	// key is sealed under the lock passphrase. The session itself
	// answers every message other than unlock with FAILURE while the
	// manager is locked.
	ErrLocked = errors.New("agent: agent is locked")

	// ErrAlreadyLocked is returned for lock on a locked manager.
	ErrAlreadyLocked = errors.New("agent: agent is already locked")

	// ErrNotLocked is returned for unlock on an unlocked manager.
	ErrNotLocked = errors.New("agent: agent is not locked")

	// ErrBadPassphrase is returned for unlock with the wrong
	// passphrase. Each occurrence feeds the brute-force backoff.
	ErrBadPassphrase = errors.New("agent: incorrect passphrase")

	// ErrConcurrentRequest is returned by Session.Process when a sign
	// or identity-list request arrives while one is still
	// outstanding on the same session. This is a programmer error in
	// the embedder's transport wiring; the session must be dropped.
	ErrConcurrentRequest = errors.New("agent: concurrent request on session")
)

// BackoffError is returned for unlock attempts while the brute-force
// backoff window is closed. It wraps ErrBadPassphrase for errors.Is so
// callers that only care about "unlock failed" need no special case.
type BackoffError struct {
	// Wait is how long until the window reopens.
	Wait time.Duration
}

func (e *BackoffError) Error() string {
	return fmt.Sprintf("agent: too many failed unlock attempts, retry in %d seconds", int(e.Wait.Seconds()))
}

func (e *BackoffError) Unwrap() error { return ErrBadPassphrase }
