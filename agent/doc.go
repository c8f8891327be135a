// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent is the core of the embeddable SSH authentication
// agent: the key manager that holds identities in memory and the
// per-connection session state machine that speaks the
// draft-ietf-sshm-ssh-agent protocol over an embedder-provided
// transport.
//
// # Manager
//
// [Manager] owns the identity list: insertion with dedup by canonical
// public blob, removal, expiry sweeps, the global passphrase lock with
// brute-force backoff on unlock, and the observer bus. It is
// process-scoped and serializes all mutation internally; sessions look
// identities up by public blob on every request rather than holding
// pointers. Locking seals every private key under the passphrase (via
// lib/sealed) and drops the live handle, so signing is impossible
// until unlock even if a handle pointer leaked.
//
// The manager requires a [LockProvider] before Lock is ever called;
// calling Lock without one panics, because silently skipping the
// passphrase verifier would compromise the lock semantic.
// [NewArgon2LockProvider] is the stock implementation.
//
// # Session
//
// [Session] processes raw byte batches from the transport: it
// reassembles partial frames, parses as many complete frames as are
// present, and dispatches each through the lock gate to the message
// handlers. Session-bind extensions accumulate on the session; a bind
// that fails verification permanently poisons it. Sign requests on
// destination-constrained keys parse the userauth data, evaluate the
// constraint chain, and pin the request to the most recent binding's
// session id.
//
// The embedder connects a session to the world through [Handler]:
// sending reply frames, confirming key use, intercepting extensions,
// and naming the client. Confirmation may block; with Async set the
// session runs sign and list handling on a goroutine so the transport
// loop is not held. A second sign or list arriving while one is
// outstanding is a programmer error ([ErrConcurrentRequest]) and the
// transport must drop the session.
//
// Depends on lib/secret, lib/sealed, lib/clock, lib/wire, sshkey,
// message, constraint, and extension. Logging is log/slog; events go
// to [Observer] subscribers. github.com/zeebo/blake3 provides the
// manager's key index digests, golang.org/x/crypto/argon2 the lock
// verifier.
package agent
