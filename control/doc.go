// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package control defines the CBOR-encoded message types for the
// daemon's admin socket: the operator-facing surface for inspecting an
// agent without an SSH client. Both cmd/sshagentd and cmd/sshagentctl
// import this package so the wire types are defined once rather than
// mirrored.
//
// The protocol is one request, one response per connection, each
// framed as uint32 length || CBOR body. [ReadMessage] and
// [WriteMessage] implement the framing. Passphrases never travel over
// this socket; lock and unlock requests name a file for the daemon to
// read the passphrase from, keeping secret material off the IPC path.
// The name "-" makes the daemon read its own standard input; the
// client's standard input is not relayed.
//
// Depends on github.com/fxamacker/cbor/v2. No other internal
// dependencies.
package control
