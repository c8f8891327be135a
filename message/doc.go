// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package message implements the agent wire messages of
// draft-ietf-sshm-ssh-agent: the outer frame
// (uint32 length || byte type || payload), the client request decoders
// the session dispatches on, and the reply encoders.
//
// [SplitFrames] segments a byte stream into complete frames and
// returns the unconsumed remainder, which is how the session handles
// partial reads and back-to-back frames without mis-segmenting.
//
// Request decoders ([ParseAddIdentity], [ParseSignRequest],
// [ParseRemoveIdentity], [ParsePassphrase], [ParseExtension]) take a
// [Frame] and return typed values. Add-identity does not re-parse the
// private key: it asks the key registry to skip over the private-key
// layout and captures the byte range into a secret buffer, so the key
// manager can hand the same bytes to the crypto backend untouched.
// Constrained add-identity decodes the trailing TLV constraints
// (lifetime = 1, confirm = 2, extension = 255); an unknown tag fails
// the whole message with [ErrBadConstraint].
//
// [ParseUserAuth] decodes the data-to-be-signed of a hostbound
// publickey userauth request, which is what destination-constraint
// enforcement reads the username and session id from.
//
// Encoders exist for both directions: replies ([EncodeSimple],
// [EncodeSignResponse], [EncodeIdentitiesAnswer]) and the client-side
// requests an ssh-add-like tool or a test needs ([AddIdentitySpec],
// [SignRequest.Encode], [EncodeLock], ...).
//
// Depends on lib/wire, lib/secret, sshkey, extension, and constraint.
package message
