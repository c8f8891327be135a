// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package extension implements the agent's named-extension mechanism:
// a registry mapping extension names to decoders, and the two OpenSSH
// extensions the agent speaks.
//
// Extensions come in two kinds with separate namespaces. Message
// extensions arrive as SSH_AGENTC_EXTENSION messages;
// [SessionBind] ("session-bind@openssh.com") is the one built in — it
// scopes an agent connection to a (host key, session id) pair and is
// verified at decode time: the carried signature must validate over
// the session id under the carried host key. Constraint extensions
// arrive as tag-255 TLVs inside constrained add-identity messages;
// [RestrictDestination] ("restrict-destination-v00@openssh.com")
// carries the destination constraints attached to a key.
//
// [Registry] is built at process initialization — [DefaultRegistry]
// wires both built-ins against the embedder's key registry — and
// plumbed into the message decoder and session explicitly; there is no
// package global. Unknown names fail lookup with [ErrUnknownExtension].
//
// Depends on lib/wire, constraint, and sshkey.
package extension
