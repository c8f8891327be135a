// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package constraint implements OpenSSH destination constraints: the
// data model for hops and from/to constraint pairs, and the evaluator
// that walks a session's binding chain to decide whether a constrained
// key may sign for a given endpoint and user.
//
// A [Hop] is one end of an SSH connection: user, hostname, and the
// host keys that authenticate it. The empty hop means "any endpoint";
// decoding enforces that hops carry no extensions. A
// [DestinationConstraint] pairs a from-hop with a to-hop and enforces
// the wire invariants at decode time: the to-hop must carry a hostname
// and at least one key, the from-hop must carry no user, and the
// from-hop's hostname and key list are either both present or both
// absent.
//
// [Permitted] is the sign-time decision. It threads a from-key through
// the session's ordered [Binding] list — each binding's host key
// becomes the from-key of the next step — and requires every step to
// match at least one constraint. Forwarding semantics are enforced on
// the walk: interior bindings must be forwarded, a terminal forwarded
// binding refuses signing, and a listing on a forwarded terminal
// additionally requires a constraint permitting travel beyond the
// final hop.
//
// Host keys marked as certificate authorities are skipped during key
// matching rather than verified; a constraint whose hops carry only CA
// keys matches nothing. User matching is exact string comparison, not
// the pattern matching stock OpenSSH applies.
//
// Depends on lib/wire. Imported by extension and agent.
package constraint
