// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package constraint

// Binding is one session-bind record: the host key and session
// identifier a client bound the agent connection to, and whether the
// client declared the connection a forwarding hop.
type Binding struct {
	HostKey   []byte
	SessionID []byte
	Forwarded bool
}

// matchesAny reports whether any constraint matches the given step.
func matchesAny(constraints []DestinationConstraint, fromKey, toKey []byte, user string, matchInfo *MatchInfo) bool {
	for _, c := range constraints {
		if c.Matches(fromKey, toKey, user, matchInfo) {
			return true
		}
	}
	return false
}

// Permitted decides whether a key with the given destination
// constraints may be used on a session with the given binding chain.
// Listing uses user == ""; signing passes the username from the
// userauth request.
//
// The walk threads a from-key through the bindings in order: the first
// step starts from an empty from-key (the local host), and each
// binding's host key becomes the from-key of the next. Every step must
// match at least one constraint. Interior bindings must be forwarding
// hops; a terminal forwarding hop refuses signing but may still be
// listed, provided some constraint permits travel beyond it.
func Permitted(constraints []DestinationConstraint, bindings []Binding, bindingFailed bool, user string, matchInfo *MatchInfo) bool {
	if len(constraints) == 0 {
		return true
	}
	if bindingFailed {
		return false
	}
	// No bindings: an unconstrained listing, or a legacy client that
	// never bound. The constraints bind at sign time.
	if len(bindings) == 0 {
		return true
	}

	var fromKey []byte
	for i, binding := range bindings {
		if len(binding.HostKey) == 0 {
			return false
		}

		var userToCheck string
		if i == len(bindings)-1 {
			userToCheck = user
			if binding.Forwarded && userToCheck != "" {
				// Signing attempted on a forwarding hop.
				return false
			}
		} else if !binding.Forwarded {
			// A signing bind used as a forwarding hop.
			return false
		}

		if !matchesAny(constraints, fromKey, binding.HostKey, userToCheck, matchInfo) {
			return false
		}
		fromKey = binding.HostKey
	}

	// A listing on a forwarded terminal hop additionally requires a
	// constraint permitting travel onward from it; otherwise a key
	// scoped to the previous hop would appear available here.
	last := bindings[len(bindings)-1]
	if last.Forwarded && user == "" && !matchesAny(constraints, last.HostKey, nil, "", nil) {
		return false
	}

	return true
}
