// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for the pieces of the agent that do
// time arithmetic: identity lifetimes, the unlock brute-force backoff
// deadline, and the daemon's periodic expiry sweep. Production code
// injects [Real]; tests inject [Fake] and advance it deterministically.
//
// The interface is deliberately small -- Now, After, NewTicker, Sleep.
// Anything the agent does with time goes through it; no production
// function calls the time package directly.
//
// No internal dependencies. Imported by agent and cmd/sshagentd.
package clock
