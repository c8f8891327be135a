// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sshkey implements the cryptographic capability behind the
// agent: parsing SSH wire private keys, deriving canonical public
// blobs, signing, verifying, and rendering fingerprints.
//
// [Algorithm] is the per-algorithm contract — one implementation per
// SSH algorithm name — and [PrivateKey] is the opaque handle an
// algorithm returns from parsing. [Registry] maps algorithm names to
// implementations; [DefaultRegistry] registers ssh-ed25519, ssh-ed448,
// ssh-rsa, and the three ecdsa-sha2-nistp curves. There is no package
// global: the embedder builds a registry at initialization and plumbs
// it into the message decoder and key manager explicitly.
//
// The wire layouts are the stable SSH conventions:
//
//   - ssh-ed25519: blob public || blob private(seed||public)
//   - ssh-ed448: blob public || blob private
//   - ssh-rsa: mpint n || mpint e || mpint d || blob iqmp || mpint p || mpint q
//   - ecdsa-sha2-nistp{256,384,521}: string curve || blob Q || mpint d
//
// Signatures are SSH-framed (string algorithm || blob raw); for RSA
// the algorithm varies with the sign-request flags (ssh-rsa,
// rsa-sha2-256, rsa-sha2-512), and verification dispatches on the
// framed name. ECDSA raw signatures are an inner blob of mpint r ||
// mpint s.
//
// Fingerprints are SHA-256 over the public wire blob, base64 without
// padding, prefixed "SHA256:". [Randomart] renders the OpenSSH-style
// visual key from the same digest.
//
// Ed448 comes from github.com/cloudflare/circl (no stdlib
// implementation); everything else is stdlib crypto. Depends on
// lib/wire and lib/secret.
package sshkey
