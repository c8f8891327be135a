// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret provides a memory-safe byte container for sensitive
// agent state: passphrases, private key blobs, locked key exports, and
// the raw frames that carry them.
//
// [Buffer] allocates memory outside the Go heap via mmap(MAP_ANONYMOUS),
// locks it into physical RAM via mlock (preventing swap), and marks it
// excluded from core dumps via madvise(MADV_DONTDUMP). On Close, the
// memory is zeroed, unlocked, and unmapped. Because the memory lives
// outside the Go heap, the garbage collector cannot copy or relocate
// it, so secret material does not persist after release.
//
// Constructors:
//
//   - [New] -- allocates a zero-filled buffer of a given size
//   - [NewFromBytes] -- copies into protected memory, zeros the source
//   - [Copy] -- copies into protected memory, leaves the source alone
//     (for slices the caller does not own, e.g. an inbound frame)
//   - [ReadPassphrase] -- reads a passphrase from a file or stdin
//
// [Buffer.Append] grows a buffer by relocating it to a larger mapping
// and zeroing the old one, so a buffer can accumulate data without
// ever leaving a stale copy behind. [Buffer.Equal] compares in
// constant time. [Zero] wipes a plain heap slice in place for the
// cases where a Buffer is overkill.
//
// Zero-length buffers are valid and carry no mapping; empty
// passphrases and empty wire blobs are legitimate.
//
// Depends on golang.org/x/sys/unix. No internal dependencies.
// Imported by lib/wire, lib/sealed, sshkey, and agent.
package secret
