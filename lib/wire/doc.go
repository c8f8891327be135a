// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire implements the length-prefixed SSH binary encoding that
// every agent message and key blob is built from: byte, uint32, string,
// blob, and mpint primitives, all big-endian.
//
// [Reader] decodes from a byte slice with strict bounds checking; any
// read past the end fails with [ErrUnderflow]. [Writer] encodes into a
// growing buffer with a hard 256 KiB ceiling ([ErrOverflow]) and a
// [Writer.Finalize] operation that backfills the leading uint32 with
// the message length, which is how the outer agent frame is stamped
// after payload assembly.
//
// mpints are canonical two's-complement big-endian: on read a single
// leading 0x00 is stripped iff the next byte has its high bit set, on
// write a 0x00 is prepended iff the first byte's high bit is set.
//
// Secure variants ([Reader.ReadBlobSecure], [Reader.ReadMPIntSecure],
// [Writer.BytesSecure]) move decoded bytes into lib/secret buffers so
// key material never lingers on the Go heap longer than the enclosing
// frame.
//
// Depends on lib/secret. No other internal dependencies.
package wire
