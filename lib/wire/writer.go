// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bureau-foundation/sshagent/lib/secret"
)

// MaxMessageSize is the hard ceiling on a serialized message. Agent
// messages are small; anything approaching this limit is malformed or
// hostile.
const MaxMessageSize = 256 * 1024

// ErrOverflow is returned when a write would grow the buffer past
// MaxMessageSize.
var ErrOverflow = errors.New("wire: message too large")

// Writer encodes SSH wire primitives into a growing buffer. Writer is
// not safe for concurrent use.
//
// The usual message pattern is: write a placeholder uint32, append the
// type byte and payload, then call Finalize to stamp the outer length.
type Writer struct {
	data []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.data)
}

func (w *Writer) grow(n int) error {
	if len(w.data)+n > MaxMessageSize {
		return fmt.Errorf("%w: %d + %d bytes exceeds %d", ErrOverflow, len(w.data), n, MaxMessageSize)
	}
	return nil
}

// WriteByte appends one octet.
func (w *Writer) WriteByte(b byte) error {
	if err := w.grow(1); err != nil {
		return err
	}
	w.data = append(w.data, b)
	return nil
}

// WriteUint32 appends a big-endian uint32.
func (w *Writer) WriteUint32(v uint32) error {
	if err := w.grow(4); err != nil {
		return err
	}
	w.data = binary.BigEndian.AppendUint32(w.data, v)
	return nil
}

// WriteUint32At overwrites four bytes at offset at with a big-endian
// uint32. The bytes must already have been written.
func (w *Writer) WriteUint32At(v uint32, at int) error {
	if at+4 > len(w.data) {
		return fmt.Errorf("wire: uint32 at offset %d past end of %d-byte buffer", at, len(w.data))
	}
	binary.BigEndian.PutUint32(w.data[at:], v)
	return nil
}

// WriteBlob appends a length-prefixed byte string.
func (w *Writer) WriteBlob(blob []byte) error {
	if err := w.grow(4 + len(blob)); err != nil {
		return err
	}
	w.data = binary.BigEndian.AppendUint32(w.data, uint32(len(blob)))
	w.data = append(w.data, blob...)
	return nil
}

// WriteBlobSecure appends a length-prefixed byte string read out of a
// secret.Buffer. The buffer is not consumed.
func (w *Writer) WriteBlobSecure(blob *secret.Buffer) error {
	return w.WriteBlob(blob.Bytes())
}

// WriteString appends a length-prefixed string.
func (w *Writer) WriteString(s string) error {
	if err := w.grow(4 + len(s)); err != nil {
		return err
	}
	w.data = binary.BigEndian.AppendUint32(w.data, uint32(len(s)))
	w.data = append(w.data, s...)
	return nil
}

// WriteMPInt appends a length-prefixed multi-precision integer in
// canonical positive form: a 0x00 is prepended iff the first byte has
// its high bit set. An empty magnitude encodes as length zero.
func (w *Writer) WriteMPInt(magnitude []byte) error {
	if len(magnitude) == 0 {
		return w.WriteUint32(0)
	}
	prependZero := magnitude[0]&0x80 != 0
	length := len(magnitude)
	if prependZero {
		length++
	}
	if err := w.grow(4 + length); err != nil {
		return err
	}
	w.data = binary.BigEndian.AppendUint32(w.data, uint32(length))
	if prependZero {
		w.data = append(w.data, 0x00)
	}
	w.data = append(w.data, magnitude...)
	return nil
}

// WriteRaw appends bytes verbatim, without a length prefix.
func (w *Writer) WriteRaw(raw []byte) error {
	if err := w.grow(len(raw)); err != nil {
		return err
	}
	w.data = append(w.data, raw...)
	return nil
}

// Finalize backfills the leading uint32 with the buffer length minus
// four, stamping the outer frame length of an assembled message.
func (w *Writer) Finalize() error {
	if len(w.data) < 4 {
		return fmt.Errorf("wire: %d bytes is too short to finalize", len(w.data))
	}
	return w.WriteUint32At(uint32(len(w.data)-4), 0)
}

// Bytes returns the written buffer. The slice aliases the Writer's
// backing array; the Writer must not be reused afterwards.
func (w *Writer) Bytes() []byte {
	return w.data
}

// BytesSecure moves the written buffer into a secret.Buffer and zeros
// the Writer's heap copy. Use this when the assembled message carries
// key material. The caller owns the returned buffer and must Close it.
func (w *Writer) BytesSecure() (*secret.Buffer, error) {
	buffer, err := secret.NewFromBytes(w.data)
	if err != nil {
		return nil, err
	}
	w.data = nil
	return buffer, nil
}
