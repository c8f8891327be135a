// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bureau-foundation/sshagent/lib/secret"
)

// ErrUnderflow is returned when a read would run past the end of the
// input. Wrapped errors carry the primitive that failed; use
// errors.Is to test for the condition.
var ErrUnderflow = errors.New("wire: not enough data")

// Reader decodes SSH wire primitives from a byte slice. The slice is
// not copied; the Reader must not outlive it. Reader is not safe for
// concurrent use.
type Reader struct {
	data   []byte
	offset int
}

// NewReader returns a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.offset
}

// Offset returns the current read position.
func (r *Reader) Offset() int {
	return r.offset
}

// ReadByte consumes and returns one octet.
func (r *Reader) ReadByte() (byte, error) {
	if r.offset+1 > len(r.data) {
		return 0, fmt.Errorf("%w: byte at offset %d", ErrUnderflow, r.offset)
	}
	b := r.data[r.offset]
	r.offset++
	return b, nil
}

// ReadUint32 consumes and returns a big-endian uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	if r.offset+4 > len(r.data) {
		return 0, fmt.Errorf("%w: uint32 at offset %d", ErrUnderflow, r.offset)
	}
	v := binary.BigEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return v, nil
}

// ReadBlob consumes a length-prefixed byte string and returns a copy
// of its contents. Fails if the declared length exceeds the remaining
// input.
func (r *Reader) ReadBlob() ([]byte, error) {
	length, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if int(length) > r.Remaining() {
		return nil, fmt.Errorf("%w: blob of %d bytes with %d remaining", ErrUnderflow, length, r.Remaining())
	}
	blob := make([]byte, length)
	copy(blob, r.data[r.offset:r.offset+int(length)])
	r.offset += int(length)
	return blob, nil
}

// ReadBlobSecure consumes a length-prefixed byte string into a
// secret.Buffer. Use this for fields that may carry key material or
// passphrases. The caller owns the returned buffer and must Close it.
func (r *Reader) ReadBlobSecure() (*secret.Buffer, error) {
	length, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if int(length) > r.Remaining() {
		return nil, fmt.Errorf("%w: blob of %d bytes with %d remaining", ErrUnderflow, length, r.Remaining())
	}
	buffer, err := secret.Copy(r.data[r.offset : r.offset+int(length)])
	if err != nil {
		return nil, err
	}
	r.offset += int(length)
	return buffer, nil
}

// DiscardBlob consumes a length-prefixed byte string without
// materializing its contents.
func (r *Reader) DiscardBlob() error {
	length, err := r.ReadUint32()
	if err != nil {
		return err
	}
	if int(length) > r.Remaining() {
		return fmt.Errorf("%w: blob of %d bytes with %d remaining", ErrUnderflow, length, r.Remaining())
	}
	r.offset += int(length)
	return nil
}

// ReadString consumes a length-prefixed byte string and returns it as
// a Go string.
func (r *Reader) ReadString() (string, error) {
	blob, err := r.ReadBlob()
	if err != nil {
		return "", err
	}
	return string(blob), nil
}

// ReadMPInt consumes a length-prefixed multi-precision integer and
// returns its canonical magnitude bytes: a single leading 0x00 is
// stripped iff the following byte has its high bit set.
func (r *Reader) ReadMPInt() ([]byte, error) {
	blob, err := r.ReadBlob()
	if err != nil {
		return nil, err
	}
	return trimMPInt(blob), nil
}

// ReadMPIntSecure is ReadMPInt into a secret.Buffer. The caller owns
// the returned buffer and must Close it.
func (r *Reader) ReadMPIntSecure() (*secret.Buffer, error) {
	blob, err := r.ReadBlob()
	if err != nil {
		return nil, err
	}
	// NewFromBytes zeros the heap copy after moving it into the
	// protected region.
	return secret.NewFromBytes(trimMPInt(blob))
}

func trimMPInt(blob []byte) []byte {
	if len(blob) > 1 && blob[0] == 0x00 && blob[1]&0x80 != 0 {
		return blob[1:]
	}
	return blob
}

// Slice returns a copy of the bytes in [start, end). Used to capture
// the raw range a sub-decoder consumed, e.g. the private-key blob
// inside an add-identity message.
func (r *Reader) Slice(start, end int) ([]byte, error) {
	if start > end || end > len(r.data) {
		return nil, fmt.Errorf("%w: slice [%d, %d) of %d bytes", ErrUnderflow, start, end, len(r.data))
	}
	out := make([]byte, end-start)
	copy(out, r.data[start:end])
	return out, nil
}

// SliceSecure returns the bytes in [start, end) in a secret.Buffer.
// The caller owns the returned buffer and must Close it.
func (r *Reader) SliceSecure(start, end int) (*secret.Buffer, error) {
	if start > end || end > len(r.data) {
		return nil, fmt.Errorf("%w: slice [%d, %d) of %d bytes", ErrUnderflow, start, end, len(r.data))
	}
	return secret.Copy(r.data[start:end])
}
