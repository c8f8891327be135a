// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"crypto/subtle"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Buffer holds sensitive data in memory that is locked against
// swapping, excluded from core dumps, and zeroed on close. The backing
// memory is allocated via mmap outside the Go heap.
//
// A Buffer must not be copied after creation. Use Close to release the
// memory when the secret is no longer needed. After Close, any access
// to the buffer's contents panics.
//
// A zero-length Buffer is valid and carries no mapping. Passphrases
// may legitimately be empty, and empty wire blobs decode to empty
// buffers.
type Buffer struct {
	mu     sync.Mutex
	data   []byte
	length int
	closed bool
}

// New allocates a new secret buffer of the given size. The buffer is
// backed by an anonymous mmap region that is:
//   - Locked into physical RAM (mlock), preventing swap
//   - Excluded from core dumps (MADV_DONTDUMP)
//   - Outside the Go heap, invisible to the garbage collector
//
// The caller must call Close when the secret is no longer needed.
func New(size int) (*Buffer, error) {
	if size < 0 {
		return nil, fmt.Errorf("secret: buffer size must be non-negative, got %d", size)
	}
	if size == 0 {
		return &Buffer{}, nil
	}

	data, err := mapLocked(size)
	if err != nil {
		return nil, err
	}
	return &Buffer{
		data:   data,
		length: size,
	}, nil
}

func mapLocked(size int) ([]byte, error) {
	// Anonymous memory outside the Go heap.
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mmap failed: %w", err)
	}

	// Lock the memory to prevent it from being swapped to disk.
	if err := unix.Mlock(data); err != nil {
		unix.Munmap(data)
		return nil, fmt.Errorf("secret: mlock failed: %w", err)
	}

	// Exclude from core dumps. MADV_DONTDUMP may not be supported on
	// all kernels; the secret would still be protected against swap,
	// but we refuse rather than run with half the guarantee.
	if err := unix.Madvise(data, unix.MADV_DONTDUMP); err != nil {
		unix.Munlock(data)
		unix.Munmap(data)
		return nil, fmt.Errorf("secret: madvise(MADV_DONTDUMP) failed: %w", err)
	}

	return data, nil
}

// NewFromBytes creates a secret buffer from existing data. The source
// bytes are copied into the protected region and then zeroed in place,
// so the caller's original slice no longer holds the secret.
func NewFromBytes(source []byte) (*Buffer, error) {
	buffer, err := New(len(source))
	if err != nil {
		return nil, err
	}
	copy(buffer.data, source)
	Zero(source)
	return buffer, nil
}

// Copy creates a secret buffer holding a copy of source, leaving the
// source untouched. Use this for slices the caller does not own, such
// as a borrowed window into an inbound frame; the frame owner remains
// responsible for wiping the original.
func Copy(source []byte) (*Buffer, error) {
	buffer, err := New(len(source))
	if err != nil {
		return nil, err
	}
	copy(buffer.data, source)
	return buffer, nil
}

// Bytes returns the secret data. The returned slice points directly
// into the mmap region; do not hold references to it beyond the
// lifetime of the Buffer, and do not hold it across Append. Panics if
// the buffer has been closed.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		panic("secret: read from closed buffer")
	}

	return b.data[:b.length]
}

// String returns the secret data as a string. The returned string is
// backed by a heap-allocated copy (Go strings are immutable and must
// live on the heap), so this should only be used at API boundaries
// that require string arguments. Prefer Bytes() when possible.
//
// Panics if the buffer has been closed.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		panic("secret: read from closed buffer")
	}

	return string(b.data[:b.length])
}

// Len returns the size of the secret data.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.length
}

// Append grows the buffer by appending more, relocating the contents
// to a larger mapping. The old mapping is zeroed before release, so no
// stale copy of the accumulated secret survives the move. Panics if
// the buffer has been closed.
func (b *Buffer) Append(more []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		panic("secret: append to closed buffer")
	}
	if len(more) == 0 {
		return nil
	}

	newLength := b.length + len(more)
	data, err := mapLocked(newLength)
	if err != nil {
		return err
	}
	copy(data, b.data[:b.length])
	copy(data[b.length:], more)

	b.releaseLocked()
	b.data = data
	b.length = newLength
	return nil
}

// Equal reports whether the buffer's contents equal other, comparing
// in constant time. Panics if the buffer has been closed.
func (b *Buffer) Equal(other []byte) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		panic("secret: compare against closed buffer")
	}

	return subtle.ConstantTimeCompare(b.data[:b.length], other) == 1
}

// releaseLocked zeros, unlocks, and unmaps the current mapping. The
// caller must hold b.mu.
func (b *Buffer) releaseLocked() error {
	if b.data == nil {
		return nil
	}
	Zero(b.data)

	// Errors here are surfaced but not fatal: the memory is released
	// when the process exits regardless.
	var firstError error
	if err := unix.Munlock(b.data); err != nil {
		firstError = fmt.Errorf("secret: munlock failed: %w", err)
	}
	if err := unix.Munmap(b.data); err != nil && firstError == nil {
		firstError = fmt.Errorf("secret: munmap failed: %w", err)
	}
	b.data = nil
	return firstError
}

// Close zeros the buffer contents, unlocks and unmaps the memory.
// After Close, any access to the buffer's contents panics. Close is
// idempotent.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.length = 0
	return b.releaseLocked()
}

// Zero overwrites a plain heap slice in place. For the places where a
// borrowed slice briefly held secret material and a full Buffer is
// overkill (session reassembly scratch, decoded frame payloads).
func Zero(data []byte) {
	for index := range data {
		data[index] = 0
	}
}
