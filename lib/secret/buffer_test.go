// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"testing"
)

func TestNew_ValidSize(t *testing.T) {
	buffer, err := New(64)
	if err != nil {
		t.Fatalf("New(64) failed: %v", err)
	}
	defer buffer.Close()

	if buffer.Len() != 64 {
		t.Errorf("expected length 64, got %d", buffer.Len())
	}

	data := buffer.Bytes()
	if len(data) != 64 {
		t.Errorf("expected Bytes() length 64, got %d", len(data))
	}

	// Memory should be zero-initialized by mmap.
	for index, value := range data {
		if value != 0 {
			t.Fatalf("expected zero at index %d, got %d", index, value)
		}
	}
}

func TestNew_ZeroSize(t *testing.T) {
	buffer, err := New(0)
	if err != nil {
		t.Fatalf("New(0) failed: %v", err)
	}
	defer buffer.Close()

	if buffer.Len() != 0 {
		t.Errorf("Len() = %d, want 0", buffer.Len())
	}
	if len(buffer.Bytes()) != 0 {
		t.Errorf("Bytes() length = %d, want 0", len(buffer.Bytes()))
	}
}

func TestNew_NegativeSize(t *testing.T) {
	_, err := New(-1)
	if err == nil {
		t.Fatal("expected error for negative size")
	}
}

func TestNewFromBytes(t *testing.T) {
	source := []byte("super-secret-passphrase")
	originalContent := string(source)

	buffer, err := NewFromBytes(source)
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}
	defer buffer.Close()

	// The buffer should contain the original data.
	if got := buffer.String(); got != originalContent {
		t.Errorf("expected %q, got %q", originalContent, got)
	}

	// The source slice should have been zeroed.
	for index, value := range source {
		if value != 0 {
			t.Fatalf("source byte %d was not zeroed: got %d", index, value)
		}
	}
}

func TestCopy_LeavesSourceIntact(t *testing.T) {
	source := []byte("borrowed frame bytes")
	buffer, err := Copy(source)
	if err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	defer buffer.Close()

	if got := buffer.String(); got != "borrowed frame bytes" {
		t.Errorf("unexpected content: %q", got)
	}
	if !bytes.Equal(source, []byte("borrowed frame bytes")) {
		t.Error("Copy modified the source slice")
	}
}

func TestBuffer_Append(t *testing.T) {
	buffer, err := NewFromBytes([]byte("partial "))
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}
	defer buffer.Close()

	if err := buffer.Append([]byte("frame")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if got := buffer.String(); got != "partial frame" {
		t.Errorf("content after Append = %q, want %q", got, "partial frame")
	}
	if buffer.Len() != len("partial frame") {
		t.Errorf("Len() = %d, want %d", buffer.Len(), len("partial frame"))
	}
}

func TestBuffer_AppendToEmpty(t *testing.T) {
	buffer, err := New(0)
	if err != nil {
		t.Fatalf("New(0) failed: %v", err)
	}
	defer buffer.Close()

	if err := buffer.Append([]byte{1, 2, 3}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if !bytes.Equal(buffer.Bytes(), []byte{1, 2, 3}) {
		t.Errorf("content = %v, want [1 2 3]", buffer.Bytes())
	}
}

func TestBuffer_Equal(t *testing.T) {
	buffer, err := Copy([]byte("testpassword"))
	if err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	defer buffer.Close()

	if !buffer.Equal([]byte("testpassword")) {
		t.Error("Equal() = false for identical contents")
	}
	if buffer.Equal([]byte("testPassword")) {
		t.Error("Equal() = true for different contents")
	}
	if buffer.Equal([]byte("testpasswor")) {
		t.Error("Equal() = true for different lengths")
	}
}

func TestBuffer_Close_ReleasesData(t *testing.T) {
	buffer, err := New(32)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	data := buffer.Bytes()
	copy(data, []byte("this should be zeroed"))

	if err := buffer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// After close, internal data is nil.
	if buffer.data != nil {
		t.Error("expected data to be nil after Close")
	}
}

func TestBuffer_Close_Idempotent(t *testing.T) {
	buffer, err := New(16)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := buffer.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestBuffer_Bytes_PanicsAfterClose(t *testing.T) {
	buffer, err := New(16)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	buffer.Close()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on Bytes() after Close")
		}
	}()

	buffer.Bytes()
}

func TestZero(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	Zero(data)
	if !bytes.Equal(data, []byte{0, 0, 0, 0}) {
		t.Errorf("Zero left %v", data)
	}
}
