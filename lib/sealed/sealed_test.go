// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"testing"

	"github.com/bureau-foundation/sshagent/lib/secret"
)

func mustBuffer(t *testing.T, data []byte) *secret.Buffer {
	t.Helper()
	buffer, err := secret.Copy(data)
	if err != nil {
		t.Fatalf("secret.Copy() error: %v", err)
	}
	t.Cleanup(func() { buffer.Close() })
	return buffer
}

func TestSealUnseal_RoundTrip(t *testing.T) {
	plaintext := mustBuffer(t, []byte("ed25519 private scalar bytes"))
	passphrase := mustBuffer(t, []byte("testpassword"))

	ciphertext, err := Seal(plaintext, passphrase)
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}
	if bytes.Contains(ciphertext, []byte("private scalar")) {
		t.Error("ciphertext contains plaintext")
	}

	unsealed, err := Unseal(ciphertext, passphrase)
	if err != nil {
		t.Fatalf("Unseal() error: %v", err)
	}
	defer unsealed.Close()

	if !bytes.Equal(unsealed.Bytes(), []byte("ed25519 private scalar bytes")) {
		t.Errorf("unsealed = %q, want original plaintext", unsealed.Bytes())
	}
}

func TestUnseal_WrongPassphrase(t *testing.T) {
	plaintext := mustBuffer(t, []byte("key material"))
	passphrase := mustBuffer(t, []byte("right"))
	wrong := mustBuffer(t, []byte("wrong"))

	ciphertext, err := Seal(plaintext, passphrase)
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}

	if _, err := Unseal(ciphertext, wrong); err == nil {
		t.Fatal("Unseal() with wrong passphrase succeeded")
	}
}

func TestUnseal_CorruptedCiphertext(t *testing.T) {
	plaintext := mustBuffer(t, []byte("key material"))
	passphrase := mustBuffer(t, []byte("pass"))

	ciphertext, err := Seal(plaintext, passphrase)
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}
	ciphertext[len(ciphertext)-1] ^= 0xff

	if _, err := Unseal(ciphertext, passphrase); err == nil {
		t.Fatal("Unseal() of corrupted ciphertext succeeded")
	}
}
