// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sshkey

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"math/big"
	"testing"

	"github.com/cloudflare/circl/sign/ed448"

	"github.com/bureau-foundation/sshagent/lib/wire"
)

// ed25519Blob builds the ssh-ed25519 private wire layout from a seed.
func ed25519Blob(t *testing.T, seed byte) []byte {
	t.Helper()
	seedBytes := bytes.Repeat([]byte{seed}, ed25519.SeedSize)
	private := ed25519.NewKeyFromSeed(seedBytes)
	public := private.Public().(ed25519.PublicKey)

	writer := wire.NewWriter()
	writer.WriteBlob(public)
	writer.WriteBlob(private)
	return writer.Bytes()
}

func rsaBlob(t *testing.T) []byte {
	t.Helper()
	private, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating RSA key: %v", err)
	}
	private.Precompute()

	writer := wire.NewWriter()
	writer.WriteMPInt(private.N.Bytes())
	writer.WriteMPInt(big.NewInt(int64(private.E)).Bytes())
	writer.WriteMPInt(private.D.Bytes())
	writer.WriteMPInt(private.Precomputed.Qinv.Bytes())
	writer.WriteMPInt(private.Primes[0].Bytes())
	writer.WriteMPInt(private.Primes[1].Bytes())
	return writer.Bytes()
}

func ecdsaBlob(t *testing.T, curveName string, curve elliptic.Curve) []byte {
	t.Helper()
	private, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		t.Fatalf("generating ECDSA key: %v", err)
	}
	point := elliptic.Marshal(curve, private.X, private.Y)

	writer := wire.NewWriter()
	writer.WriteString(curveName)
	writer.WriteBlob(point)
	writer.WriteMPInt(private.D.Bytes())
	return writer.Bytes()
}

func ed448Blob(t *testing.T) []byte {
	t.Helper()
	public, private, err := ed448.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generating ed448 key: %v", err)
	}

	writer := wire.NewWriter()
	writer.WriteBlob(public)
	writer.WriteBlob(private)
	return writer.Bytes()
}

func TestAllAlgorithms_ParseSignVerify(t *testing.T) {
	registry := DefaultRegistry()
	data := []byte("data to be signed")

	tests := []struct {
		name string
		blob []byte
	}{
		{"ssh-ed25519", ed25519Blob(t, 0x07)},
		{"ssh-ed448", ed448Blob(t)},
		{"ssh-rsa", rsaBlob(t)},
		{"ecdsa-sha2-nistp256", ecdsaBlob(t, "nistp256", elliptic.P256())},
		{"ecdsa-sha2-nistp384", ecdsaBlob(t, "nistp384", elliptic.P384())},
		{"ecdsa-sha2-nistp521", ecdsaBlob(t, "nistp521", elliptic.P521())},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			private, err := registry.ParsePrivate(test.name, test.blob)
			if err != nil {
				t.Fatalf("ParsePrivate: %v", err)
			}
			if private.Algorithm() != test.name {
				t.Errorf("Algorithm() = %q, want %q", private.Algorithm(), test.name)
			}

			// The canonical public blob leads with the algorithm name.
			reader := wire.NewReader(private.PublicBlob())
			leading, err := reader.ReadString()
			if err != nil || leading != test.name {
				t.Errorf("public blob leads with %q, %v", leading, err)
			}

			// ExtractPublic agrees with ParsePrivate.
			extracted, err := registry.ExtractPublic(test.name, test.blob)
			if err != nil {
				t.Fatalf("ExtractPublic: %v", err)
			}
			if !bytes.Equal(extracted, private.PublicBlob()) {
				t.Error("ExtractPublic disagrees with ParsePrivate's public blob")
			}

			signature, err := private.Sign(data, 0)
			if err != nil {
				t.Fatalf("Sign: %v", err)
			}
			if err := registry.Verify(private.PublicBlob(), data, signature); err != nil {
				t.Errorf("Verify: %v", err)
			}
			if err := registry.Verify(private.PublicBlob(), []byte("other data"), signature); err == nil {
				t.Error("Verify accepted a signature over different data")
			}
		})
	}
}

func TestAllAlgorithms_SkipPrivate(t *testing.T) {
	registry := DefaultRegistry()
	tests := []struct {
		name string
		blob []byte
	}{
		{"ssh-ed25519", ed25519Blob(t, 0x09)},
		{"ssh-ed448", ed448Blob(t)},
		{"ssh-rsa", rsaBlob(t)},
		{"ecdsa-sha2-nistp256", ecdsaBlob(t, "nistp256", elliptic.P256())},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Append a marker after the private layout; SkipPrivate
			// must land exactly on it.
			writer := wire.NewWriter()
			writer.WriteRaw(test.blob)
			writer.WriteString("marker")

			reader := wire.NewReader(writer.Bytes())
			if err := registry.SkipPrivate(test.name, reader); err != nil {
				t.Fatalf("SkipPrivate: %v", err)
			}
			marker, err := reader.ReadString()
			if err != nil || marker != "marker" {
				t.Errorf("after skip, read %q, %v", marker, err)
			}
		})
	}
}

func TestAllAlgorithms_MarshalRoundTrip(t *testing.T) {
	registry := DefaultRegistry()
	tests := []struct {
		name string
		blob []byte
	}{
		{"ssh-ed25519", ed25519Blob(t, 0x0a)},
		{"ssh-ed448", ed448Blob(t)},
		{"ssh-rsa", rsaBlob(t)},
		{"ecdsa-sha2-nistp384", ecdsaBlob(t, "nistp384", elliptic.P384())},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			private, err := registry.ParsePrivate(test.name, test.blob)
			if err != nil {
				t.Fatalf("ParsePrivate: %v", err)
			}
			marshaled, err := private.Marshal()
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			defer marshaled.Close()

			rebuilt, err := registry.ParsePrivate(test.name, marshaled.Bytes())
			if err != nil {
				t.Fatalf("ParsePrivate after Marshal: %v", err)
			}
			if !bytes.Equal(rebuilt.PublicBlob(), private.PublicBlob()) {
				t.Error("public blob changed across Marshal round trip")
			}

			data := []byte("still signs after round trip")
			signature, err := rebuilt.Sign(data, 0)
			if err != nil {
				t.Fatalf("Sign after round trip: %v", err)
			}
			if err := registry.Verify(private.PublicBlob(), data, signature); err != nil {
				t.Errorf("Verify after round trip: %v", err)
			}
		})
	}
}

func TestRSA_FlagSelectsAlgorithm(t *testing.T) {
	registry := DefaultRegistry()
	private, err := registry.ParsePrivate("ssh-rsa", rsaBlob(t))
	if err != nil {
		t.Fatalf("ParsePrivate: %v", err)
	}
	data := []byte("flagged signing")

	tests := []struct {
		flags    uint32
		wantName string
	}{
		{0, "ssh-rsa"},
		{FlagRSASHA256, "rsa-sha2-256"},
		{FlagRSASHA512, "rsa-sha2-512"},
	}
	for _, test := range tests {
		signature, err := private.Sign(data, test.flags)
		if err != nil {
			t.Fatalf("Sign(flags=%d): %v", test.flags, err)
		}
		name, _, err := splitSignature(signature)
		if err != nil {
			t.Fatalf("splitSignature: %v", err)
		}
		if name != test.wantName {
			t.Errorf("flags %d framed as %q, want %q", test.flags, name, test.wantName)
		}
		// All variants verify against the same public blob.
		if err := registry.Verify(private.PublicBlob(), data, signature); err != nil {
			t.Errorf("Verify(%s): %v", test.wantName, err)
		}
	}
}

func TestParsePrivate_RejectsMismatchedHalves(t *testing.T) {
	registry := DefaultRegistry()

	// Declared public key does not match the private half.
	seedBytes := bytes.Repeat([]byte{0x11}, ed25519.SeedSize)
	private := ed25519.NewKeyFromSeed(seedBytes)
	writer := wire.NewWriter()
	writer.WriteBlob(bytes.Repeat([]byte{0x22}, ed25519.PublicKeySize))
	writer.WriteBlob(private)

	if _, err := registry.ParsePrivate("ssh-ed25519", writer.Bytes()); err == nil {
		t.Error("ParsePrivate accepted mismatched public/private halves")
	}
}

func TestRegistry_UnknownAlgorithm(t *testing.T) {
	registry := DefaultRegistry()
	if _, err := registry.Lookup("ssh-dss"); err == nil {
		t.Error("Lookup(ssh-dss) succeeded")
	}
	if _, err := registry.ParsePrivate("nope", nil); err == nil {
		t.Error("ParsePrivate with unknown algorithm succeeded")
	}
}
