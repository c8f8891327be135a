// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sshkey

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/bureau-foundation/sshagent/lib/wire"
)

// literalBlob is string "ssh-ed25519" || blob 0x01*32, the fixture the
// fingerprint format is pinned against.
func literalBlob(t *testing.T) []byte {
	t.Helper()
	writer := wire.NewWriter()
	writer.WriteString("ssh-ed25519")
	writer.WriteBlob(bytes.Repeat([]byte{0x01}, 32))
	return writer.Bytes()
}

func TestFingerprint_Literal(t *testing.T) {
	// Precomputed over the public blob alone; a fingerprint that
	// accidentally hashed the private half too would differ.
	const want = "SHA256:RXm/ruZ0eTzRXKwi1AQEDynB0VgHQ2ac9KPSFdf/YnA"
	if got := Fingerprint(literalBlob(t)); got != want {
		t.Errorf("Fingerprint = %q, want %q", got, want)
	}
}

func TestFingerprint_MatchesDigest(t *testing.T) {
	blob := literalBlob(t)
	digest := sha256.Sum256(blob)
	want := "SHA256:" + strings.TrimRight(base64.StdEncoding.EncodeToString(digest[:]), "=")
	if got := Fingerprint(blob); got != want {
		t.Errorf("Fingerprint = %q, want %q", got, want)
	}
	if got := FingerprintHex(blob); got != "4579bfaee674793cd15cac22d404040f29c1d1580743669cf4a3d215d7ff6270" {
		t.Errorf("FingerprintHex = %q", got)
	}
}

func TestFingerprint_DistinctBlobs(t *testing.T) {
	writer := wire.NewWriter()
	writer.WriteString("ssh-ed25519")
	writer.WriteBlob(bytes.Repeat([]byte{0x02}, 32))

	if Fingerprint(literalBlob(t)) == Fingerprint(writer.Bytes()) {
		t.Error("distinct blobs share a fingerprint")
	}
}

func TestRandomart_Shape(t *testing.T) {
	lines := Randomart(literalBlob(t), "ED25519", 256)
	if len(lines) != randomartHeight+2 {
		t.Fatalf("Randomart returned %d lines, want %d", len(lines), randomartHeight+2)
	}
	for i, line := range lines {
		if len(line) != randomartWidth+2 {
			t.Errorf("line %d is %d chars, want %d: %q", i, len(line), randomartWidth+2, line)
		}
	}
	if !strings.Contains(lines[0], "[ED25519 256]") {
		t.Errorf("header %q does not carry the key label", lines[0])
	}
	if lines[len(lines)-1] != "+----[SHA256]-----+" {
		t.Errorf("footer = %q", lines[len(lines)-1])
	}

	body := strings.Join(lines[1:len(lines)-1], "")
	if !strings.Contains(body, "S") {
		t.Error("randomart is missing the start marker")
	}
	if !strings.Contains(body, "E") {
		t.Error("randomart is missing the end marker")
	}
}

func TestRandomart_Deterministic(t *testing.T) {
	first := Randomart(literalBlob(t), "ED25519", 256)
	second := Randomart(literalBlob(t), "ED25519", 256)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("randomart is not deterministic at line %d", i)
		}
	}
}

func TestAuthorizedLine(t *testing.T) {
	blob := literalBlob(t)
	line := AuthorizedLine("ssh-ed25519", blob, "alpha")
	fields := strings.Fields(line)
	if len(fields) != 3 || fields[0] != "ssh-ed25519" || fields[2] != "alpha" {
		t.Fatalf("AuthorizedLine = %q", line)
	}
	decoded, err := base64.StdEncoding.DecodeString(fields[1])
	if err != nil || !bytes.Equal(decoded, blob) {
		t.Errorf("authorized line blob does not round trip: %v", err)
	}
}
