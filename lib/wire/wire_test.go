// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestRoundTrip_Primitives(t *testing.T) {
	writer := NewWriter()
	if err := writer.WriteUint32(0xdeadbeef); err != nil {
		t.Fatalf("WriteUint32: %v", err)
	}
	if err := writer.WriteByte(0x42); err != nil {
		t.Fatalf("WriteByte: %v", err)
	}
	if err := writer.WriteBlob([]byte{1, 2, 3}); err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	if err := writer.WriteString("hello"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	if err := writer.WriteMPInt([]byte{0x7f, 0x01}); err != nil {
		t.Fatalf("WriteMPInt: %v", err)
	}

	reader := NewReader(writer.Bytes())
	if v, err := reader.ReadUint32(); err != nil || v != 0xdeadbeef {
		t.Errorf("ReadUint32 = %x, %v", v, err)
	}
	if b, err := reader.ReadByte(); err != nil || b != 0x42 {
		t.Errorf("ReadByte = %x, %v", b, err)
	}
	if blob, err := reader.ReadBlob(); err != nil || !bytes.Equal(blob, []byte{1, 2, 3}) {
		t.Errorf("ReadBlob = %v, %v", blob, err)
	}
	if s, err := reader.ReadString(); err != nil || s != "hello" {
		t.Errorf("ReadString = %q, %v", s, err)
	}
	if m, err := reader.ReadMPInt(); err != nil || !bytes.Equal(m, []byte{0x7f, 0x01}) {
		t.Errorf("ReadMPInt = %v, %v", m, err)
	}
	if reader.Remaining() != 0 {
		t.Errorf("Remaining() = %d after reading everything", reader.Remaining())
	}
}

func TestMPInt_CanonicalForm(t *testing.T) {
	tests := []struct {
		name      string
		magnitude []byte
		encoded   []byte
	}{
		{"empty", nil, []byte{0, 0, 0, 0}},
		{"low high bit", []byte{0x7f}, []byte{0, 0, 0, 1, 0x7f}},
		{"high bit set", []byte{0x80}, []byte{0, 0, 0, 2, 0x00, 0x80}},
		{"multi byte high", []byte{0xff, 0x01}, []byte{0, 0, 0, 3, 0x00, 0xff, 0x01}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			writer := NewWriter()
			if err := writer.WriteMPInt(test.magnitude); err != nil {
				t.Fatalf("WriteMPInt: %v", err)
			}
			if !bytes.Equal(writer.Bytes(), test.encoded) {
				t.Errorf("encoded = %x, want %x", writer.Bytes(), test.encoded)
			}

			reader := NewReader(writer.Bytes())
			decoded, err := reader.ReadMPInt()
			if err != nil {
				t.Fatalf("ReadMPInt: %v", err)
			}
			want := test.magnitude
			if want == nil {
				want = []byte{}
			}
			if !bytes.Equal(decoded, want) {
				t.Errorf("round trip = %x, want %x", decoded, want)
			}
		})
	}
}

func TestMPInt_StripsSingleLeadingZero(t *testing.T) {
	// 0x00 0x80: the zero is padding for the high bit, stripped.
	reader := NewReader([]byte{0, 0, 0, 2, 0x00, 0x80})
	decoded, err := reader.ReadMPInt()
	if err != nil {
		t.Fatalf("ReadMPInt: %v", err)
	}
	if !bytes.Equal(decoded, []byte{0x80}) {
		t.Errorf("decoded = %x, want 80", decoded)
	}

	// 0x00 0x7f: the zero is not canonical padding and is preserved.
	reader = NewReader([]byte{0, 0, 0, 2, 0x00, 0x7f})
	decoded, err = reader.ReadMPInt()
	if err != nil {
		t.Fatalf("ReadMPInt: %v", err)
	}
	if !bytes.Equal(decoded, []byte{0x00, 0x7f}) {
		t.Errorf("decoded = %x, want 007f", decoded)
	}
}

func TestReader_Underflow(t *testing.T) {
	reader := NewReader([]byte{0, 0, 0, 10, 1, 2})
	if _, err := reader.ReadBlob(); !errors.Is(err, ErrUnderflow) {
		t.Errorf("ReadBlob on short input = %v, want ErrUnderflow", err)
	}

	reader = NewReader([]byte{1, 2})
	if _, err := reader.ReadUint32(); !errors.Is(err, ErrUnderflow) {
		t.Errorf("ReadUint32 on short input = %v, want ErrUnderflow", err)
	}

	reader = NewReader(nil)
	if _, err := reader.ReadByte(); !errors.Is(err, ErrUnderflow) {
		t.Errorf("ReadByte on empty input = %v, want ErrUnderflow", err)
	}
}

func TestWriter_Overflow(t *testing.T) {
	writer := NewWriter()
	big := make([]byte, MaxMessageSize-10)
	if err := writer.WriteBlob(big); err != nil {
		t.Fatalf("WriteBlob near the ceiling: %v", err)
	}
	if err := writer.WriteBlob([]byte{1, 2, 3, 4, 5, 6, 7}); !errors.Is(err, ErrOverflow) {
		t.Errorf("WriteBlob over the ceiling = %v, want ErrOverflow", err)
	}
}

func TestWriter_Finalize(t *testing.T) {
	writer := NewWriter()
	writer.WriteUint32(0) // placeholder
	writer.WriteByte(14)
	writer.WriteBlob([]byte("signature"))
	if err := writer.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	reader := NewReader(writer.Bytes())
	length, err := reader.ReadUint32()
	if err != nil {
		t.Fatalf("ReadUint32: %v", err)
	}
	if int(length) != writer.Len()-4 {
		t.Errorf("stamped length = %d, want %d", length, writer.Len()-4)
	}
}

func TestReader_DiscardAndSlice(t *testing.T) {
	writer := NewWriter()
	writer.WriteBlob([]byte("skip me"))
	writer.WriteBlob([]byte("keep me"))

	reader := NewReader(writer.Bytes())
	start := reader.Offset()
	if err := reader.DiscardBlob(); err != nil {
		t.Fatalf("DiscardBlob: %v", err)
	}
	end := reader.Offset()

	slice, err := reader.Slice(start, end)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	inner := NewReader(slice)
	skipped, err := inner.ReadBlob()
	if err != nil || string(skipped) != "skip me" {
		t.Errorf("sliced blob = %q, %v", skipped, err)
	}

	if _, err := reader.Slice(5, 4); err == nil {
		t.Error("Slice with start > end succeeded")
	}
}

func TestReader_SecureVariants(t *testing.T) {
	writer := NewWriter()
	writer.WriteBlob([]byte("passphrase"))
	writer.WriteMPInt([]byte{0x80, 0x01})

	reader := NewReader(writer.Bytes())
	blob, err := reader.ReadBlobSecure()
	if err != nil {
		t.Fatalf("ReadBlobSecure: %v", err)
	}
	defer blob.Close()
	if blob.String() != "passphrase" {
		t.Errorf("secure blob = %q", blob.String())
	}

	mpint, err := reader.ReadMPIntSecure()
	if err != nil {
		t.Fatalf("ReadMPIntSecure: %v", err)
	}
	defer mpint.Close()
	if !bytes.Equal(mpint.Bytes(), []byte{0x80, 0x01}) {
		t.Errorf("secure mpint = %x", mpint.Bytes())
	}
}

func TestWriter_BytesSecure(t *testing.T) {
	writer := NewWriter()
	writer.WriteBlob([]byte("private key material"))
	buffer, err := writer.BytesSecure()
	if err != nil {
		t.Fatalf("BytesSecure: %v", err)
	}
	defer buffer.Close()

	reader := NewReader(buffer.Bytes())
	blob, err := reader.ReadBlob()
	if err != nil || string(blob) != "private key material" {
		t.Errorf("secure round trip = %q, %v", blob, err)
	}
}
