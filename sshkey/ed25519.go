// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sshkey

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/bureau-foundation/sshagent/lib/secret"
	"github.com/bureau-foundation/sshagent/lib/wire"
)

const ed25519Name = "ssh-ed25519"

type ed25519Algorithm struct{}

func (ed25519Algorithm) Name() string   { return ed25519Name }
func (ed25519Algorithm) Family() string { return "ED25519" }

func (ed25519Algorithm) Bits(publicBlob []byte) int { return 256 }

func (ed25519Algorithm) ParsePrivate(blob []byte) (PrivateKey, error) {
	reader := wire.NewReader(blob)
	public, err := reader.ReadBlob()
	if err != nil {
		return nil, fmt.Errorf("ssh-ed25519: reading public key: %w", err)
	}
	private, err := reader.ReadBlob()
	if err != nil {
		return nil, fmt.Errorf("ssh-ed25519: reading private key: %w", err)
	}
	if len(public) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("ssh-ed25519: public key is %d bytes, want %d", len(public), ed25519.PublicKeySize)
	}
	// The private half is seed || public, as OpenSSH stores it.
	if len(private) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("ssh-ed25519: private key is %d bytes, want %d", len(private), ed25519.PrivateKeySize)
	}
	if !bytes.Equal(private[ed25519.SeedSize:], public) {
		return nil, fmt.Errorf("ssh-ed25519: private key does not embed the declared public key")
	}

	publicBlob, err := ed25519PublicBlob(public)
	if err != nil {
		return nil, err
	}
	key := &ed25519PrivateKey{
		privateKey: ed25519.PrivateKey(private),
		publicBlob: publicBlob,
	}
	return key, nil
}

func (ed25519Algorithm) SkipPrivate(reader *wire.Reader) error {
	if err := reader.DiscardBlob(); err != nil { // public
		return err
	}
	return reader.DiscardBlob() // private
}

func (ed25519Algorithm) ExtractPublic(blob []byte) ([]byte, error) {
	reader := wire.NewReader(blob)
	public, err := reader.ReadBlob()
	if err != nil {
		return nil, fmt.Errorf("ssh-ed25519: reading public key: %w", err)
	}
	return ed25519PublicBlob(public)
}

func (ed25519Algorithm) Verify(publicBlob, data, signature []byte) error {
	reader := wire.NewReader(publicBlob)
	if _, err := reader.ReadString(); err != nil {
		return err
	}
	public, err := reader.ReadBlob()
	if err != nil {
		return fmt.Errorf("ssh-ed25519: reading public key blob: %w", err)
	}
	if len(public) != ed25519.PublicKeySize {
		return fmt.Errorf("ssh-ed25519: public key is %d bytes, want %d", len(public), ed25519.PublicKeySize)
	}

	algorithm, raw, err := splitSignature(signature)
	if err != nil {
		return err
	}
	if algorithm != ed25519Name {
		return fmt.Errorf("ssh-ed25519: signature algorithm %q does not match key", algorithm)
	}
	if !ed25519.Verify(ed25519.PublicKey(public), data, raw) {
		return fmt.Errorf("ssh-ed25519: signature verification failed")
	}
	return nil
}

func ed25519PublicBlob(public []byte) ([]byte, error) {
	writer := wire.NewWriter()
	if err := writer.WriteString(ed25519Name); err != nil {
		return nil, err
	}
	if err := writer.WriteBlob(public); err != nil {
		return nil, err
	}
	return writer.Bytes(), nil
}

type ed25519PrivateKey struct {
	privateKey ed25519.PrivateKey
	publicBlob []byte
}

func (k *ed25519PrivateKey) Algorithm() string  { return ed25519Name }
func (k *ed25519PrivateKey) PublicBlob() []byte { return k.publicBlob }

func (k *ed25519PrivateKey) Sign(data []byte, flags uint32) ([]byte, error) {
	if k.privateKey == nil {
		return nil, fmt.Errorf("ssh-ed25519: key has been destroyed")
	}
	return frameSignature(ed25519Name, ed25519.Sign(k.privateKey, data))
}

func (k *ed25519PrivateKey) Marshal() (*secret.Buffer, error) {
	writer := wire.NewWriter()
	if err := writer.WriteBlob(k.privateKey[ed25519.SeedSize:]); err != nil {
		return nil, err
	}
	if err := writer.WriteBlob(k.privateKey); err != nil {
		return nil, err
	}
	return writer.BytesSecure()
}

func (k *ed25519PrivateKey) Destroy() {
	secret.Zero(k.privateKey)
	k.privateKey = nil
}
