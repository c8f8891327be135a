// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sshkey

import (
	"bytes"
	"fmt"

	"github.com/cloudflare/circl/sign/ed448"

	"github.com/bureau-foundation/sshagent/lib/secret"
	"github.com/bureau-foundation/sshagent/lib/wire"
)

const ed448Name = "ssh-ed448"

type ed448Algorithm struct{}

func (ed448Algorithm) Name() string   { return ed448Name }
func (ed448Algorithm) Family() string { return "ED448" }

func (ed448Algorithm) Bits(publicBlob []byte) int { return 456 }

func (ed448Algorithm) ParsePrivate(blob []byte) (PrivateKey, error) {
	reader := wire.NewReader(blob)
	public, err := reader.ReadBlob()
	if err != nil {
		return nil, fmt.Errorf("ssh-ed448: reading public key: %w", err)
	}
	private, err := reader.ReadBlob()
	if err != nil {
		return nil, fmt.Errorf("ssh-ed448: reading private key: %w", err)
	}
	if len(public) != ed448.PublicKeySize {
		return nil, fmt.Errorf("ssh-ed448: public key is %d bytes, want %d", len(public), ed448.PublicKeySize)
	}

	// The private half is either the bare seed or seed || public.
	var privateKey ed448.PrivateKey
	switch len(private) {
	case ed448.SeedSize:
		privateKey = ed448.NewKeyFromSeed(private)
	case ed448.PrivateKeySize:
		privateKey = ed448.PrivateKey(private)
	default:
		return nil, fmt.Errorf("ssh-ed448: private key is %d bytes, want %d or %d", len(private), ed448.SeedSize, ed448.PrivateKeySize)
	}
	derived := privateKey.Public().(ed448.PublicKey)
	if !bytes.Equal(derived, public) {
		return nil, fmt.Errorf("ssh-ed448: private key does not match the declared public key")
	}

	publicBlob, err := ed448PublicBlob(public)
	if err != nil {
		return nil, err
	}
	return &ed448PrivateKey{privateKey: privateKey, publicBlob: publicBlob}, nil
}

func (ed448Algorithm) SkipPrivate(reader *wire.Reader) error {
	if err := reader.DiscardBlob(); err != nil { // public
		return err
	}
	return reader.DiscardBlob() // private
}

func (ed448Algorithm) ExtractPublic(blob []byte) ([]byte, error) {
	reader := wire.NewReader(blob)
	public, err := reader.ReadBlob()
	if err != nil {
		return nil, fmt.Errorf("ssh-ed448: reading public key: %w", err)
	}
	return ed448PublicBlob(public)
}

func (ed448Algorithm) Verify(publicBlob, data, signature []byte) error {
	reader := wire.NewReader(publicBlob)
	if _, err := reader.ReadString(); err != nil {
		return err
	}
	public, err := reader.ReadBlob()
	if err != nil {
		return fmt.Errorf("ssh-ed448: reading public key blob: %w", err)
	}
	if len(public) != ed448.PublicKeySize {
		return fmt.Errorf("ssh-ed448: public key is %d bytes, want %d", len(public), ed448.PublicKeySize)
	}

	algorithm, raw, err := splitSignature(signature)
	if err != nil {
		return err
	}
	if algorithm != ed448Name {
		return fmt.Errorf("ssh-ed448: signature algorithm %q does not match key", algorithm)
	}
	if !ed448.Verify(ed448.PublicKey(public), data, raw, "") {
		return fmt.Errorf("ssh-ed448: signature verification failed")
	}
	return nil
}

func ed448PublicBlob(public []byte) ([]byte, error) {
	writer := wire.NewWriter()
	if err := writer.WriteString(ed448Name); err != nil {
		return nil, err
	}
	if err := writer.WriteBlob(public); err != nil {
		return nil, err
	}
	return writer.Bytes(), nil
}

type ed448PrivateKey struct {
	privateKey ed448.PrivateKey
	publicBlob []byte
}

func (k *ed448PrivateKey) Algorithm() string  { return ed448Name }
func (k *ed448PrivateKey) PublicBlob() []byte { return k.publicBlob }

func (k *ed448PrivateKey) Sign(data []byte, flags uint32) ([]byte, error) {
	if k.privateKey == nil {
		return nil, fmt.Errorf("ssh-ed448: key has been destroyed")
	}
	// Pure Ed448 with an empty context, as SSH uses it.
	return frameSignature(ed448Name, ed448.Sign(k.privateKey, data, ""))
}

func (k *ed448PrivateKey) Marshal() (*secret.Buffer, error) {
	public := k.privateKey[ed448.SeedSize:]
	writer := wire.NewWriter()
	if err := writer.WriteBlob(public); err != nil {
		return nil, err
	}
	if err := writer.WriteBlob(k.privateKey); err != nil {
		return nil, err
	}
	return writer.BytesSecure()
}

func (k *ed448PrivateKey) Destroy() {
	secret.Zero(k.privateKey)
	k.privateKey = nil
}
