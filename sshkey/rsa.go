// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sshkey

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	_ "crypto/sha1"
	"fmt"
	"math/big"

	"github.com/bureau-foundation/sshagent/lib/secret"
	"github.com/bureau-foundation/sshagent/lib/wire"
)

const (
	rsaName       = "ssh-rsa"
	rsaSHA256Name = "rsa-sha2-256"
	rsaSHA512Name = "rsa-sha2-512"
)

type rsaAlgorithm struct{}

func (rsaAlgorithm) Name() string   { return rsaName }
func (rsaAlgorithm) Family() string { return "RSA" }

func (rsaAlgorithm) Bits(publicBlob []byte) int {
	reader := wire.NewReader(publicBlob)
	if _, err := reader.ReadString(); err != nil {
		return 0
	}
	if _, err := reader.ReadMPInt(); err != nil { // e
		return 0
	}
	modulus, err := reader.ReadMPInt()
	if err != nil {
		return 0
	}
	return new(big.Int).SetBytes(modulus).BitLen()
}

func (rsaAlgorithm) ParsePrivate(blob []byte) (PrivateKey, error) {
	reader := wire.NewReader(blob)
	n, err := reader.ReadMPInt()
	if err != nil {
		return nil, fmt.Errorf("ssh-rsa: reading n: %w", err)
	}
	e, err := reader.ReadMPInt()
	if err != nil {
		return nil, fmt.Errorf("ssh-rsa: reading e: %w", err)
	}
	d, err := reader.ReadMPInt()
	if err != nil {
		return nil, fmt.Errorf("ssh-rsa: reading d: %w", err)
	}
	if err := reader.DiscardBlob(); err != nil { // iqmp, recomputed below
		return nil, fmt.Errorf("ssh-rsa: reading iqmp: %w", err)
	}
	p, err := reader.ReadMPInt()
	if err != nil {
		return nil, fmt.Errorf("ssh-rsa: reading p: %w", err)
	}
	q, err := reader.ReadMPInt()
	if err != nil {
		return nil, fmt.Errorf("ssh-rsa: reading q: %w", err)
	}

	exponent := new(big.Int).SetBytes(e)
	if !exponent.IsInt64() || exponent.Int64() > int64(1)<<31 {
		return nil, fmt.Errorf("ssh-rsa: public exponent too large")
	}
	privateKey := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{
			N: new(big.Int).SetBytes(n),
			E: int(exponent.Int64()),
		},
		D: new(big.Int).SetBytes(d),
		Primes: []*big.Int{
			new(big.Int).SetBytes(p),
			new(big.Int).SetBytes(q),
		},
	}
	if err := privateKey.Validate(); err != nil {
		return nil, fmt.Errorf("ssh-rsa: invalid private key: %w", err)
	}
	privateKey.Precompute()

	publicBlob, err := rsaPublicBlob(e, n)
	if err != nil {
		return nil, err
	}
	return &rsaPrivateKey{privateKey: privateKey, publicBlob: publicBlob}, nil
}

func (rsaAlgorithm) SkipPrivate(reader *wire.Reader) error {
	for range 6 { // n, e, d, iqmp, p, q
		if err := reader.DiscardBlob(); err != nil {
			return err
		}
	}
	return nil
}

func (rsaAlgorithm) ExtractPublic(blob []byte) ([]byte, error) {
	reader := wire.NewReader(blob)
	n, err := reader.ReadMPInt()
	if err != nil {
		return nil, fmt.Errorf("ssh-rsa: reading n: %w", err)
	}
	e, err := reader.ReadMPInt()
	if err != nil {
		return nil, fmt.Errorf("ssh-rsa: reading e: %w", err)
	}
	return rsaPublicBlob(e, n)
}

func (rsaAlgorithm) Verify(publicBlob, data, signature []byte) error {
	reader := wire.NewReader(publicBlob)
	if _, err := reader.ReadString(); err != nil {
		return err
	}
	e, err := reader.ReadMPInt()
	if err != nil {
		return fmt.Errorf("ssh-rsa: reading e: %w", err)
	}
	n, err := reader.ReadMPInt()
	if err != nil {
		return fmt.Errorf("ssh-rsa: reading n: %w", err)
	}
	exponent := new(big.Int).SetBytes(e)
	if !exponent.IsInt64() || exponent.Int64() > int64(1)<<31 {
		return fmt.Errorf("ssh-rsa: public exponent too large")
	}
	publicKey := &rsa.PublicKey{
		N: new(big.Int).SetBytes(n),
		E: int(exponent.Int64()),
	}

	algorithm, raw, err := splitSignature(signature)
	if err != nil {
		return err
	}
	hash, err := rsaHashForAlgorithm(algorithm)
	if err != nil {
		return err
	}
	hasher := hash.New()
	hasher.Write(data)
	if err := rsa.VerifyPKCS1v15(publicKey, hash, hasher.Sum(nil), raw); err != nil {
		return fmt.Errorf("ssh-rsa: signature verification failed: %w", err)
	}
	return nil
}

// rsaHashForAlgorithm maps a framed signature algorithm name to its
// hash. All three names verify against the same RSA public key.
func rsaHashForAlgorithm(algorithm string) (crypto.Hash, error) {
	switch algorithm {
	case rsaName:
		return crypto.SHA1, nil
	case rsaSHA256Name:
		return crypto.SHA256, nil
	case rsaSHA512Name:
		return crypto.SHA512, nil
	default:
		return 0, fmt.Errorf("ssh-rsa: signature algorithm %q does not match key", algorithm)
	}
}

func rsaPublicBlob(e, n []byte) ([]byte, error) {
	writer := wire.NewWriter()
	if err := writer.WriteString(rsaName); err != nil {
		return nil, err
	}
	if err := writer.WriteMPInt(e); err != nil {
		return nil, err
	}
	if err := writer.WriteMPInt(n); err != nil {
		return nil, err
	}
	return writer.Bytes(), nil
}

type rsaPrivateKey struct {
	privateKey *rsa.PrivateKey
	publicBlob []byte
}

func (k *rsaPrivateKey) Algorithm() string  { return rsaName }
func (k *rsaPrivateKey) PublicBlob() []byte { return k.publicBlob }

func (k *rsaPrivateKey) Sign(data []byte, flags uint32) ([]byte, error) {
	if k.privateKey == nil {
		return nil, fmt.Errorf("ssh-rsa: key has been destroyed")
	}

	// SHA-1 unless the client asked for a SHA-2 variant, per the
	// sign-request flag bits.
	hash := crypto.SHA1
	responseName := rsaName
	switch {
	case flags&FlagRSASHA512 != 0:
		hash = crypto.SHA512
		responseName = rsaSHA512Name
	case flags&FlagRSASHA256 != 0:
		hash = crypto.SHA256
		responseName = rsaSHA256Name
	}

	hasher := hash.New()
	hasher.Write(data)
	raw, err := rsa.SignPKCS1v15(rand.Reader, k.privateKey, hash, hasher.Sum(nil))
	if err != nil {
		return nil, fmt.Errorf("ssh-rsa: signing: %w", err)
	}
	return frameSignature(responseName, raw)
}

func (k *rsaPrivateKey) Marshal() (*secret.Buffer, error) {
	writer := wire.NewWriter()
	fields := [][]byte{
		k.privateKey.N.Bytes(),
		big.NewInt(int64(k.privateKey.E)).Bytes(),
		k.privateKey.D.Bytes(),
		k.privateKey.Precomputed.Qinv.Bytes(),
		k.privateKey.Primes[0].Bytes(),
		k.privateKey.Primes[1].Bytes(),
	}
	for _, field := range fields {
		if err := writer.WriteMPInt(field); err != nil {
			return nil, err
		}
	}
	return writer.BytesSecure()
}

func (k *rsaPrivateKey) Destroy() {
	// big.Int internals cannot be wiped reliably; dropping the
	// reference is the best available.
	k.privateKey = nil
}
