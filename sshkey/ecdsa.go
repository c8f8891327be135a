// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sshkey

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/bureau-foundation/sshagent/lib/secret"
	"github.com/bureau-foundation/sshagent/lib/wire"
)

// ecdsaAlgorithm covers one nistp curve; the registry holds three
// instances.
type ecdsaAlgorithm struct {
	curveName string
}

func (a ecdsaAlgorithm) Name() string   { return "ecdsa-sha2-" + a.curveName }
func (a ecdsaAlgorithm) Family() string { return "ECDSA" }

func (a ecdsaAlgorithm) Bits(publicBlob []byte) int {
	params, err := ecdsaCurveParams(a.curveName)
	if err != nil {
		return 0
	}
	return params.bits
}

type ecdsaParams struct {
	curve     elliptic.Curve
	hash      crypto.Hash
	bits      int
	scalarLen int
}

func ecdsaCurveParams(curveName string) (ecdsaParams, error) {
	switch curveName {
	case "nistp256":
		return ecdsaParams{elliptic.P256(), crypto.SHA256, 256, 32}, nil
	case "nistp384":
		return ecdsaParams{elliptic.P384(), crypto.SHA384, 384, 48}, nil
	case "nistp521":
		return ecdsaParams{elliptic.P521(), crypto.SHA512, 521, 66}, nil
	default:
		return ecdsaParams{}, fmt.Errorf("ecdsa: unknown curve %q", curveName)
	}
}

func (a ecdsaAlgorithm) ParsePrivate(blob []byte) (PrivateKey, error) {
	reader := wire.NewReader(blob)
	curveName, err := reader.ReadString()
	if err != nil {
		return nil, fmt.Errorf("%s: reading curve name: %w", a.Name(), err)
	}
	if curveName != a.curveName {
		return nil, fmt.Errorf("%s: curve name %q does not match key type", a.Name(), curveName)
	}
	point, err := reader.ReadBlob()
	if err != nil {
		return nil, fmt.Errorf("%s: reading public point: %w", a.Name(), err)
	}
	scalar, err := reader.ReadMPInt()
	if err != nil {
		return nil, fmt.Errorf("%s: reading private scalar: %w", a.Name(), err)
	}

	params, err := ecdsaCurveParams(curveName)
	if err != nil {
		return nil, err
	}
	// Left-pad the scalar to the curve's byte length; mpint decoding
	// strips leading zeros that the curve math needs back.
	if len(scalar) > params.scalarLen {
		return nil, fmt.Errorf("%s: private scalar is %d bytes, maximum %d", a.Name(), len(scalar), params.scalarLen)
	}
	padded := make([]byte, params.scalarLen)
	copy(padded[params.scalarLen-len(scalar):], scalar)
	defer secret.Zero(padded)
	secret.Zero(scalar)

	x, y := elliptic.Unmarshal(params.curve, point)
	if x == nil {
		return nil, fmt.Errorf("%s: public point is not on the curve", a.Name())
	}
	d := new(big.Int).SetBytes(padded)
	derivedX, derivedY := params.curve.ScalarBaseMult(padded)
	if derivedX.Cmp(x) != 0 || derivedY.Cmp(y) != 0 {
		return nil, fmt.Errorf("%s: private scalar does not match the declared public point", a.Name())
	}

	privateKey := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: params.curve, X: x, Y: y},
		D:         d,
	}
	publicBlob, err := ecdsaPublicBlob(a.Name(), curveName, point)
	if err != nil {
		return nil, err
	}
	return &ecdsaPrivateKey{
		name:       a.Name(),
		curveName:  curveName,
		params:     params,
		privateKey: privateKey,
		point:      point,
		publicBlob: publicBlob,
	}, nil
}

func (a ecdsaAlgorithm) SkipPrivate(reader *wire.Reader) error {
	for range 3 { // curve name, public point, private scalar
		if err := reader.DiscardBlob(); err != nil {
			return err
		}
	}
	return nil
}

func (a ecdsaAlgorithm) ExtractPublic(blob []byte) ([]byte, error) {
	reader := wire.NewReader(blob)
	curveName, err := reader.ReadString()
	if err != nil {
		return nil, fmt.Errorf("%s: reading curve name: %w", a.Name(), err)
	}
	if curveName != a.curveName {
		return nil, fmt.Errorf("%s: curve name %q does not match key type", a.Name(), curveName)
	}
	point, err := reader.ReadBlob()
	if err != nil {
		return nil, fmt.Errorf("%s: reading public point: %w", a.Name(), err)
	}
	return ecdsaPublicBlob(a.Name(), curveName, point)
}

func (a ecdsaAlgorithm) Verify(publicBlob, data, signature []byte) error {
	reader := wire.NewReader(publicBlob)
	if _, err := reader.ReadString(); err != nil {
		return err
	}
	curveName, err := reader.ReadString()
	if err != nil {
		return fmt.Errorf("%s: reading curve name: %w", a.Name(), err)
	}
	if curveName != a.curveName {
		return fmt.Errorf("%s: curve name %q does not match key type", a.Name(), curveName)
	}
	point, err := reader.ReadBlob()
	if err != nil {
		return fmt.Errorf("%s: reading public point: %w", a.Name(), err)
	}
	params, err := ecdsaCurveParams(curveName)
	if err != nil {
		return err
	}
	x, y := elliptic.Unmarshal(params.curve, point)
	if x == nil {
		return fmt.Errorf("%s: public point is not on the curve", a.Name())
	}
	publicKey := &ecdsa.PublicKey{Curve: params.curve, X: x, Y: y}

	algorithm, raw, err := splitSignature(signature)
	if err != nil {
		return err
	}
	if algorithm != a.Name() {
		return fmt.Errorf("%s: signature algorithm %q does not match key", a.Name(), algorithm)
	}

	// The raw signature is an inner blob of mpint r || mpint s.
	inner := wire.NewReader(raw)
	rBytes, err := inner.ReadMPInt()
	if err != nil {
		return fmt.Errorf("%s: reading signature r: %w", a.Name(), err)
	}
	sBytes, err := inner.ReadMPInt()
	if err != nil {
		return fmt.Errorf("%s: reading signature s: %w", a.Name(), err)
	}

	hasher := params.hash.New()
	hasher.Write(data)
	if !ecdsa.Verify(publicKey, hasher.Sum(nil), new(big.Int).SetBytes(rBytes), new(big.Int).SetBytes(sBytes)) {
		return fmt.Errorf("%s: signature verification failed", a.Name())
	}
	return nil
}

func ecdsaPublicBlob(typeName, curveName string, point []byte) ([]byte, error) {
	writer := wire.NewWriter()
	if err := writer.WriteString(typeName); err != nil {
		return nil, err
	}
	if err := writer.WriteString(curveName); err != nil {
		return nil, err
	}
	if err := writer.WriteBlob(point); err != nil {
		return nil, err
	}
	return writer.Bytes(), nil
}

type ecdsaPrivateKey struct {
	name       string
	curveName  string
	params     ecdsaParams
	privateKey *ecdsa.PrivateKey
	point      []byte
	publicBlob []byte
}

func (k *ecdsaPrivateKey) Algorithm() string  { return k.name }
func (k *ecdsaPrivateKey) PublicBlob() []byte { return k.publicBlob }

func (k *ecdsaPrivateKey) Sign(data []byte, flags uint32) ([]byte, error) {
	if k.privateKey == nil {
		return nil, fmt.Errorf("%s: key has been destroyed", k.name)
	}
	hasher := k.params.hash.New()
	hasher.Write(data)
	r, s, err := ecdsa.Sign(rand.Reader, k.privateKey, hasher.Sum(nil))
	if err != nil {
		return nil, fmt.Errorf("%s: signing: %w", k.name, err)
	}

	inner := wire.NewWriter()
	if err := inner.WriteMPInt(r.Bytes()); err != nil {
		return nil, err
	}
	if err := inner.WriteMPInt(s.Bytes()); err != nil {
		return nil, err
	}
	return frameSignature(k.name, inner.Bytes())
}

func (k *ecdsaPrivateKey) Marshal() (*secret.Buffer, error) {
	writer := wire.NewWriter()
	if err := writer.WriteString(k.curveName); err != nil {
		return nil, err
	}
	if err := writer.WriteBlob(k.point); err != nil {
		return nil, err
	}
	if err := writer.WriteMPInt(k.privateKey.D.Bytes()); err != nil {
		return nil, err
	}
	return writer.BytesSecure()
}

func (k *ecdsaPrivateKey) Destroy() {
	// big.Int internals cannot be wiped reliably; dropping the
	// reference is the best available.
	k.privateKey = nil
}
