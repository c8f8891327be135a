// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sshkey

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/sshagent/lib/secret"
	"github.com/bureau-foundation/sshagent/lib/wire"
)

// Sign-request flag bits, per draft-ietf-sshm-ssh-agent. Absence of
// both RSA bits means SHA-1 for RSA keys; other algorithms ignore the
// flags entirely.
const (
	FlagRSASHA256 uint32 = 2
	FlagRSASHA512 uint32 = 4
)

// ErrUnknownAlgorithm is returned when no implementation is registered
// for a requested algorithm name.
var ErrUnknownAlgorithm = errors.New("sshkey: unknown algorithm")

// Algorithm is the capability contract for one SSH key algorithm.
// Private-key blob arguments are the algorithm-specific layouts named
// in the package documentation; they do not include the leading
// key-type string of an agent message (the caller has already consumed
// it). Public blob arguments are canonical public wire blobs, which do
// lead with the key-type string.
type Algorithm interface {
	// Name returns the SSH algorithm name, e.g. "ssh-ed25519".
	Name() string

	// ParsePrivate decodes the private-key wire layout and returns a
	// live key handle.
	ParsePrivate(blob []byte) (PrivateKey, error)

	// SkipPrivate advances the reader over exactly the bytes
	// ParsePrivate would consume, without materializing the key.
	SkipPrivate(r *wire.Reader) error

	// ExtractPublic derives the canonical public wire blob from a
	// private-key wire layout without producing a key handle.
	ExtractPublic(blob []byte) ([]byte, error)

	// Verify checks an SSH-framed signature over data against a
	// canonical public wire blob. The framed signature algorithm may
	// differ from Name() where the protocol allows it (RSA SHA-2
	// variants).
	Verify(publicBlob, data, signature []byte) error

	// Bits returns the key size this algorithm reports for display.
	// For fixed-size algorithms this ignores the argument; RSA reads
	// the modulus from the public blob.
	Bits(publicBlob []byte) int

	// Family returns the display family name, e.g. "ED25519", "RSA".
	Family() string
}

// PrivateKey is a live signing handle produced by Algorithm.ParsePrivate.
type PrivateKey interface {
	// Algorithm returns the SSH algorithm name of the key.
	Algorithm() string

	// PublicBlob returns the canonical public wire blob
	// (string key_type || algorithm-specific public fields).
	PublicBlob() []byte

	// Sign produces the SSH-framed signature over data. Flags are the
	// sign-request flag bits; only RSA interprets them.
	Sign(data []byte, flags uint32) ([]byte, error)

	// Marshal serializes the key back to its private wire layout, for
	// sealing while the agent is locked. The caller owns the returned
	// buffer and must Close it.
	Marshal() (*secret.Buffer, error)

	// Destroy wipes whatever key material the handle can reach. The
	// handle is unusable afterwards. big.Int-backed algorithms cannot
	// reliably wipe and degrade to dropping references.
	Destroy()
}

// Registry maps algorithm names to implementations. Build one at
// process initialization with DefaultRegistry (or NewRegistry plus
// Register calls) and plumb it explicitly; there is no global.
type Registry struct {
	algorithms map[string]Algorithm
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{algorithms: make(map[string]Algorithm)}
}

// DefaultRegistry returns a registry with every built-in algorithm:
// ssh-ed25519, ssh-ed448, ssh-rsa, and ecdsa-sha2-nistp{256,384,521}.
func DefaultRegistry() *Registry {
	registry := NewRegistry()
	for _, algorithm := range []Algorithm{
		ed25519Algorithm{},
		ed448Algorithm{},
		rsaAlgorithm{},
		ecdsaAlgorithm{curveName: "nistp256"},
		ecdsaAlgorithm{curveName: "nistp384"},
		ecdsaAlgorithm{curveName: "nistp521"},
	} {
		registry.Register(algorithm)
	}
	return registry
}

// Register adds an algorithm. Registering a name twice panics: it is a
// wiring error, not a runtime condition.
func (r *Registry) Register(algorithm Algorithm) {
	name := algorithm.Name()
	if _, exists := r.algorithms[name]; exists {
		panic(fmt.Sprintf("sshkey: algorithm %q registered twice", name))
	}
	r.algorithms[name] = algorithm
}

// Lookup returns the implementation for name, or ErrUnknownAlgorithm.
func (r *Registry) Lookup(name string) (Algorithm, error) {
	algorithm, ok := r.algorithms[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
	return algorithm, nil
}

// ParsePrivate decodes a private-key wire layout under the named
// algorithm.
func (r *Registry) ParsePrivate(name string, blob []byte) (PrivateKey, error) {
	algorithm, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return algorithm.ParsePrivate(blob)
}

// SkipPrivate advances the reader over the named algorithm's private
// wire layout.
func (r *Registry) SkipPrivate(name string, reader *wire.Reader) error {
	algorithm, err := r.Lookup(name)
	if err != nil {
		return err
	}
	return algorithm.SkipPrivate(reader)
}

// ExtractPublic derives the canonical public blob from a private wire
// layout under the named algorithm.
func (r *Registry) ExtractPublic(name string, blob []byte) ([]byte, error) {
	algorithm, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return algorithm.ExtractPublic(blob)
}

// Verify checks an SSH-framed signature against a canonical public
// wire blob, dispatching on the blob's leading algorithm name.
func (r *Registry) Verify(publicBlob, data, signature []byte) error {
	reader := wire.NewReader(publicBlob)
	name, err := reader.ReadString()
	if err != nil {
		return fmt.Errorf("sshkey: reading algorithm from public blob: %w", err)
	}
	algorithm, err := r.Lookup(name)
	if err != nil {
		return err
	}
	return algorithm.Verify(publicBlob, data, signature)
}

// splitSignature decodes the outer SSH signature framing.
func splitSignature(signature []byte) (algorithm string, raw []byte, err error) {
	reader := wire.NewReader(signature)
	if algorithm, err = reader.ReadString(); err != nil {
		return "", nil, fmt.Errorf("sshkey: reading signature algorithm: %w", err)
	}
	if raw, err = reader.ReadBlob(); err != nil {
		return "", nil, fmt.Errorf("sshkey: reading signature body: %w", err)
	}
	return algorithm, raw, nil
}

// frameSignature encodes the outer SSH signature framing.
func frameSignature(algorithm string, raw []byte) ([]byte, error) {
	writer := wire.NewWriter()
	if err := writer.WriteString(algorithm); err != nil {
		return nil, err
	}
	if err := writer.WriteBlob(raw); err != nil {
		return nil, err
	}
	return writer.Bytes(), nil
}
