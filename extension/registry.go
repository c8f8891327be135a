// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package extension

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/sshagent/lib/wire"
	"github.com/bureau-foundation/sshagent/sshkey"
)

// ErrUnknownExtension is returned when no factory is registered for a
// requested extension name.
var ErrUnknownExtension = errors.New("extension: unknown extension")

// Extension is a decoded extension body. Implementations are built by
// a registered factory and then fed the remaining reader.
type Extension interface {
	// Name returns the extension's wire name.
	Name() string

	// Decode consumes the extension body from the reader. For message
	// extensions the reader holds the rest of the extension message;
	// for constraint extensions it holds the rest of the constraint
	// TLV stream, of which the extension consumes its own prefix.
	Decode(reader *wire.Reader) error
}

// Factory constructs a fresh, undecoded extension value.
type Factory func() Extension

// Registry maps extension names to factories. Message extensions and
// constraint extensions are separate namespaces. Build one at process
// initialization and plumb it explicitly; there is no global.
type Registry struct {
	message    map[string]Factory
	constraint map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		message:    make(map[string]Factory),
		constraint: make(map[string]Factory),
	}
}

// DefaultRegistry returns a registry with the two built-in OpenSSH
// extensions registered: session-bind@openssh.com as a message
// extension (verified against keys) and
// restrict-destination-v00@openssh.com as a constraint extension.
func DefaultRegistry(keys *sshkey.Registry) *Registry {
	registry := NewRegistry()
	registry.RegisterMessage(SessionBindName, func() Extension {
		return &SessionBind{keys: keys}
	})
	registry.RegisterConstraint(RestrictDestinationName, func() Extension {
		return &RestrictDestination{}
	})
	return registry
}

// RegisterMessage adds a message-extension factory. Registering a name
// twice panics: it is a wiring error, not a runtime condition.
func (r *Registry) RegisterMessage(name string, factory Factory) {
	if _, exists := r.message[name]; exists {
		panic(fmt.Sprintf("extension: message extension %q registered twice", name))
	}
	r.message[name] = factory
}

// RegisterConstraint adds a constraint-extension factory.
func (r *Registry) RegisterConstraint(name string, factory Factory) {
	if _, exists := r.constraint[name]; exists {
		panic(fmt.Sprintf("extension: constraint extension %q registered twice", name))
	}
	r.constraint[name] = factory
}

// NewMessage constructs a fresh message extension by name.
func (r *Registry) NewMessage(name string) (Extension, error) {
	factory, ok := r.message[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExtension, name)
	}
	return factory(), nil
}

// NewConstraint constructs a fresh constraint extension by name.
func (r *Registry) NewConstraint(name string) (Extension, error) {
	factory, ok := r.constraint[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExtension, name)
	}
	return factory(), nil
}
