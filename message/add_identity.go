// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package message

import (
	"fmt"

	"github.com/bureau-foundation/sshagent/constraint"
	"github.com/bureau-foundation/sshagent/extension"
	"github.com/bureau-foundation/sshagent/lib/secret"
	"github.com/bureau-foundation/sshagent/lib/wire"
	"github.com/bureau-foundation/sshagent/sshkey"
)

// AddIdentity is a decoded add-identity request. PrivateBlob holds the
// exact bytes of the key-type-specific private layout, captured by
// skipping over them rather than parsing, so the key manager can replay
// them into the crypto backend unchanged. The caller owns PrivateBlob
// and must Close it.
type AddIdentity struct {
	KeyType         string
	PrivateBlob     *secret.Buffer
	Comment         string
	Lifetime        uint32
	ConfirmRequired bool

	// Extension is the decoded constraint extension, if the message
	// carried one (tag 255). For restrict-destination this is a
	// *extension.RestrictDestination.
	Extension extension.Extension
}

// Close releases the captured private key bytes.
func (a *AddIdentity) Close() {
	if a.PrivateBlob != nil {
		a.PrivateBlob.Close()
	}
}

// ParseAddIdentity decodes an add-identity or constrained add-identity
// frame. The key registry skips the private-key layout; the extension
// registry resolves tag-255 constraint extensions. Unknown constraint
// tags and unknown extensions fail the whole message.
func ParseAddIdentity(frame Frame, keys *sshkey.Registry, extensions *extension.Registry) (*AddIdentity, error) {
	if frame.Type != TypeAddIdentity && frame.Type != TypeAddIdentityConstrained {
		return nil, fmt.Errorf("%w: %s is not an add-identity", ErrBadType, frame.Type)
	}

	reader := wire.NewReader(frame.Payload)
	keyType, err := reader.ReadString()
	if err != nil {
		return nil, fmt.Errorf("add-identity: reading key type: %w", err)
	}

	start := reader.Offset()
	if err := keys.SkipPrivate(keyType, reader); err != nil {
		return nil, fmt.Errorf("add-identity: skipping private key: %w", err)
	}
	privateBlob, err := reader.SliceSecure(start, reader.Offset())
	if err != nil {
		return nil, err
	}

	parsed := &AddIdentity{
		KeyType:     keyType,
		PrivateBlob: privateBlob,
	}
	if parsed.Comment, err = reader.ReadString(); err != nil {
		parsed.Close()
		return nil, fmt.Errorf("add-identity: reading comment: %w", err)
	}

	if frame.Type == TypeAddIdentityConstrained {
		if err := parsed.parseConstraints(reader, extensions); err != nil {
			parsed.Close()
			return nil, err
		}
	}
	return parsed, nil
}

func (a *AddIdentity) parseConstraints(reader *wire.Reader, extensions *extension.Registry) error {
	for reader.Remaining() > 0 {
		tag, err := reader.ReadByte()
		if err != nil {
			return err
		}
		switch tag {
		case ConstrainConfirm:
			a.ConfirmRequired = true
		case ConstrainLifetime:
			if a.Lifetime, err = reader.ReadUint32(); err != nil {
				return fmt.Errorf("%w: reading lifetime: %v", ErrBadConstraint, err)
			}
		case ConstrainExtension:
			name, err := reader.ReadString()
			if err != nil {
				return fmt.Errorf("%w: reading extension name: %v", ErrBadConstraint, err)
			}
			if a.Extension != nil {
				return fmt.Errorf("%w: duplicate constraint extension", ErrBadConstraint)
			}
			ext, err := extensions.NewConstraint(name)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrBadConstraint, err)
			}
			if err := ext.Decode(reader); err != nil {
				return fmt.Errorf("%w: %v", ErrBadConstraint, err)
			}
			a.Extension = ext
		default:
			return fmt.Errorf("%w: unknown constraint tag %d", ErrBadConstraint, tag)
		}
	}
	return nil
}

// AddIdentitySpec is the client-side form of an add-identity request,
// for ssh-add-like tooling and tests.
type AddIdentitySpec struct {
	KeyType                string
	PrivateBlob            []byte
	Comment                string
	Lifetime               uint32
	ConfirmRequired        bool
	DestinationConstraints []constraint.DestinationConstraint
}

// Encode serializes the request, choosing the constrained message type
// when any constraint is present.
func (s *AddIdentitySpec) Encode() ([]byte, error) {
	constrained := s.Lifetime > 0 || s.ConfirmRequired || len(s.DestinationConstraints) > 0
	messageType := TypeAddIdentity
	if constrained {
		messageType = TypeAddIdentityConstrained
	}

	writer := wire.NewWriter()
	if err := beginFrame(writer, messageType); err != nil {
		return nil, err
	}
	if err := writer.WriteString(s.KeyType); err != nil {
		return nil, err
	}
	if err := writer.WriteRaw(s.PrivateBlob); err != nil {
		return nil, err
	}
	if err := writer.WriteString(s.Comment); err != nil {
		return nil, err
	}

	if s.ConfirmRequired {
		if err := writer.WriteByte(ConstrainConfirm); err != nil {
			return nil, err
		}
	}
	if s.Lifetime > 0 {
		if err := writer.WriteByte(ConstrainLifetime); err != nil {
			return nil, err
		}
		if err := writer.WriteUint32(s.Lifetime); err != nil {
			return nil, err
		}
	}
	if len(s.DestinationConstraints) > 0 {
		if err := writer.WriteByte(ConstrainExtension); err != nil {
			return nil, err
		}
		if err := writer.WriteString(extension.RestrictDestinationName); err != nil {
			return nil, err
		}
		body := wire.NewWriter()
		for _, c := range s.DestinationConstraints {
			blob, err := c.Marshal()
			if err != nil {
				return nil, err
			}
			if err := body.WriteBlob(blob); err != nil {
				return nil, err
			}
		}
		if err := writer.WriteBlob(body.Bytes()); err != nil {
			return nil, err
		}
	}

	if err := writer.Finalize(); err != nil {
		return nil, err
	}
	return writer.Bytes(), nil
}
