// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package message

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/sshagent/lib/wire"
)

// Type is an agent message type byte, per draft-ietf-sshm-ssh-agent
// section 6.1.
type Type byte

// Client to agent.
const (
	TypeRequestIdentities       Type = 11
	TypeSignRequest             Type = 13
	TypeAddIdentity             Type = 17
	TypeRemoveIdentity          Type = 18
	TypeRemoveAllIdentities     Type = 19
	TypeAddSmartcardKey         Type = 20
	TypeRemoveSmartcardKey      Type = 21
	TypeLock                    Type = 22
	TypeUnlock                  Type = 23
	TypeAddIdentityConstrained  Type = 25
	TypeAddSmartcardConstrained Type = 26
	TypeExtension               Type = 27

	// TypeRemoveAllRSAIdentities is the SSH1-era remove-all; treated
	// as TypeRemoveAllIdentities.
	TypeRemoveAllRSAIdentities Type = 9
)

// Agent to client.
const (
	TypeFailure           Type = 5
	TypeSuccess           Type = 6
	TypeIdentitiesAnswer  Type = 12
	TypeSignResponse      Type = 14
	TypeExtensionFailure  Type = 28
	TypeExtensionResponse Type = 29
)

// Key constraint TLV tags inside a constrained add-identity.
const (
	ConstrainLifetime  byte = 1
	ConstrainConfirm   byte = 2
	ConstrainExtension byte = 255
)

// String returns the draft's name for the type, for logs.
func (t Type) String() string {
	switch t {
	case TypeRequestIdentities:
		return "SSH_AGENTC_REQUEST_IDENTITIES"
	case TypeSignRequest:
		return "SSH_AGENTC_SIGN_REQUEST"
	case TypeAddIdentity:
		return "SSH_AGENTC_ADD_IDENTITY"
	case TypeRemoveIdentity:
		return "SSH_AGENTC_REMOVE_IDENTITY"
	case TypeRemoveAllIdentities:
		return "SSH_AGENTC_REMOVE_ALL_IDENTITIES"
	case TypeAddSmartcardKey:
		return "SSH_AGENTC_ADD_SMARTCARD_KEY"
	case TypeRemoveSmartcardKey:
		return "SSH_AGENTC_REMOVE_SMARTCARD_KEY"
	case TypeLock:
		return "SSH_AGENTC_LOCK"
	case TypeUnlock:
		return "SSH_AGENTC_UNLOCK"
	case TypeAddIdentityConstrained:
		return "SSH_AGENTC_ADD_ID_CONSTRAINED"
	case TypeAddSmartcardConstrained:
		return "SSH_AGENTC_ADD_SMARTCARD_KEY_CONSTRAINED"
	case TypeExtension:
		return "SSH_AGENTC_EXTENSION"
	case TypeRemoveAllRSAIdentities:
		return "SSH_AGENTC_REMOVE_ALL_RSA_IDENTITIES"
	case TypeFailure:
		return "SSH_AGENT_FAILURE"
	case TypeSuccess:
		return "SSH_AGENT_SUCCESS"
	case TypeIdentitiesAnswer:
		return "SSH_AGENT_IDENTITIES_ANSWER"
	case TypeSignResponse:
		return "SSH_AGENT_SIGN_RESPONSE"
	case TypeExtensionFailure:
		return "SSH_AGENT_EXTENSION_FAILURE"
	case TypeExtensionResponse:
		return "SSH_AGENT_EXTENSION_RESPONSE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", byte(t))
	}
}

// ErrBadType is returned when a decoder is handed a frame of the wrong
// message type.
var ErrBadType = errors.New("message: wrong message type")

// ErrBadConstraint is returned for an unknown or malformed key
// constraint inside a constrained add-identity.
var ErrBadConstraint = errors.New("message: bad key constraint")

// frameHeaderLength is the minimum outer frame: uint32 length plus the
// type byte.
const frameHeaderLength = 5

// Frame is one decoded outer frame. Payload aliases the input buffer;
// it is only valid while the input is.
type Frame struct {
	Type    Type
	Payload []byte
}

// SplitFrames segments data into as many complete frames as it holds
// and returns the number of bytes consumed. A trailing partial frame
// is not an error; the caller buffers data[consumed:] and retries when
// more bytes arrive. A declared length of zero (no type byte) or above
// the wire ceiling is malformed.
func SplitFrames(data []byte) (frames []Frame, consumed int, err error) {
	for {
		if len(data)-consumed < frameHeaderLength {
			return frames, consumed, nil
		}
		reader := wire.NewReader(data[consumed:])
		length, err := reader.ReadUint32()
		if err != nil {
			return frames, consumed, err
		}
		if length == 0 {
			return frames, consumed, fmt.Errorf("message: zero-length frame")
		}
		if length > wire.MaxMessageSize {
			return frames, consumed, fmt.Errorf("message: %d-byte frame exceeds maximum %d", length, wire.MaxMessageSize)
		}
		if int(length)+4 > len(data)-consumed {
			// Partial frame; wait for the rest.
			return frames, consumed, nil
		}
		frameType, err := reader.ReadByte()
		if err != nil {
			return frames, consumed, err
		}
		payloadStart := consumed + frameHeaderLength
		frames = append(frames, Frame{
			Type:    Type(frameType),
			Payload: data[payloadStart : consumed+4+int(length)],
		})
		consumed += 4 + int(length)
	}
}

// EncodeSimple encodes a bodyless message (success, failure,
// request-identities, remove-all, extension-failure).
func EncodeSimple(t Type) []byte {
	writer := wire.NewWriter()
	writer.WriteUint32(1)
	writer.WriteByte(byte(t))
	return writer.Bytes()
}

// beginFrame starts a framed message: placeholder length plus type
// byte. Finish with writer.Finalize().
func beginFrame(writer *wire.Writer, t Type) error {
	if err := writer.WriteUint32(0); err != nil {
		return err
	}
	return writer.WriteByte(byte(t))
}
