// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package message

import (
	"fmt"

	"github.com/bureau-foundation/sshagent/lib/wire"
)

// SignRequest is a decoded sign request: the public blob addressing
// the key, the data to sign, and the flag bits (sshkey.FlagRSASHA256,
// sshkey.FlagRSASHA512).
type SignRequest struct {
	KeyBlob []byte
	Data    []byte
	Flags   uint32
}

// ParseSignRequest decodes a sign-request frame.
func ParseSignRequest(frame Frame) (*SignRequest, error) {
	if frame.Type != TypeSignRequest {
		return nil, fmt.Errorf("%w: %s is not a sign request", ErrBadType, frame.Type)
	}
	reader := wire.NewReader(frame.Payload)
	request := &SignRequest{}
	var err error
	if request.KeyBlob, err = reader.ReadBlob(); err != nil {
		return nil, fmt.Errorf("sign-request: reading key blob: %w", err)
	}
	if request.Data, err = reader.ReadBlob(); err != nil {
		return nil, fmt.Errorf("sign-request: reading data: %w", err)
	}
	if request.Flags, err = reader.ReadUint32(); err != nil {
		return nil, fmt.Errorf("sign-request: reading flags: %w", err)
	}
	return request, nil
}

// Encode serializes the request for a client.
func (s *SignRequest) Encode() ([]byte, error) {
	writer := wire.NewWriter()
	if err := beginFrame(writer, TypeSignRequest); err != nil {
		return nil, err
	}
	if err := writer.WriteBlob(s.KeyBlob); err != nil {
		return nil, err
	}
	if err := writer.WriteBlob(s.Data); err != nil {
		return nil, err
	}
	if err := writer.WriteUint32(s.Flags); err != nil {
		return nil, err
	}
	if err := writer.Finalize(); err != nil {
		return nil, err
	}
	return writer.Bytes(), nil
}

// EncodeSignResponse encodes a sign-response frame carrying an
// SSH-framed signature blob.
func EncodeSignResponse(signature []byte) ([]byte, error) {
	writer := wire.NewWriter()
	if err := beginFrame(writer, TypeSignResponse); err != nil {
		return nil, err
	}
	if err := writer.WriteBlob(signature); err != nil {
		return nil, err
	}
	if err := writer.Finalize(); err != nil {
		return nil, err
	}
	return writer.Bytes(), nil
}

// ParseSignResponse decodes a sign-response frame, returning the
// SSH-framed signature blob.
func ParseSignResponse(frame Frame) ([]byte, error) {
	if frame.Type != TypeSignResponse {
		return nil, fmt.Errorf("%w: %s is not a sign response", ErrBadType, frame.Type)
	}
	reader := wire.NewReader(frame.Payload)
	signature, err := reader.ReadBlob()
	if err != nil {
		return nil, fmt.Errorf("sign-response: reading signature: %w", err)
	}
	return signature, nil
}
