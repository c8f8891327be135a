// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package message

import (
	"fmt"

	"github.com/bureau-foundation/sshagent/lib/wire"
)

// userauthRequestType is the SSH_MSG_USERAUTH_REQUEST message number
// (SSH protocol, not agent protocol).
const userauthRequestType = 50

// Hostbound publickey authentication is the only method whose
// signed data binds the server host key, which is what destination
// constraints rely on.
const (
	userauthService = "ssh-connection"
	userauthMethod  = "publickey-hostbound-v00@openssh.com"
)

// UserAuthRequest is the decoded data-to-be-signed of a hostbound
// publickey userauth request. The session uses the username for
// constraint evaluation and the session id to pin the request to the
// most recent session binding.
type UserAuthRequest struct {
	SessionID     []byte
	Username      string
	KeyType       string
	PublicKey     []byte
	ServerHostKey []byte
}

// ParseUserAuth decodes userauth sign data. Any deviation from the
// hostbound publickey layout rejects the message: a constrained key
// must not sign data the agent cannot account for.
func ParseUserAuth(data []byte) (*UserAuthRequest, error) {
	reader := wire.NewReader(data)
	request := &UserAuthRequest{}
	var err error

	if request.SessionID, err = reader.ReadBlob(); err != nil {
		return nil, fmt.Errorf("userauth: reading session id: %w", err)
	}
	if len(request.SessionID) == 0 {
		return nil, fmt.Errorf("userauth: empty session id")
	}

	messageType, err := reader.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("userauth: reading message type: %w", err)
	}
	if messageType != userauthRequestType {
		return nil, fmt.Errorf("userauth: message type %d is not SSH_MSG_USERAUTH_REQUEST", messageType)
	}

	if request.Username, err = reader.ReadString(); err != nil {
		return nil, fmt.Errorf("userauth: reading username: %w", err)
	}
	service, err := reader.ReadString()
	if err != nil {
		return nil, fmt.Errorf("userauth: reading service: %w", err)
	}
	method, err := reader.ReadString()
	if err != nil {
		return nil, fmt.Errorf("userauth: reading method: %w", err)
	}
	hasSignature, err := reader.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("userauth: reading signature flag: %w", err)
	}
	if service != userauthService || method != userauthMethod || hasSignature != 1 {
		return nil, fmt.Errorf("userauth: unsupported service/method/signature %q/%q/%d", service, method, hasSignature)
	}

	if request.KeyType, err = reader.ReadString(); err != nil {
		return nil, fmt.Errorf("userauth: reading key type: %w", err)
	}
	if request.PublicKey, err = reader.ReadBlob(); err != nil {
		return nil, fmt.Errorf("userauth: reading public key: %w", err)
	}
	if request.ServerHostKey, err = reader.ReadBlob(); err != nil {
		return nil, fmt.Errorf("userauth: reading server host key: %w", err)
	}
	return request, nil
}

// Encode serializes userauth sign data, for clients and tests.
func (u *UserAuthRequest) Encode() ([]byte, error) {
	writer := wire.NewWriter()
	if err := writer.WriteBlob(u.SessionID); err != nil {
		return nil, err
	}
	if err := writer.WriteByte(userauthRequestType); err != nil {
		return nil, err
	}
	if err := writer.WriteString(u.Username); err != nil {
		return nil, err
	}
	if err := writer.WriteString(userauthService); err != nil {
		return nil, err
	}
	if err := writer.WriteString(userauthMethod); err != nil {
		return nil, err
	}
	if err := writer.WriteByte(1); err != nil {
		return nil, err
	}
	if err := writer.WriteString(u.KeyType); err != nil {
		return nil, err
	}
	if err := writer.WriteBlob(u.PublicKey); err != nil {
		return nil, err
	}
	if err := writer.WriteBlob(u.ServerHostKey); err != nil {
		return nil, err
	}
	return writer.Bytes(), nil
}
