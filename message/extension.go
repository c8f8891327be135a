// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package message

import (
	"fmt"

	"github.com/bureau-foundation/sshagent/lib/wire"
)

// ParseExtension decodes the name of an extension frame and returns a
// reader positioned at the extension body. Resolving the name against
// a registry is the session's job: it needs the name even when no
// decoder is registered, to offer the embedder's hook a chance first.
func ParseExtension(frame Frame) (name string, body *wire.Reader, err error) {
	if frame.Type != TypeExtension {
		return "", nil, fmt.Errorf("%w: %s is not an extension", ErrBadType, frame.Type)
	}
	reader := wire.NewReader(frame.Payload)
	if name, err = reader.ReadString(); err != nil {
		return "", nil, fmt.Errorf("extension: reading name: %w", err)
	}
	return name, reader, nil
}

// EncodeExtension encodes an extension frame from a name and a raw,
// extension-defined body.
func EncodeExtension(name string, body []byte) ([]byte, error) {
	writer := wire.NewWriter()
	if err := beginFrame(writer, TypeExtension); err != nil {
		return nil, err
	}
	if err := writer.WriteString(name); err != nil {
		return nil, err
	}
	if err := writer.WriteRaw(body); err != nil {
		return nil, err
	}
	if err := writer.Finalize(); err != nil {
		return nil, err
	}
	return writer.Bytes(), nil
}

// EncodeSessionBind encodes the body of a session-bind@openssh.com
// extension; pair it with EncodeExtension. Used by forwarding clients
// and tests.
func EncodeSessionBind(hostKey, sessionID, signature []byte, forwarded bool) ([]byte, error) {
	writer := wire.NewWriter()
	if err := writer.WriteBlob(hostKey); err != nil {
		return nil, err
	}
	if err := writer.WriteBlob(sessionID); err != nil {
		return nil, err
	}
	if err := writer.WriteBlob(signature); err != nil {
		return nil, err
	}
	flag := byte(0)
	if forwarded {
		flag = 1
	}
	if err := writer.WriteByte(flag); err != nil {
		return nil, err
	}
	return writer.Bytes(), nil
}
