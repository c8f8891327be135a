// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// ReadPassphrase reads a passphrase from a file path, or from stdin if
// path is "-". The returned buffer is mmap-backed (locked into RAM,
// excluded from core dumps) and must be closed by the caller. A single
// trailing line break is trimmed; interior and leading whitespace is
// preserved, since passphrases may legitimately contain it. An empty
// passphrase is valid and yields a zero-length buffer.
func ReadPassphrase(path string) (*Buffer, error) {
	var data []byte
	var err error

	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}

	trimmed := bytes.TrimSuffix(data, []byte("\n"))
	trimmed = bytes.TrimSuffix(trimmed, []byte("\r"))

	// NewFromBytes zeros trimmed; wipe the trailing line break too.
	buffer, err := NewFromBytes(trimmed)
	Zero(data)
	if err != nil {
		return nil, err
	}
	return buffer, nil
}
