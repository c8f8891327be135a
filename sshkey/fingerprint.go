// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sshkey

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// Digest returns the SHA-256 digest of a public wire blob. The digest
// is a pure function of the blob; it is what fingerprints and
// randomart are derived from.
func Digest(publicBlob []byte) [32]byte {
	return sha256.Sum256(publicBlob)
}

// Fingerprint returns the display fingerprint of a public wire blob:
// "SHA256:" followed by the base64 digest with trailing padding
// stripped, matching what ssh-add -l prints.
func Fingerprint(publicBlob []byte) string {
	digest := Digest(publicBlob)
	encoded := base64.StdEncoding.EncodeToString(digest[:])
	return "SHA256:" + strings.TrimRight(encoded, "=")
}

// FingerprintHex returns the lower-hex form of the digest.
func FingerprintHex(publicBlob []byte) string {
	digest := Digest(publicBlob)
	return hex.EncodeToString(digest[:])
}

// AuthorizedLine renders a public key as an authorized_keys line:
// "<type> <base64 blob> <comment>".
func AuthorizedLine(typeName string, publicBlob []byte, comment string) string {
	return fmt.Sprintf("%s %s %s", typeName, base64.StdEncoding.EncodeToString(publicBlob), comment)
}

// Randomart grid dimensions, the classic drunken-bishop board.
const (
	randomartWidth  = 17
	randomartHeight = 9
)

// randomartSymbols maps cell visit counts to glyphs. The walk stops
// incrementing a cell two symbols from the end; S and E are drawn over
// the start and end positions afterwards.
const randomartSymbols = " .o+=*BOX@%&#/^"

// Randomart renders the OpenSSH-style visual key for a public wire
// blob: a 17x9 grid walked by reading the SHA-256 digest two bits at a
// time (low bits first), one line per row, framed by a header carrying
// the key family and size and a footer naming the digest.
func Randomart(publicBlob []byte, family string, bits int) []string {
	digest := Digest(publicBlob)

	var grid [randomartHeight][randomartWidth]int
	x := randomartWidth / 2
	y := randomartHeight / 2
	for _, value := range digest {
		for range 4 {
			if value&0x1 != 0 {
				x++
			} else {
				x--
			}
			if value&0x2 != 0 {
				y++
			} else {
				y--
			}
			x = clamp(x, 0, randomartWidth-1)
			y = clamp(y, 0, randomartHeight-1)
			if grid[y][x] < len(randomartSymbols)-2 {
				grid[y][x]++
			}
			value >>= 2
		}
	}

	label := fmt.Sprintf("[%s %d]", family, bits)
	frontPad := (randomartWidth - len(label)) / 2
	backPad := randomartWidth - len(label) - frontPad
	lines := make([]string, 0, randomartHeight+2)
	lines = append(lines, "+"+strings.Repeat("-", frontPad)+label+strings.Repeat("-", backPad)+"+")

	for row := 0; row < randomartHeight; row++ {
		var line strings.Builder
		line.WriteByte('|')
		for col := 0; col < randomartWidth; col++ {
			switch {
			case row == randomartHeight/2 && col == randomartWidth/2:
				line.WriteByte('S')
			case row == y && col == x:
				line.WriteByte('E')
			default:
				line.WriteByte(randomartSymbols[grid[row][col]])
			}
		}
		line.WriteByte('|')
		lines = append(lines, line.String())
	}

	lines = append(lines, "+----[SHA256]-----+")
	return lines
}

func clamp(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
