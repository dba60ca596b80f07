package security

import (
	"encoding/base32"
	"strings"
)

const base32Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

var rawBase32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Base32Encode encodes data with the RFC 4648 alphabet, zero-filling the
// final group and emitting no padding.
func Base32Encode(data []byte) string {
	return rawBase32.EncodeToString(data)
}

// Base32Decode is lenient: input is upper-cased, any character outside
// A-Z2-7 is dropped and trailing bits that do not fill a byte are
// discarded, so the result is floor(n*5/8) bytes for n kept symbols.
func Base32Decode(text string) []byte {
	out := make([]byte, 0, len(text)*5/8)

	var buffer uint32
	bits := 0
	for _, r := range strings.ToUpper(text) {
		idx := strings.IndexRune(base32Alphabet, r)
		if idx < 0 {
			continue
		}
		buffer = buffer<<5 | uint32(idx)
		bits += 5
		if bits >= 8 {
			out = append(out, byte(buffer>>(bits-8)))
			bits -= 8
		}
	}
	return out
}
