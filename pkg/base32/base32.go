package base32

import (
	stdbase32 "encoding/base32"
	"strings"
)

// Alphabet is the RFC 4648 Base32 symbol set.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

var encoding = stdbase32.NewEncoding(Alphabet).WithPadding(stdbase32.NoPadding)

// decodeMap maps an upper-cased symbol to its 5-bit value, 0xFF for unknown symbols.
var decodeMap = func() [256]byte {
	var m [256]byte
	for i := range m {
		m[i] = 0xFF
	}
	for i := 0; i < len(Alphabet); i++ {
		m[Alphabet[i]] = byte(i)
	}
	return m
}()

// Encode maps every 5 bits of data to one alphabet symbol. The last partial group
// is padded with zero bits and no "=" characters are appended.
func Encode(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return encoding.EncodeToString(data)
}

// Decode is the case-insensitive inverse of Encode. Trailing "=" padding is removed
// and symbols outside the alphabet are skipped rather than rejected. Bits left over
// after the last full byte are discarded.
func Decode(s string) []byte {
	s = strings.ToUpper(strings.TrimRight(s, "="))

	out := make([]byte, 0, len(s)*5/8)
	var buffer uint32
	var bits uint

	for i := 0; i < len(s); i++ {
		v := decodeMap[s[i]]
		if v == 0xFF {
			continue
		}
		buffer = buffer<<5 | uint32(v)
		bits += 5
		if bits >= 8 {
			bits -= 8
			out = append(out, byte(buffer>>bits))
			buffer &= 1<<bits - 1
		}
	}

	return out
}
