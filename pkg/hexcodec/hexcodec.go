// Package hexcodec canonicalizes hex-encoded byte values at every boundary crossing.
//
// The canonical form is lower-case and "0x"-prefixed. Callers may supply prefixed,
// unprefixed, or mixed-case input and always observe the same canonical string.
package hexcodec

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Empty is the canonical encoding of zero bytes.
const Empty = "0x"

// Bytes32Len is the byte width of certificate hashes.
const Bytes32Len = 32

// Ensure0x adds the "0x" prefix when it is missing.
func Ensure0x(s string) string {
	if has0x(s) {
		return s
	}
	return "0x" + s
}

// Strip0x removes a single leading "0x" or "0X".
func Strip0x(s string) string {
	if has0x(s) {
		return s[2:]
	}
	return s
}

// Canonical returns the canonical encoding of s.
func Canonical(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Empty, nil
	}
	b, err := hexutil.Decode("0x" + Strip0x(s))
	if err != nil {
		return "", fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return hexutil.Encode(b), nil
}

// Bytes32 canonicalizes s and requires it to encode exactly 32 bytes.
func Bytes32(s string) (string, error) {
	c, err := Canonical(s)
	if err != nil {
		return "", err
	}
	if n := (len(c) - 2) / 2; n != Bytes32Len {
		return "", fmt.Errorf("invalid hex %q: want %d bytes, got %d", s, Bytes32Len, n)
	}
	return c, nil
}

// Decode returns the bytes encoded by s in any accepted form.
func Decode(s string) ([]byte, error) {
	c, err := Canonical(s)
	if err != nil {
		return nil, err
	}
	return hexutil.MustDecode(c), nil
}

// Encode returns the canonical encoding of b.
func Encode(b []byte) string {
	return hexutil.Encode(b)
}

// Equal compares two encodings by value. Invalid input never compares equal.
func Equal(a, b string) bool {
	ca, err := Canonical(a)
	if err != nil {
		return false
	}
	cb, err := Canonical(b)
	if err != nil {
		return false
	}
	return ca == cb
}

func has0x(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
