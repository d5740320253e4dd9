// Package domain provides the value types exchanged with the ledger: addresses,
// hashes, public keys and request identifiers.
package domain

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/hexcodec"
)

// Address is an account identifier. It keeps the representation it was parsed
// from; comparisons are case-insensitive.
type Address string

// ParseAddress validates s at a trust boundary.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address cannot be empty")
	}
	if !common.IsHexAddress(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid address: "+s)
	}
	return Address(hexcodec.Ensure0x(s)), nil
}

// MustAddress panics on invalid input. Intended for constants and tests.
func MustAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string { return string(a) }

// Equal reports whether a and b name the same account.
func (a Address) Equal(b Address) bool { return strings.EqualFold(string(a), string(b)) }

// Key is the lower-cased form, used only for map keys and comparisons.
func (a Address) Key() string { return strings.ToLower(string(a)) }

func (a Address) IsZero() bool {
	return a == "" || common.HexToAddress(string(a)) == (common.Address{})
}

// Hash is a 32-byte certificate hash in canonical hex.
type Hash string

// ParseHash canonicalizes s and requires a 32-byte width.
func ParseHash(s string) (Hash, error) {
	c, err := hexcodec.Bytes32(s)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid certificate hash")
	}
	return Hash(c), nil
}

func (h Hash) String() string { return string(h) }

// PublicKey is a registered key in canonical hex.
type PublicKey string

// UnsetPublicKey is what a lookup returns for an identity with no key on file.
// It is distinct from any zero-valued key such as "0x00".
const UnsetPublicKey PublicKey = hexcodec.Empty

// ParsePublicKey canonicalizes s. An empty key is rejected.
func ParsePublicKey(s string) (PublicKey, error) {
	c, err := hexcodec.Canonical(s)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid public key")
	}
	if c == hexcodec.Empty {
		return "", dErrors.New(dErrors.CodeInvalidInput, "public key cannot be empty")
	}
	return PublicKey(c), nil
}

func (k PublicKey) String() string { return string(k) }
func (k PublicKey) IsUnset() bool  { return k == "" || k == UnsetPublicKey }

// RequestID identifies a verification request. Zero is never assigned.
type RequestID uint64

func ParseRequestID(s string) (RequestID, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || n == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid request ID: "+s)
	}
	return RequestID(n), nil
}

func (id RequestID) String() string { return strconv.FormatUint(uint64(id), 10) }
func (id RequestID) IsNil() bool    { return id == 0 }

// TxHash identifies a committed ledger transaction.
type TxHash string

func (h TxHash) String() string { return string(h) }
