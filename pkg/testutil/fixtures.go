package testutil

import (
	"strings"

	"credledger/pkg/domain"
)

// TestAddresses are fixed, distinct accounts for ledger tests.
var TestAddresses = struct {
	Owner  domain.Address
	Deputy domain.Address
	Issuer domain.Address
	User   domain.Address
	Seeker domain.Address
	Other  domain.Address
}{
	Owner:  domain.MustAddress("0x00000000000000000000000000000000000000A0"),
	Deputy: domain.MustAddress("0x00000000000000000000000000000000000000D0"),
	Issuer: domain.MustAddress("0x00000000000000000000000000000000000001E0"),
	User:   domain.MustAddress("0x0000000000000000000000000000000000000050"),
	Seeker: domain.MustAddress("0x00000000000000000000000000000000000005E0"),
	Other:  domain.MustAddress("0x00000000000000000000000000000000000000FF"),
}

// Locator is a valid CIDv1 for approval flows.
const Locator = "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi"

// CertHash returns a canonical 32-byte hash made of one repeated byte, e.g.
// CertHash("ab") is 0xabab...ab.
func CertHash(b string) domain.Hash {
	return domain.Hash("0x" + strings.Repeat(strings.ToLower(b), 32))
}

// PublicKey returns a canonical 64-byte key made of one repeated byte.
func PublicKey(b string) domain.PublicKey {
	return domain.PublicKey("0x" + strings.Repeat(strings.ToLower(b), 64))
}
