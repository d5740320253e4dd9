package models

import "credledger/pkg/domain"

// Registration is the directory entry for one account. PublicKey is
// domain.UnsetPublicKey when nothing is on file.
type Registration struct {
	Identity  domain.Address
	PublicKey domain.PublicKey
}

// Registered reports whether a key is on file.
func (r Registration) Registered() bool { return !r.PublicKey.IsUnset() }
