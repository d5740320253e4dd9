package models

import (
	"fmt"

	"credledger/pkg/domain"
)

// Certificate is one entry of an owner's append-only list. Index never
// changes once assigned and Revoked only moves false -> true.
type Certificate struct {
	Owner   domain.Address
	Hash    domain.Hash
	Issuer  domain.Address
	Revoked bool
	Index   uint64
}

type Metadata struct {
	Issuer  domain.Address
	Revoked bool
}

// RevokeRaceError reports a revocation whose second phase was rejected after
// the first phase resolved Index. The wrapped error keeps its domain code.
type RevokeRaceError struct {
	Owner domain.Address
	Hash  domain.Hash
	Index uint64
	Err   error
}

func (e *RevokeRaceError) Error() string {
	return fmt.Sprintf("revoke %s for %s at index %d raced: %v", e.Hash, e.Owner, e.Index, e.Err)
}

func (e *RevokeRaceError) Unwrap() error { return e.Err }
