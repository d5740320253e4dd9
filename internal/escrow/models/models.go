package models

import (
	"credledger/contracts/protocol"
	"credledger/pkg/domain"
)

// RequestStatus is the escrow state of a verification request.
type RequestStatus = protocol.RequestStatus

const (
	RequestNone            = protocol.RequestNone
	RequestInitial         = protocol.RequestInitial
	RequestUserCompleted   = protocol.RequestUserCompleted
	RequestUserDenied      = protocol.RequestUserDenied
	RequestSeekerCompleted = protocol.RequestSeekerCompleted
	RequestSeekerFailed    = protocol.RequestSeekerFailed
	RequestSeekerCancelled = protocol.RequestSeekerCancelled
)

// CanTransition reports whether a request may move from -> to. The ledger
// applies the same table.
func CanTransition(from, to RequestStatus) bool {
	return protocol.CanTransition(from, to)
}

// VerificationRequest is a seeker's paid request to verify one of a user's
// certificates.
type VerificationRequest struct {
	ID      domain.RequestID
	Seeker  domain.Address
	User    domain.Address
	Hash    domain.Hash
	Cost    uint64
	Status  RequestStatus
	Locator string
}

// FromProtocol converts the ledger's request record.
func FromProtocol(r protocol.Request) *VerificationRequest {
	return &VerificationRequest{
		ID:      domain.RequestID(r.ID),
		Seeker:  domain.Address(r.Seeker),
		User:    domain.Address(r.User),
		Hash:    domain.Hash(r.Hash),
		Cost:    r.Cost,
		Status:  r.Status,
		Locator: r.Locator,
	}
}

// Balances is a seeker's escrow position.
type Balances struct {
	Seeker    domain.Address
	Available uint64
	Inflight  uint64
}
