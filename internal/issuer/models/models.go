package models

import "credledger/contracts/protocol"

// IssuerStatus is the registry status of an issuer account.
type IssuerStatus = protocol.IssuerStatus

const (
	IssuerNone     = protocol.IssuerNone
	IssuerActive   = protocol.IssuerActive
	IssuerInactive = protocol.IssuerInactive
)

func ParseIssuerStatus(v string) (IssuerStatus, error) {
	return protocol.ParseIssuerStatus(v)
}
