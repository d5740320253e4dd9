// Package rpc exposes a ledger.Client over HTTP and consumes one.
//
// Reverts travel as 422 with a {code, reason} body so the kind survives the
// hop; every other non-2xx status is a transport failure.
package rpc

import (
	"encoding/json"

	dErrors "credledger/pkg/domain-errors"
)

const (
	PathCall      = "/v1/call"
	PathSubmit    = "/v1/submit"
	PathContracts = "/v1/contracts"
)

type callResponse struct {
	Result json.RawMessage `json:"result"`
}

type errorResponse struct {
	Code   dErrors.Code `json:"code"`
	Reason string       `json:"reason"`
}
