package handler

import (
	"strings"

	"credledger/pkg/validation"
)

type DepositRequest struct {
	Amount uint64 `json:"amount" validate:"min=1"`
}

func (r *DepositRequest) Validate() error { return validation.Validate(r) }

type SubmitRequest struct {
	User string `json:"user" validate:"required,address"`
	Hash string `json:"hash" validate:"required,hash32"`
}

func (r *SubmitRequest) Normalize() {
	r.User = strings.TrimSpace(r.User)
	r.Hash = strings.TrimSpace(r.Hash)
}

func (r *SubmitRequest) Validate() error { return validation.Validate(r) }

type ApproveRequest struct {
	Locator string `json:"locator" validate:"required,cid"`
}

func (r *ApproveRequest) Normalize() { r.Locator = strings.TrimSpace(r.Locator) }

func (r *ApproveRequest) Validate() error { return validation.Validate(r) }

// CompleteRequest carries the hash of the document the seeker retrieved.
// Any hex is accepted: a mismatch is a valid outcome, not a bad request.
type CompleteRequest struct {
	RetrievedHash string `json:"retrieved_hash" validate:"required,hexbytes"`
}

func (r *CompleteRequest) Normalize() { r.RetrievedHash = strings.TrimSpace(r.RetrievedHash) }

func (r *CompleteRequest) Validate() error { return validation.Validate(r) }
