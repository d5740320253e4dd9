package handler

import (
	"strings"

	"credledger/pkg/validation"
)

type TransferRequest struct {
	To     string `json:"to" validate:"required,address"`
	Amount uint64 `json:"amount" validate:"min=1"`
}

func (r *TransferRequest) Normalize() { r.To = strings.TrimSpace(r.To) }

func (r *TransferRequest) Validate() error { return validation.Validate(r) }

type ApproveRequest struct {
	Spender string `json:"spender" validate:"required,address"`
	Amount  uint64 `json:"amount"`
}

func (r *ApproveRequest) Normalize() { r.Spender = strings.TrimSpace(r.Spender) }

func (r *ApproveRequest) Validate() error { return validation.Validate(r) }

type TransferFromRequest struct {
	From   string `json:"from" validate:"required,address"`
	To     string `json:"to" validate:"required,address"`
	Amount uint64 `json:"amount" validate:"min=1"`
}

func (r *TransferFromRequest) Normalize() {
	r.From = strings.TrimSpace(r.From)
	r.To = strings.TrimSpace(r.To)
}

func (r *TransferFromRequest) Validate() error { return validation.Validate(r) }
