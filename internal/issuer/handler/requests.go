package handler

import (
	"strings"

	"credledger/pkg/validation"
)

type SetDeputyRequest struct {
	Deputy string `json:"deputy" validate:"required,address"`
}

func (r *SetDeputyRequest) Normalize() {
	r.Deputy = strings.TrimSpace(r.Deputy)
}

func (r *SetDeputyRequest) Validate() error {
	return validation.Validate(r)
}
