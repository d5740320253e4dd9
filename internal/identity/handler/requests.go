package handler

import (
	"strings"

	"credledger/pkg/validation"
)

type RegisterRequest struct {
	PublicKey string `json:"public_key" validate:"required,hexbytes"`
}

func (r *RegisterRequest) Normalize() {
	r.PublicKey = strings.TrimSpace(r.PublicKey)
}

func (r *RegisterRequest) Validate() error {
	return validation.Validate(r)
}
