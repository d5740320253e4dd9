package handler

import (
	"strings"

	"credledger/pkg/validation"
)

type AddCertificateRequest struct {
	Hash string `json:"hash" validate:"required,hash32"`
}

func (r *AddCertificateRequest) Normalize() {
	r.Hash = strings.TrimSpace(r.Hash)
}

func (r *AddCertificateRequest) Validate() error {
	return validation.Validate(r)
}
