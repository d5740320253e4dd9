package handler

import "credledger/internal/transport/http/shared"

type IssuerStatusResponse struct {
	Issuer string `json:"issuer"`
	Status string `json:"status"`
}

type IssuerMutationResponse struct {
	Issuer  string                  `json:"issuer"`
	Status  string                  `json:"status"`
	Receipt *shared.ReceiptResponse `json:"receipt"`
}

type RolesResponse struct {
	Owner  string `json:"owner"`
	Deputy string `json:"deputy,omitempty"`
}
