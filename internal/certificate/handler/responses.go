package handler

import (
	"credledger/internal/certificate/models"
	"credledger/internal/transport/http/shared"
)

type CertificateResponse struct {
	Index   uint64 `json:"index"`
	Hash    string `json:"hash"`
	Issuer  string `json:"issuer"`
	Revoked bool   `json:"revoked"`
}

type CertificateListResponse struct {
	Owner        string                `json:"owner"`
	Count        uint64                `json:"count"`
	Certificates []CertificateResponse `json:"certificates"`
}

type MetadataResponse struct {
	Hash    string `json:"hash"`
	Index   uint64 `json:"index"`
	Issuer  string `json:"issuer"`
	Revoked bool   `json:"revoked"`
}

type CertificateMutationResponse struct {
	Owner   string                  `json:"owner"`
	Hash    string                  `json:"hash"`
	Index   *uint64                 `json:"index,omitempty"`
	Receipt *shared.ReceiptResponse `json:"receipt"`
}

func toCertificateResponse(c models.Certificate) CertificateResponse {
	return CertificateResponse{
		Index:   c.Index,
		Hash:    c.Hash.String(),
		Issuer:  c.Issuer.String(),
		Revoked: c.Revoked,
	}
}
