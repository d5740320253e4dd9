package handler

import (
	"credledger/internal/escrow/models"
	"credledger/internal/transport/http/shared"
)

type CostResponse struct {
	RequestCost uint64 `json:"request_cost"`
}

type BalanceResponse struct {
	Seeker    string `json:"seeker"`
	Available uint64 `json:"available"`
	Inflight  uint64 `json:"inflight"`
}

type RefundResponse struct {
	Refunded uint64                  `json:"refunded"`
	Receipt  *shared.ReceiptResponse `json:"receipt"`
}

type RequestResponse struct {
	ID       uint64 `json:"id"`
	Seeker   string `json:"seeker"`
	User     string `json:"user"`
	Hash     string `json:"hash"`
	Cost     uint64 `json:"cost"`
	Status   string `json:"status"`
	Terminal bool   `json:"terminal"`
	Locator  string `json:"locator,omitempty"`
}

type RequestListResponse struct {
	Seeker   string             `json:"seeker"`
	Requests []*RequestResponse `json:"requests"`
}

type RequestMutationResponse struct {
	Request *RequestResponse        `json:"request"`
	Receipt *shared.ReceiptResponse `json:"receipt"`
}

func toRequestResponse(r *models.VerificationRequest) *RequestResponse {
	return &RequestResponse{
		ID:       uint64(r.ID),
		Seeker:   r.Seeker.String(),
		User:     r.User.String(),
		Hash:     r.Hash.String(),
		Cost:     r.Cost,
		Status:   r.Status.String(),
		Terminal: r.Status.IsTerminal(),
		Locator:  r.Locator,
	}
}
