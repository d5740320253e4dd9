package handler

import (
	"time"

	"credledger/internal/audit"
)

type EventResponse struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Subject   string    `json:"subject,omitempty"`
	Contract  string    `json:"contract,omitempty"`
	TxHash    string    `json:"tx_hash,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

type EventListResponse struct {
	Events []EventResponse `json:"events"`
	Count  int             `json:"count"`
}

func toEventListResponse(events []audit.Event) *EventListResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, EventResponse{
			ID:        e.ID,
			Timestamp: e.Timestamp,
			Action:    string(e.Action),
			Actor:     e.Actor,
			Subject:   e.Subject,
			Contract:  e.Contract,
			TxHash:    e.TxHash,
			Reason:    e.Reason,
			RequestID: e.RequestID,
		})
	}
	return &EventListResponse{Events: out, Count: len(out)}
}
