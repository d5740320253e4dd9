// Package handler serves the audit trail over HTTP. Every event is derived
// from a public ledger transaction, so the routes need no caller.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"credledger/internal/audit"
	"credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/hexcodec"
	"credledger/pkg/platform/httputil"
	"credledger/pkg/requestcontext"
)

type Service interface {
	ListBySubject(ctx context.Context, subject string) ([]audit.Event, error)
	ListByTx(ctx context.Context, txHash string) ([]audit.Event, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router, _ func(http.Handler) http.Handler) {
	r.Get("/v1/audit/subjects/{address}", h.HandleBySubject)
	r.Get("/v1/audit/tx/{hash}", h.HandleByTx)
}

func (h *Handler) HandleBySubject(w http.ResponseWriter, r *http.Request) {
	subject, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.list(w, r, func(ctx context.Context) ([]audit.Event, error) {
		return h.service.ListBySubject(ctx, subject.String())
	})
}

// HandleByTx answers 404 when no event was recorded for the transaction:
// either it never happened or it was not a mutation the gateway audits.
func (h *Handler) HandleByTx(w http.ResponseWriter, r *http.Request) {
	tx, err := hexcodec.Bytes32(chi.URLParam(r, "hash"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid transaction hash"))
		return
	}
	h.list(w, r, func(ctx context.Context) ([]audit.Event, error) {
		events, err := h.service.ListByTx(ctx, tx)
		if err == nil && len(events) == 0 {
			return nil, dErrors.New(dErrors.CodeNotFound, "no audit events for transaction")
		}
		return events, err
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, query func(ctx context.Context) ([]audit.Event, error)) {
	ctx := r.Context()
	events, err := query(ctx)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "audit query failed",
				"error", err,
				"path", r.URL.Path,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		httputil.WriteError(w, asDomainError(err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEventListResponse(events))
}

func asDomainError(err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "audit store unavailable")
}
