package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"credledger/internal/identity/models"
	"credledger/internal/ledger"
	"credledger/internal/transport/http/shared"
	"credledger/pkg/domain"
	"credledger/pkg/platform/httputil"
	"credledger/pkg/requestcontext"
)

// Service is the identity directory as seen by HTTP.
type Service interface {
	Register(ctx context.Context, identity domain.Address, key domain.PublicKey) (*ledger.Receipt, error)
	Lookup(ctx context.Context, identity domain.Address) (models.Registration, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router, requireCaller func(http.Handler) http.Handler) {
	r.Get("/v1/pubkeys/{address}", h.HandleLookup)
	r.With(requireCaller).Post("/v1/pubkeys", h.HandleRegister)
}

// HandleRegister stores a key for the authenticated caller.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	caller, err := httputil.RequireCaller(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	receipt, err := h.service.Register(ctx, caller, domain.PublicKey(req.PublicKey))
	if err != nil {
		h.logger.WarnContext(ctx, "register public key failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, shared.ToReceiptResponse(receipt))
}

func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reg, err := h.service.Lookup(ctx, identity)
	if err != nil {
		h.logger.WarnContext(ctx, "lookup public key failed", "error", err,
			"request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &PublicKeyResponse{
		Identity:   reg.Identity.String(),
		PublicKey:  reg.PublicKey.String(),
		Registered: reg.Registered(),
	})
}
