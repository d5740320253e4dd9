package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"credledger/internal/issuer/models"
	"credledger/internal/ledger"
	"credledger/internal/transport/http/shared"
	"credledger/pkg/domain"
	"credledger/pkg/platform/httputil"
	"credledger/pkg/requestcontext"
)

// Service is the issuer registry as seen by HTTP.
type Service interface {
	AddIssuer(ctx context.Context, issuer, caller domain.Address) (*ledger.Receipt, error)
	RemoveIssuer(ctx context.Context, issuer, caller domain.Address) (*ledger.Receipt, error)
	StatusOf(ctx context.Context, issuer domain.Address) (models.IssuerStatus, error)
	SetDeputy(ctx context.Context, deputy, caller domain.Address) (*ledger.Receipt, error)
	Owner(ctx context.Context) (domain.Address, error)
	Deputy(ctx context.Context) (domain.Address, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the issuer routes. Mutations run behind requireCaller.
func (h *Handler) Register(r chi.Router, requireCaller func(http.Handler) http.Handler) {
	r.Get("/v1/issuers/roles", h.HandleRoles)
	r.Get("/v1/issuers/{address}", h.HandleStatus)
	r.Group(func(r chi.Router) {
		r.Use(requireCaller)
		r.Post("/v1/issuers/{address}", h.HandleAdd)
		r.Delete("/v1/issuers/{address}", h.HandleRemove)
		r.Put("/v1/issuers/deputy", h.HandleSetDeputy)
	})
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "add issuer failed", h.service.AddIssuer)
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "remove issuer failed", h.service.RemoveIssuer)
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, failure string,
	op func(ctx context.Context, issuer, caller domain.Address) (*ledger.Receipt, error),
) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	issuer, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	caller, err := httputil.RequireCaller(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	receipt, err := op(ctx, issuer, caller)
	if err != nil {
		h.logger.WarnContext(ctx, failure, "error", err, "request_id", requestID, "issuer", issuer.String())
		httputil.WriteError(w, err)
		return
	}
	status, err := h.service.StatusOf(ctx, issuer)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &IssuerMutationResponse{
		Issuer:  issuer.String(),
		Status:  status.String(),
		Receipt: shared.ToReceiptResponse(receipt),
	})
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	issuer, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := h.service.StatusOf(ctx, issuer)
	if err != nil {
		h.logger.WarnContext(ctx, "issuer status failed", "error", err,
			"request_id", requestcontext.RequestID(ctx), "issuer", issuer.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &IssuerStatusResponse{Issuer: issuer.String(), Status: status.String()})
}

func (h *Handler) HandleRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := h.service.Owner(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	deputy, err := h.service.Deputy(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &RolesResponse{Owner: owner.String(), Deputy: deputy.String()})
}

func (h *Handler) HandleSetDeputy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SetDeputyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	caller, err := httputil.RequireCaller(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	deputy, err := domain.ParseAddress(req.Deputy)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	receipt, err := h.service.SetDeputy(ctx, deputy, caller)
	if err != nil {
		h.logger.WarnContext(ctx, "set deputy failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, shared.ToReceiptResponse(receipt))
}
