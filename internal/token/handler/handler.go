package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"credledger/internal/ledger"
	"credledger/internal/transport/http/shared"
	"credledger/pkg/domain"
	"credledger/pkg/platform/httputil"
	"credledger/pkg/requestcontext"
)

// Service is the token ledger as seen by HTTP.
type Service interface {
	BalanceOf(ctx context.Context, owner domain.Address) (uint64, error)
	TotalSupply(ctx context.Context) (uint64, error)
	Allowance(ctx context.Context, owner, spender domain.Address) (uint64, error)
	Transfer(ctx context.Context, from, to domain.Address, amount uint64) (*ledger.Receipt, error)
	Approve(ctx context.Context, owner, spender domain.Address, amount uint64) (*ledger.Receipt, error)
	TransferFrom(ctx context.Context, from, to domain.Address, amount uint64, spender domain.Address) (*ledger.Receipt, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router, requireCaller func(http.Handler) http.Handler) {
	r.Get("/v1/tokens/supply", h.HandleSupply)
	r.Get("/v1/tokens/{address}/balance", h.HandleBalance)
	r.Get("/v1/tokens/{address}/allowance/{spender}", h.HandleAllowance)
	r.Group(func(r chi.Router) {
		r.Use(requireCaller)
		r.Post("/v1/tokens/transfer", h.HandleTransfer)
		r.Post("/v1/tokens/approve", h.HandleApprove)
		r.Post("/v1/tokens/transfer-from", h.HandleTransferFrom)
	})
}

func (h *Handler) HandleSupply(w http.ResponseWriter, r *http.Request) {
	supply, err := h.service.TotalSupply(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &SupplyResponse{TotalSupply: supply})
}

func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	owner, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	balance, err := h.service.BalanceOf(r.Context(), owner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &BalanceResponse{Address: owner.String(), Balance: balance})
}

func (h *Handler) HandleAllowance(w http.ResponseWriter, r *http.Request) {
	owner, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	spender, err := domain.ParseAddress(chi.URLParam(r, "spender"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	allowed, err := h.service.Allowance(r.Context(), owner, spender)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &AllowanceResponse{Owner: owner.String(), Spender: spender.String(), Allowance: allowed})
}

func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[TransferRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	caller, err := httputil.RequireCaller(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	to, err := domain.ParseAddress(req.To)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	receipt, err := h.service.Transfer(ctx, caller, to, req.Amount)
	h.writeReceipt(ctx, w, "transfer failed", receipt, err)
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[ApproveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	caller, err := httputil.RequireCaller(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	spender, err := domain.ParseAddress(req.Spender)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	receipt, err := h.service.Approve(ctx, caller, spender, req.Amount)
	h.writeReceipt(ctx, w, "approve failed", receipt, err)
}

func (h *Handler) HandleTransferFrom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[TransferFromRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	caller, err := httputil.RequireCaller(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	from, err := domain.ParseAddress(req.From)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	to, err := domain.ParseAddress(req.To)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	receipt, err := h.service.TransferFrom(ctx, from, to, req.Amount, caller)
	h.writeReceipt(ctx, w, "transfer from failed", receipt, err)
}

func (h *Handler) writeReceipt(ctx context.Context, w http.ResponseWriter, failure string, receipt *ledger.Receipt, err error) {
	if err != nil {
		h.logger.WarnContext(ctx, failure, "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, shared.ToReceiptResponse(receipt))
}
