package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"credledger/internal/escrow/models"
	"credledger/internal/ledger"
	"credledger/internal/transport/http/shared"
	"credledger/pkg/domain"
	"credledger/pkg/platform/httputil"
	"credledger/pkg/requestcontext"
)

// Service is the escrow ledger as seen by HTTP.
type Service interface {
	IncreaseAvailableBalance(ctx context.Context, seeker domain.Address, amount uint64) (*ledger.Receipt, error)
	RefundAvailableBalance(ctx context.Context, seeker domain.Address) (uint64, *ledger.Receipt, error)
	Balances(ctx context.Context, seeker domain.Address) (models.Balances, error)
	RequestCost(ctx context.Context) (uint64, error)
	SubmitRequest(ctx context.Context, seeker, user domain.Address, hash domain.Hash) (*models.VerificationRequest, *ledger.Receipt, error)
	ApproveRequest(ctx context.Context, user domain.Address, id domain.RequestID, locator string) (*models.VerificationRequest, *ledger.Receipt, error)
	DenyRequest(ctx context.Context, user domain.Address, id domain.RequestID) (*models.VerificationRequest, *ledger.Receipt, error)
	CancelRequest(ctx context.Context, seeker domain.Address, id domain.RequestID) (*models.VerificationRequest, *ledger.Receipt, error)
	CompleteRequest(ctx context.Context, seeker domain.Address, id domain.RequestID, retrieved string) (*models.VerificationRequest, *ledger.Receipt, error)
	GetRequest(ctx context.Context, id domain.RequestID) (*models.VerificationRequest, error)
	ListRequestsBySeeker(ctx context.Context, seeker domain.Address) ([]*models.VerificationRequest, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router, requireCaller func(http.Handler) http.Handler) {
	r.Route("/v1/escrow", func(r chi.Router) {
		r.Get("/cost", h.HandleCost)
		r.Get("/{seeker}/balance", h.HandleBalance)
		r.Get("/{seeker}/requests", h.HandleListRequests)
		r.Get("/requests/{id}", h.HandleGetRequest)

		r.Group(func(r chi.Router) {
			r.Use(requireCaller)
			r.Post("/deposit", h.HandleDeposit)
			r.Post("/refund", h.HandleRefund)
			r.Post("/requests", h.HandleSubmit)
			r.Post("/requests/{id}/approve", h.HandleApprove)
			r.Post("/requests/{id}/deny", h.HandleDeny)
			r.Post("/requests/{id}/cancel", h.HandleCancel)
			r.Post("/requests/{id}/complete", h.HandleComplete)
		})
	})
}

func (h *Handler) HandleCost(w http.ResponseWriter, r *http.Request) {
	cost, err := h.service.RequestCost(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &CostResponse{RequestCost: cost})
}

func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	seeker, err := domain.ParseAddress(chi.URLParam(r, "seeker"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	b, err := h.service.Balances(r.Context(), seeker)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &BalanceResponse{
		Seeker:    b.Seeker.String(),
		Available: b.Available,
		Inflight:  b.Inflight,
	})
}

func (h *Handler) HandleListRequests(w http.ResponseWriter, r *http.Request) {
	seeker, err := domain.ParseAddress(chi.URLParam(r, "seeker"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reqs, err := h.service.ListRequestsBySeeker(r.Context(), seeker)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := &RequestListResponse{Seeker: seeker.String(), Requests: make([]*RequestResponse, 0, len(reqs))}
	for _, req := range reqs {
		resp.Requests = append(resp.Requests, toRequestResponse(req))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGetRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := requestID(w, r)
	if !ok {
		return
	}
	req, err := h.service.GetRequest(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRequestResponse(req))
}

func (h *Handler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rid := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[DepositRequest](w, r, h.logger, ctx, rid)
	if !ok {
		return
	}
	seeker, ok := h.caller(w, r)
	if !ok {
		return
	}
	receipt, err := h.service.IncreaseAvailableBalance(ctx, seeker, req.Amount)
	if err != nil {
		h.fail(ctx, w, "escrow deposit failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, shared.ToReceiptResponse(receipt))
}

func (h *Handler) HandleRefund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	seeker, ok := h.caller(w, r)
	if !ok {
		return
	}
	refunded, receipt, err := h.service.RefundAvailableBalance(ctx, seeker)
	if err != nil {
		h.fail(ctx, w, "escrow refund failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &RefundResponse{Refunded: refunded, Receipt: shared.ToReceiptResponse(receipt)})
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rid := requestcontext.RequestID(ctx)
	body, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, rid)
	if !ok {
		return
	}
	seeker, ok := h.caller(w, r)
	if !ok {
		return
	}
	hash, err := domain.ParseHash(body.Hash)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	user, err := domain.ParseAddress(body.User)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, receipt, err := h.service.SubmitRequest(ctx, seeker, user, hash)
	h.writeTransition(ctx, w, http.StatusCreated, "submit request failed", req, receipt, err)
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rid := requestcontext.RequestID(ctx)
	id, ok := requestID(w, r)
	if !ok {
		return
	}
	body, ok := httputil.DecodeAndPrepare[ApproveRequest](w, r, h.logger, ctx, rid)
	if !ok {
		return
	}
	user, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, receipt, err := h.service.ApproveRequest(ctx, user, id, body.Locator)
	h.writeTransition(ctx, w, http.StatusOK, "approve request failed", req, receipt, err)
}

func (h *Handler) HandleDeny(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := requestID(w, r)
	if !ok {
		return
	}
	user, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, receipt, err := h.service.DenyRequest(ctx, user, id)
	h.writeTransition(ctx, w, http.StatusOK, "deny request failed", req, receipt, err)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := requestID(w, r)
	if !ok {
		return
	}
	seeker, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, receipt, err := h.service.CancelRequest(ctx, seeker, id)
	h.writeTransition(ctx, w, http.StatusOK, "cancel request failed", req, receipt, err)
}

func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rid := requestcontext.RequestID(ctx)
	id, ok := requestID(w, r)
	if !ok {
		return
	}
	body, ok := httputil.DecodeAndPrepare[CompleteRequest](w, r, h.logger, ctx, rid)
	if !ok {
		return
	}
	seeker, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, receipt, err := h.service.CompleteRequest(ctx, seeker, id, body.RetrievedHash)
	h.writeTransition(ctx, w, http.StatusOK, "complete request failed", req, receipt, err)
}

func (h *Handler) writeTransition(ctx context.Context, w http.ResponseWriter, status int, failure string,
	req *models.VerificationRequest, receipt *ledger.Receipt, err error,
) {
	if err != nil {
		h.fail(ctx, w, failure, err)
		return
	}
	httputil.WriteJSON(w, status, &RequestMutationResponse{
		Request: toRequestResponse(req),
		Receipt: shared.ToReceiptResponse(receipt),
	})
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (domain.Address, bool) {
	ctx := r.Context()
	caller, err := httputil.RequireCaller(ctx, h.logger, requestcontext.RequestID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return caller, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.WarnContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	httputil.WriteError(w, err)
}

func requestID(w http.ResponseWriter, r *http.Request) (domain.RequestID, bool) {
	id, err := domain.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return 0, false
	}
	return id, true
}
