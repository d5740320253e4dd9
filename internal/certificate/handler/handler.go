package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"credledger/internal/certificate/models"
	"credledger/internal/ledger"
	"credledger/internal/transport/http/shared"
	"credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/platform/httputil"
	"credledger/pkg/requestcontext"
)

// Service is the certificate ledger as seen by HTTP.
type Service interface {
	AddCertificate(ctx context.Context, owner domain.Address, hash domain.Hash, issuer domain.Address) (*ledger.Receipt, error)
	RevokeCertificate(ctx context.Context, owner domain.Address, hash domain.Hash, issuer domain.Address) (*ledger.Receipt, error)
	GetCertificateIndex(ctx context.Context, owner domain.Address, hash domain.Hash) (uint64, error)
	GetCertificateCount(ctx context.Context, owner domain.Address, includeRevoked bool) (uint64, error)
	GetCertificateMetadata(ctx context.Context, owner domain.Address, hash domain.Hash) (models.Metadata, error)
	GetCertificateAt(ctx context.Context, owner domain.Address, index uint64) (models.Certificate, error)
	ListCertificates(ctx context.Context, owner domain.Address) ([]models.Certificate, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the certificate routes. The authenticated caller acts as
// the issuer on mutations.
func (h *Handler) Register(r chi.Router, requireCaller func(http.Handler) http.Handler) {
	r.Route("/v1/users/{owner}/certificates", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/index/{index}", h.HandleAt)
		r.Get("/{hash}", h.HandleMetadata)
		r.With(requireCaller).Post("/", h.HandleAdd)
		r.With(requireCaller).Post("/{hash}/revoke", h.HandleRevoke)
	})
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AddCertificateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	issuer, err := httputil.RequireCaller(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	hash, err := domain.ParseHash(req.Hash)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	receipt, err := h.service.AddCertificate(ctx, owner, hash, issuer)
	if err != nil {
		h.logger.WarnContext(ctx, "add certificate failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	var index uint64
	if err := receipt.DecodeResult(&index); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "decode certificate index"))
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, &CertificateMutationResponse{
		Owner:   owner.String(),
		Hash:    hash.String(),
		Index:   &index,
		Receipt: shared.ToReceiptResponse(receipt),
	})
}

func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	hash, ok := h.hash(w, r)
	if !ok {
		return
	}
	issuer, err := httputil.RequireCaller(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	receipt, err := h.service.RevokeCertificate(ctx, owner, hash, issuer)
	if err != nil {
		var race *models.RevokeRaceError
		if errors.As(err, &race) {
			h.logger.WarnContext(ctx, "certificate revoke raced",
				"error", err,
				"index", race.Index,
				"request_id", requestID,
			)
			httputil.WriteError(w, race.Err)
			return
		}
		h.logger.WarnContext(ctx, "revoke certificate failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &CertificateMutationResponse{
		Owner:   owner.String(),
		Hash:    hash.String(),
		Receipt: shared.ToReceiptResponse(receipt),
	})
}

// HandleList returns every certificate; include_revoked=false drops revoked
// entries from both the list and the count.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	includeRevoked := true
	if v := r.URL.Query().Get("include_revoked"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "include_revoked must be a boolean"))
			return
		}
		includeRevoked = parsed
	}

	count, err := h.service.GetCertificateCount(ctx, owner, includeRevoked)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	certs, err := h.service.ListCertificates(ctx, owner)
	if err != nil {
		h.logger.WarnContext(ctx, "list certificates failed", "error", err,
			"request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}

	resp := &CertificateListResponse{Owner: owner.String(), Count: count, Certificates: []CertificateResponse{}}
	for _, c := range certs {
		if c.Revoked && !includeRevoked {
			continue
		}
		resp.Certificates = append(resp.Certificates, toCertificateResponse(c))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	hash, ok := h.hash(w, r)
	if !ok {
		return
	}
	meta, err := h.service.GetCertificateMetadata(ctx, owner, hash)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	index, err := h.service.GetCertificateIndex(ctx, owner, hash)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &MetadataResponse{
		Hash:    hash.String(),
		Index:   index,
		Issuer:  meta.Issuer.String(),
		Revoked: meta.Revoked,
	})
}

func (h *Handler) HandleAt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	index, err := strconv.ParseUint(chi.URLParam(r, "index"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "index must be a non-negative integer"))
		return
	}
	cert, err := h.service.GetCertificateAt(ctx, owner, index)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCertificateResponse(cert))
}

func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (domain.Address, bool) {
	owner, err := domain.ParseAddress(chi.URLParam(r, "owner"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return owner, true
}

func (h *Handler) hash(w http.ResponseWriter, r *http.Request) (domain.Hash, bool) {
	hash, err := domain.ParseHash(chi.URLParam(r, "hash"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return hash, true
}
