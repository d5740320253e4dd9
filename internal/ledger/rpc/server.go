package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"credledger/internal/ledger"
	"credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/platform/httputil"
	request "credledger/pkg/platform/middleware/request"
	"credledger/pkg/requestcontext"
)

const maxBodyBytes = 1 << 20

// Server serves a ledger.Client, normally the in-process chain.
type Server struct {
	client  ledger.Client
	logger  *slog.Logger
	timeout time.Duration
}

type ServerOption func(*Server)

func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRequestTimeout bounds each request. Default is 30s.
func WithRequestTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewServer(client ledger.Client, opts ...ServerOption) *Server {
	s := &Server{
		client:  client,
		logger:  slog.Default(),
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the RPC routes with the standard middleware chain.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(request.Recovery(s.logger))
	r.Use(request.RequestID)
	r.Use(request.Logger(s.logger))
	r.Use(request.Timeout(s.timeout))
	r.Use(request.BodyLimit(maxBodyBytes))
	r.Use(request.ContentTypeJSON)

	r.Post(PathCall, s.handleCall)
	r.Post(PathSubmit, s.handleSubmit)
	r.Get(PathContracts+"/{address}", s.handleDescribe)
	return r
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	msg, ok := s.decode(w, r)
	if !ok {
		return
	}
	result, err := s.client.Call(r.Context(), *msg)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, callResponse{Result: result})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	msg, ok := s.decode(w, r)
	if !ok {
		return
	}
	receipt, err := s.client.Submit(r.Context(), *msg)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	address, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		s.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, err.Error()))
		return
	}
	abi, err := s.client.Describe(r.Context(), address)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, abi)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (*ledger.CallMsg, bool) {
	var msg ledger.CallMsg
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		s.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid call message: "+err.Error()))
		return nil, false
	}
	if _, err := domain.ParseAddress(msg.To.String()); err != nil {
		s.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid contract address: "+err.Error()))
		return nil, false
	}
	if msg.Method == "" {
		s.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "method is required"))
		return nil, false
	}
	return &msg, true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if rev, ok := ledger.AsRevert(err); ok {
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, errorResponse{Code: rev.Code, Reason: rev.Reason})
		return
	}

	ctx := r.Context()
	var domainErr *dErrors.Error
	switch {
	case errors.As(err, &domainErr):
		httputil.WriteJSON(w, httputil.DomainCodeToHTTPStatus(domainErr.Code), errorResponse{Code: domainErr.Code, Reason: domainErr.Error()})
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		httputil.WriteJSON(w, http.StatusGatewayTimeout, errorResponse{Code: dErrors.CodeTimeout, Reason: err.Error()})
	default:
		s.logger.ErrorContext(ctx, "ledger rpc failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteJSON(w, http.StatusInternalServerError, errorResponse{Code: dErrors.CodeInternal, Reason: "ledger failure"})
	}
}
