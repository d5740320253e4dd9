package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"credledger/internal/ledger"
	"credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/platform/circuit"
	"credledger/pkg/requestcontext"
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// errTransport marks failures that count against the circuit breaker.
var errTransport = errors.New("ledger rpc transport failure")

// Client implements ledger.Client against a remote Server.
type Client struct {
	baseURL string
	http    HTTPDoer
	breaker *circuit.Breaker
	logger  *slog.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(doer HTTPDoer) ClientOption {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

func WithBreaker(b *circuit.Breaker) ClientOption {
	return func(c *Client) {
		if b != nil {
			c.breaker = b
		}
	}
}

func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient builds a client for the server at baseURL. timeout bounds each
// HTTP exchange when no custom HTTPDoer is supplied.
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		breaker: circuit.New("ledger-rpc"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Call(ctx context.Context, msg ledger.CallMsg) (json.RawMessage, error) {
	var resp callResponse
	if err := c.do(ctx, http.MethodPost, PathCall, msg, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

func (c *Client) Submit(ctx context.Context, msg ledger.CallMsg) (*ledger.Receipt, error) {
	var receipt ledger.Receipt
	if err := c.do(ctx, http.MethodPost, PathSubmit, msg, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) Describe(ctx context.Context, address domain.Address) (*ledger.ABI, error) {
	var abi ledger.ABI
	if err := c.do(ctx, http.MethodGet, PathContracts+"/"+address.String(), nil, &abi); err != nil {
		return nil, err
	}
	return &abi, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if !c.breaker.Allow() {
		return dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("ledger rpc circuit %s is open", c.breaker.Name()))
	}
	err := c.exchange(ctx, method, path, body, out)
	c.record(ctx, err)
	return err
}

func (c *Client) exchange(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if id := requestcontext.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s %s: %w", method, path, ctx.Err())
		}
		return fmt.Errorf("%w: %s %s: %v", errTransport, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", errTransport, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: decode response: %v", errTransport, err)
		}
		return nil
	case resp.StatusCode == http.StatusUnprocessableEntity:
		var e errorResponse
		if err := json.Unmarshal(raw, &e); err != nil || e.Code == "" {
			return fmt.Errorf("%w: malformed revert body", errTransport)
		}
		return &ledger.RevertError{Code: e.Code, Reason: e.Reason}
	case resp.StatusCode == http.StatusGatewayTimeout:
		return dErrors.Wrap(errTransport, dErrors.CodeTimeout, fmt.Sprintf("%s %s: ledger timed out", method, path))
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s %s: status %d", errTransport, method, path, resp.StatusCode)
	default:
		var e errorResponse
		if err := json.Unmarshal(raw, &e); err != nil || e.Code == "" {
			e = errorResponse{Code: dErrors.CodeBadRequest, Reason: fmt.Sprintf("status %d", resp.StatusCode)}
		}
		return dErrors.New(e.Code, e.Reason)
	}
}

// record feeds the breaker. Reverts and rejected requests prove the server is
// reachable; caller cancellation says nothing about it.
func (c *Client) record(ctx context.Context, err error) {
	switch {
	case err == nil, !errors.Is(err, errTransport) && ctx.Err() == nil:
		if _, change := c.breaker.RecordSuccess(); change.Closed {
			c.logger.InfoContext(ctx, "ledger rpc circuit closed", "breaker", c.breaker.Name())
		}
	case errors.Is(err, context.Canceled):
	default:
		if _, change := c.breaker.RecordFailure(); change.Opened {
			breakerOpenTotal.Inc()
			c.logger.WarnContext(ctx, "ledger rpc circuit opened",
				"breaker", c.breaker.Name(),
				"error", err,
			)
		}
	}
}

var _ ledger.Client = (*Client)(nil)
