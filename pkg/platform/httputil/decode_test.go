package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "credledger/pkg/domain-errors"
)

type transferBody struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type lockerBody struct {
	Locator    string `json:"locator"`
	normalized bool
}

func (r *lockerBody) Normalize() {
	r.normalized = true
	r.Locator = strings.TrimSpace(r.Locator)
}

func (r *lockerBody) Validate() error {
	if r.Locator == "" {
		return errors.New("locator is required")
	}
	return nil
}

type depositBody struct {
	Amount uint64 `json:"amount"`
}

func (r *depositBody) Validate() error {
	if r.Amount == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	}
	return nil
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestDecodeJSON(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	decode := func(body string) (*transferBody, bool, *httptest.ResponseRecorder) {
		req := httptest.NewRequest(http.MethodPost, "/v1/tokens/transfer", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		out, ok := DecodeJSON[transferBody](w, req, logger, ctx, "req-1")
		return out, ok, w
	}

	t.Run("decodes body", func(t *testing.T) {
		out, ok, _ := decode(`{"to":"0x01","amount":42}`)
		require.True(t, ok)
		assert.Equal(t, "0x01", out.To)
		assert.Equal(t, uint64(42), out.Amount)
	})

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"malformed json", `{invalid json}`, "invalid request body"},
		{"empty body", ``, "request body is required"},
		{"unknown field", `{"to":"0x01","amount":1,"amuont":2}`, "invalid request body"},
		{"trailing object", `{"to":"0x01"}{"to":"0x02"}`, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok, w := decode(tt.body)
			assert.False(t, ok)
			assert.Nil(t, out)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := errorBody(t, w)
			assert.Equal(t, "bad_request", body["error"])
			assert.Equal(t, tt.message, body["error_description"])
		})
	}

	t.Run("oversized body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/tokens/transfer", bytes.NewBufferString(`{"to":"`+strings.Repeat("a", 64)+`"}`))
		w := httptest.NewRecorder()
		req.Body = http.MaxBytesReader(w, req.Body, 16)

		_, ok := DecodeJSON[transferBody](w, req, logger, ctx, "req-1")
		assert.False(t, ok)
		assert.Equal(t, "request body too large", errorBody(t, w)["error_description"])
	})
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("normalizes before validating", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"locator":"  bafy  "}`))
		w := httptest.NewRecorder()

		out, ok := DecodeAndPrepare[lockerBody](w, req, logger, ctx, "req-1")
		require.True(t, ok)
		assert.True(t, out.normalized)
		assert.Equal(t, "bafy", out.Locator)
	})

	t.Run("plain validation error maps to validation_error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"locator":"   "}`))
		w := httptest.NewRecorder()

		out, ok := DecodeAndPrepare[lockerBody](w, req, logger, ctx, "req-1")
		assert.False(t, ok)
		assert.Nil(t, out)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := errorBody(t, w)
		assert.Equal(t, "validation_error", body["error"])
		assert.Equal(t, "locator is required", body["error_description"])
	})

	t.Run("domain error code is preserved", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"amount":0}`))
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[depositBody](w, req, logger, ctx, "req-1")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := errorBody(t, w)
		assert.Equal(t, "bad_request", body["error"])
		assert.Equal(t, "amount must be positive", body["error_description"])
	})
}

func TestPrepareRequest(t *testing.T) {
	assert.NoError(t, PrepareRequest(&transferBody{}))
	assert.EqualError(t, PrepareRequest(&lockerBody{}), "locator is required")
}
