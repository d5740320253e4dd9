package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"credledger/pkg/domain"
	"credledger/pkg/requestcontext"
)

// CallerHeader names the header HeaderCaller trusts in handler tests.
const CallerHeader = "X-Test-Caller"

// HeaderCaller stands in for bearer auth: it binds the request to the address
// in CallerHeader and rejects requests without one.
func HeaderCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := r.Header.Get(CallerHeader)
		if caller == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(r.Context(), domain.Address(caller))))
	})
}

// Do sends a request to h and returns the recorded response. body is JSON
// encoded unless nil; caller is sent in CallerHeader unless empty.
func Do(t *testing.T, h http.Handler, method, path string, caller domain.Address, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set(CallerHeader, caller.String())
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// DecodeBody decodes a JSON response body into T.
func DecodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}
