package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hermitpopcorn/negi-ms/internal/logger"
)

func TestChain_LogsWithRequestID(t *testing.T) {
	buf := &bytes.Buffer{}
	log := zerolog.New(buf)

	var fromCtx string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = RequestIDFromContext(r.Context())
		l := logger.FromContext(r.Context())
		l.Info().Msg("inside handler")
		w.WriteHeader(http.StatusTeapot)
	}), log)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if fromCtx != "req-1" {
		t.Errorf("request id in context = %q, want req-1", fromCtx)
	}
	if rec.Header().Get("X-Request-ID") != "req-1" {
		t.Errorf("missing X-Request-ID header")
	}
	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-1"`) || !strings.Contains(out, "inside handler") {
		t.Errorf("expected handler log tagged with request id, got %s", out)
	}
	if !strings.Contains(out, `"status":418`) {
		t.Errorf("expected status in access log, got %s", out)
	}
}

func TestRequestID_Generated(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if len(rec.Header().Get("X-Request-ID")) != 36 {
		t.Errorf("expected generated uuid, got %q", rec.Header().Get("X-Request-ID"))
	}
}

func TestRecovery(t *testing.T) {
	buf := &bytes.Buffer{}
	h := Recovery(zerolog.New(buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(buf.String(), "Panic recovered") {
		t.Errorf("expected panic to be logged")
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/submit", nil))

	if rec.Code != http.StatusNoContent || called {
		t.Errorf("preflight should short-circuit with 204, got %d called=%v", rec.Code, called)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS header")
	}
}
