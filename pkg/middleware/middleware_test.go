package middleware

import (
	"net/http"
	"net/http/httptest"
	"staybook/pkg/identity"
	"staybook/pkg/logger"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "info", Format: logger.JSON, AddSource: false, Service: "test"})
}

func TestRequestLogging_AssignsAndPropagatesID(t *testing.T) {
	var seen string
	h := RequestLogging(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reservations", nil))

	if seen == "" {
		t.Fatal("expected a generated request id in context")
	}
	if rec.Header().Get(HeaderRequestID) != seen {
		t.Errorf("expected response header %q, got %q", seen, rec.Header().Get(HeaderRequestID))
	}
}

func TestRequestLogging_ReusesIncomingID(t *testing.T) {
	var seen string
	h := RequestLogging(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "gateway-42")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "gateway-42" {
		t.Errorf("expected incoming id to be kept, got %q", seen)
	}
}

func TestContentTypeValidation(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		wantStatus  int
	}{
		{"get passes", http.MethodGet, "", "", http.StatusOK},
		{"json body passes", http.MethodPost, `{"a":1}`, "application/json; charset=utf-8", http.StatusOK},
		{"text body rejected", http.MethodPost, `a=1`, "text/plain", http.StatusUnsupportedMediaType},
		{"missing header rejected", http.MethodPut, `{}`, "", http.StatusUnsupportedMediaType},
		{"empty body passes", http.MethodPatch, "", "", http.StatusOK},
	}

	h := ContentTypeValidation(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.body == "" {
				req = httptest.NewRequest(tt.method, "/", nil)
			} else {
				req = httptest.NewRequest(tt.method, "/", strings.NewReader(tt.body))
			}
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestMaxRequestSize(t *testing.T) {
	h := MaxRequestSize(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"guests":2,"x":"long"}`)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestCallerRateLimiter_Allow(t *testing.T) {
	limiter := NewCallerRateLimiter(2, time.Minute, nil, testLogger())
	defer limiter.Stop()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	if !limiter.Allow("guest-1") || !limiter.Allow("guest-1") {
		t.Fatal("first two requests should pass")
	}
	if limiter.Allow("guest-1") {
		t.Error("third request within window should be limited")
	}
	if !limiter.Allow("guest-2") {
		t.Error("other callers are limited independently")
	}
	if !limiter.Allow("") {
		t.Error("anonymous requests are not limited here")
	}

	now = now.Add(time.Minute + time.Second)
	if !limiter.Allow("guest-1") {
		t.Error("window should have slid past old requests")
	}
}

func TestCallerRateLimit_Rejects(t *testing.T) {
	limiter := NewCallerRateLimiter(1, time.Minute, nil, testLogger())
	defer limiter.Stop()

	h := CallerRateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(identity.HeaderUserID, "7d3b8f2e-8c1a-4a6e-9a53-1b2c3d4e5f60")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send(); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", code)
	}
}

func TestIdempotency_ReplaysPerCaller(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls atomic.Int32
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"r1"}`))
	}))

	send := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/reservations/requests", strings.NewReader(`{}`))
		req.Header.Set("Idempotency-Key", "k-1")
		req.Header.Set(identity.HeaderUserID, user)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := send("guest-a")
	second := send("guest-a")
	if calls.Load() != 1 {
		t.Errorf("expected handler to run once for a repeated key, ran %d times", calls.Load())
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Errorf("expected replayed response, got %d %q", second.Code, second.Body.String())
	}

	send("guest-b")
	if calls.Load() != 2 {
		t.Errorf("same key from another caller must not replay, handler ran %d times", calls.Load())
	}
}

func TestIdempotency_DoesNotCacheFailures(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls atomic.Int32
	h := Idempotency(store, "Idempotency-Key")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusConflict)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPut, "/x", nil)
		req.Header.Set("Idempotency-Key", "k-2")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls.Load() != 2 {
		t.Errorf("failed responses must not be cached, handler ran %d times", calls.Load())
	}
}

func TestIdempotency_ConcurrentDuplicateIsConflict(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
		w.WriteHeader(http.StatusOK)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/reservations/requests/r1/respond", nil)
		req.Header.Set("Idempotency-Key", "k-3")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- send() }()
	<-entered

	if rec := send(); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 while the first attempt runs, got %d", rec.Code)
	}
	close(release)
	if rec := <-done; rec.Code != http.StatusOK {
		t.Errorf("expected first attempt to succeed, got %d", rec.Code)
	}
	if rec := send(); rec.Code != http.StatusOK || calls.Load() != 1 {
		t.Errorf("expected replay after completion, got %d with %d calls", rec.Code, calls.Load())
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "INTERNAL_ERROR") || strings.Contains(body, "boom") {
		t.Errorf("unexpected panic body: %s", body)
	}
}

func TestRequestTimeout(t *testing.T) {
	h := RequestTimeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":"TIMEOUT"`) {
		t.Errorf("expected timeout error envelope, got %s", rec.Body.String())
	}
}

func TestRequestTimeout_FastHandlerKeepsStatus(t *testing.T) {
	h := RequestTimeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}
