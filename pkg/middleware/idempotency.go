package middleware

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	apperrors "staybook/pkg/errors"
	httputil "staybook/pkg/http"
	"staybook/pkg/identity"
)

const DefaultIdempotencyHeader = "Idempotency-Key"

// IdempotencyStore tracks keys through two phases. Begin claims a key or returns the response
// recorded for it; Finish records the response, or releases the claim when resp is nil.
type IdempotencyStore interface {
	Begin(key string) (cached *CachedResponse, inFlight bool)
	Finish(key string, resp *CachedResponse)
	Stop()
}

type CachedResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	CreatedAt  time.Time
}

type InMemoryIdempotencyStore struct {
	mu       sync.Mutex
	done     map[string]*CachedResponse
	pending  map[string]struct{}
	ttl      time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		done:    make(map[string]*CachedResponse),
		pending: make(map[string]struct{}),
		ttl:     ttl,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go s.evictLoop()
	return s
}

func (s *InMemoryIdempotencyStore) Begin(key string) (*CachedResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if resp, ok := s.done[key]; ok {
		if s.now().Sub(resp.CreatedAt) <= s.ttl {
			return resp, false
		}
		delete(s.done, key)
	}
	if _, ok := s.pending[key]; ok {
		return nil, true
	}
	s.pending[key] = struct{}{}
	return nil, false
}

func (s *InMemoryIdempotencyStore) Finish(key string, resp *CachedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, key)
	if resp != nil {
		resp.CreatedAt = s.now()
		s.done[key] = resp
	}
}

func (s *InMemoryIdempotencyStore) evictLoop() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			for key, resp := range s.done {
				if s.now().Sub(resp.CreatedAt) > s.ttl {
					delete(s.done, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

func (s *InMemoryIdempotencyStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

type responseCapture struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rc *responseCapture) WriteHeader(statusCode int) {
	rc.statusCode = statusCode
	rc.ResponseWriter.WriteHeader(statusCode)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	rc.body.Write(b)
	return rc.ResponseWriter.Write(b)
}

// Idempotency replays the first successful response for a repeated key and answers 409 while
// the first attempt is still running, so a double-clicked approve or cancel runs once. Keys are
// scoped to the caller, method and path so two guests can never collide on the same key.
func Idempotency(store IdempotencyStore, headerName string) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = DefaultIdempotencyHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(headerName)
			if raw == "" || r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get(identity.HeaderUserID) + "|" + r.Method + "|" + r.URL.Path + "|" + raw

			cached, inFlight := store.Begin(key)
			switch {
			case cached != nil:
				replay(w, cached)
				return
			case inFlight:
				_ = httputil.WriteError(w, apperrors.Conflict("A request with this idempotency key is still in progress"))
				return
			}

			capture := &responseCapture{ResponseWriter: w, statusCode: http.StatusOK}
			completed := false
			defer func() {
				if !completed {
					store.Finish(key, nil)
				}
			}()

			next.ServeHTTP(capture, r)

			completed = true
			if capture.statusCode < 200 || capture.statusCode >= 300 {
				store.Finish(key, nil)
				return
			}
			store.Finish(key, &CachedResponse{
				StatusCode: capture.statusCode,
				Headers:    w.Header().Clone(),
				Body:       capture.body.Bytes(),
			})
		})
	}
}

func replay(w http.ResponseWriter, cached *CachedResponse) {
	for key, values := range cached.Headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}
