package middleware

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"time"

	"github.com/PortNumber53/sports-camp/backend/internal/cache"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"
	idempotencyTTL    = 24 * time.Hour
	maxIdempotencyKey = 255
)

// ResponseCache stores responses by idempotency key.
type ResponseCache interface {
	Get(ctx context.Context, key string) (*cache.CachedResponse, error)
	Set(ctx context.Context, key string, resp *cache.CachedResponse, ttl time.Duration) error
}

// bodyRecorder wraps http.ResponseWriter to capture the response.
type bodyRecorder struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (w *bodyRecorder) WriteHeader(code int) {
	if w.statusCode == 0 {
		w.statusCode = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	if w.statusCode == 0 {
		w.statusCode = http.StatusOK
	}
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response for a repeated POST carrying the
// same Idempotency-Key. Requests without a key, or any cache failure, fall
// through to the handler.
func Idempotency(store ResponseCache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(IdempotencyHeader)
			if key == "" || len(key) > maxIdempotencyKey {
				next.ServeHTTP(w, r)
				return
			}
			cacheKey := r.URL.Path + ":" + key

			ctx := r.Context()
			cached, err := store.Get(ctx, cacheKey)
			if err != nil {
				log.Printf("[idempotency] cache lookup failed: %v", err)
			}
			if cached != nil {
				if cached.ContentType != "" {
					w.Header().Set("Content-Type", cached.ContentType)
				}
				w.Header().Set(ReplayedHeader, "true")
				w.WriteHeader(cached.StatusCode)
				w.Write(cached.Body)
				return
			}

			rec := &bodyRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			// 5xx answers stay retryable.
			if rec.statusCode >= 200 && rec.statusCode < 500 && rec.body.Len() > 0 {
				resp := &cache.CachedResponse{
					StatusCode:  rec.statusCode,
					ContentType: rec.Header().Get("Content-Type"),
					Body:        rec.body.Bytes(),
				}
				if err := store.Set(context.WithoutCancel(ctx), cacheKey, resp, idempotencyTTL); err != nil {
					log.Printf("[idempotency] failed to cache response: %v", err)
				}
			}
		})
	}
}
