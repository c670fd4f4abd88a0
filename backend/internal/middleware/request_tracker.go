package middleware

import (
	"context"
	"log"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/PortNumber53/sports-camp/backend/internal/models"
)

// RequestRecorder persists tracked requests.
type RequestRecorder interface {
	CreateRequest(ctx context.Context, req models.RequestLog) error
}

// RequestTracker stores request metrics in the database
type RequestTracker struct {
	recorder RequestRecorder
	// record runs the write; tests replace it to stay synchronous.
	record func(func())
}

// NewRequestTracker creates a new request tracker middleware
func NewRequestTracker(recorder RequestRecorder) *RequestTracker {
	return &RequestTracker{
		recorder: recorder,
		record:   func(fn func()) { go fn() },
	}
}

// Middleware returns an HTTP middleware that tracks request metrics
func (rt *RequestTracker) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Create a response writer wrapper to capture status code and response size
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			requestSizeBytes := int(r.ContentLength)
			if requestSizeBytes < 0 {
				requestSizeBytes = 0
			}

			entry := models.RequestLog{
				Method:            r.Method,
				Path:              r.URL.Path,
				StatusCode:        rw.statusCode,
				ResponseTimeMs:    int(time.Since(start).Milliseconds()),
				RequestSizeBytes:  requestSizeBytes,
				ResponseSizeBytes: rw.size,
				RequestID:         chimw.GetReqID(r.Context()),
			}

			// Track the request asynchronously to avoid blocking
			rt.record(func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := rt.recorder.CreateRequest(ctx, entry); err != nil {
					log.Printf("[requests] failed to record %s %s: %v", entry.Method, entry.Path, err)
				}
			})
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}
