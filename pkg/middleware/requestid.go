package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/memberbase/memberbase/pkg/contextkeys"
	"github.com/memberbase/memberbase/pkg/observability"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns every request an id, honoring one supplied by the
// caller, and echoes it in the response headers.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := contextkeys.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logging attaches a request-scoped logger to the context and logs each
// request once, after it completes.
func Logging(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestLogger := logger.WithFields(map[string]interface{}{
				"method":    r.Method,
				"path":      r.URL.Path,
				"requestId": contextkeys.RequestID(r.Context()),
			})
			ctx := observability.WithLogger(r.Context(), requestLogger)

			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r.WithContext(ctx))

			requestLogger.WithFields(map[string]interface{}{
				"status":     rw.status,
				"durationMs": time.Since(start).Milliseconds(),
			}).Info("request completed")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
