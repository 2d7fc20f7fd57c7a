package daemon

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"adscribe/internal/logging"
	"adscribe/internal/services"
)

const requestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestMiddleware tags each request with a correlation id and logs its
// outcome.
func (d *Daemon) requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set(requestIDHeader, requestID)
		ctx := services.WithRequestID(r.Context(), requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))

		logger := logging.WithContext(ctx, d.logger)
		attrs := []logging.Attr{
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", rec.status),
			logging.Duration("duration", time.Since(start)),
		}
		if rec.status >= http.StatusInternalServerError {
			logger.Warn("http request failed", logging.Args(attrs...)...)
			return
		}
		logger.Debug("http request", logging.Args(attrs...)...)
	})
}

// quotaMiddleware admits a request against the daily quota before the handler
// runs. Rejected requests have no side effects.
func (d *Daemon) quotaMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, remaining := d.quota.Admit()
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.quota.Limit()))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			snap := d.quota.Status()
			logging.WarnWithContext(logging.WithContext(r.Context(), d.logger), "daily quota exhausted", "quota_rejected",
				logging.String("path", r.URL.Path),
				logging.Int("limit", snap.Limit),
				logging.String(logging.FieldErrorHint, "wait for the daily reset or raise quota.daily_limit"),
				logging.String(logging.FieldImpact, "request rejected"),
			)
			writeJSON(w, http.StatusTooManyRequests, quotaExceededResponse{
				Error:   "daily request limit reached, try again after the reset",
				Limit:   snap.Limit,
				ResetAt: snap.ResetAt.Format(time.RFC3339),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
