package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/platinummonkey/turnstile/pkg/async"
	"github.com/platinummonkey/turnstile/pkg/contextkeys"
	"github.com/platinummonkey/turnstile/pkg/httputil"
	"github.com/platinummonkey/turnstile/pkg/observability"
)

// recordTimeout bounds one background audit write
const recordTimeout = 5 * time.Second

// Recorder is HTTP middleware that records pipeline rejections. It wraps the
// whole router, so it sees the final status of every request regardless of
// which stage rejected it.
type Recorder struct {
	logger Logger
}

// NewRecorder creates the audit middleware
func NewRecorder(logger Logger) *Recorder {
	if logger == nil {
		logger = NopLogger{}
	}
	return &Recorder{logger: logger}
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.written {
		sw.statusCode = code
		sw.written = true
		sw.ResponseWriter.WriteHeader(code)
	}
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.written {
		sw.WriteHeader(http.StatusOK)
	}
	return sw.ResponseWriter.Write(b)
}

// Handler wraps an HTTP handler with rejection recording
func (rec *Recorder) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		eventType, ok := classify(wrapped.statusCode)
		if !ok {
			return
		}

		event := &Event{
			Timestamp:  time.Now(),
			Type:       eventType,
			IPAddress:  httputil.ClientIP(r),
			RequestID:  contextkeys.GetRequestID(r.Context()),
			Method:     r.Method,
			Path:       r.URL.Path,
			StatusCode: wrapped.statusCode,
		}

		// Persist off the request path: the response is already committed and
		// a slow or failing audit store must not hold the connection open
		logger := observability.FromContext(r.Context())
		async.SafeGo(context.Background(), recordTimeout, "security event recording", logger, func(ctx context.Context) error {
			return rec.logger.Record(ctx, event)
		})
	})
}

func classify(statusCode int) (EventType, bool) {
	switch statusCode {
	case http.StatusUnauthorized:
		return EventAuthRejected, true
	case http.StatusForbidden:
		return EventForbidden, true
	case http.StatusTooManyRequests:
		return EventRateLimited, true
	}
	return "", false
}
