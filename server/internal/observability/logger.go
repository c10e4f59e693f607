// Package observability provides request-scoped structured logging.
package observability

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldRequestID is the field name for request ID.
	LogFieldRequestID = "request_id"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldSessionID is the field name for dialogue session ID.
	LogFieldSessionID = "session_id"
)

// RequestContext carries a request ID and start time through one HTTP request.
type RequestContext struct {
	RequestID string
	StartTime time.Time
	Logger    *slog.Logger
}

// NewRequestContext creates a request context with a generated request ID.
func NewRequestContext(logger *slog.Logger) *RequestContext {
	if logger == nil {
		logger = slog.Default()
	}
	rc := &RequestContext{
		RequestID: uuid.NewString()[:8],
		StartTime: time.Now(),
	}
	rc.Logger = logger.With(slog.String(LogFieldRequestID, rc.RequestID))
	return rc
}

// DurationMs returns elapsed time since the request started, in milliseconds.
func (rc *RequestContext) DurationMs() int64 {
	return time.Since(rc.StartTime).Milliseconds()
}

// LogCompletion logs the end of a request with its duration.
func (rc *RequestContext) LogCompletion(msg string, extra ...any) {
	args := append([]any{slog.Int64(LogFieldDuration, rc.DurationMs())}, extra...)
	rc.Logger.Info(msg, args...)
}
