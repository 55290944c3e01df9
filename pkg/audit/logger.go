package audit

import "context"

// Logger persists security events
type Logger interface {
	// Record persists one event
	Record(ctx context.Context, event *Event) error

	// Close flushes and releases the logger
	Close() error
}

// NopLogger discards all events, for deployments without an audit trail
type NopLogger struct{}

func (NopLogger) Record(ctx context.Context, event *Event) error { return nil }
func (NopLogger) Close() error                                   { return nil }
