package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// DBLogger persists security events to PostgreSQL
type DBLogger struct {
	db *sql.DB
}

// NewDBLogger creates a database-backed event logger and ensures its table
func NewDBLogger(db *sql.DB) (*DBLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	logger := &DBLogger{db: db}
	if err := logger.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure security_events table: %w", err)
	}

	return logger, nil
}

func (l *DBLogger) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS security_events (
		id BIGSERIAL PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
		event_type VARCHAR(100) NOT NULL,
		ip_address VARCHAR(45),
		request_id VARCHAR(100),
		method VARCHAR(10),
		path TEXT,
		status_code INTEGER,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_security_events_timestamp ON security_events(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_security_events_event_type ON security_events(event_type);
	CREATE INDEX IF NOT EXISTS idx_security_events_ip_address ON security_events(ip_address);
	`

	_, err := l.db.Exec(query)
	return err
}

// Record persists one event
func (l *DBLogger) Record(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO security_events (
			timestamp, event_type, ip_address, request_id,
			method, path, status_code
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := l.db.ExecContext(ctx, query,
		event.Timestamp,
		string(event.Type),
		nullable(event.IPAddress),
		nullable(event.RequestID),
		event.Method,
		event.Path,
		event.StatusCode,
	)
	if err != nil {
		return fmt.Errorf("failed to insert security event: %w", err)
	}

	return nil
}

// Close is a no-op; the caller owns the database handle
func (l *DBLogger) Close() error {
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
