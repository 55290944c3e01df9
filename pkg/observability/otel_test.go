package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/platinummonkey/turnstile/pkg/contextkeys"
)

func TestInitTracingDisabled(t *testing.T) {
	logger := NewLogger(ErrorLevel, &bytes.Buffer{})

	tp, err := InitTracing(context.Background(), OTelConfig{Enabled: false}, logger)
	if err != nil {
		t.Fatalf("InitTracing returned error: %v", err)
	}
	if tp != nil {
		t.Error("expected nil tracer provider when tracing is disabled")
	}
}

func TestLoggerWithTraceContext_NoSpan(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	if got := LoggerWithTraceContext(context.Background(), logger); got != logger {
		t.Error("expected the same logger when no span is recording")
	}
}

func TestFromContextAddsTraceFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	ctx = contextkeys.WithLogger(ctx, logger)
	FromContext(ctx).Info("traced message")

	out := buf.String()
	if !strings.Contains(out, "trace_id") {
		t.Errorf("expected trace_id in log output, got %s", out)
	}
	if !strings.Contains(out, "span_id") {
		t.Errorf("expected span_id in log output, got %s", out)
	}
}

func TestShutdownTracingNil(t *testing.T) {
	logger := NewLogger(ErrorLevel, &bytes.Buffer{})

	if err := ShutdownTracing(context.Background(), nil, logger); err != nil {
		t.Errorf("expected nil provider shutdown to succeed, got %v", err)
	}
}
