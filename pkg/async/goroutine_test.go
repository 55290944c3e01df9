package async

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/platinummonkey/turnstile/pkg/observability"
)

func discardLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func TestSafeGoRuns(t *testing.T) {
	var ran atomic.Bool
	done := make(chan struct{})

	SafeGo(context.Background(), time.Second, "test task", discardLogger(), func(ctx context.Context) error {
		ran.Store(true)
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}
	if !ran.Load() {
		t.Fatal("expected task to run")
	}
}

func TestSafeGoRecoversPanic(t *testing.T) {
	done := make(chan struct{})

	SafeGo(context.Background(), time.Second, "panicking task", discardLogger(), func(ctx context.Context) error {
		defer close(done)
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}
	// Reaching here means the panic did not propagate
}

func TestSafeGoEnforcesTimeout(t *testing.T) {
	gotDeadline := make(chan bool, 1)

	SafeGo(context.Background(), 10*time.Millisecond, "slow task", discardLogger(), func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			gotDeadline <- true
			return ctx.Err()
		case <-time.After(time.Second):
			gotDeadline <- false
			return errors.New("never canceled")
		}
	})

	select {
	case canceled := <-gotDeadline:
		if !canceled {
			t.Fatal("expected context to be canceled by timeout")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("task did not finish")
	}
}
