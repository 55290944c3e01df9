// Package async provides supervised goroutine helpers for fire-and-forget
// work such as audit writes that must not block or crash the request path.
package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/platinummonkey/turnstile/pkg/observability"
)

// SafeGo executes a function in a goroutine with timeout enforcement, panic
// recovery, and error logging. Use this instead of a bare `go func()` for
// background work spawned from request handling.
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, logger *observability.Logger, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(map[string]interface{}{
					"task":  taskName,
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("panic in background task")
			}
		}()

		if err := fn(ctx); err != nil {
			logger.WithError(err).Errorf("background task %s failed", taskName)
		}
	}()
}
