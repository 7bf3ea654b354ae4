package bugline

import (
	"context"
	"runtime/debug"
	"time"
)

// MiddlewareFunc is the function signature for command dispatch, as seen
// by middleware.
type MiddlewareFunc func(ctx context.Context, cmd Command) (any, error)

// Middleware wraps a command dispatch with additional functionality.
// Middleware applies to commands only; event handlers are invoked directly
// by the bus with their own containment.
type Middleware func(next MiddlewareFunc) MiddlewareFunc

// ChainMiddleware creates a single middleware from multiple middleware.
func ChainMiddleware(middleware ...Middleware) Middleware {
	return func(next MiddlewareFunc) MiddlewareFunc {
		for i := len(middleware) - 1; i >= 0; i-- {
			next = middleware[i](next)
		}
		return next
	}
}

// ValidationMiddleware validates commands before they reach the handler.
// If validation fails, the handler is never invoked.
func ValidationMiddleware() Middleware {
	return func(next MiddlewareFunc) MiddlewareFunc {
		return func(ctx context.Context, cmd Command) (any, error) {
			if err := cmd.Validate(); err != nil {
				return nil, err
			}
			return next(ctx, cmd)
		}
	}
}

// RecoveryMiddleware recovers from panics in command handlers and returns
// them as PanicError.
func RecoveryMiddleware() Middleware {
	return func(next MiddlewareFunc) MiddlewareFunc {
		return func(ctx context.Context, cmd Command) (result any, err error) {
			defer func() {
				if r := recover(); r != nil {
					result = nil
					err = NewPanicError(cmd.CommandName(), r, string(debug.Stack()))
				}
			}()
			return next(ctx, cmd)
		}
	}
}

// LoggingMiddleware logs command execution through the given logger.
func LoggingMiddleware(logger Logger) Middleware {
	return func(next MiddlewareFunc) MiddlewareFunc {
		return func(ctx context.Context, cmd Command) (any, error) {
			start := time.Now()

			logger.Debug("dispatching command", "command", cmd.CommandName())

			result, err := next(ctx, cmd)

			elapsed := time.Since(start)
			if err != nil {
				logger.Error("command failed",
					"command", cmd.CommandName(),
					"duration", elapsed,
					"error", err,
				)
				return result, err
			}

			logger.Info("command handled",
				"command", cmd.CommandName(),
				"duration", elapsed,
			)
			return result, nil
		}
	}
}
