package middleware

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
)

// contextKey is a private type so our context keys cannot collide.
type contextKey string

const (
	loggerCtxKey = contextKey("logger")
	callerKey    = contextKey("callerAccount")
)

// GetLoggerFromCtx retrieves the request-scoped logger from a standard
// context. Falls back to the default logger when none was injected.
func GetLoggerFromCtx(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerCtxKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// GetCallerFromContext retrieves the authenticated caller account from the
// request context, set by the auth middleware.
func GetCallerFromContext(c *gin.Context) (string, bool) {
	caller, ok := c.Request.Context().Value(callerKey).(string)
	if !ok || caller == "" {
		return "", false
	}
	return caller, true
}
