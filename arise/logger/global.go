package logger

import (
	"log/slog"
	"time"
)

// LogActivity logs an incoming activity event and its handling time
func LogActivity(kind, userID string, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "activity"),
		slog.String("kind", kind),
		slog.String("user_id", userID),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Error("Activity failed", append(attrs, slog.Any("error", err))...)
	} else {
		slog.Info("Activity processed", attrs...)
	}
}

// LogSystem logs system events
func LogSystem(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "sys")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

// LogError logs error events
func LogError(msg string, err error, attrs ...any) {
	baseAttrs := []any{
		slog.String("type", "error"),
		slog.Any("error", err),
	}
	slog.Error(msg, append(baseAttrs, attrs...)...)
}
