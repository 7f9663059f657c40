// Package log provides context-aware structured logging on top of log/slog.
package log

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	slogctx "github.com/veqryn/slog-context"
)

// Setup installs the default slog logger. Format is "json" or "text";
// level is one of debug, info, warn, error (default info).
func Setup(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var base slog.Handler
	if strings.EqualFold(format, "text") {
		base = slog.NewTextHandler(w, opts)
	} else {
		base = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(slogctx.NewHandler(base, nil))
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InjectRequest attaches request attributes to every log line emitted with ctx.
func InjectRequest(ctx context.Context, r *http.Request, requestID string) context.Context {
	return slogctx.With(ctx,
		slog.String("requestId", requestID),
		slog.Group("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		),
	)
}

// With attaches arbitrary attributes to ctx.
func With(ctx context.Context, args ...any) context.Context {
	return slogctx.With(ctx, args...)
}

func Debug(ctx context.Context, msg string, args ...slog.Attr) {
	slogctx.LogAttrs(ctx, slog.LevelDebug, msg, args...)
}

func Info(ctx context.Context, msg string, args ...slog.Attr) {
	slogctx.LogAttrs(ctx, slog.LevelInfo, msg, args...)
}

func Warn(ctx context.Context, msg string, args ...slog.Attr) {
	slogctx.LogAttrs(ctx, slog.LevelWarn, msg, args...)
}

func Error(ctx context.Context, msg string, err error, args ...slog.Attr) {
	if err != nil {
		args = append(args, slogctx.Err(err))
	}
	slogctx.LogAttrs(ctx, slog.LevelError, msg, args...)
}
