// Package logger provides the process-wide structured logger built on
// log/slog.
//
// L is usable from package init onwards (text handler, INFO). The CLI calls
// Setup once the configuration is known to switch format and level and to
// attach the optional MongoDB sink:
//
//	closeLog, err := logger.Setup(logger.Options{Env: "production", Level: "debug"})
//	defer closeLog()
//
// Request handlers get a logger already tagged with the request id:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("route served", "route", name)
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

var L *slog.Logger

func init() {
	L = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(L)
}

// Options controls Setup.
type Options struct {
	// Env selects the format: "production"/"prod" log JSON, anything else
	// logs human-readable text.
	Env string
	// Level is one of debug, info, warn, error. Empty means debug outside
	// production and info in production.
	Level string
	// Output defaults to os.Stdout.
	Output io.Writer
	// MongoURI, when set, also ships every record to MongoDB.
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

// Setup replaces L and the slog default. The returned func flushes and
// detaches any extra sink; it is never nil.
func Setup(opts Options) (func(), error) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	prod := isProduction(opts.Env)
	level, err := parseLevel(opts.Level, prod)
	if err != nil {
		return func() {}, err
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if prod {
		handler = slog.NewJSONHandler(out, handlerOpts) // structured JSON for log aggregators
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	closer := func() {}
	if opts.MongoURI != "" {
		db := opts.MongoDatabase
		if db == "" {
			db = "hotserve"
		}
		col := opts.MongoCollection
		if col == "" {
			col = "logs"
		}
		mh, err := NewMongoHandler(opts.MongoURI, db, col, level)
		if err != nil {
			return func() {}, err
		}
		handler = NewMultiHandler(handler, mh)
		closer = mh.Close
	}

	L = slog.New(handler)
	slog.SetDefault(L)
	return closer, nil
}

func isProduction(env string) bool {
	switch strings.ToLower(env) {
	case "production", "prod":
		return true
	}
	return false
}

func parseLevel(s string, prod bool) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		if prod {
			return slog.LevelInfo, nil
		}
		return slog.LevelDebug, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("logger: unknown level %q", s)
	}
}

// ─────────────────────────────────────────────
// Context-aware logger
// ─────────────────────────────────────────────

type ctxKey struct{}

// WithCtx returns the logger stored by InjectLogger, or L.
func WithCtx(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores a *slog.Logger (pre-tagged with request_id) into ctx.
// Called by the Logger middleware.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// Debug logs at DEBUG level.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs at INFO level.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs at WARN level.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs at ERROR level.
func Error(msg string, args ...any) { L.Error(msg, args...) }
