// Package logging provides structured logging for go-orrery.
// It wraps Go's standard slog package so every component logs the same way:
// JSON records, a per-run correlation ID, and attribute sanitizing.
package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
)

// Environment variables read by the logging setup.
const (
	LevelEnvVar = "ORRERY_LOG_LEVEL"
	// FileEnvVar names a file that receives logs while the terminal renderer
	// owns the screen.
	FileEnvVar = "ORRERY_LOG_FILE"
)

// Logger wraps slog.Logger with context-first helpers.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger writing JSON to stdout.
// The level is read from ORRERY_LOG_LEVEL (DEBUG, INFO, WARN, ERROR). Defaults to INFO.
func NewLogger() *Logger {
	return NewLoggerWithWriter(os.Stdout)
}

// NewLoggerWithWriter creates a Logger writing JSON to w. The terminal renderer owns
// stdout while it runs, so the CLI redirects logs to stderr or a file through this.
func NewLoggerWithWriter(w io.Writer) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       getLogLevelFromEnv(),
		ReplaceAttr: sanitizeAttributes,
	})
	return &Logger{slog.New(handler)}
}

// NewFileLogger creates a Logger appending JSON to the file at path, creating it
// if needed. The returned function closes the file.
func NewFileLogger(path string) (*Logger, func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return NewLoggerWithWriter(f), f.Close, nil
}

// Discard returns a Logger that drops everything. Useful in tests.
func Discard() *Logger {
	return &Logger{slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

// LogWithContext logs a message with automatic correlation ID extraction from context.
func (l *Logger) LogWithContext(ctx context.Context, level slog.Level, msg string, args ...any) {
	if correlationID := GetCorrelationID(ctx); correlationID != "" {
		args = append(args, "correlation_id", correlationID)
	}
	l.Log(ctx, level, msg, args...)
}

// Info logs an informational message with context.
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.LogWithContext(ctx, slog.LevelInfo, msg, args...)
}

// Warn logs a warning message with context.
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.LogWithContext(ctx, slog.LevelWarn, msg, args...)
}

// Error logs an error message with context and proper error formatting.
func (l *Logger) Error(ctx context.Context, msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.LogWithContext(ctx, slog.LevelError, msg, args...)
}

// Debug logs a debug message with context.
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.LogWithContext(ctx, slog.LevelDebug, msg, args...)
}

type correlationIDKey struct{}

// WithCorrelationID adds a correlation ID to the context.
// If no correlation ID is provided, a new one is generated.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	if correlationID == "" {
		correlationID = GenerateCorrelationID()
	}
	return context.WithValue(ctx, correlationIDKey{}, correlationID)
}

// GetCorrelationID extracts the correlation ID from the context, or "".
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}

// GenerateCorrelationID creates a new random correlation ID.
func GenerateCorrelationID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func getLogLevelFromEnv() slog.Level {
	return ParseLevel(os.Getenv(LevelEnvVar))
}

// ParseLevel maps a level name to a slog.Level, defaulting to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// sanitizeAttributes masks sensitive values and rewrites non-finite floats,
// which the JSON handler cannot encode.
func sanitizeAttributes(groups []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)

	sensitiveKeys := []string{
		"password", "passwd", "token", "secret", "authorization", "cookie",
	}
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(key, sensitive) {
			return slog.Attr{Key: a.Key, Value: slog.StringValue("[REDACTED]")}
		}
	}

	if a.Value.Kind() == slog.KindFloat64 {
		f := a.Value.Float64()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return slog.Attr{Key: a.Key, Value: slog.StringValue(fmt.Sprint(f))}
		}
	}

	return a
}

// WrapError wraps an error with additional context information.
func WrapError(err error, context string, args ...any) error {
	if err == nil {
		return nil
	}
	if len(args) > 0 {
		context = fmt.Sprintf(context, args...)
	}
	return fmt.Errorf("%s: %w", context, err)
}
