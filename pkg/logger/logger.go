package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.Logger

type contextKey string

const correlationIDContextKey contextKey = "correlation_id"

// Init initializes the global logger for the given environment.
func Init(environment string) error {
	var config zap.Config
	if environment == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var err error
	log, err = config.Build()
	return err
}

// Get returns the global logger instance.
func Get() *zap.Logger {
	if log == nil {
		// Fallback if Init was never called (tests, tooling).
		log, _ = zap.NewDevelopment()
	}
	return log
}

// Sync flushes any buffered log entries.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}

// WithContext returns a logger enriched with the request correlation ID,
// when one is present on the context.
func WithContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return Get()
	}
	if id, ok := ctx.Value(correlationIDContextKey).(string); ok && id != "" {
		return Get().With(zap.String(string(correlationIDContextKey), id))
	}
	return Get()
}

// ContextWithCorrelationID stores a correlation ID on the context.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, correlationIDContextKey, id)
}

// Debug logs a debug message.
func Debug(msg string, fields ...zap.Field) { Get().Debug(msg, fields...) }

// Info logs an info message.
func Info(msg string, fields ...zap.Field) { Get().Info(msg, fields...) }

// Warn logs a warning message.
func Warn(msg string, fields ...zap.Field) { Get().Warn(msg, fields...) }

// Error logs an error message.
func Error(msg string, fields ...zap.Field) { Get().Error(msg, fields...) }

// Fatal logs a fatal message and exits.
func Fatal(msg string, fields ...zap.Field) { Get().Fatal(msg, fields...) }
