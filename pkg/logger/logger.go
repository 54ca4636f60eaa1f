// Package logger provides structured logging utilities backed by zap
package logger

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration
type Config struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error, fatal
	Format string `mapstructure:"format" yaml:"format"` // text or json
	Output string `mapstructure:"output" yaml:"output"` // stdout, stderr, or file path
}

var (
	mu    sync.RWMutex
	base  = zap.NewNop()
	sugar = base.Sugar()
)

// Init initializes the logger with configuration
func Init(cfg Config) error {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(cfg.Level)))); err != nil {
		level = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.RFC3339TimeEncoder

	var encoder zapcore.Encoder
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	default:
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	var sink zapcore.WriteSyncer
	switch strings.ToLower(strings.TrimSpace(cfg.Output)) {
	case "", "stdout":
		sink = zapcore.Lock(os.Stdout)
	case "stderr":
		sink = zapcore.Lock(os.Stderr)
	default:
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("logger: failed to open log file %s: %w", cfg.Output, err)
		}
		sink = zapcore.AddSync(f)
	}

	core := zapcore.NewCore(encoder, sink, level)
	Set(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)))
	return nil
}

// Set replaces the global logger; tests use it with zaptest/observer cores
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l
	sugar = l.Sugar()
}

// L returns the underlying zap logger
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func s() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Sync flushes buffered entries
func Sync() {
	_ = L().Sync()
}

// Debug logs debug message (only shown when level=debug)
func Debug(msg string) {
	L().Debug(msg)
}

// Debugf logs formatted debug message
func Debugf(format string, args ...interface{}) {
	s().Debugf(format, args...)
}

// Info logs info message
func Info(msg string) {
	L().Info(msg)
}

// Infof logs formatted info message
func Infof(format string, args ...interface{}) {
	s().Infof(format, args...)
}

// Warn logs warning message
func Warn(msg string) {
	L().Warn(msg)
}

// Warnf logs formatted warning message
func Warnf(format string, args ...interface{}) {
	s().Warnf(format, args...)
}

// Error logs error message
func Error(msg string) {
	L().Error(msg)
}

// Errorf logs formatted error message
func Errorf(format string, args ...interface{}) {
	s().Errorf(format, args...)
}

// Fatal logs fatal message and exits
func Fatal(msg string) {
	L().Fatal(msg)
}

// Fatalf logs formatted fatal message and exits
func Fatalf(format string, args ...interface{}) {
	s().Fatalf(format, args...)
}

// WithFields returns a logger carrying structured fields
func WithFields(fields map[string]interface{}) *FieldLogger {
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	return &FieldLogger{fields: zf}
}

// FieldLogger allows structured logging with fields
type FieldLogger struct {
	fields []zap.Field
}

// With appends fields
func (l *FieldLogger) With(fields ...zap.Field) *FieldLogger {
	merged := make([]zap.Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &FieldLogger{fields: merged}
}

// WithFields appends map-style fields
func (l *FieldLogger) WithFields(fields map[string]interface{}) *FieldLogger {
	return l.With(WithFields(fields).fields...)
}

func (l *FieldLogger) Debug(msg string) {
	L().Debug(msg, l.fields...)
}

func (l *FieldLogger) Info(msg string) {
	L().Info(msg, l.fields...)
}

func (l *FieldLogger) Warn(msg string) {
	L().Warn(msg, l.fields...)
}

func (l *FieldLogger) Error(msg string) {
	L().Error(msg, l.fields...)
}

// HTTP logs one served request
func HTTP(method, path string, status, latencyMs int, requestID string) {
	L().Info(fmt.Sprintf("HTTP %s %s %d - %dms", method, path, status, latencyMs),
		zap.String("protocol", "http"),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.Int("latency", latencyMs),
		zap.String("request_id", requestID),
	)
}

// TCP logs an outgoing notification frame
func TCP(eventName, addr string, commentID int64) {
	L().Debug(fmt.Sprintf("TCP %s -> %s (comment:%d)", eventName, addr, commentID),
		zap.String("protocol", "tcp"),
		zap.String("event", eventName),
		zap.Int64("comment_id", commentID),
	)
}

// Context-aware logging (for request tracing)
type contextKey string

const requestIDKey contextKey = "request_id"

// ContextWithRequestID stores the request id for WithRequestID
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the request id stored in ctx, if any
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithRequestID extracts request ID from context and logs with it
func WithRequestID(ctx context.Context) *FieldLogger {
	if requestID := RequestID(ctx); requestID != "" {
		return &FieldLogger{fields: []zap.Field{zap.String("request_id", requestID)}}
	}
	return &FieldLogger{}
}
