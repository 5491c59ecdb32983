package logging

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent.
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "UPNPCTL_LOG_LEVEL"

// maxLoggedPayload caps how much of a datagram or document ends up in a log line
const maxLoggedPayload = 512

// ParseLevel maps a level name to a zap level. Unknown names map to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Initialize creates the global logger with the specified level.
// If level is empty, UPNPCTL_LOG_LEVEL is consulted. If neither is set the
// logger stays silent. Output goes to stderr so command output on stdout
// remains machine readable.
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(level)),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	built, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = built

	return nil
}

// SetLogger replaces the global logger. Tests use this with zaptest/observer.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

// Named returns a child of the global logger scoped to a component
func Named(component string) *zap.Logger {
	return GetLogger().Named(component)
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// LogSearch logs an outgoing M-SEARCH request
func LogSearch(l *zap.Logger, addr string, target string, wait time.Duration) {
	l.Info("SSDP search sent",
		zap.String("addr", addr),
		zap.String("st", target),
		zap.Duration("wait", wait),
	)
}

// LogDatagram logs a received SSDP response datagram
func LogDatagram(l *zap.Logger, from string, data []byte) {
	fields := []zap.Field{
		zap.String("from", from),
		zap.Int("length", len(data)),
	}
	if l.Core().Enabled(zapcore.DebugLevel) {
		fields = append(fields, zap.String("content", truncate(data)))
	}
	l.Debug("SSDP response received", fields...)
}

// LogFetch logs a completed description document fetch
func LogFetch(l *zap.Logger, url string, statusCode int, size int) {
	l.Debug("Description fetched",
		zap.String("url", url),
		zap.Int("status_code", statusCode),
		zap.Int("size", size),
	)
}

// LogSOAPCall logs an outgoing action invocation
func LogSOAPCall(l *zap.Logger, controlURL string, serviceType string, action string, args int) {
	l.Info("SOAP action invoked",
		zap.String("control_url", controlURL),
		zap.String("service_type", serviceType),
		zap.String("action", action),
		zap.Int("arguments", args),
	)
}

func truncate(data []byte) string {
	if len(data) > maxLoggedPayload {
		return string(data[:maxLoggedPayload]) + "..."
	}
	return string(data)
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
