package logger

import (
	"sync"

	"github.com/mstgnz/gmopay/infra/opensearch"
)

var (
	globalLogger *SystemLogger
	globalMu     sync.RWMutex
)

// InitGlobalLogger initializes the global system logger
func InitGlobalLogger(openSearchLogger *opensearch.Logger, config SystemLoggerConfig) *SystemLogger {
	sl := NewSystemLogger(openSearchLogger, config)
	SetGlobalLogger(sl)
	return sl
}

// SetGlobalLogger replaces the global logger
func SetGlobalLogger(sl *SystemLogger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = sl
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *SystemLogger {
	globalMu.RLock()
	sl := globalLogger
	globalMu.RUnlock()
	if sl != nil {
		return sl
	}

	// Fallback to console-only logger if not initialized
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = NewSystemLogger(nil, SystemLoggerConfig{
			EnableConsole: true,
			MinLevel:      LevelInfo,
			Service:       "gmopay",
			Version:       "1.0.0",
			Environment:   "development",
		})
	}
	return globalLogger
}

// Convenience functions for global logging

// Debug logs a debug message using the global logger
func Debug(message string, ctx ...LogContext) {
	GetGlobalLogger().log(2, LevelDebug, message, ctx...)
}

// Info logs an info message using the global logger
func Info(message string, ctx ...LogContext) {
	GetGlobalLogger().log(2, LevelInfo, message, ctx...)
}

// Warn logs a warning message using the global logger
func Warn(message string, ctx ...LogContext) {
	GetGlobalLogger().log(2, LevelWarn, message, ctx...)
}

// Error logs an error message using the global logger
func Error(message string, err error, ctx ...LogContext) {
	GetGlobalLogger().log(2, LevelError, message, withError(err, ctx))
}

// Fatal logs a fatal message using the global logger and exits
func Fatal(message string, err error, ctx ...LogContext) {
	GetGlobalLogger().Fatal(message, err, ctx...)
}

// WithContext creates a context logger from the global logger
func WithContext(ctx LogContext) *ContextLogger {
	return GetGlobalLogger().WithContext(ctx)
}

// WithProvider creates a context logger with provider
func WithProvider(provider string) *ContextLogger {
	return WithContext(LogContext{Provider: provider})
}
