package logger

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/mstgnz/gmopay/infra/opensearch"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity level of a log entry
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
	LevelFatal LogLevel = "fatal"
)

var levelOrder = map[LogLevel]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
	LevelFatal: 4,
}

// ParseLevel converts a textual level, defaulting to info
func ParseLevel(s string) LogLevel {
	level := LogLevel(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := levelOrder[level]; ok {
		return level
	}
	return LevelInfo
}

// SystemLog represents a structured system log entry
type SystemLog struct {
	Timestamp   time.Time      `json:"timestamp"`
	Level       LogLevel       `json:"level"`
	Message     string         `json:"message"`
	Component   string         `json:"component"`
	Function    string         `json:"function"`
	File        string         `json:"file"`
	Line        int            `json:"line"`
	Provider    string         `json:"provider,omitempty"`
	RequestID   string         `json:"request_id,omitempty"`
	Error       string         `json:"error,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
	Environment string         `json:"environment"`
	Service     string         `json:"service"`
	Version     string         `json:"version"`
}

// SystemLoggerConfig represents configuration for system logger
type SystemLoggerConfig struct {
	EnableConsole    bool
	EnableOpenSearch bool
	MinLevel         LogLevel
	Service          string
	Version          string
	Environment      string
}

// LogContext holds contextual information for logging
type LogContext struct {
	Provider  string
	RequestID string
	Fields    map[string]any
}

// SystemLogger writes structured logs to zap and, optionally, OpenSearch
type SystemLogger struct {
	zap              *zap.Logger
	openSearchLogger *opensearch.Logger
	enableConsole    bool
	enableOpenSearch bool
	minLevel         LogLevel
	service          string
	version          string
	environment      string
}

// NewSystemLogger creates a new system logger with a zap console sink
func NewSystemLogger(openSearchLogger *opensearch.Logger, config SystemLoggerConfig) *SystemLogger {
	return NewSystemLoggerWithZap(newZapLogger(config), openSearchLogger, config)
}

// NewSystemLoggerWithZap creates a system logger on top of an existing zap logger
func NewSystemLoggerWithZap(z *zap.Logger, openSearchLogger *opensearch.Logger, config SystemLoggerConfig) *SystemLogger {
	if config.MinLevel == "" {
		config.MinLevel = LevelInfo
	}
	if z == nil {
		z = zap.NewNop()
	}
	return &SystemLogger{
		zap:              z.With(zap.String("service", config.Service)),
		openSearchLogger: openSearchLogger,
		enableConsole:    config.EnableConsole,
		enableOpenSearch: config.EnableOpenSearch && openSearchLogger.IsEnabled(),
		minLevel:         config.MinLevel,
		service:          config.Service,
		version:          config.Version,
		environment:      config.Environment,
	}
}

func newZapLogger(config SystemLoggerConfig) *zap.Logger {
	if !config.EnableConsole {
		return zap.NewNop()
	}

	var zc zap.Config
	if config.Environment == "production" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	// Filtering happens in shouldLog so OpenSearch and console agree
	zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	zc.DisableStacktrace = true
	zc.DisableCaller = true

	z, err := zc.Build()
	if err != nil {
		log.Printf("Failed to build zap logger, falling back to nop: %v", err)
		return zap.NewNop()
	}
	return z
}

// Debug logs a debug message
func (sl *SystemLogger) Debug(message string, ctx ...LogContext) {
	sl.log(2, LevelDebug, message, ctx...)
}

// Info logs an info message
func (sl *SystemLogger) Info(message string, ctx ...LogContext) {
	sl.log(2, LevelInfo, message, ctx...)
}

// Warn logs a warning message
func (sl *SystemLogger) Warn(message string, ctx ...LogContext) {
	sl.log(2, LevelWarn, message, ctx...)
}

// Error logs an error message
func (sl *SystemLogger) Error(message string, err error, ctx ...LogContext) {
	sl.log(2, LevelError, message, withError(err, ctx))
}

// Fatal logs a fatal message and exits
func (sl *SystemLogger) Fatal(message string, err error, ctx ...LogContext) {
	sl.log(2, LevelFatal, message, withError(err, ctx))
	_ = sl.zap.Sync()
	os.Exit(1)
}

// Sync flushes buffered console output
func (sl *SystemLogger) Sync() error {
	return sl.zap.Sync()
}

// Zap exposes the underlying zap logger
func (sl *SystemLogger) Zap() *zap.Logger {
	return sl.zap
}

func withError(err error, ctx []LogContext) LogContext {
	logCtx := LogContext{}
	if len(ctx) > 0 {
		logCtx = ctx[0]
	}

	fields := make(map[string]any, len(logCtx.Fields)+1)
	for k, v := range logCtx.Fields {
		fields[k] = v
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	logCtx.Fields = fields
	return logCtx
}

// log is the core logging function; skip is the caller depth above log
func (sl *SystemLogger) log(skip int, level LogLevel, message string, ctx ...LogContext) {
	if !sl.shouldLog(level) {
		return
	}

	function := "unknown"
	pc, file, line, ok := runtime.Caller(skip)
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			function = fn.Name()
			if idx := strings.LastIndex(function, "."); idx != -1 {
				function = function[idx+1:]
			}
		}
	} else {
		file = "unknown"
	}

	entry := SystemLog{
		Timestamp:   time.Now().UTC(),
		Level:       level,
		Message:     message,
		Component:   sl.extractComponent(file),
		Function:    function,
		File:        file,
		Line:        line,
		Environment: sl.environment,
		Service:     sl.service,
		Version:     sl.version,
	}

	if len(ctx) > 0 {
		logCtx := ctx[0]
		entry.Provider = logCtx.Provider
		entry.RequestID = logCtx.RequestID
		entry.Fields = logCtx.Fields

		if errMsg, ok := logCtx.Fields["error"].(string); ok {
			entry.Error = errMsg
		}
	}

	if sl.enableConsole {
		sl.logToZap(entry)
	}

	if sl.enableOpenSearch {
		go sl.logToOpenSearch(entry)
	}
}

// shouldLog checks if the log level should be logged
func (sl *SystemLogger) shouldLog(level LogLevel) bool {
	return levelOrder[level] >= levelOrder[sl.minLevel]
}

// extractComponent returns the package path below the module root,
// e.g. /src/gmopay/provider/gmo/client.go -> provider/gmo
func (sl *SystemLogger) extractComponent(file string) string {
	parts := strings.Split(file, "/")

	for i, part := range parts {
		if part == "gmopay" && i+1 < len(parts)-1 {
			if i+2 < len(parts)-1 {
				return parts[i+1] + "/" + parts[i+2]
			}
			return parts[i+1]
		}
	}

	if len(parts) >= 2 {
		return parts[len(parts)-2]
	}

	return "unknown"
}

func (sl *SystemLogger) logToZap(entry SystemLog) {
	fields := make([]zap.Field, 0, len(entry.Fields)+4)
	fields = append(fields, zap.String("component", entry.Component))
	if entry.Provider != "" {
		fields = append(fields, zap.String("provider", entry.Provider))
	}
	if entry.RequestID != "" {
		fields = append(fields, zap.String("request_id", entry.RequestID))
	}
	if entry.Error != "" {
		fields = append(fields, zap.String("error", entry.Error))
	}
	for key, value := range entry.Fields {
		if key == "error" {
			continue
		}
		fields = append(fields, zap.Any(key, value))
	}

	switch entry.Level {
	case LevelDebug:
		sl.zap.Debug(entry.Message, fields...)
	case LevelInfo:
		sl.zap.Info(entry.Message, fields...)
	case LevelWarn:
		sl.zap.Warn(entry.Message, fields...)
	default:
		// Fatal is written at error level; the caller decides to exit
		sl.zap.Error(entry.Message, fields...)
	}
}

// logToOpenSearch logs to OpenSearch asynchronously
func (sl *SystemLogger) logToOpenSearch(entry SystemLog) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sl.openSearchLogger.LogSystemEvent(ctx, entry); err != nil {
		sl.zap.Warn("Failed to log to OpenSearch", zap.Error(err))
	}
}

// WithContext creates a new logger with context
func (sl *SystemLogger) WithContext(ctx LogContext) *ContextLogger {
	return &ContextLogger{
		systemLogger: sl,
		context:      ctx,
	}
}

// ContextLogger wraps SystemLogger with context
type ContextLogger struct {
	systemLogger *SystemLogger
	context      LogContext
}

// Debug logs a debug message with context
func (cl *ContextLogger) Debug(message string) {
	cl.systemLogger.log(2, LevelDebug, message, cl.context)
}

// Info logs an info message with context
func (cl *ContextLogger) Info(message string) {
	cl.systemLogger.log(2, LevelInfo, message, cl.context)
}

// Warn logs a warning message with context
func (cl *ContextLogger) Warn(message string) {
	cl.systemLogger.log(2, LevelWarn, message, cl.context)
}

// Error logs an error message with context
func (cl *ContextLogger) Error(message string, err error) {
	cl.systemLogger.log(2, LevelError, message, withError(err, []LogContext{cl.context}))
}

// AddField adds a field to the context
func (cl *ContextLogger) AddField(key string, value any) *ContextLogger {
	fields := make(map[string]any, len(cl.context.Fields)+1)
	for k, v := range cl.context.Fields {
		fields[k] = v
	}
	fields[key] = value
	cl.context.Fields = fields
	return cl
}

// SetProvider sets the provider in context
func (cl *ContextLogger) SetProvider(provider string) *ContextLogger {
	cl.context.Provider = provider
	return cl
}

// SetRequestID sets the request ID in context
func (cl *ContextLogger) SetRequestID(requestID string) *ContextLogger {
	cl.context.RequestID = requestID
	return cl
}

// LeveledLogger adapts SystemLogger to the key/value logger used by the retrying transport
type LeveledLogger struct {
	systemLogger *SystemLogger
	provider     string
}

// Leveled returns a key/value adapter tagged with provider
func (sl *SystemLogger) Leveled(provider string) *LeveledLogger {
	return &LeveledLogger{systemLogger: sl, provider: provider}
}

func (l *LeveledLogger) context(keysAndValues []any) LogContext {
	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		value := keysAndValues[i+1]
		if err, ok := value.(error); ok {
			value = err.Error()
		}
		fields[key] = value
	}
	return LogContext{Provider: l.provider, Fields: fields}
}

// Error implements retryablehttp.LeveledLogger
func (l *LeveledLogger) Error(msg string, keysAndValues ...any) {
	l.systemLogger.log(2, LevelError, msg, l.context(keysAndValues))
}

// Info implements retryablehttp.LeveledLogger
func (l *LeveledLogger) Info(msg string, keysAndValues ...any) {
	l.systemLogger.log(2, LevelInfo, msg, l.context(keysAndValues))
}

// Debug implements retryablehttp.LeveledLogger
func (l *LeveledLogger) Debug(msg string, keysAndValues ...any) {
	l.systemLogger.log(2, LevelDebug, msg, l.context(keysAndValues))
}

// Warn implements retryablehttp.LeveledLogger
func (l *LeveledLogger) Warn(msg string, keysAndValues ...any) {
	l.systemLogger.log(2, LevelWarn, msg, l.context(keysAndValues))
}
