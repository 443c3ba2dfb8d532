package monitoring

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

func (l LogLevel) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLogLevel parses "debug", "info", "warn" or "error", case-insensitively.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// LogFormat represents the output format for logs
type LogFormat int

const (
	FormatJSON LogFormat = iota
	FormatText
	FormatConsole
)

func (f LogFormat) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatText:
		return "text"
	case FormatConsole:
		return "console"
	default:
		return "unknown"
	}
}

// ParseLogFormat parses "json", "text" or "console", case-insensitively.
func ParseLogFormat(s string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	case "console":
		return FormatConsole, nil
	}
	return FormatJSON, fmt.Errorf("unknown log format %q", s)
}

// StructuredLogger is a leveled printf-style logger on top of log/slog.
type StructuredLogger struct {
	logger    *slog.Logger
	level     LogLevel
	fields    map[string]any
	component string
}

// LoggerConfig configures the structured logger
type LoggerConfig struct {
	Level     LogLevel
	Format    LogFormat
	Output    io.Writer
	Component string
	Fields    map[string]any
}

// NewStructuredLogger creates a new structured logger with the given configuration
func NewStructuredLogger(config LoggerConfig) *StructuredLogger {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	fields := maps.Clone(config.Fields)
	if fields == nil {
		fields = make(map[string]any)
	}

	opts := &slog.HandlerOptions{
		Level:     config.Level.slog(),
		AddSource: config.Level == LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339Nano))
			}
			return a
		},
	}

	var handler slog.Handler
	switch config.Format {
	case FormatText:
		handler = slog.NewTextHandler(config.Output, opts)
	case FormatConsole:
		handler = NewConsoleHandler(config.Output, opts)
	default:
		handler = slog.NewJSONHandler(config.Output, opts)
	}

	if config.Component != "" {
		fields["component"] = config.Component
	}
	fields["service"] = "rtti"

	return &StructuredLogger{
		logger:    slog.New(handler),
		level:     config.Level,
		fields:    fields,
		component: config.Component,
	}
}

// Slog returns the underlying slog logger with the logger's fields attached.
func (l *StructuredLogger) Slog() *slog.Logger {
	logger := l.logger
	for k, v := range l.fields {
		logger = logger.With(k, v)
	}
	return logger
}

// WithFields returns a new logger with additional fields
func (l *StructuredLogger) WithFields(fields map[string]any) *StructuredLogger {
	newFields := maps.Clone(l.fields)
	maps.Copy(newFields, fields)

	return &StructuredLogger{
		logger:    l.logger,
		level:     l.level,
		fields:    newFields,
		component: l.component,
	}
}

// Debug logs a debug level message
func (l *StructuredLogger) Debug(msg string, args ...any) {
	l.log(context.Background(), LevelDebug, msg, args...)
}

// Info logs an info level message
func (l *StructuredLogger) Info(msg string, args ...any) {
	l.log(context.Background(), LevelInfo, msg, args...)
}

// Warn logs a warning level message
func (l *StructuredLogger) Warn(msg string, args ...any) {
	l.log(context.Background(), LevelWarn, msg, args...)
}

// Error logs an error level message
func (l *StructuredLogger) Error(msg string, args ...any) {
	l.log(context.Background(), LevelError, msg, args...)
}

func (l *StructuredLogger) log(ctx context.Context, level LogLevel, msg string, args ...any) {
	if level < l.level {
		return
	}

	logger := l.Slog()

	// caller is skipped for debug output, AddSource already covers it
	if level >= LevelError {
		if _, file, line, ok := runtime.Caller(2); ok {
			logger = logger.With("caller", fmt.Sprintf("%s:%d", filepath.Base(file), line))
		}
	}

	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	logger.Log(ctx, level.slog(), msg)
}

// LogOperation logs one encode or decode with standard fields.
func (l *StructuredLogger) LogOperation(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
	fields := map[string]any{
		"operation":   operation,
		"duration":    duration.String(),
		"duration_ms": duration.Milliseconds(),
	}
	maps.Copy(fields, metadata)

	if err != nil {
		fields["error"] = err.Error()
		l.WithFields(fields).log(ctx, LevelError, "Serialization operation failed")
		return
	}
	l.WithFields(fields).log(ctx, LevelInfo, "Serialization operation completed")
}


// ConsoleHandler provides colorized console output
type ConsoleHandler struct {
	handler slog.Handler
	output  io.Writer
}

// NewConsoleHandler creates a new console handler
func NewConsoleHandler(output io.Writer, opts *slog.HandlerOptions) *ConsoleHandler {
	return &ConsoleHandler{
		handler: slog.NewTextHandler(output, opts),
		output:  output,
	}
}

func (h *ConsoleHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *ConsoleHandler) Handle(ctx context.Context, record slog.Record) error {
	var levelStr string
	switch record.Level {
	case slog.LevelDebug:
		levelStr = "\033[36mDEBUG\033[0m"
	case slog.LevelInfo:
		levelStr = "\033[32mINFO\033[0m"
	case slog.LevelWarn:
		levelStr = "\033[33mWARN\033[0m"
	case slog.LevelError:
		levelStr = "\033[31mERROR\033[0m"
	default:
		levelStr = record.Level.String()
	}

	fmt.Fprintf(h.output, "%s [%s] %s", record.Time.Format("15:04:05.000"), levelStr, record.Message)
	record.Attrs(func(a slog.Attr) bool {
		if a.Key != slog.TimeKey && a.Key != slog.LevelKey {
			fmt.Fprintf(h.output, " %s=%s", a.Key, a.Value)
		}
		return true
	})
	fmt.Fprintln(h.output)
	return nil
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ConsoleHandler{
		handler: h.handler.WithAttrs(attrs),
		output:  h.output,
	}
}

func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	return &ConsoleHandler{
		handler: h.handler.WithGroup(name),
		output:  h.output,
	}
}

// NewProductionLogger creates a JSON logger at info level.
func NewProductionLogger(component string) *StructuredLogger {
	return NewStructuredLogger(LoggerConfig{
		Level:     LevelInfo,
		Format:    FormatJSON,
		Component: component,
		Fields: map[string]any{
			"pid": os.Getpid(),
		},
	})
}
