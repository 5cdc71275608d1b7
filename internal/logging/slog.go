package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Outputs selects where log records go. Nil writers are skipped.
type Outputs struct {
	// Console receives records only when File is nil, keeping the terminal
	// free for status lines during a flight. Defaults to os.Stdout.
	Console io.Writer
	File    io.Writer
	// Graylog receives JSON records, one per GELF message.
	Graylog  io.Writer
	Level    string
	Provider *sdklog.LoggerProvider
	// Context adds live flight attributes to every record.
	Context ContextProvider
}

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	name   string
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager. name identifies
// the OTel instrumentation scope.
func NewSlogManager(name string) *SlogManager {
	return &SlogManager{name: name}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logging system.
// If out.Provider is nil, OTel logging is disabled.
func (m *SlogManager) Setup(out Outputs) {
	lvl := parseLevel(out.Level)
	m.logProvider = out.Provider

	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	if out.File != nil {
		handlers = append(handlers, slog.NewTextHandler(out.File, handlerOpts))
	} else {
		console := out.Console
		if console == nil {
			console = os.Stdout
		}
		handlers = append(handlers, slog.NewTextHandler(console, handlerOpts))
	}

	if out.Graylog != nil {
		handlers = append(handlers, slog.NewJSONHandler(out.Graylog, handlerOpts))
	}

	if out.Provider != nil {
		handlers = append(handlers, otelslog.NewHandler(m.name, otelslog.WithLoggerProvider(out.Provider)))
	}

	var h slog.Handler = NewMultiHandler(handlers...)
	if out.Context != nil {
		h = NewContextHandler(h, out.Context)
	}

	m.logger = slog.New(h)
	m.logger.Info("Logging initialized", "level", out.Level)
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
