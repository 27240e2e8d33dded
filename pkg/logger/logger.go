package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init initializes the global logger
func Init(serviceName string, isDevelopment bool, level string) {
	InitWithWriter(serviceName, isDevelopment, level, os.Stdout)
}

// InitWithWriter initializes the global logger to write to out. Commands that
// print results on stdout pass os.Stderr.
func InitWithWriter(serviceName string, isDevelopment bool, level string, out io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	output := out
	if isDevelopment {
		output = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
			NoColor:    out != os.Stdout,
		}
	}

	Logger = zerolog.New(output).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()

	log.Logger = Logger
}

// WithContext returns a logger with trace information from context
func WithContext(ctx context.Context) *zerolog.Logger {
	logger := Logger.With().Logger()

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		logger = logger.With().
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String()).
			Logger()
	}

	return &logger
}

func Info(ctx context.Context) *zerolog.Event {
	return WithContext(ctx).Info()
}

func Error(ctx context.Context) *zerolog.Event {
	return WithContext(ctx).Error()
}

func Debug(ctx context.Context) *zerolog.Event {
	return WithContext(ctx).Debug()
}

func Warn(ctx context.Context) *zerolog.Event {
	return WithContext(ctx).Warn()
}

// ParseLevel maps a config string to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
