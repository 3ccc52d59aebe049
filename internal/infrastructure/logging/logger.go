package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/autoscribe/autoscribe-core/internal/infrastructure/config"
)

// Logger is the structured logger handed to every component through its
// SetLogger method. It embeds *slog.Logger, so components depending on
// the narrower per-package Logger interfaces get Debug/Info/Warn/Error
// for free.
//
// Thread Safety: safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds the logger from the logging section of config.yaml. Every
// record carries service and version attributes so the add-on's lines
// can be filtered out of a shared log stream.
//
// JSON to stdout is the default: s6 supervises the process and the
// Home Assistant log viewer consumes stdout.
func New(cfg config.LoggingConfig, version string) *Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	return newLogger(cfg, version, out)
}

func newLogger(cfg config.LoggingConfig, version string, out io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "autoscribe"),
		slog.String("version", version),
	})
	return &Logger{Logger: slog.New(handler)}
}

// parseLevel maps a config string to a slog level, defaulting to info
// for anything unrecognised.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a Logger carrying extra default attributes, typically a
// component name:
//
//	compileLog := log.With("component", "compiler")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default is the early-startup logger used before config.Load succeeds:
// JSON to stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
