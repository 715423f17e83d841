package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr logs err under ErrAttrKey.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}

// SetupLogger installs a JSON handler on stdout as the slog default.
func SetupLogger(level string) error {
	return SetupLoggerTo(os.Stdout, level)
}

// SetupLoggerTo is SetupLogger writing to w. Records use Cloud Logging field
// names (severity, message) so they parse without a custom agent config.
func SetupLoggerTo(w io.Writer, level string) error {
	lvl, err := ToLogLevel(level)
	if err != nil {
		return err
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     lvl,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.LevelKey:
				a.Key = "severity"
			case slog.MessageKey:
				a.Key = "message"
			case slog.SourceKey:
				a.Key = "logging.googleapis.com/sourceLocation"
			}
			return a
		},
	})
	slog.SetDefault(slog.New(withStacktrace(h)))
	return nil
}

// ToLogLevel parses debug, info, warn or error. Empty means info.
func ToLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level: %q", level)
}

type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger adapts l. A nil l follows slog.Default(), including later
// SetupLogger calls.
func NewSlogLogger(l *slog.Logger) Logger {
	return slogLogger{l: l}
}

func (s slogLogger) logger() *slog.Logger {
	if s.l == nil {
		return slog.Default()
	}
	return s.l
}

func (s slogLogger) Debug(msg string, fields ...any) { s.logger().Debug(msg, fields...) }
func (s slogLogger) Info(msg string, fields ...any)  { s.logger().Info(msg, fields...) }
func (s slogLogger) Warn(msg string, fields ...any)  { s.logger().Warn(msg, fields...) }
func (s slogLogger) Error(msg string, fields ...any) { s.logger().Error(msg, fields...) }

func (s slogLogger) With(fields ...any) Logger {
	return slogLogger{l: s.logger().With(fields...)}
}

func (s slogLogger) Enabled(ctx context.Context, level Level) bool {
	return s.logger().Enabled(ctx, slog.Level(level))
}

// GetLogger returns a logger on the current slog default.
func GetLogger() Logger { return slogLogger{} }

// GetLoggerWithName returns a logger whose records carry ComponentKey=name.
func GetLoggerWithName(name string) Logger {
	return namedLogger{name: name}
}

// namedLogger resolves slog.Default() per call so package-level loggers pick
// up the handler installed by SetupLogger after init.
type namedLogger struct{ name string }

func (n namedLogger) s() *slog.Logger { return slog.Default().With(ComponentKey, n.name) }

func (n namedLogger) Debug(msg string, fields ...any) { n.s().Debug(msg, fields...) }
func (n namedLogger) Info(msg string, fields ...any)  { n.s().Info(msg, fields...) }
func (n namedLogger) Warn(msg string, fields ...any)  { n.s().Warn(msg, fields...) }
func (n namedLogger) Error(msg string, fields ...any) { n.s().Error(msg, fields...) }

func (n namedLogger) With(fields ...any) Logger {
	return slogLogger{l: n.s().With(fields...)}
}

func (n namedLogger) Enabled(ctx context.Context, level Level) bool {
	return slog.Default().Enabled(ctx, slog.Level(level))
}
