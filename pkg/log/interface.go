// Package log is the structured logging layer of the workbench and its
// estimators. Loggers are thin adapters over log/slog:
//
//	logger := log.GetLoggerWithName("workbench").With(log.SessionKey, sess.ID)
//	logger.Info("Model fitted", log.ModelNameKey, "Random Forest", log.DurationMsKey, 5432)
//
// Tests inject a TestLogger and assert on the recorded entries.
package log

import "context"

// Logger is the subset of *slog.Logger the workbench uses.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	// Error records a failure; pass the error with ErrAttr so its stack is kept.
	Error(msg string, fields ...any)
	With(fields ...any) Logger
	Enabled(ctx context.Context, level Level) bool
}

// Level has the same values as slog.Level.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return "UNKNOWN"
}
