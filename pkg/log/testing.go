package log

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Entry is one record captured by a TestLogger. Errors are stored as their
// message.
type Entry struct {
	Level   Level
	Message string
	Fields  map[string]any
}

type sink struct {
	mu      sync.Mutex
	entries []Entry
}

// TestLogger records entries in memory. Loggers derived with With share
// the same record list.
type TestLogger struct {
	sink   *sink
	level  Level
	fields map[string]any
}

func NewTestLogger(level Level) *TestLogger {
	return &TestLogger{sink: &sink{}, level: level, fields: map[string]any{}}
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.record(LevelDebug, msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any)  { t.record(LevelInfo, msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any)  { t.record(LevelWarn, msg, fields) }
func (t *TestLogger) Error(msg string, fields ...any) { t.record(LevelError, msg, fields) }

func (t *TestLogger) With(fields ...any) Logger {
	merged := make(map[string]any, len(t.fields))
	for k, v := range t.fields {
		merged[k] = v
	}
	putFields(merged, fields)
	return &TestLogger{sink: t.sink, level: t.level, fields: merged}
}

func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	return level >= t.level
}

func (t *TestLogger) record(level Level, msg string, fields []any) {
	if level < t.level {
		return
	}
	e := Entry{Level: level, Message: msg, Fields: make(map[string]any, len(t.fields)+len(fields)/2)}
	for k, v := range t.fields {
		e.Fields[k] = v
	}
	putFields(e.Fields, fields)

	t.sink.mu.Lock()
	t.sink.entries = append(t.sink.entries, e)
	t.sink.mu.Unlock()
}

// putFields reads key/value pairs and slog.Attr values the way slog does.
func putFields(dst map[string]any, fields []any) {
	for i := 0; i < len(fields); i++ {
		if a, ok := fields[i].(slog.Attr); ok {
			dst[a.Key] = plain(a.Value.Any())
			continue
		}
		if i+1 == len(fields) {
			dst["!BADKEY"] = plain(fields[i])
			return
		}
		dst[fmt.Sprint(fields[i])] = plain(fields[i+1])
		i++
	}
}

func plain(v any) any {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return v
}

// Entries returns a copy of everything recorded so far.
func (t *TestLogger) Entries() []Entry {
	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	return append([]Entry(nil), t.sink.entries...)
}

// Find returns the first entry whose message contains msg.
func (t *TestLogger) Find(msg string) (Entry, bool) {
	for _, e := range t.Entries() {
		if strings.Contains(e.Message, msg) {
			return e, true
		}
	}
	return Entry{}, false
}
