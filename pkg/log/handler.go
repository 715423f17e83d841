package log

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
)

// stackHandler copies the stack trace of a cockroachdb error logged under
// ErrAttrKey into a separate StacktraceAttrKey attribute.
type stackHandler struct {
	next slog.Handler
}

func withStacktrace(h slog.Handler) slog.Handler { return stackHandler{next: h} }

func (h stackHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.next.Enabled(ctx, l)
}

func (h stackHandler) Handle(ctx context.Context, r slog.Record) error {
	var trace string
	r.Attrs(func(a slog.Attr) bool {
		if a.Key != ErrAttrKey {
			return true
		}
		if err, ok := a.Value.Any().(error); ok {
			trace = stacktrace(err)
		}
		return false
	})
	if trace != "" {
		r.AddAttrs(slog.String(StacktraceAttrKey, trace))
	}
	return h.next.Handle(ctx, r)
}

func (h stackHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return stackHandler{next: h.next.WithAttrs(attrs)}
}

func (h stackHandler) WithGroup(name string) slog.Handler {
	return stackHandler{next: h.next.WithGroup(name)}
}

func stacktrace(err error) string {
	for _, d := range errors.GetAllSafeDetails(err) {
		if len(d.SafeDetails) > 0 {
			return d.SafeDetails[0]
		}
	}
	return ""
}
