package reqctx

import (
	"context"
	"log/slog"
)

// LogHandler decorates records logged with a request context with the
// request id, trace id and caller id found in that context.
type LogHandler struct {
	slog.Handler
}

func NewLogHandler(next slog.Handler) *LogHandler {
	return &LogHandler{Handler: next}
}

func (h *LogHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if rid := RequestIDFromContext(ctx); rid != "" {
			r.AddAttrs(slog.String("request_id", rid))
		}
		if tid := TraceIDFromContext(ctx); tid != "" {
			r.AddAttrs(slog.String("trace_id", tid))
		}
		if uid, ok := UserIDFromContext(ctx); ok {
			r.AddAttrs(slog.String("caller_id", uid.String()))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	return &LogHandler{Handler: h.Handler.WithGroup(name)}
}
