package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"time"

	"studyscribe/internal/services"
)

// jsonHandler writes one JSON object per line for the daemon log file that
// `studyscribe logs` tails. Classified errors carry their kind and operation
// so a line can be triaged without the surrounding context.
type jsonHandler struct {
	inner slog.Handler
}

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	opts := slog.HandlerOptions{
		Level:     lvl,
		AddSource: addSource,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
				if attr.Value.Kind() == slog.KindTime {
					attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
				}
				return attr
			case slog.LevelKey:
				attr.Key = "level"
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
				return attr
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
				return attr
			}
			// Durations read as seconds with millisecond precision.
			if attr.Value.Kind() == slog.KindDuration {
				seconds := attr.Value.Duration().Seconds()
				attr.Value = slog.Float64Value(math.Round(seconds*1000) / 1000)
			}
			return attr
		},
	}
	return jsonHandler{inner: slog.NewJSONHandler(w, &opts)}
}

func (h jsonHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h jsonHandler) Handle(ctx context.Context, record slog.Record) error {
	var classified error
	hasKind := false
	record.Attrs(func(attr slog.Attr) bool {
		switch attr.Key {
		case FieldErrorKind:
			hasKind = true
		case "error":
			if err, ok := attr.Value.Any().(error); ok {
				classified = err
			}
		}
		return true
	})
	if classified == nil || hasKind {
		return h.inner.Handle(ctx, record)
	}
	details := services.Details(classified)
	if details.Kind == services.KindUnknown {
		return h.inner.Handle(ctx, record)
	}
	record = record.Clone()
	record.AddAttrs(slog.String(FieldErrorKind, string(details.Kind)))
	if details.Operation != "" {
		record.AddAttrs(slog.String(FieldErrorOp, details.Operation))
	}
	return h.inner.Handle(ctx, record)
}

func (h jsonHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return jsonHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h jsonHandler) WithGroup(name string) slog.Handler {
	return jsonHandler{inner: h.inner.WithGroup(name)}
}
