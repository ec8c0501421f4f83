package logging

import (
	"context"
	"log/slog"
)

// teeHandler fans each record to two slog.Handlers with independent
// formats, used to keep the log file as JSON while the terminal gets
// human-readable text.
type teeHandler struct {
	file slog.Handler
	term slog.Handler
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.file.Enabled(ctx, level) || h.term.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.file.Enabled(ctx, record.Level) {
		if err := h.file.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	if h.term.Enabled(ctx, record.Level) {
		if err := h.term.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{file: h.file.WithAttrs(attrs), term: h.term.WithAttrs(attrs)}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{file: h.file.WithGroup(name), term: h.term.WithGroup(name)}
}

var _ slog.Handler = (*teeHandler)(nil)
