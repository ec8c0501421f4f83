package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeeHandlerWritesBothSinksInTheirOwnFormat(t *testing.T) {
	var fileBuf, termBuf bytes.Buffer
	h := &teeHandler{
		file: slog.NewJSONHandler(&fileBuf, nil),
		term: slog.NewTextHandler(&termBuf, nil),
	}
	logger := slog.New(h)
	logger.Info("ingest complete", "units", 3)

	assert.Contains(t, fileBuf.String(), `"msg":"ingest complete"`)
	assert.Contains(t, termBuf.String(), `msg="ingest complete"`)
}

func TestTeeHandlerRespectsPerHandlerLevel(t *testing.T) {
	var fileBuf, termBuf bytes.Buffer
	h := &teeHandler{
		file: slog.NewJSONHandler(&fileBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		term: slog.NewTextHandler(&termBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}
	logger := slog.New(h)
	logger.Debug("verbose detail")

	assert.Contains(t, fileBuf.String(), "verbose detail")
	assert.Empty(t, termBuf.String(), "term handler is above debug level and should drop it")
}

func TestTeeHandlerWithAttrsAppliesToBothSinks(t *testing.T) {
	var fileBuf, termBuf bytes.Buffer
	h := &teeHandler{
		file: slog.NewJSONHandler(&fileBuf, nil),
		term: slog.NewTextHandler(&termBuf, nil),
	}
	tagged := h.WithAttrs([]slog.Attr{slog.String("workspace", "w1")})
	logger := slog.New(tagged)
	logger.Info("ready")

	assert.Contains(t, fileBuf.String(), `"workspace":"w1"`)
	assert.Contains(t, termBuf.String(), `workspace=w1`)
}

func TestTeeHandlerEnabledReflectsEitherSink(t *testing.T) {
	h := &teeHandler{
		file: slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}),
		term: slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}
	require.True(t, h.Enabled(context.Background(), slog.LevelDebug), "term handler accepts debug even though file doesn't")
	require.True(t, h.Enabled(context.Background(), slog.LevelError))
}
