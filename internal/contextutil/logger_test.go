package contextutil

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil)).With("component", "indexer")

	ctx := WithLogger(context.Background(), logger)
	got := LoggerFromContext(ctx)
	got.InfoContext(ctx, "indexed")

	if !strings.Contains(buf.String(), "component=indexer") {
		t.Errorf("context logger not returned: %s", buf.String())
	}
}

func TestLoggerFromContext_FallsBackToDefault(t *testing.T) {
	if LoggerFromContext(context.Background()) == nil {
		t.Error("LoggerFromContext() should never return nil")
	}
}
