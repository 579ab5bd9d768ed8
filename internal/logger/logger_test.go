package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextAttrsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "json", "debug")

	ctx := Ctx(context.Background(), slog.String("run_id", "abc"))
	ctx = Ctx(ctx, slog.String("trigger", "http"))
	l.InfoContext(ctx, "run started")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "run started", rec["msg"])
	assert.Equal(t, "abc", rec["run_id"])
	assert.Equal(t, "http", rec["trigger"])
}

func TestCtxDoesNotLeakBetweenSiblings(t *testing.T) {
	base := Ctx(context.Background(), slog.String("a", "1"))
	left := Ctx(base, slog.String("b", "2"))
	right := Ctx(base, slog.String("c", "3"))

	leftAttrs := left.Value(attrKey).([]slog.Attr)
	rightAttrs := right.Value(attrKey).([]slog.Attr)
	require.Len(t, leftAttrs, 2)
	require.Len(t, rightAttrs, 2)
	assert.Equal(t, "b", leftAttrs[1].Key)
	assert.Equal(t, "c", rightAttrs[1].Key)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "WARN", want: slog.LevelWarn},
		{in: "", want: slog.LevelInfo},
		{in: "nonsense", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}
