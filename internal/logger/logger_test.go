package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_Disabled(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Enabled: false, Output: &buf})
	l.Error("should not appear")
	require.Zero(t, buf.Len())
}

func TestNew_TextLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Enabled: true, Output: &buf, Level: slog.LevelWarn})
	l.Info("dropped")
	l.Warn("kept", "order", 3)

	out := buf.String()
	require.NotContains(t, out, "dropped")
	require.Contains(t, out, "msg=kept")
	require.Contains(t, out, "order=3")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Enabled: true, Output: &buf, Level: slog.LevelDebug, JSON: true})
	l.Debug("split", "from", 6, "to", 5)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "split", rec["msg"])
	require.EqualValues(t, 6, rec["from"])
}

func TestInit_ReplacesGlobal(t *testing.T) {
	prev := L
	t.Cleanup(func() { L = prev })

	var buf bytes.Buffer
	Init(Options{Enabled: true, Output: &buf})
	Info("hello", "k", "v")
	require.Contains(t, buf.String(), "msg=hello")
}
