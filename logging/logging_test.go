package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out), string(b))
	return out
}

func TestPrettyHandler_GroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, nil))

	log.With("match", "m1").WithGroup("search").Info("decided",
		"nodes", 42,
		"elapsed", 3*time.Millisecond,
		"err", errors.New("none"),
	)

	got := decode(t, buf.Bytes())
	require.Equal(t, "decided", got["msg"])
	require.Equal(t, "INFO", got["level"])
	require.Equal(t, "m1", got["match"])

	search, ok := got["search"].(map[string]any)
	require.True(t, ok, "search group missing: %v", got)
	require.EqualValues(t, 42, search["nodes"])
	require.Equal(t, "3ms", search["elapsed"])
	require.Equal(t, "none", search["err"])
}

func TestPrettyHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	log.Info("hidden")
	require.Zero(t, buf.Len())

	log.Warn("shown")
	require.Contains(t, buf.String(), "shown")
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, FormatJSON, "debug")
	require.NoError(t, err)
	log.Debug("hello", "k", 1)
	require.Equal(t, "hello", decode(t, buf.Bytes())["msg"])

	_, err = New(&buf, "xml", "info")
	require.Error(t, err)

	_, err = New(&buf, FormatPretty, "loud")
	require.Error(t, err)
}
