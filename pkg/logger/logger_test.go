package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFromContext verifies lookup of a context logger and the fallback.
func TestFromContext(t *testing.T) {
	t.Run("returns logger from context when present", func(t *testing.T) {
		expected := NewLogger(TestConfig())
		ctx := ContextWithLogger(context.Background(), expected)

		assert.Equal(t, expected, FromContext(ctx))
	})

	t.Run("returns default logger when none stored", func(t *testing.T) {
		l := FromContext(context.Background())
		require.NotNil(t, l)
		assert.Equal(t, GetDefault(), l)
	})

	t.Run("returns default logger when wrong type stored", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), LoggerCtxKey, "not a logger")
		assert.Equal(t, GetDefault(), FromContext(ctx))
	})
}

// TestNewLogger_JSON verifies JSON output with key/value pairs and level
// filtering.
func TestFromContextOr(t *testing.T) {
	fallback := NewNop()
	stored := NewLogger(TestConfig())

	assert.Equal(t, fallback, FromContextOr(context.Background(), fallback))
	assert.Equal(t, stored, FromContextOr(ContextWithLogger(context.Background(), stored), fallback))
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: InfoLevel, Output: &buf, JSON: true})

	l.Debug("hidden")
	l.With("query_id", "q-1").Info("query answered", "retrieval_level", "PRIMARY")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1, "debug line should be filtered at info level")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "query answered", entry["msg"])
	assert.Equal(t, "q-1", entry["query_id"])
	assert.Equal(t, "PRIMARY", entry["retrieval_level"])
}

// TestLogLevel_ToCharmlogLevel covers every level and the default.
func TestLogLevel_ToCharmlogLevel(t *testing.T) {
	tests := map[LogLevel]charmlog.Level{
		DebugLevel: charmlog.DebugLevel,
		InfoLevel:  charmlog.InfoLevel,
		WarnLevel:  charmlog.WarnLevel,
		ErrorLevel: charmlog.ErrorLevel,
		"WARN":     charmlog.WarnLevel,
		"verbose":  charmlog.InfoLevel,
	}
	for level, want := range tests {
		assert.Equal(t, want, level.ToCharmlogLevel(), "level %q", level)
	}
}

// TestInit replaces the default logger.
func TestInit(t *testing.T) {
	previous := GetDefault()
	t.Cleanup(func() {
		defaultMu.Lock()
		defaultLogger = previous
		defaultMu.Unlock()
	})

	var buf bytes.Buffer
	Init(&Config{Level: DebugLevel, Output: &buf})
	GetDefault().Debug("after init")

	assert.Contains(t, buf.String(), "after init")
}
