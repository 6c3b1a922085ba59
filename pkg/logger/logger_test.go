package logger

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferedLogger(level LogLevel, json bool) (Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewLogger(&Config{
		Level:      level,
		Output:     &buf,
		JSON:       json,
		TimeFormat: "15:04:05",
	}), &buf
}

func TestFromContext(t *testing.T) {
	t.Run("Should return logger stored in context", func(t *testing.T) {
		expected := NewForTests()
		ctx := ContextWithLogger(t.Context(), expected)
		assert.Equal(t, expected, FromContext(ctx))
	})

	t.Run("Should fall back to default logger when context has none", func(t *testing.T) {
		log := FromContext(t.Context())
		require.NotNil(t, log)
		log.Info("default logger still usable")
	})

	t.Run("Should ignore values of the wrong type", func(t *testing.T) {
		ctx := context.WithValue(t.Context(), LoggerCtxKey, "not a logger")
		require.NotNil(t, FromContext(ctx))
	})

	t.Run("Should handle nil context", func(t *testing.T) {
		//nolint:staticcheck // nil context is part of the contract
		require.NotNil(t, FromContext(nil))
	})
}

func TestEnsureLogger(t *testing.T) {
	t.Run("Should attach the logger when the context has none", func(t *testing.T) {
		l := NewForTests()
		assert.Equal(t, l, FromContext(EnsureLogger(t.Context(), l)))
	})

	t.Run("Should keep a logger already in the context", func(t *testing.T) {
		existing, fallback := NewForTests(), NewForTests().With("svc", "x")
		ctx := EnsureLogger(ContextWithLogger(t.Context(), existing), fallback)
		assert.Equal(t, existing, FromContext(ctx))
	})

	t.Run("Should ignore a nil logger", func(t *testing.T) {
		ctx := t.Context()
		assert.Equal(t, ctx, EnsureLogger(ctx, nil))
	})
}

func TestLogLevel_ToCharmlogLevel(t *testing.T) {
	t.Run("Should map every level to its charm level", func(t *testing.T) {
		cases := map[LogLevel]int{
			DebugLevel:          -4,
			InfoLevel:           0,
			WarnLevel:           4,
			ErrorLevel:          8,
			DisabledLevel:       1000,
			LogLevel("verbose"): 0,
		}
		for level, want := range cases {
			assert.Equal(t, want, int(level.ToCharmlogLevel()), "level %s", level)
		}
	})
}

func TestParseLevel(t *testing.T) {
	t.Run("Should normalize case and whitespace", func(t *testing.T) {
		assert.Equal(t, DebugLevel, ParseLevel(" DEBUG "))
		assert.Equal(t, WarnLevel, ParseLevel("warn"))
		assert.Equal(t, ErrorLevel, ParseLevel("Error"))
		assert.Equal(t, DisabledLevel, ParseLevel("disabled"))
	})

	t.Run("Should default to info for unknown names", func(t *testing.T) {
		assert.Equal(t, InfoLevel, ParseLevel("chatty"))
		assert.Equal(t, InfoLevel, ParseLevel(""))
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("Should write text records to the configured output", func(t *testing.T) {
		log, buf := bufferedLogger(InfoLevel, false)
		log.Info("run started", "workflow_id", "wf-1")
		assert.Contains(t, buf.String(), "run started")
		assert.Contains(t, buf.String(), "wf-1")
	})

	t.Run("Should write JSON records when enabled", func(t *testing.T) {
		log, buf := bufferedLogger(InfoLevel, true)
		log.Info("run started", "workflow_id", "wf-1")
		out := buf.String()
		assert.Contains(t, out, `"msg":"run started"`)
		assert.Contains(t, out, `"workflow_id":"wf-1"`)
	})

	t.Run("Should pick the silent configuration under go test when config is nil", func(t *testing.T) {
		log := NewLogger(nil)
		require.NotNil(t, log)
		log.Info("dropped")
	})
}

func TestLogger_With(t *testing.T) {
	t.Run("Should carry fields into every record", func(t *testing.T) {
		base, buf := bufferedLogger(InfoLevel, false)
		base.With("component", "workflows", "run_id", "run-9").Info("poll")
		out := buf.String()
		assert.Contains(t, out, "component")
		assert.Contains(t, out, "workflows")
		assert.Contains(t, out, "run-9")
	})
}

func TestLoggerLevels(t *testing.T) {
	t.Run("Should drop records below the configured level", func(t *testing.T) {
		log, buf := bufferedLogger(WarnLevel, false)
		log.Debug("debug message")
		log.Info("info message")
		log.Warn("warn message")
		log.Error("error message")
		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.Contains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("Should emit nothing when disabled", func(t *testing.T) {
		log, buf := bufferedLogger(DisabledLevel, false)
		log.Error("error message")
		assert.Empty(t, buf.String())
	})
}

func TestConfigDefaults(t *testing.T) {
	t.Run("Should expose production defaults", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.Equal(t, InfoLevel, cfg.Level)
		assert.Equal(t, os.Stdout, cfg.Output)
		assert.False(t, cfg.JSON)
	})

	t.Run("Should expose silent test defaults", func(t *testing.T) {
		cfg := TestConfig()
		assert.Equal(t, DisabledLevel, cfg.Level)
		assert.Equal(t, io.Discard, cfg.Output)
	})
}

func TestIsTestEnvironment(t *testing.T) {
	t.Run("Should detect go test", func(t *testing.T) {
		assert.True(t, IsTestEnvironment())
	})
}

func TestGetLoggerConfig(t *testing.T) {
	t.Run("Should read the logging flags from a command", func(t *testing.T) {
		cmd := &cobra.Command{Use: "test"}
		cmd.Flags().String("log-level", "info", "")
		cmd.Flags().Bool("log-json", false, "")
		cmd.Flags().Bool("log-source", false, "")
		require.NoError(t, cmd.Flags().Set("log-level", "debug"))
		require.NoError(t, cmd.Flags().Set("log-json", "true"))

		level, json, source, err := GetLoggerConfig(cmd)
		require.NoError(t, err)
		assert.Equal(t, "debug", level)
		assert.True(t, json)
		assert.False(t, source)
	})

	t.Run("Should fail when flags are not registered", func(t *testing.T) {
		_, _, _, err := GetLoggerConfig(&cobra.Command{Use: "bare"})
		require.Error(t, err)
	})
}
