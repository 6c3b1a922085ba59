package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argil-ai/argil-go/pkg/apitypes"
	"github.com/argil-ai/argil-go/pkg/config"
	sdkerrors "github.com/argil-ai/argil-go/sdk/errors"
)

func TestParseInputs(t *testing.T) {
	t.Parallel()

	t.Run("Should decode JSON values and keep plain strings", func(t *testing.T) {
		t.Parallel()
		inputs, err := ParseInputs([]string{
			"name=Ada",
			"count=3",
			"enabled=true",
			`tags=["a","b"]`,
			`meta={"k":"v"}`,
			`quoted="hi"`,
			"empty=",
			"nothing=null",
			"url=https://x.test/?a=b",
		}, "")
		require.NoError(t, err)
		assert.Equal(t, "Ada", inputs["name"])
		assert.InDelta(t, 3.0, inputs["count"], 0)
		assert.Equal(t, true, inputs["enabled"])
		assert.Equal(t, []any{"a", "b"}, inputs["tags"])
		assert.Equal(t, map[string]any{"k": "v"}, inputs["meta"])
		assert.Equal(t, "hi", inputs["quoted"])
		assert.Equal(t, "", inputs["empty"])
		assert.Equal(t, "null", inputs["nothing"])
		assert.Equal(t, "https://x.test/?a=b", inputs["url"])
	})

	t.Run("Should reject pairs without a key", func(t *testing.T) {
		t.Parallel()
		for _, pair := range []string{"novalue", "=value"} {
			_, err := ParseInputs([]string{pair}, "")
			var cliErr *CliError
			require.ErrorAs(t, err, &cliErr)
			assert.Equal(t, CodeInvalidInput, cliErr.Code)
		}
	})

	t.Run("Should merge file inputs under flag inputs", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "input.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"name":"File","voice":{"id":7}}`), 0o600))
		inputs, err := ParseInputs([]string{"name=Flag"}, path)
		require.NoError(t, err)
		assert.Equal(t, "Flag", inputs["name"])
		assert.Equal(t, map[string]any{"id": 7.0}, inputs["voice"])
	})

	t.Run("Should reject files that are not JSON objects", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		bad := filepath.Join(dir, "bad.json")
		list := filepath.Join(dir, "list.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{oops`), 0o600))
		require.NoError(t, os.WriteFile(list, []byte(`[1,2]`), 0o600))
		_, err := ParseInputs(nil, bad)
		assert.ErrorContains(t, err, "not valid JSON")
		_, err = ParseInputs(nil, list)
		assert.ErrorContains(t, err, "must contain a JSON object")
		_, err = ParseInputs(nil, filepath.Join(dir, "missing.json"))
		assert.ErrorContains(t, err, "failed to read input file")
	})
}

func TestCategorize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		code string
	}{
		{"config", sdkerrors.New(sdkerrors.KindConfig, "API key is required.", 0, nil), CodeConfig},
		{"validation", sdkerrors.New(sdkerrors.KindValidation, "bad", 400, nil), CodeValidation},
		{"timeout", sdkerrors.New(sdkerrors.KindTimeout, "Workflow execution timed out.", 408, nil), CodeTimeout},
		{"failed", sdkerrors.New(sdkerrors.KindExecutionFailed, "Workflow execution failed.", 500, nil), CodeExecutionFailed},
		{"canceled", sdkerrors.Wrap(sdkerrors.KindCanceled, context.Canceled, ""), CodeCanceled},
		{"auth", sdkerrors.New(sdkerrors.KindTransport, "nope", http.StatusUnauthorized, nil), CodeAuth},
		{"network", sdkerrors.Wrap(sdkerrors.KindTransport, errors.New("dial tcp"), "unreachable"), CodeNetwork},
		{"api", sdkerrors.New(sdkerrors.KindTransport, "boom", http.StatusBadGateway, nil), CodeTransport},
		{"plain canceled", context.Canceled, CodeCanceled},
		{"plain", errors.New("something"), CodeInvalidInput},
	}
	for _, tc := range cases {
		t.Run("Should map "+tc.name+" errors", func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.code, Categorize(tc.err).Code)
		})
	}

	t.Run("Should return nil for nil", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, Categorize(nil))
	})
}

func TestFormatError(t *testing.T) {
	t.Parallel()

	failed := sdkerrors.New(
		sdkerrors.KindExecutionFailed,
		"Workflow execution failed.",
		http.StatusInternalServerError,
		map[string]any{"id": "run-1", "status": "FAILED"},
	)

	t.Run("Should render JSON with status and details", func(t *testing.T) {
		t.Parallel()
		out := FormatError(failed, ModeJSON, false)
		var decoded map[string]map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &decoded))
		assert.Equal(t, CodeExecutionFailed, decoded["error"]["code"])
		assert.Equal(t, "Workflow execution failed.", decoded["error"]["message"])
		assert.InDelta(t, 500, decoded["error"]["status_code"], 0)
		assert.Equal(t, map[string]any{"id": "run-1", "status": "FAILED"}, decoded["error"]["details"])
	})

	t.Run("Should render plain text without colors", func(t *testing.T) {
		t.Parallel()
		out := FormatError(failed, ModeText, false)
		assert.Equal(t,
			"Error [RUN_FAILED]: Workflow execution failed. (status 500)\nDetails: {\"id\":\"run-1\",\"status\":\"FAILED\"}",
			out,
		)
	})

	t.Run("Should write to the given writer", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		OutputError(&buf, errors.New("bad flag"), ModeText, false)
		assert.Equal(t, "Error [INVALID_INPUT]: bad flag\n", buf.String())
		buf.Reset()
		OutputError(&buf, nil, ModeText, false)
		assert.Empty(t, buf.String())
	})
}

func TestDetectMode(t *testing.T) {
	t.Parallel()

	t.Run("Should honor the configured output", func(t *testing.T) {
		t.Parallel()
		settings := config.Default()
		assert.Equal(t, ModeText, DetectMode(settings))
		settings.CLI.Output = "json"
		assert.Equal(t, ModeJSON, DetectMode(settings))
		assert.Equal(t, ModeText, DetectMode(nil))
	})
}

func TestShouldUseColor(t *testing.T) {
	t.Parallel()

	env := func(vars map[string]string) func(string) string {
		return func(k string) string { return vars[k] }
	}

	t.Run("Should disable colors when requested", func(t *testing.T) {
		t.Parallel()
		settings := config.Default()
		settings.CLI.NoColor = true
		assert.False(t, shouldUseColor(settings, os.Stdout, env(map[string]string{"TERM": "xterm"})))
		assert.False(t, shouldUseColor(config.Default(), os.Stdout, env(map[string]string{"NO_COLOR": "1"})))
	})

	t.Run("Should disable colors for non terminal output", func(t *testing.T) {
		t.Parallel()
		f, err := os.Create(filepath.Join(t.TempDir(), "out"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = f.Close() })
		assert.False(t, shouldUseColor(config.Default(), f, env(map[string]string{"TERM": "xterm"})))
		assert.False(t, shouldUseColor(config.Default(), nil, env(nil)))
	})

	t.Run("Should detect CI environments", func(t *testing.T) {
		t.Parallel()
		assert.True(t, isRunningInCI(env(map[string]string{"GITHUB_ACTIONS": "true"})))
		assert.False(t, isRunningInCI(env(nil)))
	})
}

func TestOutputWriter(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	run := &apitypes.WorkflowRun{
		ID:        "run-1",
		Status:    apitypes.RunStatusFailed,
		CreatedAt: &created,
		Payload:   `{"video":"x"}`,
		ErrorLogs: "boom",
	}

	t.Run("Should print a run as text", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, NewOutputWriter(&buf, ModeText, false).WriteRun(run))
		out := buf.String()
		assert.Contains(t, out, "Run ID:  run-1\n")
		assert.Contains(t, out, "Status:  FAILED\n")
		assert.Contains(t, out, "Created: 2024-05-01T10:00:00Z\n")
		assert.Contains(t, out, "Payload: {\"video\":\"x\"}\n")
		assert.Contains(t, out, "Errors:  boom\n")
	})

	t.Run("Should pretty print JSON", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, NewOutputWriter(&buf, ModeJSON, false).WriteRun(&apitypes.WorkflowRun{ID: "r", Status: "QUEUED"}))
		assert.Equal(t, "{\n  \"id\": \"r\",\n  \"status\": \"QUEUED\"\n}\n", buf.String())
	})

	t.Run("Should print runs as a table", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		w := NewOutputWriter(&buf, ModeText, false)
		require.NoError(t, w.WriteRuns([]apitypes.WorkflowRun{*run, {ID: "run-2", Status: "RUNNING"}}))
		lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
		require.Len(t, lines, 3)
		assert.Contains(t, string(lines[0]), "ID")
		assert.Contains(t, string(lines[1]), "run-1")
		assert.Contains(t, string(lines[2]), "-")

		buf.Reset()
		require.NoError(t, w.WriteRuns(nil))
		assert.Equal(t, "No workflow runs found\n", buf.String())
	})

	t.Run("Should leave statuses plain without color", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "COMPLETED", RenderStatus(apitypes.RunStatusCompleted, false))
		assert.Contains(t, RenderStatus(apitypes.RunStatusCompleted, true), "COMPLETED")
	})
}
