package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argil-ai/argil-go/cli/helpers"
	"github.com/argil-ai/argil-go/pkg/config"
)

type apiStub struct {
	mu       sync.Mutex
	requests []recordedRequest
}

type recordedRequest struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

func newAPIStub(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *apiStub) {
	t.Helper()
	stub := &apiStub{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		stub.mu.Lock()
		stub.requests = append(stub.requests, recordedRequest{
			method: r.Method,
			path:   r.URL.EscapedPath(),
			auth:   r.Header.Get("Authorization"),
			body:   body,
		})
		stub.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, stub
}

func (s *apiStub) recorded() []recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedRequest(nil), s.requests...)
}

func executeRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := RootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	base := []string{"--env-file", "", "--config", "", "--log-level", "disabled"}
	root.SetArgs(append(base, args...))
	err := root.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

func TestSetupGlobalConfig(t *testing.T) {
	t.Run("Should layer YAML under flags and inject settings into context", func(t *testing.T) {
		dir := t.TempDir()
		cfgPath := filepath.Join(dir, "argil.yaml")
		require.NoError(t, os.WriteFile(cfgPath, []byte(
			"api_key: from-yaml\napi_url: https://yaml.argil.test\ncli:\n  output: json\nsync_timeout: 90s\n",
		), 0o600))

		cmd := RootCmd()
		cmd.SetContext(t.Context())
		require.NoError(t, cmd.ParseFlags([]string{
			"--env-file", "",
			"--config", cfgPath,
			"--api-url", "https://flag.argil.test",
			"--log-level", "disabled",
		}))

		require.NoError(t, SetupGlobalConfig(cmd))

		settings := config.FromContext(cmd.Context())
		assert.Equal(t, "from-yaml", settings.APIKey.Value())
		assert.Equal(t, "https://flag.argil.test", settings.APIURL)
		assert.Equal(t, "json", settings.CLI.Output)
		assert.Equal(t, "1m30s", settings.SyncTimeout.String())

		meta, ok := config.MetadataFromContext(cmd.Context())
		require.True(t, ok)
		assert.Equal(t, config.SourceYAML, meta.Sources["api_key"])
		assert.Equal(t, config.SourceCLI, meta.Sources["api_url"])
	})

	t.Run("Should report invalid settings as configuration errors", func(t *testing.T) {
		cmd := RootCmd()
		cmd.SetContext(t.Context())
		var stderr bytes.Buffer
		cmd.SetErr(&stderr)
		require.NoError(t, cmd.ParseFlags([]string{"--env-file", "", "--config", "", "--output", "xml"}))

		err := SetupGlobalConfig(cmd)

		var cliErr *helpers.CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, helpers.CodeConfig, cliErr.Code)
		assert.Contains(t, stderr.String(), "Error [CONFIG_ERROR]")
	})

	t.Run("Should load variables from the env file", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ARGIL_TEST_ENV_FILE=loaded\n"), 0o600))
		t.Cleanup(func() { _ = os.Unsetenv("ARGIL_TEST_ENV_FILE") })

		cmd := RootCmd()
		require.NoError(t, cmd.ParseFlags(nil))
		path, err := loadEnvFile(cmd)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, ".env"), path)
		assert.Equal(t, "loaded", os.Getenv("ARGIL_TEST_ENV_FILE"))
	})

	t.Run("Should reject env files outside the working directory", func(t *testing.T) {
		t.Chdir(t.TempDir())
		cmd := RootCmd()
		require.NoError(t, cmd.ParseFlags([]string{"--env-file", "../outside.env"}))
		_, err := loadEnvFile(cmd)
		assert.ErrorContains(t, err, "outside the working directory")
	})
}

func TestIsPathWithinDirectory(t *testing.T) {
	t.Parallel()

	t.Run("Should accept nested paths only", func(t *testing.T) {
		t.Parallel()
		assert.True(t, isPathWithinDirectory("/work/.env", "/work"))
		assert.True(t, isPathWithinDirectory("/work", "/work"))
		assert.False(t, isPathWithinDirectory("/workspace/.env", "/work"))
		assert.False(t, isPathWithinDirectory("/work/../etc/passwd", "/work"))
	})
}

func TestWorkflowRunCommand(t *testing.T) {
	t.Parallel()

	t.Run("Should start an async run and print it as JSON", func(t *testing.T) {
		t.Parallel()
		srv, stub := newAPIStub(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"id":"run-1","status":"QUEUED","createdAt":"2024-05-01T10:00:00Z"}`))
		})

		stdout, _, err := executeRoot(t,
			"--api-key", "secret", "--api-url", srv.URL, "--output", "json",
			"workflow", "run", "wf_1", "--input", "name=Ada", "--input", "count=2",
		)
		require.NoError(t, err)

		var run map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &run))
		assert.Equal(t, "run-1", run["id"])
		assert.Equal(t, "QUEUED", run["status"])

		reqs := stub.recorded()
		require.Len(t, reqs, 1)
		assert.Equal(t, http.MethodPost, reqs[0].method)
		assert.Equal(t, "/runWorkflow", reqs[0].path)
		assert.Equal(t, "Bearer secret", reqs[0].auth)
		assert.Equal(t, "wf_1", reqs[0].body["id"])
		assert.Equal(t, map[string]any{"name": "Ada", "count": 2.0}, reqs[0].body["input"])
	})

	t.Run("Should print a settled sync run as text", func(t *testing.T) {
		t.Parallel()
		srv, stub := newAPIStub(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"id":"run-2","status":"COMPLETED"}`))
		})

		stdout, _, err := executeRoot(t,
			"--api-key", "secret", "--api-url", srv.URL,
			"workflow", "run", "wf_2", "--sync", "--timeout", "30s",
		)
		require.NoError(t, err)
		assert.Contains(t, stdout, "✓ Workflow run finished")
		assert.Contains(t, stdout, "Run ID:  run-2\n")
		assert.Contains(t, stdout, "Status:  COMPLETED\n")
		assert.Len(t, stub.recorded(), 1)
	})

	t.Run("Should reject an invalid timeout before calling the API", func(t *testing.T) {
		t.Parallel()
		srv, stub := newAPIStub(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, stderr, err := executeRoot(t,
			"--api-key", "secret", "--api-url", srv.URL,
			"workflow", "run", "wf_3", "--timeout", "soon",
		)
		var cliErr *helpers.CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, helpers.CodeInvalidInput, cliErr.Code)
		assert.Contains(t, stderr, "Error [INVALID_INPUT]")
		assert.Empty(t, stub.recorded())
	})

	t.Run("Should map API authentication failures", func(t *testing.T) {
		t.Parallel()
		srv, _ := newAPIStub(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid API key"}`))
		})

		_, stderr, err := executeRoot(t,
			"--api-key", "bad", "--api-url", srv.URL, "--output", "json",
			"workflow", "run", "wf_4",
		)
		var cliErr *helpers.CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, helpers.CodeAuth, cliErr.Code)
		assert.Equal(t, http.StatusUnauthorized, cliErr.StatusCode)

		var decoded map[string]map[string]any
		require.NoError(t, json.Unmarshal([]byte(stderr), &decoded))
		assert.Equal(t, "Invalid API key", decoded["error"]["message"])
	})

	t.Run("Should fail without an API key", func(t *testing.T) {
		t.Parallel()
		_, stderr, err := executeRoot(t, "--api-key", "", "workflow", "run", "wf_5")
		var cliErr *helpers.CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, helpers.CodeConfig, cliErr.Code)
		assert.Contains(t, stderr, "API key is required.")
	})
}

func TestRunsCommands(t *testing.T) {
	t.Parallel()

	t.Run("Should list runs as a table", func(t *testing.T) {
		t.Parallel()
		srv, stub := newAPIStub(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[{"id":"run-1","status":"COMPLETED"},{"id":"run-2","status":"RUNNING"}]`))
		})

		stdout, _, err := executeRoot(t, "--api-key", "k", "--api-url", srv.URL, "runs", "list")
		require.NoError(t, err)
		assert.Contains(t, stdout, "ID")
		assert.Contains(t, stdout, "run-1")
		assert.Contains(t, stdout, "RUNNING")
		assert.Equal(t, "/getWorkflowRuns", stub.recorded()[0].path)
	})

	t.Run("Should get one run as JSON", func(t *testing.T) {
		t.Parallel()
		srv, stub := newAPIStub(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"id":"run/1","status":"FAILED","errorLogs":"boom"}`))
		})

		stdout, _, err := executeRoot(t, "--api-key", "k", "--api-url", srv.URL, "-o", "json", "runs", "get", "run/1")
		require.NoError(t, err)
		var run map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &run))
		assert.Equal(t, "FAILED", run["status"])
		assert.Equal(t, "/getWorkflowRun/run%2F1", stub.recorded()[0].path)
	})
}

func TestConfigCommands(t *testing.T) {
	t.Parallel()

	t.Run("Should show redacted settings with sources", func(t *testing.T) {
		t.Parallel()
		stdout, _, err := executeRoot(t, "--api-key", "secret-key", "-o", "json", "config", "show", "--sources")
		require.NoError(t, err)
		assert.NotContains(t, stdout, "secret-key")

		var out struct {
			Config  map[string]string `json:"config"`
			Sources map[string]string `json:"sources"`
		}
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.Equal(t, "[REDACTED]", out.Config["api_key"])
		assert.Equal(t, "cli", out.Sources["api_key"])
		assert.Equal(t, "cli", out.Sources["cli.output"])
		assert.Equal(t, config.DefaultAPIURL, out.Config["api_url"])
	})

	t.Run("Should show settings as a table", func(t *testing.T) {
		t.Parallel()
		stdout, _, err := executeRoot(t, "config", "show", "--format", "table")
		require.NoError(t, err)
		assert.Contains(t, stdout, "KEY")
		assert.Contains(t, stdout, "sync_timeout")
		assert.Contains(t, stdout, "1m0s")
	})

	t.Run("Should list environment variables", func(t *testing.T) {
		t.Parallel()
		stdout, _, err := executeRoot(t, "config", "env")
		require.NoError(t, err)
		assert.Contains(t, stdout, "ARGIL_API_KEY")
		assert.Contains(t, stdout, "ARGIL_SYNC_TIMEOUT")
	})

	t.Run("Should validate the effective configuration", func(t *testing.T) {
		t.Parallel()
		stdout, _, err := executeRoot(t, "--api-key", "k", "config", "validate")
		require.NoError(t, err)
		assert.Contains(t, stdout, "Configuration is valid")

		_, _, err = executeRoot(t, "--api-key", "", "config", "validate")
		var cliErr *helpers.CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, helpers.CodeConfig, cliErr.Code)
	})
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	t.Run("Should print build information", func(t *testing.T) {
		t.Parallel()
		stdout, _, err := executeRoot(t, "version")
		require.NoError(t, err)
		assert.Contains(t, stdout, "argil version dev")
	})
}
