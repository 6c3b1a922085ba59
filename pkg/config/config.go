package config

import (
	"context"
	"time"
)

// Settings is the file/env/flag view of client configuration used by the CLI
// and by FromSettings. It is converted into a GlobalConfig with Global.
type Settings struct {
	APIKey       SensitiveString `koanf:"api_key"       json:"api_key"       yaml:"api_key"       env:"ARGIL_API_KEY"       sensitive:"true"`
	APIURL       string          `koanf:"api_url"       json:"api_url"       yaml:"api_url"       env:"ARGIL_API_URL"                        validate:"api_url"`
	Synchronous  bool            `koanf:"synchronous"   json:"synchronous"   yaml:"synchronous"   env:"ARGIL_SYNCHRONOUS"`
	SyncTimeout  time.Duration   `koanf:"sync_timeout"  json:"sync_timeout"  yaml:"sync_timeout"  env:"ARGIL_SYNC_TIMEOUT"                   validate:"gt=0"`
	AsyncTimeout time.Duration   `koanf:"async_timeout" json:"async_timeout" yaml:"async_timeout" env:"ARGIL_ASYNC_TIMEOUT"                  validate:"gt=0"`
	Log          LogSettings     `koanf:"log"           json:"log"           yaml:"log"`
	Metrics      MetricsSettings `koanf:"metrics"       json:"metrics"       yaml:"metrics"`
	CLI          CLISettings     `koanf:"cli"           json:"cli"           yaml:"cli"`
}

// LogSettings configures pkg/logger.
type LogSettings struct {
	Level  string `koanf:"level"  json:"level"  yaml:"level"  env:"ARGIL_LOG_LEVEL"  validate:"oneof=debug info warn error disabled"`
	JSON   bool   `koanf:"json"   json:"json"   yaml:"json"   env:"ARGIL_LOG_JSON"`
	Source bool   `koanf:"source" json:"source" yaml:"source" env:"ARGIL_LOG_SOURCE"`
}

// MetricsSettings toggles the prometheus recorder.
type MetricsSettings struct {
	Enabled bool `koanf:"enabled" json:"enabled" yaml:"enabled" env:"ARGIL_METRICS_ENABLED"`
}

// CLISettings holds presentation options of the argil command.
type CLISettings struct {
	Output  string `koanf:"output"   json:"output"   yaml:"output"   env:"ARGIL_OUTPUT"   validate:"oneof=json text"`
	NoColor bool   `koanf:"no_color" json:"no_color" yaml:"no_color" env:"ARGIL_NO_COLOR"`
}

// Default returns Settings populated with the built-in defaults. The API key
// has no default.
func Default() *Settings {
	return &Settings{
		APIURL:       DefaultAPIURL,
		Synchronous:  false,
		SyncTimeout:  DefaultSyncTimeout,
		AsyncTimeout: DefaultAsyncTimeout,
		Log: LogSettings{
			Level: "info",
		},
		CLI: CLISettings{
			Output: "text",
		},
	}
}

// Global validates s and converts it into a GlobalConfig.
func (s *Settings) Global(ctx context.Context) (*GlobalConfig, error) {
	if s == nil {
		s = Default()
	}
	return NewGlobal(s.APIKey.Value()).
		WithAPIURL(s.APIURL).
		WithSynchronous(s.Synchronous).
		WithSyncTimeout(s.SyncTimeout).
		WithAsyncTimeout(s.AsyncTimeout).
		Build(ctx)
}

// Source defines the interface for configuration sources.
type Source interface {
	// Load reads configuration from the source as a nested map.
	Load() (map[string]any, error)
	// Type returns the source type identifier.
	Type() SourceType
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata records which source supplied each key of the last load.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}
