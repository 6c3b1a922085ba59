package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/argil-ai/argil-go/pkg/logger"
	sdkerrors "github.com/argil-ai/argil-go/sdk/errors"
)

const (
	DefaultAPIURL       = "https://api.argil.ai"
	DefaultSyncTimeout  = 60 * time.Second
	DefaultAsyncTimeout = 2 * time.Second
)

const (
	msgAPIKeyRequired  = "API key is required."
	msgInvalidAPIURL   = "Invalid API URL provided."
	msgInvalidTimeouts = "Timeout values must be positive durations."
)

// GlobalConfig is the client-wide configuration. It is immutable: replacing
// configuration means building a new value.
type GlobalConfig struct {
	fields globalFields
}

type globalFields struct {
	APIKey       SensitiveString `validate:"required"`
	APIURL       string          `validate:"api_url"`
	Synchronous  bool
	SyncTimeout  time.Duration `validate:"gt=0"`
	AsyncTimeout time.Duration `validate:"gt=0"`
}

// The getters return zero values on a nil receiver.

func (g *GlobalConfig) APIKey() string { return g.values().APIKey.Value() }
func (g *GlobalConfig) APIURL() string { return g.values().APIURL }
func (g *GlobalConfig) Synchronous() bool { return g.values().Synchronous }
func (g *GlobalConfig) DefaultSyncTimeout() time.Duration { return g.values().SyncTimeout }
func (g *GlobalConfig) DefaultAsyncTimeout() time.Duration { return g.values().AsyncTimeout }

func (g *GlobalConfig) values() globalFields {
	if g == nil {
		return globalFields{}
	}
	return g.fields
}

// String renders the configuration with the API key redacted.
func (g *GlobalConfig) String() string {
	if g == nil {
		return "<nil>"
	}
	return fmt.Sprintf(
		"api_url=%s api_key=%s synchronous=%t sync_timeout=%s async_timeout=%s",
		g.fields.APIURL, g.fields.APIKey, g.fields.Synchronous, g.fields.SyncTimeout, g.fields.AsyncTimeout,
	)
}

// Builder returns a builder seeded with g, for deriving a modified copy. A
// nil g yields the same defaults as NewGlobal with an empty key.
func (g *GlobalConfig) Builder() *GlobalBuilder {
	if g == nil {
		return NewGlobal("")
	}
	return &GlobalBuilder{fields: g.fields}
}

// GlobalBuilder assembles a GlobalConfig and reports every validation problem
// from Build.
type GlobalBuilder struct {
	fields globalFields
}

// NewGlobal starts a builder with the default URL and timeouts.
func NewGlobal(apiKey string) *GlobalBuilder {
	return &GlobalBuilder{
		fields: globalFields{
			APIKey:       SensitiveString(strings.TrimSpace(apiKey)),
			APIURL:       DefaultAPIURL,
			SyncTimeout:  DefaultSyncTimeout,
			AsyncTimeout: DefaultAsyncTimeout,
		},
	}
}

func (b *GlobalBuilder) WithAPIKey(apiKey string) *GlobalBuilder {
	if b == nil {
		return nil
	}
	b.fields.APIKey = SensitiveString(strings.TrimSpace(apiKey))
	return b
}

func (b *GlobalBuilder) WithAPIURL(apiURL string) *GlobalBuilder {
	if b == nil {
		return nil
	}
	b.fields.APIURL = strings.TrimRight(strings.TrimSpace(apiURL), "/")
	return b
}

func (b *GlobalBuilder) WithSynchronous(synchronous bool) *GlobalBuilder {
	if b == nil {
		return nil
	}
	b.fields.Synchronous = synchronous
	return b
}

func (b *GlobalBuilder) WithSyncTimeout(timeout time.Duration) *GlobalBuilder {
	if b == nil {
		return nil
	}
	b.fields.SyncTimeout = timeout
	return b
}

func (b *GlobalBuilder) WithAsyncTimeout(timeout time.Duration) *GlobalBuilder {
	if b == nil {
		return nil
	}
	b.fields.AsyncTimeout = timeout
	return b
}

// Build validates the accumulated fields. Failures are returned as a
// *sdkerrors.Error of KindConfig whose cause is a *sdkerrors.BuildError.
func (b *GlobalBuilder) Build(ctx context.Context) (*GlobalConfig, error) {
	if b == nil {
		return nil, sdkerrors.New(sdkerrors.KindConfig, "global config builder is required", 0, nil)
	}
	if ctx == nil {
		return nil, sdkerrors.New(sdkerrors.KindConfig, "context is required", 0, nil)
	}
	if buildErr := validateGlobal(&b.fields); buildErr != nil {
		return nil, sdkerrors.Wrap(sdkerrors.KindConfig, buildErr, "")
	}
	cfg := &GlobalConfig{fields: b.fields}
	logger.FromContext(ctx).Debug(
		"global configuration built",
		"api_url", cfg.APIURL(),
		"synchronous", cfg.Synchronous(),
		"sync_timeout", cfg.DefaultSyncTimeout(),
		"async_timeout", cfg.DefaultAsyncTimeout(),
	)
	return cfg, nil
}

// validateGlobal runs the struct tags and maps each failing field to its
// user facing message. Both timeouts share one message.
func validateGlobal(fields *globalFields) *sdkerrors.BuildError {
	err := Validator().Struct(fields)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return sdkerrors.NewBuildError(err)
	}
	collected := make([]error, 0, len(verrs))
	timeoutReported := false
	for _, fe := range verrs {
		switch fe.StructField() {
		case "APIKey":
			collected = append(collected, errors.New(msgAPIKeyRequired))
		case "APIURL":
			collected = append(collected, errors.New(msgInvalidAPIURL))
		case "SyncTimeout", "AsyncTimeout":
			if !timeoutReported {
				collected = append(collected, errors.New(msgInvalidTimeouts))
				timeoutReported = true
			}
		default:
			collected = append(collected, fmt.Errorf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return sdkerrors.NewBuildError(collected...)
}
