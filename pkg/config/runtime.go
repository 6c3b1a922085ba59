package config

import (
	"net/http"
	"time"

	sdkerrors "github.com/argil-ai/argil-go/sdk/errors"
)

const msgInvalidRuntimeTimeout = "Invalid timeout: it should be a positive duration"

// RuntimeConfig overrides GlobalConfig for a single call. A nil
// *RuntimeConfig and the zero value are both the empty override.
type RuntimeConfig struct {
	timeout     *time.Duration
	synchronous *bool
}

// Timeout returns the override and whether one was set.
func (r *RuntimeConfig) Timeout() (time.Duration, bool) {
	if r == nil || r.timeout == nil {
		return 0, false
	}
	return *r.timeout, true
}

// Synchronous returns the override and whether one was set.
func (r *RuntimeConfig) Synchronous() (bool, bool) {
	if r == nil || r.synchronous == nil {
		return false, false
	}
	return *r.synchronous, true
}

type RuntimeBuilder struct {
	timeout     *time.Duration
	synchronous *bool
}

func NewRuntime() *RuntimeBuilder {
	return &RuntimeBuilder{}
}

func (b *RuntimeBuilder) WithTimeout(timeout time.Duration) *RuntimeBuilder {
	if b == nil {
		return nil
	}
	b.timeout = &timeout
	return b
}

func (b *RuntimeBuilder) WithSynchronous(synchronous bool) *RuntimeBuilder {
	if b == nil {
		return nil
	}
	b.synchronous = &synchronous
	return b
}

// Build rejects a non-positive timeout with a KindValidation error carrying
// status 400.
func (b *RuntimeBuilder) Build() (*RuntimeConfig, error) {
	if b == nil {
		return &RuntimeConfig{}, nil
	}
	if b.timeout != nil && *b.timeout <= 0 {
		return nil, sdkerrors.New(sdkerrors.KindValidation, msgInvalidRuntimeTimeout, http.StatusBadRequest, nil)
	}
	cfg := &RuntimeConfig{}
	if b.timeout != nil {
		timeout := *b.timeout
		cfg.timeout = &timeout
	}
	if b.synchronous != nil {
		synchronous := *b.synchronous
		cfg.synchronous = &synchronous
	}
	return cfg, nil
}
