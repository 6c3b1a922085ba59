// Package client is the entry point of the Argil SDK. A Client owns the
// active configuration and the transport built from it, and hands out the
// workflow and workflow run services.
package client

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"

	"github.com/argil-ai/argil-go/pkg/config"
	"github.com/argil-ai/argil-go/pkg/logger"
	"github.com/argil-ai/argil-go/pkg/telemetry"
	sdkerrors "github.com/argil-ai/argil-go/sdk/errors"
	"github.com/argil-ai/argil-go/sdk/transport"
	"github.com/argil-ai/argil-go/sdk/workflowruns"
	"github.com/argil-ai/argil-go/sdk/workflows"
)

type options struct {
	factory        transport.Factory
	clock          workflows.Clock
	recorder       telemetry.Recorder
	log            logger.Logger
	tracerProvider trace.TracerProvider
}

// Option configures a Client.
type Option func(*options)

// WithTransportFactory replaces how transports are built for a configuration.
func WithTransportFactory(f transport.Factory) Option {
	return func(o *options) {
		if f != nil {
			o.factory = f
		}
	}
}

// WithClock sets the time source used while polling synchronous runs.
func WithClock(c workflows.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithMetrics reports SDK activity to rec.
func WithMetrics(rec telemetry.Recorder) Option {
	return func(o *options) {
		if rec != nil {
			o.recorder = rec
		}
	}
}

// WithLogger sets the logger used when a call context carries none.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// Client is safe for concurrent use. Every call reads the current snapshot
// once at its start, so UpdateConfiguration never affects calls in flight.
type Client struct {
	state     atomic.Pointer[transport.Snapshot]
	factory   transport.Factory
	log       logger.Logger
	workflows *workflows.Service
	runs      *workflowruns.Service
}

// New creates a Client for cfg.
func New(cfg *config.GlobalConfig, opts ...Option) (*Client, error) {
	o := &options{recorder: telemetry.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.factory == nil {
		o.factory = transport.NewFactory(transport.WithRecorder(o.recorder))
	}
	c := &Client{factory: o.factory, log: o.log}
	if err := c.UpdateConfiguration(cfg); err != nil {
		return nil, err
	}
	wfOpts := []workflows.Option{
		workflows.WithRecorder(o.recorder),
		workflows.WithLogger(o.log),
		workflows.WithTracerProvider(o.tracerProvider),
	}
	if o.clock != nil {
		wfOpts = append(wfOpts, workflows.WithClock(o.clock))
	}
	c.workflows = workflows.New(c.snapshot, wfOpts...)
	c.runs = workflowruns.New(c.snapshot, workflowruns.WithLogger(o.log))
	return c, nil
}

// FromSettings builds the global configuration from loaded settings and
// creates a Client for it.
func FromSettings(ctx context.Context, settings *config.Settings, opts ...Option) (*Client, error) {
	if settings == nil {
		return nil, sdkerrors.New(sdkerrors.KindConfig, "settings are required", 0, nil)
	}
	cfg, err := settings.Global(ctx)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// UpdateConfiguration replaces the active configuration. The transport for
// cfg is built before the swap; on error the previous snapshot stays active.
func (c *Client) UpdateConfiguration(cfg *config.GlobalConfig) error {
	if cfg == nil {
		return sdkerrors.New(sdkerrors.KindConfig, "configuration is required", 0, nil)
	}
	tr, err := c.factory(cfg)
	if err != nil {
		return err
	}
	c.state.Store(&transport.Snapshot{Config: cfg, Transport: tr})
	if c.log != nil {
		c.log.Debug("Client configuration updated", "config", cfg.String())
	}
	return nil
}

// Configuration returns the active configuration.
func (c *Client) Configuration() *config.GlobalConfig {
	if snap := c.state.Load(); snap != nil {
		return snap.Config
	}
	return nil
}

func (c *Client) Workflows() *workflows.Service {
	return c.workflows
}

func (c *Client) WorkflowRuns() *workflowruns.Service {
	return c.runs
}

func (c *Client) snapshot() *transport.Snapshot {
	return c.state.Load()
}
