package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/argil-ai/argil-go/cli/helpers"
	"github.com/argil-ai/argil-go/pkg/config"
	"github.com/argil-ai/argil-go/pkg/logger"
	"github.com/argil-ai/argil-go/pkg/telemetry"
	"github.com/argil-ai/argil-go/sdk/client"
)

// CommandExecutor handles common setup and execution patterns for CLI commands:
// output mode, SDK client creation, metrics and error reporting.
type CommandExecutor struct {
	settings *config.Settings
	mode     helpers.Mode
	color    bool
	output   *helpers.OutputWriter

	// Only populated when the command talks to the API.
	client  *client.Client
	metrics *telemetry.Service
}

// HandlerFunc defines the signature for command handlers.
type HandlerFunc func(ctx context.Context, cmd *cobra.Command, executor *CommandExecutor, args []string) error

// ModeHandlers contains handlers for the supported output modes. Text falls
// back to JSON when unset.
type ModeHandlers struct {
	JSON HandlerFunc
	Text HandlerFunc
}

// ExecutorOptions allows customization of the command executor
type ExecutorOptions struct {
	RequireClient bool
	// ClientOptions are appended to the defaults when a client is built.
	ClientOptions []client.Option
}

// NewCommandExecutor creates a new command executor with all necessary setup.
func NewCommandExecutor(cmd *cobra.Command, opts ExecutorOptions) (*CommandExecutor, error) {
	ctx := cmd.Context()
	log := logger.FromContext(ctx)
	settings := config.FromContext(ctx)
	mode := helpers.DetectMode(settings)
	color := false
	if f, ok := cmd.OutOrStdout().(*os.File); ok {
		color = helpers.ShouldUseColor(settings, f)
	}
	log.Debug("detected output mode", "mode", mode, "color", color)
	executor := &CommandExecutor{
		settings: settings,
		mode:     mode,
		color:    color,
		output:   helpers.NewOutputWriter(cmd.OutOrStdout(), mode, color),
	}
	if !opts.RequireClient {
		return executor, nil
	}
	metrics, err := telemetry.New(ctx, settings.Metrics.Enabled)
	if err != nil {
		return nil, err
	}
	recorder, err := metrics.Recorder()
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics recorder: %w", err)
	}
	clientOpts := append([]client.Option{
		client.WithMetrics(recorder),
		client.WithLogger(log),
	}, opts.ClientOptions...)
	c, err := client.FromSettings(ctx, settings, clientOpts...)
	if err != nil {
		return nil, err
	}
	executor.client = c
	executor.metrics = metrics
	return executor, nil
}

// Execute runs the handler for the detected mode with a context canceled on
// interrupt.
func (e *CommandExecutor) Execute(ctx context.Context, cmd *cobra.Command, handlers ModeHandlers, args []string) error {
	handler := handlers.JSON
	if e.mode == helpers.ModeText && handlers.Text != nil {
		handler = handlers.Text
	}
	if handler == nil {
		return fmt.Errorf("no handler registered for %s mode", e.mode)
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := handler(ctx, cmd, e, args)
	e.flushMetrics(ctx, cmd)
	return err
}

func (e *CommandExecutor) flushMetrics(ctx context.Context, cmd *cobra.Command) {
	if e.metrics == nil || !e.metrics.Enabled() {
		return
	}
	defer func() { _ = e.metrics.Shutdown(context.WithoutCancel(ctx)) }()
	samples, err := e.metrics.Snapshot()
	if err != nil {
		logger.FromContext(ctx).Warn("failed to gather metrics", "error", err)
		return
	}
	w := helpers.NewOutputWriter(cmd.ErrOrStderr(), helpers.ModeJSON, false)
	if err := w.WriteJSON(map[string]any{"metrics": samples}); err != nil {
		logger.FromContext(ctx).Warn("failed to print metrics", "error", err)
	}
}

func (e *CommandExecutor) Client() *client.Client {
	return e.client
}

func (e *CommandExecutor) Settings() *config.Settings {
	return e.settings
}

func (e *CommandExecutor) Output() *helpers.OutputWriter {
	return e.output
}

func (e *CommandExecutor) Mode() helpers.Mode {
	return e.mode
}

// ExecuteCommand is a convenience function that combines executor creation and execution.
func ExecuteCommand(cmd *cobra.Command, opts ExecutorOptions, handlers ModeHandlers, args []string) error {
	executor, err := NewCommandExecutor(cmd, opts)
	if err != nil {
		settings := config.FromContext(cmd.Context())
		return HandleCommonErrors(cmd, err, helpers.DetectMode(settings), false)
	}
	return HandleCommonErrors(cmd, executor.Execute(cmd.Context(), cmd, handlers, args), executor.mode, executor.color)
}

// HandleCommonErrors prints err on the command's error stream and returns it
// as a CliError so the exit status reflects the failure.
func HandleCommonErrors(cmd *cobra.Command, err error, mode helpers.Mode, color bool) error {
	if err == nil {
		return nil
	}
	helpers.OutputError(cmd.ErrOrStderr(), err, mode, color)
	return helpers.Categorize(err)
}
