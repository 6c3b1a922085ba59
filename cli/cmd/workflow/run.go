package workflow

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/argil-ai/argil-go/cli/cmd"
	"github.com/argil-ai/argil-go/cli/helpers"
	"github.com/argil-ai/argil-go/pkg/apitypes"
	"github.com/argil-ai/argil-go/pkg/config"
	"github.com/argil-ai/argil-go/pkg/logger"
)

// NewWorkflowCommand groups the workflow subcommands.
func NewWorkflowCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     "workflow",
		Aliases: []string{"workflows", "wf"},
		Short:   "Run Argil workflows",
	}
	command.AddCommand(RunCmd())
	return command
}

// RunCmd creates the workflow run command
func RunCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "run <workflow-id>",
		Short: "Start a workflow run",
		Long: `Start a workflow run with optional input parameters.

With --sync the command waits until the run leaves QUEUED/RUNNING, polling
every 5 seconds, and fails if the run fails or the timeout elapses.`,
		Example: `  argil workflow run wf_123 --input avatar=anna --input 'tags=["promo","summer"]'
  argil workflow run wf_123 --input-file input.json --sync --timeout 10m`,
		Args: cobra.ExactArgs(1),
		RunE: runWorkflowRun,
	}

	command.Flags().StringArray("input", []string{}, "Input parameters in key=value format (can be used multiple times)")
	command.Flags().String("input-file", "", "Path to JSON file containing input parameters")
	command.Flags().Bool("sync", false, "Wait for the run to finish (overrides the configured mode)")
	command.Flags().String("timeout", "", "Timeout for this call, e.g. 90s or 10m; bare numbers are milliseconds")

	return command
}

func runWorkflowRun(cobraCmd *cobra.Command, args []string) error {
	return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{
		RequireClient: true,
	}, cmd.ModeHandlers{
		JSON: runJSONHandler,
		Text: runTextHandler,
	}, args)
}

func runJSONHandler(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
	run, err := executeRun(ctx, cobraCmd, executor, args[0])
	if err != nil {
		return err
	}
	return executor.Output().WriteRun(run)
}

func runTextHandler(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
	run, err := executeRun(ctx, cobraCmd, executor, args[0])
	if err != nil {
		return err
	}
	out := executor.Output()
	if run.Status.IsPending() {
		out.WriteSuccess("✓ Workflow run started")
	} else {
		out.WriteSuccess("✓ Workflow run finished")
	}
	return out.WriteRun(run)
}

func executeRun(
	ctx context.Context,
	cobraCmd *cobra.Command,
	executor *cmd.CommandExecutor,
	workflowID string,
) (*apitypes.WorkflowRun, error) {
	inputs, err := parseInputs(cobraCmd)
	if err != nil {
		return nil, err
	}
	runtime, err := buildRuntimeConfig(cobraCmd)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)
	log.Debug("starting workflow run", "workflow_id", workflowID, "inputs", len(inputs))
	run, err := executor.Client().Workflows().Run(ctx, workflowID, inputs, runtime)
	if err != nil {
		return nil, err
	}
	log.Debug("workflow run returned", "run_id", run.ID, "status", run.Status)
	return run, nil
}

func parseInputs(cobraCmd *cobra.Command) (map[string]any, error) {
	pairs, err := cobraCmd.Flags().GetStringArray("input")
	if err != nil {
		return nil, fmt.Errorf("failed to get input flag: %w", err)
	}
	inputFile, err := cobraCmd.Flags().GetString("input-file")
	if err != nil {
		return nil, fmt.Errorf("failed to get input-file flag: %w", err)
	}
	return helpers.ParseInputs(pairs, inputFile)
}

// buildRuntimeConfig only sets the overrides the user passed explicitly.
func buildRuntimeConfig(cobraCmd *cobra.Command) (*config.RuntimeConfig, error) {
	builder := config.NewRuntime()
	flags := cobraCmd.Flags()
	if flags.Changed("sync") {
		sync, err := flags.GetBool("sync")
		if err != nil {
			return nil, fmt.Errorf("failed to get sync flag: %w", err)
		}
		builder.WithSynchronous(sync)
	}
	if flags.Changed("timeout") {
		raw, err := flags.GetString("timeout")
		if err != nil {
			return nil, fmt.Errorf("failed to get timeout flag: %w", err)
		}
		timeout, err := config.ParseDuration(raw)
		if err != nil {
			return nil, helpers.NewCliError(helpers.CodeInvalidInput, err.Error())
		}
		builder.WithTimeout(timeout)
	}
	return builder.Build()
}
