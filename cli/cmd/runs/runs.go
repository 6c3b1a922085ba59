package runs

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/argil-ai/argil-go/cli/cmd"
	"github.com/argil-ai/argil-go/pkg/logger"
)

// NewRunsCommand creates the runs command group
func NewRunsCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     "runs",
		Aliases: []string{"run"},
		Short:   "Inspect workflow runs",
	}
	command.AddCommand(ListCmd(), GetCmd())
	return command
}

func ListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workflow runs",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{RequireClient: true}, cmd.ModeHandlers{
				JSON: listHandler,
			}, args)
		},
	}
}

func GetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <run-id>",
		Short: "Show a workflow run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{RequireClient: true}, cmd.ModeHandlers{
				JSON: getHandler,
			}, args)
		},
	}
}

// listHandler serves both modes; the output writer picks the format.
func listHandler(ctx context.Context, _ *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	runs, err := executor.Client().WorkflowRuns().List(ctx)
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Debug("listed workflow runs", "count", len(runs))
	return executor.Output().WriteRuns(runs)
}

func getHandler(ctx context.Context, _ *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
	run, err := executor.Client().WorkflowRuns().Get(ctx, args[0])
	if err != nil {
		return err
	}
	return executor.Output().WriteRun(run)
}
