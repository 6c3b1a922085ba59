package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/argil-ai/argil-go/cli/cmd"
	configcmd "github.com/argil-ai/argil-go/cli/cmd/config"
	"github.com/argil-ai/argil-go/cli/cmd/runs"
	"github.com/argil-ai/argil-go/cli/cmd/workflow"
	"github.com/argil-ai/argil-go/cli/helpers"
	"github.com/argil-ai/argil-go/pkg/config"
	"github.com/argil-ai/argil-go/pkg/logger"
	"github.com/argil-ai/argil-go/pkg/version"
)

const (
	defaultConfigFile = "argil.yaml"
	defaultEnvFile    = ".env"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "argil",
		Short: "Argil workflow client",
		Long: `Start Argil workflows and inspect their runs from the command line.

Configuration is read from argil.yaml, ARGIL_* environment variables and
flags, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return SetupGlobalConfig(cmd)
		},
	}

	addGlobalFlags(root)

	root.AddCommand(
		workflow.NewWorkflowCommand(),
		runs.NewRunsCommand(),
		configcmd.NewConfigCommand(),
		versionCmd(),
	)

	return root
}

func addGlobalFlags(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.String("config", defaultConfigFile, "Path to configuration file")
	flags.String("env-file", defaultEnvFile, "Path to environment file")
	flags.String("api-key", "", "Argil API key (prefer ARGIL_API_KEY)")
	flags.String("api-url", config.DefaultAPIURL, "Argil API base URL")
	flags.String("log-level", "info", "Log level (debug, info, warn, error, disabled)")
	flags.Bool("log-json", false, "Emit logs as JSON")
	flags.Bool("log-source", false, "Include source locations in logs")
	flags.StringP("output", "o", string(helpers.ModeText), "Output format (text, json)")
	flags.Bool("no-color", false, "Disable colored output")
	flags.Bool("metrics", false, "Print SDK metrics to stderr after the command")
}

// SetupGlobalConfig loads the env file and settings, configures the logger and
// stores both in the command context.
func SetupGlobalConfig(cobraCmd *cobra.Command) error {
	ctx := cobraCmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	settings, metadata, err := loadSettings(ctx, cobraCmd)
	if err != nil {
		return cmd.HandleCommonErrors(cobraCmd, err, requestedMode(cobraCmd), false)
	}
	logger.SetupLogger(settings.Log.Level, settings.Log.JSON, settings.Log.Source)
	log := logger.GetDefault()
	log.Debug("configuration loaded", "sources", len(metadata.Sources))
	ctx = logger.ContextWithLogger(ctx, log)
	ctx = config.ContextWithSettings(ctx, settings)
	ctx = config.ContextWithMetadata(ctx, metadata)
	cobraCmd.SetContext(ctx)
	return nil
}

func loadSettings(ctx context.Context, cobraCmd *cobra.Command) (*config.Settings, config.Metadata, error) {
	if _, err := loadEnvFile(cobraCmd); err != nil {
		return nil, config.Metadata{}, fmt.Errorf("failed to load environment file: %w", err)
	}
	configFile, err := cobraCmd.Flags().GetString("config")
	if err != nil {
		return nil, config.Metadata{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	cliFlags := make(map[string]any)
	extractCLIFlags(cobraCmd, cliFlags)
	loader := config.NewLoader()
	settings, err := loader.Load(ctx, config.NewYAMLProvider(configFile), config.NewCLIProvider(cliFlags))
	if err != nil {
		return nil, config.Metadata{}, err
	}
	return settings, loader.Metadata(), nil
}

// requestedMode reads --output directly since settings failed to load.
func requestedMode(cobraCmd *cobra.Command) helpers.Mode {
	if output, err := cobraCmd.Flags().GetString("output"); err == nil && output == string(helpers.ModeJSON) {
		return helpers.ModeJSON
	}
	return helpers.ModeText
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		// Printing the version never needs configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			info := version.Get()
			if requestedMode(cobraCmd) == helpers.ModeJSON {
				return helpers.NewOutputWriter(cobraCmd.OutOrStdout(), helpers.ModeJSON, false).WriteJSON(info)
			}
			out := cobraCmd.OutOrStdout()
			fmt.Fprintf(out, "argil version %s\n", info.Version)
			fmt.Fprintf(out, "commit: %s\n", info.CommitHash)
			fmt.Fprintf(out, "built: %s\n", info.BuildDate)
			fmt.Fprintf(out, "go: %s\n", info.GoVersion)
			return nil
		},
	}
}
