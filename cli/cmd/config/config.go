package config

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/argil-ai/argil-go/cli/cmd"
	"github.com/argil-ai/argil-go/cli/helpers"
	"github.com/argil-ai/argil-go/pkg/config"
	"github.com/argil-ai/argil-go/pkg/logger"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// NewConfigCommand creates the config command using the unified command pattern
func NewConfigCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "config",
		Short: "Inspect client configuration",
	}

	command.AddCommand(
		NewConfigShowCommand(),
		NewConfigEnvCommand(),
		NewConfigValidateCommand(),
	)

	return command
}

// NewConfigShowCommand creates the config show subcommand
func NewConfigShowCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration values",
		Long: `Display the effective configuration. With --sources each key is listed
with the source (cli, env, yaml or default) that supplied it.`,
		Args: cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{}, cmd.ModeHandlers{
				JSON: handleConfigShow,
			}, args)
		},
	}

	command.Flags().StringP("format", "f", "", "Output format (table, json, yaml); defaults to the output mode")
	command.Flags().BoolP("sources", "s", false, "Show configuration sources")

	return command
}

func handleConfigShow(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	logger.FromContext(ctx).Debug("executing config show command")
	format, err := resolveFormat(cobraCmd, executor.Mode())
	if err != nil {
		return err
	}
	showSources, err := cobraCmd.Flags().GetBool("sources")
	if err != nil {
		return fmt.Errorf("failed to get sources flag: %w", err)
	}
	var sources map[string]config.SourceType
	if meta, ok := config.MetadataFromContext(ctx); ok {
		sources = meta.Sources
	}
	return formatConfigOutput(cobraCmd.OutOrStdout(), executor.Settings(), sources, format, showSources)
}

func resolveFormat(cobraCmd *cobra.Command, mode helpers.Mode) (string, error) {
	format, err := cobraCmd.Flags().GetString("format")
	if err != nil {
		return "", fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "" {
		return format, nil
	}
	if mode == helpers.ModeJSON {
		return formatJSON, nil
	}
	return formatTable, nil
}

// NewConfigEnvCommand lists the environment variables the loader reads.
func NewConfigEnvCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "List supported environment variables",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{}, cmd.ModeHandlers{
				JSON: handleConfigEnvJSON,
				Text: handleConfigEnvText,
			}, args)
		},
	}
}

func handleConfigEnvJSON(_ context.Context, _ *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	mappings := config.GenerateEnvMappings()
	out := make(map[string]string, len(mappings))
	for _, m := range mappings {
		out[m.EnvVar] = m.ConfigPath
	}
	return executor.Output().WriteJSON(out)
}

func handleConfigEnvText(_ context.Context, cobraCmd *cobra.Command, _ *cmd.CommandExecutor, _ []string) error {
	w := tabwriter.NewWriter(cobraCmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENV VAR\tKEY")
	for _, m := range config.GenerateEnvMappings() {
		fmt.Fprintf(w, "%s\t%s\n", m.EnvVar, m.ConfigPath)
	}
	return w.Flush()
}

// NewConfigValidateCommand checks that the loaded settings build a usable
// client configuration.
func NewConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{}, cmd.ModeHandlers{
				JSON: handleConfigValidate,
			}, args)
		},
	}
}

func handleConfigValidate(ctx context.Context, _ *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	if _, err := executor.Settings().Global(ctx); err != nil {
		return err
	}
	out := executor.Output()
	if out.Mode() == helpers.ModeJSON {
		return out.WriteJSON(map[string]any{"valid": true})
	}
	out.WriteSuccess("✓ Configuration is valid")
	return nil
}

// formatConfigOutput formats and outputs configuration based on requested format
func formatConfigOutput(
	w io.Writer,
	settings *config.Settings,
	sources map[string]config.SourceType,
	format string,
	showSources bool,
) error {
	switch format {
	case formatJSON:
		return outputJSON(w, settings, sources, showSources)
	case formatYAML:
		return outputYAML(w, settings, sources, showSources)
	case formatTable:
		return outputTable(w, settings, sources, showSources)
	default:
		return helpers.NewCliError(helpers.CodeInvalidInput, fmt.Sprintf("unsupported format: %s", format))
	}
}

func outputJSON(w io.Writer, settings *config.Settings, sources map[string]config.SourceType, showSources bool) error {
	output := map[string]any{"config": flattenSettings(settings)}
	if showSources {
		output["sources"] = sourcesFor(settings, sources)
	}
	return helpers.NewOutputWriter(w, helpers.ModeJSON, false).WriteJSON(output)
}

func outputYAML(w io.Writer, settings *config.Settings, sources map[string]config.SourceType, showSources bool) error {
	output := map[string]any{"config": flattenSettings(settings)}
	if showSources {
		output["sources"] = sourcesFor(settings, sources)
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(output); err != nil {
		return err
	}
	return encoder.Close()
}

func outputTable(w io.Writer, settings *config.Settings, sources map[string]config.SourceType, showSources bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	flatMap := flattenSettings(settings)
	keys := make([]string, 0, len(flatMap))
	for k := range flatMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if showSources {
		fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
		fmt.Fprintln(tw, "---\t-----\t------")
	} else {
		fmt.Fprintln(tw, "KEY\tVALUE")
		fmt.Fprintln(tw, "---\t-----")
	}
	for _, key := range keys {
		if showSources {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", key, flatMap[key], sourceOf(sources, key))
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", key, flatMap[key])
	}
	return tw.Flush()
}

// flattenSettings converts settings to a flat, redacted key-value map
func flattenSettings(s *config.Settings) map[string]string {
	result := map[string]string{
		"api_key":         s.APIKey.String(),
		"api_url":         s.APIURL,
		"synchronous":     fmt.Sprintf("%v", s.Synchronous),
		"sync_timeout":    s.SyncTimeout.String(),
		"async_timeout":   s.AsyncTimeout.String(),
		"log.level":       s.Log.Level,
		"log.json":        fmt.Sprintf("%v", s.Log.JSON),
		"log.source":      fmt.Sprintf("%v", s.Log.Source),
		"metrics.enabled": fmt.Sprintf("%v", s.Metrics.Enabled),
		"cli.output":      s.CLI.Output,
		"cli.no_color":    fmt.Sprintf("%v", s.CLI.NoColor),
	}
	for key, value := range result {
		if value != "" && config.IsSensitiveConfigPath(key) {
			result[key] = "[REDACTED]"
		}
	}
	return result
}

func sourcesFor(settings *config.Settings, sources map[string]config.SourceType) map[string]config.SourceType {
	out := make(map[string]config.SourceType)
	for key := range flattenSettings(settings) {
		out[key] = sourceOf(sources, key)
	}
	return out
}

func sourceOf(sources map[string]config.SourceType, key string) config.SourceType {
	if source, ok := sources[key]; ok && source != "" {
		return source
	}
	return config.SourceDefault
}
