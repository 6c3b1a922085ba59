package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// extractCLIFlags collects the persistent flags explicitly set by the user,
// keyed by flag name, for config.NewCLIProvider.
func extractCLIFlags(cmd *cobra.Command, flags map[string]any) {
	getString := func(fs *pflag.FlagSet, name string) (any, error) { return fs.GetString(name) }
	getBool := func(fs *pflag.FlagSet, name string) (any, error) { return fs.GetBool(name) }

	flagDefs := []struct {
		flagName string
		getter   func(*pflag.FlagSet, string) (any, error)
	}{
		{"api-key", getString},
		{"api-url", getString},
		{"log-level", getString},
		{"log-json", getBool},
		{"log-source", getBool},
		{"output", getString},
		{"no-color", getBool},
		{"metrics", getBool},
	}

	fs := cmd.Flags()
	for _, def := range flagDefs {
		if !fs.Changed(def.flagName) {
			continue
		}
		if value, err := def.getter(fs, def.flagName); err == nil {
			flags[def.flagName] = value
		}
	}
}

// loadEnvFile loads environment variables from the --env-file path. A missing
// file is not an error; a path outside the working directory is.
func loadEnvFile(cmd *cobra.Command) (string, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return "", fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if envFile == "" {
		return "", nil
	}
	pwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	if !filepath.IsAbs(envFile) {
		envFile = filepath.Join(pwd, envFile)
	}
	absPath, err := filepath.Abs(filepath.Clean(envFile))
	if err != nil {
		return "", fmt.Errorf("failed to resolve env file path: %w", err)
	}
	if !isPathWithinDirectory(absPath, pwd) {
		return "", fmt.Errorf("env file path '%s' is outside the working directory", envFile)
	}
	fileInfo, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return absPath, nil
		}
		return "", fmt.Errorf("failed to stat env file: %w", err)
	}
	if !fileInfo.Mode().IsRegular() {
		return "", fmt.Errorf("env file path '%s' is not a regular file", envFile)
	}
	if err := godotenv.Load(absPath); err != nil {
		return "", fmt.Errorf("failed to load env file %s: %w", absPath, err)
	}
	return absPath, nil
}

// isPathWithinDirectory checks if a given path is within the specified directory
func isPathWithinDirectory(path, dir string) bool {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return false
	}
	if !strings.HasSuffix(absDir, string(filepath.Separator)) {
		absDir += string(filepath.Separator)
	}
	return strings.HasPrefix(absPath, absDir) || absPath == strings.TrimSuffix(absDir, string(filepath.Separator))
}
