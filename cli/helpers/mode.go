package helpers

import (
	"os"

	"github.com/mattn/go-isatty"

	"github.com/argil-ai/argil-go/pkg/config"
)

var ciEnvironmentVars = []string{
	"CI",
	"JENKINS_HOME",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"CIRCLECI",
	"TRAVIS",
	"BUILDKITE",
	"DRONE",
	"TF_BUILD",
	"BITBUCKET_COMMIT",
	"CODEBUILD_BUILD_ID",
	"TEAMCITY_VERSION",
	"CONTINUOUS_INTEGRATION",
}

// isRunningInCI reports whether a common CI variable is set.
func isRunningInCI(getenv func(string) string) bool {
	for _, v := range ciEnvironmentVars {
		if getenv(v) != "" {
			return true
		}
	}
	return false
}

// DetectMode returns the configured output mode, text when unset.
func DetectMode(settings *config.Settings) Mode {
	if settings != nil && settings.CLI.Output == string(ModeJSON) {
		return ModeJSON
	}
	return ModeText
}

// ShouldUseColor decides whether output written to f may carry ANSI colors.
func ShouldUseColor(settings *config.Settings, f *os.File) bool {
	return shouldUseColor(settings, f, os.Getenv)
}

func shouldUseColor(settings *config.Settings, f *os.File, getenv func(string) string) bool {
	if settings != nil && settings.CLI.NoColor {
		return false
	}
	if getenv("NO_COLOR") != "" {
		return false
	}
	if f == nil || (!isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())) {
		return false
	}
	if isRunningInCI(getenv) {
		return false
	}
	term := getenv("TERM")
	return term != "" && term != "dumb"
}
