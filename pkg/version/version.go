package version

import (
	"fmt"
	"runtime"
)

// Build variables set via ldflags during compilation:
// -X 'github.com/argil-ai/argil-go/pkg/version.Version=v1.0.0'
// -X 'github.com/argil-ai/argil-go/pkg/version.CommitHash=abc123'
// -X 'github.com/argil-ai/argil-go/pkg/version.BuildDate=2024-01-01T00:00:00Z'
var (
	// Version is the semantic version of the SDK (e.g., "1.0.0")
	Version = "dev"
	// CommitHash is the git commit hash used to build the binary
	CommitHash = "unknown"
	// BuildDate is the timestamp when the binary was built (RFC3339 format)
	BuildDate = "unknown"
)

const productName = "argil-go"

// Info returns build information in a structured format
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildDate  string `json:"build_date"`
	GoVersion  string `json:"go_version"`
}

// Get returns the current build information
func Get() Info {
	return Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildDate:  BuildDate,
		GoVersion:  runtime.Version(),
	}
}

// GetVersion returns just the version string
func GetVersion() string {
	return Version
}

// UserAgent is sent on every API request.
func UserAgent() string {
	return fmt.Sprintf("%s/%s (%s; %s/%s)", productName, Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
