package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

// versionInfo is the build information with the Go runtime that built it.
type versionInfo struct {
	BuildInfo
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func (v versionInfo) String() string {
	return v.BuildInfo.String() + " " + v.GoVersion + " " + v.Platform
}

func (v versionInfo) TableHeaders() []string {
	return []string{"version", "commit", "built", "go", "platform"}
}

func (v versionInfo) TableRows() [][]string {
	return [][]string{{v.Version, v.Commit, v.BuildDate, v.GoVersion, v.Platform}}
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return PrintResult(cmd, versionInfo{
				BuildInfo: BuildInfo{Version: Version, Commit: GitCommit, BuildDate: BuildDate},
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			})
		},
	}
}

//Personal.AI order the ending
