package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X ...cli.Version=v1.2.3".
var Version = "dev"

// VersionInfo is the payload of the version command.
type VersionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
}

func (v VersionInfo) String() string {
	return "uiprobe " + v.Version + " (" + v.GoVersion + ")"
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print the uiprobe version",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newFormatter(rootOpts, cmd).Success(VersionInfo{
				Version:   Version,
				GoVersion: runtime.Version(),
			})
		},
	}
}
