package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KDE/macaw-movies/internal/database"
	"github.com/KDE/macaw-movies/internal/startup"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info := startup.GetBuildInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "macaw %s (commit %s, built %s, %s %s/%s, schema v%d)\n",
				info.Version, info.Commit, info.BuildTime, info.GoVersion, info.OS, info.Arch, database.CurrentVersion)
		},
	}
}
