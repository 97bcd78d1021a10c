package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set via -ldflags "-X github.com/akave-ai/auditlens/cmd/auditlens/cli.version=..."
var (
	version = "dev"
	commit  = "none"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of auditlens",
	// config is not needed to print a version
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "auditlens %s (%s)\n", version, commit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
