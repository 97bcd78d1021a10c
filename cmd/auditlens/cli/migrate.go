package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/akave-ai/auditlens/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations for the input store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Database == nil {
			return errors.New("no database configured (set AUDITLENS_DATABASE__HOST and friends)")
		}
		return database.Migrate(cmd.Context(), cfg.Database.DSN(), log)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
