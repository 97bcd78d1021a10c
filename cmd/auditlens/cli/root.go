package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/akave-ai/auditlens/internal/config"
	"github.com/akave-ai/auditlens/internal/logger"
)

var (
	verbose bool
	cfg     *config.Config
	log     zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "auditlens",
	Short: "AuditLens: search and statistics over application audit logs",
	Long: `AuditLens serves a read API over two Elasticsearch indices of audit
records (method calls and HTTP requests) and ingests new records over HTTP.
Configuration is read from AUDITLENS_* environment variables and an optional .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if verbose {
			loaded.Observability.Logging.Level = "debug"
		}
		cfg = loaded
		log = logger.New(cfg.Observability)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
