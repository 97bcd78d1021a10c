package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akave-ai/auditlens/internal/elastic"
)

var indicesCmd = &cobra.Command{
	Use:   "indices",
	Short: "Create the method and request indices with their mappings if missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := elastic.NewClient(cfg.Elasticsearch, nil)
		if err != nil {
			return fmt.Errorf("elasticsearch client: %w", err)
		}
		ctx := log.WithContext(cmd.Context())
		if err := client.Ping(ctx); err != nil {
			return fmt.Errorf("elasticsearch ping: %w", err)
		}
		return client.EnsureIndices(ctx, auditIndices())
	},
}

func init() {
	rootCmd.AddCommand(indicesCmd)
}
