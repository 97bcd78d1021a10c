package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/akave-ai/auditlens/internal/database"
	"github.com/akave-ai/auditlens/internal/elastic"
	"github.com/akave-ai/auditlens/internal/handler"
	"github.com/akave-ai/auditlens/internal/infrastructure/inputs"
	"github.com/akave-ai/auditlens/internal/logger"
	"github.com/akave-ai/auditlens/internal/metrics"
	"github.com/akave-ai/auditlens/internal/model"
	"github.com/akave-ai/auditlens/internal/repository"
	"github.com/akave-ai/auditlens/internal/search"
	"github.com/akave-ai/auditlens/internal/server"
)

var (
	bootstrapIndices bool
	port             string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and ingest endpoints",
	Example: `  AUDITLENS_ELASTICSEARCH__ADDRESSES=http://localhost:9200 auditlens serve --bootstrap-indices
  auditlens serve --port 9090 -v`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&bootstrapIndices, "bootstrap-indices", false, "create missing audit indices with their mappings before serving")
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "override the listen port")
	rootCmd.AddCommand(serveCmd)
}

func auditIndices() map[model.RecordKind]string {
	return map[model.RecordKind]string{
		model.KindMethod:  cfg.Search.MethodIndex,
		model.KindRequest: cfg.Search.RequestIndex,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	if port != "" {
		cfg.Server.Port = port
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.WithContext(ctx)

	nrApp, err := logger.NewRelic(cfg.Observability, log)
	if err != nil {
		return err
	}
	if nrApp != nil {
		defer nrApp.Shutdown(10 * time.Second)
	}
	m := metrics.New(nil)

	client, err := elastic.NewClient(cfg.Elasticsearch, m)
	if err != nil {
		return fmt.Errorf("elasticsearch client: %w", err)
	}
	if bootstrapIndices {
		if err := client.EnsureIndices(ctx, auditIndices()); err != nil {
			return fmt.Errorf("bootstrap indices: %w", err)
		}
	}

	indexerCfg := elastic.IndexerConfig{
		Workers:       cfg.Ingest.BulkWorkers,
		FlushBytes:    cfg.Ingest.BulkFlushBytes,
		FlushInterval: cfg.Ingest.BulkFlushInterval(),
	}
	buffers := make(map[model.RecordKind]inputs.InputBuffer, 2)
	var closers []func(context.Context) error
	serving := false
	defer func() {
		if serving {
			return
		}
		for _, closeFn := range closers {
			_ = closeFn(context.Background())
		}
	}()
	for kind, index := range auditIndices() {
		idx, err := elastic.NewRecordIndexer(client, kind, index, indexerCfg, log, m)
		if err != nil {
			return fmt.Errorf("%s indexer: %w", kind, err)
		}
		buffers[kind] = idx
		closers = append(closers, idx.Close)
	}

	store, closeStore, err := openStore(ctx, nrApp != nil)
	if err != nil {
		return err
	}
	closers = append(closers, func(context.Context) error { closeStore(); return nil })

	checks := map[string]server.ReadinessCheck{"elasticsearch": client.Ping}
	if pinger, ok := store.(interface{ Ping(context.Context) error }); ok {
		checks["database"] = pinger.Ping
	}

	srv, err := server.New(ctx, server.Deps{
		Config: cfg,
		Logger: log,
		Methods: search.NewMethodService(client, search.Settings{
			Index:      cfg.Search.MethodIndex,
			BucketSize: cfg.Search.StatsBucketSize,
		}),
		Requests: search.NewRequestService(client, search.Settings{
			Index:      cfg.Search.RequestIndex,
			BucketSize: cfg.Search.StatsBucketSize,
		}),
		Buffers:  buffers,
		Store:    store,
		Metrics:  m,
		NewRelic: nrApp,
		Checks:   checks,
		Closers:  closers,
	})
	if err != nil {
		return err
	}
	serving = true
	return srv.Start(ctx)
}

// openStore returns the Postgres input repository when a database is
// configured and the in-memory one otherwise.
func openStore(ctx context.Context, newRelic bool) (handler.InputStore, func(), error) {
	if cfg.Database == nil {
		log.Warn().Msg("no database configured: inputs are kept in memory")
		return repository.NewMemoryInputRepository(), func() {}, nil
	}
	dsn := cfg.Database.DSN()
	if err := database.Migrate(ctx, dsn, log); err != nil {
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	pool, err := database.NewPool(ctx, dsn, database.OptionsFromConfig(cfg.Database, newRelic), log)
	if err != nil {
		return nil, nil, fmt.Errorf("database pool: %w", err)
	}
	return repository.NewInputRepository(pool), pool.Close, nil
}
