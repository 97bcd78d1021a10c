package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/akave-ai/auditlens/internal/config"
)

// New builds the process logger: console output for local development,
// JSON everywhere else.
func New(cfg *config.ObservabilityConfig) zerolog.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

func NewWithWriter(cfg *config.ObservabilityConfig, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	w := out
	if cfg.Logging.Format == "console" && !cfg.IsProduction() {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05.000"}
	}
	return zerolog.New(w).
		Level(cfg.GetLogLevel()).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Logger()
}

// NewRelic starts the APM application, or returns nil when no license key is set.
func NewRelic(cfg *config.ObservabilityConfig, log zerolog.Logger) (*newrelic.Application, error) {
	if !cfg.NewRelicEnabled() {
		log.Info().Msg("new relic disabled: no license key")
		return nil, nil
	}
	opts := []newrelic.ConfigOption{
		newrelic.ConfigAppName(cfg.ServiceName),
		newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
		newrelic.ConfigAppLogForwardingEnabled(cfg.NewRelic.AppLogForwardingEnabled),
		newrelic.ConfigDistributedTracerEnabled(cfg.NewRelic.DistributedTracingEnabled),
		func(c *newrelic.Config) {
			c.Labels = map[string]string{"environment": cfg.Environment}
		},
	}
	if cfg.NewRelic.DebugLogging {
		opts = append(opts, newrelic.ConfigDebugLogger(os.Stdout))
	}
	app, err := newrelic.NewApplication(opts...)
	if err != nil {
		return nil, fmt.Errorf("new relic application: %w", err)
	}
	log.Info().Str("app", cfg.ServiceName).Msg("new relic enabled")
	return app, nil
}
