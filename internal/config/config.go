package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

// EnvPrefix is stripped from environment variables; "__" separates nested keys
// (AUDITLENS_SERVER__PORT -> server.port).
const EnvPrefix = "AUDITLENS_"

type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Elasticsearch ElasticsearchConfig  `koanf:"elasticsearch" validate:"required"`
	Search        SearchConfig         `koanf:"search" validate:"required"`
	Ingest        IngestConfig         `koanf:"ingest"`
	Database      *DatabaseConfig      `koanf:"database" validate:"omitempty"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required,oneof=development staging production test"`
}

type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required,min=1"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required,min=1"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required,min=1"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

type ElasticsearchConfig struct {
	Addresses          []string `koanf:"addresses" validate:"required,min=1,dive,url"`
	Username           string   `koanf:"username"`
	Password           string   `koanf:"password" validate:"required_with=Username"`
	APIKey             string   `koanf:"api_key" validate:"excluded_with=Username"`
	CACertPath         string   `koanf:"ca_cert_path" validate:"omitempty,file"`
	InsecureSkipVerify bool     `koanf:"insecure_skip_verify"`
}

type SearchConfig struct {
	MethodIndex          string `koanf:"method_index" validate:"required"`
	RequestIndex         string `koanf:"request_index" validate:"required,nefield=MethodIndex"`
	StatsBucketSize      int    `koanf:"stats_bucket_size" validate:"min=0,max=10000"`
	FailSoftMethodSearch bool   `koanf:"fail_soft_method_search"`
}

// IngestConfig controls the write path into the audit indices.
type IngestConfig struct {
	// DefaultEndpoints mounts /ingest/methods and /ingest/requests at start.
	DefaultEndpoints   bool  `koanf:"default_endpoints"`
	MaxBodyBytes       int64 `koanf:"max_body_bytes" validate:"min=1024"`
	BulkWorkers        int   `koanf:"bulk_workers" validate:"min=1,max=64"`
	BulkFlushBytes     int   `koanf:"bulk_flush_bytes" validate:"min=1024"`
	BulkFlushIntervalS int   `koanf:"bulk_flush_interval" validate:"min=1"`
}

func (i IngestConfig) BulkFlushInterval() time.Duration {
	return time.Duration(i.BulkFlushIntervalS) * time.Second
}

type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required,oneof=disable allow prefer require verify-ca verify-full"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"required"`
}

// DSN renders the connection string understood by pgx.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

func (d *DatabaseConfig) ConnMaxIdleTimeDuration() time.Duration {
	return time.Duration(d.ConnMaxIdleTime) * time.Second
}

// Defaults returns the values used for every key the environment leaves unset.
func Defaults() *Config {
	return &Config{
		Primary: Primary{Env: "development"},
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  60,
		},
		Elasticsearch: ElasticsearchConfig{
			Addresses: []string{"http://localhost:9200"},
		},
		Search: SearchConfig{
			MethodIndex:          "audit-methods",
			RequestIndex:         "audit-requests",
			StatsBucketSize:      10,
			FailSoftMethodSearch: true,
		},
		Ingest: IngestConfig{
			DefaultEndpoints:   true,
			MaxBodyBytes:       4 << 20,
			BulkWorkers:        2,
			BulkFlushBytes:     1 << 20,
			BulkFlushIntervalS: 1,
		},
	}
}

// LoadConfig reads an optional .env file, then the environment, on top of Defaults.
func LoadConfig() (mainConfig *Config, err error) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err = godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Err(err).Msg("could not read .env file")
	}

	k := koanf.New(".")
	err = k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("load env variables: %w", err)
	}
	return fromKoanf(k)
}

// envKey maps AUDITLENS_SEARCH__METHOD_INDEX to search.method_index.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

func fromKoanf(k *koanf.Koanf) (*Config, error) {
	mainConfig := Defaults()
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Observability is a pointer so an absent section can be told apart from a zero one.
	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}
	mainConfig.Observability.ServiceName = "auditlens"
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := validator.New().Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}
	return mainConfig, nil
}
