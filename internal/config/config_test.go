package config

import (
	"testing"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFromEnv(t *testing.T, vars map[string]string) (*Config, error) {
	t.Helper()
	for k, v := range vars {
		t.Setenv(k, v)
	}
	k := koanf.New(".")
	require.NoError(t, k.Load(env.Provider(EnvPrefix, ".", envKey), nil))
	return fromKoanf(k)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "server.port", envKey("AUDITLENS_SERVER__PORT"))
	assert.Equal(t, "search.method_index", envKey("AUDITLENS_SEARCH__METHOD_INDEX"))
	assert.Equal(t, "observability.new_relic.license_key", envKey("AUDITLENS_OBSERVABILITY__NEW_RELIC__LICENSE_KEY"))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadFromEnv(t, nil)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Primary.Env)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:9200"}, cfg.Elasticsearch.Addresses)
	assert.Equal(t, "audit-methods", cfg.Search.MethodIndex)
	assert.Equal(t, "audit-requests", cfg.Search.RequestIndex)
	assert.Equal(t, 10, cfg.Search.StatsBucketSize)
	assert.True(t, cfg.Search.FailSoftMethodSearch)
	assert.Nil(t, cfg.Database)
	assert.True(t, cfg.Ingest.DefaultEndpoints)
	assert.Equal(t, int64(4<<20), cfg.Ingest.MaxBodyBytes)
	assert.Equal(t, "1s", cfg.Ingest.BulkFlushInterval().String())

	require.NotNil(t, cfg.Observability)
	assert.Equal(t, "auditlens", cfg.Observability.ServiceName)
	assert.Equal(t, "development", cfg.Observability.Environment)
	assert.False(t, cfg.Observability.NewRelicEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := loadFromEnv(t, map[string]string{
		"AUDITLENS_PRIMARY__ENV":                     "production",
		"AUDITLENS_SERVER__PORT":                     "9090",
		"AUDITLENS_ELASTICSEARCH__USERNAME":          "elastic",
		"AUDITLENS_ELASTICSEARCH__PASSWORD":          "secret",
		"AUDITLENS_SEARCH__STATS_BUCKET_SIZE":        "50",
		"AUDITLENS_SEARCH__FAIL_SOFT_METHOD_SEARCH":  "false",
		"AUDITLENS_DATABASE__HOST":                   "db",
		"AUDITLENS_DATABASE__PORT":                   "5432",
		"AUDITLENS_DATABASE__USER":                   "audit",
		"AUDITLENS_DATABASE__NAME":                   "auditlens",
		"AUDITLENS_DATABASE__SSL_MODE":               "disable",
		"AUDITLENS_DATABASE__MAX_OPEN_CONNS":         "4",
		"AUDITLENS_DATABASE__CONN_MAX_LIFETIME":      "300",
		"AUDITLENS_DATABASE__CONN_MAX_IDLE_TIME":     "60",
		"AUDITLENS_OBSERVABILITY__LOGGING__LEVEL":    "debug",
		"AUDITLENS_INGEST__DEFAULT_ENDPOINTS":        "false",
		"AUDITLENS_INGEST__BULK_WORKERS":             "4",
	})
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "elastic", cfg.Elasticsearch.Username)
	assert.Equal(t, 50, cfg.Search.StatsBucketSize)
	assert.False(t, cfg.Search.FailSoftMethodSearch)
	require.NotNil(t, cfg.Database)
	assert.Equal(t, "postgres://audit:@db:5432/auditlens?sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, "production", cfg.Observability.Environment)
	assert.True(t, cfg.Observability.IsProduction())
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)
	assert.False(t, cfg.Ingest.DefaultEndpoints)
	assert.Equal(t, 4, cfg.Ingest.BulkWorkers)
	assert.Equal(t, int64(4<<20), cfg.Ingest.MaxBodyBytes)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown env":          {"AUDITLENS_PRIMARY__ENV": "qa"},
		"same index twice":     {"AUDITLENS_SEARCH__REQUEST_INDEX": "audit-methods"},
		"username no password": {"AUDITLENS_ELASTICSEARCH__USERNAME": "elastic"},
		"bad log level":        {"AUDITLENS_OBSERVABILITY__LOGGING__LEVEL": "loud"},
		"bad address":          {"AUDITLENS_ELASTICSEARCH__ADDRESSES": "not a url"},
		"tiny body limit":      {"AUDITLENS_INGEST__MAX_BODY_BYTES": "10"},
	}
	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := loadFromEnv(t, vars)
			assert.Error(t, err)
		})
	}
}
