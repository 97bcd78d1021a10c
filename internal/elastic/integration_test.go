//go:build integration

package elastic

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcelasticsearch "github.com/testcontainers/testcontainers-go/modules/elasticsearch"

	"github.com/akave-ai/auditlens/internal/config"
	"github.com/akave-ai/auditlens/internal/metrics"
	"github.com/akave-ai/auditlens/internal/model"
	"github.com/akave-ai/auditlens/internal/search"
)

const (
	methodIndex  = "it-audit-methods"
	requestIndex = "it-audit-requests"
)

// setupCluster starts a single-node Elasticsearch and returns a client for it.
func setupCluster(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcelasticsearch.Run(ctx,
		"docker.elastic.co/elasticsearch/elasticsearch:8.15.3",
		tcelasticsearch.WithPassword("auditlens"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start elasticsearch container")

	cfg := config.ElasticsearchConfig{
		Addresses: []string{container.Settings.Address},
		Username:  "elastic",
		Password:  container.Settings.Password,
	}
	if len(container.Settings.CACert) > 0 {
		caPath := filepath.Join(t.TempDir(), "ca.crt")
		require.NoError(t, os.WriteFile(caPath, container.Settings.CACert, 0o600))
		cfg.CACertPath = caPath
	}
	client, err := NewClient(cfg, metrics.New(nil))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx))
	require.NoError(t, client.EnsureIndices(ctx, map[model.RecordKind]string{
		model.KindMethod:  methodIndex,
		model.KindRequest: requestIndex,
	}))
	return client
}

// load indexes payload through a RecordIndexer and waits until it is searchable.
func load(t *testing.T, c *Client, kind model.RecordKind, index, payload string) {
	t.Helper()
	ctx := context.Background()
	idx, err := NewRecordIndexer(c, kind, index, DefaultIndexerConfig(), zerolog.Nop(), nil)
	require.NoError(t, err)
	_, err = idx.Insert(ctx, []byte(payload))
	require.NoError(t, err)
	require.NoError(t, idx.Close(ctx))
	require.Zero(t, idx.Stats().NumFailed)
	require.NoError(t, c.Refresh(ctx, index))
}

func methodIDs(records []model.MethodRecord) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	sort.Strings(ids)
	return ids
}

func statsMap(s *model.Stats) map[string]int64 {
	out := make(map[string]int64, s.Len())
	for pair := s.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value
	}
	return out
}

func TestIntegration_AuditScenarios(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	client := setupCluster(t)
	ctx := context.Background()

	load(t, client, model.KindMethod, methodIndex, `[
		{"id":"1","timestamp":"2024-01-01 10:00:00.000","logLevel":"INFO","correlationId":"a","methodName":"saveContractor","logType":"START"},
		{"id":"2","timestamp":"2024-01-01 10:00:01.000","logLevel":"INFO","correlationId":"a","methodName":"saveContractor","logType":"END","result":"ok"},
		{"id":"3","timestamp":"2024-01-02 09:00:00.000","logLevel":"DEBUG","correlationId":"b","methodName":"deleteContractor","logType":"START"},
		{"id":"4","timestamp":"2024-01-02 09:00:02.000","logLevel":"DEBUG","correlationId":"b","methodName":"deleteContractor","logType":"END"}
	]`)
	load(t, client, model.KindRequest, requestIndex, `[
		{"id":"r1","requestType":"Incoming","method":"POST","statusCode":"201","path":"/api/contractors"},
		{"id":"r2","requestType":"Incoming","method":"DELETE","statusCode":"204","path":"/api/contractors/7"},
		{"id":"r3","requestType":"Incoming","method":"GET","statusCode":"200","path":"/api/contractors"},
		{"id":"r4","requestType":"Outcoming","method":"GET","statusCode":"200","path":"/billing"},
		{"id":"r5","requestType":"Outcoming","method":"GET","statusCode":"210","path":"/billing"}
	]`)

	methods := search.NewMethodService(client, search.Settings{Index: methodIndex, BucketSize: 10})
	requests := search.NewRequestService(client, search.Settings{Index: requestIndex, BucketSize: 10})

	t.Run("search by method name", func(t *testing.T) {
		got, err := methods.Search(ctx, "deleteContractor", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"3", "4"}, methodIDs(got))

		again, err := methods.Search(ctx, "deleteContractor", "")
		require.NoError(t, err)
		assert.Equal(t, methodIDs(got), methodIDs(again))
	})

	t.Run("find by fields is conjunctive", func(t *testing.T) {
		all, err := methods.FindByFields(ctx, "saveContractor", "", "")
		require.NoError(t, err)
		narrowed, err := methods.FindByFields(ctx, "saveContractor", "", "END")
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2"}, methodIDs(all))
		assert.Equal(t, []string{"2"}, methodIDs(narrowed))
	})

	t.Run("stats by level", func(t *testing.T) {
		stats, err := methods.Stats(ctx, "level", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"INFO": 2, "DEBUG": 2}, statsMap(stats))

		from := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		stats, err = methods.Stats(ctx, "level", &from, nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"DEBUG": 2}, statsMap(stats))
	})

	t.Run("date bounds are inclusive", func(t *testing.T) {
		first := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
		second := time.Date(2024, 1, 1, 10, 0, 1, 0, time.UTC)
		third := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

		stats, err := methods.Stats(ctx, "level", &third, nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"DEBUG": 2}, statsMap(stats))

		stats, err = methods.Stats(ctx, "level", nil, &second)
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"INFO": 2}, statsMap(stats))

		stats, err = methods.Stats(ctx, "level", &first, &first)
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"INFO": 1}, statsMap(stats))
	})

	t.Run("request stats by status code", func(t *testing.T) {
		stats, err := requests.Stats(ctx, "statusCode", "")
		require.NoError(t, err)
		got := statsMap(stats)
		assert.Len(t, got, 4)
		assert.Equal(t, int64(2), got["200"])

		stats, err = requests.Stats(ctx, "statusCode", "Outcoming")
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"200": 1, "210": 1}, statsMap(stats))
	})
}
