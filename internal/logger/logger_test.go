package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akave-ai/auditlens/internal/config"
)

func TestNewWithWriter_JSON(t *testing.T) {
	cfg := config.DefaultObservabilityConfig()
	cfg.ServiceName = "auditlens"
	cfg.Environment = "test"
	cfg.Logging.Level = "warn"

	var buf bytes.Buffer
	log := NewWithWriter(cfg, &buf)
	log.Info().Msg("dropped")
	log.Warn().Str("index", "audit-methods").Msg("kept")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "auditlens", entry["service"])
	assert.Equal(t, "test", entry["environment"])
	assert.Equal(t, "audit-methods", entry["index"])
}

func TestNewRelic_DisabledWithoutLicense(t *testing.T) {
	cfg := config.DefaultObservabilityConfig()
	cfg.ServiceName = "auditlens"

	app, err := NewRelic(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, app)
}
