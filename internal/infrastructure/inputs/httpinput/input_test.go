package httpinput

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akave-ai/auditlens/internal/infrastructure/inputs"
)

type memBuffer struct {
	mu   sync.Mutex
	msgs [][]byte
	err  error
}

func (b *memBuffer) Insert(_ context.Context, p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return 0, b.err
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	b.msgs = append(b.msgs, cp)
	return 1, nil
}

func (b *memBuffer) Last() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.msgs) == 0 {
		return nil
	}
	return b.msgs[len(b.msgs)-1]
}

func TestHTTPInput_InsertsBodyIntoBuffer(t *testing.T) {
	reg := inputs.NewRegistry()
	reg.Register(&Factory{})

	buf := &memBuffer{}
	mux := http.NewServeMux()
	specs := []inputs.InputSpec{
		{Type: "http", Kind: "method", Description: "methods", Config: inputs.Config{"base_path": "/ingest"}},
	}
	started, err := reg.MountHTTPEndpoints(mux.Handle, specs, func(inputs.InputSpec) (inputs.InputBuffer, error) {
		return buf, nil
	})
	require.NoError(t, err)
	require.Len(t, started, 1)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	body := []byte(`{"methodName":"saveContractor","logLevel":"INFO"}`)
	resp, err := http.Post(srv.URL+"/ingest/methods", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	var out map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 1, out["accepted"])
	assert.Equal(t, body, buf.Last())
}

func TestHTTPInput_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
		buffer *memBuffer
		status int
	}{
		{name: "empty body", method: http.MethodPost, body: "  ", buffer: &memBuffer{}, status: http.StatusBadRequest},
		{name: "wrong method", method: http.MethodGet, buffer: &memBuffer{}, status: http.StatusMethodNotAllowed},
		{name: "buffer rejects", method: http.MethodPost, body: `{"x":`, buffer: &memBuffer{err: errors.New("decode record: unexpected EOF")}, status: http.StatusBadRequest},
		{name: "too large", method: http.MethodPost, body: strings.Repeat("a", 64), buffer: &memBuffer{}, status: http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := NewInput("/ingest", "requests", tt.buffer, "")
			in.maxBody = 32

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, "/ingest/requests", strings.NewReader(tt.body))
			in.Handler().ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Nil(t, tt.buffer.Last())
		})
	}
}

func TestFactory_ValidateConfig(t *testing.T) {
	f := &Factory{}
	assert.NoError(t, f.ValidateConfig(inputs.Config{"description": "m", "kind": "method"}))
	assert.NoError(t, f.ValidateConfig(inputs.Config{"description": "r", "kind": "requests"}))
	assert.Error(t, f.ValidateConfig(inputs.Config{"kind": "method"}))
	assert.Error(t, f.ValidateConfig(inputs.Config{"description": "m"}))
	assert.Error(t, f.ValidateConfig(inputs.Config{"description": "m", "kind": "metrics"}))
	assert.Error(t, f.ValidateConfig(inputs.Config{"description": "m", "kind": "method", "max_body_bytes": float64(0)}))
}

func TestFactory_Create(t *testing.T) {
	f := &Factory{}
	in, err := f.Create(inputs.Config{
		"description":    "/methods/",
		"kind":           "method",
		"max_body_bytes": float64(1024),
	}, &memBuffer{})
	require.NoError(t, err)

	ep, ok := in.(inputs.HTTPEndpointInput)
	require.True(t, ok)
	assert.Equal(t, "/inputs/methods", ep.Path())
	assert.Empty(t, ep.ListenAddr())
	assert.Equal(t, int64(1024), in.(*Input).maxBody)
}

func TestHTTPInput_DedicatedListener(t *testing.T) {
	in := NewInput("/ingest", "methods", &memBuffer{}, "127.0.0.1:0")
	require.NoError(t, in.Start())
	assert.NoError(t, in.Stop())
	assert.NoError(t, in.Stop())
}

func TestRegisteredGlobally(t *testing.T) {
	_, ok := inputs.GlobalRegistry.GetTypeInfo("http")
	assert.True(t, ok)
}
