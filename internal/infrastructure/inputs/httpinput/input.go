package httpinput

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/akave-ai/auditlens/internal/infrastructure/inputs"
)

const maxLoggedBody = 2048

// Input is an HTTP ingest endpoint that hands request bodies to an InputBuffer.
// It does not depend on the backend (database, handler, etc.).
type Input struct {
	path       string
	listenAddr string
	maxBody    int64
	buffer     inputs.InputBuffer

	mu     sync.Mutex
	server *http.Server
}

// NewInput creates an HTTP input. listenAddr is optional; if set, Start() binds to that address.
func NewInput(
	basePath string,
	description string,
	buffer inputs.InputBuffer,
	listenAddr string,
) *Input {
	basePath = "/" + strings.Trim(strings.TrimSpace(basePath), "/")
	desc := strings.Trim(strings.TrimSpace(description), "/")
	return &Input{
		path:       strings.TrimSuffix(basePath, "/") + "/" + desc,
		listenAddr: listenAddr,
		maxBody:    defaultMaxBodyBytes,
		buffer:     buffer,
	}
}

func (i *Input) Path() string       { return i.path }
func (i *Input) ListenAddr() string { return i.listenAddr }

func (i *Input) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := zerolog.Ctx(r.Context())
		if r.Method != http.MethodPost && r.Method != http.MethodPut {
			w.Header().Set("Allow", "POST, PUT")
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, i.maxBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "body too large"})
				return
			}
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read error"})
			return
		}
		if len(bytes.TrimSpace(body)) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty body"})
			return
		}
		if e := log.Trace(); e.Enabled() {
			preview := string(body)
			if len(preview) > maxLoggedBody {
				preview = preview[:maxLoggedBody] + "..."
			}
			e.Str("path", i.path).Str("body", preview).Msg("ingest payload")
		}

		n, err := i.buffer.Insert(r.Context(), body)
		if err != nil {
			log.Warn().Err(err).Str("path", i.path).Int("bytes", len(body)).Msg("ingest payload rejected")
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Debug().Str("path", i.path).Int("records", n).Int("bytes", len(body)).Msg("ingest accepted")
		writeJSON(w, http.StatusAccepted, map[string]int{"accepted": n})
	})
}

// Start binds the dedicated listener, if any. Bind errors are returned.
func (i *Input) Start() error {
	if i.listenAddr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", i.listenAddr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: i.withLogger(i.Handler())}
	i.mu.Lock()
	i.server = srv
	i.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error().Err(err).Str("listen", i.listenAddr).Msg("ingest listener stopped")
		}
	}()
	zlog.Info().Str("listen", ln.Addr().String()).Str("path", i.path).Msg("ingest listener started")
	return nil
}

func (i *Input) Stop() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.server == nil {
		return nil
	}
	err := i.server.Close()
	i.server = nil
	return err
}

// withLogger gives requests on a dedicated listener the global logger.
func (i *Input) withLogger(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r.WithContext(zlog.Logger.WithContext(r.Context())))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
