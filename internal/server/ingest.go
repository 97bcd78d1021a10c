package server

import (
	"net/http"
	"sort"
	"strings"
	"sync"
)

// IngestDispatcher routes /ingest/<path> to mounted input handlers.
// Handlers are registered by path segment (e.g. "methods" or "/methods").
type IngestDispatcher struct {
	mu       sync.RWMutex
	handlers map[string]http.Handler
}

func NewIngestDispatcher() *IngestDispatcher {
	return &IngestDispatcher{
		handlers: make(map[string]http.Handler),
	}
}

func normalizePath(path string) string {
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return "/"
	}
	if path[0] != '/' {
		path = "/" + path
	}
	return path
}

// Mount registers a handler for path, replacing any previous one.
func (d *IngestDispatcher) Mount(path string, h http.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[normalizePath(path)] = h
}

// Unmount removes the handler for path; unknown paths are ignored.
func (d *IngestDispatcher) Unmount(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, normalizePath(path))
}

func (d *IngestDispatcher) Mounted(path string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[normalizePath(path)]
	return ok
}

// Paths lists the mounted paths with their /ingest prefix, sorted.
func (d *IngestDispatcher) Paths() []string {
	d.mu.RLock()
	out := make([]string, 0, len(d.handlers))
	for p := range d.handlers {
		out = append(out, "/ingest"+p)
	}
	d.mu.RUnlock()
	sort.Strings(out)
	return out
}

// ServeHTTP strips the /ingest prefix and dispatches to the mounted handler.
func (d *IngestDispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := normalizePath(strings.TrimPrefix(r.URL.Path, "/ingest"))
	d.mu.RLock()
	h, ok := d.handlers[path]
	d.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	h.ServeHTTP(w, r)
}
