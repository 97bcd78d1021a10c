package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/akave-ai/auditlens/internal/config"
	"github.com/akave-ai/auditlens/internal/handler"
	"github.com/akave-ai/auditlens/internal/infrastructure/inputs"
	_ "github.com/akave-ai/auditlens/internal/infrastructure/inputs/httpinput"
	"github.com/akave-ai/auditlens/internal/metrics"
	"github.com/akave-ai/auditlens/internal/model"
	"github.com/akave-ai/auditlens/internal/response"
)

const shutdownTimeout = 30 * time.Second

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Deps are the collaborators the server routes to.
type Deps struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Methods  handler.MethodAudit
	Requests handler.RequestAudit
	// Buffers receive ingested payloads, one per record kind.
	Buffers  map[model.RecordKind]inputs.InputBuffer
	Store    handler.InputStore
	Registry *inputs.Registry
	Metrics  *metrics.Metrics
	NewRelic *newrelic.Application
	Checks   map[string]ReadinessCheck
	// Closers run after the HTTP server stopped, in order (e.g. indexer flushes).
	Closers []func(context.Context) error
}

// Server holds the Echo app and dependencies.
type Server struct {
	Echo    *echo.Echo
	Config  *config.Config
	log     zerolog.Logger
	inputs  *handler.InputHandler
	ingest  *IngestDispatcher
	static  []inputs.MessageInput
	closers []func(context.Context) error

	shutdownOnce sync.Once
	shutdownErr  error
}

// New builds the Echo server, registers routes and starts stored inputs.
func New(ctx context.Context, d Deps) (*Server, error) {
	cfg := d.Config
	if d.Registry == nil {
		d.Registry = inputs.GlobalRegistry
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New(nil)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = response.HTTPErrorHandler
	e.Use(middleware.RequestID(), requestObserver(d.Logger, d.Metrics), middleware.Recover())
	if len(cfg.Server.CORSAllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: cfg.Server.CORSAllowedOrigins}))
	}
	if d.NewRelic != nil {
		e.Use(newRelicTransactions(d.NewRelic))
	}

	ingestD := NewIngestDispatcher()
	ctx = d.Logger.WithContext(ctx)

	var static []inputs.MessageInput
	if cfg.Ingest.DefaultEndpoints {
		started, err := d.Registry.MountHTTPEndpoints(
			func(path string, h http.Handler) { ingestD.Mount(ingestPath(path), h) },
			defaultIngestSpecs(cfg.Ingest),
			func(spec inputs.InputSpec) (inputs.InputBuffer, error) {
				kind, err := model.ParseRecordKind(spec.Kind)
				if err != nil {
					return nil, err
				}
				buf, ok := d.Buffers[kind]
				if !ok {
					return nil, fmt.Errorf("no buffer for record kind %q", kind)
				}
				return buf, nil
			},
		)
		if err != nil {
			stopAll(started)
			return nil, fmt.Errorf("mount default ingest endpoints: %w", err)
		}
		static = started
	}

	inputHandler := &handler.InputHandler{
		Registry:      d.Registry,
		Buffers:       d.Buffers,
		Store:         d.Store,
		MountIngest:   ingestD.Mount,
		UnmountIngest: ingestD.Unmount,
		IsMounted:     ingestD.Mounted,
	}
	auditHandler := &handler.AuditHandler{
		Methods:              d.Methods,
		Requests:             d.Requests,
		FailSoftMethodSearch: cfg.Search.FailSoftMethodSearch,
	}

	// Operational
	e.GET("/healthz", func(c echo.Context) error {
		return response.OK(c, map[string]string{"status": "ok"}, "")
	})
	e.GET("/readyz", readiness(d.Checks, time.Duration(cfg.Observability.HealthCheck.TimeoutSeconds)*time.Second))
	e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))

	// Audit queries
	api := e.Group("/api/audit")
	api.GET("/methods/search", auditHandler.SearchMethods)
	api.GET("/methods/stats", auditHandler.MethodStats)
	api.GET("/methods", auditHandler.FindMethods)
	api.GET("/requests/search", auditHandler.SearchRequests)
	api.GET("/requests/stats", auditHandler.RequestStats)
	api.GET("/requests", auditHandler.FindRequests)
	api.GET("/groups", auditHandler.GroupKeys)

	// Input management
	e.GET("/inputs/types", inputHandler.ListTypes)
	e.GET("/inputs/types/:type", inputHandler.GetTypeInfo)
	e.GET("/inputs/info", inputHandler.GetAllTypesInfo)
	e.GET("/inputs", inputHandler.ListInputs)
	e.POST("/inputs", inputHandler.CreateInput)
	e.PUT("/inputs/:id", inputHandler.UpdateInput)
	e.DELETE("/inputs/:id", inputHandler.DeleteInput)

	// Ingest: GET lists mounted endpoints; everything else dispatches by path
	e.GET("/ingest", func(c echo.Context) error {
		return response.OK(c, map[string]any{"endpoints": ingestD.Paths()}, "")
	})
	e.Any("/ingest/*", echo.WrapHandler(ingestD))

	inputHandler.RestoreInputs(ctx)

	d.Logger.Info().
		Strs("input_types", d.Registry.ListRegistered()).
		Strs("ingest_endpoints", ingestD.Paths()).
		Msg("server ready")

	return &Server{
		Echo:    e,
		Config:  cfg,
		log:     d.Logger,
		inputs:  inputHandler,
		ingest:  ingestD,
		static:  static,
		closers: d.Closers,
	}, nil
}

func defaultIngestSpecs(cfg config.IngestConfig) []inputs.InputSpec {
	specs := make([]inputs.InputSpec, 0, 2)
	for _, kind := range []model.RecordKind{model.KindMethod, model.KindRequest} {
		specs = append(specs, inputs.InputSpec{
			Type:        "http",
			Kind:        string(kind),
			Description: string(kind) + "s",
			Config: inputs.Config{
				"base_path":      "/ingest",
				"max_body_bytes": float64(cfg.MaxBodyBytes),
			},
		})
	}
	return specs
}

func ingestPath(p string) string {
	return normalizePath(strings.TrimPrefix(p, "/ingest"))
}

func readiness(checks map[string]ReadinessCheck, timeout time.Duration) echo.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		status := make(map[string]string, len(names))
		var failed []string
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				status[name] = err.Error()
				failed = append(failed, name)
				continue
			}
			status[name] = "ok"
		}
		if len(failed) > 0 {
			zerolog.Ctx(c.Request().Context()).Warn().Strs("failed", failed).Msg("not ready")
			return c.JSON(http.StatusServiceUnavailable, response.APIResponse{
				Data:    map[string]any{"checks": status},
				Status:  http.StatusServiceUnavailable,
				Message: "not ready",
				Path:    c.Request().URL.Path,
			})
		}
		return response.OK(c, map[string]any{"checks": status}, "")
	}
}

// Start starts the HTTP server. Blocks until the context is cancelled or the
// server fails, and returns only after Shutdown has finished, so queued
// records are flushed before the caller exits.
func (s *Server) Start(ctx context.Context) error {
	addr := ":" + s.Config.Server.Port
	s.Echo.Server.ReadTimeout = time.Duration(s.Config.Server.ReadTimeout) * time.Second
	s.Echo.Server.WriteTimeout = time.Duration(s.Config.Server.WriteTimeout) * time.Second
	s.Echo.Server.IdleTimeout = time.Duration(s.Config.Server.IdleTimeout) * time.Second

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = s.Shutdown(shutdownCtx)
		case <-done:
		}
	}()
	defer close(done)

	s.log.Info().Str("addr", addr).Msg("http server listening")
	serveErr := s.Echo.Start(addr)
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}

	// Echo.Start returns once the listener closes; this call blocks until a
	// shutdown already started above has run its closers.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(serveErr, s.Shutdown(shutdownCtx))
}

// Shutdown stops inputs, drains HTTP connections, then runs the closers.
// Only the first call does the work.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.inputs.StopAll()
		stopAll(s.static)
		var errs []error
		if err := s.Echo.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		for _, closeFn := range s.closers {
			if err := closeFn(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		s.shutdownErr = errors.Join(errs...)
		s.log.Info().Err(s.shutdownErr).Msg("server stopped")
	})
	return s.shutdownErr
}

func stopAll(list []inputs.MessageInput) {
	for _, in := range list {
		_ = in.Stop()
	}
}
