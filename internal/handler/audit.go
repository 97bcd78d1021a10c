package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/akave-ai/auditlens/internal/model"
	"github.com/akave-ai/auditlens/internal/response"
	"github.com/akave-ai/auditlens/internal/search"
)

// MethodAudit is the method-record query surface (search.MethodService).
type MethodAudit interface {
	Search(ctx context.Context, query, level string) ([]model.MethodRecord, error)
	FindByFields(ctx context.Context, methodName, level, eventType string) ([]model.MethodRecord, error)
	Stats(ctx context.Context, groupBy string, from, to *time.Time) (*model.Stats, error)
}

// RequestAudit is the request-record query surface (search.RequestService).
type RequestAudit interface {
	Search(ctx context.Context, query, statusCode string) ([]model.RequestRecord, error)
	FindByFields(ctx context.Context, url, method, statusCode string) ([]model.RequestRecord, error)
	Stats(ctx context.Context, groupBy, direction string) (*model.Stats, error)
}

// AuditHandler serves /api/audit/methods and /api/audit/requests.
type AuditHandler struct {
	Methods  MethodAudit
	Requests RequestAudit
	// FailSoftMethodSearch answers failed method searches with an empty list.
	FailSoftMethodSearch bool
}

type methodSearchParams struct {
	Query string `query:"query" validate:"max=1024"`
	Level string `query:"level" validate:"max=32"`
}

type methodFindParams struct {
	Method    string `query:"method" validate:"max=512"`
	Level     string `query:"level" validate:"max=32"`
	EventType string `query:"eventType" validate:"max=32"`
}

type methodStatsParams struct {
	GroupBy string `query:"groupBy" validate:"required,max=64"`
	From    string `query:"from"`
	To      string `query:"to"`
}

type requestSearchParams struct {
	Query      string `query:"query" validate:"max=1024"`
	StatusCode string `query:"statusCode" validate:"max=16"`
}

type requestFindParams struct {
	URL        string `query:"url" validate:"max=2048"`
	Method     string `query:"method" validate:"max=16"`
	StatusCode string `query:"statusCode" validate:"max=16"`
}

type requestStatsParams struct {
	GroupBy   string `query:"groupBy" validate:"max=64"`
	Direction string `query:"direction" validate:"max=32"`
}

func bindParams(c echo.Context, p any) error {
	if err := c.Bind(p); err != nil {
		return err
	}
	return c.Validate(p)
}

// SearchMethods handles GET /api/audit/methods/search.
func (h *AuditHandler) SearchMethods(c echo.Context) error {
	var p methodSearchParams
	if err := bindParams(c, &p); err != nil {
		return response.BadRequest(c, "invalid query parameters", err.Error())
	}
	ctx := c.Request().Context()
	list, err := h.Methods.Search(ctx, p.Query, p.Level)
	if err != nil {
		var engineErr *search.EngineError
		if h.FailSoftMethodSearch && errors.As(err, &engineErr) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("query", p.Query).Msg("method search failed, answering empty")
			return response.Results[model.MethodRecord](c, nil, "")
		}
		return h.queryFailed(c, err)
	}
	return response.Results(c, list, "")
}

// FindMethods handles GET /api/audit/methods.
func (h *AuditHandler) FindMethods(c echo.Context) error {
	var p methodFindParams
	if err := bindParams(c, &p); err != nil {
		return response.BadRequest(c, "invalid query parameters", err.Error())
	}
	list, err := h.Methods.FindByFields(c.Request().Context(), p.Method, p.Level, p.EventType)
	if err != nil {
		return h.queryFailed(c, err)
	}
	return response.Results(c, list, "")
}

// MethodStats handles GET /api/audit/methods/stats.
func (h *AuditHandler) MethodStats(c echo.Context) error {
	var p methodStatsParams
	if err := bindParams(c, &p); err != nil {
		return response.BadRequest(c, "invalid query parameters", err.Error())
	}
	from, err := parseBound("from", p.From)
	if err != nil {
		return response.BadRequest(c, "invalid date range", err.Error())
	}
	to, err := parseBound("to", p.To)
	if err != nil {
		return response.BadRequest(c, "invalid date range", err.Error())
	}
	stats, err := h.Methods.Stats(c.Request().Context(), p.GroupBy, from, to)
	if err != nil {
		return h.queryFailed(c, err)
	}
	return response.Stats(c, stats, "")
}

// SearchRequests handles GET /api/audit/requests/search.
func (h *AuditHandler) SearchRequests(c echo.Context) error {
	var p requestSearchParams
	if err := bindParams(c, &p); err != nil {
		return response.BadRequest(c, "invalid query parameters", err.Error())
	}
	list, err := h.Requests.Search(c.Request().Context(), p.Query, p.StatusCode)
	if err != nil {
		return h.queryFailed(c, err)
	}
	return response.Results(c, list, "")
}

// FindRequests handles GET /api/audit/requests.
func (h *AuditHandler) FindRequests(c echo.Context) error {
	var p requestFindParams
	if err := bindParams(c, &p); err != nil {
		return response.BadRequest(c, "invalid query parameters", err.Error())
	}
	list, err := h.Requests.FindByFields(c.Request().Context(), p.URL, p.Method, p.StatusCode)
	if err != nil {
		return h.queryFailed(c, err)
	}
	return response.Results(c, list, "")
}

// RequestStats handles GET /api/audit/requests/stats.
func (h *AuditHandler) RequestStats(c echo.Context) error {
	var p requestStatsParams
	if err := bindParams(c, &p); err != nil {
		return response.BadRequest(c, "invalid query parameters", err.Error())
	}
	stats, err := h.Requests.Stats(c.Request().Context(), p.GroupBy, p.Direction)
	if err != nil {
		return h.queryFailed(c, err)
	}
	return response.Stats(c, stats, "")
}

// GroupKeys handles GET /api/audit/groups and lists the accepted groupBy values.
func (h *AuditHandler) GroupKeys(c echo.Context) error {
	return response.OK(c, map[string][]string{
		"methods":  search.MethodGroupKeys(),
		"requests": search.RequestGroupKeys(),
	}, "")
}

func (h *AuditHandler) queryFailed(c echo.Context, err error) error {
	zerolog.Ctx(c.Request().Context()).Error().Err(err).Str("route", c.Path()).Msg("audit query failed")
	var ee *search.EngineError
	if errors.As(err, &ee) {
		return response.BadGateway(c, "search engine request failed", err.Error())
	}
	return response.InternalError(c, "audit query failed", err.Error())
}

func parseBound(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	ts, err := model.ParseTimestamp(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	t := ts.Time
	return &t, nil
}
