package search

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/akave-ai/auditlens/internal/model"
)

// RequestService searches and aggregates HTTP request audit records.
type RequestService struct {
	engine   Engine
	settings Settings
	groups   GroupFields
}

func NewRequestService(engine Engine, settings Settings) *RequestService {
	return &RequestService{engine: engine, settings: settings, groups: requestGroupFields}
}

func buildRequestSearchQuery(query, statusCode string) Query {
	var clauses []Query
	if hasText(query) {
		clauses = append(clauses, MultiMatch(query, fieldPath, fieldRequestBody))
	}
	if hasText(statusCode) {
		clauses = append(clauses, Term(fieldStatusCode, statusCode))
	}
	return AllOf(clauses...)
}

func buildRequestFieldQuery(url, method, statusCode string) Query {
	var clauses []Query
	if hasText(url) {
		clauses = append(clauses, Match(fieldPath, url))
	}
	if hasText(method) {
		clauses = append(clauses, Term(fieldHTTPMethod, method))
	}
	if hasText(statusCode) {
		clauses = append(clauses, Term(fieldStatusCode, statusCode))
	}
	return AllOf(clauses...)
}

// Search matches query against path and request body and/or filters by
// status code.
func (s *RequestService) Search(ctx context.Context, query, statusCode string) ([]model.RequestRecord, error) {
	q := buildRequestSearchQuery(query, statusCode)
	if q == nil {
		zerolog.Ctx(ctx).Debug().Msg("request search: no filters, skipping engine")
		return []model.RequestRecord{}, nil
	}
	return s.find(ctx, "search", q)
}

// FindByFields returns the request records matching all supplied filters.
func (s *RequestService) FindByFields(ctx context.Context, url, method, statusCode string) ([]model.RequestRecord, error) {
	q := buildRequestFieldQuery(url, method, statusCode)
	if q == nil {
		zerolog.Ctx(ctx).Debug().Msg("request find: no filters, skipping engine")
		return []model.RequestRecord{}, nil
	}
	return s.find(ctx, "find", q)
}

func (s *RequestService) find(ctx context.Context, op string, q Query) ([]model.RequestRecord, error) {
	hits, err := s.engine.Search(ctx, s.settings.Index, q)
	if err != nil {
		return nil, wrapEngineError(op, s.settings.Index, err)
	}
	return decodeHits(hits, func(r *model.RequestRecord, id string) {
		if r.ID == "" {
			r.ID = id
		}
	})
}

// Stats counts request records per status code, HTTP method or URL,
// optionally only those of one direction.
func (s *RequestService) Stats(ctx context.Context, groupBy, direction string) (*model.Stats, error) {
	if !hasText(groupBy) && !hasText(direction) {
		return model.NewStats(), nil
	}
	field, ok := s.groups.Resolve(groupBy)
	if !ok {
		zerolog.Ctx(ctx).Debug().Str("group_by", groupBy).Msg("request stats: unknown group-by")
		return model.NewStats(), nil
	}
	var scope Query
	if hasText(direction) {
		scope = Term(fieldDirection, direction)
	}
	agg := TermsAggregation{Name: StatsAggregation, Field: field, Size: s.settings.BucketSize}
	resp, err := s.engine.Aggregate(ctx, s.settings.Index, scope, agg)
	if err != nil {
		return nil, wrapEngineError("stats", s.settings.Index, err)
	}
	if resp == nil {
		return model.NewStats(), nil
	}
	return toStats(extractTerms(resp.Aggregations, StatsAggregation)), nil
}
