package search

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/akave-ai/auditlens/internal/model"
)

// Settings configures one per-kind service.
type Settings struct {
	Index      string
	BucketSize int // terms aggregation size; 0 leaves the engine default
}

// MethodService searches and aggregates method-call audit records.
// It holds no mutable state and is safe for concurrent use.
type MethodService struct {
	engine   Engine
	settings Settings
	groups   GroupFields
}

// NewMethodService returns a MethodService querying settings.Index through engine.
func NewMethodService(engine Engine, settings Settings) *MethodService {
	return &MethodService{engine: engine, settings: settings, groups: methodGroupFields}
}

// buildMethodSearchQuery matches query against the method name, arguments
// and result (any of them) and, when level is set, requires that level.
func buildMethodSearchQuery(query, level string) Query {
	var clauses []Query
	if hasText(query) {
		clauses = append(clauses, AnyOf(
			Match(fieldMethodName, query),
			Match(fieldMethodArgs, query),
			Match(fieldMethodResult, query),
		))
	}
	if hasText(level) {
		clauses = append(clauses, Term(fieldLogLevel, level))
	}
	return AllOf(clauses...)
}

// buildMethodFieldQuery requires every supplied filter.
func buildMethodFieldQuery(methodName, level, eventType string) Query {
	var clauses []Query
	if hasText(methodName) {
		clauses = append(clauses, Contains(fieldMethodName, methodName))
	}
	if hasText(level) {
		clauses = append(clauses, Term(fieldLogLevel, level))
	}
	if hasText(eventType) {
		clauses = append(clauses, Contains(fieldEventType, eventType))
	}
	return AllOf(clauses...)
}

// Search runs a full-text search over method records, optionally filtered
// by log level. With neither parameter it returns an empty list without
// querying the engine.
func (s *MethodService) Search(ctx context.Context, query, level string) ([]model.MethodRecord, error) {
	q := buildMethodSearchQuery(query, level)
	if q == nil {
		zerolog.Ctx(ctx).Debug().Msg("method search: no filters, skipping engine")
		return []model.MethodRecord{}, nil
	}
	return s.find(ctx, "search", q)
}

// FindByFields returns the method records matching all supplied filters.
func (s *MethodService) FindByFields(ctx context.Context, methodName, level, eventType string) ([]model.MethodRecord, error) {
	q := buildMethodFieldQuery(methodName, level, eventType)
	if q == nil {
		zerolog.Ctx(ctx).Debug().Msg("method find: no filters, skipping engine")
		return []model.MethodRecord{}, nil
	}
	return s.find(ctx, "find", q)
}

func (s *MethodService) find(ctx context.Context, op string, q Query) ([]model.MethodRecord, error) {
	hits, err := s.engine.Search(ctx, s.settings.Index, q)
	if err != nil {
		return nil, wrapEngineError(op, s.settings.Index, err)
	}
	return decodeHits(hits, func(r *model.MethodRecord, id string) {
		if r.ID == "" {
			r.ID = id
		}
	})
}

// Stats counts method records per distinct value of the field behind
// groupBy ("method" or "level"), optionally limited to timestamps within
// [from, to]. Unknown group-by keys give an empty result.
func (s *MethodService) Stats(ctx context.Context, groupBy string, from, to *time.Time) (*model.Stats, error) {
	field, ok := s.groups.Resolve(groupBy)
	if !ok {
		zerolog.Ctx(ctx).Debug().Str("group_by", groupBy).Msg("method stats: unknown group-by")
		return model.NewStats(), nil
	}
	agg := TermsAggregation{Name: StatsAggregation, Field: field, Size: s.settings.BucketSize}
	resp, err := s.engine.Aggregate(ctx, s.settings.Index, DateRange(fieldTimestamp, from, to), agg)
	if err != nil {
		return nil, wrapEngineError("stats", s.settings.Index, err)
	}
	if resp == nil {
		return model.NewStats(), nil
	}
	return toStats(extractTerms(resp.Aggregations, StatsAggregation)), nil
}
