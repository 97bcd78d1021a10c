package search

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type searchCall struct {
	Index string
	Query Query
}

type aggregateCall struct {
	Index string
	Query Query
	Agg   TermsAggregation
}

// fakeEngine records calls and returns canned results.
type fakeEngine struct {
	mu         sync.Mutex
	searches   []searchCall
	aggregates []aggregateCall

	hits    []Hit
	aggResp *AggregateResponse
	err     error
}

func (f *fakeEngine) Search(_ context.Context, index string, q Query) ([]Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, searchCall{Index: index, Query: q})
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func (f *fakeEngine) Aggregate(_ context.Context, index string, q Query, agg TermsAggregation) (*AggregateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aggregates = append(f.aggregates, aggregateCall{Index: index, Query: q, Agg: agg})
	if f.err != nil {
		return nil, f.err
	}
	return f.aggResp, nil
}

func (f *fakeEngine) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searches) + len(f.aggregates)
}

func hit(t *testing.T, id string, doc any) Hit {
	t.Helper()
	src, err := json.Marshal(doc)
	require.NoError(t, err)
	return Hit{ID: id, Source: src}
}

// toJSON renders a query the way it is sent, so assertions compare wire shape.
func toJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func termsResponse(buckets string) *AggregateResponse {
	return &AggregateResponse{Aggregations: []byte(`{"stats_agg":{"doc_count_error_upper_bound":0,"sum_other_doc_count":0,"buckets":` + buckets + `}}`)}
}
