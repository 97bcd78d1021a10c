// Package search turns optional audit filters into Elasticsearch queries and
// terms aggregations, and maps the results back to audit records and stats.
package search

import (
	"context"
	"fmt"
)

// Engine is the part of the document search engine this package consumes.
// Implementations must be safe for concurrent use.
type Engine interface {
	// Search returns the documents matching query in engine order.
	Search(ctx context.Context, index string, query Query) ([]Hit, error)
	// Aggregate runs agg over the documents matching query (nil = all).
	Aggregate(ctx context.Context, index string, query Query, agg TermsAggregation) (*AggregateResponse, error)
}

// Hit is one matched document.
type Hit struct {
	ID     string
	Source []byte
}

// AggregateResponse carries the raw "aggregations" object of a search
// response. Aggregations is nil when the engine returned none.
type AggregateResponse struct {
	Hits         []Hit
	Aggregations []byte
}

// EngineError wraps a failure reported by the engine or its transport.
type EngineError struct {
	Op    string
	Index string
	Err   error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Index, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }
