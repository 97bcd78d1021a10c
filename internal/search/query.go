package search

import (
	"strings"
	"time"

	"github.com/akave-ai/auditlens/internal/model"
)

// Query is one node of the Elasticsearch query DSL.
type Query map[string]any

// rangeFormat is the engine-side pattern matching model.TimestampLayout.
const rangeFormat = "yyyy-MM-dd HH:mm:ss.SSS"

// hasText reports whether s contains anything other than whitespace.
func hasText(s string) bool {
	return strings.TrimSpace(s) != ""
}

// Match is an analyzed full-text match; any token may match.
func Match(field, text string) Query {
	return Query{"match": map[string]any{
		field: map[string]any{"query": text, "operator": "or"},
	}}
}

// MultiMatch runs one analyzed match over several fields.
func MultiMatch(text string, fields ...string) Query {
	return Query{"multi_match": map[string]any{
		"query":  text,
		"fields": fields,
	}}
}

// Term is an exact comparison against the stored, un-analyzed value.
func Term(field, value string) Query {
	return Query{"term": map[string]any{
		field: map[string]any{"value": value},
	}}
}

// Contains matches documents whose field has value as a substring.
func Contains(field, value string) Query {
	return Query{"query_string": map[string]any{
		"default_field":    field,
		"query":            "*" + escapeQueryString(value) + "*",
		"analyze_wildcard": true,
	}}
}

// DateRange bounds field inclusively on each side that is set. It returns
// nil when neither bound is given.
func DateRange(field string, from, to *time.Time) Query {
	if from == nil && to == nil {
		return nil
	}
	bounds := map[string]any{"format": rangeFormat}
	if from != nil {
		bounds["gte"] = from.UTC().Format(model.TimestampLayout)
	}
	if to != nil {
		bounds["lte"] = to.UTC().Format(model.TimestampLayout)
	}
	return Query{"range": map[string]any{field: bounds}}
}

// AnyOf is a disjunction: at least one clause must match.
func AnyOf(clauses ...Query) Query {
	return Query{"bool": map[string]any{
		"should":               clauses,
		"minimum_should_match": 1,
	}}
}

// AllOf is a conjunction of clauses. A single clause is returned unwrapped
// and an empty list yields nil.
func AllOf(clauses ...Query) Query {
	switch len(clauses) {
	case 0:
		return nil
	case 1:
		return clauses[0]
	}
	return Query{"bool": map[string]any{"must": clauses}}
}

// queryStringReserved lists characters with meaning in query_string syntax.
const queryStringReserved = `+-=&|><!(){}[]^"~*?:\/ `

func escapeQueryString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, r := range s {
		if strings.ContainsRune(queryStringReserved, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// TermsAggregation groups matching documents by the distinct values of Field.
type TermsAggregation struct {
	Name  string
	Field string
	Size  int
}

// SearchBody renders the request body for a plain search.
func SearchBody(q Query) map[string]any {
	body := map[string]any{}
	if q != nil {
		body["query"] = q
	}
	return body
}

// AggregationBody renders a terms aggregation scoped by q. Hits are not
// needed for statistics so none are requested.
func AggregationBody(q Query, agg TermsAggregation) map[string]any {
	terms := map[string]any{"field": agg.Field}
	if agg.Size > 0 {
		terms["size"] = agg.Size
	}
	body := map[string]any{
		"size": 0,
		"aggs": map[string]any{
			agg.Name: map[string]any{"terms": terms},
		},
	}
	if q != nil {
		body["query"] = q
	}
	return body
}
