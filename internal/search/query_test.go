package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContains_EscapesReservedCharacters(t *testing.T) {
	q := Contains("methodName", "a:b (c)")
	assert.JSONEq(t,
		`{"query_string":{"default_field":"methodName","query":"*a\\:b\\ \\(c\\)*","analyze_wildcard":true}}`,
		toJSON(t, q))
}

func TestDateRange(t *testing.T) {
	from := time.Date(2024, 3, 1, 9, 5, 7, 120_000_000, time.UTC)
	to := time.Date(2024, 3, 2, 0, 0, 0, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name     string
		from, to *time.Time
		want     string
	}{
		{"none", nil, nil, `null`},
		{"from only", &from, nil,
			`{"range":{"timestamp":{"format":"yyyy-MM-dd HH:mm:ss.SSS","gte":"2024-03-01 09:05:07.120"}}}`},
		{"to only, converted to UTC", nil, &to,
			`{"range":{"timestamp":{"format":"yyyy-MM-dd HH:mm:ss.SSS","lte":"2024-03-01 23:00:00.000"}}}`},
		{"both", &from, &to,
			`{"range":{"timestamp":{"format":"yyyy-MM-dd HH:mm:ss.SSS","gte":"2024-03-01 09:05:07.120","lte":"2024-03-01 23:00:00.000"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.JSONEq(t, tt.want, toJSON(t, DateRange("timestamp", tt.from, tt.to)))
		})
	}
}

func TestAllOf(t *testing.T) {
	assert.Nil(t, AllOf())

	single := Term("a", "b")
	assert.Equal(t, single, AllOf(single))

	assert.JSONEq(t,
		`{"bool":{"must":[{"term":{"a":{"value":"1"}}},{"term":{"b":{"value":"2"}}}]}}`,
		toJSON(t, AllOf(Term("a", "1"), Term("b", "2"))))
}

func TestAggregationBody(t *testing.T) {
	agg := TermsAggregation{Name: StatsAggregation, Field: "logLevel", Size: 25}

	assert.JSONEq(t,
		`{"size":0,"aggs":{"stats_agg":{"terms":{"field":"logLevel","size":25}}}}`,
		toJSON(t, AggregationBody(nil, agg)))

	agg.Size = 0
	assert.JSONEq(t,
		`{"size":0,"query":{"term":{"requestType":{"value":"Incoming"}}},"aggs":{"stats_agg":{"terms":{"field":"logLevel"}}}}`,
		toJSON(t, AggregationBody(Term("requestType", "Incoming"), agg)))
}

func TestSearchBody(t *testing.T) {
	assert.JSONEq(t, `{}`, toJSON(t, SearchBody(nil)))
	assert.JSONEq(t, `{"query":{"term":{"f":{"value":"v"}}}}`, toJSON(t, SearchBody(Term("f", "v"))))
}
