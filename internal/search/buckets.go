package search

import (
	"github.com/valyala/fastjson"

	"github.com/akave-ai/auditlens/internal/model"
)

// StatsAggregation is the internal name of the single terms aggregation
// issued by the stats operations.
const StatsAggregation = "stats_agg"

// Bucket is one (key, document count) pair of a terms aggregation.
type Bucket struct {
	Key   string
	Count int64
}

// extractTerms reads the buckets of the named terms aggregation from a raw
// "aggregations" object. It returns nil when the container, the named
// aggregation or its buckets are missing or empty.
func extractTerms(aggregations []byte, name string) []Bucket {
	if len(aggregations) == 0 {
		return nil
	}
	var p fastjson.Parser
	root, err := p.ParseBytes(aggregations)
	if err != nil || root.Type() != fastjson.TypeObject {
		return nil
	}
	agg := root.Get(name)
	if agg == nil {
		return nil
	}
	raw := agg.GetArray("buckets")
	if len(raw) == 0 {
		return nil
	}
	buckets := make([]Bucket, 0, len(raw))
	for _, b := range raw {
		key, ok := bucketKey(b)
		if !ok {
			continue
		}
		buckets = append(buckets, Bucket{Key: key, Count: b.GetInt64("doc_count")})
	}
	if len(buckets) == 0 {
		return nil
	}
	return buckets
}

func bucketKey(b *fastjson.Value) (string, bool) {
	if s := b.GetStringBytes("key_as_string"); s != nil {
		return string(s), true
	}
	key := b.Get("key")
	if key == nil {
		return "", false
	}
	if key.Type() == fastjson.TypeString {
		return string(key.GetStringBytes()), true
	}
	return key.String(), true
}

// toStats converts buckets into an ordered Stats, keeping the first count
// seen for a key.
func toStats(buckets []Bucket) *model.Stats {
	stats := model.NewStats()
	for _, b := range buckets {
		if _, seen := stats.Get(b.Key); seen {
			continue
		}
		stats.Set(b.Key, b.Count)
	}
	return stats
}
