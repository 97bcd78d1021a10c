package model

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Stats maps a bucket key to its document count in the order the search
// engine returned the buckets. It encodes to a JSON object in that order.
type Stats = orderedmap.OrderedMap[string, int64]

// NewStats returns an empty Stats.
func NewStats() *Stats {
	return orderedmap.New[string, int64]()
}
