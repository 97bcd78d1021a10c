package search

import (
	"encoding/json"
	"errors"
	"fmt"
)

// decodeHits unmarshals every hit source, in order. One bad document fails
// the whole call so callers never see a partial list.
func decodeHits[T any](hits []Hit, setID func(*T, string)) ([]T, error) {
	out := make([]T, 0, len(hits))
	for _, h := range hits {
		var rec T
		if err := json.Unmarshal(h.Source, &rec); err != nil {
			return nil, fmt.Errorf("decode hit %s: %w", h.ID, err)
		}
		setID(&rec, h.ID)
		out = append(out, rec)
	}
	return out, nil
}

func wrapEngineError(op, index string, err error) error {
	var ee *EngineError
	if errors.As(err, &ee) {
		return err
	}
	return &EngineError{Op: op, Index: index, Err: err}
}
