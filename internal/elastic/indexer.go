package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/akave-ai/auditlens/internal/metrics"
	"github.com/akave-ai/auditlens/internal/model"
)

// IndexerConfig tunes the bulk indexer behind a RecordIndexer.
type IndexerConfig struct {
	Workers       int
	FlushBytes    int
	FlushInterval time.Duration
}

func DefaultIndexerConfig() IndexerConfig {
	return IndexerConfig{
		Workers:       2,
		FlushBytes:    1 << 20,
		FlushInterval: time.Second,
	}
}

// RecordIndexer decodes audit payloads of one kind and bulk-indexes them.
// It satisfies inputs.InputBuffer.
type RecordIndexer struct {
	kind    model.RecordKind
	index   string
	bulk    esutil.BulkIndexer
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

type document struct {
	id   string
	body []byte
}

// NewRecordIndexer starts a bulk indexer writing kind records into index.
func NewRecordIndexer(c *Client, kind model.RecordKind, index string, cfg IndexerConfig, log zerolog.Logger, m *metrics.Metrics) (*RecordIndexer, error) {
	if _, ok := mappingFiles[kind]; !ok {
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
	log = log.With().Str("component", "indexer").Str("kind", string(kind)).Str("index", index).Logger()
	bulk, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:        c.es,
		Index:         index,
		NumWorkers:    cfg.Workers,
		FlushBytes:    cfg.FlushBytes,
		FlushInterval: cfg.FlushInterval,
		OnError: func(_ context.Context, err error) {
			log.Error().Err(err).Msg("bulk request failed")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("bulk indexer: %w", err)
	}
	return &RecordIndexer{
		kind:    kind,
		index:   index,
		bulk:    bulk,
		metrics: m,
		log:     log,
		now:     time.Now,
	}, nil
}

func (r *RecordIndexer) Kind() model.RecordKind { return r.kind }

// Insert decodes payload (one record or an array) and queues every record for
// indexing. It returns how many records were queued. A payload that does not
// decode is rejected whole.
func (r *RecordIndexer) Insert(ctx context.Context, payload []byte) (int, error) {
	docs, err := r.documents(payload)
	if err != nil {
		r.metrics.ObserveIngest(string(r.kind), "rejected", 1)
		return 0, err
	}

	// queued items outlive the request that carried them
	ctx = context.WithoutCancel(ctx)
	for i, d := range docs {
		err := r.bulk.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: d.id,
			Body:       bytes.NewReader(d.body),
			OnSuccess: func(context.Context, esutil.BulkIndexerItem, esutil.BulkIndexerResponseItem) {
				r.metrics.ObserveIngest(string(r.kind), "indexed", 1)
			},
			OnFailure: func(_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				r.metrics.ObserveIngest(string(r.kind), "failed", 1)
				ev := r.log.Warn().Str("id", item.DocumentID)
				if err != nil {
					ev = ev.Err(err)
				} else {
					ev = ev.Str("type", res.Error.Type).Str("reason", res.Error.Reason)
				}
				ev.Msg("record not indexed")
			},
		})
		if err != nil {
			return i, fmt.Errorf("queue record %s: %w", d.id, err)
		}
	}
	return len(docs), nil
}

func (r *RecordIndexer) documents(payload []byte) ([]document, error) {
	switch r.kind {
	case model.KindMethod:
		records, err := model.DecodeMethodRecords(payload)
		if err != nil {
			return nil, err
		}
		docs := make([]document, 0, len(records))
		for _, rec := range records {
			rec.ID = r.ensureID(rec.ID)
			rec.Timestamp = r.ensureTimestamp(rec.Timestamp)
			if rec.Level != "" && !rec.Level.Known() {
				r.unknownValue(rec.ID, "logLevel", string(rec.Level))
			}
			if rec.EventType != "" && !rec.EventType.Known() {
				r.unknownValue(rec.ID, "logType", string(rec.EventType))
			}
			d, err := encode(rec.ID, rec)
			if err != nil {
				return nil, err
			}
			docs = append(docs, d)
		}
		return docs, nil
	case model.KindRequest:
		records, err := model.DecodeRequestRecords(payload)
		if err != nil {
			return nil, err
		}
		docs := make([]document, 0, len(records))
		for _, rec := range records {
			rec.ID = r.ensureID(rec.ID)
			rec.Timestamp = r.ensureTimestamp(rec.Timestamp)
			if rec.Direction != "" && !rec.Direction.Known() {
				r.unknownValue(rec.ID, "requestType", string(rec.Direction))
			}
			d, err := encode(rec.ID, rec)
			if err != nil {
				return nil, err
			}
			docs = append(docs, d)
		}
		return docs, nil
	}
	return nil, fmt.Errorf("unknown record kind %q", r.kind)
}

// unknownValue notes an enumerated field outside the known set. The record
// is indexed unchanged.
func (r *RecordIndexer) unknownValue(id, field, value string) {
	r.log.Debug().
		Str("record_id", id).
		Str("field", field).
		Str("value", value).
		Msg("unknown enumerated value")
}

func (r *RecordIndexer) ensureID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func (r *RecordIndexer) ensureTimestamp(ts model.Timestamp) model.Timestamp {
	if ts.IsZero() {
		return model.NewTimestamp(r.now())
	}
	return model.NewTimestamp(ts.Time)
}

func encode(id string, v any) (document, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return document{}, fmt.Errorf("encode record %s: %w", id, err)
	}
	return document{id: id, body: body}, nil
}

// Stats reports the bulk indexer counters.
func (r *RecordIndexer) Stats() esutil.BulkIndexerStats {
	return r.bulk.Stats()
}

// Close flushes queued records and stops the workers.
func (r *RecordIndexer) Close(ctx context.Context) error {
	if err := r.bulk.Close(ctx); err != nil {
		return fmt.Errorf("close indexer %s: %w", r.index, err)
	}
	st := r.bulk.Stats()
	r.log.Info().
		Uint64("indexed", st.NumIndexed).
		Uint64("failed", st.NumFailed).
		Msg("indexer closed")
	return nil
}
