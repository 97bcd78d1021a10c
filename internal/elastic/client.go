// Package elastic adapts go-elasticsearch to the search.Engine contract and
// provides index bootstrap and bulk ingest.
package elastic

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/valyala/fastjson"

	"github.com/akave-ai/auditlens/internal/config"
	"github.com/akave-ai/auditlens/internal/metrics"
	"github.com/akave-ai/auditlens/internal/search"
)

// Client executes searches against Elasticsearch. It is safe for concurrent use.
type Client struct {
	es      *elasticsearch.Client
	metrics *metrics.Metrics
}

var _ search.Engine = (*Client)(nil)

// NewClient builds a client from configuration. m may be nil.
func NewClient(cfg config.ElasticsearchConfig, m *metrics.Metrics) (*Client, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
	}
	switch {
	case cfg.InsecureSkipVerify:
		esCfg.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // opt-in for self-signed dev clusters
		}
	case cfg.CACertPath != "":
		cert, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("read ca cert: %w", err)
		}
		esCfg.CACert = cert
	}
	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	return New(es, m), nil
}

// New wraps an already configured go-elasticsearch client.
func New(es *elasticsearch.Client, m *metrics.Metrics) *Client {
	return &Client{es: es, metrics: m}
}

// Search returns the hits of query in engine order.
func (c *Client) Search(ctx context.Context, index string, query search.Query) ([]search.Hit, error) {
	resp, err := c.search(ctx, index, "search", search.SearchBody(query))
	if err != nil {
		return nil, err
	}
	return resp.Hits, nil
}

// Aggregate runs a terms aggregation scoped by query.
func (c *Client) Aggregate(ctx context.Context, index string, query search.Query, agg search.TermsAggregation) (*search.AggregateResponse, error) {
	return c.search(ctx, index, "aggregate", search.AggregationBody(query, agg))
}

func (c *Client) search(ctx context.Context, index, operation string, body map[string]any) (resp *search.AggregateResponse, err error) {
	start := time.Now()
	defer func() { c.metrics.ObserveEngine(index, operation, start, err) }()

	seg := newrelic.DatastoreSegment{
		StartTime:  newrelic.FromContext(ctx).StartSegmentNow(),
		Product:    newrelic.DatastoreElasticsearch,
		Collection: index,
		Operation:  operation,
	}
	defer seg.End()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if res.IsError() {
		return nil, newResponseError(res.StatusCode, raw)
	}
	return parseSearchResponse(raw)
}

// Ping checks that the cluster answers.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("ping: status %d", res.StatusCode)
	}
	return nil
}

// parseSearchResponse extracts hit ids/sources and the raw aggregations object.
func parseSearchResponse(raw []byte) (*search.AggregateResponse, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	out := &search.AggregateResponse{}
	for _, h := range v.GetArray("hits", "hits") {
		hit := search.Hit{ID: string(h.GetStringBytes("_id"))}
		if src := h.Get("_source"); src != nil {
			hit.Source = src.MarshalTo(nil)
		}
		out.Hits = append(out.Hits, hit)
	}
	if aggs := v.Get("aggregations"); aggs != nil && aggs.Type() == fastjson.TypeObject {
		out.Aggregations = aggs.MarshalTo(nil)
	}
	return out, nil
}

// ResponseError is an error status returned by Elasticsearch.
type ResponseError struct {
	Status int
	Type   string
	Reason string
}

func (e *ResponseError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("elasticsearch: status %d", e.Status)
	}
	return fmt.Sprintf("elasticsearch: status %d: %s: %s", e.Status, e.Type, e.Reason)
}

func newResponseError(status int, raw []byte) *ResponseError {
	e := &ResponseError{Status: status}
	var p fastjson.Parser
	if v, err := p.ParseBytes(raw); err == nil {
		e.Type = string(v.GetStringBytes("error", "type"))
		e.Reason = string(v.GetStringBytes("error", "reason"))
	}
	return e
}
