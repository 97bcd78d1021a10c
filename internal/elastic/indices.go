package elastic

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/akave-ai/auditlens/internal/model"
)

//go:embed mappings/*.json
var mappingFS embed.FS

var mappingFiles = map[model.RecordKind]string{
	model.KindMethod:  "mappings/methods.json",
	model.KindRequest: "mappings/requests.json",
}

// Mapping returns the index body used for kind.
func Mapping(kind model.RecordKind) ([]byte, error) {
	name, ok := mappingFiles[kind]
	if !ok {
		return nil, fmt.Errorf("no mapping for record kind %q", kind)
	}
	return mappingFS.ReadFile(name)
}

// EnsureIndices creates every index in indices that does not exist yet.
// Existing indices are left untouched, mappings included.
func (c *Client) EnsureIndices(ctx context.Context, indices map[model.RecordKind]string) error {
	for kind, index := range indices {
		if err := c.ensureIndex(ctx, kind, index); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) ensureIndex(ctx context.Context, kind model.RecordKind, index string) error {
	res, err := c.es.Indices.Exists([]string{index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", index, err)
	}
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("check index %s: status %d", index, res.StatusCode)
	}

	body, err := Mapping(kind)
	if err != nil {
		return err
	}
	res, err = c.es.Indices.Create(index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", index, err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, _ := io.ReadAll(res.Body)
	if res.IsError() {
		rerr := newResponseError(res.StatusCode, raw)
		// lost a race with another instance
		if rerr.Type == "resource_already_exists_exception" {
			return nil
		}
		return fmt.Errorf("create index %s: %w", index, rerr)
	}
	zerolog.Ctx(ctx).Info().Str("index", index).Str("kind", string(kind)).Msg("created index")
	return nil
}

// Refresh makes recently indexed documents visible to search.
func (c *Client) Refresh(ctx context.Context, indices ...string) error {
	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithContext(ctx),
		c.es.Indices.Refresh.WithIndex(indices...),
	)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return fmt.Errorf("refresh: %w", newResponseError(res.StatusCode, raw))
	}
	return nil
}
