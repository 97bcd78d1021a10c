package httpinput

import (
	"fmt"

	"github.com/akave-ai/auditlens/internal/infrastructure/inputs"
	"github.com/akave-ai/auditlens/internal/model"
)

const defaultMaxBodyBytes = 4 << 20

func init() {
	inputs.GlobalRegistry.Register(&Factory{})
}

// Factory creates HTTP ingest inputs. Registers as "http".
type Factory struct{}

func (f *Factory) Name() string {
	return "http"
}

func (f *Factory) ConfigSpec() inputs.InputTypeInfo {
	return inputs.InputTypeInfo{
		Type:        "http",
		Description: "HTTP ingest endpoint. Accepts a JSON audit record or an array of records per POST and indexes them into the stream selected by kind. Can be mounted on the main server or bound to its own port.",
		Fields: []inputs.ConfigField{
			{Name: "description", Type: "string", Required: true, Description: "Path segment for the endpoint (e.g. 'methods' → /ingest/methods)", Example: "methods"},
			{Name: "kind", Type: "string", Required: true, Description: "Audit stream the records belong to", Example: "method", Enum: []string{string(model.KindMethod), string(model.KindRequest)}},
			{Name: "base_path", Type: "string", Required: false, Description: "Base path prefix", Example: "/ingest"},
			{Name: "listen", Type: "string", Required: false, Description: "Optional host:port to bind (e.g. :9001). If set, the input listens on this address instead of being mounted on the main server.", Example: ":9001"},
			{Name: "max_body_bytes", Type: "number", Required: false, Description: "Largest accepted request body", Example: "4194304"},
		},
	}
}

// ValidateConfig checks the fields Create depends on.
func (f *Factory) ValidateConfig(cfg inputs.Config) error {
	if cfg.String("description") == "" {
		return fmt.Errorf("missing 'description' for http input")
	}
	if _, err := model.ParseRecordKind(cfg.String("kind")); err != nil {
		return fmt.Errorf("http input: %w", err)
	}
	if n, ok := cfg.Int("max_body_bytes"); ok && n <= 0 {
		return fmt.Errorf("http input: max_body_bytes must be positive")
	}
	return nil
}

func (f *Factory) Create(cfg inputs.Config, buffer inputs.InputBuffer) (inputs.MessageInput, error) {
	if err := f.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	basePath := cfg.String("base_path")
	if basePath == "" {
		basePath = "/inputs"
	}
	maxBody := int64(defaultMaxBodyBytes)
	if n, ok := cfg.Int("max_body_bytes"); ok {
		maxBody = n
	}
	in := NewInput(basePath, cfg.String("description"), buffer, cfg.String("listen"))
	in.maxBody = maxBody
	return in, nil
}
