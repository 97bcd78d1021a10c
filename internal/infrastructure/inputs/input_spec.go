package inputs

// InputSpec is a statically configured input, such as the default
// /ingest/methods and /ingest/requests endpoints.
type InputSpec struct {
	Type        string
	Kind        string
	Description string
	Config      Config
}

// EffectiveConfig is Config with the InputSpec's Description and Kind applied on top.
func (s InputSpec) EffectiveConfig() Config {
	cfg := make(Config, len(s.Config)+2)
	for k, v := range s.Config {
		cfg[k] = v
	}
	if s.Description != "" {
		cfg["description"] = s.Description
	}
	if s.Kind != "" {
		cfg["kind"] = s.Kind
	}
	return cfg
}
