package inputs

// Factory creates a MessageInput from config and the buffer of the input's
// record kind. Each input type implements and registers a Factory.
type Factory interface {
	Name() string
	ConfigSpec() InputTypeInfo
	Create(cfg Config, buffer InputBuffer) (MessageInput, error)
}

// ConfigValidator is implemented by factories that check a configuration
// before anything is persisted.
type ConfigValidator interface {
	ValidateConfig(cfg Config) error
}
