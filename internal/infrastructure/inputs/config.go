package inputs

// Config is a key-value map for input-type-specific configuration.
// The backend passes it when creating an input; implementations interpret it.
type Config map[string]any

// String returns the string value at key, or "" when absent or not a string.
func (c Config) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// Int returns the numeric value at key. JSON numbers arrive as float64.
func (c Config) Int(key string) (int64, bool) {
	switch v := c[key].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	}
	return 0, false
}
