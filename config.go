package vecscan

const (
	// DefaultName is the backend bucket used when Config.Name is empty.
	DefaultName = "records"
	// DefaultVectorField is the attribute holding the vector when
	// Config.VectorField is empty, and the fallback for QueryManual.
	DefaultVectorField = "vector"
)

// Config holds the store settings. No other keys are recognised; unknown keys
// in a decoded configuration are ignored.
type Config struct {
	// Name identifies the backend collection (bucket).
	Name string `json:"name" yaml:"name"`
	// VectorField is the attribute name holding the vector.
	VectorField string `json:"vectorField" yaml:"vectorField"`
	// ModelID identifies the embedding model.
	ModelID string `json:"modelId" yaml:"modelId"`
}

// withDefaults fills empty fields.
func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.VectorField == "" {
		c.VectorField = DefaultVectorField
	}
	return c
}
