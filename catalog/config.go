package catalog

// Config describes where named resources live.
type Config struct {
	// Root is the directory holding every resource.
	Root string `yaml:"root" mapstructure:"root" validate:"required"`
	// Files maps a public name to a path relative to Root. Names absent
	// from the map resolve to a file of the same name directly under Root.
	Files map[string]string `yaml:"files" mapstructure:"files"`
	// ReadSize is the chunk size used when streaming a resource.
	ReadSize int `yaml:"read_size" mapstructure:"read_size" validate:"gte=0"`
}

// ApplyDefaults sets the root to "data" when unset.
func (c *Config) ApplyDefaults() {
	if c.Root == "" {
		c.Root = "data"
	}
}
