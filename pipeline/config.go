package pipeline

import "github.com/kbukum/gostream/validation"

// Config sizes the links between stages.
type Config struct {
	// LinkCapacity is the maximum number of chunks a link holds.
	LinkCapacity int `yaml:"link_capacity" mapstructure:"link_capacity" validate:"gt=0"`
	// HighWatermark pauses the producer once a link holds this many chunks.
	HighWatermark int `yaml:"high_watermark" mapstructure:"high_watermark" validate:"gt=0,ltefield=LinkCapacity"`
	// LowWatermark resumes the producer once a paused link drains to it.
	LowWatermark int `yaml:"low_watermark" mapstructure:"low_watermark" validate:"gte=0,ltfield=HighWatermark"`
}

// Default link sizing.
const (
	DefaultLinkCapacity  = 8
	DefaultHighWatermark = 8
	DefaultLowWatermark  = 4
)

// DefaultConfig returns the default link sizing.
func DefaultConfig() Config {
	return Config{
		LinkCapacity:  DefaultLinkCapacity,
		HighWatermark: DefaultHighWatermark,
		LowWatermark:  DefaultLowWatermark,
	}
}

// ApplyDefaults fills unset fields. A zero config becomes DefaultConfig;
// a capacity-only config gets watermarks at capacity and half capacity.
func (c *Config) ApplyDefaults() {
	if c.LinkCapacity == 0 && c.HighWatermark == 0 && c.LowWatermark == 0 {
		*c = DefaultConfig()
		return
	}
	if c.HighWatermark == 0 && c.LowWatermark == 0 {
		c.HighWatermark = c.LinkCapacity
		c.LowWatermark = c.LinkCapacity / 2
	}
}

// Validate checks capacity > 0, 0 < high <= capacity and 0 <= low < high.
func (c Config) Validate() error {
	return validation.Validate(c)
}
