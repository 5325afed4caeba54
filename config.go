package decodefuzz

const (
	// DefaultMaxPixels is used when Config.MaxPixels is not specified. Images declaring more pixels
	// than this in their header are rejected before the full decode.
	DefaultMaxPixels = 1 << 20

	// DefaultScratchBudget is used when Config.ScratchBudget is not specified.
	DefaultScratchBudget = 16 << 20

	// DefaultMaxSteps is used when Config.MaxSteps is not specified.
	DefaultMaxSteps = 1 << 22
)

// Config specifies limits for Decode Attempts. The zero value is usable.
type Config struct {
	// MaxPixels caps width*height as declared by an image header.
	MaxPixels int `toml:"max_pixels"`

	// ScratchBudget caps the scratch bytes outstanding at any one time.
	ScratchBudget int `toml:"scratch_budget"`

	// MaxSteps caps the number of Decoder.Step calls in one attempt.
	MaxSteps int `toml:"max_steps"`
}

func (cfg Config) withDefaults() Config {
	newCfg := cfg
	if cfg.MaxPixels <= 0 {
		newCfg.MaxPixels = DefaultMaxPixels
	}
	if cfg.ScratchBudget <= 0 {
		newCfg.ScratchBudget = DefaultScratchBudget
	}
	if cfg.MaxSteps <= 0 {
		newCfg.MaxSteps = DefaultMaxSteps
	}
	return newCfg
}
