package layers

import (
	"github.com/cwbudde/algo-infer/infer/arena"
	"github.com/cwbudde/algo-infer/infer/vector"
)

// Config holds the collaborators a layer runs with.
type Config struct {
	// Engine runs the dot products. Nil selects vector.Default().
	Engine *vector.Engine

	// Pool supplies scratch activations. Nil allocates a private pool on
	// the layer's arena.
	Pool *arena.Pool
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns a config using the default engine.
func DefaultConfig() Config {
	return Config{}
}

// WithEngine sets the vector engine.
func WithEngine(e *vector.Engine) Option {
	return func(cfg *Config) {
		cfg.Engine = e
	}
}

// WithPool shares a scratch pool between layers.
func WithPool(p *arena.Pool) Option {
	return func(cfg *Config) {
		cfg.Pool = p
	}
}

// ApplyOptions applies zero or more options to the default config.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.Engine == nil {
		cfg.Engine = vector.Default()
	}
	return cfg
}
