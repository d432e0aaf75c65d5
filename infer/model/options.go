package model

import (
	"k8s.io/klog/v2"

	"github.com/cwbudde/algo-infer/infer/vector"
)

// Config holds optional model collaborators.
type Config struct {
	// Engine runs the quantized kernels. Nil selects vector.Default().
	Engine *vector.Engine

	// Logger overrides the logger taken from the load context.
	Logger *klog.Logger
}

// Option mutates a Config.
type Option func(*Config)

// WithEngine pins the vector engine.
func WithEngine(e *vector.Engine) Option {
	return func(cfg *Config) {
		cfg.Engine = e
	}
}

// WithLogger sets the logger.
func WithLogger(log klog.Logger) Option {
	return func(cfg *Config) {
		cfg.Logger = &log
	}
}

// ApplyOptions applies zero or more options to an empty config.
func ApplyOptions(opts ...Option) Config {
	var cfg Config
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
