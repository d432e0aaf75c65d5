package arena

import "k8s.io/klog/v2"

// Config defines arena limits.
type Config struct {
	// Capacity bounds the bytes held by live fast buffers. Zero means
	// unbounded.
	Capacity int64

	// DMACapacity bounds the bytes held by live DMA buffers. Locked memory
	// is scarce, so this defaults to 4 MiB.
	DMACapacity int64

	Logger klog.Logger
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns an unbounded fast budget and a 4 MiB DMA budget.
func DefaultConfig() Config {
	return Config{
		Capacity:    0,
		DMACapacity: 4 << 20,
		Logger:      klog.Background(),
	}
}

// WithCapacity bounds the fast allocation budget.
func WithCapacity(bytes int64) Option {
	return func(cfg *Config) {
		if bytes >= 0 {
			cfg.Capacity = bytes
		}
	}
}

// WithDMACapacity bounds the locked allocation budget.
func WithDMACapacity(bytes int64) Option {
	return func(cfg *Config) {
		if bytes >= 0 {
			cfg.DMACapacity = bytes
		}
	}
}

// WithLogger sets the logger used for DMA lifecycle messages.
func WithLogger(log klog.Logger) Option {
	return func(cfg *Config) {
		cfg.Logger = log
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
	return cfg
}
