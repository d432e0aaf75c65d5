package sched

import "k8s.io/klog/v2"

// Config defines scheduler parameters.
type Config struct {
	// Workers is the number of goroutines running callbacks. One worker
	// runs callbacks strictly in deadline order.
	Workers int

	// QueueSize bounds the due callbacks waiting for a worker.
	QueueSize int

	// Logger overrides the logger taken from the scheduler context.
	Logger *klog.Logger
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns a single worker with a 64-entry queue.
func DefaultConfig() Config {
	return Config{
		Workers:   1,
		QueueSize: 64,
	}
}

// WithWorkers sets the worker count. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(cfg *Config) {
		if n >= 1 {
			cfg.Workers = n
		}
	}
}

// WithQueueSize sets the due-callback queue size. Negative values are
// ignored; zero makes dispatch wait for an idle worker.
func WithQueueSize(n int) Option {
	return func(cfg *Config) {
		if n >= 0 {
			cfg.QueueSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log klog.Logger) Option {
	return func(cfg *Config) {
		cfg.Logger = &log
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
