package dispatcher

import "github.com/rs/zerolog"

// Config holds dispatcher configuration options.
type Config struct {
	// EnableMetrics enables resolution statistics collection.
	EnableMetrics bool

	// Logger receives debug-level resolution traces.
	Logger zerolog.Logger

	// Metrics, when set, is used instead of a fresh collector so that
	// several dispatchers can share one.
	Metrics *Metrics
}

// DefaultConfig returns a configuration with metrics enabled and logging
// discarded.
func DefaultConfig() Config {
	return Config{
		EnableMetrics: true,
		Logger:        zerolog.Nop(),
	}
}

// WithLogger returns a copy of the config with the logger set.
func (c Config) WithLogger(l zerolog.Logger) Config {
	c.Logger = l
	return c
}

// WithMetrics returns a copy of the config using the given collector.
func (c Config) WithMetrics(m *Metrics) Config {
	c.EnableMetrics = m != nil
	c.Metrics = m
	return c
}

// WithoutMetrics returns a copy of the config with metrics disabled.
func (c Config) WithoutMetrics() Config {
	c.EnableMetrics = false
	c.Metrics = nil
	return c
}
