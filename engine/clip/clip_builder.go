package clip

import "log/slog"

const (
	// DefaultMaxClips is the clip pool capacity used when WithMaxClips is not given.
	DefaultMaxClips = 256
	// DefaultMaxFrames is the baked-frame store capacity (in poses) used when WithMaxFrames is not given.
	DefaultMaxFrames = 1 << 20
)

type registryConfig struct {
	maxClips, maxFrames int
}

// RegistryBuilderOption is a functional option for configuring a Registry during construction.
type RegistryBuilderOption func(*registryConfig, *registry)

// WithMaxClips sets the number of distinct clips the registry can hold.
//
// Parameters:
//   - n: the clip pool capacity
//
// Returns:
//   - RegistryBuilderOption: a function that applies the capacity
func WithMaxClips(n int) RegistryBuilderOption {
	return func(c *registryConfig, _ *registry) {
		c.maxClips = n
	}
}

// WithMaxFrames sets the size of the shared baked-frame store, counted in poses
// (frames x bones summed over every clip).
//
// Parameters:
//   - n: the store capacity
//
// Returns:
//   - RegistryBuilderOption: a function that applies the capacity
func WithMaxFrames(n int) RegistryBuilderOption {
	return func(c *registryConfig, _ *registry) {
		c.maxFrames = n
	}
}

// WithLogger sets the logger used for registration warnings.
//
// Parameters:
//   - l: the logger; nil keeps slog.Default()
//
// Returns:
//   - RegistryBuilderOption: a function that applies the logger
func WithLogger(l *slog.Logger) RegistryBuilderOption {
	return func(_ *registryConfig, r *registry) {
		if l != nil {
			r.logger = l
		}
	}
}
