package animator

import "log/slog"

const (
	// DefaultMaxAnimators is the animator capacity used when WithMaxAnimators is not given.
	DefaultMaxAnimators = 256
	// DefaultMaxLayers is the layer capacity used when WithMaxLayers is not given.
	DefaultMaxLayers = 1024
)

type compositorConfig struct {
	maxAnimators, maxLayers int
}

// CompositorBuilderOption is a functional option for configuring a Compositor during construction.
type CompositorBuilderOption func(*compositorConfig, *compositor)

// WithMaxAnimators is an option builder that sets the animator pool capacity.
//
// Parameters:
//   - n: the maximum number of animators
//
// Returns:
//   - CompositorBuilderOption: a function that applies the capacity
func WithMaxAnimators(n int) CompositorBuilderOption {
	return func(c *compositorConfig, _ *compositor) {
		c.maxAnimators = n
	}
}

// WithMaxLayers is an option builder that sets the layer pool capacity shared by every animator.
//
// Parameters:
//   - n: the maximum number of layers
//
// Returns:
//   - CompositorBuilderOption: a function that applies the capacity
func WithMaxLayers(n int) CompositorBuilderOption {
	return func(c *compositorConfig, _ *compositor) {
		c.maxLayers = n
	}
}

// WithLogger sets the logger used for compositor warnings.
//
// Parameters:
//   - l: the logger; nil keeps slog.Default()
//
// Returns:
//   - CompositorBuilderOption: a function that applies the logger
func WithLogger(l *slog.Logger) CompositorBuilderOption {
	return func(_ *compositorConfig, c *compositor) {
		if l != nil {
			c.logger = l
		}
	}
}
