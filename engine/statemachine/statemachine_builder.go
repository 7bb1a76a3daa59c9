package statemachine

import "log/slog"

const (
	DefaultMaxMachines    = 256
	DefaultMaxLayers      = 1024
	DefaultMaxStates      = 4096
	DefaultMaxTransitions = 16384
	DefaultMaxInputs      = 4096
	DefaultMaxOutputs     = 4096
)

type engineConfig struct {
	maxMachines, maxLayers, maxStates, maxTransitions, maxInputs, maxOutputs int
}

// EngineBuilderOption is a functional option for configuring an Engine during construction.
type EngineBuilderOption func(*engineConfig, *engine)

// WithMaxMachines sets the machine pool capacity.
func WithMaxMachines(n int) EngineBuilderOption {
	return func(c *engineConfig, _ *engine) { c.maxMachines = n }
}

// WithMaxLayers sets the machine layer pool capacity.
func WithMaxLayers(n int) EngineBuilderOption {
	return func(c *engineConfig, _ *engine) { c.maxLayers = n }
}

// WithMaxStates sets the state pool capacity.
func WithMaxStates(n int) EngineBuilderOption {
	return func(c *engineConfig, _ *engine) { c.maxStates = n }
}

// WithMaxTransitions sets the transition pool capacity.
func WithMaxTransitions(n int) EngineBuilderOption {
	return func(c *engineConfig, _ *engine) { c.maxTransitions = n }
}

// WithMaxInputs sets the input pool capacity.
func WithMaxInputs(n int) EngineBuilderOption {
	return func(c *engineConfig, _ *engine) { c.maxInputs = n }
}

// WithMaxOutputs sets the output pool capacity.
func WithMaxOutputs(n int) EngineBuilderOption {
	return func(c *engineConfig, _ *engine) { c.maxOutputs = n }
}

// WithLogger sets the logger used for configuration warnings.
//
// Parameters:
//   - l: the logger; nil keeps slog.Default()
//
// Returns:
//   - EngineBuilderOption: a function that applies the logger
func WithLogger(l *slog.Logger) EngineBuilderOption {
	return func(_ *engineConfig, e *engine) {
		if l != nil {
			e.logger = l
		}
	}
}
