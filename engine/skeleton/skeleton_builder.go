package skeleton

import "log/slog"

const (
	// DefaultMaxSkeletons is the skeleton capacity used when WithMaxSkeletons is not given.
	DefaultMaxSkeletons = 256
	// DefaultMaxBones is the bone slot capacity used when WithMaxBones is not given.
	DefaultMaxBones = 16384
	// DefaultMaxBindings is the binding capacity used when WithMaxBindings is not given.
	DefaultMaxBindings = 65536
)

type tableConfig struct {
	maxSkeletons, maxBones, maxBindings int
}

// TableBuilderOption is a functional option for configuring a Table during construction.
type TableBuilderOption func(*tableConfig, *table)

// WithMaxSkeletons sets the skeleton pool capacity.
//
// Parameters:
//   - n: the capacity
//
// Returns:
//   - TableBuilderOption: a function that applies the capacity
func WithMaxSkeletons(n int) TableBuilderOption {
	return func(c *tableConfig, _ *table) {
		c.maxSkeletons = n
	}
}

// WithMaxBones sets the bone slot pool capacity, shared by every skeleton.
//
// Parameters:
//   - n: the capacity
//
// Returns:
//   - TableBuilderOption: a function that applies the capacity
func WithMaxBones(n int) TableBuilderOption {
	return func(c *tableConfig, _ *table) {
		c.maxBones = n
	}
}

// WithMaxBindings sets the bone binding pool capacity.
//
// Parameters:
//   - n: the capacity
//
// Returns:
//   - TableBuilderOption: a function that applies the capacity
func WithMaxBindings(n int) TableBuilderOption {
	return func(c *tableConfig, _ *table) {
		c.maxBindings = n
	}
}

// WithHasher sets the bone name hasher. It must match the hasher used to bake clip bone IDs.
//
// Parameters:
//   - h: the hasher; nil keeps HashBoneName
//
// Returns:
//   - TableBuilderOption: a function that applies the hasher
func WithHasher(h BoneHasher) TableBuilderOption {
	return func(_ *tableConfig, t *table) {
		if h != nil {
			t.hasher = h
		}
	}
}

// WithLogger sets the logger used for table warnings.
//
// Parameters:
//   - l: the logger; nil keeps slog.Default()
//
// Returns:
//   - TableBuilderOption: a function that applies the logger
func WithLogger(l *slog.Logger) TableBuilderOption {
	return func(_ *tableConfig, t *table) {
		if l != nil {
			t.logger = l
		}
	}
}
