package player

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-anim/engine/arena"
)

const (
	// DefaultCapacity is the player capacity used when WithCapacity is not given.
	DefaultCapacity = 1024
	// DefaultBlendRate is the blend factor gained per second by fades started with UseDefaultBlend.
	DefaultBlendRate float32 = 5
	// DefaultMinSpeed is the lower bound of the playback speed range.
	DefaultMinSpeed float32 = 0
	// DefaultMaxSpeed is the upper bound of the playback speed range.
	DefaultMaxSpeed float32 = 10
	// DefaultFinishEpsilon is how far below its duration a finished player's time is clamped.
	DefaultFinishEpsilon float32 = 1e-4
)

// PoolBuilderOption is a functional option for configuring a Pool during construction.
type PoolBuilderOption func(*pool)

// WithCapacity sets the fixed number of players the pool can hold.
//
// Parameters:
//   - n: the capacity
//
// Returns:
//   - PoolBuilderOption: a function that applies the capacity
func WithCapacity(n int) PoolBuilderOption {
	return func(p *pool) {
		p.slots = arena.NewSlots("player", n)
	}
}

// WithDefaultBlendRate sets the ramp rate (blend factor per second) used by UseDefaultBlend.
// Non-positive rates are ignored.
//
// Parameters:
//   - rate: the ramp rate
//
// Returns:
//   - PoolBuilderOption: a function that applies the rate
func WithDefaultBlendRate(rate float32) PoolBuilderOption {
	return func(p *pool) {
		if rate > 0 {
			p.defaultBlendRate = rate
		}
	}
}

// WithSpeedRange sets the legal playback speed range. An empty range is ignored.
//
// Parameters:
//   - lo: the minimum speed
//   - hi: the maximum speed
//
// Returns:
//   - PoolBuilderOption: a function that applies the range
func WithSpeedRange(lo, hi float32) PoolBuilderOption {
	return func(p *pool) {
		if lo <= hi {
			p.minSpeed, p.maxSpeed = lo, hi
		}
	}
}

// WithFinishEpsilon sets how far below the clip duration a finished player is clamped.
//
// Parameters:
//   - eps: the epsilon in seconds
//
// Returns:
//   - PoolBuilderOption: a function that applies the epsilon
func WithFinishEpsilon(eps float32) PoolBuilderOption {
	return func(p *pool) {
		if eps > 0 {
			p.finishEpsilon = eps
		}
	}
}

// WithLogger sets the logger used for pool warnings.
//
// Parameters:
//   - l: the logger; nil keeps slog.Default()
//
// Returns:
//   - PoolBuilderOption: a function that applies the logger
func WithLogger(l *slog.Logger) PoolBuilderOption {
	return func(p *pool) {
		if l != nil {
			p.logger = l
		}
	}
}
