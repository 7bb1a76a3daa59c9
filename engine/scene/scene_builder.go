package scene

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithConfig sets the pool capacities and tick tuning of the scene.
//
// Parameters:
//   - cfg: the configuration, normally from LoadConfig
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithConfig(cfg Config) SceneBuilderOption {
	return func(s *scene) {
		s.cfg = cfg
	}
}

// WithComputeWorkers sets the number of worker goroutines used by the parallel phases of
// Tick, overriding Config.Workers. With a single worker every phase runs on the calling
// goroutine.
//
// Parameters:
//   - n: the number of compute workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithComputeWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.computeWorkers = n
	}
}

// WithBatchSize sets how many players, machines or bones one worker task processes,
// overriding Config.BatchSize.
//
// Parameters:
//   - n: the batch size (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithBatchSize(n int) SceneBuilderOption {
	return func(s *scene) {
		s.cfg.BatchSize = max(n, 1)
	}
}

// WithHasher sets the bone name hasher shared by the scene's skeletons.
//
// Parameters:
//   - h: the hasher
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithHasher(h skeleton.BoneHasher) SceneBuilderOption {
	return func(s *scene) {
		s.hasher = h
	}
}

// WithLogger sets the logger handed to every pool of the scene.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLogger(l *slog.Logger) SceneBuilderOption {
	return func(s *scene) {
		if l != nil {
			s.logger = l
		}
	}
}
