package loader

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithHasher sets the bone-name hash used for clip bone ids. It must match the hasher of the
// skeleton table the rigs are instantiated into.
//
// Parameters:
//   - h: the bone-name hasher
//
// Returns:
//   - LoaderBuilderOption: a function that applies the hasher option to a loader
func WithHasher(h skeleton.BoneHasher) LoaderBuilderOption {
	return func(l *loader) {
		if h != nil {
			l.hasher = h
		}
	}
}

// WithRig is an option builder that pre-populates the rig cache with a rig.
//
// Parameters:
//   - key: the cache key for the rig
//   - r: the rig to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the rig option to a loader
func WithRig(key string, r *Rig) LoaderBuilderOption {
	return func(l *loader) {
		l.rigCache[key] = r
	}
}

// WithLogger sets the loader logger.
//
// Parameters:
//   - lg: the logger
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(lg *slog.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if lg != nil {
			l.logger = lg
		}
	}
}
