package loader

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
)

// LoaderBackendType identifies the rig file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeYAML selects the YAML rig backend.
	BackendTypeYAML LoaderBackendType = iota
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu     sync.RWMutex
	logger *slog.Logger

	hasher skeleton.BoneHasher

	rigCache map[string]*Rig

	backend loaderBackend
}

// Loader loads declarative rig files, caches them and places them into scenes.
// It abstracts the file format behind a backend.
type Loader interface {
	// Load decodes and validates a rig file and caches the result by path.
	// If the rig is already cached, the cached version is returned.
	//
	// Parameters:
	//   - path: the file path to the rig file (.yaml or .yml)
	//
	// Returns:
	//   - *Rig: the loaded rig
	//   - error: a decode error, or every validation problem joined
	Load(path string) (*Rig, error)

	// LoadReader decodes and validates a rig from a reader and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key for the rig
	//   - r: the reader providing rig data
	//
	// Returns:
	//   - *Rig: the loaded rig
	//   - error: a decode error, or every validation problem joined
	LoadReader(name string, r io.Reader) (*Rig, error)

	// Get retrieves a cached rig by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *Rig: the cached rig or nil
	Get(name string) *Rig

	// Rigs returns a copy of the rig cache.
	//
	// Returns:
	//   - map[string]*Rig: all cached rigs keyed by name
	Rigs() map[string]*Rig

	// Instantiate places a rig into a scene: it registers the clips, adds the skeleton and
	// an animator, builds every machine and activates the ones not declared inactive.
	//
	// Parameters:
	//   - s: the scene to populate
	//   - r: the rig to place
	//
	// Returns:
	//   - *Instance: the resolved handles
	//   - error: a validation error, or the pool error that stopped instantiation
	Instantiate(s scene.Scene, r *Rig) (*Instance, error)
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeYAML)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		logger:   slog.Default(),
		hasher:   skeleton.HashBoneName,
		rigCache: make(map[string]*Rig),
	}

	switch backendType {
	case BackendTypeYAML:
		l.backend = newYAMLLoaderBackend()
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (*Rig, error) {
	l.mu.RLock()
	if cached, ok := l.rigCache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	r, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return l.store(path, r)
}

func (l *loader) LoadReader(name string, rd io.Reader) (*Rig, error) {
	l.mu.RLock()
	if cached, ok := l.rigCache[name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	r, err := l.backend.LoadReader(rd)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}
	return l.store(name, r)
}

func (l *loader) store(key string, r *Rig) (*Rig, error) {
	if err := r.Validate(); err != nil {
		l.logger.Warn("rejecting rig", "rig", key, "error", err)
		return nil, fmt.Errorf("invalid rig %s: %w", key, err)
	}

	l.mu.Lock()
	l.rigCache[key] = r
	l.mu.Unlock()

	l.logger.Debug("rig loaded", "rig", key, "clips", len(r.Clips), "machines", len(r.Machines))
	return r, nil
}

func (l *loader) Get(name string) *Rig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rigCache[name]
}

func (l *loader) Rigs() map[string]*Rig {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*Rig, len(l.rigCache))
	for k, v := range l.rigCache {
		result[k] = v
	}
	return result
}

func (l *loader) Instantiate(s scene.Scene, r *Rig) (*Instance, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rig %s: %w", r.Name, err)
	}

	var inst *Instance
	err := s.Update(func(rt *scene.Runtime) error {
		var err error
		inst, err = l.instantiate(rt, r)
		return err
	})
	if err != nil {
		l.logger.Warn("rig instantiation failed", "rig", r.Name, "scene", s.Name(), "error", err)
		return nil, fmt.Errorf("instantiate rig %s: %w", r.Name, err)
	}
	l.logger.Debug("rig instantiated", "rig", r.Name, "scene", s.Name(), "skeleton", inst.Skeleton)
	return inst, nil
}

// resolveBackend selects an appropriate loader backend based on the file extension.
// Currently only YAML is supported.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return l.backend, nil
	default:
		return nil, fmt.Errorf("unsupported rig format: %s", ext)
	}
}
