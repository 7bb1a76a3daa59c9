package scene

import (
	"fmt"
	"runtime"

	"github.com/caarlos0/env/v11"
)

// Config sizes every pool of a scene and tunes its tick. Pools never grow, so capacities are
// hard limits.
type Config struct {
	MaxClips       int `env:"OXY_ANIM_MAX_CLIPS"       envDefault:"256"     yaml:"max_clips"`
	MaxFrames      int `env:"OXY_ANIM_MAX_FRAMES"      envDefault:"1048576" yaml:"max_frames"`
	MaxPlayers     int `env:"OXY_ANIM_MAX_PLAYERS"     envDefault:"1024"    yaml:"max_players"`
	MaxSkeletons   int `env:"OXY_ANIM_MAX_SKELETONS"   envDefault:"256"     yaml:"max_skeletons"`
	MaxBones       int `env:"OXY_ANIM_MAX_BONES"       envDefault:"16384"   yaml:"max_bones"`
	MaxBindings    int `env:"OXY_ANIM_MAX_BINDINGS"    envDefault:"65536"   yaml:"max_bindings"`
	MaxAnimators   int `env:"OXY_ANIM_MAX_ANIMATORS"   envDefault:"256"     yaml:"max_animators"`
	MaxLayers      int `env:"OXY_ANIM_MAX_LAYERS"      envDefault:"1024"    yaml:"max_layers"`
	MaxMachines    int `env:"OXY_ANIM_MAX_MACHINES"    envDefault:"256"     yaml:"max_machines"`
	MaxStates      int `env:"OXY_ANIM_MAX_STATES"      envDefault:"4096"    yaml:"max_states"`
	MaxTransitions int `env:"OXY_ANIM_MAX_TRANSITIONS" envDefault:"16384"   yaml:"max_transitions"`
	MaxInputs      int `env:"OXY_ANIM_MAX_INPUTS"      envDefault:"4096"    yaml:"max_inputs"`
	MaxOutputs     int `env:"OXY_ANIM_MAX_OUTPUTS"     envDefault:"4096"    yaml:"max_outputs"`

	// DefaultBlendRate is the blend-in ramp in 1/seconds used when no duration is given.
	DefaultBlendRate float32 `env:"OXY_ANIM_DEFAULT_BLEND_RATE" envDefault:"5"    yaml:"default_blend_rate"`
	MinSpeed         float32 `env:"OXY_ANIM_MIN_SPEED"          envDefault:"0"    yaml:"min_speed"`
	MaxSpeed         float32 `env:"OXY_ANIM_MAX_SPEED"          envDefault:"10"   yaml:"max_speed"`
	FinishEpsilon    float32 `env:"OXY_ANIM_FINISH_EPSILON"     envDefault:"1e-4" yaml:"finish_epsilon"`

	// Workers is the size of the tick worker pool. 0 uses one less than the CPU count.
	Workers int `env:"OXY_ANIM_WORKERS" envDefault:"0" yaml:"workers"`
	// BatchSize is the number of players, machines or bones handed to one worker task.
	BatchSize int `env:"OXY_ANIM_BATCH_SIZE" envDefault:"256" yaml:"batch_size"`
}

// LoadConfig reads the configuration from OXY_ANIM_* environment variables, falling back to
// the defaults for unset variables.
//
// Returns:
//   - Config: the parsed configuration
//   - error: a parse or validation error
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// DefaultConfig returns the configuration with every value at its default, ignoring the
// environment.
//
// Returns:
//   - Config: the default configuration
func DefaultConfig() Config {
	var cfg Config
	// Defaults are constant strings and always parse.
	_ = env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}})
	return cfg
}

// Validate rejects capacities and tuning values that cannot build a scene.
//
// Returns:
//   - error: the first invalid field, or nil
func (c Config) Validate() error {
	for name, v := range map[string]int{
		"max clips":       c.MaxClips,
		"max frames":      c.MaxFrames,
		"max players":     c.MaxPlayers,
		"max skeletons":   c.MaxSkeletons,
		"max bones":       c.MaxBones,
		"max bindings":    c.MaxBindings,
		"max animators":   c.MaxAnimators,
		"max layers":      c.MaxLayers,
		"max machines":    c.MaxMachines,
		"max states":      c.MaxStates,
		"max transitions": c.MaxTransitions,
		"max inputs":      c.MaxInputs,
		"max outputs":     c.MaxOutputs,
		"batch size":      c.BatchSize,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.DefaultBlendRate <= 0 {
		return fmt.Errorf("default blend rate must be positive, got %g", c.DefaultBlendRate)
	}
	if c.MinSpeed < 0 || c.MaxSpeed < c.MinSpeed {
		return fmt.Errorf("invalid speed range [%g, %g]", c.MinSpeed, c.MaxSpeed)
	}
	if c.FinishEpsilon <= 0 {
		return fmt.Errorf("finish epsilon must be positive, got %g", c.FinishEpsilon)
	}
	return nil
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return max(runtime.NumCPU()-1, 1)
}
