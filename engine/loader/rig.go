package loader

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/arena"
	"github.com/Carmen-Shannon/oxy-anim/engine/statemachine"
)

// Rig is a declarative character definition: a skeleton, the baked clips it plays and the
// state machines that drive it. A rig can be instantiated any number of times.
type Rig struct {
	Name     string       `yaml:"name"`
	Skeleton SkeletonDef  `yaml:"skeleton"`
	Clips    []ClipDef    `yaml:"clips"`
	Machines []MachineDef `yaml:"machines"`
}

// SkeletonDef lists the bones of the rig in slot order.
type SkeletonDef struct {
	Bones []BoneDef `yaml:"bones"`
}

// BoneDef is a named bone and its rest pose. A missing rest pose is the identity.
type BoneDef struct {
	Name string            `yaml:"name"`
	Rest *common.Transform `yaml:"rest,omitempty"`
}

// ClipDef is a baked clip. Frames are listed frame-major with one pose per entry of Bones.
// Instead of explicit frames a clip may declare Oscillate, which bakes a periodic test motion.
type ClipDef struct {
	Name      string               `yaml:"name"`
	FrameRate float32              `yaml:"frameRate"`
	Duration  float32              `yaml:"duration,omitempty"`
	Bones     []string             `yaml:"bones"`
	Frames    [][]common.Transform `yaml:"frames,omitempty"`
	Oscillate *OscillateDef        `yaml:"oscillate,omitempty"`
}

// OscillateDef bakes a sinusoidal rotation about Axis and translation along Offset, repeated
// Cycles times over the clip duration. Every bone of the clip receives the same motion, phase
// shifted by Phase radians per bone index.
type OscillateDef struct {
	Axis   [3]float32 `yaml:"axis"`
	Angle  float32    `yaml:"angle"`
	Offset [3]float32 `yaml:"offset"`
	Cycles float32    `yaml:"cycles"`
	Phase  float32    `yaml:"phase"`
}

// MachineDef is a state machine bound to the rig's animator.
type MachineDef struct {
	Name     string      `yaml:"name"`
	Inactive bool        `yaml:"inactive,omitempty"`
	Inputs   []SignalDef `yaml:"inputs"`
	Outputs  []SignalDef `yaml:"outputs"`
	Layers   []LayerDef  `yaml:"layers"`
}

// SignalDef declares a typed input or output with an optional initial value.
type SignalDef struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Value any    `yaml:"value,omitempty"`
}

// LayerDef is a machine layer. Later layers override earlier ones on the bones their clips
// animate. Default names the state entered on activation and falls back to the first state.
type LayerDef struct {
	Name    string     `yaml:"name"`
	Default string     `yaml:"default,omitempty"`
	States  []StateDef `yaml:"states"`
}

// StateDef is a state playing one clip.
type StateDef struct {
	Name        string          `yaml:"name"`
	Clip        string          `yaml:"clip"`
	Loop        bool            `yaml:"loop,omitempty"`
	Speed       *float32        `yaml:"speed,omitempty"`
	SpeedInput  string          `yaml:"speedInput,omitempty"`
	SyncTo      string          `yaml:"syncTo,omitempty"`
	OnEnter     []WriteDef      `yaml:"onEnter,omitempty"`
	OnLeave     []WriteDef      `yaml:"onLeave,omitempty"`
	Transitions []TransitionDef `yaml:"transitions,omitempty"`
}

// WriteDef sets an output when a state is entered or left.
type WriteDef struct {
	Output string `yaml:"output"`
	Value  any    `yaml:"value"`
}

// TransitionDef is a guarded edge to another state of the same layer. When lists OR-groups of
// AND-ed conditions; the transition fires when any group holds.
type TransitionDef struct {
	To   string           `yaml:"to"`
	Time float32          `yaml:"time"`
	When [][]ConditionDef `yaml:"when"`
}

// ConditionDef is one condition. Kind is one of eq, gt, ge, lt, le, trigger, finished,
// time_min or time_max.
type ConditionDef struct {
	Kind  string `yaml:"kind"`
	Input string `yaml:"input,omitempty"`
	Value any    `yaml:"value,omitempty"`
	Abs   bool   `yaml:"abs,omitempty"`
}

// FrameCount returns the number of baked frames of the clip.
func (c *ClipDef) FrameCount() int {
	if c.Oscillate != nil {
		return max(1, int(c.Duration*c.FrameRate))
	}
	return len(c.Frames)
}

// Validate checks every name reference and literal of the rig without touching a runtime.
// All problems are reported, joined.
//
// Returns:
//   - error: nil for a well-formed rig, else every problem wrapping ErrInvalidConfiguration
func (r *Rig) Validate() error {
	v := &validator{}

	bones := make(map[string]bool, len(r.Skeleton.Bones))
	if len(r.Skeleton.Bones) == 0 {
		v.fail("skeleton has no bones")
	}
	for _, b := range r.Skeleton.Bones {
		if b.Name == "" || bones[b.Name] {
			v.fail("bone %q is empty or duplicated", b.Name)
		}
		bones[b.Name] = true
	}

	clips := make(map[string]bool, len(r.Clips))
	for _, c := range r.Clips {
		if c.Name == "" || clips[c.Name] {
			v.fail("clip %q is empty or duplicated", c.Name)
		}
		clips[c.Name] = true
		if c.FrameRate <= 0 {
			v.fail("clip %q frame rate must be positive", c.Name)
		}
		if len(c.Bones) == 0 {
			v.fail("clip %q has no bones", c.Name)
		}
		switch {
		case c.Oscillate != nil && len(c.Frames) > 0:
			v.fail("clip %q declares both frames and oscillate", c.Name)
		case c.Oscillate != nil && c.Duration <= 0:
			v.fail("clip %q oscillate needs a positive duration", c.Name)
		case c.Oscillate == nil && len(c.Frames) == 0:
			v.fail("clip %q has no frames", c.Name)
		}
		for f, frame := range c.Frames {
			if len(frame) != len(c.Bones) {
				v.fail("clip %q frame %d has %d poses for %d bones", c.Name, f, len(frame), len(c.Bones))
			}
		}
	}

	machines := make(map[string]bool, len(r.Machines))
	for _, m := range r.Machines {
		if m.Name == "" || machines[m.Name] {
			v.fail("machine %q is empty or duplicated", m.Name)
		}
		machines[m.Name] = true
		v.machine(&m, clips)
	}
	return errors.Join(v.errs...)
}

type validator struct {
	errs []error
}

func (v *validator) fail(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format+": %w", append(args, arena.ErrInvalidConfiguration)...))
}

func (v *validator) signals(m, kind string, defs []SignalDef) map[string]statemachine.ValueType {
	out := make(map[string]statemachine.ValueType, len(defs))
	for _, s := range defs {
		t, err := statemachine.ParseValueType(s.Type)
		if err != nil {
			v.fail("machine %q %s %q: %v", m, kind, s.Name, err)
			continue
		}
		if _, dup := out[s.Name]; dup || s.Name == "" {
			v.fail("machine %q %s %q is empty or duplicated", m, kind, s.Name)
		}
		if _, err := toValue(t, s.Value); err != nil {
			v.fail("machine %q %s %q: %v", m, kind, s.Name, err)
		}
		out[s.Name] = t
	}
	return out
}

func (v *validator) machine(m *MachineDef, clips map[string]bool) {
	inputs := v.signals(m.Name, "input", m.Inputs)
	outputs := v.signals(m.Name, "output", m.Outputs)
	if len(m.Layers) == 0 {
		v.fail("machine %q has no layers", m.Name)
	}

	states := make(map[string]bool)
	for _, l := range m.Layers {
		for _, s := range l.States {
			if s.Name == "" || states[s.Name] {
				v.fail("machine %q state %q is empty or duplicated", m.Name, s.Name)
			}
			states[s.Name] = true
		}
	}

	for _, l := range m.Layers {
		local := make(map[string]bool, len(l.States))
		for _, s := range l.States {
			local[s.Name] = true
		}
		if len(l.States) == 0 {
			v.fail("machine %q layer %q has no states", m.Name, l.Name)
		}
		if l.Default != "" && !local[l.Default] {
			v.fail("machine %q layer %q default %q is not a state of the layer", m.Name, l.Name, l.Default)
		}
		for _, s := range l.States {
			at := fmt.Sprintf("machine %q state %q", m.Name, s.Name)
			if !clips[s.Clip] {
				v.fail("%s clip %q is not declared", at, s.Clip)
			}
			if t := inputs[s.SpeedInput]; s.SpeedInput != "" && t != statemachine.TypeInt && t != statemachine.TypeFloat {
				v.fail("%s speed input %q is not a numeric input", at, s.SpeedInput)
			}
			if s.SyncTo != "" && !states[s.SyncTo] {
				v.fail("%s sync state %q is not declared", at, s.SyncTo)
			}
			for _, w := range append(append([]WriteDef{}, s.OnEnter...), s.OnLeave...) {
				t, ok := outputs[w.Output]
				if !ok {
					v.fail("%s writes undeclared output %q", at, w.Output)
					continue
				}
				if _, err := toValue(t, w.Value); err != nil {
					v.fail("%s write %q: %v", at, w.Output, err)
				}
			}
			if len(s.Transitions) > statemachine.MaxTransitionsPerState {
				v.fail("%s has more than %d transitions", at, statemachine.MaxTransitionsPerState)
			}
			for _, tr := range s.Transitions {
				v.transition(at, &tr, local, inputs)
			}
		}
	}
}

func (v *validator) transition(at string, tr *TransitionDef, local map[string]bool, inputs map[string]statemachine.ValueType) {
	if !local[tr.To] {
		v.fail("%s transition target %q is not a state of the same layer", at, tr.To)
	}
	if tr.Time < 0 {
		v.fail("%s transition to %q has negative time", at, tr.To)
	}
	if len(tr.When) > statemachine.MaxOrGroups {
		v.fail("%s transition to %q has more than %d condition groups", at, tr.To, statemachine.MaxOrGroups)
	}
	for _, group := range tr.When {
		if len(group) > statemachine.MaxAndConditions {
			v.fail("%s transition to %q has a group of more than %d conditions", at, tr.To, statemachine.MaxAndConditions)
		}
		for _, c := range group {
			if _, err := condition(&c, inputs, nil); err != nil {
				v.fail("%s transition to %q: %v", at, tr.To, err)
			}
		}
	}
}

// condition resolves a condition definition. handles may be nil when only validating.
func condition(c *ConditionDef, inputs map[string]statemachine.ValueType, handles map[string]arena.Handle) (statemachine.Condition, error) {
	kind, err := statemachine.ParseConditionKind(c.Kind)
	if err != nil {
		return statemachine.Condition{}, err
	}
	out := statemachine.Condition{Kind: kind, Input: arena.InvalidHandle, Abs: c.Abs}
	switch kind {
	case statemachine.None:
		return out, fmt.Errorf("condition kind none: %w", arena.ErrInvalidConfiguration)
	case statemachine.IsFinished:
		return out, nil
	case statemachine.TimeMin, statemachine.TimeMax:
		out.Value, err = toValue(statemachine.TypeFloat, c.Value)
		return out, err
	}

	t, ok := inputs[c.Input]
	if !ok {
		return out, fmt.Errorf("condition %s references undeclared input %q: %w", c.Kind, c.Input, arena.ErrInvalidConfiguration)
	}
	if handles != nil {
		out.Input = handles[c.Input]
	}
	numeric := t == statemachine.TypeInt || t == statemachine.TypeFloat
	switch {
	case kind == statemachine.Trigger && numeric:
		return out, fmt.Errorf("trigger condition on %s input %q: %w", t, c.Input, arena.ErrInvalidConfiguration)
	case kind == statemachine.Trigger:
		return out, nil
	case kind != statemachine.Equal && !numeric:
		return out, fmt.Errorf("%s condition on %s input %q: %w", c.Kind, t, c.Input, arena.ErrInvalidConfiguration)
	}
	out.Value, err = toValue(t, c.Value)
	return out, err
}

// toValue converts a decoded YAML scalar to a value of type t. A missing scalar is the zero
// value of t.
func toValue(t statemachine.ValueType, raw any) (statemachine.Value, error) {
	switch x := raw.(type) {
	case nil:
		return statemachine.Zero(t), nil
	case int:
		return statemachine.IntValue(x).As(t)
	case float64:
		return statemachine.FloatValue(float32(x)).As(t)
	case bool:
		return statemachine.BoolValue(x).As(t)
	}
	return statemachine.Value{}, fmt.Errorf("unsupported %s literal %v: %w", t, raw, arena.ErrInvalidConfiguration)
}
