// Package inspect exposes a read-only view of a running scene for tooling: machine, layer and
// state snapshots, signal values and player playback. Nothing here mutates the runtime.
package inspect

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/engine/arena"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/Carmen-Shannon/oxy-anim/engine/statemachine"
)

// ErrNotFound is returned when a queried handle is outside its pool.
var ErrNotFound = errors.New("handle not found")

// Labels maps handles to the names they were declared with, typically by a rig file.
// Every map is optional.
type Labels struct {
	Machines map[arena.Handle]string
	States   map[arena.Handle]string
	Inputs   map[arena.Handle]string
	Outputs  map[arena.Handle]string
}

// Summary reports the occupancy of every pool of a scene.
type Summary struct {
	Name        string `json:"name"`
	Ticks       uint64 `json:"ticks"`
	Clips       int    `json:"clips"`
	Frames      int    `json:"frames"`
	Players     int    `json:"players"`
	Skeletons   int    `json:"skeletons"`
	Bones       int    `json:"bones"`
	Bindings    int    `json:"bindings"`
	Animators   int    `json:"animators"`
	Layers      int    `json:"layers"`
	Machines    int    `json:"machines"`
	States      int    `json:"states"`
	Transitions int    `json:"transitions"`
	Inputs      int    `json:"inputs"`
	Outputs     int    `json:"outputs"`
}

// SignalInfo is the snapshot of a machine input or output.
type SignalInfo struct {
	Handle arena.Handle `json:"handle"`
	Name   string       `json:"name,omitempty"`
	Type   string       `json:"type"`
	Value  any          `json:"value"`
}

// ConditionInfo is one populated condition of a transition.
type ConditionInfo struct {
	Kind      string       `json:"kind"`
	Input     arena.Handle `json:"input"`
	InputName string       `json:"inputName,omitempty"`
	Value     any          `json:"value,omitempty"`
	Abs       bool         `json:"abs,omitempty"`
}

// TransitionInfo is a transition with its populated OR-groups in declaration order.
type TransitionInfo struct {
	Handle     arena.Handle      `json:"handle"`
	Target     arena.Handle      `json:"target"`
	TargetName string            `json:"targetName,omitempty"`
	Time       float32           `json:"time"`
	Groups     [][]ConditionInfo `json:"groups"`
}

// StateInfo is the snapshot of a state and its player.
type StateInfo struct {
	Handle      arena.Handle     `json:"handle"`
	Name        string           `json:"name,omitempty"`
	Player      arena.Handle     `json:"player"`
	SpeedInput  arena.Handle     `json:"speedInput"`
	SyncState   arena.Handle     `json:"syncState"`
	Transitions []TransitionInfo `json:"transitions"`
}

// LayerInfo is the snapshot of a machine layer.
type LayerInfo struct {
	Handle        arena.Handle `json:"handle"`
	Active        arena.Handle `json:"active"`
	ActiveName    string       `json:"activeName,omitempty"`
	Default       arena.Handle `json:"default"`
	Elapsed       float32      `json:"elapsed"`
	Blend         float32      `json:"blend"`
	Transitioning bool         `json:"transitioning"`
	States        []StateInfo  `json:"states"`
}

// MachineInfo is the snapshot of a state machine.
type MachineInfo struct {
	Handle   arena.Handle `json:"handle"`
	Name     string       `json:"name,omitempty"`
	Active   bool         `json:"active"`
	Animator arena.Handle `json:"animator"`
	Layers   []LayerInfo  `json:"layers"`
	Inputs   []SignalInfo `json:"inputs"`
	Outputs  []SignalInfo `json:"outputs"`
}

// PlayerInfo is the playback snapshot of a player.
type PlayerInfo struct {
	Handle       arena.Handle `json:"handle"`
	Clip         arena.Handle `json:"clip"`
	ClipName     string       `json:"clipName,omitempty"`
	Time         float32      `json:"time"`
	Speed        float32      `json:"speed"`
	Duration     float32      `json:"duration"`
	Blend        float32      `json:"blend"`
	Frame        int          `json:"frame"`
	Playing      bool         `json:"playing"`
	Looping      bool         `json:"looping"`
	Finished     bool         `json:"finished"`
	JustFinished bool         `json:"justFinished"`
}

// Inspector answers read-only queries against a scene. Every query takes the scene's read lock,
// so it never observes a half-applied tick.
type Inspector interface {
	// Summary reports pool occupancy.
	Summary() Summary

	// Machines returns a snapshot of every machine.
	Machines() []MachineInfo

	// Machine returns a snapshot of one machine.
	//
	// Parameters:
	//   - m: the machine handle
	//
	// Returns:
	//   - MachineInfo: the snapshot
	//   - error: ErrNotFound if m is not allocated
	Machine(m arena.Handle) (MachineInfo, error)

	// Players returns a snapshot of every player.
	Players() []PlayerInfo

	// Player returns a snapshot of one player.
	//
	// Parameters:
	//   - p: the player handle
	//
	// Returns:
	//   - PlayerInfo: the snapshot
	//   - error: ErrNotFound if p is not allocated
	Player(p arena.Handle) (PlayerInfo, error)
}

// inspector is the implementation of the Inspector interface.
type inspector struct {
	scene  scene.Scene
	labels Labels
}

var _ Inspector = &inspector{}

// NewInspector creates an Inspector over the given scene.
//
// Parameters:
//   - s: the scene to inspect
//   - options: functional options to configure the inspector
//
// Returns:
//   - Inspector: the newly created inspector
func NewInspector(s scene.Scene, options ...InspectorBuilderOption) Inspector {
	i := &inspector{scene: s}
	for _, opt := range options {
		opt(i)
	}
	return i
}

func (i *inspector) Summary() Summary {
	sum := Summary{Name: i.scene.Name(), Ticks: i.scene.Ticks()}
	i.scene.View(func(rt *scene.Runtime) {
		sum.Clips = rt.Clips.Count()
		sum.Frames = rt.Clips.FramesUsed()
		sum.Players = rt.Players.Count()
		sum.Skeletons = rt.Skeletons.SkeletonCount()
		sum.Bones = rt.Skeletons.BoneCount()
		sum.Bindings = rt.Skeletons.BindingCount()
		sum.Animators = rt.Compositor.AnimatorCount()
		sum.Layers = rt.Compositor.LayerCount()
		sum.Machines = rt.Machines.MachineCount()
		sum.States = rt.Machines.StateCount()
		sum.Transitions = rt.Machines.TransitionCount()
		sum.Inputs = rt.Machines.InputCount()
		sum.Outputs = rt.Machines.OutputCount()
	})
	return sum
}

func (i *inspector) Machines() []MachineInfo {
	var out []MachineInfo
	i.scene.View(func(rt *scene.Runtime) {
		out = make([]MachineInfo, 0, rt.Machines.MachineCount())
		for m := range rt.Machines.MachineCount() {
			out = append(out, i.machine(rt, arena.Handle(m)))
		}
	})
	return out
}

func (i *inspector) Machine(m arena.Handle) (MachineInfo, error) {
	var info MachineInfo
	var err error
	i.scene.View(func(rt *scene.Runtime) {
		if m < 0 || int(m) >= rt.Machines.MachineCount() {
			err = fmt.Errorf("machine %d: %w", m, ErrNotFound)
			return
		}
		info = i.machine(rt, m)
	})
	return info, err
}

func (i *inspector) Players() []PlayerInfo {
	var out []PlayerInfo
	i.scene.View(func(rt *scene.Runtime) {
		out = make([]PlayerInfo, 0, rt.Players.Count())
		for p := range rt.Players.Count() {
			out = append(out, player(rt, arena.Handle(p)))
		}
	})
	return out
}

func (i *inspector) Player(p arena.Handle) (PlayerInfo, error) {
	var info PlayerInfo
	var err error
	i.scene.View(func(rt *scene.Runtime) {
		if p < 0 || int(p) >= rt.Players.Count() {
			err = fmt.Errorf("player %d: %w", p, ErrNotFound)
			return
		}
		info = player(rt, p)
	})
	return info, err
}

func (i *inspector) machine(rt *scene.Runtime, m arena.Handle) MachineInfo {
	sm := rt.Machines
	info := MachineInfo{
		Handle:   m,
		Name:     i.labels.Machines[m],
		Active:   sm.IsActive(m),
		Animator: sm.Animator(m),
	}
	for _, in := range sm.Inputs(m) {
		info.Inputs = append(info.Inputs, signal(in, i.labels.Inputs[in], sm.Input(in)))
	}
	for _, out := range sm.Outputs(m) {
		info.Outputs = append(info.Outputs, signal(out, i.labels.Outputs[out], sm.Output(out)))
	}
	for _, l := range sm.Layers(m) {
		li := LayerInfo{
			Handle:        l,
			Active:        sm.ActiveState(l),
			Default:       sm.DefaultState(l),
			Elapsed:       sm.Elapsed(l),
			Transitioning: sm.Transitioning(l),
			Blend:         1,
		}
		if li.Active.Valid() {
			li.ActiveName = i.labels.States[li.Active]
			li.Blend = rt.Players.Blend(sm.Player(li.Active))
		}
		for _, s := range sm.States(l) {
			li.States = append(li.States, i.state(rt, s))
		}
		info.Layers = append(info.Layers, li)
	}
	return info
}

func (i *inspector) state(rt *scene.Runtime, s arena.Handle) StateInfo {
	sm := rt.Machines
	info := StateInfo{
		Handle:     s,
		Name:       i.labels.States[s],
		Player:     sm.Player(s),
		SpeedInput: sm.SpeedInput(s),
		SyncState:  sm.SyncState(s),
	}
	for _, t := range sm.Transitions(s) {
		d := sm.Transition(t)
		ti := TransitionInfo{
			Handle:     t,
			Target:     d.Target,
			TargetName: i.labels.States[d.Target],
			Time:       d.Time,
		}
		for _, group := range d.Conditions {
			var conds []ConditionInfo
			for _, c := range group {
				if c.Kind == statemachine.None {
					continue
				}
				ci := ConditionInfo{Kind: c.Kind.String(), Input: c.Input, Abs: c.Abs, Value: c.Value.Any()}
				if c.Kind != statemachine.IsFinished {
					ci.InputName = i.labels.Inputs[c.Input]
				}
				conds = append(conds, ci)
			}
			if len(conds) > 0 {
				ti.Groups = append(ti.Groups, conds)
			}
		}
		info.Transitions = append(info.Transitions, ti)
	}
	return info
}

func signal(h arena.Handle, name string, v statemachine.Value) SignalInfo {
	return SignalInfo{Handle: h, Name: name, Type: v.Type().String(), Value: v.Any()}
}

func player(rt *scene.Runtime, p arena.Handle) PlayerInfo {
	pl := rt.Players
	info := PlayerInfo{
		Handle:       p,
		Clip:         pl.Clip(p),
		Time:         pl.Time(p),
		Speed:        pl.Speed(p),
		Duration:     pl.Duration(p),
		Blend:        pl.Blend(p),
		Frame:        pl.Frame(p),
		Playing:      pl.IsPlaying(p),
		Looping:      pl.IsLooping(p),
		Finished:     pl.IsFinished(p),
		JustFinished: pl.JustFinished(p),
	}
	if info.Clip.Valid() {
		info.ClipName = rt.Clips.Data(info.Clip).Name
	}
	return info
}
