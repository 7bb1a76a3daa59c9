package main

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/engine/arena"
	"github.com/Carmen-Shannon/oxy-anim/engine/inspect"
	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/Carmen-Shannon/oxy-anim/engine/statemachine"
)

// spawned is one rig instance with the label prefix it was registered under.
type spawned struct {
	name string
	inst *loader.Instance
}

// world is a scene populated from rig files.
type world struct {
	scene     scene.Scene
	loader    loader.Loader
	instances []spawned
	labels    inspect.Labels
}

// newWorld loads every rig file and places count instances of each into a new scene.
func newWorld(name string, cfg scene.Config, logger *slog.Logger, paths []string, count int) (*world, error) {
	w := &world{
		scene:  scene.NewScene(name, scene.WithConfig(cfg), scene.WithLogger(logger)),
		loader: loader.NewLoader(loader.BackendTypeYAML, loader.WithLogger(logger)),
	}
	for _, path := range paths {
		rig, err := w.loader.Load(path)
		if err != nil {
			w.scene.Close()
			return nil, err
		}
		for i := range count {
			inst, err := w.loader.Instantiate(w.scene, rig)
			if err != nil {
				w.scene.Close()
				return nil, err
			}
			prefix := fmt.Sprintf("%s#%d", rig.Name, i)
			inst.Labels(&w.labels, prefix)
			w.instances = append(w.instances, spawned{name: prefix, inst: inst})
		}
	}
	return w, nil
}

// inputs resolves "machine.input" to the input handle of every instance declaring it.
func (w *world) inputs(ref string) ([]arena.Handle, error) {
	machine, input, ok := strings.Cut(ref, ".")
	if !ok {
		return nil, fmt.Errorf("input reference %q is not machine.input", ref)
	}
	var out []arena.Handle
	for _, sp := range w.instances {
		if m := sp.inst.Machine(machine); m != nil {
			if h, ok := m.Inputs[input]; ok {
				out = append(out, h)
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no instance declares input %q", ref)
	}
	return out, nil
}

// set applies "machine.input=value" assignments. Trigger inputs fire when the value is true.
func (w *world) set(assignments []string) error {
	type write struct {
		in   arena.Handle
		text string
	}
	var writes []write
	for _, a := range assignments {
		ref, text, ok := strings.Cut(a, "=")
		if !ok {
			return fmt.Errorf("assignment %q is not machine.input=value", a)
		}
		hs, err := w.inputs(ref)
		if err != nil {
			return err
		}
		for _, h := range hs {
			writes = append(writes, write{in: h, text: text})
		}
	}
	return w.scene.Update(func(rt *scene.Runtime) error {
		for _, wr := range writes {
			if err := setInput(rt.Machines, wr.in, wr.text); err != nil {
				return err
			}
		}
		return nil
	})
}

func setInput(sm statemachine.Engine, in arena.Handle, text string) error {
	t := sm.Input(in).Type()
	v, err := statemachine.ParseValue(t, text)
	if err != nil {
		return err
	}
	switch t {
	case statemachine.TypeInt:
		sm.SetInt(in, v.Int())
	case statemachine.TypeFloat:
		sm.SetFloat(in, v.Float())
	case statemachine.TypeBool:
		sm.SetBool(in, v.Bool())
	case statemachine.TypeTrigger:
		if v.Bool() {
			sm.Fire(in)
		}
	}
	return nil
}

// schedule parses "machine.input@tick" trigger fires into a tick-indexed plan.
func (w *world) schedule(fires []string) (map[uint64][]arena.Handle, error) {
	plan := make(map[uint64][]arena.Handle)
	for _, f := range fires {
		ref, at, ok := strings.Cut(f, "@")
		if !ok {
			return nil, fmt.Errorf("fire %q is not machine.input@tick", f)
		}
		var tick uint64
		if _, err := fmt.Sscan(at, &tick); err != nil {
			return nil, fmt.Errorf("fire %q: %w", f, err)
		}
		hs, err := w.inputs(ref)
		if err != nil {
			return nil, err
		}
		plan[tick] = append(plan[tick], hs...)
	}
	return plan, nil
}

// machineNames returns the labelled machine handles in handle order.
func (w *world) machineNames() []arena.Handle {
	out := make([]arena.Handle, 0, len(w.labels.Machines))
	for h := range w.labels.Machines {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
