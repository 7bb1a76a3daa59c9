package loader

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/arena"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/inspect"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-anim/engine/statemachine"
)

// Instance is one rig placed into a runtime, with every declared name resolved to its handle.
type Instance struct {
	Rig      *Rig
	Skeleton arena.Handle
	Animator arena.Handle
	// Bones receive the blended pose of every tick, in skeleton order.
	Bones    []*skeleton.Bone
	Clips    map[string]arena.Handle
	Machines map[string]*MachineInstance
}

// MachineInstance resolves the names declared by one machine.
type MachineInstance struct {
	Handle  arena.Handle
	Layers  map[string]arena.Handle
	States  map[string]arena.Handle
	Players map[string]arena.Handle
	Inputs  map[string]arena.Handle
	Outputs map[string]arena.Handle
}

// Machine returns the named machine, or nil.
func (i *Instance) Machine(name string) *MachineInstance {
	return i.Machines[name]
}

// Labels adds the declared names of the instance to l, prefixed with prefix when not empty.
//
// Parameters:
//   - l: the labels to fill; nil maps are created
//   - prefix: prepended to every machine name as "prefix/name"
func (i *Instance) Labels(l *inspect.Labels, prefix string) {
	if l.Machines == nil {
		l.Machines = make(map[arena.Handle]string)
	}
	if l.States == nil {
		l.States = make(map[arena.Handle]string)
	}
	if l.Inputs == nil {
		l.Inputs = make(map[arena.Handle]string)
	}
	if l.Outputs == nil {
		l.Outputs = make(map[arena.Handle]string)
	}
	for name, m := range i.Machines {
		if prefix != "" {
			name = prefix + "/" + name
		}
		l.Machines[m.Handle] = name
		for n, h := range m.States {
			l.States[h] = n
		}
		for n, h := range m.Inputs {
			l.Inputs[h] = n
		}
		for n, h := range m.Outputs {
			l.Outputs[h] = n
		}
	}
}

// instantiate places the rig into rt. Pools are monotonic, so a failure part way leaves the
// handles allocated so far in place.
func (l *loader) instantiate(rt *scene.Runtime, r *Rig) (*Instance, error) {
	inst := &Instance{
		Rig:      r,
		Clips:    make(map[string]arena.Handle, len(r.Clips)),
		Machines: make(map[string]*MachineInstance, len(r.Machines)),
	}

	for i := range r.Clips {
		c := &r.Clips[i]
		h, err := rt.Clips.Register(bake(c, l.hasher))
		if err != nil {
			return nil, fmt.Errorf("clip %q: %w", c.Name, err)
		}
		inst.Clips[c.Name] = h
	}

	names := make([]string, len(r.Skeleton.Bones))
	transforms := make([]skeleton.BoneTransform, len(r.Skeleton.Bones))
	for i, b := range r.Skeleton.Bones {
		rest := common.IdentityTransform()
		if b.Rest != nil {
			rest = *b.Rest
		}
		bone := skeleton.NewBone(rest)
		names[i] = b.Name
		transforms[i] = bone
		inst.Bones = append(inst.Bones, bone)
	}
	var err error
	if inst.Skeleton, err = rt.Skeletons.AddSkeleton(names, transforms); err != nil {
		return nil, fmt.Errorf("skeleton: %w", err)
	}
	if inst.Animator, err = rt.Compositor.NewAnimator(inst.Skeleton); err != nil {
		return nil, fmt.Errorf("animator: %w", err)
	}

	for i := range r.Machines {
		md := &r.Machines[i]
		mi, err := l.machine(rt, inst, md)
		if err != nil {
			return nil, fmt.Errorf("machine %q: %w", md.Name, err)
		}
		inst.Machines[md.Name] = mi
		if !md.Inactive {
			rt.Machines.Activate(mi.Handle)
		}
	}
	return inst, nil
}

func (l *loader) machine(rt *scene.Runtime, inst *Instance, md *MachineDef) (*MachineInstance, error) {
	sm := rt.Machines
	m, err := sm.NewMachine(inst.Animator)
	if err != nil {
		return nil, err
	}
	mi := &MachineInstance{
		Handle:  m,
		Layers:  make(map[string]arena.Handle, len(md.Layers)),
		States:  make(map[string]arena.Handle),
		Players: make(map[string]arena.Handle),
		Inputs:  make(map[string]arena.Handle, len(md.Inputs)),
		Outputs: make(map[string]arena.Handle, len(md.Outputs)),
	}

	inputTypes := make(map[string]statemachine.ValueType, len(md.Inputs))
	for _, in := range md.Inputs {
		t, _ := statemachine.ParseValueType(in.Type)
		h, err := sm.NewInput(m, t)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", in.Name, err)
		}
		v, _ := toValue(t, in.Value)
		switch t {
		case statemachine.TypeInt:
			sm.SetInt(h, v.Int())
		case statemachine.TypeFloat:
			sm.SetFloat(h, v.Float())
		case statemachine.TypeBool:
			sm.SetBool(h, v.Bool())
		case statemachine.TypeTrigger:
			if v.Bool() {
				sm.Fire(h)
			}
		}
		mi.Inputs[in.Name] = h
		inputTypes[in.Name] = t
	}
	outputTypes := make(map[string]statemachine.ValueType, len(md.Outputs))
	for _, out := range md.Outputs {
		t, _ := statemachine.ParseValueType(out.Type)
		h, err := sm.NewOutput(m, t)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", out.Name, err)
		}
		mi.Outputs[out.Name] = h
		outputTypes[out.Name] = t
	}

	for _, ld := range md.Layers {
		lh, err := sm.NewLayer(m)
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", ld.Name, err)
		}
		mi.Layers[ld.Name] = lh
		for _, sd := range ld.States {
			c := inst.Clips[sd.Clip]
			p, err := rt.Players.New()
			if err != nil {
				return nil, fmt.Errorf("state %q: %w", sd.Name, err)
			}
			rt.Players.SetClip(p, c, rt.Clips.Data(c))
			rt.Players.SetLooping(p, sd.Loop)
			if sd.Speed != nil {
				rt.Players.SetSpeed(p, *sd.Speed)
			}
			s, err := sm.NewState(p, m, lh)
			if err != nil {
				return nil, fmt.Errorf("state %q: %w", sd.Name, err)
			}
			mi.States[sd.Name] = s
			mi.Players[sd.Name] = p
		}
		if ld.Default != "" {
			if err := sm.SetDefaultState(lh, mi.States[ld.Default]); err != nil {
				return nil, fmt.Errorf("layer %q default: %w", ld.Name, err)
			}
		}
	}

	for _, ld := range md.Layers {
		for _, sd := range ld.States {
			if err := l.wireState(sm, mi, &sd, inputTypes, outputTypes); err != nil {
				return nil, fmt.Errorf("state %q: %w", sd.Name, err)
			}
		}
	}
	return mi, nil
}

func (l *loader) wireState(sm statemachine.Engine, mi *MachineInstance, sd *StateDef, inputTypes, outputTypes map[string]statemachine.ValueType) error {
	s := mi.States[sd.Name]
	if sd.SpeedInput != "" {
		if err := sm.SetSpeedInput(s, mi.Inputs[sd.SpeedInput]); err != nil {
			return err
		}
	}
	if sd.SyncTo != "" {
		if err := sm.SetSyncState(s, mi.States[sd.SyncTo]); err != nil {
			return err
		}
	}
	for _, w := range sd.OnEnter {
		v, _ := toValue(outputTypes[w.Output], w.Value)
		if err := sm.AddEnterWrite(s, mi.Outputs[w.Output], v); err != nil {
			return err
		}
	}
	for _, w := range sd.OnLeave {
		v, _ := toValue(outputTypes[w.Output], w.Value)
		if err := sm.AddLeaveWrite(s, mi.Outputs[w.Output], v); err != nil {
			return err
		}
	}
	for _, td := range sd.Transitions {
		d := statemachine.TransitionData{Target: mi.States[td.To], Time: td.Time}
		for g, group := range td.When {
			for c := range group {
				cond, err := condition(&group[c], inputTypes, mi.Inputs)
				if err != nil {
					return err
				}
				d.Conditions[g][c] = cond
			}
		}
		if _, err := sm.NewTransition(s, d); err != nil {
			return fmt.Errorf("transition to %q: %w", td.To, err)
		}
	}
	return nil
}

// bake samples a clip definition into a baked clip.
func bake(c *ClipDef, hash skeleton.BoneHasher) *clip.Baked {
	b := &clip.Baked{Name: c.Name, FrameRate: c.FrameRate, FrameCount: c.FrameCount()}
	for _, name := range c.Bones {
		b.BoneIDs = append(b.BoneIDs, hash(name))
	}
	if c.Oscillate == nil {
		for _, frame := range c.Frames {
			b.Frames = append(b.Frames, frame...)
		}
		return b
	}

	o := c.Oscillate
	cycles := o.Cycles
	if cycles == 0 {
		cycles = 1
	}
	for f := range b.FrameCount {
		t := float64(f) / float64(b.FrameCount)
		for i := range c.Bones {
			s := float32(math.Sin(2*math.Pi*float64(cycles)*t + float64(o.Phase)*float64(i)))
			b.Frames = append(b.Frames, common.Transform{
				Position: [3]float32{o.Offset[0] * s, o.Offset[1] * s, o.Offset[2] * s},
				Rotation: common.QuatFromAxisAngle(o.Axis, o.Angle*s),
			})
		}
	}
	return b
}
