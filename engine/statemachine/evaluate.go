package statemachine

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/arena"
)

func (e *engine) Evaluate(dt float32, lo, hi int) {
	machines := e.machines.All()
	hi = min(hi, len(machines))
	for i := max(lo, 0); i < hi; i++ {
		me := &machines[i]
		if !me.active {
			continue
		}
		// Layers run in stack order; a layer's outcome is visible to the ones after it.
		for _, l := range me.layers {
			e.evaluateLayer(me, arena.Handle(i), l, dt)
		}
	}
}

func (e *engine) evaluateLayer(me *machineEntry, m, l arena.Handle, dt float32) {
	le := e.layers.Get(l)
	if !le.active.Valid() || le.transitioning {
		return
	}
	le.elapsed += dt
	st := e.states.Get(le.active)

	if st.speedInput.Valid() {
		e.players.SetSpeed(st.player, e.inputs.Get(st.speedInput).value.Number())
	}

	for _, th := range st.transitions {
		tr := e.transitions.Get(th)
		if e.fires(&tr.data, st, le) {
			e.take(me, m, l, le, st, &tr.data)
			return
		}
	}
}

// fires evaluates the transition's conditions as a disjunction of conjunctions. An OR-group
// without a populated slot is never satisfied.
func (e *engine) fires(d *TransitionData, st *stateEntry, le *layerEntry) bool {
	for g := range d.Conditions {
		populated := false
		satisfied := true
		for i := range d.Conditions[g] {
			c := &d.Conditions[g][i]
			if c.Kind == None {
				continue
			}
			populated = true
			if !e.holds(c, st, le) {
				satisfied = false
				break
			}
		}
		if populated && satisfied {
			return true
		}
	}
	return false
}

func (e *engine) holds(c *Condition, st *stateEntry, le *layerEntry) bool {
	switch c.Kind {
	case Trigger:
		return e.inputs.Get(c.Input).value.b
	case IsFinished:
		return e.players.IsFinished(st.player)
	case TimeMin:
		return le.elapsed >= c.Value.f
	case TimeMax:
		return le.elapsed <= c.Value.f
	default:
		return compareValue(c, e.inputs.Get(c.Input).value)
	}
}

func (e *engine) take(me *machineEntry, m, l arena.Handle, le *layerEntry, from *stateEntry, d *TransitionData) {
	e.apply(from.leave)
	e.enter(me, m, l, le, e.states.Get(d.Target), d.Target, d.Time)
}

// enter makes s the layer's active state: reset, optional time sync, play, enter writes.
func (e *engine) enter(me *machineEntry, m, l arena.Handle, le *layerEntry, st *stateEntry, s arena.Handle, blend float32) {
	prev := le.active
	le.active = s
	le.transitioning = true
	le.elapsed = 0

	// Read before Enter: leaving resets the outgoing player, which may be the sync source.
	var start float32
	if st.sync.Valid() {
		start = e.players.Time(e.states.Get(st.sync).player)
	}
	p := e.comp.Enter(le.comp, st.index)
	e.players.Reset(p)
	e.players.PlayFrom(p, blend, start)
	e.apply(st.enter)

	me.pending = append(me.pending, Event{Machine: m, Layer: l, State: s, Previous: prev})
}

func (e *engine) apply(writes []write) {
	for _, w := range writes {
		e.outputs.Get(w.output).value = w.value
	}
}
