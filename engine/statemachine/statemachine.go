package statemachine

import (
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/arena"
	"github.com/Carmen-Shannon/oxy-anim/engine/player"
)

// Event describes a machine callback. Previous is only set for state changes.
type Event struct {
	Machine  arena.Handle
	Layer    arena.Handle
	State    arena.Handle
	Previous arena.Handle
}

// Listener receives machine events during Notify.
type Listener func(ev Event)

type write struct {
	output arena.Handle
	value  Value
}

type machineEntry struct {
	animator arena.Handle
	active   bool
	layers   []arena.Handle
	inputs   []arena.Handle
	outputs  []arena.Handle
	pending  []Event

	onStateFinished      []Listener
	onTransitionFinished []Listener
	onStateChanged       []Listener
}

type layerEntry struct {
	machine       arena.Handle
	comp          arena.Handle
	states        []arena.Handle
	active        arena.Handle
	def           arena.Handle
	transitioning bool
	elapsed       float32
}

type stateEntry struct {
	machine     arena.Handle
	layer       arena.Handle
	index       int
	player      arena.Handle
	speedInput  arena.Handle
	sync        arena.Handle
	transitions []arena.Handle
	enter       []write
	leave       []write
}

type transitionEntry struct {
	source arena.Handle
	data   TransitionData
}

type valueSlot struct {
	machine arena.Handle
	value   Value
}

// engine is the implementation of the Engine interface.
type engine struct {
	logger  *slog.Logger
	comp    animator.Compositor
	players player.Pool

	machines    *arena.Pool[machineEntry]
	layers      *arena.Pool[layerEntry]
	states      *arena.Pool[stateEntry]
	transitions *arena.Pool[transitionEntry]
	inputs      *arena.Pool[valueSlot]
	outputs     *arena.Pool[valueSlot]

	playerStates map[arena.Handle]arena.Handle
}

// Engine owns every state machine and evaluates their transitions. A machine drives one
// animator: each machine layer wraps one compositor layer and each state one player. Inputs,
// outputs, states and transitions belong to exactly one machine and may only reference
// objects of that machine, so machines evaluate independently and Evaluate can run
// concurrently over disjoint machine ranges. Every other method must be serialized by the
// caller.
type Engine interface {
	// NewMachine allocates an inactive machine driving the given animator.
	//
	// Parameters:
	//   - a: the compositor animator handle
	//
	// Returns:
	//   - arena.Handle: the machine handle, or arena.InvalidHandle on failure
	//   - error: ErrAllocationExhausted when the pool is full
	NewMachine(a arena.Handle) (arena.Handle, error)

	// NewLayer adds a layer to the machine, backed by a new layer on top of the animator's stack.
	//
	// Parameters:
	//   - m: the machine handle
	//
	// Returns:
	//   - arena.Handle: the machine layer handle, or arena.InvalidHandle on failure
	//   - error: ErrAllocationExhausted when the layer pool is full
	NewLayer(m arena.Handle) (arena.Handle, error)

	// NewState adds a state played by p to a machine layer. The first state of a layer becomes
	// its default state.
	//
	// Parameters:
	//   - p: the player handle, with its clip already set; a player drives at most one state
	//   - m: the machine handle
	//   - l: the machine layer handle, which must belong to m
	//
	// Returns:
	//   - arena.Handle: the state handle, or arena.InvalidHandle on failure
	//   - error: ErrAllocationExhausted or ErrInvalidConfiguration
	NewState(p, m, l arena.Handle) (arena.Handle, error)

	// NewInput allocates a machine input of type t, initialized to its zero value.
	//
	// Returns:
	//   - arena.Handle: the input handle, or arena.InvalidHandle on failure
	//   - error: ErrAllocationExhausted when the pool is full
	NewInput(m arena.Handle, t ValueType) (arena.Handle, error)

	// NewOutput allocates a machine output of type t, initialized to its zero value.
	//
	// Returns:
	//   - arena.Handle: the output handle, or arena.InvalidHandle on failure
	//   - error: ErrAllocationExhausted when the pool is full
	NewOutput(m arena.Handle, t ValueType) (arena.Handle, error)

	// NewTransition appends a transition to the state's ordered transition list. The target
	// must be in the same layer of the same machine, every referenced input must belong to the
	// machine and comparison values must be convertible to the input's type. Comparison values
	// are stored converted. A rejected transition leaves every pool unchanged.
	//
	// Parameters:
	//   - s: the source state handle
	//   - data: the transition declaration
	//
	// Returns:
	//   - arena.Handle: the transition handle, or arena.InvalidHandle on failure
	//   - error: ErrAllocationExhausted or ErrInvalidConfiguration
	NewTransition(s arena.Handle, data TransitionData) (arena.Handle, error)

	// AddEnterWrite appends an output write performed when the state is entered.
	//
	// Returns:
	//   - error: ErrAllocationExhausted or ErrInvalidConfiguration
	AddEnterWrite(s, out arena.Handle, v Value) error

	// AddLeaveWrite appends an output write performed when the state is left.
	//
	// Returns:
	//   - error: ErrAllocationExhausted or ErrInvalidConfiguration
	AddLeaveWrite(s, out arena.Handle, v Value) error

	// SetSpeedInput binds a numeric input whose value drives the state's playback speed every
	// tick the state is active. arena.InvalidHandle unbinds it.
	//
	// Returns:
	//   - error: ErrInvalidConfiguration for a foreign or non-numeric input
	SetSpeedInput(s, in arena.Handle) error

	// SetSyncState makes entering s start its player at the current playback time of other's
	// player. arena.InvalidHandle unbinds it.
	//
	// Returns:
	//   - error: ErrInvalidConfiguration when other belongs to another machine
	SetSyncState(s, other arena.Handle) error

	// SetDefaultState selects the state a layer enters when its machine is activated.
	//
	// Returns:
	//   - error: ErrInvalidConfiguration when s is not in layer l
	SetDefaultState(l, s arena.Handle) error

	// Activate starts the machine: every layer without an active state enters its default state.
	Activate(m arena.Handle)

	// Deactivate stops the machine and clears every layer's active state.
	Deactivate(m arena.Handle)

	// IsActive reports whether the machine is evaluated.
	IsActive(m arena.Handle) bool

	// SetInt, SetFloat and SetBool write an input of the matching type. Fire sets a trigger
	// input until the end of the next evaluation pass. A type mismatch violates the handle contract.
	SetInt(in arena.Handle, v int)
	SetFloat(in arena.Handle, v float32)
	SetBool(in arena.Handle, v bool)
	Fire(in arena.Handle)

	// Input and Output return the current value of an input or output.
	Input(in arena.Handle) Value
	Output(out arena.Handle) Value

	// Evaluate advances dwell time and takes at most one transition per layer for every active
	// machine in [lo, hi). Layers that took a transition are left transitioning until
	// TakeTransitioning.
	//
	// Parameters:
	//   - dt: the tick duration in seconds
	//   - lo: the first machine index
	//   - hi: one past the last machine index
	Evaluate(dt float32, lo, hi int)

	// ResetTriggers clears every trigger input. It runs once per tick after the whole
	// evaluation pass.
	ResetTriggers()

	// TakeTransitioning re-captures bone authority and outgoing poses for every layer that took
	// a transition since the last call and clears their transitioning flags.
	//
	// Returns:
	//   - int: the number of layers committed
	TakeTransitioning() int

	// OnStateFinished registers a listener fired once when an active state's player finishes.
	OnStateFinished(m arena.Handle, fn Listener)
	// OnTransitionFinished registers a listener fired once when a state's cross-fade completes.
	OnTransitionFinished(m arena.Handle, fn Listener)
	// OnStateChanged registers a listener fired for every state a layer enters.
	OnStateChanged(m arena.Handle, fn Listener)

	// Notify fires the state changes queued since the last call. Finished and transition
	// finished events are fired by the compositor's Notify.
	Notify()

	// Introspection. Slices are copies.
	MachineCount() int
	StateCount() int
	TransitionCount() int
	InputCount() int
	OutputCount() int
	Animator(m arena.Handle) arena.Handle
	Layers(m arena.Handle) []arena.Handle
	Inputs(m arena.Handle) []arena.Handle
	Outputs(m arena.Handle) []arena.Handle
	States(l arena.Handle) []arena.Handle
	ActiveState(l arena.Handle) arena.Handle
	DefaultState(l arena.Handle) arena.Handle
	Elapsed(l arena.Handle) float32
	Transitioning(l arena.Handle) bool
	CompositorLayer(l arena.Handle) arena.Handle
	Player(s arena.Handle) arena.Handle
	StateLayer(s arena.Handle) arena.Handle
	SpeedInput(s arena.Handle) arena.Handle
	SyncState(s arena.Handle) arena.Handle
	Transitions(s arena.Handle) []arena.Handle
	Transition(t arena.Handle) TransitionData

	// Clear releases every machine and everything it owns.
	Clear()
}

var _ Engine = &engine{}

// NewEngine creates a state machine engine driving the given compositor and player pool.
//
// Parameters:
//   - comp: the layer compositor
//   - players: the player pool
//   - options: variadic list of EngineBuilderOption functions
//
// Returns:
//   - Engine: the engine
func NewEngine(comp animator.Compositor, players player.Pool, options ...EngineBuilderOption) Engine {
	e := &engine{
		logger:       slog.Default(),
		comp:         comp,
		players:      players,
		playerStates: make(map[arena.Handle]arena.Handle),
	}
	cfg := engineConfig{
		maxMachines:    DefaultMaxMachines,
		maxLayers:      DefaultMaxLayers,
		maxStates:      DefaultMaxStates,
		maxTransitions: DefaultMaxTransitions,
		maxInputs:      DefaultMaxInputs,
		maxOutputs:     DefaultMaxOutputs,
	}
	for _, opt := range options {
		opt(&cfg, e)
	}
	e.machines = arena.NewPool[machineEntry]("machine", cfg.maxMachines)
	e.layers = arena.NewPool[layerEntry]("machine layer", cfg.maxLayers)
	e.states = arena.NewPool[stateEntry]("state", cfg.maxStates)
	e.transitions = arena.NewPool[transitionEntry]("transition", cfg.maxTransitions)
	e.inputs = arena.NewPool[valueSlot]("input", cfg.maxInputs)
	e.outputs = arena.NewPool[valueSlot]("output", cfg.maxOutputs)
	return e
}

// reject logs and wraps a configuration error.
func (e *engine) reject(op string, err error, args ...any) error {
	e.logger.Warn("state machine "+op+" rejected", append(args, "error", err)...)
	return fmt.Errorf("%s: %w", op, err)
}

type bounded interface {
	Len() int
	Cap() int
}

func full(p bounded) bool {
	return p.Len() >= p.Cap()
}

func (e *engine) NewMachine(a arena.Handle) (arena.Handle, error) {
	_ = e.comp.Skeleton(a)
	h, m, err := e.machines.Alloc()
	if err != nil {
		return arena.InvalidHandle, e.reject("new machine", err)
	}
	*m = machineEntry{animator: a}
	return h, nil
}

func (e *engine) NewLayer(m arena.Handle) (arena.Handle, error) {
	me := e.machines.Get(m)
	if full(e.layers) {
		return arena.InvalidHandle, e.reject("new layer", fmt.Errorf("machine layer pool full: %w", arena.ErrAllocationExhausted), "machine", m)
	}
	cl, err := e.comp.NewLayer(me.animator)
	if err != nil {
		return arena.InvalidHandle, e.reject("new layer", err, "machine", m)
	}
	h, l, _ := e.layers.Alloc()
	*l = layerEntry{machine: m, comp: cl, active: arena.InvalidHandle, def: arena.InvalidHandle}
	me.layers = append(me.layers, h)

	e.comp.OnFinished(cl, e.forward(h, func(me *machineEntry) []Listener { return me.onStateFinished }))
	e.comp.OnTransitionFinished(cl, e.forward(h, func(me *machineEntry) []Listener { return me.onTransitionFinished }))
	return h, nil
}

// forward adapts a compositor layer event into a machine event for the listeners selected by pick.
func (e *engine) forward(l arena.Handle, pick func(*machineEntry) []Listener) animator.LayerListener {
	return func(ev animator.LayerEvent) {
		le := e.layers.Get(l)
		me := e.machines.Get(le.machine)
		if !me.active || ev.State >= len(le.states) {
			return
		}
		out := Event{Machine: le.machine, Layer: l, State: le.states[ev.State], Previous: arena.InvalidHandle}
		for _, fn := range pick(me) {
			fn(out)
		}
	}
}

func (e *engine) NewState(p, m, l arena.Handle) (arena.Handle, error) {
	e.machines.Check(m)
	le := e.layers.Get(l)
	if le.machine != m {
		return arena.InvalidHandle, e.reject("new state", fmt.Errorf("layer %s belongs to machine %s, not %s: %w", l, le.machine, m, arena.ErrInvalidConfiguration))
	}
	if owner, ok := e.playerStates[p]; ok {
		return arena.InvalidHandle, e.reject("new state", fmt.Errorf("player %s already drives state %s: %w", p, owner, arena.ErrInvalidConfiguration))
	}
	if full(e.states) {
		return arena.InvalidHandle, e.reject("new state", fmt.Errorf("state pool full: %w", arena.ErrAllocationExhausted), "machine", m)
	}
	idx, err := e.comp.AddState(le.comp, p)
	if err != nil {
		return arena.InvalidHandle, e.reject("new state", err, "machine", m)
	}

	h, s, _ := e.states.Alloc()
	*s = stateEntry{
		machine:    m,
		layer:      l,
		index:      idx,
		player:     p,
		speedInput: arena.InvalidHandle,
		sync:       arena.InvalidHandle,
	}
	le.states = append(le.states, h)
	if !le.def.Valid() {
		le.def = h
	}
	e.playerStates[p] = h
	return h, nil
}

func (e *engine) NewInput(m arena.Handle, t ValueType) (arena.Handle, error) {
	me := e.machines.Get(m)
	h, in, err := e.inputs.Alloc()
	if err != nil {
		return arena.InvalidHandle, e.reject("new input", err, "machine", m)
	}
	*in = valueSlot{machine: m, value: Zero(t)}
	me.inputs = append(me.inputs, h)
	return h, nil
}

func (e *engine) NewOutput(m arena.Handle, t ValueType) (arena.Handle, error) {
	me := e.machines.Get(m)
	h, out, err := e.outputs.Alloc()
	if err != nil {
		return arena.InvalidHandle, e.reject("new output", err, "machine", m)
	}
	*out = valueSlot{machine: m, value: Zero(t)}
	me.outputs = append(me.outputs, h)
	return h, nil
}

func (e *engine) NewTransition(s arena.Handle, data TransitionData) (arena.Handle, error) {
	src := e.states.Get(s)
	if err := e.validateTransition(src, &data); err != nil {
		return arena.InvalidHandle, e.reject("new transition", err, "state", s)
	}
	if len(src.transitions) >= MaxTransitionsPerState {
		return arena.InvalidHandle, e.reject("new transition", fmt.Errorf("state %s has %d transitions: %w", s, MaxTransitionsPerState, arena.ErrAllocationExhausted))
	}
	h, t, err := e.transitions.Alloc()
	if err != nil {
		return arena.InvalidHandle, e.reject("new transition", err, "state", s)
	}
	*t = transitionEntry{source: s, data: data}
	src.transitions = append(src.transitions, h)
	return h, nil
}

// validateTransition checks ownership and converts comparison values in place.
func (e *engine) validateTransition(src *stateEntry, data *TransitionData) error {
	if !e.states.Contains(data.Target) {
		return fmt.Errorf("target %s is not a state: %w", data.Target, arena.ErrInvalidConfiguration)
	}
	if tgt := e.states.Get(data.Target); tgt.machine != src.machine || tgt.layer != src.layer {
		return fmt.Errorf("target %s is outside the source state's machine layer: %w", data.Target, arena.ErrInvalidConfiguration)
	}
	if data.Time < 0 {
		return fmt.Errorf("negative transition time %g: %w", data.Time, arena.ErrInvalidConfiguration)
	}

	for g := range data.Conditions {
		for i := range data.Conditions[g] {
			c := &data.Conditions[g][i]
			switch {
			case c.Kind == None || c.Kind == IsFinished:
			case c.Kind == TimeMin || c.Kind == TimeMax:
				v, err := c.Value.As(TypeFloat)
				if err != nil {
					return fmt.Errorf("%s threshold: %w", c.Kind, err)
				}
				c.Value = v
			case c.Kind.usesInput():
				if !e.inputs.Contains(c.Input) || e.inputs.Get(c.Input).machine != src.machine {
					return fmt.Errorf("%s condition input %s is not an input of machine %s: %w", c.Kind, c.Input, src.machine, arena.ErrInvalidConfiguration)
				}
				it := e.inputs.Get(c.Input).value.typ
				if c.Kind == Trigger {
					if it.numeric() {
						return fmt.Errorf("trigger condition on %s input %s: %w", it, c.Input, arena.ErrInvalidConfiguration)
					}
					continue
				}
				if !it.numeric() && c.Kind != Equal {
					return fmt.Errorf("%s condition on %s input %s: %w", c.Kind, it, c.Input, arena.ErrInvalidConfiguration)
				}
				v, err := c.Value.As(it)
				if err != nil {
					return fmt.Errorf("%s condition on input %s: %w", c.Kind, c.Input, err)
				}
				c.Value = v
			default:
				return fmt.Errorf("unknown condition kind %s: %w", c.Kind, arena.ErrInvalidConfiguration)
			}
		}
	}
	return nil
}

func (e *engine) addWrite(op string, s, out arena.Handle, v Value, leave bool) error {
	st := e.states.Get(s)
	if !e.outputs.Contains(out) || e.outputs.Get(out).machine != st.machine {
		return e.reject(op, fmt.Errorf("output %s is not an output of machine %s: %w", out, st.machine, arena.ErrInvalidConfiguration), "state", s)
	}
	cv, err := v.As(e.outputs.Get(out).value.typ)
	if err != nil {
		return e.reject(op, err, "state", s, "output", out)
	}
	list := &st.enter
	if leave {
		list = &st.leave
	}
	if len(*list) >= MaxWritesPerState {
		return e.reject(op, fmt.Errorf("state %s has %d writes: %w", s, MaxWritesPerState, arena.ErrAllocationExhausted))
	}
	*list = append(*list, write{output: out, value: cv})
	return nil
}

func (e *engine) AddEnterWrite(s, out arena.Handle, v Value) error {
	return e.addWrite("enter write", s, out, v, false)
}

func (e *engine) AddLeaveWrite(s, out arena.Handle, v Value) error {
	return e.addWrite("leave write", s, out, v, true)
}

func (e *engine) SetSpeedInput(s, in arena.Handle) error {
	st := e.states.Get(s)
	if in.Valid() {
		if !e.inputs.Contains(in) || e.inputs.Get(in).machine != st.machine {
			return e.reject("speed input", fmt.Errorf("input %s is not an input of machine %s: %w", in, st.machine, arena.ErrInvalidConfiguration), "state", s)
		}
		if t := e.inputs.Get(in).value.typ; !t.numeric() {
			return e.reject("speed input", fmt.Errorf("%s input %s cannot drive speed: %w", t, in, arena.ErrInvalidConfiguration), "state", s)
		}
	}
	st.speedInput = in
	return nil
}

func (e *engine) SetSyncState(s, other arena.Handle) error {
	st := e.states.Get(s)
	if other.Valid() {
		if !e.states.Contains(other) || e.states.Get(other).machine != st.machine {
			return e.reject("sync state", fmt.Errorf("state %s is not a state of machine %s: %w", other, st.machine, arena.ErrInvalidConfiguration), "state", s)
		}
	}
	st.sync = other
	return nil
}

func (e *engine) SetDefaultState(l, s arena.Handle) error {
	le := e.layers.Get(l)
	if !e.states.Contains(s) || e.states.Get(s).layer != l {
		return e.reject("default state", fmt.Errorf("state %s is not in layer %s: %w", s, l, arena.ErrInvalidConfiguration))
	}
	le.def = s
	return nil
}

func (e *engine) Activate(m arena.Handle) {
	me := e.machines.Get(m)
	if me.active {
		return
	}
	me.active = true
	for _, l := range me.layers {
		le := e.layers.Get(l)
		if le.active.Valid() || !le.def.Valid() {
			continue
		}
		e.enter(me, m, l, le, e.states.Get(le.def), le.def, player.UseDefaultBlend)
		e.comp.CommitTransition(le.comp)
		le.transitioning = false
	}
}

func (e *engine) Deactivate(m arena.Handle) {
	me := e.machines.Get(m)
	if !me.active {
		return
	}
	me.active = false
	for i := len(me.layers) - 1; i >= 0; i-- {
		le := e.layers.Get(me.layers[i])
		e.comp.ClearState(le.comp)
		le.active = arena.InvalidHandle
		le.transitioning = false
		le.elapsed = 0
	}
}

func (e *engine) IsActive(m arena.Handle) bool {
	return e.machines.Get(m).active
}

func (e *engine) setInput(in arena.Handle, v Value) {
	slot := e.inputs.Get(in)
	arena.Require(slot.value.typ == v.typ, "input %s of type %s written as %s", in, slot.value.typ, v.typ)
	slot.value = v
}

func (e *engine) SetInt(in arena.Handle, v int)       { e.setInput(in, IntValue(v)) }
func (e *engine) SetFloat(in arena.Handle, v float32) { e.setInput(in, FloatValue(v)) }
func (e *engine) SetBool(in arena.Handle, v bool)     { e.setInput(in, BoolValue(v)) }
func (e *engine) Fire(in arena.Handle)                { e.setInput(in, TriggerValue(true)) }

func (e *engine) Input(in arena.Handle) Value {
	return e.inputs.Get(in).value
}

func (e *engine) Output(out arena.Handle) Value {
	return e.outputs.Get(out).value
}

func (e *engine) ResetTriggers() {
	inputs := e.inputs.All()
	for i := range inputs {
		if inputs[i].value.typ == TypeTrigger {
			inputs[i].value.b = false
		}
	}
}

func (e *engine) TakeTransitioning() int {
	n := 0
	layers := e.layers.All()
	for i := range layers {
		if !layers[i].transitioning {
			continue
		}
		e.comp.CommitTransition(layers[i].comp)
		layers[i].transitioning = false
		n++
	}
	return n
}

func (e *engine) OnStateFinished(m arena.Handle, fn Listener) {
	me := e.machines.Get(m)
	me.onStateFinished = append(me.onStateFinished, fn)
}

func (e *engine) OnTransitionFinished(m arena.Handle, fn Listener) {
	me := e.machines.Get(m)
	me.onTransitionFinished = append(me.onTransitionFinished, fn)
}

func (e *engine) OnStateChanged(m arena.Handle, fn Listener) {
	me := e.machines.Get(m)
	me.onStateChanged = append(me.onStateChanged, fn)
}

func (e *engine) Notify() {
	machines := e.machines.All()
	for i := range machines {
		me := &machines[i]
		for _, ev := range me.pending {
			for _, fn := range me.onStateChanged {
				fn(ev)
			}
		}
		me.pending = me.pending[:0]
	}
}

func (e *engine) MachineCount() int    { return e.machines.Len() }
func (e *engine) StateCount() int      { return e.states.Len() }
func (e *engine) TransitionCount() int { return e.transitions.Len() }
func (e *engine) InputCount() int      { return e.inputs.Len() }
func (e *engine) OutputCount() int     { return e.outputs.Len() }

func (e *engine) Animator(m arena.Handle) arena.Handle {
	return e.machines.Get(m).animator
}

func (e *engine) Layers(m arena.Handle) []arena.Handle {
	return append([]arena.Handle(nil), e.machines.Get(m).layers...)
}

func (e *engine) Inputs(m arena.Handle) []arena.Handle {
	return append([]arena.Handle(nil), e.machines.Get(m).inputs...)
}

func (e *engine) Outputs(m arena.Handle) []arena.Handle {
	return append([]arena.Handle(nil), e.machines.Get(m).outputs...)
}

func (e *engine) States(l arena.Handle) []arena.Handle {
	return append([]arena.Handle(nil), e.layers.Get(l).states...)
}

func (e *engine) ActiveState(l arena.Handle) arena.Handle {
	return e.layers.Get(l).active
}

func (e *engine) DefaultState(l arena.Handle) arena.Handle {
	return e.layers.Get(l).def
}

func (e *engine) Elapsed(l arena.Handle) float32 {
	return e.layers.Get(l).elapsed
}

func (e *engine) Transitioning(l arena.Handle) bool {
	return e.layers.Get(l).transitioning
}

func (e *engine) CompositorLayer(l arena.Handle) arena.Handle {
	return e.layers.Get(l).comp
}

func (e *engine) Player(s arena.Handle) arena.Handle {
	return e.states.Get(s).player
}

func (e *engine) StateLayer(s arena.Handle) arena.Handle {
	return e.states.Get(s).layer
}

func (e *engine) SpeedInput(s arena.Handle) arena.Handle {
	return e.states.Get(s).speedInput
}

func (e *engine) SyncState(s arena.Handle) arena.Handle {
	return e.states.Get(s).sync
}

func (e *engine) Transitions(s arena.Handle) []arena.Handle {
	return append([]arena.Handle(nil), e.states.Get(s).transitions...)
}

func (e *engine) Transition(t arena.Handle) TransitionData {
	return e.transitions.Get(t).data
}

func (e *engine) Clear() {
	e.machines.Clear()
	e.layers.Clear()
	e.states.Clear()
	e.transitions.Clear()
	e.inputs.Clear()
	e.outputs.Clear()
	clear(e.playerStates)
}
