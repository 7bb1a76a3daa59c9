package statemachine

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/arena"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/player"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-anim/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type world struct {
	clips   clip.Registry
	players player.Pool
	table   skeleton.Table
	comp    animator.Compositor
	sm      Engine

	anim    arena.Handle
	machine arena.Handle
	layer   arena.Handle
}

func newWorld(t *testing.T, opts ...EngineBuilderOption) *world {
	t.Helper()
	nop := logging.NewNop()
	w := &world{
		clips:   clip.NewRegistry(clip.WithLogger(nop)),
		players: player.NewPool(player.WithLogger(nop)),
		table:   skeleton.NewTable(skeleton.WithLogger(nop)),
	}
	w.comp = animator.NewCompositor(w.table, w.players, w.clips, animator.WithLogger(nop))
	w.sm = NewEngine(w.comp, w.players, append([]EngineBuilderOption{WithLogger(nop)}, opts...)...)

	s, err := w.table.AddSkeleton([]string{"root"}, []skeleton.BoneTransform{skeleton.NewBone(common.IdentityTransform())})
	require.NoError(t, err)
	w.anim, err = w.comp.NewAnimator(s)
	require.NoError(t, err)
	w.machine, err = w.sm.NewMachine(w.anim)
	require.NoError(t, err)
	w.layer, err = w.sm.NewLayer(w.machine)
	require.NoError(t, err)
	return w
}

// state adds a state to layer l playing a clip of the given duration.
func (w *world) state(t *testing.T, l arena.Handle, duration float32, x float32) arena.Handle {
	t.Helper()
	frames := int(duration * 10)
	b := &clip.Baked{Name: "c", FrameRate: 10, FrameCount: frames, BoneIDs: []uint32{skeleton.HashBoneName("root")}}
	for range frames {
		b.Frames = append(b.Frames, common.Transform{Position: [3]float32{x, 0, 0}, Rotation: common.QuatIdentity()})
	}
	c, err := w.clips.Register(b)
	require.NoError(t, err)
	p, err := w.players.New()
	require.NoError(t, err)
	w.players.SetClip(p, c, w.clips.Data(c))
	s, err := w.sm.NewState(p, w.machine, l)
	require.NoError(t, err)
	return s
}

// tick runs the phases of one scene tick serially.
func (w *world) tick(dt float32) {
	w.players.Update(dt, 0, w.players.Batches())
	w.sm.Evaluate(dt, 0, w.sm.MachineCount())
	w.sm.ResetTriggers()
	w.sm.TakeTransitioning()
	w.table.Blend(0, w.table.BoneCount(), w.clips, w.players)
	w.comp.Notify()
	w.sm.Notify()
}

func when(conds ...Condition) TransitionData {
	var d TransitionData
	copy(d.Conditions[0][:], conds)
	return d
}

func TestEmptyOrGroupNeverFires(t *testing.T) {
	w := newWorld(t)
	a := w.state(t, w.layer, 1, 0)
	b := w.state(t, w.layer, 1, 1)

	_, err := w.sm.NewTransition(a, TransitionData{Target: b})
	require.NoError(t, err)
	w.sm.Activate(w.machine)

	for range 1000 {
		w.tick(0.016)
		require.Equal(t, a, w.sm.ActiveState(w.layer))
	}
}

func TestFirstSatisfiedTransitionWins(t *testing.T) {
	w := newWorld(t)
	a := w.state(t, w.layer, 1, 0)
	b := w.state(t, w.layer, 1, 1)
	c := w.state(t, w.layer, 1, 2)
	go1, _ := w.sm.NewInput(w.machine, TypeBool)

	d := when(Condition{Kind: Equal, Input: go1, Value: BoolValue(true)})
	d.Target = b
	_, err := w.sm.NewTransition(a, d)
	require.NoError(t, err)
	d.Target = c
	_, err = w.sm.NewTransition(a, d)
	require.NoError(t, err)

	var entered []arena.Handle
	w.sm.OnStateChanged(w.machine, func(ev Event) { entered = append(entered, ev.State) })

	w.sm.Activate(w.machine)
	w.sm.SetBool(go1, true)
	w.tick(0.1)

	assert.Equal(t, b, w.sm.ActiveState(w.layer))
	assert.Equal(t, []arena.Handle{a, b}, entered)
}

func TestSecondOrGroupCanFire(t *testing.T) {
	w := newWorld(t)
	a := w.state(t, w.layer, 1, 0)
	b := w.state(t, w.layer, 1, 1)
	speed, _ := w.sm.NewInput(w.machine, TypeFloat)
	grounded, _ := w.sm.NewInput(w.machine, TypeBool)

	var d TransitionData
	d.Target = b
	d.Conditions[0][0] = Condition{Kind: Greater, Input: speed, Value: FloatValue(5)}
	d.Conditions[0][1] = Condition{Kind: Equal, Input: grounded, Value: BoolValue(true)}
	d.Conditions[3][4] = Condition{Kind: Less, Input: speed, Value: IntValue(2), Abs: true}
	_, err := w.sm.NewTransition(a, d)
	require.NoError(t, err)
	w.sm.Activate(w.machine)

	w.sm.SetFloat(speed, 6)
	w.tick(0.1)
	require.Equal(t, a, w.sm.ActiveState(w.layer), "first group needs both conditions")

	w.sm.SetFloat(speed, -1)
	w.tick(0.1)
	assert.Equal(t, b, w.sm.ActiveState(w.layer))
}

func TestTriggerResetsEveryTick(t *testing.T) {
	w := newWorld(t)
	a := w.state(t, w.layer, 1, 0)
	b := w.state(t, w.layer, 1, 1)
	jump, _ := w.sm.NewInput(w.machine, TypeTrigger)
	other, _ := w.sm.NewInput(w.machine, TypeTrigger)

	d := when(Condition{Kind: Trigger, Input: jump})
	d.Target = b
	_, err := w.sm.NewTransition(a, d)
	require.NoError(t, err)
	w.sm.Activate(w.machine)

	w.sm.Fire(jump)
	w.sm.Fire(other)
	w.tick(0.1)
	assert.Equal(t, b, w.sm.ActiveState(w.layer))
	assert.False(t, w.sm.Input(jump).Bool())
	assert.False(t, w.sm.Input(other).Bool(), "unconsumed triggers reset too")
}

func TestSyncStateCopiesPlaybackTime(t *testing.T) {
	w := newWorld(t)
	upper, err := w.sm.NewLayer(w.machine)
	require.NoError(t, err)

	walk := w.state(t, w.layer, 2, 0)
	idle := w.state(t, upper, 2, 1)
	wave := w.state(t, upper, 2, 2)
	require.NoError(t, w.sm.SetSyncState(wave, walk))

	go1, _ := w.sm.NewInput(w.machine, TypeTrigger)
	d := when(Condition{Kind: Trigger, Input: go1})
	d.Target = wave
	d.Time = 0.25
	_, err = w.sm.NewTransition(idle, d)
	require.NoError(t, err)

	w.sm.Activate(w.machine)
	for range 7 {
		w.tick(0.1)
	}
	w.sm.Fire(go1)
	w.tick(0.1)

	require.Equal(t, wave, w.sm.ActiveState(upper))
	assert.Equal(t, w.players.Time(w.sm.Player(walk)), w.players.Time(w.sm.Player(wave)))
	assert.Greater(t, w.players.Time(w.sm.Player(wave)), float32(0))
	assert.Equal(t, float32(0), w.players.Blend(w.sm.Player(wave)))
	assert.False(t, w.sm.Transitioning(upper))
}

func TestSyncStateFromOutgoingStateInSameLayer(t *testing.T) {
	w := newWorld(t)
	walk := w.state(t, w.layer, 2, 0)
	run := w.state(t, w.layer, 2, 1)
	require.NoError(t, w.sm.SetSyncState(run, walk))

	go1, _ := w.sm.NewInput(w.machine, TypeTrigger)
	d := when(Condition{Kind: Trigger, Input: go1})
	d.Target = run
	d.Time = 0.25
	_, err := w.sm.NewTransition(walk, d)
	require.NoError(t, err)

	w.sm.Activate(w.machine)
	for range 7 {
		w.tick(0.1)
	}
	before := w.players.Time(w.sm.Player(walk))
	require.Greater(t, before, float32(0))
	w.sm.Fire(go1)
	w.tick(0.1)

	require.Equal(t, run, w.sm.ActiveState(w.layer))
	assert.InDelta(t, before+0.1, w.players.Time(w.sm.Player(run)), 1e-4)
	assert.Equal(t, float32(0), w.players.Time(w.sm.Player(walk)))
}

func TestIsFinishedAndDwellTime(t *testing.T) {
	w := newWorld(t)
	land := w.state(t, w.layer, 0.5, 0)
	idle := w.state(t, w.layer, 1, 1)
	run := w.state(t, w.layer, 1, 2)

	d := when(Condition{Kind: IsFinished})
	d.Target = idle
	_, err := w.sm.NewTransition(land, d)
	require.NoError(t, err)

	d = when(Condition{Kind: TimeMin, Value: FloatValue(0.3)}, Condition{Kind: TimeMax, Value: IntValue(1)})
	d.Target = run
	_, err = w.sm.NewTransition(idle, d)
	require.NoError(t, err)

	finished := 0
	w.sm.OnStateFinished(w.machine, func(ev Event) {
		assert.Equal(t, land, ev.State)
		finished++
	})

	w.sm.Activate(w.machine)
	for range 4 {
		w.tick(0.1)
	}
	require.Equal(t, land, w.sm.ActiveState(w.layer))
	w.tick(0.2)
	require.Equal(t, idle, w.sm.ActiveState(w.layer))
	assert.Equal(t, 1, finished, "finishing state left in the same tick still notifies")

	w.tick(0.2)
	assert.Equal(t, idle, w.sm.ActiveState(w.layer))
	w.tick(0.2)
	assert.Equal(t, run, w.sm.ActiveState(w.layer))
}

func TestEnterAndLeaveWrites(t *testing.T) {
	w := newWorld(t)
	a := w.state(t, w.layer, 1, 0)
	b := w.state(t, w.layer, 1, 1)
	phase, _ := w.sm.NewOutput(w.machine, TypeInt)
	airborne, _ := w.sm.NewOutput(w.machine, TypeBool)
	jump, _ := w.sm.NewInput(w.machine, TypeTrigger)

	require.NoError(t, w.sm.AddEnterWrite(a, phase, IntValue(1)))
	require.NoError(t, w.sm.AddLeaveWrite(a, phase, IntValue(2)))
	require.NoError(t, w.sm.AddEnterWrite(b, airborne, BoolValue(true)))
	require.NoError(t, w.sm.AddEnterWrite(b, phase, FloatValue(3.7)))

	d := when(Condition{Kind: Trigger, Input: jump})
	d.Target = b
	_, err := w.sm.NewTransition(a, d)
	require.NoError(t, err)

	w.sm.Activate(w.machine)
	assert.Equal(t, 1, w.sm.Output(phase).Int())

	w.sm.Fire(jump)
	w.tick(0.1)
	assert.Equal(t, 3, w.sm.Output(phase).Int())
	assert.True(t, w.sm.Output(airborne).Bool())
}

func TestSpeedInputDrivesPlayer(t *testing.T) {
	w := newWorld(t)
	a := w.state(t, w.layer, 2, 0)
	speed, _ := w.sm.NewInput(w.machine, TypeFloat)
	require.NoError(t, w.sm.SetSpeedInput(a, speed))

	w.sm.Activate(w.machine)
	w.sm.SetFloat(speed, 2)
	w.tick(0.1)
	assert.Equal(t, float32(2), w.players.Speed(w.sm.Player(a)))
}

func TestCrossLayerTransitionRejected(t *testing.T) {
	w := newWorld(t)
	upper, _ := w.sm.NewLayer(w.machine)
	a := w.state(t, w.layer, 1, 0)
	b := w.state(t, upper, 1, 1)

	h, err := w.sm.NewTransition(a, TransitionData{Target: b})
	assert.Equal(t, arena.InvalidHandle, h)
	assert.True(t, errors.Is(err, arena.ErrInvalidConfiguration))
	assert.Equal(t, 0, w.sm.TransitionCount())
	assert.Empty(t, w.sm.Transitions(a))
}

func TestCrossMachineReferencesRejected(t *testing.T) {
	w := newWorld(t)
	a := w.state(t, w.layer, 1, 0)
	b := w.state(t, w.layer, 1, 1)

	other, err := w.sm.NewMachine(w.anim)
	require.NoError(t, err)
	foreign, _ := w.sm.NewInput(other, TypeBool)
	foreignOut, _ := w.sm.NewOutput(other, TypeBool)

	d := when(Condition{Kind: Equal, Input: foreign, Value: BoolValue(true)})
	d.Target = b
	_, err = w.sm.NewTransition(a, d)
	assert.True(t, errors.Is(err, arena.ErrInvalidConfiguration))
	assert.True(t, errors.Is(w.sm.AddEnterWrite(a, foreignOut, BoolValue(true)), arena.ErrInvalidConfiguration))
	assert.True(t, errors.Is(w.sm.SetSpeedInput(a, foreign), arena.ErrInvalidConfiguration))

	_, err = w.sm.NewState(w.sm.Player(a), other, w.layer)
	assert.True(t, errors.Is(err, arena.ErrInvalidConfiguration))
	assert.Equal(t, 2, w.sm.StateCount())
}

func TestConditionTypeChecks(t *testing.T) {
	w := newWorld(t)
	a := w.state(t, w.layer, 1, 0)
	b := w.state(t, w.layer, 1, 1)
	flag, _ := w.sm.NewInput(w.machine, TypeBool)
	count, _ := w.sm.NewInput(w.machine, TypeInt)

	for name, c := range map[string]Condition{
		"ordered bool":     {Kind: Greater, Input: flag, Value: BoolValue(true)},
		"numeric trigger":  {Kind: Trigger, Input: count},
		"bool against int": {Kind: Equal, Input: count, Value: BoolValue(true)},
		"unset threshold":  {Kind: TimeMin},
	} {
		d := when(c)
		d.Target = b
		_, err := w.sm.NewTransition(a, d)
		assert.True(t, errors.Is(err, arena.ErrInvalidConfiguration), name)
	}

	d := when(Condition{Kind: GreaterOrEqual, Input: count, Value: FloatValue(2.9)})
	d.Target = b
	h, err := w.sm.NewTransition(a, d)
	require.NoError(t, err)
	assert.Equal(t, IntValue(2), w.sm.Transition(h).Conditions[0][0].Value)
}

func TestNewStateExhaustionBindsNothing(t *testing.T) {
	w := newWorld(t, WithMaxStates(1))
	w.state(t, w.layer, 1, 0)

	p, err := w.players.New()
	require.NoError(t, err)
	c, _ := w.clips.Register(&clip.Baked{Name: "x", FrameRate: 10, FrameCount: 1,
		BoneIDs: []uint32{skeleton.HashBoneName("root")}, Frames: []common.Transform{common.IdentityTransform()}})
	w.players.SetClip(p, c, w.clips.Data(c))
	bindings := w.table.BindingCount()

	h, err := w.sm.NewState(p, w.machine, w.layer)
	assert.Equal(t, arena.InvalidHandle, h)
	assert.True(t, errors.Is(err, arena.ErrAllocationExhausted))
	assert.Equal(t, bindings, w.table.BindingCount())
}

func TestDeactivateClearsLayers(t *testing.T) {
	w := newWorld(t)
	a := w.state(t, w.layer, 1, 0)
	w.sm.Activate(w.machine)
	require.Equal(t, a, w.sm.ActiveState(w.layer))

	w.sm.Deactivate(w.machine)
	assert.False(t, w.sm.IsActive(w.machine))
	assert.Equal(t, arena.InvalidHandle, w.sm.ActiveState(w.layer))
	assert.Equal(t, animator.NoState, w.comp.Active(w.sm.CompositorLayer(w.layer)))
}

func TestValueAccessorMismatchPanics(t *testing.T) {
	if !arena.ContractChecks {
		t.Skip("contract checks disabled")
	}
	assert.Panics(t, func() { IntValue(1).Float() })

	w := newWorld(t)
	in, _ := w.sm.NewInput(w.machine, TypeInt)
	assert.Panics(t, func() { w.sm.SetBool(in, true) })
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		typ  ValueType
		text string
		want Value
	}{
		{TypeInt, "-3", IntValue(-3)},
		{TypeFloat, "0.25", FloatValue(0.25)},
		{TypeBool, "true", BoolValue(true)},
		{TypeTrigger, "1", TriggerValue(true)},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			v, err := ParseValue(tt.typ, tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}

	_, err := ParseValue(TypeInt, "1.5")
	assert.True(t, errors.Is(err, arena.ErrInvalidConfiguration))
}
