package loader

import (
	"errors"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/arena"
	"github.com/Carmen-Shannon/oxy-anim/engine/inspect"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/Carmen-Shannon/oxy-anim/engine/statemachine"
	"github.com/Carmen-Shannon/oxy-anim/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader() Loader {
	return NewLoader(BackendTypeYAML, WithLogger(logging.NewNop()))
}

func newTestScene(t *testing.T) scene.Scene {
	t.Helper()
	s := scene.NewScene("loader", scene.WithLogger(logging.NewNop()), scene.WithComputeWorkers(1))
	t.Cleanup(s.Close)
	return s
}

func TestLoadCachesByPath(t *testing.T) {
	l := newTestLoader()
	r, err := l.Load("testdata/hero.yaml")
	require.NoError(t, err)
	assert.Equal(t, "hero", r.Name)
	assert.Len(t, r.Clips, 3)
	assert.Equal(t, 60, r.Clips[0].FrameCount())
	assert.Equal(t, 3, r.Clips[2].FrameCount())

	again, err := l.Load("testdata/hero.yaml")
	require.NoError(t, err)
	assert.Same(t, r, again)
	assert.Same(t, r, l.Get("testdata/hero.yaml"))
	assert.Len(t, l.Rigs(), 1)
}

func TestLoadRejectsUnsupportedFormat(t *testing.T) {
	_, err := newTestLoader().Load("hero.json")
	assert.ErrorContains(t, err, "unsupported rig format")
}

func TestLoadReaderRejectsUnknownFields(t *testing.T) {
	_, err := newTestLoader().LoadReader("typo", strings.NewReader("name: x\nskeletn: {}\n"))
	assert.ErrorContains(t, err, "decode yaml")

	_, err = newTestLoader().LoadReader("empty", strings.NewReader(""))
	assert.ErrorContains(t, err, "empty rig document")
}

func TestValidateReportsEveryProblem(t *testing.T) {
	doc := `
name: broken
skeleton:
  bones: [{name: hip}, {name: hip}]
clips:
  - {name: a, frameRate: 0, bones: [hip], frames: [[{pos: [0,0,0], rot: [0,0,0,1]}]]}
machines:
  - name: m
    inputs: [{name: speed, type: vector}, {name: on, type: bool, value: 3}]
    layers:
      - name: base
        default: missing
        states:
          - name: s
            clip: nope
            speedInput: on
            transitions:
              - to: elsewhere
                when: [[{kind: sometimes, input: speed}]]
      - name: upper
        states:
          - {name: u, clip: a, transitions: [{to: s, when: [[{kind: finished}]]}]}
`
	_, err := newTestLoader().LoadReader("broken", strings.NewReader(doc))
	require.Error(t, err)
	assert.True(t, errors.Is(err, arena.ErrInvalidConfiguration))
	for _, want := range []string{
		`bone "hip" is empty or duplicated`,
		`clip "a" frame rate must be positive`,
		`input "speed": unknown value type "vector"`,
		`input "on": cannot use int(3) as bool`,
		`default "missing" is not a state of the layer`,
		`clip "nope" is not declared`,
		`speed input "on" is not a numeric input`,
		`transition target "elsewhere" is not a state of the same layer`,
		`unknown condition kind "sometimes"`,
		`state "u" transition target "s" is not a state of the same layer`,
	} {
		assert.ErrorContains(t, err, want)
	}
}

func TestInstantiate(t *testing.T) {
	l := newTestLoader()
	r, err := l.Load("testdata/hero.yaml")
	require.NoError(t, err)
	s := newTestScene(t)

	inst, err := l.Instantiate(s, r)
	require.NoError(t, err)
	require.Len(t, inst.Bones, 3)
	loco := inst.Machine("locomotion")
	require.NotNil(t, loco)
	assert.Len(t, loco.States, 4)
	assert.Len(t, loco.Layers, 2)

	s.View(func(rt *scene.Runtime) {
		assert.Equal(t, 3, rt.Clips.Count())
		assert.Equal(t, 4, rt.Players.Count())
		assert.True(t, rt.Machines.IsActive(loco.Handle))
		assert.Equal(t, loco.States["idle"], rt.Machines.ActiveState(loco.Layers["base"]))
		assert.Equal(t, loco.States["rest"], rt.Machines.ActiveState(loco.Layers["upper"]))
		assert.Equal(t, loco.Inputs["speed"], rt.Machines.SpeedInput(loco.States["run"]))
		// the wave clip animates only the arm
		assert.Equal(t, 3+3+3+1, rt.Skeletons.BindingCount())
	})

	require.NoError(t, s.Update(func(rt *scene.Runtime) error {
		rt.Machines.SetFloat(loco.Inputs["speed"], 1)
		return nil
	}))
	s.Tick(1.0 / 30)
	s.View(func(rt *scene.Runtime) {
		assert.Equal(t, loco.States["run"], rt.Machines.ActiveState(loco.Layers["base"]))
		assert.True(t, rt.Machines.Output(loco.Outputs["moving"]).Bool())
	})
}

func TestInstantiateTwiceSharesClips(t *testing.T) {
	l := newTestLoader()
	r, err := l.Load("testdata/hero.yaml")
	require.NoError(t, err)
	s := newTestScene(t)

	a, err := l.Instantiate(s, r)
	require.NoError(t, err)
	b, err := l.Instantiate(s, r)
	require.NoError(t, err)

	assert.Equal(t, a.Clips, b.Clips)
	assert.NotEqual(t, a.Skeleton, b.Skeleton)
	s.View(func(rt *scene.Runtime) {
		assert.Equal(t, 3, rt.Clips.Count())
		assert.Equal(t, 2, rt.Machines.MachineCount())
	})
}

func TestInstantiateReportsPoolExhaustion(t *testing.T) {
	l := newTestLoader()
	r, err := l.Load("testdata/hero.yaml")
	require.NoError(t, err)

	cfg := scene.DefaultConfig()
	cfg.MaxPlayers = 2
	s := scene.NewScene("small", scene.WithLogger(logging.NewNop()), scene.WithConfig(cfg))
	t.Cleanup(s.Close)

	_, err = l.Instantiate(s, r)
	assert.ErrorIs(t, err, arena.ErrAllocationExhausted)
}

func TestLabels(t *testing.T) {
	l := newTestLoader()
	r, err := l.Load("testdata/hero.yaml")
	require.NoError(t, err)
	s := newTestScene(t)
	inst, err := l.Instantiate(s, r)
	require.NoError(t, err)

	var labels inspect.Labels
	inst.Labels(&labels, "hero")
	loco := inst.Machine("locomotion")
	assert.Equal(t, "hero/locomotion", labels.Machines[loco.Handle])
	assert.Equal(t, "waving", labels.States[loco.States["waving"]])
	assert.Equal(t, "speed", labels.Inputs[loco.Inputs["speed"]])

	m, err := inspect.NewInspector(s, inspect.WithLabels(labels)).Machine(loco.Handle)
	require.NoError(t, err)
	assert.Equal(t, "idle", m.Layers[0].ActiveName)
}

func TestToValue(t *testing.T) {
	v, err := toValue(statemachine.TypeFloat, 2)
	require.NoError(t, err)
	assert.Equal(t, statemachine.FloatValue(2), v)

	v, err = toValue(statemachine.TypeTrigger, nil)
	require.NoError(t, err)
	assert.False(t, v.Bool())

	_, err = toValue(statemachine.TypeInt, "three")
	assert.ErrorIs(t, err, arena.ErrInvalidConfiguration)
}
