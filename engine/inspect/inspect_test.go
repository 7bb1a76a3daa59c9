package inspect

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/arena"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-anim/engine/statemachine"
	"github.com/Carmen-Shannon/oxy-anim/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rig struct {
	machine, idle, run, speed arena.Handle
}

func still(name string, frames int) *clip.Baked {
	b := &clip.Baked{Name: name, FrameRate: 10, FrameCount: frames, BoneIDs: []uint32{skeleton.HashBoneName("root")}}
	for range frames {
		b.Frames = append(b.Frames, common.IdentityTransform())
	}
	return b
}

func newRig(t *testing.T) (scene.Scene, rig) {
	t.Helper()
	s := scene.NewScene("inspect", scene.WithLogger(logging.NewNop()), scene.WithComputeWorkers(1))
	t.Cleanup(s.Close)

	var r rig
	require.NoError(t, s.Update(func(rt *scene.Runtime) error {
		sk, err := rt.Skeletons.AddSkeleton([]string{"root"}, []skeleton.BoneTransform{skeleton.NewBone(common.IdentityTransform())})
		require.NoError(t, err)
		a, _ := rt.Compositor.NewAnimator(sk)
		r.machine, _ = rt.Machines.NewMachine(a)
		l, _ := rt.Machines.NewLayer(r.machine)

		state := func(b *clip.Baked) arena.Handle {
			c, err := rt.Clips.Register(b)
			require.NoError(t, err)
			p, _ := rt.Players.New()
			rt.Players.SetClip(p, c, rt.Clips.Data(c))
			rt.Players.SetLooping(p, true)
			h, err := rt.Machines.NewState(p, r.machine, l)
			require.NoError(t, err)
			return h
		}
		r.idle = state(still("idle", 10))
		r.run = state(still("run", 5))
		r.speed, _ = rt.Machines.NewInput(r.machine, statemachine.TypeFloat)

		d := statemachine.TransitionData{Target: r.run, Time: 0.25}
		d.Conditions[0][0] = statemachine.Condition{Kind: statemachine.Greater, Input: r.speed, Value: statemachine.FloatValue(0.5)}
		_, err = rt.Machines.NewTransition(r.idle, d)
		require.NoError(t, err)
		rt.Machines.Activate(r.machine)
		return nil
	}))
	return s, r
}

func TestSummary(t *testing.T) {
	s, _ := newRig(t)
	s.Tick(0.1)

	sum := NewInspector(s).Summary()
	assert.Equal(t, "inspect", sum.Name)
	assert.Equal(t, uint64(1), sum.Ticks)
	assert.Equal(t, 2, sum.Clips)
	assert.Equal(t, 15, sum.Frames)
	assert.Equal(t, 2, sum.Players)
	assert.Equal(t, 1, sum.Machines)
	assert.Equal(t, 2, sum.States)
	assert.Equal(t, 1, sum.Transitions)
	assert.Equal(t, 1, sum.Inputs)
	assert.Equal(t, 2, sum.Bindings)
}

func TestMachineSnapshot(t *testing.T) {
	s, r := newRig(t)
	ins := NewInspector(s, WithLabels(Labels{
		Machines: map[arena.Handle]string{r.machine: "hero"},
		States:   map[arena.Handle]string{r.idle: "idle", r.run: "run"},
		Inputs:   map[arena.Handle]string{r.speed: "speed"},
	}))

	m, err := ins.Machine(r.machine)
	require.NoError(t, err)
	assert.Equal(t, "hero", m.Name)
	assert.True(t, m.Active)
	require.Len(t, m.Layers, 1)
	assert.Equal(t, r.idle, m.Layers[0].Active)
	assert.Equal(t, "idle", m.Layers[0].ActiveName)
	require.Len(t, m.Layers[0].States, 2)

	tr := m.Layers[0].States[0].Transitions
	require.Len(t, tr, 1)
	assert.Equal(t, "run", tr[0].TargetName)
	require.Len(t, tr[0].Groups, 1)
	assert.Equal(t, ConditionInfo{Kind: "gt", Input: r.speed, InputName: "speed", Value: float32(0.5)}, tr[0].Groups[0][0])

	require.Len(t, m.Inputs, 1)
	assert.Equal(t, "float", m.Inputs[0].Type)

	require.NoError(t, s.Update(func(rt *scene.Runtime) error {
		rt.Machines.SetFloat(r.speed, 1)
		return nil
	}))
	s.Tick(0.1)
	m, _ = ins.Machine(r.machine)
	assert.Equal(t, r.run, m.Layers[0].Active)
	assert.Less(t, m.Layers[0].Blend, float32(1))

	_, err = ins.Machine(7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlayerSnapshot(t *testing.T) {
	s, _ := newRig(t)
	s.Tick(0.35)

	ins := NewInspector(s)
	p, err := ins.Player(0)
	require.NoError(t, err)
	assert.Equal(t, "idle", p.ClipName)
	assert.True(t, p.Playing)
	assert.True(t, p.Looping)
	assert.Equal(t, 3, p.Frame)
	assert.Len(t, ins.Players(), 2)

	_, err = ins.Player(-1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHandler(t *testing.T) {
	s, r := newRig(t)
	srv := httptest.NewServer(NewHandler(NewInspector(s), logging.NewNop()))
	defer srv.Close()

	tests := []struct {
		path   string
		status int
	}{
		{"/summary", http.StatusOK},
		{"/machines", http.StatusOK},
		{"/machines/0", http.StatusOK},
		{"/machines/9", http.StatusNotFound},
		{"/machines/abc", http.StatusBadRequest},
		{"/players/1", http.StatusOK},
		{"/players/99", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	resp, err := http.Get(srv.URL + "/machines/0")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var m MachineInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	assert.Equal(t, r.machine, m.Handle)
	assert.Equal(t, r.idle, m.Layers[0].Active)
}
