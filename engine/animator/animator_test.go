package animator

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/arena"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/player"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-anim/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rig struct {
	clips   clip.Registry
	players player.Pool
	table   skeleton.Table
	comp    Compositor

	skel  arena.Handle
	bones []arena.Handle
	anim  arena.Handle
}

var boneNames = []string{"hip", "spine", "arm"}

func newRig(t *testing.T) *rig {
	t.Helper()
	nop := logging.NewNop()
	r := &rig{
		clips:   clip.NewRegistry(clip.WithLogger(nop)),
		players: player.NewPool(player.WithLogger(nop)),
		table:   skeleton.NewTable(skeleton.WithLogger(nop)),
	}
	r.comp = NewCompositor(r.table, r.players, r.clips, WithLogger(nop))

	transforms := make([]skeleton.BoneTransform, len(boneNames))
	for i := range transforms {
		transforms[i] = skeleton.NewBone(common.IdentityTransform())
	}
	var err error
	r.skel, err = r.table.AddSkeleton(boneNames, transforms)
	require.NoError(t, err)
	r.bones = r.table.Bones(r.skel)
	r.anim, err = r.comp.NewAnimator(r.skel)
	require.NoError(t, err)
	return r
}

// player creates a player for a two second clip holding x on every named bone.
func (r *rig) player(t *testing.T, name string, x float32, bones ...string) arena.Handle {
	t.Helper()
	b := &clip.Baked{Name: name, FrameRate: 10, FrameCount: 20}
	for _, n := range bones {
		b.BoneIDs = append(b.BoneIDs, skeleton.HashBoneName(n))
	}
	pose := common.Transform{Position: [3]float32{x, 0, 0}, Rotation: common.QuatIdentity()}
	for range 20 * len(bones) {
		b.Frames = append(b.Frames, pose)
	}
	c, err := r.clips.Register(b)
	require.NoError(t, err)
	p, err := r.players.New()
	require.NoError(t, err)
	r.players.SetClip(p, c, r.clips.Data(c))
	return p
}

func (r *rig) tick(dt float32) {
	r.players.Update(dt, 0, r.players.Batches())
	r.table.Blend(0, r.table.BoneCount(), r.clips, r.players)
	r.comp.Notify()
}

func (r *rig) x(bone int) float32 {
	return r.table.Local(r.bones[bone]).Position[0]
}

func TestLayersStackInOrder(t *testing.T) {
	r := newRig(t)
	base, err := r.comp.NewLayer(r.anim)
	require.NoError(t, err)
	top, err := r.comp.NewLayer(r.anim)
	require.NoError(t, err)

	assert.Equal(t, []arena.Handle{base, top}, r.comp.Layers(r.anim))
	assert.Equal(t, 1, r.comp.Order(top))
	assert.Equal(t, r.anim, r.comp.Animator(top))
	assert.Equal(t, NoState, r.comp.Active(base))
	assert.Equal(t, arena.InvalidHandle, r.comp.ActivePlayer(base))
}

func TestNewLayerExhaustion(t *testing.T) {
	r := newRig(t)
	r.comp = NewCompositor(r.table, r.players, r.clips, WithMaxLayers(1), WithLogger(logging.NewNop()))
	anim, err := r.comp.NewAnimator(r.skel)
	require.NoError(t, err)

	_, err = r.comp.NewLayer(anim)
	require.NoError(t, err)
	h, err := r.comp.NewLayer(anim)
	assert.Equal(t, arena.InvalidHandle, h)
	assert.True(t, errors.Is(err, arena.ErrAllocationExhausted))
	assert.Len(t, r.comp.Layers(anim), 1)
}

func TestAddStateTwiceIsRejected(t *testing.T) {
	r := newRig(t)
	l, _ := r.comp.NewLayer(r.anim)
	p := r.player(t, "idle", 1, boneNames...)

	i, err := r.comp.AddState(l, p)
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	i, err = r.comp.AddState(l, p)
	assert.Equal(t, NoState, i)
	assert.True(t, errors.Is(err, arena.ErrInvalidConfiguration))
	assert.Len(t, r.comp.States(l), 1)
}

func TestSetStateCrossFades(t *testing.T) {
	r := newRig(t)
	l, _ := r.comp.NewLayer(r.anim)
	idle := r.player(t, "idle", 2, boneNames...)
	walk := r.player(t, "walk", 4, boneNames...)
	_, err := r.comp.AddState(l, idle)
	require.NoError(t, err)
	_, err = r.comp.AddState(l, walk)
	require.NoError(t, err)

	r.comp.SetState(l, 0)
	r.tick(1)
	require.Equal(t, float32(2), r.x(0))

	r.comp.SetState(l, 1)
	assert.False(t, r.players.IsPlaying(idle), "previous player is reset")
	assert.True(t, r.players.IsPlaying(walk))
	assert.Equal(t, float32(2), r.table.Captured(r.bones[0]).Position[0])

	r.players.Update(0.1, 0, r.players.Batches())
	blend := r.players.Blend(walk)
	require.Less(t, blend, float32(1))
	r.table.Blend(0, r.table.BoneCount(), r.clips, r.players)
	assert.InDelta(t, common.Lerp(2, 4, blend), r.x(0), 1e-5)

	r.tick(1)
	assert.Equal(t, float32(4), r.x(0))
}

func TestSetStateUnchangedIsNoop(t *testing.T) {
	r := newRig(t)
	l, _ := r.comp.NewLayer(r.anim)
	p := r.player(t, "idle", 1, boneNames...)
	r.comp.AddState(l, p)

	r.comp.SetState(l, 0)
	r.tick(0.5)
	before := r.players.Time(p)

	r.comp.SetState(l, 0)
	assert.Equal(t, before, r.players.Time(p))
}

func TestUpperLayerOwnsItsBones(t *testing.T) {
	r := newRig(t)
	base, _ := r.comp.NewLayer(r.anim)
	upper, _ := r.comp.NewLayer(r.anim)
	walk := r.player(t, "walk", 1, boneNames...)
	wave := r.player(t, "wave", 7, "arm")
	r.comp.AddState(base, walk)
	r.comp.AddState(upper, wave)

	r.comp.SetState(base, 0)
	r.comp.SetState(upper, 0)

	walkHip, _ := r.table.Binding(r.bones[0], walk)
	waveArm, _ := r.table.Binding(r.bones[2], wave)
	assert.Equal(t, walkHip, r.table.Authority(r.bones[0]))
	assert.Equal(t, waveArm, r.table.Authority(r.bones[2]))

	r.tick(1)
	assert.Equal(t, float32(1), r.x(0))
	assert.Equal(t, float32(7), r.x(2))
}

func TestClearStateReturnsBonesToLowerLayer(t *testing.T) {
	r := newRig(t)
	base, _ := r.comp.NewLayer(r.anim)
	upper, _ := r.comp.NewLayer(r.anim)
	walk := r.player(t, "walk", 1, boneNames...)
	wave := r.player(t, "wave", 7, "arm")
	r.comp.AddState(base, walk)
	r.comp.AddState(upper, wave)
	r.comp.SetState(base, 0)
	r.comp.SetState(upper, 0)
	r.tick(1)
	require.Equal(t, float32(7), r.x(2))

	r.comp.ClearState(upper)
	assert.Equal(t, NoState, r.comp.Active(upper))
	walkArm, _ := r.table.Binding(r.bones[2], walk)
	assert.Equal(t, walkArm, r.table.Authority(r.bones[2]))
	assert.Equal(t, float32(7), r.table.Captured(r.bones[2]).Position[0], "lower layer fades from the current pose")
	assert.Equal(t, float32(0), r.players.Blend(walk))
	assert.True(t, r.comp.Fading(base))

	r.tick(1)
	assert.Equal(t, float32(1), r.x(2))
}

func TestNotifyFiresOncePerActivation(t *testing.T) {
	r := newRig(t)
	l, _ := r.comp.NewLayer(r.anim)
	p := r.player(t, "jump", 1, boneNames...)
	r.comp.AddState(l, p)

	var finished, faded int
	r.comp.OnFinished(l, func(ev LayerEvent) {
		assert.Equal(t, p, ev.Player)
		finished++
	})
	r.comp.OnTransitionFinished(l, func(LayerEvent) { faded++ })

	r.comp.SetState(l, 0)
	for range 10 {
		r.tick(0.5)
	}
	assert.Equal(t, 1, finished)
	assert.Equal(t, 1, faded)
	assert.False(t, r.comp.Fading(l))
}

func TestSetStateOutOfRangePanics(t *testing.T) {
	if !arena.ContractChecks {
		t.Skip("contract checks disabled")
	}
	r := newRig(t)
	l, _ := r.comp.NewLayer(r.anim)
	assert.Panics(t, func() { r.comp.SetState(l, 3) })
}
