package player

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/arena"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, opts ...PoolBuilderOption) Pool {
	t.Helper()
	return NewPool(append([]PoolBuilderOption{WithLogger(logging.NewNop())}, opts...)...)
}

// clipData describes a clip of the given duration sampled at 30 fps.
func clipData(duration float32) clip.Data {
	return clip.Data{FrameRate: 30, FrameCount: int(duration * 30), Duration: duration}
}

func tick(p Pool, dt float32) {
	p.Update(dt, 0, p.Batches())
}

func TestNewAllocatesUpToCapacity(t *testing.T) {
	p := newTestPool(t, WithCapacity(6))

	for i := 0; i < 6; i++ {
		h, err := p.New()
		require.NoError(t, err)
		assert.Equal(t, arena.Handle(i), h)
	}
	assert.Equal(t, 2, p.Batches())

	h, err := p.New()
	assert.Equal(t, arena.InvalidHandle, h)
	assert.True(t, errors.Is(err, arena.ErrAllocationExhausted))
	assert.Equal(t, 6, p.Count())
}

func TestSetClipBindsOnce(t *testing.T) {
	p := newTestPool(t)
	h, _ := p.New()

	assert.True(t, p.SetClip(h, 3, clipData(1)))
	assert.False(t, p.SetClip(h, 4, clipData(5)))
	assert.Equal(t, arena.Handle(3), p.Clip(h))
	assert.InDelta(t, 1.0, p.Duration(h), 1e-6)
}

func TestPlaySetsBlendInterpolant(t *testing.T) {
	p := newTestPool(t)
	h, _ := p.New()
	p.SetClip(h, 0, clipData(2))

	p.Play(h, 0.5)
	assert.True(t, p.IsPlaying(h))
	assert.Equal(t, float32(0), p.Blend(h))
	assert.Equal(t, float32(0), p.Time(h))

	tick(p, 0.25)
	assert.InDelta(t, 0.5, p.Blend(h), 1e-6)
	tick(p, 0.5)
	assert.Equal(t, float32(1), p.Blend(h))

	p.Play(h, 0)
	assert.Equal(t, float32(1), p.Blend(h))
}

func TestPlayWithDefaultBlendUsesRampRate(t *testing.T) {
	p := newTestPool(t, WithDefaultBlendRate(2))
	h, _ := p.New()
	p.SetClip(h, 0, clipData(2))

	p.Play(h, UseDefaultBlend)
	assert.Equal(t, float32(0), p.Blend(h))
	tick(p, 0.25)
	assert.InDelta(t, 0.5, p.Blend(h), 1e-6)
}

func TestNonLoopingPlayerFinishesOnce(t *testing.T) {
	p := newTestPool(t)
	h, _ := p.New()
	p.SetClip(h, 0, clipData(2))
	p.Play(h, 0)

	fired := 0
	for i := 0; i < 10; i++ {
		tick(p, 0.5)
		if p.JustFinished(h) {
			fired++
		}
	}

	assert.Equal(t, 1, fired)
	assert.True(t, p.IsFinished(h))
	assert.False(t, p.IsPlaying(h))
	assert.Less(t, p.Time(h), float32(2))
	assert.InDelta(t, 2.0, p.Time(h), 1e-3)
	assert.Equal(t, 59, p.Frame(h))
}

func TestLoopingPlayerWrapsToZero(t *testing.T) {
	p := newTestPool(t)
	h, _ := p.New()
	p.SetClip(h, 0, clipData(1.5))
	p.SetLooping(h, true)
	p.Play(h, 0)

	tick(p, 1.0)
	assert.Equal(t, 30, p.Frame(h))
	tick(p, 1.0)
	assert.Equal(t, float32(0), p.Time(h))
	assert.Equal(t, 0, p.Frame(h))
	assert.False(t, p.IsFinished(h))

	for i := 0; i < 100; i++ {
		tick(p, 0.4)
		assert.False(t, p.IsFinished(h))
		assert.True(t, p.IsPlaying(h))
	}
}

func TestFrameIndexFollowsTime(t *testing.T) {
	p := newTestPool(t)
	h, _ := p.New()
	p.SetClip(h, 0, clipData(2))
	p.Play(h, 0)

	tick(p, 0.1)
	assert.Equal(t, 3, p.Frame(h))
	p.SetSpeed(h, 2)
	tick(p, 0.1)
	assert.Equal(t, 9, p.Frame(h))
}

func TestSpeedIsClamped(t *testing.T) {
	p := newTestPool(t, WithSpeedRange(0, 3))
	h, _ := p.New()

	p.SetSpeed(h, 7)
	assert.Equal(t, float32(3), p.Speed(h))
	p.SetSpeed(h, -1)
	assert.Equal(t, float32(0), p.Speed(h))
}

func TestResetKeepsBlend(t *testing.T) {
	p := newTestPool(t)
	h, _ := p.New()
	p.SetClip(h, 0, clipData(2))
	p.Play(h, 1)
	tick(p, 0.5)

	p.Reset(h)
	assert.False(t, p.IsPlaying(h))
	assert.Equal(t, float32(0), p.Time(h))
	assert.Equal(t, 0, p.Frame(h))
	assert.InDelta(t, 0.5, p.Blend(h), 1e-6)
}

func TestPlayFromStartsAtSyncedTime(t *testing.T) {
	p := newTestPool(t)
	h, _ := p.New()
	p.SetClip(h, 0, clipData(2))

	p.PlayFrom(h, 0.2, 1.0)
	assert.Equal(t, float32(1), p.Time(h))
	assert.Equal(t, 30, p.Frame(h))

	p.PlayFrom(h, 0, 5)
	assert.Less(t, p.Time(h), float32(2))
}

func TestUpdateRangeTouchesOnlyItsBatches(t *testing.T) {
	p := newTestPool(t)
	var hs []arena.Handle
	for i := 0; i < 2*LaneWidth; i++ {
		h, _ := p.New()
		p.SetClip(h, 0, clipData(2))
		p.Play(h, 0)
		hs = append(hs, h)
	}

	p.Update(0.5, 1, 2)
	for i, h := range hs {
		if i < LaneWidth {
			assert.Equal(t, float32(0), p.Time(h))
		} else {
			assert.Equal(t, float32(0.5), p.Time(h))
		}
	}
}

func TestInvalidHandlePanics(t *testing.T) {
	p := newTestPool(t)
	require.Panics(t, func() { p.Play(arena.InvalidHandle, 0) })
	require.Panics(t, func() { p.Time(0) })
}
