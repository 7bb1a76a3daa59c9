package player

import (
	"log/slog"
	"math"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/arena"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
)

// LaneWidth is the number of players stored side by side in one batch. Update walks a
// batch lane by lane over fixed-size arrays so the loop body stays branch-light.
const LaneWidth = 4

// UseDefaultBlend can be passed as the blend duration to Play, PlayFrom and RestartBlend to
// fade in at the pool's default ramp rate instead of a per-call duration.
const UseDefaultBlend float32 = -1

// batch holds LaneWidth players in structure-of-arrays form.
type batch struct {
	clip       [LaneWidth]arena.Handle
	frameRate  [LaneWidth]float32
	frameCount [LaneWidth]int32
	duration   [LaneWidth]float32

	time, speed      [LaneWidth]float32
	blend, blendRate [LaneWidth]float32
	frame            [LaneWidth]int32

	playing, looping, finished, justFinished [LaneWidth]bool
}

// pool is the implementation of the Pool interface.
type pool struct {
	logger *slog.Logger

	slots   arena.Slots
	batches []batch

	defaultBlendRate   float32
	minSpeed, maxSpeed float32
	finishEpsilon      float32
}

// Pool stores the playback state of every clip instance.
//
// Players live in fixed-size batches of LaneWidth lanes; a player's handle addresses batch
// h/LaneWidth, lane h%LaneWidth. The pool is not internally synchronized: the owning scene
// grants exclusive access per tick phase, and Update may run concurrently only over
// disjoint batch ranges.
type Pool interface {
	// New allocates a stopped player with speed 1 and a settled blend.
	//
	// Returns:
	//   - arena.Handle: the player handle, or arena.InvalidHandle when the pool is full
	//   - error: ErrAllocationExhausted when the pool is full
	New() (arena.Handle, error)

	// SetClip binds a registered clip to a player. A player's clip is bound once; re-binding
	// logs a warning and leaves the player unchanged.
	//
	// Parameters:
	//   - p: the player handle
	//   - c: the clip handle
	//   - data: the clip's registry data
	//
	// Returns:
	//   - bool: true if the clip was bound by this call
	SetClip(p, c arena.Handle, data clip.Data) bool

	// Play starts the player from time 0. A positive blendSeconds fades the player in over
	// that duration (blend factor restarts at 0); zero snaps the blend factor to 1;
	// UseDefaultBlend fades in at the default ramp rate.
	//
	// Parameters:
	//   - p: the player handle
	//   - blendSeconds: the fade-in duration
	Play(p arena.Handle, blendSeconds float32)

	// PlayFrom is Play starting at the given playback time, used when a state syncs its
	// time to another state's player.
	//
	// Parameters:
	//   - p: the player handle
	//   - blendSeconds: the fade-in duration, see Play
	//   - start: the initial playback time in seconds
	PlayFrom(p arena.Handle, blendSeconds, start float32)

	// Reset stops and rewinds the player and clears its finished flag. The blend factor is
	// left untouched.
	//
	// Parameters:
	//   - p: the player handle
	Reset(p arena.Handle)

	// SetLooping sets whether the player wraps at the end of its clip.
	//
	// Parameters:
	//   - p: the player handle
	//   - looping: the looping flag
	SetLooping(p arena.Handle, looping bool)

	// SetSpeed sets the playback speed multiplier, clamped to the pool's legal range.
	//
	// Parameters:
	//   - p: the player handle
	//   - speed: the speed multiplier
	SetSpeed(p arena.Handle, speed float32)

	// SetTime moves the playhead without changing any flag.
	//
	// Parameters:
	//   - p: the player handle
	//   - t: the playback time in seconds
	SetTime(p arena.Handle, t float32)

	// RestartBlend restarts the fade-in of a playing player without touching its playhead.
	//
	// Parameters:
	//   - p: the player handle
	//   - blendSeconds: the fade-in duration, see Play
	RestartBlend(p arena.Handle, blendSeconds float32)

	// Clip returns the bound clip, or arena.InvalidHandle.
	Clip(p arena.Handle) arena.Handle
	// Time returns the playback time in seconds.
	Time(p arena.Handle) float32
	// Speed returns the playback speed multiplier.
	Speed(p arena.Handle) float32
	// Duration returns the bound clip's duration in seconds.
	Duration(p arena.Handle) float32
	// Blend returns the cross-fade interpolant in [0, 1].
	Blend(p arena.Handle) float32
	// Frame returns the current frame index into the bound clip.
	Frame(p arena.Handle) int
	// IsPlaying reports whether the player is advancing.
	IsPlaying(p arena.Handle) bool
	// IsLooping reports whether the player wraps at the end of its clip.
	IsLooping(p arena.Handle) bool
	// IsFinished reports whether a non-looping player has reached the end of its clip.
	IsFinished(p arena.Handle) bool
	// JustFinished reports whether the player finished during the most recent Update.
	JustFinished(p arena.Handle) bool

	// Count returns the number of allocated players.
	Count() int
	// Capacity returns the fixed player capacity.
	Capacity() int
	// Batches returns the number of batches covering the allocated players.
	Batches() int

	// Update advances every allocated player in batches [lo, hi) by dt seconds.
	//
	// Parameters:
	//   - dt: the tick delta time in seconds
	//   - lo: the first batch index
	//   - hi: one past the last batch index
	Update(dt float32, lo, hi int)

	// Clear releases every player.
	Clear()
}

var _ Pool = &pool{}

// NewPool creates a player pool.
//
// Parameters:
//   - options: variadic list of PoolBuilderOption functions
//
// Returns:
//   - Pool: the empty pool
func NewPool(options ...PoolBuilderOption) Pool {
	p := &pool{
		logger:           slog.Default(),
		slots:            arena.NewSlots("player", DefaultCapacity),
		defaultBlendRate: DefaultBlendRate,
		minSpeed:         DefaultMinSpeed,
		maxSpeed:         DefaultMaxSpeed,
		finishEpsilon:    DefaultFinishEpsilon,
	}
	for _, opt := range options {
		opt(p)
	}
	p.batches = make([]batch, (p.slots.Cap()+LaneWidth-1)/LaneWidth)
	p.resetLanes()
	return p
}

func (p *pool) resetLanes() {
	for i := range p.batches {
		p.batches[i] = batch{}
		for l := range LaneWidth {
			p.batches[i].clip[l] = arena.InvalidHandle
		}
	}
}

// lane resolves a handle to its batch and lane, enforcing the handle contract.
func (p *pool) lane(h arena.Handle) (*batch, int) {
	p.slots.Check(h)
	return &p.batches[int(h)/LaneWidth], int(h) % LaneWidth
}

func (p *pool) New() (arena.Handle, error) {
	h, err := p.slots.Next()
	if err != nil {
		p.logger.Warn("player allocation failed", "error", err)
		return arena.InvalidHandle, err
	}
	b, l := p.lane(h)
	b.clip[l] = arena.InvalidHandle
	b.frameRate[l], b.frameCount[l], b.duration[l] = 0, 0, 0
	b.time[l], b.speed[l] = 0, 1
	b.blend[l], b.blendRate[l] = 1, p.defaultBlendRate
	b.frame[l] = 0
	b.playing[l], b.looping[l], b.finished[l], b.justFinished[l] = false, false, false, false
	return h, nil
}

func (p *pool) SetClip(h, c arena.Handle, data clip.Data) bool {
	b, l := p.lane(h)
	if b.clip[l].Valid() {
		p.logger.Warn("player already has a clip, ignoring re-bind", "player", h, "bound", b.clip[l], "requested", c)
		return false
	}
	b.clip[l] = c
	b.frameRate[l] = data.FrameRate
	b.frameCount[l] = int32(data.FrameCount)
	b.duration[l] = data.Duration
	return true
}

func (p *pool) Play(h arena.Handle, blendSeconds float32) {
	p.PlayFrom(h, blendSeconds, 0)
}

func (p *pool) PlayFrom(h arena.Handle, blendSeconds, start float32) {
	b, l := p.lane(h)
	p.startBlend(b, l, blendSeconds)
	b.playing[l] = true
	b.finished[l] = false
	b.justFinished[l] = false
	p.seek(b, l, start)
}

func (p *pool) Reset(h arena.Handle) {
	b, l := p.lane(h)
	b.playing[l] = false
	b.finished[l] = false
	b.justFinished[l] = false
	b.time[l] = 0
	b.frame[l] = 0
}

func (p *pool) SetLooping(h arena.Handle, looping bool) {
	b, l := p.lane(h)
	b.looping[l] = looping
}

func (p *pool) SetSpeed(h arena.Handle, speed float32) {
	b, l := p.lane(h)
	b.speed[l] = common.Clamp(speed, p.minSpeed, p.maxSpeed)
}

func (p *pool) SetTime(h arena.Handle, t float32) {
	b, l := p.lane(h)
	p.seek(b, l, t)
}

func (p *pool) RestartBlend(h arena.Handle, blendSeconds float32) {
	b, l := p.lane(h)
	p.startBlend(b, l, blendSeconds)
}

func (p *pool) startBlend(b *batch, l int, blendSeconds float32) {
	switch {
	case blendSeconds > 0:
		b.blend[l] = 0
		b.blendRate[l] = 1 / blendSeconds
	case blendSeconds < 0:
		b.blend[l] = 0
		b.blendRate[l] = p.defaultBlendRate
	default:
		b.blend[l] = 1
	}
}

func (p *pool) seek(b *batch, l int, t float32) {
	if t < 0 {
		t = 0
	}
	if d := b.duration[l]; d > 0 && t >= d {
		t = d - p.finishEpsilon
	}
	b.time[l] = t
	b.frame[l] = frameAt(b.frameRate[l], b.frameCount[l], t)
}

func (p *pool) Clip(h arena.Handle) arena.Handle {
	b, l := p.lane(h)
	return b.clip[l]
}

func (p *pool) Time(h arena.Handle) float32 {
	b, l := p.lane(h)
	return b.time[l]
}

func (p *pool) Speed(h arena.Handle) float32 {
	b, l := p.lane(h)
	return b.speed[l]
}

func (p *pool) Duration(h arena.Handle) float32 {
	b, l := p.lane(h)
	return b.duration[l]
}

func (p *pool) Blend(h arena.Handle) float32 {
	b, l := p.lane(h)
	return b.blend[l]
}

func (p *pool) Frame(h arena.Handle) int {
	b, l := p.lane(h)
	return int(b.frame[l])
}

func (p *pool) IsPlaying(h arena.Handle) bool {
	b, l := p.lane(h)
	return b.playing[l]
}

func (p *pool) IsLooping(h arena.Handle) bool {
	b, l := p.lane(h)
	return b.looping[l]
}

func (p *pool) IsFinished(h arena.Handle) bool {
	b, l := p.lane(h)
	return b.finished[l]
}

func (p *pool) JustFinished(h arena.Handle) bool {
	b, l := p.lane(h)
	return b.justFinished[l]
}

func (p *pool) Count() int {
	return p.slots.Len()
}

func (p *pool) Capacity() int {
	return p.slots.Cap()
}

func (p *pool) Batches() int {
	return (p.slots.Len() + LaneWidth - 1) / LaneWidth
}

func (p *pool) Update(dt float32, lo, hi int) {
	hi = min(hi, p.Batches())
	for i := max(lo, 0); i < hi; i++ {
		b := &p.batches[i]
		for l := range LaneWidth {
			if !b.clip[l].Valid() {
				continue
			}
			b.justFinished[l] = false

			if b.blend[l] < 1 {
				b.blend[l] = min(b.blend[l]+dt*b.blendRate[l], 1)
			}

			if !b.playing[l] {
				continue
			}
			b.time[l] += dt * b.speed[l]

			if b.time[l] >= b.duration[l] {
				if b.looping[l] {
					b.time[l] = 0
					b.frame[l] = 0
					b.finished[l] = false
					continue
				}
				b.time[l] = b.duration[l] - p.finishEpsilon
				b.frame[l] = b.frameCount[l] - 1
				b.playing[l] = false
				if !b.finished[l] {
					b.finished[l] = true
					b.justFinished[l] = true
				}
				continue
			}
			b.frame[l] = frameAt(b.frameRate[l], b.frameCount[l], b.time[l])
		}
	}
}

func (p *pool) Clear() {
	p.slots.Reset()
	p.resetLanes()
}

// frameAt returns floor(rate*t) clamped to the clip's last frame.
func frameAt(rate float32, count int32, t float32) int32 {
	if count <= 0 {
		return 0
	}
	f := int32(math.Floor(float64(rate * t)))
	return min(max(f, 0), count-1)
}
