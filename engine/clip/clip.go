package clip

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/arena"
	"github.com/cespare/xxhash/v2"
)

// Baked is an immutable clip produced by the external baking pipeline: a fixed-rate sampled
// pose per bone per frame. Frames are stored frame-major, so the pose of clip bone b at
// frame f is Frames[f*len(BoneIDs)+b].
type Baked struct {
	// Name is an optional label used in diagnostics and introspection.
	Name string
	// FrameRate is the sampling rate in frames per second and must be positive.
	FrameRate float32
	// FrameCount is the number of sampled frames and must be positive.
	FrameCount int
	// BoneIDs holds the hashed bone name of every clip-local bone index.
	BoneIDs []uint32
	// Frames holds FrameCount*len(BoneIDs) poses.
	Frames []common.Transform
}

// Data locates a registered clip inside the shared baked-frame store.
type Data struct {
	Name        string
	FrameRate   float32
	FrameOffset int
	FrameCount  int
	BoneCount   int
	Duration    float32
}

type entry struct {
	data        Data
	boneIndex   map[uint32]int
	fingerprint uint64
}

// registry is the implementation of the Registry interface.
type registry struct {
	logger *slog.Logger

	clips  *arena.Pool[entry]
	frames []common.Transform
	used   int

	byAsset       map[*Baked]arena.Handle
	byFingerprint map[uint64][]arena.Handle
}

// Registry deduplicates baked clips and maps each one to a slot in a shared, fixed-size
// baked-frame store. Registered clips are immutable and may be shared by any number of
// players.
type Registry interface {
	// Register adds a baked clip, or returns the handle of an identical clip registered
	// earlier. Identity is the asset pointer first and the clip content second.
	//
	// Parameters:
	//   - b: the baked clip
	//
	// Returns:
	//   - arena.Handle: the clip handle, or arena.InvalidHandle on failure
	//   - error: ErrAllocationExhausted when the clip pool or frame store is full,
	//     ErrInvalidConfiguration when the clip is malformed
	Register(b *Baked) (arena.Handle, error)

	// Data returns the frame-store location of a clip.
	//
	// Parameters:
	//   - h: the clip handle
	//
	// Returns:
	//   - Data: the clip's rate, offset, count and duration
	Data(h arena.Handle) Data

	// BoneIndex resolves a hashed bone name to the clip-local bone index.
	//
	// Parameters:
	//   - h: the clip handle
	//   - boneID: the hashed bone name
	//
	// Returns:
	//   - int: the clip-local index
	//   - bool: false when the clip has no curve for the bone
	BoneIndex(h arena.Handle, boneID uint32) (int, bool)

	// Frame returns the baked pose of a clip bone at a frame. The frame index is clamped to
	// the clip's range.
	//
	// Parameters:
	//   - h: the clip handle
	//   - frame: the frame index
	//   - bone: the clip-local bone index
	//
	// Returns:
	//   - common.Transform: the baked pose
	Frame(h arena.Handle, frame, bone int) common.Transform

	// Count returns the number of registered clips.
	Count() int

	// FramesUsed returns the number of poses held in the shared frame store.
	FramesUsed() int

	// Clear releases every clip and the whole frame store.
	Clear()
}

var _ Registry = &registry{}

// NewRegistry creates an empty registry.
//
// Parameters:
//   - options: variadic list of RegistryBuilderOption functions
//
// Returns:
//   - Registry: the registry
func NewRegistry(options ...RegistryBuilderOption) Registry {
	r := &registry{
		logger:        slog.Default(),
		byAsset:       make(map[*Baked]arena.Handle),
		byFingerprint: make(map[uint64][]arena.Handle),
	}
	cfg := registryConfig{maxClips: DefaultMaxClips, maxFrames: DefaultMaxFrames}
	for _, opt := range options {
		opt(&cfg, r)
	}
	r.clips = arena.NewPool[entry]("clip", cfg.maxClips)
	r.frames = make([]common.Transform, cfg.maxFrames)
	return r
}

func (r *registry) Register(b *Baked) (arena.Handle, error) {
	if b == nil {
		return arena.InvalidHandle, fmt.Errorf("nil clip: %w", arena.ErrInvalidConfiguration)
	}
	if h, ok := r.byAsset[b]; ok {
		return h, nil
	}
	if err := validate(b); err != nil {
		r.logger.Warn("rejecting baked clip", "clip", b.Name, "error", err)
		return arena.InvalidHandle, err
	}

	fp := fingerprint(b)
	for _, h := range r.byFingerprint[fp] {
		if r.sameContent(h, b) {
			r.byAsset[b] = h
			return h, nil
		}
	}

	n := len(b.Frames)
	if r.used+n > len(r.frames) {
		err := fmt.Errorf("baked frame store (%d/%d poses, need %d): %w", r.used, len(r.frames), n, arena.ErrAllocationExhausted)
		r.logger.Warn("clip registration failed", "clip", b.Name, "error", err)
		return arena.InvalidHandle, err
	}
	h, e, err := r.clips.Alloc()
	if err != nil {
		r.logger.Warn("clip registration failed", "clip", b.Name, "error", err)
		return arena.InvalidHandle, err
	}

	copy(r.frames[r.used:], b.Frames)
	e.data = Data{
		Name:        b.Name,
		FrameRate:   b.FrameRate,
		FrameOffset: r.used,
		FrameCount:  b.FrameCount,
		BoneCount:   len(b.BoneIDs),
		Duration:    float32(b.FrameCount) / b.FrameRate,
	}
	e.boneIndex = make(map[uint32]int, len(b.BoneIDs))
	for i, id := range b.BoneIDs {
		if _, dup := e.boneIndex[id]; !dup {
			e.boneIndex[id] = i
		}
	}
	e.fingerprint = fp
	r.used += n

	r.byAsset[b] = h
	r.byFingerprint[fp] = append(r.byFingerprint[fp], h)
	return h, nil
}

func (r *registry) Data(h arena.Handle) Data {
	return r.clips.Get(h).data
}

func (r *registry) BoneIndex(h arena.Handle, boneID uint32) (int, bool) {
	i, ok := r.clips.Get(h).boneIndex[boneID]
	return i, ok
}

func (r *registry) Frame(h arena.Handle, frame, bone int) common.Transform {
	d := &r.clips.Get(h).data
	arena.Require(bone >= 0 && bone < d.BoneCount, "clip %s bone %d out of range [0,%d)", h, bone, d.BoneCount)
	frame = min(max(frame, 0), d.FrameCount-1)
	return r.frames[d.FrameOffset+frame*d.BoneCount+bone]
}

func (r *registry) Count() int {
	return r.clips.Len()
}

func (r *registry) FramesUsed() int {
	return r.used
}

func (r *registry) Clear() {
	r.clips.Clear()
	clear(r.frames[:r.used])
	r.used = 0
	clear(r.byAsset)
	clear(r.byFingerprint)
}

// sameContent compares a registered clip against a candidate asset pose by pose.
func (r *registry) sameContent(h arena.Handle, b *Baked) bool {
	e := r.clips.Get(h)
	d := e.data
	if d.FrameRate != b.FrameRate || d.FrameCount != b.FrameCount || d.BoneCount != len(b.BoneIDs) {
		return false
	}
	for id, i := range e.boneIndex {
		if i >= len(b.BoneIDs) || b.BoneIDs[i] != id {
			return false
		}
	}
	return slices.Equal(r.frames[d.FrameOffset:d.FrameOffset+len(b.Frames)], b.Frames)
}

func validate(b *Baked) error {
	switch {
	case !(b.FrameRate > 0):
		return fmt.Errorf("clip %q frame rate %v: %w", b.Name, b.FrameRate, arena.ErrInvalidConfiguration)
	case b.FrameCount <= 0:
		return fmt.Errorf("clip %q frame count %d: %w", b.Name, b.FrameCount, arena.ErrInvalidConfiguration)
	case len(b.Frames) != b.FrameCount*len(b.BoneIDs):
		return fmt.Errorf("clip %q has %d poses, want %d frames x %d bones: %w",
			b.Name, len(b.Frames), b.FrameCount, len(b.BoneIDs), arena.ErrInvalidConfiguration)
	}
	return nil
}

// fingerprint hashes everything that makes two baked clips interchangeable.
func fingerprint(b *Baked) uint64 {
	d := xxhash.New()
	var buf [4]byte
	put := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[:], v)
		_, _ = d.Write(buf[:])
	}
	put(math.Float32bits(b.FrameRate))
	put(uint32(b.FrameCount))
	for _, id := range b.BoneIDs {
		put(id)
	}
	for _, f := range b.Frames {
		for _, v := range f.Position {
			put(math.Float32bits(v))
		}
		for _, v := range f.Rotation {
			put(math.Float32bits(v))
		}
	}
	return d.Sum64()
}
