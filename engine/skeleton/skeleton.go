package skeleton

import (
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/arena"
)

// FrameSource samples baked poses. clip.Registry satisfies it.
type FrameSource interface {
	Frame(h arena.Handle, frame, bone int) common.Transform
	BoneIndex(h arena.Handle, boneID uint32) (int, bool)
}

// PlaybackSource exposes the per-player state the blend pass reads. player.Pool satisfies it.
type PlaybackSource interface {
	Clip(p arena.Handle) arena.Handle
	Frame(p arena.Handle) int
	Blend(p arena.Handle) float32
}

type skeletonEntry struct {
	firstSlot int
	names     []string
}

type boneSlot struct {
	skeleton  arena.Handle
	index     int
	id        uint32
	transform BoneTransform
	rest      common.Transform
	captured  common.Transform
	authority arena.Handle
}

// Binding records which player a skeleton bone samples and at which clip-local bone index.
type Binding struct {
	Bone     arena.Handle
	Player   arena.Handle
	ClipBone int
}

type bindingKey struct {
	bone, player arena.Handle
}

// table is the implementation of the Table interface.
type table struct {
	logger *slog.Logger
	hasher BoneHasher

	skeletons *arena.Pool[skeletonEntry]
	bones     *arena.Pool[boneSlot]
	bindings  *arena.Pool[Binding]
	byKey     map[bindingKey]arena.Handle
}

// Table owns skeletons, their bone slots and the bone binding table, and runs the bone
// blend pass. Bone slots of one skeleton are contiguous and never shared between
// skeletons, so Blend can run concurrently over disjoint slot ranges.
type Table interface {
	// AddSkeleton registers a skeleton from the host's bone transform handles. The current
	// local pose of every bone is captured as its rest pose.
	//
	// Parameters:
	//   - names: the bone names, one per transform
	//   - bones: the bone transform handles
	//
	// Returns:
	//   - arena.Handle: the skeleton handle, or arena.InvalidHandle on failure
	//   - error: ErrAllocationExhausted when the skeleton or bone pool is full,
	//     ErrInvalidConfiguration when names and bones disagree
	AddSkeleton(names []string, bones []BoneTransform) (arena.Handle, error)

	// Bones returns the bone slot handles of a skeleton in skeleton order.
	//
	// Parameters:
	//   - s: the skeleton handle
	//
	// Returns:
	//   - []arena.Handle: the bone slots
	Bones(s arena.Handle) []arena.Handle

	// BoneName returns the name of a bone slot.
	BoneName(bone arena.Handle) string

	// Bind creates one binding per skeleton bone the player's clip has a curve for.
	// Binding a player to the same skeleton twice is rejected without allocating.
	//
	// Parameters:
	//   - s: the skeleton handle
	//   - p: the player handle (its clip must be set)
	//   - clips: the clip sampler used to resolve bone identifiers
	//   - players: the playback source used to read the player's clip
	//
	// Returns:
	//   - []arena.Handle: the new binding handles
	//   - error: ErrAllocationExhausted or ErrInvalidConfiguration
	Bind(s, p arena.Handle, clips FrameSource, players PlaybackSource) ([]arena.Handle, error)

	// Binding looks up the binding of a bone slot to a player.
	//
	// Returns:
	//   - arena.Handle: the binding handle
	//   - bool: false when the player's clip has no curve for the bone
	Binding(bone, p arena.Handle) (arena.Handle, bool)

	// BindingData returns a binding by handle.
	BindingData(b arena.Handle) Binding

	// SetAuthority selects the binding whose pose the blend pass writes to a bone slot.
	// arena.InvalidHandle leaves the bone untouched by the blend pass.
	SetAuthority(bone, b arena.Handle)

	// Authority returns the binding currently written to a bone slot.
	Authority(bone arena.Handle) arena.Handle

	// Capture snapshots the bone's current local pose as the outgoing cross-fade pose.
	Capture(bone arena.Handle)

	// Captured returns the outgoing cross-fade pose of a bone slot.
	Captured(bone arena.Handle) common.Transform

	// Rest returns the rest pose captured when the skeleton was added.
	Rest(bone arena.Handle) common.Transform

	// Local returns the bone's current local pose.
	Local(bone arena.Handle) common.Transform

	// SkeletonCount, BoneCount and BindingCount return the allocated pool sizes.
	SkeletonCount() int
	BoneCount() int
	BindingCount() int

	// Blend writes the blended local pose of every bone slot in [lo, hi).
	//
	// Parameters:
	//   - lo: the first bone slot index
	//   - hi: one past the last bone slot index
	//   - clips: the baked frame source
	//   - players: the playback state source
	Blend(lo, hi int, clips FrameSource, players PlaybackSource)

	// Clear releases every skeleton, bone slot and binding.
	Clear()
}

var _ Table = &table{}

// NewTable creates an empty skeleton and binding table.
//
// Parameters:
//   - options: variadic list of TableBuilderOption functions
//
// Returns:
//   - Table: the table
func NewTable(options ...TableBuilderOption) Table {
	t := &table{
		logger: slog.Default(),
		hasher: HashBoneName,
		byKey:  make(map[bindingKey]arena.Handle),
	}
	cfg := tableConfig{
		maxSkeletons: DefaultMaxSkeletons,
		maxBones:     DefaultMaxBones,
		maxBindings:  DefaultMaxBindings,
	}
	for _, opt := range options {
		opt(&cfg, t)
	}
	t.skeletons = arena.NewPool[skeletonEntry]("skeleton", cfg.maxSkeletons)
	t.bones = arena.NewPool[boneSlot]("bone", cfg.maxBones)
	t.bindings = arena.NewPool[Binding]("binding", cfg.maxBindings)
	return t
}

func (t *table) AddSkeleton(names []string, bones []BoneTransform) (arena.Handle, error) {
	if len(names) != len(bones) {
		err := fmt.Errorf("skeleton has %d names for %d bones: %w", len(names), len(bones), arena.ErrInvalidConfiguration)
		t.logger.Warn("rejecting skeleton", "error", err)
		return arena.InvalidHandle, err
	}
	if free := t.bones.Cap() - t.bones.Len(); free < len(bones) {
		err := fmt.Errorf("bone pool has %d free slots, skeleton needs %d: %w", free, len(bones), arena.ErrAllocationExhausted)
		t.logger.Warn("skeleton allocation failed", "error", err)
		return arena.InvalidHandle, err
	}
	h, s, err := t.skeletons.Alloc()
	if err != nil {
		t.logger.Warn("skeleton allocation failed", "error", err)
		return arena.InvalidHandle, err
	}
	s.firstSlot = t.bones.Len()
	s.names = append([]string(nil), names...)

	for i, b := range bones {
		_, slot, _ := t.bones.Alloc()
		rest := b.Local()
		*slot = boneSlot{
			skeleton:  h,
			index:     i,
			id:        t.hasher(names[i]),
			transform: b,
			rest:      rest,
			captured:  rest,
			authority: arena.InvalidHandle,
		}
	}
	return h, nil
}

func (t *table) Bones(s arena.Handle) []arena.Handle {
	e := t.skeletons.Get(s)
	out := make([]arena.Handle, len(e.names))
	for i := range out {
		out[i] = arena.Handle(e.firstSlot + i)
	}
	return out
}

func (t *table) BoneName(bone arena.Handle) string {
	slot := t.bones.Get(bone)
	return t.skeletons.Get(slot.skeleton).names[slot.index]
}

func (t *table) Bind(s, p arena.Handle, clips FrameSource, players PlaybackSource) ([]arena.Handle, error) {
	e := t.skeletons.Get(s)
	c := players.Clip(p)
	if !c.Valid() {
		err := fmt.Errorf("player %s has no clip: %w", p, arena.ErrInvalidConfiguration)
		t.logger.Warn("rejecting bone binding", "skeleton", s, "error", err)
		return nil, err
	}

	type pending struct {
		bone     arena.Handle
		clipBone int
	}
	var todo []pending
	for i := range e.names {
		bone := arena.Handle(e.firstSlot + i)
		if _, dup := t.byKey[bindingKey{bone, p}]; dup {
			err := fmt.Errorf("bone %q already bound to player %s: %w", e.names[i], p, arena.ErrInvalidConfiguration)
			t.logger.Warn("rejecting bone binding", "skeleton", s, "error", err)
			return nil, err
		}
		if cb, ok := clips.BoneIndex(c, t.bones.Get(bone).id); ok {
			todo = append(todo, pending{bone, cb})
		}
	}
	if free := t.bindings.Cap() - t.bindings.Len(); free < len(todo) {
		err := fmt.Errorf("binding pool has %d free slots, need %d: %w", free, len(todo), arena.ErrAllocationExhausted)
		t.logger.Warn("bone binding failed", "skeleton", s, "player", p, "error", err)
		return nil, err
	}

	out := make([]arena.Handle, 0, len(todo))
	for _, pd := range todo {
		h, b, _ := t.bindings.Alloc()
		*b = Binding{Bone: pd.bone, Player: p, ClipBone: pd.clipBone}
		t.byKey[bindingKey{pd.bone, p}] = h
		out = append(out, h)
	}
	return out, nil
}

func (t *table) Binding(bone, p arena.Handle) (arena.Handle, bool) {
	h, ok := t.byKey[bindingKey{bone, p}]
	return h, ok
}

func (t *table) BindingData(b arena.Handle) Binding {
	return *t.bindings.Get(b)
}

func (t *table) SetAuthority(bone, b arena.Handle) {
	if b.Valid() {
		t.bindings.Check(b)
	}
	t.bones.Get(bone).authority = b
}

func (t *table) Authority(bone arena.Handle) arena.Handle {
	return t.bones.Get(bone).authority
}

func (t *table) Capture(bone arena.Handle) {
	slot := t.bones.Get(bone)
	slot.captured = slot.transform.Local()
}

func (t *table) Captured(bone arena.Handle) common.Transform {
	return t.bones.Get(bone).captured
}

func (t *table) Rest(bone arena.Handle) common.Transform {
	return t.bones.Get(bone).rest
}

func (t *table) Local(bone arena.Handle) common.Transform {
	return t.bones.Get(bone).transform.Local()
}

func (t *table) SkeletonCount() int { return t.skeletons.Len() }
func (t *table) BoneCount() int     { return t.bones.Len() }
func (t *table) BindingCount() int  { return t.bindings.Len() }

func (t *table) Clear() {
	t.skeletons.Clear()
	t.bones.Clear()
	t.bindings.Clear()
	clear(t.byKey)
}
