package animator

import (
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-anim/engine/arena"
	"github.com/Carmen-Shannon/oxy-anim/engine/player"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
)

// NoState is the active index of a layer with no active state.
const NoState = -1

// LayerEvent describes a layer callback: the layer, its active state index and that state's player.
type LayerEvent struct {
	Layer  arena.Handle
	State  int
	Player arena.Handle
}

// LayerListener receives layer events during Notify.
type LayerListener func(ev LayerEvent)

type animatorEntry struct {
	skeleton arena.Handle
	layers   []arena.Handle
}

type layerEntry struct {
	animator         arena.Handle
	order            int
	states           []arena.Handle
	active           int
	finishedNotified bool
	fading           bool
	pending          []LayerEvent

	onFinished           []LayerListener
	onTransitionFinished []LayerListener
}

// compositor is the implementation of the Compositor interface.
type compositor struct {
	logger *slog.Logger

	table   skeleton.Table
	players player.Pool
	clips   skeleton.FrameSource

	animators *arena.Pool[animatorEntry]
	layers    *arena.Pool[layerEntry]
}

// Compositor owns animators and their layer stacks. An animator pairs one skeleton with an
// ordered stack of layers (index 0 is the base); each layer holds an ordered list of states,
// one player per state, with at most one state active. For every bone the highest layer whose
// active player has a curve for it holds authority, and the blend pass writes only that pose.
//
// The Compositor does not lock. Callers serialize access, which the scene does with its mutex.
type Compositor interface {
	// NewAnimator allocates an animator driving the given skeleton.
	//
	// Parameters:
	//   - s: the skeleton handle
	//
	// Returns:
	//   - arena.Handle: the animator handle, or arena.InvalidHandle when the pool is full
	//   - error: ErrAllocationExhausted when the pool is full
	NewAnimator(s arena.Handle) (arena.Handle, error)

	// NewLayer pushes a new layer on top of the animator's stack.
	//
	// Parameters:
	//   - a: the animator handle
	//
	// Returns:
	//   - arena.Handle: the layer handle, or arena.InvalidHandle when the pool is full
	//   - error: ErrAllocationExhausted when the pool is full
	NewLayer(a arena.Handle) (arena.Handle, error)

	// AddState appends a player to the layer's state list and binds the skeleton bones its
	// clip has curves for. The player must already have a clip.
	//
	// Parameters:
	//   - l: the layer handle
	//   - p: the player handle
	//
	// Returns:
	//   - int: the state index within the layer, or NoState on failure
	//   - error: the binding error, in which case the layer is unchanged
	AddState(l, p arena.Handle) (int, error)

	// SetState switches the layer to the state at index. An unchanged index is a no-op.
	// Otherwise the previous player is reset, bone authority reconciled, the outgoing pose
	// captured and the new player played with the default blend-in.
	//
	// Parameters:
	//   - l: the layer handle
	//   - index: the state index within the layer
	SetState(l arena.Handle, index int)

	// ClearState leaves the layer with no active state. The nearest lower layer with an
	// active state re-captures the bones it regains and restarts its blend-in.
	//
	// Parameters:
	//   - l: the layer handle
	ClearState(l arena.Handle)

	// Enter makes index the active state without playing it, resetting the previous player
	// when it differs. It is the first half of a state machine transition; the caller plays
	// the returned player and later calls CommitTransition.
	//
	// Parameters:
	//   - l: the layer handle
	//   - index: the state index within the layer
	//
	// Returns:
	//   - arena.Handle: the player of the entered state
	Enter(l arena.Handle, index int) arena.Handle

	// CommitTransition reconciles bone authority for the layer's animator and captures the
	// outgoing pose of the bones the layer now owns.
	//
	// Parameters:
	//   - l: the layer handle
	CommitTransition(l arena.Handle)

	// CaptureBones snapshots the current local pose of every bone the layer holds authority
	// over as the outgoing pose of its cross-fade.
	//
	// Parameters:
	//   - l: the layer handle
	CaptureBones(l arena.Handle)

	// Reconcile recomputes bone authority for every bone of the animator's skeleton. It is
	// idempotent.
	//
	// Parameters:
	//   - a: the animator handle
	Reconcile(a arena.Handle)

	// OnFinished registers a listener fired once when a layer's active player finishes.
	OnFinished(l arena.Handle, fn LayerListener)

	// OnTransitionFinished registers a listener fired once when a layer's cross-fade completes.
	OnTransitionFinished(l arena.Handle, fn LayerListener)

	// Notify fires pending finished and transition-finished listeners. Each event fires at
	// most once per state activation.
	Notify()

	// Skeleton returns the animator's skeleton.
	Skeleton(a arena.Handle) arena.Handle
	// Layers returns the animator's layers, base first.
	Layers(a arena.Handle) []arena.Handle
	// Animator returns the animator a layer belongs to.
	Animator(l arena.Handle) arena.Handle
	// Order returns the layer's position in its animator's stack.
	Order(l arena.Handle) int
	// States returns the players of the layer's states in declared order.
	States(l arena.Handle) []arena.Handle
	// Active returns the layer's active state index or NoState.
	Active(l arena.Handle) int
	// ActivePlayer returns the layer's active player or arena.InvalidHandle.
	ActivePlayer(l arena.Handle) arena.Handle
	// Fading reports whether the layer's last state change is still blending in.
	Fading(l arena.Handle) bool
	// AnimatorCount and LayerCount return the allocated pool sizes.
	AnimatorCount() int
	LayerCount() int

	// Clear releases every animator and layer.
	Clear()
}

var _ Compositor = &compositor{}

// NewCompositor creates a compositor over the given skeleton table, player pool and clip source.
//
// Parameters:
//   - table: the skeleton and bone binding table
//   - players: the player pool
//   - clips: the clip frame source used to resolve bone curves
//   - options: variadic list of CompositorBuilderOption functions
//
// Returns:
//   - Compositor: the compositor
func NewCompositor(table skeleton.Table, players player.Pool, clips skeleton.FrameSource, options ...CompositorBuilderOption) Compositor {
	c := &compositor{
		logger:  slog.Default(),
		table:   table,
		players: players,
		clips:   clips,
	}
	cfg := compositorConfig{
		maxAnimators: DefaultMaxAnimators,
		maxLayers:    DefaultMaxLayers,
	}
	for _, opt := range options {
		opt(&cfg, c)
	}
	c.animators = arena.NewPool[animatorEntry]("animator", cfg.maxAnimators)
	c.layers = arena.NewPool[layerEntry]("layer", cfg.maxLayers)
	return c
}

func (c *compositor) NewAnimator(s arena.Handle) (arena.Handle, error) {
	// Validates the skeleton handle.
	_ = c.table.Bones(s)

	h, a, err := c.animators.Alloc()
	if err != nil {
		c.logger.Warn("animator allocation failed", "error", err)
		return arena.InvalidHandle, err
	}
	*a = animatorEntry{skeleton: s}
	return h, nil
}

func (c *compositor) NewLayer(a arena.Handle) (arena.Handle, error) {
	anim := c.animators.Get(a)
	h, l, err := c.layers.Alloc()
	if err != nil {
		c.logger.Warn("layer allocation failed", "animator", a, "error", err)
		return arena.InvalidHandle, err
	}
	*l = layerEntry{animator: a, order: len(anim.layers), active: NoState}
	anim.layers = append(anim.layers, h)
	return h, nil
}

func (c *compositor) AddState(l, p arena.Handle) (int, error) {
	layer := c.layers.Get(l)
	s := c.animators.Get(layer.animator).skeleton
	if _, err := c.table.Bind(s, p, c.clips, c.players); err != nil {
		return NoState, fmt.Errorf("add state to layer %s: %w", l, err)
	}
	layer.states = append(layer.states, p)
	return len(layer.states) - 1, nil
}

func (c *compositor) SetState(l arena.Handle, index int) {
	layer := c.layers.Get(l)
	if index == layer.active {
		return
	}
	p := c.Enter(l, index)
	c.CommitTransition(l)
	c.players.Play(p, player.UseDefaultBlend)
}

func (c *compositor) Enter(l arena.Handle, index int) arena.Handle {
	layer := c.layers.Get(l)
	arena.Require(index >= 0 && index < len(layer.states), "layer %s state %d out of range [0,%d)", l, index, len(layer.states))

	if layer.active != NoState && layer.active != index {
		c.leave(l, layer)
	}
	layer.active = index
	layer.finishedNotified = false
	layer.fading = true
	return layer.states[index]
}

func (c *compositor) ClearState(l arena.Handle) {
	layer := c.layers.Get(l)
	if layer.active == NoState {
		return
	}
	c.leave(l, layer)
	layer.active = NoState
	layer.fading = false

	anim := c.animators.Get(layer.animator)
	c.Reconcile(layer.animator)
	for i := layer.order - 1; i >= 0; i-- {
		lower := c.layers.Get(anim.layers[i])
		if lower.active == NoState {
			continue
		}
		c.CaptureBones(anim.layers[i])
		c.players.RestartBlend(lower.states[lower.active], player.UseDefaultBlend)
		lower.fading = true
		break
	}
}

// leave resets the active player, queueing its finished event when it finished unnoticed.
func (c *compositor) leave(l arena.Handle, layer *layerEntry) {
	p := layer.states[layer.active]
	if !layer.finishedNotified && c.players.IsFinished(p) {
		layer.pending = append(layer.pending, LayerEvent{Layer: l, State: layer.active, Player: p})
	}
	c.players.Reset(p)
}

func (c *compositor) CommitTransition(l arena.Handle) {
	c.Reconcile(c.layers.Get(l).animator)
	c.CaptureBones(l)
}

func (c *compositor) CaptureBones(l arena.Handle) {
	layer := c.layers.Get(l)
	if layer.active == NoState {
		return
	}
	p := layer.states[layer.active]
	for _, bone := range c.table.Bones(c.animators.Get(layer.animator).skeleton) {
		auth := c.table.Authority(bone)
		if auth.Valid() && c.table.BindingData(auth).Player == p {
			c.table.Capture(bone)
		}
	}
}

func (c *compositor) Reconcile(a arena.Handle) {
	anim := c.animators.Get(a)
	for _, bone := range c.table.Bones(anim.skeleton) {
		auth := arena.InvalidHandle
		for i := len(anim.layers) - 1; i >= 0; i-- {
			layer := c.layers.Get(anim.layers[i])
			if layer.active == NoState {
				continue
			}
			if b, ok := c.table.Binding(bone, layer.states[layer.active]); ok {
				auth = b
				break
			}
		}
		c.table.SetAuthority(bone, auth)
	}
}

func (c *compositor) OnFinished(l arena.Handle, fn LayerListener) {
	layer := c.layers.Get(l)
	layer.onFinished = append(layer.onFinished, fn)
}

func (c *compositor) OnTransitionFinished(l arena.Handle, fn LayerListener) {
	layer := c.layers.Get(l)
	layer.onTransitionFinished = append(layer.onTransitionFinished, fn)
}

func (c *compositor) Notify() {
	layers := c.layers.All()
	for i := range layers {
		layer := &layers[i]
		for _, ev := range layer.pending {
			for _, fn := range layer.onFinished {
				fn(ev)
			}
		}
		layer.pending = layer.pending[:0]
		if layer.active == NoState {
			continue
		}
		ev := LayerEvent{Layer: arena.Handle(i), State: layer.active, Player: layer.states[layer.active]}

		if layer.fading && c.players.Blend(ev.Player) >= 1 {
			layer.fading = false
			for _, fn := range layer.onTransitionFinished {
				fn(ev)
			}
		}
		if !layer.finishedNotified && c.players.IsFinished(ev.Player) {
			layer.finishedNotified = true
			for _, fn := range layer.onFinished {
				fn(ev)
			}
		}
	}
}

func (c *compositor) Skeleton(a arena.Handle) arena.Handle {
	return c.animators.Get(a).skeleton
}

func (c *compositor) Layers(a arena.Handle) []arena.Handle {
	return append([]arena.Handle(nil), c.animators.Get(a).layers...)
}

func (c *compositor) Animator(l arena.Handle) arena.Handle {
	return c.layers.Get(l).animator
}

func (c *compositor) Order(l arena.Handle) int {
	return c.layers.Get(l).order
}

func (c *compositor) States(l arena.Handle) []arena.Handle {
	return append([]arena.Handle(nil), c.layers.Get(l).states...)
}

func (c *compositor) Active(l arena.Handle) int {
	return c.layers.Get(l).active
}

func (c *compositor) ActivePlayer(l arena.Handle) arena.Handle {
	layer := c.layers.Get(l)
	if layer.active == NoState {
		return arena.InvalidHandle
	}
	return layer.states[layer.active]
}

func (c *compositor) Fading(l arena.Handle) bool {
	return c.layers.Get(l).fading
}

func (c *compositor) AnimatorCount() int {
	return c.animators.Len()
}

func (c *compositor) LayerCount() int {
	return c.layers.Len()
}

func (c *compositor) Clear() {
	c.animators.Clear()
	c.layers.Clear()
}
