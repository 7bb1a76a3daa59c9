package scene

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/player"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-anim/engine/statemachine"
)

// Runtime groups every pool of a scene. It is only valid inside Update, View and listeners.
type Runtime struct {
	Clips      clip.Registry
	Players    player.Pool
	Skeletons  skeleton.Table
	Compositor animator.Compositor
	Machines   statemachine.Engine
}

// TickStats reports the work and phase timings of one Tick.
type TickStats struct {
	Tick        uint64
	DeltaTime   float32
	Players     int
	Machines    int
	Bones       int
	Transitions int

	Update   time.Duration
	Evaluate time.Duration
	Blend    time.Duration
	Notify   time.Duration
}

// Total returns the summed duration of every phase.
func (t TickStats) Total() time.Duration {
	return t.Update + t.Evaluate + t.Blend + t.Notify
}

// Scene is the runtime context of the animation system: it owns every pool and advances them
// one tick at a time.
//
// Tick runs four phases separated by barriers. Players update in parallel over disjoint batch
// ranges; machines evaluate in parallel over disjoint machine ranges, after which triggers reset
// and transitioning layers re-capture serially; bones blend in parallel over disjoint slot
// ranges; finally layer and machine listeners fire serially. The whole tick holds the scene
// lock, as does Update, so configuration never races a tick. Listeners run inside Tick and must
// not call Update or View; they may use the Runtime captured when they were registered.
type Scene interface {
	// Name returns the scene name.
	Name() string

	// Config returns the configuration the scene was built with.
	Config() Config

	// Update runs fn with exclusive access to the runtime.
	//
	// Parameters:
	//   - fn: the mutation to run
	//
	// Returns:
	//   - error: the error returned by fn
	Update(fn func(rt *Runtime) error) error

	// View runs fn with shared access to the runtime. fn must not mutate it.
	//
	// Parameters:
	//   - fn: the read-only query to run
	View(fn func(rt *Runtime))

	// Tick advances the scene by dt seconds. A negative dt is treated as 0.
	//
	// Parameters:
	//   - dt: the elapsed time in seconds
	//
	// Returns:
	//   - TickStats: the work done and time spent per phase
	Tick(dt float32) TickStats

	// Ticks returns the number of completed ticks.
	Ticks() uint64

	// Clear releases every pool at once. Handles issued before Clear become stale.
	Clear()

	// Close stops the tick worker pool. The scene must not be ticked afterwards.
	Close()
}

type scene struct {
	mu *sync.RWMutex

	name   string
	cfg    Config
	logger *slog.Logger
	hasher skeleton.BoneHasher
	rt     Runtime
	ticks  uint64

	// computePool runs the parallel phases of Tick. Workers persist across ticks.
	computePool    worker.DynamicWorkerPool
	computeWorkers int
	taskID         int
}

var _ Scene = &scene{}

// NewScene creates a scene with every pool allocated up front.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:     &sync.RWMutex{},
		name:   name,
		cfg:    DefaultConfig(),
		logger: slog.Default(),
	}
	for _, option := range options {
		option(s)
	}
	s.computeWorkers = common.Coalesce(s.computeWorkers, s.cfg.workers())

	cfg := s.cfg
	log := s.logger.With("scene", name)
	s.rt.Clips = clip.NewRegistry(
		clip.WithMaxClips(cfg.MaxClips),
		clip.WithMaxFrames(cfg.MaxFrames),
		clip.WithLogger(log),
	)
	s.rt.Players = player.NewPool(
		player.WithCapacity(cfg.MaxPlayers),
		player.WithDefaultBlendRate(cfg.DefaultBlendRate),
		player.WithSpeedRange(cfg.MinSpeed, cfg.MaxSpeed),
		player.WithFinishEpsilon(cfg.FinishEpsilon),
		player.WithLogger(log),
	)
	s.rt.Skeletons = skeleton.NewTable(
		skeleton.WithMaxSkeletons(cfg.MaxSkeletons),
		skeleton.WithMaxBones(cfg.MaxBones),
		skeleton.WithMaxBindings(cfg.MaxBindings),
		skeleton.WithHasher(s.hasher),
		skeleton.WithLogger(log),
	)
	s.rt.Compositor = animator.NewCompositor(s.rt.Skeletons, s.rt.Players, s.rt.Clips,
		animator.WithMaxAnimators(cfg.MaxAnimators),
		animator.WithMaxLayers(cfg.MaxLayers),
		animator.WithLogger(log),
	)
	s.rt.Machines = statemachine.NewEngine(s.rt.Compositor, s.rt.Players,
		statemachine.WithMaxMachines(cfg.MaxMachines),
		statemachine.WithMaxLayers(cfg.MaxLayers),
		statemachine.WithMaxStates(cfg.MaxStates),
		statemachine.WithMaxTransitions(cfg.MaxTransitions),
		statemachine.WithMaxInputs(cfg.MaxInputs),
		statemachine.WithMaxOutputs(cfg.MaxOutputs),
		statemachine.WithLogger(log),
	)

	// The queue holds every task of one phase at the default batch size with headroom.
	s.computePool = worker.NewDynamicWorkerPool(s.computeWorkers, 256, 1*time.Second)
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Config() Config {
	return s.cfg
}

func (s *scene) Update(fn func(rt *Runtime) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.rt)
}

func (s *scene) View(fn func(rt *Runtime)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.rt)
}

func (s *scene) Tick(dt float32) TickStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	dt = max(dt, 0)
	rt := &s.rt
	st := TickStats{
		Tick:      s.ticks + 1,
		DeltaTime: dt,
		Players:   rt.Players.Count(),
		Machines:  rt.Machines.MachineCount(),
		Bones:     rt.Skeletons.BoneCount(),
	}

	// Phase 1: playback update over player batches.
	start := time.Now()
	batch := max(s.cfg.BatchSize/player.LaneWidth, 1)
	s.parallel(rt.Players.Batches(), batch, func(lo, hi int) {
		rt.Players.Update(dt, lo, hi)
	})
	st.Update = time.Since(start)

	// Phase 2: state machines, then trigger reset and bone re-capture.
	start = time.Now()
	s.parallel(st.Machines, s.cfg.BatchSize, func(lo, hi int) {
		rt.Machines.Evaluate(dt, lo, hi)
	})
	rt.Machines.ResetTriggers()
	st.Transitions = rt.Machines.TakeTransitioning()
	st.Evaluate = time.Since(start)

	// Phase 3: bone blend over bone slots.
	start = time.Now()
	s.parallel(st.Bones, s.cfg.BatchSize, func(lo, hi int) {
		rt.Skeletons.Blend(lo, hi, rt.Clips, rt.Players)
	})
	st.Blend = time.Since(start)

	// Phase 4: listeners.
	start = time.Now()
	rt.Compositor.Notify()
	rt.Machines.Notify()
	st.Notify = time.Since(start)

	s.ticks++
	return st
}

// parallel splits [0, n) into ranges of at most size items and runs fn over them on the
// compute pool, returning once every range is done. A single range runs on the caller.
// A panic in any range is re-raised on the caller after the barrier.
func (s *scene) parallel(n, size int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if n <= size || s.computeWorkers == 1 {
		fn(0, n)
		return
	}

	// A WaitGroup is the phase barrier; pool.Wait() only returns once workers go idle.
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failure any
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		wg.Add(1)
		id := s.taskID
		s.taskID++
		s.computePool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						mu.Lock()
						if failure == nil {
							failure = r
						}
						mu.Unlock()
					}
				}()
				fn(lo, hi)
				return nil, nil
			},
		})
	}
	wg.Wait()
	if failure != nil {
		panic(failure)
	}
}

func (s *scene) Ticks() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ticks
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rt.Machines.Clear()
	s.rt.Compositor.Clear()
	s.rt.Skeletons.Clear()
	s.rt.Players.Clear()
	s.rt.Clips.Clear()
	s.logger.Info("scene cleared", "scene", s.name)
}

func (s *scene) Close() {
	s.computePool.Stop()
}
