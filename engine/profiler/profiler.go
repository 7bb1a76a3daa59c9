package profiler

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/prometheus/client_golang/prometheus"
)

// Phase labels of the tick phase histogram.
const (
	PhaseUpdate   = "update"
	PhaseEvaluate = "evaluate"
	PhaseBlend    = "blend"
	PhaseNotify   = "notify"
)

// Profiler tracks tick rate, tick phase timings and memory statistics. Every tick is recorded
// into Prometheus collectors; a summary is logged at a configurable interval.
type Profiler struct {
	logger *slog.Logger

	tickCount      int
	transitions    int
	worstTick      time.Duration
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	ticksTotal       prometheus.Counter
	transitionsTotal prometheus.Counter
	phaseDuration    *prometheus.HistogramVec
	poolSize         *prometheus.GaugeVec
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: variadic list of ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		logger:         slog.Default(),
		lastTime:       time.Now(),
		updateInterval: time.Second,
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oxyanim_ticks_total",
			Help: "Number of scene ticks run.",
		}),
		transitionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oxyanim_transitions_total",
			Help: "Number of state machine transitions taken.",
		}),
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "oxyanim_tick_phase_seconds",
			Help:    "Duration of each tick phase.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"phase"}),
		poolSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "oxyanim_pool_items",
			Help: "Allocated items per pool at the last tick.",
		}, []string{"pool"}),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Register adds the profiler's collectors to reg.
//
// Parameters:
//   - reg: the registerer, for example prometheus.DefaultRegisterer
//
// Returns:
//   - error: the first registration error
func (p *Profiler) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{p.ticksTotal, p.transitionsTotal, p.phaseDuration, p.poolSize} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Tick records one scene tick and logs performance statistics when the update interval has
// elapsed. Statistics include: tick rate, worst tick, transitions, heap usage, allocation
// rate, GC count/pause times, total memory.
//
// Parameters:
//   - st: the stats returned by scene.Tick
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(st scene.TickStats) bool {
	p.ticksTotal.Inc()
	p.transitionsTotal.Add(float64(st.Transitions))
	p.phaseDuration.WithLabelValues(PhaseUpdate).Observe(st.Update.Seconds())
	p.phaseDuration.WithLabelValues(PhaseEvaluate).Observe(st.Evaluate.Seconds())
	p.phaseDuration.WithLabelValues(PhaseBlend).Observe(st.Blend.Seconds())
	p.phaseDuration.WithLabelValues(PhaseNotify).Observe(st.Notify.Seconds())
	p.poolSize.WithLabelValues("players").Set(float64(st.Players))
	p.poolSize.WithLabelValues("machines").Set(float64(st.Machines))
	p.poolSize.WithLabelValues("bones").Set(float64(st.Bones))

	p.tickCount++
	p.transitions += st.Transitions
	p.worstTick = max(p.worstTick, st.Total())

	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocRateMB := float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / max(elapsed.Seconds(), 1e-9)

	// PauseNs is a circular buffer of the last 256 GC pauses.
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	p.logger.Info("profiler",
		"tps", float64(p.tickCount)/max(elapsed.Seconds(), 1e-9),
		"worst_tick", p.worstTick,
		"transitions", p.transitions,
		"players", st.Players,
		"machines", st.Machines,
		"heap_mb", allocMB,
		"alloc_rate_mb_s", allocRateMB,
		"gc", gcCount,
		"gc_last_us", lastPauseUs,
		"gc_max_us", maxPauseUs,
		"sys_mb", sysMB,
	)

	p.tickCount = 0
	p.transitions = 0
	p.worstTick = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
