package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine"
	"github.com/Carmen-Shannon/oxy-anim/engine/inspect"
	"github.com/Carmen-Shannon/oxy-anim/engine/profiler"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	addr            string
	tickRate        float64
	instances       int
	set             []string
	profileInterval time.Duration
}

func newServeCmd(opts *options) *cobra.Command {
	so := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve RIG...",
		Short: "Run rigs at a fixed tick rate and serve metrics and introspection",
		Long: `Loads every rig file and ticks the scene at a fixed rate until interrupted. Prometheus
metrics are served on /metrics and read-only scene introspection under /inspect.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, so, args)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&so.addr, "addr", "a", ":8080", "Address to listen on")
	f.Float64Var(&so.tickRate, "tick-rate", 60, "Ticks per second")
	f.IntVar(&so.instances, "instances", 1, "Instances of each rig")
	f.StringArrayVar(&so.set, "set", nil, "Set an input before the first tick (machine.input=value)")
	f.DurationVar(&so.profileInterval, "profile-interval", 5*time.Second, "Interval between profiler log summaries")
	return cmd
}

func runServe(ctx context.Context, opts *options, so *serveOptions, paths []string) error {
	cfg, err := opts.config()
	if err != nil {
		return err
	}
	logger := opts.logger()

	w, err := newWorld("serve", cfg, logger, paths, so.instances)
	if err != nil {
		return err
	}
	defer w.scene.Close()
	if err := w.set(so.set); err != nil {
		return err
	}

	prof := profiler.NewProfiler(profiler.WithInterval(so.profileInterval), profiler.WithLogger(logger))
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := prof.Register(reg); err != nil {
		return err
	}

	e := engine.NewEngine(
		engine.WithLogger(logger),
		engine.WithTickRate(so.tickRate),
		engine.WithProfiling(true),
		engine.WithProfiler(prof),
		engine.WithScene(0, w.scene),
	)

	srv := &http.Server{
		Addr:              so.addr,
		Handler:           newServeHandler(inspect.NewInspector(w.scene, inspect.WithLabels(w.labels)), reg, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("serving", "addr", srv.Addr, "rigs", len(paths), "instances", len(w.instances))
		serverErrors <- srv.ListenAndServe()
	}()

	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	select {
	case err = <-serverErrors:
		e.Quit()
	case <-ctx.Done():
	case <-done:
	}
	<-done

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("graceful shutdown did not complete", "error", serr)
		_ = srv.Close()
	}
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	logger.Info("server stopped")
	return err
}

// newServeHandler routes /metrics to the registry and /inspect to the scene inspector.
func newServeHandler(ins inspect.Inspector, reg *prometheus.Registry, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Mount("/inspect", inspect.NewHandler(ins, logger))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}
