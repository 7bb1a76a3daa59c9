package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine"
	"github.com/Carmen-Shannon/oxy-anim/engine/inspect"
	"github.com/Carmen-Shannon/oxy-anim/engine/profiler"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/Carmen-Shannon/oxy-anim/engine/statemachine"
	"github.com/spf13/cobra"
)

type simulateOptions struct {
	ticks     int
	dt        float32
	instances int
	set       []string
	fire      []string
	trace     bool
	asJSON    bool
	profile   bool
}

func newSimulateCmd(opts *options) *cobra.Command {
	so := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate RIG...",
		Short: "Run rigs for a fixed number of ticks and print the outcome",
		Long: `Loads every rig file, places the requested number of instances into one scene and ticks it
with a fixed delta time as fast as possible. Inputs can be set before the first tick with --set
and triggers fired on given ticks with --fire.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.OutOrStdout(), opts, so, args)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&so.ticks, "ticks", "n", 300, "Number of ticks to run")
	f.Float32Var(&so.dt, "dt", 1.0/60, "Tick duration in seconds")
	f.IntVar(&so.instances, "instances", 1, "Instances of each rig")
	f.StringArrayVar(&so.set, "set", nil, "Set an input before the first tick (machine.input=value)")
	f.StringArrayVar(&so.fire, "fire", nil, "Fire a trigger input once the given number of ticks has run (machine.input@tick)")
	f.BoolVar(&so.trace, "trace", false, "Print every state change")
	f.BoolVar(&so.asJSON, "json", false, "Print the final machine snapshots as JSON")
	f.BoolVar(&so.profile, "profile", false, "Log profiler summaries while running")
	return cmd
}

func runSimulate(out io.Writer, opts *options, so *simulateOptions, paths []string) error {
	cfg, err := opts.config()
	if err != nil {
		return err
	}
	logger := opts.logger()

	w, err := newWorld("simulate", cfg, logger, paths, so.instances)
	if err != nil {
		return err
	}
	defer w.scene.Close()

	if err := w.set(so.set); err != nil {
		return err
	}
	plan, err := w.schedule(so.fire)
	if err != nil {
		return err
	}

	var tick uint64
	changes := 0
	if err := w.scene.Update(func(rt *scene.Runtime) error {
		for _, sp := range w.instances {
			for _, m := range sp.inst.Machines {
				rt.Machines.OnStateChanged(m.Handle, func(ev statemachine.Event) {
					changes++
					if so.trace {
						fmt.Fprintf(out, "tick %d %s: %s -> %s\n", tick+1, w.labels.Machines[ev.Machine],
							w.labels.States[ev.Previous], w.labels.States[ev.State])
					}
				})
			}
		}
		return nil
	}); err != nil {
		return err
	}

	var (
		transitions int
		busy, worst time.Duration
	)
	e := engine.NewEngine(
		engine.WithLogger(logger),
		engine.WithScene(0, w.scene),
		engine.WithProfiling(so.profile),
		engine.WithProfiler(profiler.NewProfiler(profiler.WithLogger(logger))),
	)
	e.SetTickCallback(func(float32) {
		fires := plan[tick]
		if len(fires) == 0 {
			return
		}
		_ = w.scene.Update(func(rt *scene.Runtime) error {
			for _, in := range fires {
				rt.Machines.Fire(in)
			}
			return nil
		})
	})
	e.SetStatsCallback(func(_ int, st scene.TickStats) {
		transitions += st.Transitions
		busy += st.Total()
		worst = max(worst, st.Total())
		tick = st.Tick
	})
	for range so.ticks {
		e.Step(so.dt)
	}

	ins := inspect.NewInspector(w.scene, inspect.WithLabels(w.labels))
	if so.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(ins.Machines())
	}

	sum := ins.Summary()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "instances\t%d\n", len(w.instances))
	fmt.Fprintf(tw, "ticks\t%d (%.2fs simulated)\n", sum.Ticks, float32(sum.Ticks)*so.dt)
	fmt.Fprintf(tw, "players\t%d\n", sum.Players)
	fmt.Fprintf(tw, "bones\t%d\n", sum.Bones)
	fmt.Fprintf(tw, "transitions\t%d\n", transitions)
	fmt.Fprintf(tw, "state changes\t%d\n", changes)
	if sum.Ticks > 0 {
		fmt.Fprintf(tw, "tick time\tavg %v worst %v\n", busy/time.Duration(sum.Ticks), worst)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "MACHINE\tLAYER\tSTATE\tELAPSED\tBLEND")
	for _, h := range w.machineNames() {
		m, err := ins.Machine(h)
		if err != nil {
			return err
		}
		for i, l := range m.Layers {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%.2f\t%.2f\n", m.Name, i, l.ActiveName, l.Elapsed, l.Blend)
		}
	}
	return tw.Flush()
}
