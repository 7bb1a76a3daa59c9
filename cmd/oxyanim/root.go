package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/Carmen-Shannon/oxy-anim/internal/logging"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// options holds the persistent flags shared by every command.
type options struct {
	logLevel   string
	configPath string
	workers    int
	batchSize  int
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "oxyanim",
		Short: "oxyanim is a headless skeletal animation runtime",
		Long: `oxyanim loads declarative rig files (skeleton, baked clips and state machines) and runs
them on the animation runtime: as a batch simulation, as a fixed-rate server exposing metrics
and introspection, or as a validation pass.`,
		SilenceUsage: true,
	}

	// Persistent flags (available to all commands)
	pf := root.PersistentFlags()
	pf.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	pf.StringVarP(&opts.configPath, "config", "c", "", "YAML file overriding the OXY_ANIM_* environment configuration")
	pf.IntVar(&opts.workers, "workers", -1, "Tick worker count; negative keeps the configured value")
	pf.IntVar(&opts.batchSize, "batch-size", 0, "Items per worker task; 0 keeps the configured value")

	root.AddCommand(newSimulateCmd(opts), newServeCmd(opts), newValidateCmd(opts))
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *options) logger() *slog.Logger {
	return logging.New(logging.ParseLevel(o.logLevel))
}

// config layers the scene configuration: defaults, then the environment, then the config
// file, then flags.
func (o *options) config() (scene.Config, error) {
	cfg, err := scene.LoadConfig()
	if err != nil {
		return scene.Config{}, err
	}

	if o.configPath != "" {
		f, err := os.Open(o.configPath)
		if err != nil {
			return scene.Config{}, err
		}
		defer f.Close()
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return scene.Config{}, fmt.Errorf("config %s: %w", o.configPath, err)
		}
	}

	if o.workers >= 0 {
		cfg.Workers = o.workers
	}
	if o.batchSize > 0 {
		cfg.BatchSize = o.batchSize
	}
	return cfg, cfg.Validate()
}
