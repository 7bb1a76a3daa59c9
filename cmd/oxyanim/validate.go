package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/spf13/cobra"
)

func newValidateCmd(opts *options) *cobra.Command {
	var instances int
	cmd := &cobra.Command{
		Use:   "validate RIG...",
		Short: "Check the configuration and rig files",
		Long: `Validates the scene configuration and every rig file, reporting every problem found. With
--instances the rigs are also placed into a scene built from the configuration, which catches
rigs that exceed the configured pool capacities.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), opts, args, instances)
		},
	}
	cmd.Flags().IntVar(&instances, "instances", 0, "Also instantiate each rig this many times")
	return cmd
}

func runValidate(out io.Writer, opts *options, paths []string, instances int) error {
	cfg, err := opts.config()
	if err != nil {
		fmt.Fprintf(out, "config: %v\n", err)
		return errors.New("configuration is invalid")
	}
	fmt.Fprintln(out, "config: ok")

	logger := opts.logger()
	l := loader.NewLoader(loader.BackendTypeYAML, loader.WithLogger(logger))
	var s scene.Scene
	if instances > 0 {
		s = scene.NewScene("validate", scene.WithConfig(cfg), scene.WithLogger(logger), scene.WithComputeWorkers(1))
		defer s.Close()
	}

	failed := 0
	for _, path := range paths {
		rig, err := l.Load(path)
		if err == nil && s != nil {
			for range instances {
				if _, err = l.Instantiate(s, rig); err != nil {
					break
				}
			}
		}
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s:\n", path)
			for _, e := range flatten(err) {
				fmt.Fprintf(out, "  - %v\n", e)
			}
			continue
		}
		fmt.Fprintf(out, "%s: ok\n", path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d rigs are invalid", failed, len(paths))
	}
	return nil
}

// flatten expands joined errors so each problem prints on its own line.
func flatten(err error) []error {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}
