// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/niess/linuxdeploy-plugin-python/internal/probe"
)

type probeOptions struct {
	overrides
	activate string
	format   string
}

func newProbeCommand(app *App, flags *rootFlags) *cobra.Command {
	o := &probeOptions{}
	cmd := &cobra.Command{
		Use:   "probe <interpreter>",
		Short: "Print the runtime configuration reported by an interpreter",
		Long: `Run the configuration probe with an interpreter (a bundle, a path or a
command name) in the isolated environment and print the record.

With --activate, the activation script of a virtual environment is sourced
first, so that "python" resolves to the environment's interpreter.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd.Context(), app, flags, o, args[0])
		},
	}
	o.register(cmd, false)
	cmd.Flags().StringVar(&o.activate, "activate", "", "activation script sourced before the interpreter runs")
	cmd.Flags().StringVarP(&o.format, "format", "f", string(probe.FormatJSON), "output format: json, yaml or toml")
	return cmd
}

func runProbe(ctx context.Context, app *App, flags *rootFlags, o *probeOptions, interpreter string) error {
	format := probe.Format(o.format)
	if ok, errs := format.IsValid(); !ok {
		return app.fail(errs[0], ExitSetupFailed, flags)
	}
	cfg, err := app.loadConfig(ctx, flags)
	if err != nil {
		return app.fail(err, ExitSetupFailed, flags)
	}
	env, err := newEnvironment(cfg, &o.overrides)
	if err != nil {
		return app.fail(err, ExitSetupFailed, flags)
	}
	if err := env.isolation.Prepare(); err != nil {
		return app.fail(err, ExitSetupFailed, flags)
	}
	session, err := env.openSession()
	if err != nil {
		return app.fail(err, ExitSetupFailed, flags)
	}

	rec, err := probe.Probe(ctx, session, probe.Target{Interpreter: interpreter, Activate: o.activate})
	if err != nil {
		return app.fail(err, ExitCheckFailed, flags)
	}
	data, err := rec.Marshal(format)
	if err != nil {
		return app.fail(err, ExitCheckFailed, flags)
	}
	fmt.Fprint(app.stdout, string(data))
	return nil
}
