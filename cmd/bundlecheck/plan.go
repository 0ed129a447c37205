// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/niess/linuxdeploy-plugin-python/internal/suite"
)

func newPlanCommand(app *App, flags *rootFlags) *cobra.Command {
	o := &overrides{}
	cmd := &cobra.Command{
		Use:   "plan [base|venv|modules]...",
		Short: "List the checks 'check' would run",
		Long: `List the checks 'check' would run, in order, with the bundle path and the
declared version each one is checked against. Bundles do not need to exist.`,
		ValidArgs: []string{string(suite.KindBase), string(suite.KindVenv), string(suite.KindModules)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.Context(), app, flags, o, args)
		},
	}
	o.register(cmd, true)
	return cmd
}

func runPlan(ctx context.Context, app *App, flags *rootFlags, o *overrides, args []string) error {
	kinds, err := parseKinds(args)
	if err != nil {
		return app.fail(err, ExitSetupFailed, flags)
	}
	cfg, err := app.loadConfig(ctx, flags)
	if err != nil {
		return app.fail(err, ExitSetupFailed, flags)
	}
	env, err := newEnvironment(cfg, o)
	if err != nil {
		return app.fail(err, ExitSetupFailed, flags)
	}
	descs, err := env.expected()
	if err != nil {
		return app.fail(err, ExitSetupFailed, flags)
	}

	s := &suite.Suite{Bundles: descs}
	checks := s.Plan(suite.Filter{Kinds: kinds})
	if len(checks) == 0 {
		fmt.Fprintln(app.stdout, SubtitleStyle.Render("(no checks selected)"))
		return nil
	}
	for _, c := range checks {
		fmt.Fprintf(app.stdout, "%s %s %s\n",
			CmdStyle.Render(c.Name),
			c.Bundle.Version,
			VerboseStyle.Render(c.Bundle.Path))
	}
	return nil
}
