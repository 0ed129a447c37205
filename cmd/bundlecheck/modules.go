// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newModulesCommand(app *App, flags *rootFlags) *cobra.Command {
	var major int
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "List the standard library modules the modules check imports",
		Long: `List the module catalogue imported by the modules check, grouped for
reading. The catalogue is the built-in standard library list adjusted by
modules.extra and modules.skip in the configuration.

With --major 0 every module is listed, tagged with the major version it is
restricted to.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModules(cmd.Context(), app, flags, major)
		},
	}
	cmd.Flags().IntVar(&major, "major", 3, "Python major version to list modules for (0 for all)")
	return cmd
}

func runModules(ctx context.Context, app *App, flags *rootFlags, major int) error {
	cfg, err := app.loadConfig(ctx, flags)
	if err != nil {
		return app.fail(err, ExitSetupFailed, flags)
	}
	env := &environment{cfg: cfg}
	cat, err := env.catalogue()
	if err != nil {
		return app.fail(err, ExitSetupFailed, flags)
	}

	total := 0
	for _, g := range cat {
		var names []string
		for _, m := range g.Modules {
			switch {
			case major == 0 && m.Major != 0:
				names = append(names, fmt.Sprintf("%s (py%d)", m.Name, m.Major))
			case major == 0 || m.AppliesTo(major):
				names = append(names, m.Name)
			}
		}
		if len(names) == 0 {
			continue
		}
		total += len(names)
		fmt.Fprintf(app.stdout, "%s\n  %s\n", groupStyle.Render(g.Name+":"), strings.Join(names, " "))
	}
	fmt.Fprintln(app.stdout)
	fmt.Fprintln(app.stdout, SubtitleStyle.Render(fmt.Sprintf("%d modules", total)))
	return nil
}
