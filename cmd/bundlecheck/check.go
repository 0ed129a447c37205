// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/niess/linuxdeploy-plugin-python/internal/issue"
	"github.com/niess/linuxdeploy-plugin-python/internal/suite"
)

func newCheckCommand(app *App, flags *rootFlags) *cobra.Command {
	o := &overrides{}
	cmd := &cobra.Command{
		Use:   "check [base|venv|modules]...",
		Short: "Run bundle checks",
		Long: `Run checks against the configured bundles.

Checks run one after the other and stop at the first failure:
  base     probe the bundle directly, check its invariants, pip install --user
  venv     create a virtual environment from the bundle and check it (Python 3)
  modules  import the standard library catalogue

With no arguments every kind runs. Use --bundle to restrict the bundles.`,
		ValidArgs: []string{string(suite.KindBase), string(suite.KindVenv), string(suite.KindModules)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), app, flags, o, args)
		},
	}
	o.register(cmd, true)
	return cmd
}

func runCheck(ctx context.Context, app *App, flags *rootFlags, o *overrides, args []string) error {
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
	descs, err := env.locate()
	if err != nil {
		return app.fail(err, ExitSetupFailed, flags)
	}
	lock, err := env.lock()
	if err != nil {
		return app.fail(err, ExitSetupFailed, flags)
	}
	defer lock.Release()
	session, err := env.openSession()
	if err != nil {
		return app.fail(err, ExitSetupFailed, flags)
	}
	cat, err := env.catalogue()
	if err != nil {
		return app.fail(err, ExitSetupFailed, flags)
	}

	s := &suite.Suite{
		Session:   session,
		Isolation: env.isolation,
		Bundles:   descs,
		Package:   cfg.TestPackage,
		Catalogue: cat,
		VenvDir:   cfg.VenvDir,
		OnResult:  func(r suite.CheckResult) { printCheckResult(app.stdout, r) },
	}

	report, err := s.Run(ctx, suite.Filter{Kinds: kinds})
	printReport(app.stdout, report, flags.verbose)
	if err != nil {
		var checkErr *suite.CheckError
		if errors.As(err, &checkErr) {
			return app.fail(err, ExitCheckFailed, flags)
		}
		return app.fail(err, ExitSetupFailed, flags)
	}
	return nil
}

func parseKinds(args []string) ([]suite.Kind, error) {
	kinds := make([]suite.Kind, 0, len(args))
	for _, a := range args {
		k, err := suite.ParseKind(a)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("select checks").
				WithResource(a).
				WithSuggestion("Valid check kinds are base, venv and modules").
				Wrap(err).
				BuildError()
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func printCheckResult(w io.Writer, r suite.CheckResult) {
	mark := SuccessStyle.Render("✓")
	if !r.Passed() {
		mark = ErrorStyle.Render("✗")
	}
	fmt.Fprintf(w, "%s %s %s\n", mark, CmdStyle.Render(r.Name), VerboseStyle.Render(r.Duration.Round(time.Millisecond).String()))
}

func printReport(w io.Writer, report *suite.Report, verbose bool) {
	if report == nil {
		return
	}
	for _, name := range report.Skipped {
		fmt.Fprintf(w, "%s %s %s\n", WarningStyle.Render("-"), CmdStyle.Render(name), SubtitleStyle.Render("(skipped)"))
	}

	passed := 0
	for _, r := range report.Results {
		if r.Passed() {
			passed++
		}
	}
	fmt.Fprintln(w)
	summary := fmt.Sprintf("%d passed, %d failed, %d skipped", passed, len(report.Results)-passed, len(report.Skipped))
	if report.Passed() {
		fmt.Fprintln(w, SuccessStyle.Render(summary))
	} else {
		fmt.Fprintln(w, ErrorStyle.Render(summary))
	}
	if verbose {
		fmt.Fprintf(w, "%s %s (%s)\n", SubtitleStyle.Render("run"), report.RunID, report.Duration().Round(time.Millisecond))
	}
}
