// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for bundlecheck.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/niess/linuxdeploy-plugin-python/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	verbose    bool
	configPath string
}

// NewRootCommand builds the bundlecheck command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "bundlecheck",
		Short: "Check relocatable Python bundles against the portable-bundle contract",
		Long: TitleStyle.Render("bundlecheck") + SubtitleStyle.Render(" - Check relocatable Python bundles") + `

bundlecheck runs Python AppImages built by linuxdeploy-plugin-python and
verifies that they behave like a standard interpreter install: the reported
version, executable and prefix, the module search path, user site-packages,
virtual environments created from the bundle, pip installs and the standard
library.

Bundles are never built or downloaded; they are located on disk as
<bundle_dir>/<tag>-<arch>.AppImage.

` + SubtitleStyle.Render("Examples:") + `
  bundlecheck plan                      List the checks that would run
  bundlecheck check                     Run every check
  bundlecheck check venv -b python3     Only the venv check of python3
  bundlecheck probe ./python3-x86_64.AppImage --format yaml
  bundlecheck config show               Show current configuration`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(app.stderr, flags.verbose)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/bundlecheck/config.cue)")

	rootCmd.AddCommand(newCheckCommand(app, flags))
	rootCmd.AddCommand(newPlanCommand(app, flags))
	rootCmd.AddCommand(newProbeCommand(app, flags))
	rootCmd.AddCommand(newDeclarationCommand(app, flags))
	rootCmd.AddCommand(newModulesCommand(app, flags))
	rootCmd.AddCommand(newConfigCommand(app, flags))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error:"), err)
		os.Exit(1)
	}

	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// handleError prints errors that no command rendered yet. An ExitError has
// already been reported by the failing command.
func handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// configureLogging installs charm log as the slog handler. Library packages
// log through slog; --verbose lowers the level to debug.
func configureLogging(w io.Writer, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix: "bundlecheck",
		Level:  log.InfoLevel,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
		logger.SetReportTimestamp(true)
	}
	slog.SetDefault(slog.New(logger))
	return logger
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
