// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/niess/linuxdeploy-plugin-python/internal/config"
	"github.com/niess/linuxdeploy-plugin-python/internal/issue"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives an App reference.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer
		// colorScheme selects the issue card style once configuration is loaded.
		colorScheme config.ColorScheme
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	return &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}, nil
}

// loadConfig loads the configuration named by the root flags. Failures are
// returned as a ServiceError pointing at the configuration issue.
func (a *App) loadConfig(ctx context.Context, flags *rootFlags) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		return nil, newServiceError(err, issue.ConfigLoadFailedId, "")
	}
	a.colorScheme = cfg.UI.ColorScheme
	if cfg.UI.Verbose && !flags.verbose {
		flags.verbose = true
		configureLogging(a.stderr, true)
	}
	return cfg, nil
}

// issueStyle returns the glamour style for issue cards.
func (a *App) issueStyle() string {
	if a.colorScheme == "" {
		return string(config.ColorSchemeAuto)
	}
	return string(a.colorScheme)
}
