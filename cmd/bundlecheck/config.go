// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/niess/linuxdeploy-plugin-python/internal/config"
)

// newConfigCommand creates the `bundlecheck config` command tree.
func newConfigCommand(app *App, flags *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage bundlecheck configuration",
		Long: `Manage bundlecheck configuration.

Configuration is stored in:
  - Linux: ~/.config/bundlecheck/config.cue
  - macOS: ~/Library/Application Support/bundlecheck/config.cue

Every setting can also be given through the environment, e.g.
BUNDLECHECK_WORK_DIR or BUNDLECHECK_ISOLATION_USER.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app, flags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app, flags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(app, flags)
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, flags *rootFlags) error {
	cfg, err := app.loadConfig(ctx, flags)
	if err != nil {
		return app.fail(err, ExitSetupFailed, flags)
	}

	source := SubtitleStyle.Render("(using defaults)")
	if path := activeConfigPath(flags); path != "" {
		source = path
	}
	fmt.Fprintf(app.stderr, "%s: %s\n\n", CmdStyle.Render("Config file"), source)
	fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
	return nil
}

func initConfig(app *App, flags *rootFlags) error {
	path, created, err := config.CreateDefaultConfig()
	if err != nil {
		return app.fail(fmt.Errorf("failed to create config: %w", err), ExitSetupFailed, flags)
	}
	if !created {
		fmt.Fprintf(app.stdout, "%s Configuration already exists at %s\n", WarningStyle.Render("!"), path)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}

func showConfigPath(app *App, flags *rootFlags) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return app.fail(err, ExitSetupFailed, flags)
	}
	cfgPath, err := config.ConfigFilePath()
	if err != nil {
		return app.fail(err, ExitSetupFailed, flags)
	}

	fmt.Fprintf(app.stdout, "Config directory: %s\n", cfgDir)
	fmt.Fprintf(app.stdout, "Config file: %s\n", cfgPath)
	if flags.configPath != "" {
		fmt.Fprintf(app.stdout, "Active config file: %s\n", flags.configPath)
	}
	return nil
}

// activeConfigPath returns the config file a load would read, or "" when
// only defaults apply.
func activeConfigPath(flags *rootFlags) string {
	if flags.configPath != "" {
		return flags.configPath
	}
	candidates := []string{config.ConfigFileName + "." + config.ConfigFileExt}
	if p, err := config.ConfigFilePath(); err == nil {
		candidates = append([]string{p}, candidates...)
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}
