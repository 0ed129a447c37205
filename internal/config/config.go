// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/niess/linuxdeploy-plugin-python/internal/issue"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "bundlecheck"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides (BUNDLECHECK_WORK_DIR, ...).
	EnvPrefix = "BUNDLECHECK"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the bundlecheck configuration directory: ~/Library/Application Support
// on macOS and $XDG_CONFIG_HOME (defaulting to ~/.config) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// ConfigFilePath returns the path of the default config file.
func ConfigFilePath() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt), nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""

	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'bundlecheck config show' to see the default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		if err := loadCUEIntoViper(v, opts.ConfigFilePath); err != nil {
			return nil, "", loadError(opts.ConfigFilePath, err)
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
		if err != nil {
			return nil, "", err
		}

		for _, candidate := range []string{
			filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt),
			ConfigFileName + "." + ConfigFileExt,
		} {
			if !fileExists(candidate) {
				continue
			}
			if err := loadCUEIntoViper(v, candidate); err != nil {
				return nil, "", loadError(candidate, err)
			}
			resolvedPath = candidate
			break
		}
		// No config file: defaults and environment only.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Give every bundle a unique tag and either a version or a declaration file").
			WithSuggestion("Use a Go duration such as \"10m\" for timeout").
			WithSuggestion("Keep venv_dir a relative path below work_dir").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()
	v.SetDefault("work_dir", defaults.WorkDir)
	v.SetDefault("bundle_dir", defaults.BundleDir)
	v.SetDefault("arch", defaults.Arch)
	v.SetDefault("runtime", string(defaults.Runtime))
	v.SetDefault("shell", defaults.Shell)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("test_package", defaults.TestPackage)
	v.SetDefault("venv_dir", defaults.VenvDir)
	v.SetDefault("env_files", defaults.EnvFiles)
	v.SetDefault("isolation.user", defaults.Isolation.User)
	v.SetDefault("isolation.home", defaults.Isolation.Home)
	v.SetDefault("isolation.force", defaults.Isolation.Force)
	v.SetDefault("modules.extra", defaults.Modules.Extra)
	v.SetDefault("modules.skip", defaults.Modules.Skip)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
	v.SetDefault("ui.color_scheme", string(defaults.UI.ColorScheme))

	bundles := make([]map[string]any, 0, len(defaults.Bundles))
	for _, b := range defaults.Bundles {
		bundles = append(bundles, map[string]any{"tag": b.Tag, "version": b.Version})
	}
	v.SetDefault("bundles", bundles)
}

func loadError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithSuggestion("Check that the file contains valid CUE syntax").
		WithSuggestion("Verify the configuration values match the expected schema").
		WithSuggestion("Run 'bundlecheck config init' to write a commented default file").
		Wrap(err).
		BuildError()
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// Config fields are optional, so the unified value is validated with
// Concrete(false) and decoded to a map that Viper merges over its defaults.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := checkFileSize(data, DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes a default config file if none exists and returns its path.
func CreateDefaultConfig() (string, bool, error) {
	cfgPath, err := ConfigFilePath()
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, false, nil
	}
	if err := writeConfig(cfgPath, DefaultConfig()); err != nil {
		return "", false, err
	}
	return cfgPath, true, nil
}

// Save writes the configuration to the default config file.
func Save(cfg *Config) error {
	cfgPath, err := ConfigFilePath()
	if err != nil {
		return err
	}
	return writeConfig(cfgPath, cfg)
}

func writeConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// bundlecheck configuration file\n\n")

	fmt.Fprintf(&sb, "work_dir: %q\n", cfg.WorkDir)
	if cfg.BundleDir != "" {
		fmt.Fprintf(&sb, "bundle_dir: %q\n", cfg.BundleDir)
	}
	if cfg.Arch != "" {
		fmt.Fprintf(&sb, "arch: %q\n", cfg.Arch)
	}
	fmt.Fprintf(&sb, "runtime: %q\n", cfg.Runtime)
	if cfg.Shell != "" {
		fmt.Fprintf(&sb, "shell: %q\n", cfg.Shell)
	}
	if cfg.Timeout != "" {
		fmt.Fprintf(&sb, "timeout: %q\n", cfg.Timeout)
	}
	fmt.Fprintf(&sb, "test_package: %q\n", cfg.TestPackage)
	fmt.Fprintf(&sb, "venv_dir: %q\n", cfg.VenvDir)
	if len(cfg.EnvFiles) > 0 {
		sb.WriteString("env_files: " + cueStringList(cfg.EnvFiles) + "\n")
	}

	sb.WriteString("\nisolation: {\n")
	fmt.Fprintf(&sb, "\tuser:  %q\n", cfg.Isolation.User)
	fmt.Fprintf(&sb, "\thome:  %q\n", cfg.Isolation.Home)
	fmt.Fprintf(&sb, "\tforce: %v\n", cfg.Isolation.Force)
	sb.WriteString("}\n")

	sb.WriteString("\nbundles: [\n")
	for _, b := range cfg.Bundles {
		fields := []string{fmt.Sprintf("tag: %q", b.Tag)}
		if b.Version != "" {
			fields = append(fields, fmt.Sprintf("version: %q", b.Version))
		}
		if b.Declaration != "" {
			fields = append(fields, fmt.Sprintf("declaration: %q", b.Declaration))
		}
		if b.Path != "" {
			fields = append(fields, fmt.Sprintf("path: %q", b.Path))
		}
		sb.WriteString("\t{" + strings.Join(fields, ", ") + "},\n")
	}
	sb.WriteString("]\n")

	sb.WriteString("\nmodules: {\n")
	sb.WriteString("\textra: " + cueStringList(cfg.Modules.Extra) + "\n")
	sb.WriteString("\tskip:  " + cueStringList(cfg.Modules.Skip) + "\n")
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose:      %v\n", cfg.UI.Verbose)
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	sb.WriteString("}\n")

	return sb.String()
}

func cueStringList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
