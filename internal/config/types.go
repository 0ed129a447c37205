// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	// RuntimeNative runs commands through the host shell.
	RuntimeNative RuntimeMode = "native"
	// RuntimeVirtual runs commands in the embedded mvdan/sh interpreter.
	RuntimeVirtual RuntimeMode = "virtual"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultWorkDir is where checks run unless configured otherwise.
	DefaultWorkDir = "/tmp/test-linuxdeploy-plugin-python"
	// DefaultTestPackage is the package installed by the round-trip check.
	DefaultTestPackage = "test-pip-install"
	// DefaultVenvDir is the virtual environment directory, relative to the work dir.
	DefaultVenvDir = "ENV"
	// DefaultIsolationUser is adopted when the invoking user is unset or root.
	DefaultIsolationUser = "beta"
	// DefaultIsolationHome is the home directory of DefaultIsolationUser.
	DefaultIsolationHome = "/tmp/home/beta"
)

var (
	// ErrInvalidConfigRuntimeMode is returned when a config RuntimeMode value is not recognized.
	ErrInvalidConfigRuntimeMode = errors.New("invalid runtime mode")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidBundleConfig is the sentinel error wrapped by InvalidBundleConfigError.
	ErrInvalidBundleConfig = errors.New("invalid bundle config")
	// ErrInvalidTimeout is returned when the timeout is not a non-negative duration.
	ErrInvalidTimeout = errors.New("invalid timeout")
	// ErrInvalidVenvDir is returned when venv_dir does not name a directory
	// strictly inside the work directory.
	ErrInvalidVenvDir = errors.New("invalid venv_dir")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// RuntimeMode selects the shell runtime used to execute commands.
	RuntimeMode string

	// InvalidConfigRuntimeModeError is returned when a config RuntimeMode value is not recognized.
	// It wraps ErrInvalidConfigRuntimeMode for errors.Is() compatibility.
	InvalidConfigRuntimeModeError struct {
		Value RuntimeMode
	}

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidBundleConfigError is returned when a bundle entry cannot be used.
	InvalidBundleConfigError struct {
		Index  int
		Tag    string
		Reason string
	}

	// InvalidConfigError collects every validation failure of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// BundleConfig declares one bundle under test.
	BundleConfig struct {
		// Tag names the bundle (e.g. "python3"); it is also the file-name stem.
		Tag string `json:"tag" mapstructure:"tag"`
		// Version is the expected X.Y.Z version, inline.
		Version string `json:"version,omitempty" mapstructure:"version"`
		// Declaration is a shell file exporting PYTHON_VERSION, used when Version is empty.
		Declaration string `json:"declaration,omitempty" mapstructure:"declaration"`
		// Path overrides the located bundle path.
		Path string `json:"path,omitempty" mapstructure:"path"`
	}

	// IsolationConfig controls the identity adopted for checks.
	IsolationConfig struct {
		User string `json:"user" mapstructure:"user"`
		Home string `json:"home" mapstructure:"home"`
		// Force adopts the isolation identity even for a non-root user.
		Force bool `json:"force" mapstructure:"force"`
	}

	// ModulesConfig adjusts the module availability catalogue.
	ModulesConfig struct {
		Extra []string `json:"extra" mapstructure:"extra"`
		Skip  []string `json:"skip" mapstructure:"skip"`
	}

	// UIConfig contains UI-related configuration.
	UIConfig struct {
		// Verbose enables debug logging
		Verbose bool `json:"verbose" mapstructure:"verbose"`
		// ColorScheme sets the color scheme ("auto", "dark", "light")
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
	}

	// Config holds the application configuration.
	Config struct {
		// WorkDir is the directory in which checks run.
		WorkDir string `json:"work_dir" mapstructure:"work_dir"`
		// BundleDir holds the bundles under test; empty means WorkDir.
		BundleDir string `json:"bundle_dir" mapstructure:"bundle_dir"`
		// Arch is the bundle architecture tag; empty means ARCH or the host.
		Arch string `json:"arch" mapstructure:"arch"`
		// Runtime selects the shell runtime.
		Runtime RuntimeMode `json:"runtime" mapstructure:"runtime"`
		// Shell pins the host shell used by the native runtime.
		Shell string `json:"shell" mapstructure:"shell"`
		// Timeout bounds each command, as a Go duration. Empty means none.
		Timeout string `json:"timeout" mapstructure:"timeout"`
		// TestPackage is installed and run by the round-trip check.
		TestPackage string `json:"test_package" mapstructure:"test_package"`
		// VenvDir is the virtual environment directory, relative to WorkDir.
		VenvDir string `json:"venv_dir" mapstructure:"venv_dir"`
		// EnvFiles are dotenv files merged into the check environment.
		EnvFiles  []string        `json:"env_files" mapstructure:"env_files"`
		Isolation IsolationConfig `json:"isolation" mapstructure:"isolation"`
		Bundles   []BundleConfig  `json:"bundles" mapstructure:"bundles"`
		Modules   ModulesConfig   `json:"modules" mapstructure:"modules"`
		UI        UIConfig        `json:"ui" mapstructure:"ui"`
	}
)

// Error implements the error interface.
func (e *InvalidConfigRuntimeModeError) Error() string {
	return fmt.Sprintf("invalid runtime mode %q (valid: native, virtual)", e.Value)
}

// Unwrap returns ErrInvalidConfigRuntimeMode so callers can use errors.Is for programmatic detection.
func (e *InvalidConfigRuntimeModeError) Unwrap() error { return ErrInvalidConfigRuntimeMode }

// String returns the string representation of the RuntimeMode.
func (m RuntimeMode) String() string { return string(m) }

// IsValid returns whether the RuntimeMode is one of the defined runtime modes,
// and a list of validation errors if it is not.
func (m RuntimeMode) IsValid() (bool, []error) {
	switch m {
	case RuntimeNative, RuntimeVirtual:
		return true, nil
	default:
		return false, []error{&InvalidConfigRuntimeModeError{Value: m}}
	}
}

// Error implements the error interface.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error {
	return ErrInvalidColorScheme
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface.
func (e *InvalidBundleConfigError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("bundles[%d]: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("bundles[%d] (%s): %s", e.Index, e.Tag, e.Reason)
}

// Unwrap returns ErrInvalidBundleConfig for errors.Is() compatibility.
func (e *InvalidBundleConfigError) Unwrap() error { return ErrInvalidBundleConfig }

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %d field error(s): %s", len(e.FieldErrors), strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig and the field errors so callers can use
// errors.Is for programmatic detection.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// TimeoutDuration parses Timeout. An empty timeout is zero, meaning none.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if strings.TrimSpace(c.Timeout) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", ErrInvalidTimeout, c.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w %q: must not be negative", ErrInvalidTimeout, c.Timeout)
	}
	return d, nil
}

// EffectiveBundleDir returns BundleDir, falling back to WorkDir.
func (c *Config) EffectiveBundleDir() string {
	if c.BundleDir != "" {
		return c.BundleDir
	}
	return c.WorkDir
}

// IsValid returns whether the Config is valid, and a list of validation errors if it is not.
// It covers the constraints the CUE schema cannot express.
func (c *Config) IsValid() (bool, []error) {
	var errs []error
	if c.Runtime != "" {
		if ok, fieldErrs := c.Runtime.IsValid(); !ok {
			errs = append(errs, fieldErrs...)
		}
	}
	if c.UI.ColorScheme != "" {
		if ok, fieldErrs := c.UI.ColorScheme.IsValid(); !ok {
			errs = append(errs, fieldErrs...)
		}
	}
	if _, err := c.TimeoutDuration(); err != nil {
		errs = append(errs, err)
	}
	if err := validateVenvDir(c.VenvDir); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, validateBundles(c.Bundles)...)
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Validate returns the first validation error, or nil.
func (c *Config) Validate() error {
	if ok, errs := c.IsValid(); !ok {
		return errs[0]
	}
	return nil
}

// validateVenvDir rejects venv directories that are absolute or do not
// resolve below the work directory. The directory is removed before every
// venv check.
func validateVenvDir(dir string) error {
	if dir == "" {
		return nil
	}
	if filepath.IsAbs(dir) {
		return fmt.Errorf("%w %q: must be relative to work_dir", ErrInvalidVenvDir, dir)
	}
	clean := filepath.Clean(dir)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w %q: must name a directory inside work_dir", ErrInvalidVenvDir, dir)
	}
	return nil
}

// validateBundles checks that tags are unique and each bundle has a version source.
func validateBundles(bundles []BundleConfig) []error {
	var errs []error
	seen := make(map[string]int, len(bundles))
	for i, b := range bundles {
		if strings.TrimSpace(b.Tag) == "" {
			errs = append(errs, &InvalidBundleConfigError{Index: i, Reason: "tag is required"})
			continue
		}
		if first, ok := seen[b.Tag]; ok {
			errs = append(errs, &InvalidBundleConfigError{
				Index: i, Tag: b.Tag, Reason: fmt.Sprintf("duplicate tag (same as bundles[%d])", first),
			})
		}
		seen[b.Tag] = i
		if b.Version == "" && b.Declaration == "" {
			errs = append(errs, &InvalidBundleConfigError{Index: i, Tag: b.Tag, Reason: "either version or declaration is required"})
		}
	}
	return errs
}

// DefaultBundles returns the bundles checked when none are configured.
func DefaultBundles() []BundleConfig {
	return []BundleConfig{
		{Tag: "python2", Version: "2.7.16"},
		{Tag: "python3", Version: "3.7.3"},
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		WorkDir:     DefaultWorkDir,
		Runtime:     RuntimeNative,
		TestPackage: DefaultTestPackage,
		VenvDir:     DefaultVenvDir,
		EnvFiles:    []string{},
		Isolation: IsolationConfig{
			User: DefaultIsolationUser,
			Home: DefaultIsolationHome,
		},
		Bundles: DefaultBundles(),
		Modules: ModulesConfig{
			Extra: []string{},
			Skip:  []string{},
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}
