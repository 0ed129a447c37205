// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/niess/linuxdeploy-plugin-python/internal/bundle"
	"github.com/niess/linuxdeploy-plugin-python/internal/config"
	"github.com/niess/linuxdeploy-plugin-python/internal/isolate"
	"github.com/niess/linuxdeploy-plugin-python/internal/issue"
	"github.com/niess/linuxdeploy-plugin-python/internal/modules"
	"github.com/niess/linuxdeploy-plugin-python/internal/runtime"
)

var errUnknownBundle = errors.New("unknown bundle tag")

type (
	// overrides are command-line values that take precedence over configuration.
	overrides struct {
		workDir   string
		bundleDir string
		runtime   string
		arch      string
		bundles   []string
	}

	// environment is everything a command needs to run checks, built once
	// from configuration before any command executes.
	environment struct {
		cfg          *config.Config
		isolation    *isolate.Context
		locator      bundle.Locator
		declarations []bundle.Declaration
	}
)

func (o *overrides) register(cmd *cobra.Command, withBundles bool) {
	cmd.Flags().StringVar(&o.workDir, "work-dir", "", "directory in which checks run (overrides work_dir)")
	cmd.Flags().StringVar(&o.runtime, "runtime", "", "shell runtime: native or virtual (overrides runtime)")
	cmd.Flags().StringVar(&o.arch, "arch", "", "architecture tag of the bundle file names (overrides arch)")
	if withBundles {
		cmd.Flags().StringVar(&o.bundleDir, "bundle-dir", "", "directory holding the bundles (overrides bundle_dir)")
		cmd.Flags().StringSliceVarP(&o.bundles, "bundle", "b", nil, "only check the bundle with this tag (repeatable)")
	}
}

// apply writes the overrides into cfg.
func (o *overrides) apply(cfg *config.Config) error {
	if o.workDir != "" {
		cfg.WorkDir = o.workDir
	}
	if o.bundleDir != "" {
		cfg.BundleDir = o.bundleDir
	}
	if o.arch != "" {
		cfg.Arch = o.arch
	}
	if o.runtime != "" {
		mode := config.RuntimeMode(o.runtime)
		if ok, errs := mode.IsValid(); !ok {
			return issue.NewErrorContext().
				WithOperation("select runtime").
				WithResource(o.runtime).
				WithSuggestion("Use --runtime native or --runtime virtual").
				WithIssue(issue.InvalidRuntimeModeId).
				Wrap(errs[0]).
				BuildError()
		}
		cfg.Runtime = mode
	}
	return nil
}

// newEnvironment derives the isolation context and the selected bundle
// declarations from cfg.
func newEnvironment(cfg *config.Config, o *overrides) (*environment, error) {
	if err := o.apply(cfg); err != nil {
		return nil, err
	}

	ic, err := isolate.New(isolate.Options{
		WorkDir:  cfg.WorkDir,
		User:     cfg.Isolation.User,
		Home:     cfg.Isolation.Home,
		Force:    cfg.Isolation.Force,
		Arch:     cfg.Arch,
		EnvFiles: cfg.EnvFiles,
	})
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("prepare isolated environment").
			WithResource(cfg.WorkDir).
			WithSuggestion("Check the isolation and env_files settings").
			Wrap(err).
			BuildError()
	}

	bundleDir, err := filepath.Abs(cfg.EffectiveBundleDir())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bundle directory: %w", err)
	}

	decls, err := selectDeclarations(cfg.Bundles, o.bundles)
	if err != nil {
		return nil, err
	}

	return &environment{
		cfg:          cfg,
		isolation:    ic,
		locator:      bundle.Locator{Dir: bundleDir, Arch: ic.Arch},
		declarations: decls,
	}, nil
}

// selectDeclarations converts configured bundles into declarations, keeping
// only the requested tags (all when none are requested).
func selectDeclarations(bundles []config.BundleConfig, tags []string) ([]bundle.Declaration, error) {
	known := make([]string, 0, len(bundles))
	for _, b := range bundles {
		known = append(known, b.Tag)
	}
	for _, t := range tags {
		if !slices.Contains(known, t) {
			return nil, issue.NewErrorContext().
				WithOperation("select bundles").
				WithResource(t).
				WithSuggestion("Configured bundles: " + strings.Join(known, ", ")).
				WithIssue(issue.BundleNotFoundId).
				Wrap(fmt.Errorf("%w %q", errUnknownBundle, t)).
				BuildError()
		}
	}

	var decls []bundle.Declaration
	for _, b := range bundles {
		if len(tags) > 0 && !slices.Contains(tags, b.Tag) {
			continue
		}
		decls = append(decls, bundle.Declaration{Tag: b.Tag, Version: b.Version, Source: b.Declaration, Path: b.Path})
	}
	return decls, nil
}

// openSession builds the command session for the configured runtime.
func (e *environment) openSession() (*runtime.Session, error) {
	registry := runtime.BuildRegistry(e.cfg)
	runner, err := registry.Get(runtime.RuntimeType(e.cfg.Runtime))
	if err != nil {
		return nil, err
	}
	if !runner.Available() {
		return nil, issue.NewErrorContext().
			WithOperation("select runtime").
			WithResource(runner.Name()).
			WithSuggestion("Install bash, set 'shell' in the configuration, or use --runtime virtual").
			WithIssue(issue.ShellNotFoundId).
			Wrap(runtime.ErrNoShell).
			BuildError()
	}

	timeout, err := e.cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	ws, err := runtime.NewLocalWorkspace(e.isolation.WorkDir)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("create work directory").
			WithResource(e.isolation.WorkDir).
			WithSuggestion("Choose a writable directory with --work-dir").
			Wrap(err).
			BuildError()
	}

	return &runtime.Session{
		Runner:    runner,
		Workspace: ws,
		Env:       e.isolation.Environ(nil),
		Timeout:   timeout,
	}, nil
}

// lock takes the work directory for this run.
func (e *environment) lock() (*isolate.WorkLock, error) {
	l, err := e.isolation.Lock()
	if err != nil {
		ctx := issue.NewErrorContext().
			WithOperation("lock work directory").
			WithResource(e.isolation.WorkDir)
		if errors.Is(err, isolate.ErrWorkDirBusy) {
			ctx = ctx.WithIssue(issue.WorkDirBusyId)
		}
		return nil, ctx.Wrap(err).BuildError()
	}
	return l, nil
}

// locate finds every selected bundle on disk.
func (e *environment) locate() ([]bundle.Descriptor, error) {
	descs := make([]bundle.Descriptor, 0, len(e.declarations))
	for _, d := range e.declarations {
		desc, err := e.locator.Locate(d)
		if err != nil {
			return nil, wrapLocateError(d, e.locator, err)
		}
		descs = append(descs, desc)
	}
	return descs, nil
}

// expected returns descriptors for the selected bundles without touching the
// bundle files; only the declared versions are resolved.
func (e *environment) expected() ([]bundle.Descriptor, error) {
	descs := make([]bundle.Descriptor, 0, len(e.declarations))
	for _, d := range e.declarations {
		version, err := d.ResolveVersion()
		if err != nil {
			return nil, wrapLocateError(d, e.locator, err)
		}
		path := d.Path
		if path == "" {
			path = e.locator.Path(d.Tag)
		}
		descs = append(descs, bundle.Descriptor{Tag: d.Tag, Path: path, Resolved: path, Version: version})
	}
	return descs, nil
}

// catalogue returns the module catalogue adjusted by configuration.
func (e *environment) catalogue() (modules.Catalogue, error) {
	cat := modules.Default().With(e.cfg.Modules.Extra...).Without(e.cfg.Modules.Skip...)
	if err := cat.Validate(); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("build module catalogue").
			WithSuggestion("Module names in modules.extra must be dotted Python identifiers").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}
	return cat, nil
}

func wrapLocateError(d bundle.Declaration, l bundle.Locator, err error) error {
	ctx := issue.NewErrorContext().WithOperation("locate bundle " + d.Tag)
	declErr := errors.Is(err, bundle.ErrVersionNotFound) ||
		errors.Is(err, bundle.ErrDeclarationSyntax) ||
		errors.Is(err, bundle.ErrInvalidVersion)
	switch {
	case errors.Is(err, bundle.ErrBundleNotFound):
		ctx = ctx.WithResource(l.Path(d.Tag)).
			WithSuggestion("Build the bundle with linuxdeploy-plugin-python and copy it to the bundle directory").
			WithSuggestion("Set bundle_dir, arch or bundles[].path in the configuration").
			WithIssue(issue.BundleNotFoundId)
	case declErr && d.Source != "":
		ctx = ctx.WithResource(d.Source).
			WithSuggestion("The declaration must contain: export " + bundle.VersionVariable + "=\"X.Y.Z\"").
			WithIssue(issue.DeclarationParseFailedId)
	case declErr:
		ctx = ctx.WithSuggestion("Give the bundle an X.Y.Z version in the configuration").
			WithIssue(issue.DeclarationParseFailedId)
	default:
		ctx = ctx.WithResource(d.Source)
	}
	return ctx.Wrap(err).BuildError()
}
