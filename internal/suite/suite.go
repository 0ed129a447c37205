// SPDX-License-Identifier: MPL-2.0

// Package suite plans and runs bundle checks.
//
// Checks run one after the other in declaration order, and the run stops at
// the first failing check. The shared environment (work directory, isolation
// identity) is prepared once before the first check and never rolled back.
package suite

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/niess/linuxdeploy-plugin-python/internal/bundle"
	"github.com/niess/linuxdeploy-plugin-python/internal/invariant"
	"github.com/niess/linuxdeploy-plugin-python/internal/isolate"
	"github.com/niess/linuxdeploy-plugin-python/internal/modules"
	"github.com/niess/linuxdeploy-plugin-python/internal/probe"
	"github.com/niess/linuxdeploy-plugin-python/internal/roundtrip"
	"github.com/niess/linuxdeploy-plugin-python/internal/runtime"
	"github.com/niess/linuxdeploy-plugin-python/internal/venv"
)

// Suite holds everything the checks share.
type Suite struct {
	// Session runs every command.
	Session *runtime.Session
	// Isolation is prepared before the first check when set.
	Isolation *isolate.Context
	// Bundles are the units under test, in declaration order.
	Bundles []bundle.Descriptor
	// Package is the round trip test package.
	Package string
	// Catalogue lists the modules the modules check imports.
	Catalogue modules.Catalogue
	// VenvDir is the virtual environment directory, relative to the workspace.
	VenvDir string
	// OnResult is called after each check.
	OnResult func(CheckResult)
}

// Plan lists the checks Run would execute, in order.
func (s *Suite) Plan(f Filter) []Check {
	var checks []Check
	for _, b := range s.Bundles {
		for _, k := range Kinds() {
			c := Check{Name: CheckName(b.Tag, k), Kind: k, Bundle: b}
			if applies(k, b) && f.Match(c) {
				checks = append(checks, c)
			}
		}
	}
	return checks
}

// Run executes the planned checks and stops at the first failure, which is
// returned as a *CheckError. The report is returned in both cases.
func (s *Suite) Run(ctx context.Context, f Filter) (*Report, error) {
	report := &Report{RunID: uuid.New(), Started: time.Now()}
	log := slog.With("run_id", report.RunID.String())

	checks := s.Plan(f)
	log.Debug("suite planned", "checks", len(checks), "bundles", len(s.Bundles))

	if s.Isolation != nil {
		versions := make([]bundle.Version, len(s.Bundles))
		for i, b := range s.Bundles {
			versions[i] = b.Version
		}
		if err := s.Isolation.Prepare(versions...); err != nil {
			return report, fmt.Errorf("failed to prepare isolated environment: %w", err)
		}
	}

	for i, c := range checks {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		log.Debug("check started", "check", c.Name, "bundle", c.Bundle.Path)
		start := time.Now()
		err := s.runCheck(ctx, c)
		res := CheckResult{Name: c.Name, Kind: c.Kind, Err: err, Duration: time.Since(start)}
		report.Results = append(report.Results, res)
		if s.OnResult != nil {
			s.OnResult(res)
		}

		if err != nil {
			log.Debug("check failed", "check", c.Name, "error", err, "duration", res.Duration)
			for _, rest := range checks[i+1:] {
				report.Skipped = append(report.Skipped, rest.Name)
			}
			return report, &CheckError{Check: c.Name, Err: err}
		}
		log.Debug("check passed", "check", c.Name, "duration", res.Duration)
	}
	return report, nil
}

func (s *Suite) runCheck(ctx context.Context, c Check) error {
	switch c.Kind {
	case KindBase:
		return s.checkBase(ctx, c.Bundle)
	case KindVenv:
		return s.checkVenv(ctx, c.Bundle)
	case KindModules:
		return s.checkModules(ctx, c.Bundle)
	default:
		return fmt.Errorf("%w %q", ErrUnknownKind, c.Kind)
	}
}

// checkBase probes the bundle with symlinks resolved, then round-trips a user
// install reported against the bundle path as located.
func (s *Suite) checkBase(ctx context.Context, b bundle.Descriptor) error {
	rec, err := probe.Probe(ctx, s.Session, probe.Target{Interpreter: b.Resolved})
	if err != nil {
		return err
	}
	exp := invariant.Expectation{Mode: invariant.ModeBase, Version: b.Version, Executable: b.Resolved}
	if err := invariant.Check(rec, exp); err != nil {
		return err
	}
	return roundtrip.Verify(ctx, s.Session, roundtrip.BaseContext(b, s.Package))
}

func (s *Suite) checkVenv(ctx context.Context, b bundle.Descriptor) error {
	d, err := venv.New(s.Session, b, s.VenvDir).Verify(ctx)
	if err != nil {
		return err
	}
	return roundtrip.Verify(ctx, s.Session, roundtrip.VenvContext(d, b.Version, s.Package))
}

func (s *Suite) checkModules(ctx context.Context, b bundle.Descriptor) error {
	cat := s.Catalogue
	if cat == nil {
		cat = modules.Default()
	}
	return modules.Verify(ctx, s.Session, b.Path, cat.For(b.Version.Major))
}
