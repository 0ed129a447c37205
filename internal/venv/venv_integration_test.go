// SPDX-License-Identifier: MPL-2.0

package venv

import (
	"context"
	"fmt"
	"testing"

	"github.com/niess/linuxdeploy-plugin-python/internal/bundle"
	"github.com/niess/linuxdeploy-plugin-python/internal/probe"
	"github.com/niess/linuxdeploy-plugin-python/internal/testutil/containertest"
)

// TestVerifier_Container creates a venv from a stock interpreter, which must
// satisfy the same invariants as one created from a bundle.
func TestVerifier_Container(t *testing.T) {
	c := containertest.Start(t, containertest.DefaultImage)
	s := containertest.Session(c, []string{"PATH=/usr/local/bin:/usr/bin:/bin", "HOME=/root", "USER=beta"})
	ctx := context.Background()

	rec, err := probe.Probe(ctx, s, probe.Target{Interpreter: "python3"})
	if err != nil {
		t.Fatalf("base probe: %v", err)
	}
	version, err := bundle.ParseVersion(fmt.Sprintf("%d.%d.%d", rec.Version[0], rec.Version[1], rec.Version[2]))
	if err != nil {
		t.Fatal(err)
	}

	v := New(s, bundle.Descriptor{Tag: "python3", Path: "/usr/local/bin/python3", Version: version}, "ENV")
	desc, err := v.Verify(ctx)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if desc.Root != containertest.WorkDir+"/ENV" {
		t.Errorf("Root = %q", desc.Root)
	}
	if v.Record().Executable != desc.Python {
		t.Errorf("Executable = %q, want %q", v.Record().Executable, desc.Python)
	}
}
