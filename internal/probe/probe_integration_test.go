// SPDX-License-Identifier: MPL-2.0

package probe

import (
	"context"
	"slices"
	"testing"

	"github.com/niess/linuxdeploy-plugin-python/internal/testutil/containertest"
)

// TestProbe_Container runs the real payload with a stock interpreter.
func TestProbe_Container(t *testing.T) {
	c := containertest.Start(t, containertest.DefaultImage)
	s := containertest.Session(c, []string{"PATH=/usr/local/bin:/usr/bin:/bin", "HOME=/root", "USER=beta"})

	rec, err := Probe(context.Background(), s, Target{Interpreter: "python3"})
	if err != nil {
		t.Fatalf("Probe() error: %v", err)
	}

	if rec.Schema != ScriptVersion {
		t.Errorf("Schema = %d, want %d", rec.Schema, ScriptVersion)
	}
	if !slices.Equal(rec.Version[:2], []int{3, 7}) {
		t.Errorf("Version = %v, want 3.7.x", rec.Version)
	}
	if rec.Prefix != "/usr/local" {
		t.Errorf("Prefix = %q, want /usr/local", rec.Prefix)
	}
	if rec.LastPath() != rec.SitePackages(rec.Prefix) {
		t.Errorf("last path entry = %q, want %q", rec.LastPath(), rec.SitePackages(rec.Prefix))
	}
	if rec.User != "beta" || rec.AppDir != "" {
		t.Errorf("user = %q appdir = %q", rec.User, rec.AppDir)
	}
}
