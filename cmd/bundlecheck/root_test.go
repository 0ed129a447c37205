// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestGetVersionString(t *testing.T) {
	orig := Version
	origCommit := Commit
	origDate := BuildDate
	defer func() {
		Version = orig
		Commit = origCommit
		BuildDate = origDate
	}()

	Version = "dev"
	if got := getVersionString(); got != "dev (built from source)" {
		t.Errorf("getVersionString() = %q", got)
	}

	Version = "v1.2.3"
	Commit = "abc1234"
	BuildDate = "2026-01-02"
	want := "v1.2.3 (commit: abc1234, built: 2026-01-02)"
	if got := getVersionString(); got != want {
		t.Errorf("getVersionString() = %q, want %q", got, want)
	}
}

func TestConfigureLogging(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	logger := configureLogging(&buf, false)
	if logger.GetLevel() != log.InfoLevel {
		t.Errorf("level = %v, want info", logger.GetLevel())
	}
	slog.Debug("hidden message")
	if buf.Len() != 0 {
		t.Errorf("debug output leaked at info level: %q", buf.String())
	}

	logger = configureLogging(&buf, true)
	if logger.GetLevel() != log.DebugLevel {
		t.Errorf("level = %v, want debug", logger.GetLevel())
	}
	slog.Debug("visible message")
	if !strings.Contains(buf.String(), "visible message") {
		t.Errorf("expected debug output, got %q", buf.String())
	}
}

func TestNewRootCommand_Subcommands(t *testing.T) {
	app, err := NewApp(Dependencies{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}})
	if err != nil {
		t.Fatal(err)
	}
	root := NewRootCommand(app)

	for _, name := range []string{"check", "plan", "probe", "declaration", "modules", "config"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	for _, name := range []string{"verbose", "config"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Errorf("persistent flag --%s not registered", name)
		}
	}
}
