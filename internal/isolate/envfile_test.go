// SPDX-License-Identifier: MPL-2.0

package isolate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := "APPIMAGE_EXTRACT_AND_RUN=1\nPYTHONNOUSERSITE=\"\"\n# pinned mirror\nexport PIP_INDEX_URL='https://mirror.example/simple'\n"
	if err := os.WriteFile(filepath.Join(dir, "bundle.env"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		want    map[string]string
		wantErr bool
	}{
		{
			name: "relative to base dir",
			path: "bundle.env",
			want: map[string]string{
				"APPIMAGE_EXTRACT_AND_RUN": "1",
				"PYTHONNOUSERSITE":         "",
				"PIP_INDEX_URL":            "https://mirror.example/simple",
			},
		},
		{name: "optional and absent", path: "missing.env?", want: map[string]string{}},
		{name: "required and absent", path: "missing.env", wantErr: true},
		{name: "empty path", path: "?", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := map[string]string{}
			err := loadEnvFile(env, tt.path, dir)
			if (err != nil) != tt.wantErr {
				t.Fatalf("loadEnvFile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(env) != len(tt.want) {
				t.Errorf("loadEnvFile() loaded %d vars, want %d: %v", len(env), len(tt.want), env)
			}
			for k, v := range tt.want {
				if env[k] != v {
					t.Errorf("env[%q] = %q, want %q", k, env[k], v)
				}
			}
		})
	}
}

func TestLoadEnvFile_Malformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.env")
	if err := os.WriteFile(path, []byte("PYTHONHOME\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := loadEnvFile(map[string]string{}, path, ""); err == nil {
		t.Error("loadEnvFile() expected error for a line without '='")
	}
}

func TestLoadEnvFile_Overrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "override.env")
	if err := os.WriteFile(path, []byte("PYTHONPATH=/opt/site\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	env := map[string]string{"PYTHONPATH": "/usr/lib/python3", "LANG": "C.UTF-8"}
	if err := loadEnvFile(env, path, "/ignored"); err != nil {
		t.Fatalf("loadEnvFile() error: %v", err)
	}
	if env["PYTHONPATH"] != "/opt/site" {
		t.Errorf("PYTHONPATH = %q, want /opt/site", env["PYTHONPATH"])
	}
	if env["LANG"] != "C.UTF-8" {
		t.Errorf("LANG = %q, want C.UTF-8", env["LANG"])
	}
}
