// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseDeclaration(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		want    Version
		wantErr error
	}{
		{
			name: "double quoted export",
			src:  "#!/bin/bash\nexport PYTHON_VERSION=\"3.7.3\"\n",
			want: Version{3, 7, 3},
		},
		{
			name: "single quoted export",
			src:  "export PYTHON_VERSION='2.7.16'\n",
			want: Version{2, 7, 16},
		},
		{
			name: "bare export",
			src:  "export PYTHON_VERSION=3.8.10",
			want: Version{3, 8, 10},
		},
		{
			name: "plain assignment among other statements",
			src:  "set -e\nPYTHON_VERSION=\"3.9.1\"\nexport PYTHON_SOURCE=https://example.org/x.tgz\n",
			want: Version{3, 9, 1},
		},
		{
			name: "last assignment wins",
			src:  "export PYTHON_VERSION=\"3.6.0\"\nexport PYTHON_VERSION=\"3.7.3\"\n",
			want: Version{3, 7, 3},
		},
		{
			name:    "commented out",
			src:     "# export PYTHON_VERSION=\"3.7.3\"\n",
			wantErr: ErrVersionNotFound,
		},
		{
			name:    "other variable",
			src:     "export PYTHON_VERSION_MAJOR=3\n",
			wantErr: ErrVersionNotFound,
		},
		{
			name:    "expansion is not literal",
			src:     "export PYTHON_VERSION=\"${MAJOR}.7.3\"\n",
			wantErr: ErrVersionNotFound,
		},
		{
			name:    "assignment prefix of a command",
			src:     "PYTHON_VERSION=3.7.3 ./build.sh\n",
			wantErr: ErrVersionNotFound,
		},
		{
			name:    "empty file",
			src:     "",
			wantErr: ErrVersionNotFound,
		},
		{
			name:    "malformed version",
			src:     "export PYTHON_VERSION=\"3.7\"\n",
			wantErr: ErrInvalidVersion,
		},
		{
			name:    "invalid shell",
			src:     "export PYTHON_VERSION=\"3.7.3\n",
			wantErr: ErrDeclarationSyntax,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDeclaration(strings.NewReader(tt.src), "python.sh")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseDeclaration() error = %v, want %v", err, tt.wantErr)
				}
				var declErr *DeclarationError
				if !errors.As(err, &declErr) || declErr.Source != "python.sh" {
					t.Errorf("expected *DeclarationError naming the source, got %T %v", err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDeclaration() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseDeclaration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadDeclaration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "python3.sh")
	if err := os.WriteFile(path, []byte("export PYTHON_VERSION=\"3.7.3\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	v, err := LoadDeclaration(path)
	if err != nil {
		t.Fatalf("LoadDeclaration() error: %v", err)
	}
	if v.String() != "3.7.3" {
		t.Errorf("LoadDeclaration() = %v", v)
	}

	if _, err := LoadDeclaration(filepath.Join(t.TempDir(), "missing.sh")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestDeclaration_ResolveVersion(t *testing.T) {
	src := filepath.Join(t.TempDir(), "python2.sh")
	if err := os.WriteFile(src, []byte("export PYTHON_VERSION=\"2.7.16\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		decl    Declaration
		want    string
		wantErr error
	}{
		{"inline", Declaration{Tag: "python3", Version: "3.7.3"}, "3.7.3", nil},
		{"inline wins over source", Declaration{Tag: "python3", Version: "3.7.3", Source: src}, "3.7.3", nil},
		{"source", Declaration{Tag: "python2", Source: src}, "2.7.16", nil},
		{"nothing", Declaration{Tag: "python3"}, "", ErrVersionNotFound},
		{"bad inline", Declaration{Tag: "python3", Version: "three"}, "", ErrInvalidVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.decl.ResolveVersion()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ResolveVersion() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveVersion() error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("ResolveVersion() = %v, want %s", got, tt.want)
			}
		})
	}
}
