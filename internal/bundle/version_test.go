// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"errors"
	"slices"
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    Version
		wantErr bool
	}{
		{"3.7.3", Version{3, 7, 3}, false},
		{"2.7.16", Version{2, 7, 16}, false},
		{"3.10.0", Version{3, 10, 0}, false},
		{"3.7", Version{}, true},
		{"3.7.3.1", Version{}, true},
		{"v3.7.3", Version{}, true},
		{"3.07.3", Version{}, true},
		{"3.7.3rc1", Version{}, true},
		{"3.7.3-rc1", Version{}, true},
		{"", Version{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVersion(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVersion(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidVersion) {
					t.Errorf("expected ErrInvalidVersion, got %v", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseVersion(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestVersion_Forms(t *testing.T) {
	v := MustParseVersion("3.7.3")

	if v.String() != "3.7.3" {
		t.Errorf("String() = %q", v.String())
	}
	if v.MajorMinor() != "3.7" {
		t.Errorf("MajorMinor() = %q", v.MajorMinor())
	}
	if !slices.Equal(v.Ints(), []int{3, 7, 3}) {
		t.Errorf("Ints() = %v", v.Ints())
	}
	if v.IsZero() || !(Version{}).IsZero() {
		t.Error("IsZero() mismatch")
	}
}

func TestVersion_Compare(t *testing.T) {
	if MustParseVersion("2.7.16").Compare(MustParseVersion("3.7.3")) != -1 {
		t.Error("2.7.16 should be lower than 3.7.3")
	}
	if MustParseVersion("3.10.0").Compare(MustParseVersion("3.9.9")) != 1 {
		t.Error("3.10.0 should be greater than 3.9.9")
	}
	if MustParseVersion("3.7.3").Compare(Version{3, 7, 3}) != 0 {
		t.Error("equal versions should compare 0")
	}
}

func TestVersion_Text(t *testing.T) {
	var v Version
	if err := v.UnmarshalText([]byte("3.8.10")); err != nil {
		t.Fatalf("UnmarshalText() error: %v", err)
	}
	text, _ := v.MarshalText()
	if string(text) != "3.8.10" {
		t.Errorf("MarshalText() = %q", text)
	}
	if err := v.UnmarshalText([]byte("bad")); !errors.Is(err, ErrInvalidVersion) {
		t.Errorf("expected ErrInvalidVersion, got %v", err)
	}
}

func TestMustParseVersion_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParseVersion should panic on invalid input")
		}
	}()
	MustParseVersion("3")
}
