// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package version

import (
	"errors"
	"strings"
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Version
		wantErr error
	}{
		{"major only", "4", Version{Major: 4, Precision: 1}, nil},
		{"stream", "4.1", Version{Major: 4, Minor: 1, Precision: 2}, nil},
		{"full", "v1.2.3", Version{Major: 1, Minor: 2, Patch: 3, Precision: 3}, nil},
		{"empty", "", Version{}, ErrEmptyVersion},
		{"too many", "1.2.3.4", Version{}, ErrTooManyComponents},
		{"non numeric", "4.x", Version{}, ErrNonNumeric},
		{"empty component", "4.", Version{}, ErrNonNumeric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVersion(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseVersion(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseVersion(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseVersion(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestVersionString(t *testing.T) {
	if got := MustParseVersion("4.1").String(); got != "4.1" {
		t.Errorf("String() = %q, want 4.1", got)
	}
	if got := MustParseVersion("4").String(); got != "4" {
		t.Errorf("String() = %q, want 4", got)
	}
}

func TestPackageComponents(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"imgbased", "imgbased-0.9.24-0.1.el7ev.noarch", "0.9.24", nil},
		{"trailing whitespace", "imgbased-1.0.16-0.1.el7ev.noarch\n", "1.0.16", nil},
		{"no dash", "imgbased", "", ErrNoVersionField},
		{"non numeric", "python-imgbased-0.9.24", "", ErrNonNumeric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PackageComponents(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("PackageComponents(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("PackageComponents(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestCheckMonotonic(t *testing.T) {
	tests := []struct {
		name    string
		old     Components
		new     Components
		wantErr error
	}{
		{"equal", Components{0, 9, 24}, Components{0, 9, 24}, nil},
		{"patch bump", Components{0, 9, 24}, Components{0, 9, 25}, nil},
		{"every position greater", Components{0, 9, 24}, Components{1, 10, 30}, nil},
		{"length mismatch", Components{0, 9}, Components{0, 9, 24}, ErrLengthMismatch},
		{"patch regressed", Components{0, 9, 24}, Components{0, 9, 23}, ErrRegression},
		// element-wise: a later position may not drop even when an earlier one grew
		{"minor bump with lower patch", Components{0, 9, 24}, Components{0, 10, 1}, ErrRegression},
		{"empty sequences", Components{}, Components{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckMonotonic(tt.old, tt.new)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("CheckMonotonic(%s, %s) unexpected error: %v", tt.old, tt.new, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckMonotonic(%s, %s) error = %v, want %v", tt.old, tt.new, err, tt.wantErr)
			}
		})
	}
}

func TestCheckMonotonicReportsAllPositions(t *testing.T) {
	err := CheckMonotonic(Components{2, 9, 24}, Components{1, 9, 3})
	if err == nil {
		t.Fatal("expected regression error")
	}
	msg := err.Error()
	for _, want := range []string{"position 0", "position 2"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %q", msg, want)
		}
	}
}
