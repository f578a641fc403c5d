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
	"fmt"
	"strconv"
	"strings"
)

// Error types for version parsing failures
var (
	ErrEmptyVersion      = errors.New("version string is empty")
	ErrTooManyComponents = errors.New("version has more than 3 components")
	ErrNonNumeric        = errors.New("version component is not numeric")
	ErrNegativeComponent = errors.New("version component cannot be negative")
	ErrNoVersionField    = errors.New("package string has no version field")
	ErrLengthMismatch    = errors.New("version sequences differ in length")
	ErrRegression        = errors.New("version component regressed")
)

// Version is a dotted stream version such as "4.1" with one to three components.
type Version struct {
	Major int `json:"major,omitempty" yaml:"major,omitempty"`
	Minor int `json:"minor,omitempty" yaml:"minor,omitempty"`
	Patch int `json:"patch,omitempty" yaml:"patch,omitempty"`

	// Precision indicates how many components are significant (1, 2, or 3)
	Precision int `json:"precision,omitempty" yaml:"precision,omitempty"`
}

// String returns the version respecting its precision.
func (v Version) String() string {
	switch v.Precision {
	case 1:
		return fmt.Sprintf("%d", v.Major)
	case 2:
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	default:
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
}

// IsValid returns true if all components are non-negative and precision is 1, 2, or 3.
func (v Version) IsValid() bool {
	if v.Major < 0 || v.Minor < 0 || v.Patch < 0 {
		return false
	}
	return v.Precision >= 1 && v.Precision <= 3
}

// ParseVersion parses "1", "1.2" or "1.2.3", with an optional "v" prefix.
func ParseVersion(s string) (Version, error) {
	if s == "" {
		return Version{}, ErrEmptyVersion
	}
	s = strings.TrimPrefix(s, "v")

	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return Version{}, ErrTooManyComponents
	}

	var v Version
	for i, part := range parts {
		num, err := parseComponent(part)
		if err != nil {
			return Version{}, err
		}
		switch i {
		case 0:
			v.Major = num
		case 1:
			v.Minor = num
		case 2:
			v.Patch = num
		}
	}

	v.Precision = len(parts)
	return v, nil
}

// MustParseVersion parses a version string and panics if parsing fails.
// Only use this for hardcoded strings or in tests.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(fmt.Sprintf("MustParseVersion: %v", err))
	}
	return v
}

// Components is an arbitrary-length numeric version sequence, e.g. 0.9.24 -> [0 9 24].
type Components []int

// String joins the components with dots.
func (c Components) String() string {
	parts := make([]string, len(c))
	for i, n := range c {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// ParseComponents parses a dot-separated numeric sequence of any length.
func ParseComponents(s string) (Components, error) {
	if s == "" {
		return nil, ErrEmptyVersion
	}
	parts := strings.Split(s, ".")
	out := make(Components, 0, len(parts))
	for _, part := range parts {
		num, err := parseComponent(part)
		if err != nil {
			return nil, err
		}
		out = append(out, num)
	}
	return out, nil
}

// PackageComponents extracts the version sequence from an installed package
// string such as "imgbased-0.9.24-0.1.el7ev.noarch": the second dash-delimited
// field, split on dots.
func PackageComponents(pkg string) (Components, error) {
	fields := strings.Split(strings.TrimSpace(pkg), "-")
	if len(fields) < 2 {
		return nil, fmt.Errorf("%w: %q", ErrNoVersionField, pkg)
	}
	return ParseComponents(fields[1])
}

// CheckMonotonic compares two sequences element by element. Every position is
// inspected; the returned error names all positions where old exceeds new.
// Sequences of different lengths are rejected without comparison.
func CheckMonotonic(old, new Components) error {
	if len(old) != len(new) {
		return fmt.Errorf("%w: %s has %d, %s has %d", ErrLengthMismatch, old, len(old), new, len(new))
	}

	var regressed []string
	for i := range old {
		if old[i] > new[i] {
			regressed = append(regressed, fmt.Sprintf("position %d: %d > %d", i, old[i], new[i]))
		}
	}
	if len(regressed) > 0 {
		return fmt.Errorf("%w: %s -> %s (%s)", ErrRegression, old, new, strings.Join(regressed, ", "))
	}
	return nil
}

func parseComponent(part string) (int, error) {
	if part == "" {
		return 0, fmt.Errorf("%w: empty component", ErrNonNumeric)
	}
	num, err := strconv.Atoi(part)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNonNumeric, part)
	}
	if num < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeComponent, num)
	}
	return num, nil
}
