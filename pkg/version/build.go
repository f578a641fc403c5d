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
	"strings"
)

const (
	hostSeparator = "-host-"

	// LayoutMigrationCutoff is the first build date shipping the separate
	// /home, /tmp, /var/log and /var/log/audit volumes.
	LayoutMigrationCutoff = "20170506"
)

var (
	ErrNotHostBuild   = errors.New("build identifier has no -host- separator")
	ErrMalformedBuild = errors.New("build identifier is malformed")
)

// Build is a parsed host image identifier such as
// "redhat-virtualization-host-4.1-20170421.0".
type Build struct {
	Raw      string  `json:"raw" yaml:"raw"`
	Product  string  `json:"product" yaml:"product"`
	Stream   Version `json:"stream" yaml:"stream"`
	Date     string  `json:"date" yaml:"date"`
	Sequence string  `json:"sequence" yaml:"sequence"`
}

// ParseBuild parses "<product>-host-<major>.<minor>-<YYYYMMDD>.<seq>".
func ParseBuild(s string) (Build, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Build{}, ErrEmptyVersion
	}

	idx := strings.LastIndex(s, hostSeparator)
	if idx < 0 {
		return Build{}, fmt.Errorf("%w: %q", ErrNotHostBuild, s)
	}
	token := s[idx+len(hostSeparator):]

	streamPart, rest, ok := strings.Cut(token, "-")
	if !ok {
		return Build{}, fmt.Errorf("%w: %q has no date", ErrMalformedBuild, s)
	}
	stream, err := ParseVersion(streamPart)
	if err != nil {
		return Build{}, fmt.Errorf("%w: stream %q: %w", ErrMalformedBuild, streamPart, err)
	}

	date, seq, _ := strings.Cut(rest, ".")
	if !isDate(date) {
		return Build{}, fmt.Errorf("%w: date %q is not YYYYMMDD", ErrMalformedBuild, date)
	}

	return Build{
		Raw:      s,
		Product:  s[:idx+len("-host")],
		Stream:   stream,
		Date:     date,
		Sequence: seq,
	}, nil
}

// MustParseBuild parses a build identifier and panics if parsing fails.
// Only use this for hardcoded strings or in tests.
func MustParseBuild(s string) Build {
	b, err := ParseBuild(s)
	if err != nil {
		panic(fmt.Sprintf("MustParseBuild: %v", err))
	}
	return b
}

// String returns the raw identifier.
func (b Build) String() string {
	return b.Raw
}

// VersionToken returns the text after the last "-host-", e.g. "4.1-20170522.0".
// The update package of a build carries this token in its name.
func (b Build) VersionToken() string {
	idx := strings.LastIndex(b.Raw, hostSeparator)
	if idx < 0 {
		return b.Raw
	}
	return b.Raw[idx+len(hostSeparator):]
}

// DateToken returns the YYYYMMDD build date.
func (b Build) DateToken() string {
	return b.Date
}

// RequiresLayoutMigration reports whether an upgrade crosses the cutoff date,
// which means the target adds the separate volumes and mounts that the
// source lacks. YYYYMMDD strings order the same as dates.
func RequiresLayoutMigration(source, target Build) bool {
	return source.DateToken() < LayoutMigrationCutoff && target.DateToken() >= LayoutMigrationCutoff
}

func isDate(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
