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

package snapshotter

import (
	"context"
	"fmt"

	"github.com/hostqe/upgradecheck/pkg/errors"
	"github.com/hostqe/upgradecheck/pkg/header"
)

// Tag marks whether a snapshot was taken before or after the upgrade.
type Tag string

const (
	TagOld Tag = "old"
	TagNew Tag = "new"
)

// IsValid reports whether t is one of the known tags.
func (t Tag) IsValid() bool {
	return t == TagOld || t == TagNew
}

// Snapshotter captures host state for one side of an upgrade.
type Snapshotter interface {
	Collect(ctx context.Context, tag Tag) (*Snapshot, error)
}

// NewSnapshot creates an empty snapshot for tag.
func NewSnapshot(tag Tag) *Snapshot {
	return &Snapshot{Tag: tag}
}

// Snapshot is the raw output of the fixed command battery on one host.
// Each field holds the trimmed output of its command.
type Snapshot struct {
	header.Header `json:",inline" yaml:",inline"`

	Tag  Tag    `json:"tag" yaml:"tag"`
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	ImgbasedVersion string `json:"imgbased_ver" yaml:"imgbased_ver"`
	UpdateVersion   string `json:"update_ver" yaml:"update_ver"`
	ImgbaseW        string `json:"imgbase_w" yaml:"imgbase_w"`
	ImgbaseLayout   string `json:"imgbase_layout" yaml:"imgbase_layout"`
	InitiatorName   string `json:"initiatorname_iscsi" yaml:"initiatorname_iscsi"`
	LVS             string `json:"lvs" yaml:"lvs"`
	Findmnt         string `json:"findmnt" yaml:"findmnt"`
}

// Validate checks that a loaded document is a tagged snapshot.
func (s *Snapshot) Validate() error {
	if s == nil {
		return errors.New(errors.ErrCodeInvalidRequest, "snapshot is nil")
	}
	if err := s.CheckKind(header.KindSnapshot); err != nil {
		return err
	}
	if !s.Tag.IsValid() {
		return errors.NewWithContext(errors.ErrCodeInvalidRequest, fmt.Sprintf("invalid snapshot tag %q", s.Tag),
			map[string]any{"tag": string(s.Tag)})
	}
	return nil
}
