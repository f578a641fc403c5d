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

package header

import (
	"time"

	"github.com/hostqe/upgradecheck/pkg/errors"
)

// Kind represents the type of a serialized harness document.
type Kind string

const (
	KindSnapshot           Kind = "Snapshot"
	KindVerificationResult Kind = "VerificationResult"
	KindRunReport          Kind = "RunReport"
)

// APIVersion is the schema version written into every document header.
const APIVersion = "upgradecheck.hostqe.io/v1alpha1"

// Metadata keys.
const (
	MetaTimestamp = "timestamp"
	MetaVersion   = "version"
	MetaHost      = "host"
	MetaTag       = "tag"
	MetaRunID     = "runId"
)

func (k Kind) String() string {
	return string(k)
}

// IsValid checks if the Kind is one of the recognized kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindSnapshot, KindVerificationResult, KindRunReport:
		return true
	default:
		return false
	}
}

// Option adds a metadata entry during Init. Empty values are skipped.
type Option func(map[string]string)

func withMeta(key, value string) Option {
	return func(m map[string]string) {
		if value != "" {
			m[key] = value
		}
	}
}

// WithHost records the host the document describes.
func WithHost(host string) Option { return withMeta(MetaHost, host) }

// WithTag records the snapshot tag.
func WithTag(tag string) Option { return withMeta(MetaTag, tag) }

// WithRunID ties the document to a harness run.
func WithRunID(id string) Option { return withMeta(MetaRunID, id) }

// Header contains metadata and versioning information for serialized documents.
type Header struct {
	Kind       Kind   `json:"kind,omitempty" yaml:"kind,omitempty"`
	APIVersion string `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`

	// Metadata contains key-value pairs such as timestamp, version and host.
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Init stamps the header with kind, the current APIVersion, a UTC timestamp
// and the harness version. Existing metadata is discarded.
func (h *Header) Init(kind Kind, version string, opts ...Option) {
	h.Kind = kind
	h.APIVersion = APIVersion
	h.Metadata = map[string]string{
		MetaTimestamp: time.Now().UTC().Format(time.RFC3339),
	}
	withMeta(MetaVersion, version)(h.Metadata)
	for _, opt := range opts {
		opt(h.Metadata)
	}
}

// CheckKind accepts a header of kind want. Headerless documents are accepted
// so hand-written fixtures load.
func (h *Header) CheckKind(want Kind) error {
	if h.Kind == "" || h.Kind == want {
		return nil
	}
	msg := "unexpected document kind"
	if !h.Kind.IsValid() {
		msg = "unknown document kind"
	}
	return errors.NewWithContext(errors.ErrCodeInvalidRequest, msg,
		map[string]any{"kind": h.Kind.String(), "want": want.String()})
}
