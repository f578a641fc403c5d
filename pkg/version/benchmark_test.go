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
	"testing"
)

func BenchmarkParseBuild(b *testing.B) {
	inputs := []string{
		"redhat-virtualization-host-4.1-20170421.0",
		"redhat-virtualization-host-4.1-20170522.0",
		"redhat-virtualization-host-4.0-20170307",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ParseBuild(inputs[i%len(inputs)])
	}
}

func BenchmarkCheckMonotonic(b *testing.B) {
	old := Components{0, 9, 24}
	new := Components{1, 0, 16}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = CheckMonotonic(old, new)
	}
}
