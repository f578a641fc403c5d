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

package upgrade

import (
	"strings"

	"github.com/hostqe/upgradecheck/pkg/errors"
)

// Strategy selects the upgrade pipeline.
type Strategy string

const (
	StrategyYumUpdate   Strategy = "yum_update"
	StrategyYumInstall  Strategy = "yum_install"
	StrategyRhvmUpgrade Strategy = "rhvm_upgrade"
)

// Strategies returns every supported strategy.
func Strategies() []Strategy {
	return []Strategy{StrategyYumUpdate, StrategyYumInstall, StrategyRhvmUpgrade}
}

// String returns the strategy name.
func (s Strategy) String() string {
	return string(s)
}

// IsValid reports whether s is a known strategy.
func (s Strategy) IsValid() bool {
	for _, known := range Strategies() {
		if s == known {
			return true
		}
	}
	return false
}

// StrategyFromDefinition picks the strategy whose name appears in the upgrade
// definition name, e.g. "ati_upgrade_yum_update.ks" selects yum_update.
func StrategyFromDefinition(definition string) (Strategy, error) {
	for _, s := range Strategies() {
		if strings.Contains(definition, string(s)) {
			return s, nil
		}
	}
	return "", errors.NewWithContext(errors.ErrCodeInvalidRequest, "upgrade definition names no known strategy",
		map[string]any{"definition": definition})
}
