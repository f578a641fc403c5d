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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upgradecheck_upgrade_step_duration_seconds",
			Help:    "Time taken by upgrade pipeline steps",
			Buckets: []float64{1, 10, 60, 300, 900, 1800, 3600},
		},
		[]string{"strategy", "step"},
	)

	stepTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upgradecheck_upgrade_step_total",
			Help: "Total number of upgrade steps run",
		},
		[]string{"step", "status"}, // success or error
	)

	pollAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upgradecheck_poll_attempts_total",
			Help: "Total number of polling attempts",
		},
		[]string{"poll"}, // host-status or enter-system
	)

	teardownTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upgradecheck_teardown_attempts_total",
			Help: "Total number of engine teardown attempts",
		},
		[]string{"status"},
	)
)
