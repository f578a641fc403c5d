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

package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upgradecheck_runs_total",
			Help: "Total number of upgrade runs",
		},
		[]string{"strategy", "status"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upgradecheck_run_duration_seconds",
			Help:    "Wall time of upgrade runs",
			Buckets: []float64{60, 300, 900, 1800, 3600, 7200, 14400},
		},
		[]string{"strategy"},
	)

	caseTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upgradecheck_cases_total",
			Help: "Total number of cases evaluated",
		},
		[]string{"case", "status"},
	)
)
