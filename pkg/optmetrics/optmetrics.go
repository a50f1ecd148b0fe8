// Copyright 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package optmetrics exposes prometheus counters/histograms for the
// optimizer's rule-engine internals: matches, applications, explore
// rounds, and fixed-point iterations.
package optmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RuleMatches counts successful pattern matches per rule, whether or
	// not the rule ultimately transforms.
	RuleMatches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graphoptimizer",
		Subsystem: "rule",
		Name:      "matches_total",
		Help:      "Number of times a rule's pattern matched a group node.",
	}, []string{"rule"})

	// RuleApplications counts successful transforms per rule.
	RuleApplications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graphoptimizer",
		Subsystem: "rule",
		Name:      "applications_total",
		Help:      "Number of times a rule's transform produced a non-empty TransformResult.",
	}, []string{"rule"})

	// ExploreRounds counts explore() rounds run per rule by the driver's
	// exploreUntilMaxRound loop.
	ExploreRounds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graphoptimizer",
		Subsystem: "memo",
		Name:      "explore_rounds_total",
		Help:      "Number of explore() rounds run per rule across all groups.",
	}, []string{"rule"})

	// DriverIterations counts outer fixed-point loop iterations.
	DriverIterations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "graphoptimizer",
		Subsystem: "driver",
		Name:      "iterations_total",
		Help:      "Number of outer fixed-point driver iterations run.",
	})

	// FindBestPlanDuration observes find-best-plan wall time in seconds.
	FindBestPlanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "graphoptimizer",
		Subsystem: "driver",
		Name:      "find_best_plan_seconds",
		Help:      "Wall-clock duration of Optimizer.FindBestPlan calls.",
		Buckets:   prometheus.DefBuckets,
	})
)

// MustRegister registers every collector in this package against reg. It
// panics on a duplicate registration, matching prometheus.MustRegister's
// own contract; callers that register twice (e.g. in tests) should use a
// fresh registry.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(RuleMatches, RuleApplications, ExploreRounds, DriverIterations, FindBestPlanDuration)
}
