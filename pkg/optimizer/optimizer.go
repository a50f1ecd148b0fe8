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

package optimizer

import (
	"time"

	"github.com/matrixorigin/graphoptimizer/pkg/memo"
	"github.com/matrixorigin/graphoptimizer/pkg/oplog"
	"github.com/matrixorigin/graphoptimizer/pkg/operr"
	"github.com/matrixorigin/graphoptimizer/pkg/optconfig"
	"github.com/matrixorigin/graphoptimizer/pkg/optmetrics"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
	"github.com/matrixorigin/graphoptimizer/pkg/qctx"
	"github.com/matrixorigin/graphoptimizer/pkg/rule"
)

// Optimizer is the single entry point this module exposes: build it
// once with an ordered list of rule sets (conventionally the default
// index-selection set first, then the general query-rewrite set), then
// call FindBestPlan once per query.
type Optimizer struct {
	ruleSets []*rule.RuleSet
	cfg      *optconfig.Config
}

// New returns an Optimizer that runs ruleSets, in order, every driver
// iteration. A nil cfg uses optconfig.Default().
func New(cfg *optconfig.Config, ruleSets ...*rule.RuleSet) *Optimizer {
	if cfg == nil {
		cfg = optconfig.Default()
	}
	return &Optimizer{ruleSets: ruleSets, cfg: cfg}
}

// FindBestPlan builds the memo for qc.Root, runs every configured rule
// set to a bounded fixed point, and materializes the lowest-cost plan.
// Errors surface as operr.KindIndexNotFound, KindSemanticError,
// KindPlanError, or KindInternal.
func (o *Optimizer) FindBestPlan(qc *qctx.QueryContext) (*plannode.Node, error) {
	rootGroup, err := o.Explore(qc)
	if err != nil {
		return nil, err
	}
	best := rootGroup.BestPlan()
	if best == nil {
		return nil, operr.NewInternal("optimizer: root group produced no realizable plan")
	}
	return best, nil
}

// Explore runs the same fixed-point driver FindBestPlan does but returns
// the memo's root group rather than its materialized best plan, so a
// caller that wants to inspect the memo itself (cmd/planopt's
// --dump-memo) doesn't have to duplicate the driver loop.
func (o *Optimizer) Explore(qc *qctx.QueryContext) (*memo.Group, error) {
	start := time.Now()
	defer func() { optmetrics.FindBestPlanDuration.Observe(time.Since(start).Seconds()) }()

	ctx := newContext(qc)
	rootGroup, err := ctx.Prepare(qc.Root)
	if err != nil {
		return nil, err
	}

	appliedTimes := o.cfg.MaxIterationRound
	round := 0
	for appliedTimes > 0 {
		ctx.changed = false
		for _, rs := range o.ruleSets {
			for _, r := range rs.Rules() {
				if !o.cfg.RuleEnabled(r.String()) {
					continue
				}
				if err := ctx.exploreUntilMaxRound(rootGroup, r, rs.ID(r), o.cfg.MaxExplorationRound); err != nil {
					return nil, err
				}
			}
		}
		round++
		optmetrics.DriverIterations.Inc()
		oplog.IterationSummary(round, ctx.changed)
		appliedTimes--
		if !ctx.changed {
			break
		}
	}
	if appliedTimes == 0 && ctx.changed {
		oplog.BudgetExhausted("iteration", o.cfg.MaxIterationRound)
	}
	return rootGroup, nil
}
