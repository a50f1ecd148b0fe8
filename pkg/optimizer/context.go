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

// Package optimizer implements the fixed-point driver: memo
// construction from a plan root, bottom-up rule exploration to a bounded
// fixed point, and best-plan extraction.
package optimizer

import (
	"github.com/matrixorigin/graphoptimizer/pkg/memo"
	"github.com/matrixorigin/graphoptimizer/pkg/oplog"
	"github.com/matrixorigin/graphoptimizer/pkg/optmetrics"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
	"github.com/matrixorigin/graphoptimizer/pkg/qctx"
	"github.com/matrixorigin/graphoptimizer/pkg/rule"
)

// context is the per-optimization scratchpad (OptContext): it owns the
// plan-node-id -> group-node index used by rules to cross-navigate and
// carries the dirty flag the driver polls for the fixed point.
type context struct {
	qc        *qctx.QueryContext
	changed   bool
	nodeIndex map[int64]*memo.GroupNode
	root      *memo.Group
}

func newContext(qc *qctx.QueryContext) *context {
	return &context{qc: qc, nodeIndex: make(map[int64]*memo.GroupNode)}
}

// MarkChanged implements memo.ChangeSink.
func (c *context) MarkChanged() { c.changed = true }

// prepare converts node (and everything it depends on) into the memo,
// depth-first with memoization by plan-node id, and returns node's
// group.
func (c *context) prepare(node *plannode.Node) (*memo.Group, error) {
	if node == nil {
		return nil, nil
	}
	if gn, ok := c.nodeIndex[node.ID()]; ok {
		return gn.Group(), nil
	}

	var bodies []*memo.Group
	switch node.Kind() {
	case plannode.KindSelect:
		ifG, err := c.prepare(node.If())
		if err != nil {
			return nil, err
		}
		elseG, err := c.prepare(node.Else())
		if err != nil {
			return nil, err
		}
		bodies = []*memo.Group{ifG, elseG}
	case plannode.KindLoop:
		bodyG, err := c.prepare(node.Body())
		if err != nil {
			return nil, err
		}
		bodies = []*memo.Group{bodyG}
	}

	deps := make([]*memo.Group, len(node.Dependencies()))
	for i, dep := range node.Dependencies() {
		dg, err := c.prepare(dep)
		if err != nil {
			return nil, err
		}
		deps[i] = dg
	}

	gn := memo.NewGroupNode(node, deps, bodies)
	g := memo.NewGroup(c, node.OutputVar(), node.ColNames(), false)
	if err := g.Insert(gn); err != nil {
		return nil, err
	}
	node.UpdateSymbols(c.qc.Symtab)
	c.nodeIndex[node.ID()] = gn
	return g, nil
}

// Prepare builds the memo for root and marks its group as the memo root
// (never released by the referrer-count cascade).
func (c *context) Prepare(root *plannode.Node) (*memo.Group, error) {
	g, err := c.prepare(root)
	if err != nil {
		return nil, err
	}
	g.MarkRoot()
	c.root = g
	return g, nil
}

// explore runs one bottom-up exploration pass of r against g: every
// group node first recurses into its dependency and body groups, then
// r's pattern is matched against it. Returns whether any group in the
// subtree changed.
func (c *context) explore(g *memo.Group, r rule.OptRule, ruleID uint32) (bool, error) {
	if g == nil || g.Explored(ruleID) {
		return false, nil
	}
	snapshot := append([]*memo.GroupNode(nil), g.GroupNodes()...)
	anyChange := false

	for _, gn := range snapshot {
		for _, dep := range gn.Dependencies() {
			ch, err := c.explore(dep, r, ruleID)
			if err != nil {
				return anyChange, err
			}
			anyChange = anyChange || ch
		}
		for _, b := range gn.Bodies() {
			ch, err := c.explore(b, r, ruleID)
			if err != nil {
				return anyChange, err
			}
			anyChange = anyChange || ch
		}
	}

	for _, gn := range snapshot {
		if gn.Explored(ruleID) {
			continue
		}
		mr := r.Pattern().Match(gn)
		oplog.RuleAttempt(r.String(), g.ID(), mr != nil)
		if mr == nil {
			gn.SetExplored(ruleID)
			continue
		}
		optmetrics.RuleMatches.WithLabelValues(r.String()).Inc()
		ok, err := r.Match(c.qc, mr)
		if err != nil {
			return anyChange, err
		}
		if !ok {
			gn.SetExplored(ruleID)
			continue
		}
		tr, err := r.Transform(c.qc, mr)
		if err != nil {
			return anyChange, err
		}
		if tr == nil {
			gn.SetExplored(ruleID)
			continue
		}

		optmetrics.RuleApplications.WithLabelValues(r.String()).Inc()
		oplog.RuleApplied(r.String(), g.ID(), len(tr.NewGroupNodes), tr.EraseCurr, tr.EraseAll)

		if tr.EraseAll {
			g.EraseAll(c.qc.Symtab)
		} else if tr.EraseCurr {
			g.EraseCurr(gn, c.qc.Symtab)
		}
		for _, newGN := range tr.NewGroupNodes {
			if err := g.Insert(newGN); err != nil {
				return anyChange, err
			}
		}

		anyChange = true
		c.MarkChanged()
		g.SetUnexplored(ruleID)

		if tr.EraseAll {
			// The whole pre-transform snapshot is invalid now; the new
			// group nodes will be considered on the next round.
			break
		}
	}

	if !anyChange {
		g.SetExplored(ruleID)
	}
	return anyChange, nil
}

// exploreUntilMaxRound loops explore(rule) until g reports fully
// explored or maxRound is hit, then marks the entire reachable DAG
// unexplored for this rule so later driver iterations (possibly after a
// different rule changed the shape) reconsider it.
func (c *context) exploreUntilMaxRound(g *memo.Group, r rule.OptRule, ruleID uint32, maxRound int) error {
	for round := 0; round < maxRound; round++ {
		optmetrics.ExploreRounds.WithLabelValues(r.String()).Inc()
		changed, err := c.explore(g, r, ruleID)
		if err != nil {
			return err
		}
		if !changed {
			break
		}
	}
	c.markUnexploredDAG(g, ruleID, make(map[*memo.Group]bool))
	return nil
}

func (c *context) markUnexploredDAG(g *memo.Group, ruleID uint32, seen map[*memo.Group]bool) {
	if g == nil || seen[g] {
		return
	}
	seen[g] = true
	g.SetUnexplored(ruleID)
	for _, gn := range g.GroupNodes() {
		gn.SetUnexplored(ruleID)
		for _, dep := range gn.Dependencies() {
			c.markUnexploredDAG(dep, ruleID, seen)
		}
		for _, b := range gn.Bodies() {
			c.markUnexploredDAG(b, ruleID, seen)
		}
	}
}
