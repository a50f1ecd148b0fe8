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

// Package memo implements the equivalence-class memo: Group and
// GroupNode. It owns group lifecycle (insertion, erasure, cascading
// release through the referrer set) and best-plan materialization; it
// does not know how to pattern-match or apply a rule's transform — that
// lives in the pattern, rule, and optimizer packages, which depend on
// memo rather than the reverse.
package memo

import (
	"math"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring"
	"github.com/matrixorigin/graphoptimizer/pkg/operr"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
	"github.com/matrixorigin/graphoptimizer/pkg/symtab"
)

var idCounter int64

func nextID() int64 { return atomic.AddInt64(&idCounter, 1) }

// ChangeSink is the minimal capability a Group needs from its enclosing
// optimization: a way to report that a rewrite happened. The optimizer's
// OptContext implements this; memo never imports the optimizer package,
// so the dependency points one way only.
type ChangeSink interface {
	MarkChanged()
}

// Group is an OptGroup: an equivalence class of group nodes that all
// produce the same logical output.
type Group struct {
	id  int64
	ctx ChangeSink

	outputVar string
	colNames  []string

	groupNodes []*GroupNode

	exploredRules *roaring.Bitmap

	// referrers holds every GroupNode that names this group as a
	// dependency or body. When it empties and this is not the root
	// group, every contained group node is released.
	referrers map[*GroupNode]struct{}

	root bool
}

// NewGroup allocates a fresh, empty group bound to ctx. isRoot must be
// true for exactly the memo's root group: the root is never released by
// the referrer-count cascade even though nothing ever references it.
func NewGroup(ctx ChangeSink, outputVar string, colNames []string, isRoot bool) *Group {
	return &Group{
		id:            nextID(),
		ctx:           ctx,
		outputVar:     outputVar,
		colNames:      append([]string(nil), colNames...),
		exploredRules: roaring.New(),
		referrers:     make(map[*GroupNode]struct{}),
		root:          isRoot,
	}
}

func (g *Group) ID() int64 { return g.id }

func (g *Group) OutputVar() string { return g.outputVar }

func (g *Group) ColNames() []string { return g.colNames }

// GroupNodes returns the group's candidate realizations in insertion
// order.
func (g *Group) GroupNodes() []*GroupNode { return g.groupNodes }

func (g *Group) IsRoot() bool { return g.root }

// MarkRoot flags g as the memo's root group: the referrer-count cascade
// in RemoveReferrer never releases it even though nothing references it.
func (g *Group) MarkRoot() { g.root = true }

// Insert adds gn to the group, enforcing group-agreement (P1): every
// group node in a group must share the same output variable and column
// list.
func (g *Group) Insert(gn *GroupNode) error {
	if len(g.groupNodes) == 0 {
		g.outputVar = gn.node.OutputVar()
		g.colNames = gn.node.ColNames()
	} else if gn.node.OutputVar() != g.outputVar || !sameCols(gn.node.ColNames(), g.colNames) {
		return operr.NewPlanError(
			"memo: group agreement violated: group %d outputVar=%q cols=%v, inserted node outputVar=%q cols=%v",
			g.id, g.outputVar, g.colNames, gn.node.OutputVar(), gn.node.ColNames())
	}
	gn.group = g
	g.groupNodes = append(g.groupNodes, gn)
	gn.attachToDeps()
	return nil
}

func sameCols(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// EraseCurr removes gn from the group and releases it (detaching from
// its dependency/body groups and deregistering its plan node's symbols).
func (g *Group) EraseCurr(gn *GroupNode, st *symtab.SymbolTable) {
	for i, cand := range g.groupNodes {
		if cand == gn {
			g.groupNodes = append(g.groupNodes[:i], g.groupNodes[i+1:]...)
			break
		}
	}
	gn.Release(st)
}

// EraseAll releases and removes every group node currently in the group.
func (g *Group) EraseAll(st *symtab.SymbolTable) {
	for _, gn := range g.groupNodes {
		gn.Release(st)
	}
	g.groupNodes = nil
}

// AddReferrer registers gn as a referrer of g (called when gn adopts g
// as a dependency or body group).
func (g *Group) AddReferrer(gn *GroupNode) {
	g.referrers[gn] = struct{}{}
}

// RemoveReferrer deregisters gn as a referrer of g. If the referrer set
// empties and g is not the root group, every group node currently in g
// is released — the cascading release a group's lifetime is driven by.
func (g *Group) RemoveReferrer(gn *GroupNode, st *symtab.SymbolTable) {
	delete(g.referrers, gn)
	if len(g.referrers) == 0 && !g.root {
		g.EraseAll(st)
	}
}

// ReferrerCount reports how many group nodes currently reference g
// (tested directly by property P4).
func (g *Group) ReferrerCount() int { return len(g.referrers) }

// SetExplored marks ruleID as explored against this group.
func (g *Group) SetExplored(ruleID uint32) { g.exploredRules.Add(ruleID) }

// SetUnexplored clears ruleID's explored bit for this group.
func (g *Group) SetUnexplored(ruleID uint32) { g.exploredRules.Remove(ruleID) }

// Explored reports whether ruleID has been marked explored against this
// group.
func (g *Group) Explored(ruleID uint32) bool { return g.exploredRules.Contains(ruleID) }

type realized struct {
	cost float64
	plan *plannode.Node
}

// BestCost returns the minimum achievable cumulative cost across this
// group's group nodes, recursing into dependency and body groups. It is
// the read-only half of BestPlan, useful to property tests (P7) that
// only need the number.
func (g *Group) BestCost() float64 {
	cache := make(map[*Group]*realized)
	r := g.realize(cache)
	if r == nil {
		return math.Inf(1)
	}
	return r.cost
}

// BestPlan materializes the lowest-cost realization of this group,
// recursively choosing each dependency's and body's own best plan and
// installing them on the winning plan node via SetDep/SetIf/SetElse/
// SetBody, exactly as OptGroup::getPlan does in the source this memo is
// modeled on.
func (g *Group) BestPlan() *plannode.Node {
	cache := make(map[*Group]*realized)
	r := g.realize(cache)
	if r == nil {
		return nil
	}
	return r.plan
}

func (g *Group) realize(cache map[*Group]*realized) *realized {
	if r, ok := cache[g]; ok {
		return r
	}
	var best *realized
	var bestGN *GroupNode
	var bestDeps, bestBodies []*plannode.Node

	for _, gn := range g.groupNodes {
		cost := gn.node.Cost()
		deps := make([]*plannode.Node, len(gn.dependencies))
		ok := true
		for i, dep := range gn.dependencies {
			dr := dep.realize(cache)
			if dr == nil {
				ok = false
				break
			}
			cost += dr.cost
			deps[i] = dr.plan
		}
		if !ok {
			continue
		}
		bodies := make([]*plannode.Node, len(gn.bodies))
		for i, b := range gn.bodies {
			br := b.realize(cache)
			if br == nil {
				ok = false
				break
			}
			cost += br.cost
			bodies[i] = br.plan
		}
		if !ok {
			continue
		}
		if best == nil || cost < best.cost {
			best = &realized{cost: cost}
			bestGN = gn
			bestDeps = deps
			bestBodies = bodies
		}
	}
	if best == nil {
		return nil
	}

	plan := bestGN.node
	for i, dp := range bestDeps {
		plan.SetDep(i, dp)
	}
	switch plan.Kind() {
	case plannode.KindSelect:
		if len(bestBodies) >= 1 {
			plan.SetIf(bestBodies[0])
		}
		if len(bestBodies) >= 2 {
			plan.SetElse(bestBodies[1])
		}
	case plannode.KindLoop:
		if len(bestBodies) >= 1 {
			plan.SetBody(bestBodies[0])
		}
	}
	best.plan = plan
	cache[g] = best
	return best
}
