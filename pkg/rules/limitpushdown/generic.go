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

// Package limitpushdown implements the Limit/TopN/Sample pushdown rules:
// tightening a scan or traversal step's row budget from above, and
// merging a Limit directly above a Sort into a single TopN.
package limitpushdown

import (
	"github.com/matrixorigin/graphoptimizer/pkg/memo"
	"github.com/matrixorigin/graphoptimizer/pkg/pattern"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
	"github.com/matrixorigin/graphoptimizer/pkg/qctx"
	"github.com/matrixorigin/graphoptimizer/pkg/rule"
)

// boundedPushdownRule is the shared shape of every rule that tightens a
// downstream step's RowLimit to the smallest number of rows the operator
// above it could possibly still need: the step stays correct regardless
// (whatever sits above still enforces its own exact semantics), so a
// tightened candidate is simply a cheaper alternative realization of the
// same group, safe to add without retiring the looser one. Safe only
// when the target's output has exactly one reader, same as the
// filter-pushdown rules.
type boundedPushdownRule struct {
	name        string
	matchKind   plannode.Kind
	targetKinds []plannode.Kind
	bound       func(matched *plannode.Node) int64
	orderBy     func(matched *plannode.Node) []plannode.SortFactor
}

// boundedPushdownRule is always referenced through a *boundedPushdownRule:
// it carries func fields, which are not comparable, and RuleSet.Add uses
// the rule value as a map key — a pointer keeps that key comparable
// regardless of what the struct holds.
func (r *boundedPushdownRule) String() string { return r.name }

func (r *boundedPushdownRule) Pattern() *pattern.Pattern {
	return pattern.OfKind(r.matchKind, pattern.OfKinds(r.targetKinds, pattern.Any()))
}

func (r *boundedPushdownRule) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	target := m.Dependencies[0].GroupNode.Node()
	bound := r.bound(m.GroupNode.Node())
	if target.RowLimit >= 0 && target.RowLimit <= bound {
		return false, nil
	}
	return rule.CheckDataflowDeps(m, qc.Symtab), nil
}

func (r *boundedPushdownRule) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	matched := m.GroupNode.Node()
	targetGN := m.Dependencies[0].GroupNode
	target := targetGN.Node()

	clone := target.Clone()
	clone.SetOutputVar(target.OutputVar())
	clone.RowLimit = r.bound(matched)
	if r.orderBy != nil {
		clone.IndexOrderBy = r.orderBy(matched)
	}
	newGN := memo.NewGroupNode(clone, targetGN.Dependencies(), targetGN.Bodies())
	return rule.InsertAlternative(targetGN.Group(), newGN)
}

func limitBound(n *plannode.Node) int64 { return n.LimitOffset + n.LimitCount }

func sampleBound(n *plannode.Node) int64 { return n.SampleCount }

func pushLimitDown(name string, targetKinds ...plannode.Kind) *boundedPushdownRule {
	return &boundedPushdownRule{name: name, matchKind: plannode.KindLimit, targetKinds: targetKinds, bound: limitBound}
}

var traversalKinds = []plannode.Kind{
	plannode.KindGetNeighbors, plannode.KindGetEdges, plannode.KindGetVertices,
	plannode.KindScanEdges, plannode.KindScanVertices, plannode.KindTraverse,
	plannode.KindExpandAll, plannode.KindAllPaths,
}

var tagIndexKinds = []plannode.Kind{
	plannode.KindTagIndexFullScan, plannode.KindTagIndexPrefixScan, plannode.KindTagIndexRangeScan,
}

var edgeIndexKinds = []plannode.Kind{
	plannode.KindEdgeIndexFullScan, plannode.KindEdgeIndexPrefixScan, plannode.KindEdgeIndexRangeScan,
}

// PushLimitDownGetNeighborsRule tightens a GetNeighbors step's row budget
// to a Limit above it. The same rule value also matches GetEdges,
// GetVertices, ScanEdges, ScanVertices, Traverse, ExpandAll, and AllPaths
// — the pushdown is identical across every traversal-family operator, so
// one RuleSet entry per operator would just be the same rule registered
// under different patterns.
var PushLimitDownGetNeighborsRule = pushLimitDown("PushLimitDownGetNeighbors", traversalKinds...)

// PushLimitDownTagIndexScanRule tightens any of the three tag index-scan
// kinds' row budget to a Limit above it.
var PushLimitDownTagIndexScanRule = pushLimitDown("PushLimitDownTagIndexScan", tagIndexKinds...)

// PushLimitDownEdgeIndexScanRule tightens any of the three edge
// index-scan kinds' row budget to a Limit above it.
var PushLimitDownEdgeIndexScanRule = pushLimitDown("PushLimitDownEdgeIndexScan", edgeIndexKinds...)

// PushLimitDownIndexScanRule tightens the generic, already-annotated
// IndexScan kind's row budget to a Limit above it.
var PushLimitDownIndexScanRule = pushLimitDown("PushLimitDownIndexScan", plannode.KindIndexScan)

// PushLimitDownFulltextIndexScanRule tightens a FulltextIndexScan's row
// budget to a Limit above it.
var PushLimitDownFulltextIndexScanRule = pushLimitDown("PushLimitDownFulltextIndexScan", plannode.KindFulltextIndexScan)

// PushLimitDownVectorIndexScanRule tightens a VectorIndexScan's row
// budget to a Limit above it (a k-NN scan's own K is a separate concern
// the index selector sets; this only bounds how many of those neighbors
// flow any further).
var PushLimitDownVectorIndexScanRule = pushLimitDown("PushLimitDownVectorIndexScan", plannode.KindVectorIndexScan)

// sampleDownGetNeighborsRule tightens a GetNeighbors step's row budget to
// a Sample above it and additionally flips the GetNeighbors step into
// random-sampling mode, so it actually returns a random subset of edges
// rather than just the first SampleCount in storage order. Unlike the
// boundedPushdownRule instances it must match through the Project
// a Sample always sits above (Sample's own output columns are never the
// GetNeighbors step's raw columns), so it is its own rule rather than a
// pushLimitDown/pushTopNDownIndex instantiation.
type sampleDownGetNeighborsRule struct{}

// PushSampleDownGetNeighborsRule tightens a GetNeighbors step's row
// budget to a Sample above it and marks the step for random sampling.
var PushSampleDownGetNeighborsRule = sampleDownGetNeighborsRule{}

func (sampleDownGetNeighborsRule) String() string { return "PushSampleDownGetNeighbors" }

func (sampleDownGetNeighborsRule) Pattern() *pattern.Pattern {
	return pattern.OfKind(plannode.KindSample,
		pattern.OfKind(plannode.KindProject, pattern.OfKind(plannode.KindGetNeighbors, pattern.Any())))
}

func (sampleDownGetNeighborsRule) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	sample := m.GroupNode.Node()
	gn := m.Dependencies[0].Dependencies[0].GroupNode.Node()
	if gn.RowLimit >= 0 && gn.RowLimit <= sample.SampleCount && gn.Random {
		return false, nil
	}
	return rule.CheckDataflowDeps(m, qc.Symtab), nil
}

func (sampleDownGetNeighborsRule) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	sample := m.GroupNode.Node()
	gnMR := m.Dependencies[0].Dependencies[0]
	gnGN := gnMR.GroupNode
	target := gnGN.Node()

	clone := target.Clone()
	clone.SetOutputVar(target.OutputVar())
	clone.RowLimit = sampleBound(sample)
	clone.Random = true
	newGN := memo.NewGroupNode(clone, gnGN.Dependencies(), gnGN.Bodies())
	return rule.InsertAlternative(gnGN.Group(), newGN)
}

// pushTopNDownIndex tightens an index scan's row budget to a TopN above
// it and additionally hands the index scan the TopN's sort factors, so
// the index-scan selector can later recognize it can produce rows
// already in the right order and skip a separate Sort.
func pushTopNDownIndex(name string, targetKinds ...plannode.Kind) *boundedPushdownRule {
	return &boundedPushdownRule{
		name: name, matchKind: plannode.KindTopN, targetKinds: targetKinds,
		bound:   limitBound,
		orderBy: func(n *plannode.Node) []plannode.SortFactor { return n.SortFactors },
	}
}

// PushTopNDownIndexScanRule tightens a tag/edge/generic index scan's row
// budget and order hint to a TopN above it.
var PushTopNDownIndexScanRule = pushTopNDownIndex("PushTopNDownIndexScan",
	append(append(append([]plannode.Kind{}, tagIndexKinds...), edgeIndexKinds...), plannode.KindIndexScan)...)
