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

package deadcode

import (
	"github.com/matrixorigin/graphoptimizer/pkg/exprtree"
	"github.com/matrixorigin/graphoptimizer/pkg/exprutil"
	"github.com/matrixorigin/graphoptimizer/pkg/memo"
	"github.com/matrixorigin/graphoptimizer/pkg/pattern"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
	"github.com/matrixorigin/graphoptimizer/pkg/qctx"
	"github.com/matrixorigin/graphoptimizer/pkg/rule"
)

// EliminateFilterRule resolves a Filter whose condition is a compile-time
// constant: a constant-true condition drops the Filter entirely; a
// constant-false, constant-null, or already-flagged AlwaysFalse condition
// replaces the whole subtree with an empty dataset, since no row can ever
// pass it.
type EliminateFilterRule struct{}

func (EliminateFilterRule) String() string { return "EliminateFilter" }

func (EliminateFilterRule) Pattern() *pattern.Pattern {
	return pattern.OfKind(plannode.KindFilter, pattern.Any())
}

func (EliminateFilterRule) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	n := m.GroupNode.Node()
	if n.AlwaysFalse || n.Condition.IsConstantNull() {
		return true, nil
	}
	if b, ok := n.Condition.IsConstantBool(); ok {
		_ = b
		return true, nil
	}
	return false, nil
}

func (EliminateFilterRule) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	n := m.GroupNode.Node()
	if b, ok := n.Condition.IsConstantBool(); ok && b && !n.AlwaysFalse {
		childGN := m.Dependencies[0].GroupNode
		promoted := rule.PromoteChild(childGN, n.OutputVar())
		return rule.NewTransformResult([]*memo.GroupNode{promoted}, false, true), nil
	}
	empty := plannode.New(plannode.KindValue, n.OutputVar(), n.ColNames())
	empty.EmptyDataset = true
	gn := memo.NewGroupNode(empty, nil, nil)
	return rule.NewTransformResult([]*memo.GroupNode{gn}, false, true), nil
}

// CombineFilterRule merges two adjacent Filters into one, ANDing their
// conditions, once the inner Filter's output is read by nothing else.
type CombineFilterRule struct{}

func (CombineFilterRule) String() string { return "CombineFilter" }

func (CombineFilterRule) Pattern() *pattern.Pattern {
	return pattern.OfKind(plannode.KindFilter, pattern.OfKind(plannode.KindFilter, pattern.Any()))
}

func (CombineFilterRule) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	return rule.CheckDataflowDeps(m, qc.Symtab), nil
}

func (CombineFilterRule) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	outer := m.GroupNode.Node()
	innerMR := m.Dependencies[0]
	inner := innerMR.GroupNode.Node()
	grandGroup := innerMR.GroupNode.Dependencies()[0]

	rewrittenOuter := exprutil.RewriteInnerVar(qc.Arena, outer.Condition, grandGroup.OutputVar())
	combined := exprtree.And(rewrittenOuter, inner.Condition)

	newFilter := plannode.New(plannode.KindFilter, outer.OutputVar(), outer.ColNames())
	newFilter.Condition = combined
	newFilter.SetInputVar(0, grandGroup.OutputVar())
	gn := memo.NewGroupNode(newFilter, []*memo.Group{grandGroup}, nil)
	return rule.NewTransformResult([]*memo.GroupNode{gn}, false, true), nil
}

// InvalidFilterRule flags a Filter whose condition references a property
// that does not exist on the catalog schema bound to its alias: such a
// predicate can never be satisfied by any row, so the filter is recast as
// AlwaysFalse for EliminateFilterRule to collapse on a later round.
type InvalidFilterRule struct{}

func (InvalidFilterRule) String() string { return "InvalidFilter" }

func (InvalidFilterRule) Pattern() *pattern.Pattern {
	return pattern.OfKind(plannode.KindFilter, pattern.Any())
}

func (InvalidFilterRule) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	n := m.GroupNode.Node()
	if n.AlwaysFalse || qc.Catalog == nil {
		return false, nil
	}
	invalid := false
	n.Condition.Walk(func(e *exprtree.Expr) {
		if invalid || e.Kind != exprtree.KindPropertyRef || e.Tag == "" {
			return
		}
		tagID, err := qc.Catalog.ToTagID(qc.SpaceID, e.Tag)
		if err != nil {
			invalid = true
			return
		}
		schema, err := qc.Catalog.GetTagSchema(qc.SpaceID, tagID)
		if err != nil {
			invalid = true
			return
		}
		if _, ok := schema.Column(e.Prop); !ok {
			invalid = true
		}
	})
	return invalid, nil
}

func (InvalidFilterRule) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	n := m.GroupNode.Node()
	clone := n.Clone()
	clone.SetOutputVar(n.OutputVar())
	clone.AlwaysFalse = true
	gn := memo.NewGroupNode(clone, m.GroupNode.Dependencies(), nil)
	return rule.NewTransformResult([]*memo.GroupNode{gn}, false, true), nil
}
