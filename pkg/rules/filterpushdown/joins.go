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

package filterpushdown

import (
	"github.com/matrixorigin/graphoptimizer/pkg/exprtree"
	"github.com/matrixorigin/graphoptimizer/pkg/exprutil"
	"github.com/matrixorigin/graphoptimizer/pkg/memo"
	"github.com/matrixorigin/graphoptimizer/pkg/pattern"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
	"github.com/matrixorigin/graphoptimizer/pkg/qctx"
	"github.com/matrixorigin/graphoptimizer/pkg/rule"
)

// columnRefsInRange reports whether every ColumnRef in e falls in
// [lo, hi) — the join-row column range a side's output occupies.
func columnRefsInRange(e *exprtree.Expr, lo, hi int) bool {
	ok := true
	e.Walk(func(n *exprtree.Expr) {
		if n.Kind == exprtree.KindColumnRef && (n.ColIndex < lo || n.ColIndex >= hi) {
			ok = false
		}
	})
	return ok
}

// shiftColumnRefs clones e, subtracting delta from every ColumnRef index
// — used to re-express a predicate pushed to the right side of a join in
// that side's own, zero-based column space.
func shiftColumnRefs(arena *exprtree.Arena, e *exprtree.Expr, delta int) *exprtree.Expr {
	if e == nil {
		return nil
	}
	c := arena.Clone(e)
	c.Walk(func(n *exprtree.Expr) {
		if n.Kind == exprtree.KindColumnRef {
			n.ColIndex -= delta
		}
	})
	return c
}

// pushFilterDownJoin is the shared shape of the three join-pushdown
// rules: split the Filter's condition by which side of the join it's
// confined to, fold the left-confined part into the left group and (when
// allowRight) the right-confined part into the right group, and keep
// whatever touches both sides as a residual Filter above the join.
type pushFilterDownJoin struct {
	name      string
	kind      plannode.Kind
	allowRight bool
}

func (r pushFilterDownJoin) String() string { return r.name }

func (r pushFilterDownJoin) Pattern() *pattern.Pattern {
	return pattern.OfKind(plannode.KindFilter, pattern.OfKind(r.kind, pattern.Any(), pattern.Any()))
}

func (r pushFilterDownJoin) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	return rule.CheckDataflowDeps(m, qc.Symtab), nil
}

func (r pushFilterDownJoin) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	filter := m.GroupNode.Node()
	joinMR := m.Dependencies[0]
	joinGN := joinMR.GroupNode
	join := joinGN.Node()

	leftGN := joinMR.Dependencies[0].GroupNode
	rightGN := joinMR.Dependencies[1].GroupNode
	leftGroup := leftGN.Group()
	rightGroup := rightGN.Group()
	leftLen := len(leftGroup.ColNames())
	rightLen := len(rightGroup.ColNames())

	pushedLeft, rest := exprutil.SplitFilter(filter.Condition, func(e *exprtree.Expr) bool {
		return columnRefsInRange(e, 0, leftLen)
	})

	var pushedRight, residual *exprtree.Expr
	if r.allowRight {
		pushedRight, residual = exprutil.SplitFilter(rest, func(e *exprtree.Expr) bool {
			return columnRefsInRange(e, leftLen, leftLen+rightLen)
		})
	} else {
		residual = rest
	}

	if pushedLeft == nil && pushedRight == nil {
		return rule.NoTransform()
	}

	newLeftGN, newRightGN := leftGN, rightGN
	if pushedLeft != nil {
		clone := leftGN.Node().Clone()
		clone.SetOutputVar(leftGN.Node().OutputVar())
		clone.StorageFilter = exprtree.And(clone.StorageFilter, pushedLeft)
		newLeftGN = memo.NewGroupNode(clone, leftGN.Dependencies(), leftGN.Bodies())
		if err := leftGroup.Insert(newLeftGN); err != nil {
			return nil, err
		}
		leftGroup.EraseCurr(leftGN, qc.Symtab)
	}
	if pushedRight != nil {
		shifted := shiftColumnRefs(qc.Arena, pushedRight, leftLen)
		clone := rightGN.Node().Clone()
		clone.SetOutputVar(rightGN.Node().OutputVar())
		clone.StorageFilter = exprtree.And(clone.StorageFilter, shifted)
		newRightGN = memo.NewGroupNode(clone, rightGN.Dependencies(), rightGN.Bodies())
		if err := rightGroup.Insert(newRightGN); err != nil {
			return nil, err
		}
		rightGroup.EraseCurr(rightGN, qc.Symtab)
	}

	if residual == nil {
		newJoin := join.Clone()
		newJoin.SetOutputVar(filter.OutputVar())
		gn := memo.NewGroupNode(newJoin, []*memo.Group{newLeftGN.Group(), newRightGN.Group()}, nil)
		return rule.NewTransformResult([]*memo.GroupNode{gn}, false, true), nil
	}

	newJoin := join.Clone()
	newJoin.SetOutputVar(join.OutputVar())
	jgn := memo.NewGroupNode(newJoin, []*memo.Group{newLeftGN.Group(), newRightGN.Group()}, nil)
	joinGroup := joinGN.Group()
	if err := joinGroup.Insert(jgn); err != nil {
		return nil, err
	}
	joinGroup.EraseCurr(joinGN, qc.Symtab)

	newFilter := plannode.New(plannode.KindFilter, filter.OutputVar(), filter.ColNames())
	newFilter.Condition = residual
	newFilter.SetInputVar(0, join.OutputVar())
	fgn := memo.NewGroupNode(newFilter, []*memo.Group{joinGroup}, nil)
	return rule.NewTransformResult([]*memo.GroupNode{fgn}, false, true), nil
}

// PushFilterDownHashInnerJoinRule pushes each side-confined part of a
// Filter above a HashInnerJoin into that side's own group.
var PushFilterDownHashInnerJoinRule = pushFilterDownJoin{
	name: "PushFilterDownHashInnerJoin", kind: plannode.KindHashInnerJoin, allowRight: true,
}

// PushFilterDownHashLeftJoinRule pushes only the left-confined part of a
// Filter above a HashLeftJoin into the left group — pushing a
// right-confined predicate below the join would change which left rows
// survive the null extension.
var PushFilterDownHashLeftJoinRule = pushFilterDownJoin{
	name: "PushFilterDownHashLeftJoin", kind: plannode.KindHashLeftJoin, allowRight: false,
}

// PushFilterDownCrossJoinRule pushes each side-confined part of a Filter
// above a CrossJoin into that side's own group.
var PushFilterDownCrossJoinRule = pushFilterDownJoin{
	name: "PushFilterDownCrossJoin", kind: plannode.KindCrossJoin, allowRight: true,
}
