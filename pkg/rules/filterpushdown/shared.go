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

// Package filterpushdown implements the rules that move a Filter's
// condition below the operator it currently sits above, either by
// folding it into that operator's own storage/vertex filter field or by
// restructuring the subtree so the filter runs closer to where its
// inputs are produced.
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

// pushIntoField folds the portion of a Filter's condition that apply
// accepts into an additional candidate realization of the target's own
// group — a clone of the target carrying the pushed predicate — and, if
// anything is left over, replaces the matched Filter with one carrying
// only the residual. Safe only when the target's output has exactly one
// reader, which Match is expected to have already verified via
// rule.CheckDataflowDeps: that is what licenses destructively retiring
// the target's unfiltered candidate once the filtered one is in place.
func pushIntoField(
	qc *qctx.QueryContext,
	m *pattern.MatchedResult,
	isPushable func(*exprtree.Expr) bool,
	apply func(clone *plannode.Node, pushed *exprtree.Expr),
) (*rule.TransformResult, error) {
	filter := m.GroupNode.Node()
	targetGN := m.Dependencies[0].GroupNode
	target := targetGN.Node()
	targetGroup := targetGN.Group()

	pushed, residual := exprutil.SplitFilter(filter.Condition, isPushable)
	if pushed == nil {
		return rule.NoTransform()
	}

	clone := target.Clone()
	clone.SetOutputVar(target.OutputVar())
	apply(clone, pushed)
	newGN := memo.NewGroupNode(clone, targetGN.Dependencies(), targetGN.Bodies())
	if err := targetGroup.Insert(newGN); err != nil {
		return nil, err
	}
	targetGroup.EraseCurr(targetGN, qc.Symtab)

	if residual == nil {
		promoted := rule.PromoteChild(newGN, filter.OutputVar())
		return rule.NewTransformResult([]*memo.GroupNode{promoted}, false, true), nil
	}

	newFilter := plannode.New(plannode.KindFilter, filter.OutputVar(), filter.ColNames())
	newFilter.Condition = residual
	newFilter.SetInputVar(0, target.OutputVar())
	fgn := memo.NewGroupNode(newFilter, []*memo.Group{targetGroup}, nil)
	return rule.NewTransformResult([]*memo.GroupNode{fgn}, false, true), nil
}

// referencesOnlyOwner reports whether every property/column reference in
// e is scoped to owner — i.e. the predicate can be evaluated without
// anything upstream of the node that binds owner.
func referencesOnlyOwner(e *exprtree.Expr, owner string) bool {
	ok := true
	e.Walk(func(n *exprtree.Expr) {
		switch n.Kind {
		case exprtree.KindPropertyRef:
			if n.Owner != owner {
				ok = false
			}
		case exprtree.KindVarProp:
			if n.Var != owner {
				ok = false
			}
		}
	})
	return ok
}

// doesNotReference reports whether no property/column reference in e is
// scoped to owner — the predicate can be evaluated entirely without
// whatever binds owner.
func doesNotReference(e *exprtree.Expr, owner string) bool {
	clean := true
	e.Walk(func(n *exprtree.Expr) {
		switch n.Kind {
		case exprtree.KindPropertyRef:
			if n.Owner == owner {
				clean = false
			}
		case exprtree.KindVarProp:
			if n.Var == owner {
				clean = false
			}
		}
	})
	return clean
}

// singleChildPattern is the common shape every push-into-field rule
// matches: Filter directly above the one target kind it knows how to
// absorb a predicate into.
func singleChildPattern(k plannode.Kind) *pattern.Pattern {
	return pattern.OfKind(plannode.KindFilter, pattern.OfKind(k, pattern.Any()))
}
