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

// isRedundantAppendVertices reports whether an AppendVertices step
// carries no vertex filter and is flagged SrcOnly — nothing downstream
// needs the vertex properties it would fetch, so it is equivalent to its
// child.
func isRedundantAppendVertices(n *plannode.Node) bool {
	return n.Kind() == plannode.KindAppendVertices && n.SrcOnly && n.VertexFilter == nil
}

// EliminateAppendVerticesRule drops an AppendVertices step that appends
// no property any downstream node reads.
type EliminateAppendVerticesRule struct{}

func (EliminateAppendVerticesRule) String() string { return "EliminateAppendVertices" }

func (EliminateAppendVerticesRule) Pattern() *pattern.Pattern {
	return pattern.OfKind(plannode.KindAppendVertices, pattern.Any())
}

func (EliminateAppendVerticesRule) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	return isRedundantAppendVertices(m.GroupNode.Node()), nil
}

func (EliminateAppendVerticesRule) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	childGN := m.Dependencies[0].GroupNode
	promoted := rule.PromoteChild(childGN, m.GroupNode.Node().OutputVar())
	return rule.NewTransformResult([]*memo.GroupNode{promoted}, false, true), nil
}

// joinKinds is the set of plan kinds whose left-hand dependency an
// AppendVertices step might redundantly sit under.
var joinKinds = []plannode.Kind{plannode.KindHashInnerJoin, plannode.KindHashLeftJoin, plannode.KindCrossJoin}

// RemoveAppendVerticesBelowJoinRule drops a redundant AppendVertices that
// sits directly under a join's probe side, rewiring the join straight to
// the AppendVertices' own child.
type RemoveAppendVerticesBelowJoinRule struct{}

func (RemoveAppendVerticesBelowJoinRule) String() string { return "RemoveAppendVerticesBelowJoin" }

func (RemoveAppendVerticesBelowJoinRule) Pattern() *pattern.Pattern {
	return pattern.OfKinds(joinKinds, pattern.OfKind(plannode.KindAppendVertices, pattern.Any()), pattern.Any())
}

func (RemoveAppendVerticesBelowJoinRule) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	av := m.Dependencies[0].GroupNode.Node()
	if !isRedundantAppendVertices(av) {
		return false, nil
	}
	return rule.CheckDataflowDeps(m, qc.Symtab), nil
}

func (RemoveAppendVerticesBelowJoinRule) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	join := m.GroupNode.Node()
	avGroup := m.Dependencies[0].GroupNode.Dependencies()[0]
	rightGroup := m.Dependencies[1].GroupNode.Group()

	clone := join.Clone()
	clone.SetOutputVar(join.OutputVar())
	gn := memo.NewGroupNode(clone, []*memo.Group{avGroup, rightGroup}, nil)
	return rule.NewTransformResult([]*memo.GroupNode{gn}, false, true), nil
}

// OptimizeLeftJoinPredicateRule folds a Filter sitting directly above a
// HashLeftJoin into the join's own condition, provided the filter can
// never be satisfied by the join's null-extended rows (so pushing it
// from WHERE into ON cannot change which left rows survive).
type OptimizeLeftJoinPredicateRule struct{}

func (OptimizeLeftJoinPredicateRule) String() string { return "OptimizeLeftJoinPredicate" }

func (OptimizeLeftJoinPredicateRule) Pattern() *pattern.Pattern {
	return pattern.OfKind(plannode.KindFilter, pattern.OfKind(plannode.KindHashLeftJoin, pattern.Any(), pattern.Any()))
}

func isNullRejecting(e *exprtree.Expr) bool {
	safe := true
	e.Walk(func(n *exprtree.Expr) {
		if n.IsConstantNull() {
			safe = false
		}
	})
	return safe
}

func (OptimizeLeftJoinPredicateRule) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	filter := m.GroupNode.Node()
	if !isNullRejecting(filter.Condition) {
		return false, nil
	}
	return rule.CheckDataflowDeps(m, qc.Symtab), nil
}

func (OptimizeLeftJoinPredicateRule) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	filter := m.GroupNode.Node()
	joinMR := m.Dependencies[0]
	join := joinMR.GroupNode.Node()
	leftGroup := joinMR.GroupNode.Dependencies()[0]
	rightGroup := joinMR.GroupNode.Dependencies()[1]

	rewritten := exprutil.RewriteInnerVar(qc.Arena, filter.Condition, join.OutputVar())
	combined := exprtree.And(join.Condition, rewritten)

	newJoin := join.Clone()
	newJoin.SetOutputVar(filter.OutputVar())
	newJoin.Condition = combined
	gn := memo.NewGroupNode(newJoin, []*memo.Group{leftGroup, rightGroup}, nil)
	return rule.NewTransformResult([]*memo.GroupNode{gn}, false, true), nil
}
