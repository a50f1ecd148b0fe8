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

// Package deadcode implements the dead-node elimination rules: rewrites
// that drop a plan node whose presence adds no information. It also
// holds the rules that merge two adjacent operators into one
// (CombineFilter, CollapseProject) or fold a Filter into the join below
// it (OptimizeLeftJoinPredicate); pushdown rules live elsewhere.
package deadcode

import (
	"github.com/matrixorigin/graphoptimizer/pkg/exprtree"
	"github.com/matrixorigin/graphoptimizer/pkg/memo"
	"github.com/matrixorigin/graphoptimizer/pkg/pattern"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
	"github.com/matrixorigin/graphoptimizer/pkg/qctx"
	"github.com/matrixorigin/graphoptimizer/pkg/rule"
)

// passthroughKinds is the allow-list of node kinds whose output columns
// are real, positionally stable data rather than a computed expression
// list — a Project directly above one of these, doing nothing but
// restating its child's columns in the same order, is pure overhead.
var passthroughKinds = map[plannode.Kind]struct{}{
	plannode.KindScanVertices:   {},
	plannode.KindScanEdges:      {},
	plannode.KindGetVertices:    {},
	plannode.KindGetEdges:       {},
	plannode.KindGetNeighbors:   {},
	plannode.KindAppendVertices: {},
	plannode.KindTraverse:       {},
	plannode.KindDedup:          {},
	plannode.KindProject:        {},
}

func isPassthrough(k plannode.Kind) bool {
	_, ok := passthroughKinds[k]
	return ok
}

// isColumnPassthrough reports whether expr is exactly "column i of the
// upstream row", expressed either as a positional ColumnRef or as a
// VarProp reading childVar's column col.
func isColumnPassthrough(expr *exprtree.Expr, i int, childVar, col string) bool {
	if expr == nil {
		return false
	}
	switch expr.Kind {
	case exprtree.KindColumnRef:
		return expr.ColIndex == i
	case exprtree.KindVarProp:
		return expr.Var == childVar && expr.Col == col
	default:
		return false
	}
}

// RemoveNoopProjectRule drops a Project whose projection list is exactly
// its child's column list, in order, restating each column under its own
// name with no computation.
type RemoveNoopProjectRule struct{}

func (RemoveNoopProjectRule) String() string { return "RemoveNoopProject" }

func (RemoveNoopProjectRule) Pattern() *pattern.Pattern {
	return pattern.OfKind(plannode.KindProject, pattern.Any())
}

func (RemoveNoopProjectRule) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	proj := m.GroupNode.Node()
	childGroup := m.GroupNode.Dependencies()[0]
	childGN := m.Dependencies[0].GroupNode
	childNode := childGN.Node()
	if !isPassthrough(childNode.Kind()) {
		return false, nil
	}
	cols := childGroup.ColNames()
	if len(proj.Projections) != len(cols) {
		return false, nil
	}
	for i, p := range proj.Projections {
		if p.Alias != cols[i] {
			return false, nil
		}
		if !isColumnPassthrough(p.Expr, i, childGroup.OutputVar(), cols[i]) {
			return false, nil
		}
	}
	return rule.CheckDataflowDeps(m, qc.Symtab), nil
}

func (RemoveNoopProjectRule) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	childGN := m.Dependencies[0].GroupNode
	projOutputVar := m.GroupNode.Node().OutputVar()
	promoted := rule.PromoteChild(childGN, projOutputVar)
	return rule.NewTransformResult([]*memo.GroupNode{promoted}, false, true), nil
}
