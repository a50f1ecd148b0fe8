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
	"github.com/matrixorigin/graphoptimizer/pkg/memo"
	"github.com/matrixorigin/graphoptimizer/pkg/pattern"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
	"github.com/matrixorigin/graphoptimizer/pkg/qctx"
	"github.com/matrixorigin/graphoptimizer/pkg/rule"
)

// CollapseProjectRule merges two adjacent Projects into one by
// substituting the inner Project's expressions into the outer's, closing
// the gap between them.
type CollapseProjectRule struct{}

func (CollapseProjectRule) String() string { return "CollapseProject" }

func (CollapseProjectRule) Pattern() *pattern.Pattern {
	return pattern.OfKind(plannode.KindProject, pattern.OfKind(plannode.KindProject, pattern.Any()))
}

func (CollapseProjectRule) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	return rule.CheckDataflowDeps(m, qc.Symtab), nil
}

func (CollapseProjectRule) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	outer := m.GroupNode.Node()
	innerMR := m.Dependencies[0]
	inner := innerMR.GroupNode.Node()
	grand := innerMR.GroupNode.Dependencies()[0]

	repl := make(map[string]*exprtree.Expr, len(inner.Projections))
	for _, it := range inner.Projections {
		repl[it.Alias] = it.Expr
	}

	refCount := make(map[string]int, len(repl))
	for _, it := range outer.Projections {
		countVarPropRefs(it.Expr, inner.OutputVar(), refCount)
	}
	for col, n := range refCount {
		if n <= 1 {
			continue
		}
		if sub, ok := repl[col]; ok && !isTrivialExpr(sub) {
			// Inlining would duplicate evaluation of a non-trivial lower
			// expression at every reference site.
			return rule.NoTransform()
		}
	}

	newItems := make([]plannode.ProjectItem, len(outer.Projections))
	for i, it := range outer.Projections {
		newItems[i] = plannode.ProjectItem{
			Alias: it.Alias,
			Expr:  substituteVarProp(it.Expr, inner.OutputVar(), repl),
		}
	}

	newProj := plannode.New(plannode.KindProject, outer.OutputVar(), outer.ColNames())
	newProj.Projections = newItems
	newProj.SetInputVar(0, grand.OutputVar())
	gn := memo.NewGroupNode(newProj, []*memo.Group{grand}, nil)
	return rule.NewTransformResult([]*memo.GroupNode{gn}, false, true), nil
}

// countVarPropRefs tallies, by column name, how many times e reads a
// column of srcVar — used to detect a lower expression that would be
// inlined at more than one reference site.
func countVarPropRefs(e *exprtree.Expr, srcVar string, counts map[string]int) {
	if e == nil {
		return
	}
	if e.Kind == exprtree.KindVarProp && e.Var == srcVar {
		counts[e.Col]++
		return
	}
	countVarPropRefs(e.Left, srcVar, counts)
	countVarPropRefs(e.Right, srcVar, counts)
	for _, o := range e.Operands {
		countVarPropRefs(o, srcVar, counts)
	}
	for _, a := range e.Args {
		countVarPropRefs(a, srcVar, counts)
	}
}

// isTrivialExpr reports whether e is a plain column read (VarProp or
// ColumnRef) rather than a computed expression — the only shape safe to
// duplicate across multiple reference sites without re-evaluating work.
func isTrivialExpr(e *exprtree.Expr) bool {
	if e == nil {
		return true
	}
	switch e.Kind {
	case exprtree.KindVarProp, exprtree.KindColumnRef:
		return true
	default:
		return false
	}
}

// substituteVarProp rebuilds e, replacing every VarProp reading column c
// of srcVar with repl[c] (a clone-free substitution: the replacement
// subexpression is shared, matching this rule library's read-only-Expr
// convention).
func substituteVarProp(e *exprtree.Expr, srcVar string, repl map[string]*exprtree.Expr) *exprtree.Expr {
	if e == nil {
		return nil
	}
	if e.Kind == exprtree.KindVarProp && e.Var == srcVar {
		if sub, ok := repl[e.Col]; ok {
			return sub
		}
		return e
	}
	c := *e
	c.Left = substituteVarProp(e.Left, srcVar, repl)
	c.Right = substituteVarProp(e.Right, srcVar, repl)
	if e.Operands != nil {
		c.Operands = make([]*exprtree.Expr, len(e.Operands))
		for i, o := range e.Operands {
			c.Operands[i] = substituteVarProp(o, srcVar, repl)
		}
	}
	if e.Args != nil {
		c.Args = make([]*exprtree.Expr, len(e.Args))
		for i, a := range e.Args {
			c.Args[i] = substituteVarProp(a, srcVar, repl)
		}
	}
	return &c
}
