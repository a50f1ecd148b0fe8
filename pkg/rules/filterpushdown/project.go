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

// PushFilterDownProjectRule moves the part of a Filter's condition that
// reads only pass-through columns of a Project below that Project,
// rewriting it to read the Project's own input directly. Unlike the
// other pushdown rules, the rewrite introduces a genuinely new
// intermediate group (the pushed-down Filter now sits strictly between
// Project and Project's old child), so it mints one with rule.NewGroup
// instead of mutating an existing group in place.
type PushFilterDownProjectRule struct{}

func (PushFilterDownProjectRule) String() string { return "PushFilterDownProject" }

func (PushFilterDownProjectRule) Pattern() *pattern.Pattern {
	return pattern.OfKind(plannode.KindFilter, pattern.OfKind(plannode.KindProject, pattern.Any()))
}

func (PushFilterDownProjectRule) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	return rule.CheckDataflowDeps(m, qc.Symtab), nil
}

// passthroughOf reports the child column a Project item passes straight
// through unchanged, if any.
func passthroughOf(e *exprtree.Expr) (col string, ok bool) {
	if e != nil && e.Kind == exprtree.KindVarProp {
		return e.Col, true
	}
	return "", false
}

func (PushFilterDownProjectRule) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	filter := m.GroupNode.Node()
	projMR := m.Dependencies[0]
	projGN := projMR.GroupNode
	proj := projGN.Node()
	grandGN := projMR.Dependencies[0].GroupNode
	grand := grandGN.Node()

	passthrough := make(map[string]string, len(proj.Projections))
	for _, it := range proj.Projections {
		if col, ok := passthroughOf(it.Expr); ok {
			passthrough[it.Alias] = col
		}
	}

	pushed, residual := exprutil.SplitFilter(filter.Condition, func(e *exprtree.Expr) bool {
		ok := true
		e.Walk(func(n *exprtree.Expr) {
			if n.Kind == exprtree.KindVarProp && n.Var == proj.OutputVar() {
				if _, found := passthrough[n.Col]; !found {
					ok = false
				}
			}
		})
		return ok
	})
	if pushed == nil {
		return rule.NoTransform()
	}

	rewritten := rewriteThroughProject(qc.Arena, pushed, proj.OutputVar(), grand.OutputVar(), passthrough)

	filteredVar := grand.OutputVar() + "_pf"
	pushedFilter := plannode.New(plannode.KindFilter, filteredVar, grand.ColNames())
	pushedFilter.Condition = rewritten
	pushedFilter.SetInputVar(0, grand.OutputVar())
	pushedGN := memo.NewGroupNode(pushedFilter, []*memo.Group{grandGN.Group()}, nil)
	pushedGroup := rule.NewGroup(filteredVar, grand.ColNames())
	if err := pushedGroup.Insert(pushedGN); err != nil {
		return nil, err
	}

	newProjItems := make([]plannode.ProjectItem, len(proj.Projections))
	for i, it := range proj.Projections {
		newProjItems[i] = plannode.ProjectItem{
			Alias: it.Alias,
			Expr:  exprutil.RewriteInnerVar(qc.Arena, it.Expr, filteredVar),
		}
	}

	if residual == nil {
		newProj := plannode.New(plannode.KindProject, filter.OutputVar(), filter.ColNames())
		newProj.Projections = newProjItems
		newProj.SetInputVar(0, filteredVar)
		pgn := memo.NewGroupNode(newProj, []*memo.Group{pushedGroup}, nil)
		return rule.NewTransformResult([]*memo.GroupNode{pgn}, false, true), nil
	}

	projectedVar := proj.OutputVar() + "_pf2"
	newProj := plannode.New(plannode.KindProject, projectedVar, proj.ColNames())
	newProj.Projections = newProjItems
	newProj.SetInputVar(0, filteredVar)
	pgn := memo.NewGroupNode(newProj, []*memo.Group{pushedGroup}, nil)
	projGroup2 := rule.NewGroup(projectedVar, proj.ColNames())
	if err := projGroup2.Insert(pgn); err != nil {
		return nil, err
	}

	newFilter := plannode.New(plannode.KindFilter, filter.OutputVar(), filter.ColNames())
	newFilter.Condition = residual
	newFilter.SetInputVar(0, projectedVar)
	fgn := memo.NewGroupNode(newFilter, []*memo.Group{projGroup2}, nil)
	return rule.NewTransformResult([]*memo.GroupNode{fgn}, false, true), nil
}

// rewriteThroughProject rebuilds e, replacing each VarProp(projVar, col)
// — col necessarily one of passthrough's keys, by the split predicate
// Transform applies before calling it —
// with VarProp(grandVar, passthrough[col]).
func rewriteThroughProject(arena *exprtree.Arena, e *exprtree.Expr, projVar, grandVar string, passthrough map[string]string) *exprtree.Expr {
	if e == nil {
		return nil
	}
	c := arena.Clone(e)
	c.Walk(func(n *exprtree.Expr) {
		if n.Kind == exprtree.KindVarProp && n.Var == projVar {
			if col, ok := passthrough[n.Col]; ok {
				n.Var = grandVar
				n.Col = col
			}
		}
	})
	return c
}
