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

package limitpushdown

import (
	"github.com/matrixorigin/graphoptimizer/pkg/exprutil"
	"github.com/matrixorigin/graphoptimizer/pkg/memo"
	"github.com/matrixorigin/graphoptimizer/pkg/pattern"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
	"github.com/matrixorigin/graphoptimizer/pkg/qctx"
	"github.com/matrixorigin/graphoptimizer/pkg/rule"
)

// TopNRule merges a Limit directly above a Sort into a single TopN node,
// letting the executor keep only a bounded heap instead of sorting the
// whole input.
type TopNRule struct{}

func (TopNRule) String() string { return "TopN" }

func (TopNRule) Pattern() *pattern.Pattern {
	return pattern.OfKind(plannode.KindLimit, pattern.OfKind(plannode.KindSort, pattern.Any()))
}

func (TopNRule) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	limit := m.GroupNode.Node()
	if limit.LimitOffset != 0 {
		// A TopN heap only knows how to keep the smallest LimitCount rows;
		// it has no way to also discard a leading offset, so a Limit with
		// an offset must keep sorting the whole input.
		return false, nil
	}
	return rule.CheckDataflowDeps(m, qc.Symtab), nil
}

func (TopNRule) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	limit := m.GroupNode.Node()
	sortMR := m.Dependencies[0]
	sort := sortMR.GroupNode.Node()
	grandGroup := sortMR.GroupNode.Dependencies()[0]

	topN := plannode.New(plannode.KindTopN, limit.OutputVar(), limit.ColNames())
	topN.SortFactors = sort.SortFactors
	topN.LimitCount = limit.LimitCount
	topN.LimitOffset = limit.LimitOffset
	topN.SetInputVar(0, grandGroup.OutputVar())
	gn := memo.NewGroupNode(topN, []*memo.Group{grandGroup}, nil)
	return rule.NewTransformResult([]*memo.GroupNode{gn}, false, true), nil
}

// PushLimitDownProjectRule moves a Limit below a column-preserving
// Project: a Project never changes row count, so bounding its input
// instead of its output is always equivalent and lets a later pushdown
// round reach whatever produced the Project's input.
type PushLimitDownProjectRule struct{}

func (PushLimitDownProjectRule) String() string { return "PushLimitDownProject" }

func (PushLimitDownProjectRule) Pattern() *pattern.Pattern {
	return pattern.OfKind(plannode.KindLimit, pattern.OfKind(plannode.KindProject, pattern.Any()))
}

func (PushLimitDownProjectRule) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	return rule.CheckDataflowDeps(m, qc.Symtab), nil
}

func (PushLimitDownProjectRule) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	limit := m.GroupNode.Node()
	projMR := m.Dependencies[0]
	proj := projMR.GroupNode.Node()
	grandGN := projMR.Dependencies[0].GroupNode
	grand := grandGN.Node()
	grandGroup := grandGN.Group()

	newLimitVar := grand.OutputVar() + "_lim"
	newLimit := plannode.New(plannode.KindLimit, newLimitVar, grand.ColNames())
	newLimit.LimitCount = limit.LimitCount
	newLimit.LimitOffset = limit.LimitOffset
	newLimit.SetInputVar(0, grand.OutputVar())
	limGN := memo.NewGroupNode(newLimit, []*memo.Group{grandGroup}, nil)
	limGroup := rule.NewGroup(newLimitVar, grand.ColNames())
	if err := limGroup.Insert(limGN); err != nil {
		return nil, err
	}

	newItems := make([]plannode.ProjectItem, len(proj.Projections))
	for i, it := range proj.Projections {
		newItems[i] = plannode.ProjectItem{Alias: it.Alias, Expr: exprutil.RewriteInnerVar(qc.Arena, it.Expr, newLimitVar)}
	}
	newProj := plannode.New(plannode.KindProject, limit.OutputVar(), limit.ColNames())
	newProj.Projections = newItems
	newProj.SetInputVar(0, newLimitVar)
	pgn := memo.NewGroupNode(newProj, []*memo.Group{limGroup}, nil)
	return rule.NewTransformResult([]*memo.GroupNode{pgn}, false, true), nil
}
