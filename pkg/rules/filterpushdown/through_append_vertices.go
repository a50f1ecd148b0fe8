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

// PushFilterThroughAppendVerticesRule moves the part of a Filter's
// condition that never references AppendVertices' own alias past it, all
// the way to the step that produced AppendVertices' input — distinct
// from PushFilterDownAppendVerticesRule, which folds an alias-scoped
// predicate into AppendVertices itself rather than skipping over it.
type PushFilterThroughAppendVerticesRule struct{}

func (PushFilterThroughAppendVerticesRule) String() string { return "PushFilterThroughAppendVertices" }

func (PushFilterThroughAppendVerticesRule) Pattern() *pattern.Pattern {
	return pattern.OfKind(plannode.KindFilter,
		pattern.OfKind(plannode.KindAppendVertices, pattern.Any()))
}

func (PushFilterThroughAppendVerticesRule) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	return rule.CheckDataflowDeps(m, qc.Symtab), nil
}

func (PushFilterThroughAppendVerticesRule) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	filter := m.GroupNode.Node()
	avMR := m.Dependencies[0]
	avGN := avMR.GroupNode
	av := avGN.Node()
	grandGN := avMR.Dependencies[0].GroupNode
	grand := grandGN.Node()
	grandGroup := grandGN.Group()

	pushed, residual := exprutil.SplitFilter(filter.Condition, func(e *exprtree.Expr) bool {
		return doesNotReference(e, av.Alias)
	})
	if pushed == nil {
		return rule.NoTransform()
	}

	clone := grand.Clone()
	clone.SetOutputVar(grand.OutputVar())
	clone.StorageFilter = exprtree.And(clone.StorageFilter, pushed)
	newGN := memo.NewGroupNode(clone, grandGN.Dependencies(), grandGN.Bodies())
	if err := grandGroup.Insert(newGN); err != nil {
		return nil, err
	}
	grandGroup.EraseCurr(grandGN, qc.Symtab)

	if residual == nil {
		promoted := rule.PromoteChild(avGN, filter.OutputVar())
		return rule.NewTransformResult([]*memo.GroupNode{promoted}, false, true), nil
	}

	newFilter := plannode.New(plannode.KindFilter, filter.OutputVar(), filter.ColNames())
	newFilter.Condition = residual
	newFilter.SetInputVar(0, av.OutputVar())
	fgn := memo.NewGroupNode(newFilter, []*memo.Group{avGN.Group()}, nil)
	return rule.NewTransformResult([]*memo.GroupNode{fgn}, false, true), nil
}
