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

// Package misc holds the rewrite rules that don't belong to any of the
// other rule families: one-off shape simplifications grounded in a
// specific downstream operator's own semantics.
package misc

import (
	"github.com/matrixorigin/graphoptimizer/pkg/exprtree"
	"github.com/matrixorigin/graphoptimizer/pkg/memo"
	"github.com/matrixorigin/graphoptimizer/pkg/pattern"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
	"github.com/matrixorigin/graphoptimizer/pkg/qctx"
	"github.com/matrixorigin/graphoptimizer/pkg/rule"
)

// RemoveProjectDedupBeforeGetDstBySrcRule drops a Dedup+Project pair
// sitting directly above a DataCollect that already yields a distinct vid
// column, rewiring GetDstBySrc straight onto DataCollect's output and
// rewriting its source expression from the upstream-row reference
// ($-._vid) to the positional column DataCollect exposes it at.
type RemoveProjectDedupBeforeGetDstBySrcRule struct{}

func (RemoveProjectDedupBeforeGetDstBySrcRule) String() string {
	return "RemoveProjectDedupBeforeGetDstBySrc"
}

func (RemoveProjectDedupBeforeGetDstBySrcRule) Pattern() *pattern.Pattern {
	return pattern.OfKind(plannode.KindGetDstBySrc,
		pattern.OfKind(plannode.KindDedup,
			pattern.OfKind(plannode.KindProject,
				pattern.OfKind(plannode.KindDataCollect))))
}

func (RemoveProjectDedupBeforeGetDstBySrcRule) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	getDst := m.GroupNode.Node()
	if getDst.SrcExpr == nil || getDst.SrcExpr.Kind != exprtree.KindVarProp || getDst.SrcExpr.Col != "_vid" {
		return false, nil
	}
	collect := m.Dependencies[0].Dependencies[0].Dependencies[0].GroupNode.Node()
	if !collect.DistinctVid {
		return false, nil
	}
	return rule.CheckDataflowDeps(m, qc.Symtab), nil
}

func (RemoveProjectDedupBeforeGetDstBySrcRule) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	getDst := m.GroupNode.Node()
	collectGroup := m.Dependencies[0].Dependencies[0].Dependencies[0].GroupNode.Group()

	clone := getDst.Clone()
	clone.SetOutputVar(getDst.OutputVar())
	clone.SrcExpr = exprtree.ColumnRef(0)
	gn := memo.NewGroupNode(clone, []*memo.Group{collectGroup}, nil)
	return rule.NewTransformResult([]*memo.GroupNode{gn}, false, true), nil
}
