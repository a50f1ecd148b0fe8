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
	"github.com/matrixorigin/graphoptimizer/pkg/memo"
	"github.com/matrixorigin/graphoptimizer/pkg/pattern"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
	"github.com/matrixorigin/graphoptimizer/pkg/qctx"
	"github.com/matrixorigin/graphoptimizer/pkg/rule"
)

// PushLimitDownShortestPathRule tightens a ShortestPath step's row budget
// to a Limit above it, reaching through the DataCollect that always sits
// between a path-finding step and the rest of the plan. DataCollect only
// re-shapes rows into paths; it never changes how many paths leave
// ShortestPath, so it is left untouched and the bound is applied one
// level further down.
type PushLimitDownShortestPathRule struct{}

func (PushLimitDownShortestPathRule) String() string { return "PushLimitDownShortestPath" }

func (PushLimitDownShortestPathRule) Pattern() *pattern.Pattern {
	return pattern.OfKind(plannode.KindLimit,
		pattern.OfKind(plannode.KindDataCollect,
			pattern.OfKind(plannode.KindShortestPath, pattern.Any())))
}

func (PushLimitDownShortestPathRule) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	collectMR := m.Dependencies[0]
	spMR := collectMR.Dependencies[0]
	sp := spMR.GroupNode.Node()
	bound := limitBound(m.GroupNode.Node())
	if sp.RowLimit >= 0 && sp.RowLimit <= bound {
		return false, nil
	}
	return rule.CheckDataflowDeps(m, qc.Symtab), nil
}

func (PushLimitDownShortestPathRule) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	limit := m.GroupNode.Node()
	collectMR := m.Dependencies[0]
	spMR := collectMR.Dependencies[0]
	spGN := spMR.GroupNode
	sp := spGN.Node()

	clone := sp.Clone()
	clone.SetOutputVar(sp.OutputVar())
	clone.RowLimit = limitBound(limit)
	newGN := memo.NewGroupNode(clone, spGN.Dependencies(), spGN.Bodies())
	return rule.InsertAlternative(spGN.Group(), newGN)
}
