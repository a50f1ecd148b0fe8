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

package indexscan

import (
	"github.com/matrixorigin/graphoptimizer/pkg/memo"
	"github.com/matrixorigin/graphoptimizer/pkg/pattern"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
	"github.com/matrixorigin/graphoptimizer/pkg/qctx"
	"github.com/matrixorigin/graphoptimizer/pkg/rule"
)

// mergeDedup is the shared shape of MergeGetVerticesAndDedup and
// MergeGetNbrsAndDedup: Dedup directly above a vertex/neighbor fetch
// folds into the fetch's own Dedup flag, consuming the fetch's input
// directly and dropping the now-redundant Dedup node.
type mergeDedup struct {
	name       string
	targetKind plannode.Kind
}

func (r mergeDedup) String() string { return r.name }

func (r mergeDedup) Pattern() *pattern.Pattern {
	return pattern.OfKind(plannode.KindDedup, pattern.OfKind(r.targetKind, pattern.Any()))
}

func (r mergeDedup) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	return rule.CheckDataflowDeps(m, qc.Symtab), nil
}

func (r mergeDedup) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	dedup := m.GroupNode.Node()
	targetMR := m.Dependencies[0]
	target := targetMR.GroupNode.Node()

	clone := target.Clone()
	clone.SetOutputVar(dedup.OutputVar())
	clone.Dedup = true
	gn := memo.NewGroupNode(clone, targetMR.GroupNode.Dependencies(), targetMR.GroupNode.Bodies())
	return rule.NewTransformResult([]*memo.GroupNode{gn}, false, true), nil
}

// MergeGetVerticesAndDedupRule folds a Dedup directly above GetVertices
// into GetVertices(dedup=true).
var MergeGetVerticesAndDedupRule = mergeDedup{name: "MergeGetVerticesAndDedup", targetKind: plannode.KindGetVertices}

// MergeGetNbrsAndDedupRule folds a Dedup directly above GetNeighbors into
// GetNeighbors(dedup=true).
var MergeGetNbrsAndDedupRule = mergeDedup{name: "MergeGetNbrsAndDedup", targetKind: plannode.KindGetNeighbors}
