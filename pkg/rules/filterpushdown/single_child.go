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
	"github.com/matrixorigin/graphoptimizer/pkg/pattern"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
	"github.com/matrixorigin/graphoptimizer/pkg/qctx"
	"github.com/matrixorigin/graphoptimizer/pkg/rule"
)

// PushFilterDownScanVerticesRule folds a Filter's storage-evaluable
// predicate (one scoped to the scan's own alias) into ScanVertices'
// StorageFilter.
type PushFilterDownScanVerticesRule struct{}

func (PushFilterDownScanVerticesRule) String() string { return "PushFilterDownScanVertices" }

func (PushFilterDownScanVerticesRule) Pattern() *pattern.Pattern {
	return singleChildPattern(plannode.KindScanVertices)
}

func (PushFilterDownScanVerticesRule) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	return rule.CheckDataflowDeps(m, qc.Symtab), nil
}

func (PushFilterDownScanVerticesRule) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	target := m.Dependencies[0].GroupNode.Node()
	return pushIntoField(qc, m,
		func(e *exprtree.Expr) bool { return referencesOnlyOwner(e, target.Alias) },
		func(clone *plannode.Node, pushed *exprtree.Expr) {
			clone.StorageFilter = exprtree.And(clone.StorageFilter, pushed)
		})
}

// PushVFilterDownScanVerticesRule folds the same alias-scoped predicate
// PushFilterDownScanVerticesRule accepts into ScanVertices' VertexFilter
// instead of its StorageFilter. It does not tell storage-evaluable
// predicates apart from ones that need the full vertex row.
type PushVFilterDownScanVerticesRule struct{}

func (PushVFilterDownScanVerticesRule) String() string { return "PushVFilterDownScanVertices" }

func (PushVFilterDownScanVerticesRule) Pattern() *pattern.Pattern {
	return singleChildPattern(plannode.KindScanVertices)
}

func (PushVFilterDownScanVerticesRule) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	return rule.CheckDataflowDeps(m, qc.Symtab), nil
}

func (PushVFilterDownScanVerticesRule) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	target := m.Dependencies[0].GroupNode.Node()
	return pushIntoField(qc, m,
		func(e *exprtree.Expr) bool { return referencesOnlyOwner(e, target.Alias) },
		func(clone *plannode.Node, pushed *exprtree.Expr) {
			clone.VertexFilter = exprtree.And(clone.VertexFilter, pushed)
		})
}

func vertexFilterRule(name string, kind plannode.Kind) pushDownVertexFilterRule {
	return pushDownVertexFilterRule{name: name, kind: kind}
}

// pushDownVertexFilterRule is the shared shape of the single-step
// traversal operators: a Filter immediately above one of them, scoped to
// the step's own alias, folds into that step's VertexFilter.
type pushDownVertexFilterRule struct {
	name string
	kind plannode.Kind
}

func (r pushDownVertexFilterRule) String() string { return r.name }

func (r pushDownVertexFilterRule) Pattern() *pattern.Pattern {
	return singleChildPattern(r.kind)
}

func (r pushDownVertexFilterRule) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	target := m.Dependencies[0].GroupNode.Node()
	filter := m.GroupNode.Node()
	if !referencesOnlyOwner(filter.Condition, target.Alias) {
		return false, nil
	}
	return rule.CheckDataflowDeps(m, qc.Symtab), nil
}

func (r pushDownVertexFilterRule) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	target := m.Dependencies[0].GroupNode.Node()
	return pushIntoField(qc, m,
		func(e *exprtree.Expr) bool { return referencesOnlyOwner(e, target.Alias) },
		func(clone *plannode.Node, pushed *exprtree.Expr) {
			clone.VertexFilter = exprtree.And(clone.VertexFilter, pushed)
		})
}

// PushFilterDownTraverseRule folds an alias-scoped predicate into a
// Traverse step's VertexFilter.
var PushFilterDownTraverseRule = vertexFilterRule("PushFilterDownTraverse", plannode.KindTraverse)

// PushFilterDownAppendVerticesRule folds a predicate scoped to the
// vertex properties AppendVertices just appended into its VertexFilter.
var PushFilterDownAppendVerticesRule = vertexFilterRule("PushFilterDownAppendVertices", plannode.KindAppendVertices)

// PushFilterDownAllPathsRule folds an alias-scoped predicate into an
// AllPaths step's VertexFilter.
var PushFilterDownAllPathsRule = vertexFilterRule("PushFilterDownAllPaths", plannode.KindAllPaths)

// PushFilterDownExpandAllRule folds an alias-scoped predicate into an
// ExpandAll step's VertexFilter.
var PushFilterDownExpandAllRule = vertexFilterRule("PushFilterDownExpandAll", plannode.KindExpandAll)

// PushFilterDownGetNeighborsRule folds an alias-scoped predicate into a
// GetNeighbors step's VertexFilter.
var PushFilterDownGetNeighborsRule = vertexFilterRule("PushFilterDownGetNeighbors", plannode.KindGetNeighbors)
