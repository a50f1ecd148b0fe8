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
	"github.com/matrixorigin/graphoptimizer/pkg/exprtree"
	"github.com/matrixorigin/graphoptimizer/pkg/exprutil"
	"github.com/matrixorigin/graphoptimizer/pkg/idxselect"
	"github.com/matrixorigin/graphoptimizer/pkg/memo"
	"github.com/matrixorigin/graphoptimizer/pkg/pattern"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
	"github.com/matrixorigin/graphoptimizer/pkg/qctx"
	"github.com/matrixorigin/graphoptimizer/pkg/rule"
)

// unionAllIndexScan is the shared shape of UnionAllTagIndexScan and
// UnionAllEdgeIndexScan: a filter that is a logical OR, or an AND with a
// multi-value IN among its operands, is exploded into one IndexQueryContext
// per OR branch and merged into a single generic IndexScan executed as a
// union.
type unionAllIndexScan struct {
	name     string
	fullKind plannode.Kind
	tagScan  bool
}

func (r unionAllIndexScan) String() string { return r.name }

func (r unionAllIndexScan) Pattern() *pattern.Pattern {
	return pattern.OfKind(plannode.KindFilter, pattern.OfKind(r.fullKind))
}

func (r unionAllIndexScan) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	filter := m.GroupNode.Node()
	if !isUnionShape(filter.Condition) {
		return false, nil
	}
	return rule.CheckDataflowDeps(m, qc.Symtab), nil
}

// isUnionShape reports whether cond, after exploding any multi-value IN
// list, would distribute into more than one OR branch.
func isUnionShape(cond *exprtree.Expr) bool {
	if cond == nil {
		return false
	}
	if cond.Kind == exprtree.KindLogical && cond.CmpOp == exprtree.OpOr {
		return true
	}
	multiIn, _ := splitInLists(cond)
	return len(multiIn) > 0
}

func (r unionAllIndexScan) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	filter := m.GroupNode.Node()
	scanMR := m.Dependencies[0]
	scan := scanMR.GroupNode.Node()

	exploded := exprutil.RewriteInExpr(qc.Arena, filter.Condition)
	distributed := exprutil.RewriteLogicalAndToLogicalOr(qc.Arena, exploded)

	var branches []*exprtree.Expr
	if distributed.Kind == exprtree.KindLogical && distributed.CmpOp == exprtree.OpOr {
		branches = distributed.Operands
	} else {
		branches = []*exprtree.Expr{distributed}
	}
	if len(branches) < 2 {
		return rule.NoTransform()
	}

	indexes, err := indexesFor(qc, r.tagScan, scan.SpaceID, scan.TagOrEdgeName)
	if err != nil {
		return nil, err
	}

	ctxs := make([]plannode.IndexQueryContext, 0, len(branches))
	for _, b := range branches {
		ictx, _, err := idxselect.CreateIndexQueryCtx(b, indexes)
		if err != nil {
			return nil, err
		}
		ctxs = append(ctxs, *ictx)
	}

	merged := plannode.New(plannode.KindIndexScan, filter.OutputVar(), filter.ColNames())
	merged.SpaceID = scan.SpaceID
	merged.Alias = scan.Alias
	merged.TagOrEdgeName = scan.TagOrEdgeName
	merged.QueryContexts = ctxs
	gn := memo.NewGroupNode(merged, scanMR.GroupNode.Dependencies(), scanMR.GroupNode.Bodies())
	return rule.NewTransformResult([]*memo.GroupNode{gn}, false, true), nil
}

// UnionAllTagIndexScanRule explodes an OR (or equality/IN mixed AND)
// filter above a TagIndexFullScan into a union of tag index scans.
var UnionAllTagIndexScanRule = unionAllIndexScan{
	name: "UnionAllTagIndexScan", fullKind: plannode.KindTagIndexFullScan, tagScan: true,
}

// UnionAllEdgeIndexScanRule explodes an OR (or equality/IN mixed AND)
// filter above an EdgeIndexFullScan into a union of edge index scans.
var UnionAllEdgeIndexScanRule = unionAllIndexScan{
	name: "UnionAllEdgeIndexScan", fullKind: plannode.KindEdgeIndexFullScan, tagScan: false,
}
