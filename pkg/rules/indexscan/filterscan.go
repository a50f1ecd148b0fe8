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
	"github.com/matrixorigin/graphoptimizer/pkg/idxselect"
	"github.com/matrixorigin/graphoptimizer/pkg/memo"
	"github.com/matrixorigin/graphoptimizer/pkg/pattern"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
	"github.com/matrixorigin/graphoptimizer/pkg/qctx"
	"github.com/matrixorigin/graphoptimizer/pkg/rule"
)

// optimizeIndexScanByFilter is the shared shape of
// OptimizeTagIndexScanByFilter and OptimizeEdgeIndexScanByFilter: absorb a
// Filter's relational-comparison conjuncts above a *IndexFullScan into the
// narrowest prefix or range scan an available index can serve.
type optimizeIndexScanByFilter struct {
	name      string
	fullKind  plannode.Kind
	tagScan   bool
}

func (r optimizeIndexScanByFilter) String() string { return r.name }

func (r optimizeIndexScanByFilter) Pattern() *pattern.Pattern {
	return pattern.OfKind(plannode.KindFilter, pattern.OfKind(r.fullKind))
}

func (r optimizeIndexScanByFilter) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	return rule.CheckDataflowDeps(m, qc.Symtab), nil
}

func (r optimizeIndexScanByFilter) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	filter := m.GroupNode.Node()
	scanMR := m.Dependencies[0]
	scan := scanMR.GroupNode.Node()

	indexes, err := indexesFor(qc, r.tagScan, scan.SpaceID, scan.TagOrEdgeName)
	if err != nil {
		return nil, err
	}
	ictx, isPrefix, err := idxselect.CreateIndexQueryCtx(filter.Condition, indexes)
	if err != nil {
		return nil, err
	}

	// Node has no kind setter (Kind is fixed at New), so the narrowed scan
	// is minted fresh rather than cloned from the full-scan node.
	kind := scanToIndexKind(r.tagScan, isPrefix)
	narrowed := plannode.New(kind, filter.OutputVar(), filter.ColNames())
	narrowed.SpaceID = scan.SpaceID
	narrowed.Alias = scan.Alias
	narrowed.TagOrEdgeName = scan.TagOrEdgeName
	narrowed.QueryContexts = []plannode.IndexQueryContext{*ictx}
	gn := memo.NewGroupNode(narrowed, scanMR.GroupNode.Dependencies(), scanMR.GroupNode.Bodies())
	return rule.NewTransformResult([]*memo.GroupNode{gn}, false, true), nil
}

// OptimizeTagIndexScanByFilterRule narrows a TagIndexFullScan guarded by a
// tag-property filter into a TagIndexPrefixScan or TagIndexRangeScan.
var OptimizeTagIndexScanByFilterRule = optimizeIndexScanByFilter{
	name: "OptimizeTagIndexScanByFilter", fullKind: plannode.KindTagIndexFullScan, tagScan: true,
}

// OptimizeEdgeIndexScanByFilterRule narrows an EdgeIndexFullScan guarded
// by an edge-property filter into an EdgeIndexPrefixScan or
// EdgeIndexRangeScan.
var OptimizeEdgeIndexScanByFilterRule = optimizeIndexScanByFilter{
	name: "OptimizeEdgeIndexScanByFilter", fullKind: plannode.KindEdgeIndexFullScan, tagScan: false,
}
