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
	"github.com/matrixorigin/graphoptimizer/pkg/catalog"
	"github.com/matrixorigin/graphoptimizer/pkg/idxselect"
	"github.com/matrixorigin/graphoptimizer/pkg/memo"
	"github.com/matrixorigin/graphoptimizer/pkg/pattern"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
	"github.com/matrixorigin/graphoptimizer/pkg/qctx"
	"github.com/matrixorigin/graphoptimizer/pkg/rule"
)

// indexesFor returns the candidate indexes for a tag or edge scan. A tag
// scan's schema id is resolved by name (ToTagID) and used to drop indexes
// belonging to other tags; the catalog exposes no name-based resolver for
// edge schemas (only toEdgeName(edgeType)), so edge scans simply see every
// edge index registered in the space.
func indexesFor(qc *qctx.QueryContext, tagScan bool, spaceID int64, name string) ([]catalog.IndexItem, error) {
	if tagScan {
		schemaID, err := qc.Catalog.ToTagID(spaceID, name)
		if err != nil {
			return nil, err
		}
		all, err := qc.Catalog.GetTagIndexesFromCache(spaceID)
		if err != nil {
			return nil, err
		}
		return idxselect.DedupIndexCandidates(idxselect.EraseInvalidIndexItems(schemaID, all)), nil
	}
	all, err := qc.Catalog.GetEdgeIndexesFromCache(spaceID)
	if err != nil {
		return nil, err
	}
	return idxselect.DedupIndexCandidates(all), nil
}

// IndexScanRule populates a bare generic IndexScan leaf's single
// QueryContext entry: it consumes the scan's own StorageFilter (if any)
// against the space's registered indexes and attaches the chosen index id
// and column hints.
type IndexScanRule struct{}

func (IndexScanRule) String() string { return "IndexScan" }

func (IndexScanRule) Pattern() *pattern.Pattern {
	return pattern.OfKind(plannode.KindIndexScan)
}

func (IndexScanRule) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	n := m.GroupNode.Node()
	for _, ctx := range n.QueryContexts {
		if ctx.IndexID != 0 {
			return false, nil
		}
	}
	return true, nil
}

func (IndexScanRule) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	n := m.GroupNode.Node()
	// A generic IndexScan leaf carries no tag/edge discriminant of its
	// own; resolving against the tag namespace first and falling back to
	// the edge one mirrors how toTagID itself is the only name-based
	// schema resolver the catalog exposes.
	indexes, err := indexesFor(qc, true, n.SpaceID, n.TagOrEdgeName)
	if err != nil {
		indexes, err = indexesFor(qc, false, n.SpaceID, n.TagOrEdgeName)
		if err != nil {
			return nil, err
		}
	}
	ictx, _, err := idxselect.CreateIndexQueryCtx(n.StorageFilter, indexes)
	if err != nil {
		return nil, err
	}
	clone := n.Clone()
	clone.SetOutputVar(n.OutputVar())
	clone.QueryContexts = []plannode.IndexQueryContext{*ictx}
	clone.StorageFilter = ictx.ResidualFilter
	newGN := memo.NewGroupNode(clone, m.GroupNode.Dependencies(), m.GroupNode.Bodies())
	return rule.InsertAlternative(m.GroupNode.Group(), newGN)
}

// IndexFullScanBaseRule is the last-resort finalizer for a TagIndexFullScan
// or EdgeIndexFullScan leaf that no filter-driven rule narrowed: it picks
// the registered index with the fewest fields (the cheapest full scan to
// execute) and attaches its id with no column hints.
type IndexFullScanBaseRule struct{}

func (IndexFullScanBaseRule) String() string { return "IndexFullScanBase" }

func (IndexFullScanBaseRule) Pattern() *pattern.Pattern {
	return pattern.OfKinds([]plannode.Kind{plannode.KindTagIndexFullScan, plannode.KindEdgeIndexFullScan})
}

func (IndexFullScanBaseRule) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	n := m.GroupNode.Node()
	return len(n.QueryContexts) == 0, nil
}

func (IndexFullScanBaseRule) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	n := m.GroupNode.Node()
	tagScan := n.Kind() == plannode.KindTagIndexFullScan
	indexes, err := indexesFor(qc, tagScan, n.SpaceID, n.TagOrEdgeName)
	if err != nil {
		return nil, err
	}
	if len(indexes) == 0 {
		return rule.NoTransform()
	}
	cheapest := indexes[0]
	for _, it := range indexes[1:] {
		if len(it.Fields) < len(cheapest.Fields) {
			cheapest = it
		}
	}
	clone := n.Clone()
	clone.SetOutputVar(n.OutputVar())
	clone.QueryContexts = []plannode.IndexQueryContext{{IndexID: cheapest.IndexID, ResidualFilter: n.StorageFilter}}
	newGN := memo.NewGroupNode(clone, m.GroupNode.Dependencies(), m.GroupNode.Bodies())
	return rule.InsertAlternative(m.GroupNode.Group(), newGN)
}
