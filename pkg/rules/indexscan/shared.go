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

// Package indexscan implements the rules that turn a vertex/edge scan
// guarded by a storage filter into a concrete index scan: picking the
// best-covering index, exploding a multi-value equality into a union of
// single-value scans, narrowing a geography predicate to its s2-cell
// covering, and folding a redundant Dedup into the scan itself.
package indexscan

import (
	"github.com/matrixorigin/graphoptimizer/pkg/catalog"
	"github.com/matrixorigin/graphoptimizer/pkg/exprtree"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
)

func scanToIndexKind(tagScan bool, prefix bool) plannode.Kind {
	switch {
	case tagScan && prefix:
		return plannode.KindTagIndexPrefixScan
	case tagScan && !prefix:
		return plannode.KindTagIndexRangeScan
	case !tagScan && prefix:
		return plannode.KindEdgeIndexPrefixScan
	default:
		return plannode.KindEdgeIndexRangeScan
	}
}

// splitInLists pulls every "prop IN (v1, v2, ...)" conjunct with more than
// one element out of cond, leaving it as a residual for the caller to
// explode separately; the union-all rules handle those, the plain
// index-scan rule does not.
func splitInLists(cond *exprtree.Expr) (multiIn []*exprtree.Expr, rest *exprtree.Expr) {
	var operands []*exprtree.Expr
	switch {
	case cond == nil:
		return nil, nil
	case cond.Kind == exprtree.KindLogical && cond.CmpOp == exprtree.OpAnd:
		operands = cond.Operands
	default:
		operands = []*exprtree.Expr{cond}
	}
	var keep []*exprtree.Expr
	for _, o := range operands {
		if o.Kind == exprtree.KindInList && len(o.Operands) > 1 {
			multiIn = append(multiIn, o)
		} else {
			keep = append(keep, o)
		}
	}
	if len(keep) > 0 {
		rest = exprtree.And(keep...)
	}
	return multiIn, rest
}

// geoIndexesFor returns the subset of indexes that carry s2-covering
// parameters.
func geoIndexesFor(indexes []catalog.IndexItem) []catalog.IndexItem {
	var out []catalog.IndexItem
	for _, it := range indexes {
		if it.Geo != nil {
			out = append(out, it)
		}
	}
	return out
}
