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

// Package idxselect implements the index-selection helpers the
// index-scan rule pipeline shares: picking the best-covering index for a
// filter, turning per-column constraints into storage-layer column
// hints, and dropping indexes that don't belong to the schema being
// scanned.
package idxselect

import (
	"github.com/samber/lo"

	"github.com/matrixorigin/graphoptimizer/pkg/catalog"
	"github.com/matrixorigin/graphoptimizer/pkg/exprtree"
	"github.com/matrixorigin/graphoptimizer/pkg/exprutil"
	"github.com/matrixorigin/graphoptimizer/pkg/operr"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
)

// FilterItem is one column's extracted constraint from a filter: a
// single relational comparison between a property reference and a
// constant.
type FilterItem struct {
	Column string
	Op     exprtree.Op
	Value  interface{}
}

// ColumnBound is the half-open range [Begin, End) a column's constraints
// narrow down to, updated monotonically as each constraint is folded in.
type ColumnBound struct {
	Begin, End             interface{}
	IncludeBegin, IncludeEnd bool
	HasBegin, HasEnd        bool
}

// NormalizeCompare recognizes e as "property <op> constant" in either
// operand order, returning the property side, the constant value, and
// the operator oriented so the property is always on the left (e.g. "3 <
// t.p" becomes t.p, 3, OpGT).
func NormalizeCompare(e *exprtree.Expr) (prop *exprtree.Expr, value interface{}, op exprtree.Op, ok bool) {
	if e == nil || e.Kind != exprtree.KindCompare {
		return nil, nil, exprtree.OpUnknown, false
	}
	if e.Left.Kind == exprtree.KindPropertyRef && e.Right.Kind == exprtree.KindConstant {
		return e.Left, e.Right.ConstVal, e.CmpOp, true
	}
	if e.Right.Kind == exprtree.KindPropertyRef && e.Left.Kind == exprtree.KindConstant {
		return e.Right, e.Left.ConstVal, reverseOp(e.CmpOp), true
	}
	return nil, nil, exprtree.OpUnknown, false
}

func reverseOp(op exprtree.Op) exprtree.Op {
	switch op {
	case exprtree.OpLT:
		return exprtree.OpGT
	case exprtree.OpLE:
		return exprtree.OpGE
	case exprtree.OpGT:
		return exprtree.OpLT
	case exprtree.OpGE:
		return exprtree.OpLE
	default:
		return op
	}
}

// ExtractFilterItems decomposes cond's top-level conjuncts into
// FilterItems, dropping any conjunct that isn't a simple property/
// constant comparison (those are left for the residual filter).
func ExtractFilterItems(cond *exprtree.Expr) []FilterItem {
	var operands []*exprtree.Expr
	switch {
	case cond == nil:
		return nil
	case cond.Kind == exprtree.KindLogical && cond.CmpOp == exprtree.OpAnd:
		operands = cond.Operands
	default:
		operands = []*exprtree.Expr{cond}
	}
	var items []FilterItem
	for _, o := range operands {
		if prop, val, op, ok := NormalizeCompare(o); ok {
			items = append(items, FilterItem{Column: prop.Prop, Op: op, Value: val})
		}
	}
	return items
}

// BoundValue folds one (op, value) constraint for column col into bound,
// in place, failing if op requires an ordering col's type doesn't have
// (e.g. a range comparison on BOOL) or if an equality contradicts a prior
// equality already folded in. A range comparison is not checked against
// a prior equality; it overwrites that side of the bound.
func BoundValue(op exprtree.Op, value interface{}, col catalog.ColumnDef, bound *ColumnBound) error {
	switch op {
	case exprtree.OpEQ:
		if bound.HasBegin && bound.HasEnd && bound.Begin == bound.End && bound.Begin != value {
			return operr.NewSemanticError("idxselect: contradictory equality constraints on column %q", col.Name)
		}
		bound.Begin, bound.End = value, value
		bound.IncludeBegin, bound.IncludeEnd = true, true
		bound.HasBegin, bound.HasEnd = true, true
	case exprtree.OpLT, exprtree.OpLE:
		if col.Type == catalog.ColBool {
			return operr.NewSemanticError("idxselect: range comparison on BOOL column %q", col.Name)
		}
		bound.End = value
		bound.HasEnd = true
		bound.IncludeEnd = op == exprtree.OpLE
	case exprtree.OpGT, exprtree.OpGE:
		if col.Type == catalog.ColBool {
			return operr.NewSemanticError("idxselect: range comparison on BOOL column %q", col.Name)
		}
		bound.Begin = value
		bound.HasBegin = true
		bound.IncludeBegin = op == exprtree.OpGE
	default:
		return operr.NewSemanticError("idxselect: unsupported comparator for an index bound on column %q", col.Name)
	}
	return nil
}

// AppendColHint folds every item in items whose Column is col into a
// single ColumnHint and appends it to hints: PREFIX when every item is
// an equality, RANGE otherwise.
func AppendColHint(hints []plannode.ColumnHint, items []FilterItem, col catalog.ColumnDef) ([]plannode.ColumnHint, error) {
	var bound ColumnBound
	allEQ := true
	found := false
	for _, it := range items {
		if it.Column != col.Name {
			continue
		}
		found = true
		if it.Op != exprtree.OpEQ {
			allEQ = false
		}
		if err := BoundValue(it.Op, it.Value, col, &bound); err != nil {
			return hints, err
		}
	}
	if !found {
		return hints, nil
	}
	kind := plannode.HintPrefix
	if !allEQ {
		kind = plannode.HintRange
	}
	return append(hints, plannode.ColumnHint{
		Kind:         kind,
		Column:       col.Name,
		BeginValue:   bound.Begin,
		EndValue:     bound.End,
		IncludeBegin: bound.IncludeBegin,
		IncludeEnd:   bound.IncludeEnd,
	}), nil
}

// EraseInvalidIndexItems returns the subset of items whose SchemaID
// matches schemaID, preserving order.
func EraseInvalidIndexItems(schemaID int64, items []catalog.IndexItem) []catalog.IndexItem {
	return lo.Filter(items, func(it catalog.IndexItem, _ int) bool {
		return it.SchemaID == schemaID
	})
}

// DedupIndexCandidates drops indexes already seen by IndexID, preserving
// the order of first occurrence — the index-scan rules hand this the
// tag/edge index list as returned from the catalog, which may carry
// duplicate registrations for the same physical index.
func DedupIndexCandidates(items []catalog.IndexItem) []catalog.IndexItem {
	return lo.UniqBy(items, func(it catalog.IndexItem) int64 { return it.IndexID })
}

// Choice is the outcome of FindOptimalIndex: the winning index, whether
// every covered column was equality-bound (a prefix scan) or at least
// one was range-bound, and the column hints that absorb the filter.
type Choice struct {
	Index        catalog.IndexItem
	IsPrefixScan bool
	Hints        []plannode.ColumnHint
}

// FindOptimalIndex ranks candidate indexes by (1) the number of
// equality-bound prefix columns they cover, then (2) the number of
// range-bound columns, and returns the winner's hints. An index's
// column list is consumed left to right; the first column with no
// matching filter item (or following a range-bound column) stops the
// prefix.
func FindOptimalIndex(cond *exprtree.Expr, indexes []catalog.IndexItem) (*Choice, error) {
	items := ExtractFilterItems(cond)
	byCol := make(map[string][]FilterItem, len(items))
	for _, it := range items {
		byCol[it.Column] = append(byCol[it.Column], it)
	}

	var best *Choice
	var bestEq, bestRange int
	for _, idx := range indexes {
		var hints []plannode.ColumnHint
		eqCount, rangeCount := 0, 0
		stopped := false
		for _, col := range idx.Fields {
			if stopped {
				break
			}
			colItems, ok := byCol[col.Name]
			if !ok {
				break
			}
			allEQ := true
			for _, it := range colItems {
				if it.Op != exprtree.OpEQ {
					allEQ = false
				}
			}
			next, err := AppendColHint(hints, colItems, col)
			if err != nil {
				return nil, err
			}
			hints = next
			if allEQ {
				eqCount++
			} else {
				rangeCount++
				stopped = true
			}
		}
		if len(hints) == 0 {
			continue
		}
		if best == nil || eqCount > bestEq || (eqCount == bestEq && rangeCount > bestRange) {
			best = &Choice{Index: idx, IsPrefixScan: rangeCount == 0, Hints: hints}
			bestEq, bestRange = eqCount, rangeCount
		}
	}
	if best == nil {
		return nil, operr.NewIndexNotFound("idxselect: no registered index covers any filtered column")
	}
	return best, nil
}

// CreateIndexQueryCtx picks the best index for filter among indexes and
// builds the resulting IndexQueryContext, with any conjunct the winning
// index didn't absorb left as ResidualFilter.
func CreateIndexQueryCtx(filter *exprtree.Expr, indexes []catalog.IndexItem) (*plannode.IndexQueryContext, bool, error) {
	choice, err := FindOptimalIndex(filter, indexes)
	if err != nil {
		return nil, false, err
	}
	covered := make(map[string]bool, len(choice.Hints))
	for _, h := range choice.Hints {
		covered[h.Column] = true
	}
	_, residual := exprutil.SplitFilter(filter, func(e *exprtree.Expr) bool {
		prop, _, _, ok := NormalizeCompare(e)
		return ok && covered[prop.Prop]
	})
	return &plannode.IndexQueryContext{
		IndexID:        choice.Index.IndexID,
		ColumnHints:    choice.Hints,
		ResidualFilter: residual,
	}, choice.IsPrefixScan, nil
}
