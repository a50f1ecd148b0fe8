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

package idxselect

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/graphoptimizer/pkg/catalog"
	"github.com/matrixorigin/graphoptimizer/pkg/exprtree"
	"github.com/matrixorigin/graphoptimizer/pkg/operr"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
)

func TestNormalizeCompareOrientsPropertyLeft(t *testing.T) {
	e := exprtree.Compare(exprtree.OpLT, exprtree.Constant(3), exprtree.PropertyRef("t", "t", "p1"))
	prop, value, op, ok := NormalizeCompare(e)
	require.True(t, ok)
	require.Equal(t, "p1", prop.Prop)
	require.Equal(t, 3, value)
	require.Equal(t, exprtree.OpGT, op)
}

func TestNormalizeCompareRejectsNonPropertyConstant(t *testing.T) {
	e := exprtree.Compare(exprtree.OpEQ, exprtree.PropertyRef("t", "t", "p1"), exprtree.PropertyRef("t", "t", "p2"))
	_, _, _, ok := NormalizeCompare(e)
	require.False(t, ok)
}

func TestExtractFilterItemsFromConjunction(t *testing.T) {
	cond := exprtree.And(
		exprtree.Compare(exprtree.OpEQ, exprtree.PropertyRef("t", "t", "p1"), exprtree.Constant(1)),
		exprtree.Compare(exprtree.OpEQ, exprtree.PropertyRef("t", "t", "p2"), exprtree.Constant(2)),
	)
	items := ExtractFilterItems(cond)
	require.Len(t, items, 2)
	require.Equal(t, "p1", items[0].Column)
	require.Equal(t, "p2", items[1].Column)
}

func TestBoundValueContradictoryEqualities(t *testing.T) {
	col := catalog.ColumnDef{Name: "p1", Type: catalog.ColInt}
	var bound ColumnBound
	require.NoError(t, BoundValue(exprtree.OpEQ, 1, col, &bound))
	err := BoundValue(exprtree.OpEQ, 2, col, &bound)
	require.Error(t, err)
	require.True(t, operr.Is(err, operr.KindSemanticError))
}

func TestBoundValueRangeOnBoolRejected(t *testing.T) {
	col := catalog.ColumnDef{Name: "flag", Type: catalog.ColBool}
	var bound ColumnBound
	err := BoundValue(exprtree.OpLT, true, col, &bound)
	require.Error(t, err)
	require.True(t, operr.Is(err, operr.KindSemanticError))
}

func TestAppendColHintPrefixVsRange(t *testing.T) {
	col := catalog.ColumnDef{Name: "p1", Type: catalog.ColInt}
	eqItems := []FilterItem{{Column: "p1", Op: exprtree.OpEQ, Value: 1}}
	hints, err := AppendColHint(nil, eqItems, col)
	require.NoError(t, err)
	require.Len(t, hints, 1)
	require.Equal(t, plannode.HintPrefix, hints[0].Kind)

	rangeItems := []FilterItem{{Column: "p1", Op: exprtree.OpGT, Value: 1}}
	hints, err = AppendColHint(nil, rangeItems, col)
	require.NoError(t, err)
	require.Equal(t, plannode.HintRange, hints[0].Kind)
}

func TestEraseInvalidIndexItemsFiltersBySchema(t *testing.T) {
	items := []catalog.IndexItem{
		{IndexID: 1, SchemaID: 10},
		{IndexID: 2, SchemaID: 20},
	}
	kept := EraseInvalidIndexItems(10, items)
	require.Len(t, kept, 1)
	require.EqualValues(t, 1, kept[0].IndexID)
}

func TestDedupIndexCandidatesPreservesFirstOccurrence(t *testing.T) {
	items := []catalog.IndexItem{
		{IndexID: 1, SchemaID: 10},
		{IndexID: 1, SchemaID: 10},
		{IndexID: 2, SchemaID: 10},
	}
	deduped := DedupIndexCandidates(items)
	require.Len(t, deduped, 2)
}

func TestFindOptimalIndexPrefersMoreEqualityColumns(t *testing.T) {
	p1 := catalog.ColumnDef{Name: "p1", Type: catalog.ColInt}
	p2 := catalog.ColumnDef{Name: "p2", Type: catalog.ColInt}
	idxP1 := catalog.IndexItem{IndexID: 1, Fields: []catalog.ColumnDef{p1}}
	idxP1P2 := catalog.IndexItem{IndexID: 2, Fields: []catalog.ColumnDef{p1, p2}}

	cond := exprtree.And(
		exprtree.Compare(exprtree.OpEQ, exprtree.PropertyRef("t", "t", "p1"), exprtree.Constant(1)),
		exprtree.Compare(exprtree.OpEQ, exprtree.PropertyRef("t", "t", "p2"), exprtree.Constant(2)),
	)
	choice, err := FindOptimalIndex(cond, []catalog.IndexItem{idxP1, idxP1P2})
	require.NoError(t, err)
	require.EqualValues(t, 2, choice.Index.IndexID)
	require.True(t, choice.IsPrefixScan)
	require.Len(t, choice.Hints, 2)
}

func TestFindOptimalIndexNoneCoversAnyColumn(t *testing.T) {
	unrelated := catalog.IndexItem{IndexID: 1, Fields: []catalog.ColumnDef{{Name: "other", Type: catalog.ColInt}}}
	cond := exprtree.Compare(exprtree.OpEQ, exprtree.PropertyRef("t", "t", "p1"), exprtree.Constant(1))
	_, err := FindOptimalIndex(cond, []catalog.IndexItem{unrelated})
	require.Error(t, err)
	require.True(t, operr.Is(err, operr.KindIndexNotFound))
}

func TestCreateIndexQueryCtxLeavesResidual(t *testing.T) {
	p1 := catalog.ColumnDef{Name: "p1", Type: catalog.ColInt}
	idx := catalog.IndexItem{IndexID: 1, Fields: []catalog.ColumnDef{p1}}
	cond := exprtree.And(
		exprtree.Compare(exprtree.OpEQ, exprtree.PropertyRef("t", "t", "p1"), exprtree.Constant(1)),
		exprtree.Compare(exprtree.OpEQ, exprtree.PropertyRef("t", "t", "p3"), exprtree.Constant(9)),
	)
	qctx, isPrefix, err := CreateIndexQueryCtx(cond, []catalog.IndexItem{idx})
	require.NoError(t, err)
	require.True(t, isPrefix)
	require.EqualValues(t, 1, qctx.IndexID)
	require.NotNil(t, qctx.ResidualFilter)
}
