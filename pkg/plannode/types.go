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

package plannode

import "github.com/matrixorigin/graphoptimizer/pkg/exprtree"

// ProjectItem is one output column of a Project node.
type ProjectItem struct {
	Alias string
	Expr  *exprtree.Expr
}

// SortFactor is one (column, direction) pair used by Sort/TopN and by an
// index scan's OrderBy annotation.
type SortFactor struct {
	Col string
	Asc bool
}

// Direction is a Traverse/GetNeighbors edge direction.
type Direction int

const (
	DirOutbound Direction = iota
	DirInbound
	DirBoth
)

var directionNames = map[Direction]string{
	DirOutbound: "Outbound",
	DirInbound:  "Inbound",
	DirBoth:     "Both",
}

func (d Direction) String() string {
	if n, ok := directionNames[d]; ok {
		return n
	}
	return "Direction(?)"
}

// ParseDirection resolves a Direction's String() form back to its value.
func ParseDirection(name string) (Direction, bool) {
	for d, n := range directionNames {
		if n == name {
			return d, true
		}
	}
	return 0, false
}

// EdgeTypeSpec names one edge type a Traverse/GetNeighbors/ScanEdges step
// considers, with its sign: a negative Type (Reversed=true) means the
// reverse direction of that edge type, mirroring the "(t, -t)" pairing
// checked by GetEdgesTransform.
type EdgeTypeSpec struct {
	Type     int32
	Reversed bool
}

// HintKind distinguishes an equality-only column hint (PREFIX) from one
// with a range bound (RANGE).
type HintKind int

const (
	HintPrefix HintKind = iota
	HintRange
)

// ColumnHint is a storage-layer index seek hint for a single column.
type ColumnHint struct {
	Kind         HintKind
	Column       string
	BeginValue   interface{}
	EndValue     interface{}
	IncludeBegin bool
	IncludeEnd   bool
}

// IndexQueryContext is one (index, column hints, residual filter) choice
// for an index scan. A KindIndexScan node carries one entry per
// union-all branch; every other concrete index-scan kind carries exactly
// one.
type IndexQueryContext struct {
	IndexID        int64
	ColumnHints    []ColumnHint
	ResidualFilter *exprtree.Expr
}
