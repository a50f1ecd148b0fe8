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

package rule

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/graphoptimizer/pkg/memo"
	"github.com/matrixorigin/graphoptimizer/pkg/pattern"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
	"github.com/matrixorigin/graphoptimizer/pkg/symtab"
)

type fakeSink struct{}

func (fakeSink) MarkChanged() {}

func buildFilterOverScan(st *symtab.SymbolTable) (*memo.GroupNode, *memo.Group) {
	scanGroup := memo.NewGroup(fakeSink{}, "v", []string{"id"}, false)
	scanNode := plannode.New(plannode.KindScanVertices, "v", []string{"id"})
	scanGN := memo.NewGroupNode(scanNode, nil, nil)
	_ = scanGroup.Insert(scanGN)
	scanNode.UpdateSymbols(st)

	filterGroup := memo.NewGroup(fakeSink{}, "f", []string{"id"}, true)
	filterNode := plannode.New(plannode.KindFilter, "f", []string{"id"})
	filterNode.SetDep(0, scanNode)
	filterGN := memo.NewGroupNode(filterNode, []*memo.Group{scanGroup}, nil)
	_ = filterGroup.Insert(filterGN)
	filterNode.UpdateSymbols(st)

	return filterGN, scanGroup
}

func TestCheckDataflowDepsAcceptsSingleReader(t *testing.T) {
	st := symtab.New()
	filterGN, _ := buildFilterOverScan(st)

	p := pattern.OfKind(plannode.KindFilter, pattern.OfKind(plannode.KindScanVertices))
	mr := p.Match(filterGN)
	require.NotNil(t, mr)
	require.True(t, CheckDataflowDeps(mr, st))
}

func TestCheckDataflowDepsRejectsMultiReader(t *testing.T) {
	st := symtab.New()
	filterGN, scanGroup := buildFilterOverScan(st)

	// A second, independent reader of the scan's output variable.
	other := plannode.New(plannode.KindProject, "p", []string{"id"})
	other.SetDep(0, scanGroup.GroupNodes()[0].Node())
	other.UpdateSymbols(st)

	p := pattern.OfKind(plannode.KindFilter, pattern.OfKind(plannode.KindScanVertices))
	mr := p.Match(filterGN)
	require.NotNil(t, mr)
	require.False(t, CheckDataflowDeps(mr, st))
}

func TestCheckBoundaryDataFlowOnlyChecksBoundary(t *testing.T) {
	st := symtab.New()
	filterGN, _ := buildFilterOverScan(st)

	// Pattern matches Filter but does not descend into ScanVertices, so
	// ScanVertices' group is the boundary.
	p := pattern.OfKind(plannode.KindFilter)
	mr := p.Match(filterGN)
	require.NotNil(t, mr)
	require.True(t, CheckBoundaryDataFlow(mr, st))
}
