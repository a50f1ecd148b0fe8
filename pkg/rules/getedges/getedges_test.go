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

package getedges

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/graphoptimizer/pkg/exprtree"
	"github.com/matrixorigin/graphoptimizer/pkg/memo"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
	"github.com/matrixorigin/graphoptimizer/pkg/qctx"
)

type fakeSink struct{}

func (fakeSink) MarkChanged() {}

func TestServableByScanEdgesRejectsBidirectionalPairing(t *testing.T) {
	require.True(t, servableByScanEdges([]plannode.EdgeTypeSpec{{Type: 1}}))
	require.False(t, servableByScanEdges([]plannode.EdgeTypeSpec{{Type: 1}, {Type: 1, Reversed: true}}))
	require.True(t, servableByScanEdges([]plannode.EdgeTypeSpec{{Type: 1}, {Type: 2, Reversed: true}}))
}

// buildScanTraverse wires ScanVertices <- Traverse the way a single-step,
// src-only lookup would produce, before any downstream operator is
// stacked above it.
func buildScanTraverse(qc *qctx.QueryContext) (*memo.Group, *plannode.Node, *plannode.Node) {
	scanV := plannode.New(plannode.KindScanVertices, "v", []string{"id"})
	scanV.SpaceID = 1
	scanGroup := memo.NewGroup(fakeSink{}, "v", []string{"id"}, false)
	scanGN := memo.NewGroupNode(scanV, nil, nil)
	_ = scanGroup.Insert(scanGN)

	traverse := plannode.New(plannode.KindTraverse, "dst", []string{"dst"})
	traverse.Steps = 1
	traverse.SrcOnly = true
	traverse.EdgeTypes = []plannode.EdgeTypeSpec{{Type: 10}}
	traverse.Direction = plannode.DirOutbound
	traverse.SetDep(0, scanV)
	traverseGroup := memo.NewGroup(fakeSink{}, "dst", []string{"dst"}, false)
	traverseGN := memo.NewGroupNode(traverse, []*memo.Group{scanGroup}, nil)
	_ = traverseGroup.Insert(traverseGN)

	scanV.UpdateSymbols(qc.Symtab)
	traverse.UpdateSymbols(qc.Symtab)

	return traverseGroup, scanV, traverse
}

// buildScanTraverseAppend wires ScanVertices <- Traverse <- AppendVertices
// the way a single-step, src-only friend-of-friend lookup would produce,
// returning the AppendVertices group node ready to match against.
func buildScanTraverseAppend(qc *qctx.QueryContext) (*memo.Group, *memo.GroupNode, *plannode.Node, *plannode.Node, *plannode.Node) {
	traverseGroup, scanV, traverse := buildScanTraverse(qc)

	av := plannode.New(plannode.KindAppendVertices, "av", []string{"dst"})
	av.SrcOnly = true
	av.SetDep(0, traverse)
	avGN := memo.NewGroupNode(av, []*memo.Group{traverseGroup}, nil)
	avGroup := memo.NewGroup(fakeSink{}, "av", []string{"dst"}, false)
	_ = avGroup.Insert(avGN)

	av.UpdateSymbols(qc.Symtab)

	return avGroup, avGN, scanV, traverse, av
}

func TestGetEdgesTransformRuleReplacesTraverseWithScanEdges(t *testing.T) {
	qc := qctx.New(nil, nil, 0)
	_, avGN, scanV, traverse, av := buildScanTraverseAppend(qc)

	r := GetEdgesTransformRule{}
	mr := r.Pattern().Match(avGN)
	require.NotNil(t, mr)
	ok, err := r.Match(qc, mr)
	require.NoError(t, err)
	require.True(t, ok)

	res, err := r.Transform(qc, mr)
	require.NoError(t, err)
	require.True(t, res.EraseAll)
	require.Len(t, res.NewGroupNodes, 1)

	newAV := res.NewGroupNodes[0].Node()
	require.Equal(t, "av", newAV.OutputVar())
	require.Equal(t, plannode.KindAppendVertices, newAV.Kind())

	projGroup := res.NewGroupNodes[0].Dependencies()[0]
	require.Len(t, projGroup.GroupNodes(), 1)
	proj := projGroup.GroupNodes()[0].Node()
	require.Equal(t, plannode.KindProject, proj.Kind())
	require.Equal(t, av.InputVar(0), proj.OutputVar())
	require.Len(t, proj.Projections, 1)
	require.Equal(t, scanV.OutputVar(), proj.Projections[0].Alias)
	require.Equal(t, "_dst", proj.Projections[0].Expr.Col)

	scanEGroup := projGroup.GroupNodes()[0].Dependencies()[0]
	require.Len(t, scanEGroup.GroupNodes(), 1)
	scanE := scanEGroup.GroupNodes()[0].Node()
	require.Equal(t, plannode.KindScanEdges, scanE.Kind())
	require.Equal(t, traverse.EdgeTypes, scanE.EdgeTypes)
	require.Equal(t, traverse.Direction, scanE.Direction)
	require.Equal(t, proj.InputVar(0), scanE.OutputVar())
}

func TestGetEdgesTransformRuleDeclinesMultiStepTraverse(t *testing.T) {
	qc := qctx.New(nil, nil, 0)
	_, avGN, _, traverse, _ := buildScanTraverseAppend(qc)
	traverse.Steps = 2

	r := GetEdgesTransformRule{}
	mr := r.Pattern().Match(avGN)
	require.NotNil(t, mr)
	ok, err := r.Match(qc, mr)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGetEdgesTransformRuleDeclinesBidirectionalEdgeTypes(t *testing.T) {
	qc := qctx.New(nil, nil, 0)
	_, avGN, _, traverse, _ := buildScanTraverseAppend(qc)
	traverse.EdgeTypes = []plannode.EdgeTypeSpec{{Type: 10}, {Type: 10, Reversed: true}}

	r := GetEdgesTransformRule{}
	mr := r.Pattern().Match(avGN)
	require.NotNil(t, mr)
	ok, err := r.Match(qc, mr)
	require.NoError(t, err)
	require.False(t, ok)
}

// buildLimitAndProjectAbove stacks a Limit then a pass-through outer
// Project above childNode/childGroup, returning the outer Project's own
// group node ready to match against.
func buildLimitAndProjectAbove(qc *qctx.QueryContext, childGroup *memo.Group, childNode *plannode.Node) *memo.GroupNode {
	limit := plannode.New(plannode.KindLimit, "l", childNode.ColNames())
	limit.LimitCount = 20
	limit.LimitOffset = 5
	limit.SetDep(0, childNode)
	limitGN := memo.NewGroupNode(limit, []*memo.Group{childGroup}, nil)
	limitGroup := memo.NewGroup(fakeSink{}, "l", childNode.ColNames(), false)
	_ = limitGroup.Insert(limitGN)

	outerProj := plannode.New(plannode.KindProject, "p", childNode.ColNames())
	outerProj.Projections = []plannode.ProjectItem{
		{Alias: childNode.ColNames()[0], Expr: exprtree.VarProp("l", childNode.ColNames()[0])},
	}
	outerProj.SetDep(0, limit)
	outerProjGN := memo.NewGroupNode(outerProj, []*memo.Group{limitGroup}, nil)

	limit.UpdateSymbols(qc.Symtab)
	outerProj.UpdateSymbols(qc.Symtab)

	return outerProjGN
}

// TestGetEdgesTransformLimitRuleFoldsLimitIntoScanEdges grounds scenario
// S6's no-AppendVertices shape: Project <- Limit <- Traverse <-
// ScanVertices, with no vertex-append join-back above the traversal.
// The Limit's row bound becomes ScanEdges' own row cap, and the outer
// Project is rebuilt structurally unchanged above the rebuilt Limit.
func TestGetEdgesTransformLimitRuleFoldsLimitIntoScanEdges(t *testing.T) {
	qc := qctx.New(nil, nil, 0)
	traverseGroup, scanV, traverse := buildScanTraverse(qc)
	outerProjGN := buildLimitAndProjectAbove(qc, traverseGroup, traverse)

	r := GetEdgesTransformLimitRule{}
	mr := r.Pattern().Match(outerProjGN)
	require.NotNil(t, mr)
	ok, err := r.Match(qc, mr)
	require.NoError(t, err)
	require.True(t, ok)

	res, err := r.Transform(qc, mr)
	require.NoError(t, err)
	require.True(t, res.EraseAll)

	newOuterProj := res.NewGroupNodes[0].Node()
	require.Equal(t, "p", newOuterProj.OutputVar())
	require.Equal(t, plannode.KindProject, newOuterProj.Kind())

	newLimitGroup := res.NewGroupNodes[0].Dependencies()[0]
	newLimitGN := newLimitGroup.GroupNodes()[0]
	require.Equal(t, "l", newLimitGN.Node().OutputVar())
	require.Equal(t, plannode.KindLimit, newLimitGN.Node().Kind())

	projGroup := newLimitGN.Dependencies()[0]
	projGN := projGroup.GroupNodes()[0]
	require.Equal(t, plannode.KindProject, projGN.Node().Kind())
	require.Equal(t, traverse.OutputVar(), projGN.Node().OutputVar())

	scanEGroup := projGN.Dependencies()[0]
	scanE := scanEGroup.GroupNodes()[0].Node()
	require.Equal(t, plannode.KindScanEdges, scanE.Kind())
	require.Equal(t, scanV.SpaceID, scanE.SpaceID)
	require.EqualValues(t, 25, scanE.RowLimit, "offset + count bounds the underlying scan")
}

func TestGetEdgesTransformLimitRuleDeclinesMultiStepTraverse(t *testing.T) {
	qc := qctx.New(nil, nil, 0)
	traverseGroup, _, traverse := buildScanTraverse(qc)
	traverse.Steps = 2
	outerProjGN := buildLimitAndProjectAbove(qc, traverseGroup, traverse)

	r := GetEdgesTransformLimitRule{}
	mr := r.Pattern().Match(outerProjGN)
	require.NotNil(t, mr)
	ok, err := r.Match(qc, mr)
	require.NoError(t, err)
	require.False(t, ok)
}

// TestGetEdgesTransformAppendVerticesLimitRuleFoldsLimitIntoScanEdges
// grounds S6's AppendVertices-carrying shape: Project <- Limit <-
// AppendVertices <- Traverse <- ScanVertices. The AppendVertices step
// is preserved (just rewired onto the rebuilt ScanEdges/Project pair),
// unlike the no-AppendVertices rule above.
func TestGetEdgesTransformAppendVerticesLimitRuleFoldsLimitIntoScanEdges(t *testing.T) {
	qc := qctx.New(nil, nil, 0)
	avGroup, _, scanV, traverse, av := buildScanTraverseAppend(qc)
	outerProjGN := buildLimitAndProjectAbove(qc, avGroup, av)

	r := GetEdgesTransformAppendVerticesLimitRule{}
	mr := r.Pattern().Match(outerProjGN)
	require.NotNil(t, mr)
	ok, err := r.Match(qc, mr)
	require.NoError(t, err)
	require.True(t, ok)

	res, err := r.Transform(qc, mr)
	require.NoError(t, err)
	require.True(t, res.EraseAll)

	newOuterProj := res.NewGroupNodes[0].Node()
	require.Equal(t, "p", newOuterProj.OutputVar())

	newLimitGroup := res.NewGroupNodes[0].Dependencies()[0]
	newLimitGN := newLimitGroup.GroupNodes()[0]
	require.Equal(t, "l", newLimitGN.Node().OutputVar())

	newAVGroup := newLimitGN.Dependencies()[0]
	newAVGN := newAVGroup.GroupNodes()[0]
	require.Equal(t, "av", newAVGN.Node().OutputVar())
	require.Equal(t, plannode.KindAppendVertices, newAVGN.Node().Kind())

	projGroup := newAVGN.Dependencies()[0]
	projGN := projGroup.GroupNodes()[0]
	require.Equal(t, plannode.KindProject, projGN.Node().Kind())
	require.Equal(t, av.InputVar(0), projGN.Node().OutputVar())

	scanEGroup := projGN.Dependencies()[0]
	scanE := scanEGroup.GroupNodes()[0].Node()
	require.Equal(t, plannode.KindScanEdges, scanE.Kind())
	require.Equal(t, traverse.EdgeTypes, scanE.EdgeTypes)
	require.Equal(t, scanV.SpaceID, scanE.SpaceID)
	require.EqualValues(t, 25, scanE.RowLimit, "offset + count bounds the underlying scan")
}

func TestGetEdgesTransformAppendVerticesLimitRuleDeclinesBidirectionalEdgeTypes(t *testing.T) {
	qc := qctx.New(nil, nil, 0)
	avGroup, _, _, traverse, av := buildScanTraverseAppend(qc)
	traverse.EdgeTypes = []plannode.EdgeTypeSpec{{Type: 10}, {Type: 10, Reversed: true}}
	outerProjGN := buildLimitAndProjectAbove(qc, avGroup, av)

	r := GetEdgesTransformAppendVerticesLimitRule{}
	mr := r.Pattern().Match(outerProjGN)
	require.NotNil(t, mr)
	ok, err := r.Match(qc, mr)
	require.NoError(t, err)
	require.False(t, ok)
}
