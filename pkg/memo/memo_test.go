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

package memo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/graphoptimizer/pkg/operr"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
	"github.com/matrixorigin/graphoptimizer/pkg/symtab"
)

type fakeSink struct{ changed int }

func (f *fakeSink) MarkChanged() { f.changed++ }

// TestGroupAgreement grounds property P1: after inserting group nodes,
// every candidate's output var and column list must agree with the
// group's own.
func TestGroupAgreement(t *testing.T) {
	sink := &fakeSink{}
	g := NewGroup(sink, "v", []string{"c1"}, false)

	n1 := plannode.New(plannode.KindScanVertices, "v", []string{"c1"})
	n1.SetCost(1)
	require.NoError(t, g.Insert(NewGroupNode(n1, nil, nil)))

	n2 := plannode.New(plannode.KindTagIndexFullScan, "v", []string{"c1"})
	n2.SetCost(2)
	require.NoError(t, g.Insert(NewGroupNode(n2, nil, nil)))

	for _, gn := range g.GroupNodes() {
		require.Equal(t, g.OutputVar(), gn.Node().OutputVar())
		require.Equal(t, g.ColNames(), gn.Node().ColNames())
	}
}

func TestGroupAgreementViolationErrors(t *testing.T) {
	sink := &fakeSink{}
	g := NewGroup(sink, "v", []string{"c1"}, false)

	n1 := plannode.New(plannode.KindScanVertices, "v", []string{"c1"})
	require.NoError(t, g.Insert(NewGroupNode(n1, nil, nil)))

	mismatched := plannode.New(plannode.KindScanVertices, "other", []string{"c1"})
	err := g.Insert(NewGroupNode(mismatched, nil, nil))
	require.Error(t, err)
	require.True(t, operr.Is(err, operr.KindPlanError))
}

// TestArityAndDataFlow grounds P2 (arity) and P3 (data flow): a group
// node's dependency count matches its node's input count, and each
// input var matches the corresponding dependency group's output var.
func TestArityAndDataFlow(t *testing.T) {
	sink := &fakeSink{}
	childGroup := NewGroup(sink, "v", []string{"id"}, false)
	childNode := plannode.New(plannode.KindScanVertices, "v", []string{"id"})
	require.NoError(t, childGroup.Insert(NewGroupNode(childNode, nil, nil)))

	parentNode := plannode.New(plannode.KindFilter, "f", []string{"id"})
	parentNode.SetDep(0, childNode)
	parentGN := NewGroupNode(parentNode, []*Group{childGroup}, nil)

	require.Len(t, parentGN.Dependencies(), len(parentGN.Node().Dependencies()))
	for i, dep := range parentGN.Dependencies() {
		require.Equal(t, parentGN.Node().InputVar(i), dep.OutputVar())
	}
}

// TestReferrerCountCascade grounds P4: a non-root group always has at
// least one referrer while alive, and its candidates are released once
// the referrer count drops to zero.
func TestReferrerCountCascade(t *testing.T) {
	st := symtab.New()
	sink := &fakeSink{}

	childGroup := NewGroup(sink, "v", []string{"id"}, false)
	childNode := plannode.New(plannode.KindScanVertices, "v", []string{"id"})
	childGN := NewGroupNode(childNode, nil, nil)
	require.NoError(t, childGroup.Insert(childGN))

	parentNode := plannode.New(plannode.KindFilter, "f", []string{"id"})
	parentNode.SetDep(0, childNode)
	parentGN := NewGroupNode(parentNode, nil, nil)
	parentGN.SetDep(0, childGroup, st)

	require.Equal(t, 1, childGroup.ReferrerCount())
	require.Len(t, childGroup.GroupNodes(), 1)

	childGroup.RemoveReferrer(parentGN, st)
	require.Equal(t, 0, childGroup.ReferrerCount())
	require.Empty(t, childGroup.GroupNodes(), "non-root group erases all candidates once unreferenced")
}

func TestRootGroupSurvivesZeroReferrers(t *testing.T) {
	st := symtab.New()
	sink := &fakeSink{}

	root := NewGroup(sink, "v", []string{"id"}, true)
	rootNode := plannode.New(plannode.KindScanVertices, "v", []string{"id"})
	rootGN := NewGroupNode(rootNode, nil, nil)
	require.NoError(t, root.Insert(rootGN))

	phantom := NewGroupNode(plannode.New(plannode.KindFilter, "f", nil), nil, nil)
	root.AddReferrer(phantom)
	root.RemoveReferrer(phantom, st)

	require.Equal(t, 0, root.ReferrerCount())
	require.Len(t, root.GroupNodes(), 1, "root group must never be erased by the cascade")
}

func TestExploredBitmap(t *testing.T) {
	sink := &fakeSink{}
	g := NewGroup(sink, "v", nil, false)
	require.False(t, g.Explored(7))
	g.SetExplored(7)
	require.True(t, g.Explored(7))
	g.SetUnexplored(7)
	require.False(t, g.Explored(7))
}

func TestBestPlanPicksMinimumCost(t *testing.T) {
	sink := &fakeSink{}
	g := NewGroup(sink, "v", []string{"id"}, true)

	cheap := plannode.New(plannode.KindTagIndexFullScan, "v", []string{"id"})
	cheap.SetCost(1)
	expensive := plannode.New(plannode.KindScanVertices, "v", []string{"id"})
	expensive.SetCost(5)

	require.NoError(t, g.Insert(NewGroupNode(expensive, nil, nil)))
	require.NoError(t, g.Insert(NewGroupNode(cheap, nil, nil)))

	require.Equal(t, float64(1), g.BestCost())
	best := g.BestPlan()
	require.Equal(t, plannode.KindTagIndexFullScan, best.Kind())
}

func TestBestPlanSumsDependencyCost(t *testing.T) {
	sink := &fakeSink{}
	childGroup := NewGroup(sink, "v", []string{"id"}, false)
	childNode := plannode.New(plannode.KindScanVertices, "v", []string{"id"})
	childNode.SetCost(3)
	require.NoError(t, childGroup.Insert(NewGroupNode(childNode, nil, nil)))

	parentGroup := NewGroup(sink, "f", []string{"id"}, true)
	parentNode := plannode.New(plannode.KindFilter, "f", []string{"id"})
	parentNode.SetDep(0, childNode)
	parentNode.SetCost(2)
	require.NoError(t, parentGroup.Insert(NewGroupNode(parentNode, []*Group{childGroup}, nil)))

	require.Equal(t, float64(5), parentGroup.BestCost())
}
