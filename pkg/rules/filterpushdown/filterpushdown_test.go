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

package filterpushdown

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

func scanGroupNode(outputVar string) (*memo.Group, *memo.GroupNode) {
	g := memo.NewGroup(fakeSink{}, outputVar, []string{"id"}, false)
	n := plannode.New(plannode.KindScanVertices, outputVar, []string{"id"})
	gn := memo.NewGroupNode(n, nil, nil)
	_ = g.Insert(gn)
	return g, gn
}

// TestPushFilterDownHashInnerJoinSplitsBothSides grounds scenario S3's
// sibling behavior for joins: a two-sided predicate is split so each
// side-confined conjunct folds into its own side's scan.
func TestPushFilterDownHashInnerJoinSplitsBothSides(t *testing.T) {
	leftGroup, leftGN := scanGroupNode("l")
	rightGroup, rightGN := scanGroupNode("r")

	join := plannode.New(plannode.KindHashInnerJoin, "j", []string{"id"})
	join.SetDep(0, leftGN.Node())
	join.SetDep(1, rightGN.Node())
	joinGroup := memo.NewGroup(fakeSink{}, "j", []string{"id"}, false)
	joinGN := memo.NewGroupNode(join, []*memo.Group{leftGroup, rightGroup}, nil)
	require.NoError(t, joinGroup.Insert(joinGN))

	filter := plannode.New(plannode.KindFilter, "f", []string{"id"})
	filter.Condition = exprtree.And(
		exprtree.Compare(exprtree.OpEQ, exprtree.ColumnRef(0), exprtree.Constant(1)),
		exprtree.Compare(exprtree.OpEQ, exprtree.ColumnRef(1), exprtree.Constant(2)),
	)
	filter.SetDep(0, join)
	filterGN := memo.NewGroupNode(filter, []*memo.Group{joinGroup}, nil)

	qc := qctx.New(nil, nil, 0)
	join.UpdateSymbols(qc.Symtab)
	filter.UpdateSymbols(qc.Symtab)

	r := PushFilterDownHashInnerJoinRule
	mr := r.Pattern().Match(filterGN)
	require.NotNil(t, mr)
	ok, err := r.Match(qc, mr)
	require.NoError(t, err)
	require.True(t, ok)

	res, err := r.Transform(qc, mr)
	require.NoError(t, err)
	require.True(t, res.EraseAll)
	require.Len(t, res.NewGroupNodes, 1)

	newJoin := res.NewGroupNodes[0]
	require.Equal(t, "f", newJoin.Node().OutputVar())
	require.Equal(t, []*memo.Group{leftGroup, rightGroup}, newJoin.Dependencies())

	require.Len(t, leftGroup.GroupNodes(), 1, "the unfiltered left candidate was erased")
	require.NotNil(t, leftGroup.GroupNodes()[0].Node().StorageFilter)

	require.Len(t, rightGroup.GroupNodes(), 1, "the unfiltered right candidate was erased")
	rightFilter := rightGroup.GroupNodes()[0].Node().StorageFilter
	require.NotNil(t, rightFilter)
	require.Equal(t, exprtree.KindColumnRef, rightFilter.Left.Kind)
	require.Equal(t, 0, rightFilter.Left.ColIndex, "the right-side predicate is shifted back to zero-based")
}

// TestPushFilterDownHashLeftJoinOnlyPushesLeftSide grounds the
// asymmetric-pushdown invariant for outer joins: a left-confined
// predicate folds into the left scan, and the right side is left alone
// because allowRight is false for left joins.
func TestPushFilterDownHashLeftJoinOnlyPushesLeftSide(t *testing.T) {
	leftGroup, leftGN := scanGroupNode("l")
	rightGroup, rightGN := scanGroupNode("r")

	join := plannode.New(plannode.KindHashLeftJoin, "j", []string{"id"})
	join.SetDep(0, leftGN.Node())
	join.SetDep(1, rightGN.Node())
	joinGroup := memo.NewGroup(fakeSink{}, "j", []string{"id"}, false)
	joinGN := memo.NewGroupNode(join, []*memo.Group{leftGroup, rightGroup}, nil)
	require.NoError(t, joinGroup.Insert(joinGN))

	filter := plannode.New(plannode.KindFilter, "f", []string{"id"})
	filter.Condition = exprtree.Compare(exprtree.OpEQ, exprtree.ColumnRef(0), exprtree.Constant(1))
	filter.SetDep(0, join)
	filterGN := memo.NewGroupNode(filter, []*memo.Group{joinGroup}, nil)

	qc := qctx.New(nil, nil, 0)
	join.UpdateSymbols(qc.Symtab)
	filter.UpdateSymbols(qc.Symtab)

	r := PushFilterDownHashLeftJoinRule
	mr := r.Pattern().Match(filterGN)
	require.NotNil(t, mr)
	ok, err := r.Match(qc, mr)
	require.NoError(t, err)
	require.True(t, ok)

	res, err := r.Transform(qc, mr)
	require.NoError(t, err)
	require.True(t, res.EraseAll)

	newJoin := res.NewGroupNodes[0]
	require.Equal(t, []*memo.Group{leftGroup, rightGroup}, newJoin.Dependencies())
	require.Len(t, leftGroup.GroupNodes(), 1)
	require.NotNil(t, leftGroup.GroupNodes()[0].Node().StorageFilter)

	require.Len(t, rightGroup.GroupNodes(), 1, "the original right candidate is untouched")
	require.Same(t, rightGN, rightGroup.GroupNodes()[0])
	require.Nil(t, rightGroup.GroupNodes()[0].Node().StorageFilter)
}

// TestPushFilterDownHashLeftJoinDeclinesRightConfinedPredicate confirms
// a predicate scoped entirely to the right (null-extended) side of a
// left join is never pushed: doing so would change which left rows the
// outer join keeps.
func TestPushFilterDownHashLeftJoinDeclinesRightConfinedPredicate(t *testing.T) {
	leftGroup, leftGN := scanGroupNode("l")
	rightGroup, rightGN := scanGroupNode("r")

	join := plannode.New(plannode.KindHashLeftJoin, "j", []string{"id"})
	join.SetDep(0, leftGN.Node())
	join.SetDep(1, rightGN.Node())
	joinGroup := memo.NewGroup(fakeSink{}, "j", []string{"id"}, false)
	joinGN := memo.NewGroupNode(join, []*memo.Group{leftGroup, rightGroup}, nil)
	require.NoError(t, joinGroup.Insert(joinGN))

	filter := plannode.New(plannode.KindFilter, "f", []string{"id"})
	filter.Condition = exprtree.Compare(exprtree.OpEQ, exprtree.ColumnRef(1), exprtree.Constant(2))
	filter.SetDep(0, join)
	filterGN := memo.NewGroupNode(filter, []*memo.Group{joinGroup}, nil)

	qc := qctx.New(nil, nil, 0)
	join.UpdateSymbols(qc.Symtab)
	filter.UpdateSymbols(qc.Symtab)

	r := PushFilterDownHashLeftJoinRule
	mr := r.Pattern().Match(filterGN)
	require.NotNil(t, mr)
	ok, err := r.Match(qc, mr)
	require.NoError(t, err)
	require.True(t, ok, "Match only checks data flow; Transform is the one that declines")

	res, err := r.Transform(qc, mr)
	require.NoError(t, err)
	require.Nil(t, res, "NoTransform sentinel")
}

// TestPushFilterDownProjectRule grounds scenario S3: the part of a
// Filter's condition that reads only pass-through Project columns moves
// below the Project, rewritten to read the Project's own child.
func TestPushFilterDownProjectRule(t *testing.T) {
	grandGroup, grandGN := scanGroupNode("v")

	proj := plannode.New(plannode.KindProject, "p", []string{"id", "age"})
	proj.Projections = []plannode.ProjectItem{
		{Alias: "id", Expr: exprtree.VarProp("v", "id")},
		{Alias: "age", Expr: exprtree.VarProp("v", "age")},
	}
	proj.SetDep(0, grandGN.Node())
	projGroup := memo.NewGroup(fakeSink{}, "p", []string{"id", "age"}, false)
	projGN := memo.NewGroupNode(proj, []*memo.Group{grandGroup}, nil)
	require.NoError(t, projGroup.Insert(projGN))

	filter := plannode.New(plannode.KindFilter, "f", []string{"id", "age"})
	filter.Condition = exprtree.Compare(exprtree.OpGT, exprtree.VarProp("p", "age"), exprtree.Constant(18))
	filter.SetDep(0, proj)
	filterGN := memo.NewGroupNode(filter, []*memo.Group{projGroup}, nil)

	qc := qctx.New(nil, nil, 0)
	proj.UpdateSymbols(qc.Symtab)
	filter.UpdateSymbols(qc.Symtab)

	r := PushFilterDownProjectRule{}
	mr := r.Pattern().Match(filterGN)
	require.NotNil(t, mr)
	ok, err := r.Match(qc, mr)
	require.NoError(t, err)
	require.True(t, ok)

	res, err := r.Transform(qc, mr)
	require.NoError(t, err)
	require.True(t, res.EraseAll)
	require.Len(t, res.NewGroupNodes, 1)

	newProj := res.NewGroupNodes[0].Node()
	require.Equal(t, "f", newProj.OutputVar(), "no filter residual: the Project is promoted under f")
	require.Equal(t, plannode.KindProject, newProj.Kind())
	require.Len(t, newProj.Projections, 2)

	pushedGroup := res.NewGroupNodes[0].Dependencies()[0]
	require.Len(t, pushedGroup.GroupNodes(), 1)
	pushedFilter := pushedGroup.GroupNodes()[0].Node()
	require.Equal(t, plannode.KindFilter, pushedFilter.Kind())
	require.Equal(t, "v", pushedFilter.Condition.Left.Var, "rewritten to read the grandchild's own var")
	require.Equal(t, "age", pushedFilter.Condition.Left.Col)
}

// TestPushFilterDownProjectRuleKeepsResidualAboveComputedColumn confirms
// a predicate over a computed (non-passthrough) Project column cannot
// be pushed and survives as a residual Filter above a rebuilt Project.
func TestPushFilterDownProjectRuleKeepsResidualAboveComputedColumn(t *testing.T) {
	grandGroup, grandGN := scanGroupNode("v")

	proj := plannode.New(plannode.KindProject, "p", []string{"id", "doubled"})
	proj.Projections = []plannode.ProjectItem{
		{Alias: "id", Expr: exprtree.VarProp("v", "id")},
		{Alias: "doubled", Expr: exprtree.FuncCall("mul2", exprtree.VarProp("v", "age"))},
	}
	proj.SetDep(0, grandGN.Node())
	projGroup := memo.NewGroup(fakeSink{}, "p", []string{"id", "doubled"}, false)
	projGN := memo.NewGroupNode(proj, []*memo.Group{grandGroup}, nil)
	require.NoError(t, projGroup.Insert(projGN))

	filter := plannode.New(plannode.KindFilter, "f", []string{"id", "doubled"})
	filter.Condition = exprtree.And(
		exprtree.Compare(exprtree.OpGT, exprtree.VarProp("p", "id"), exprtree.Constant(0)),
		exprtree.Compare(exprtree.OpGT, exprtree.VarProp("p", "doubled"), exprtree.Constant(10)),
	)
	filter.SetDep(0, proj)
	filterGN := memo.NewGroupNode(filter, []*memo.Group{projGroup}, nil)

	qc := qctx.New(nil, nil, 0)
	proj.UpdateSymbols(qc.Symtab)
	filter.UpdateSymbols(qc.Symtab)

	r := PushFilterDownProjectRule{}
	mr := r.Pattern().Match(filterGN)
	ok, err := r.Match(qc, mr)
	require.NoError(t, err)
	require.True(t, ok)

	res, err := r.Transform(qc, mr)
	require.NoError(t, err)
	require.True(t, res.EraseAll)

	newFilter := res.NewGroupNodes[0].Node()
	require.Equal(t, "f", newFilter.OutputVar())
	require.Equal(t, plannode.KindFilter, newFilter.Kind())
	require.Equal(t, exprtree.OpGT, newFilter.Condition.CmpOp)
	require.Equal(t, "doubled", newFilter.Condition.Left.Col, "the residual keeps the un-pushable computed-column predicate")
}

// TestPushFilterDownScanVerticesRule confirms an alias-scoped predicate
// folds directly into ScanVertices' StorageFilter.
func TestPushFilterDownScanVerticesRule(t *testing.T) {
	leafGroup, leafGN := scanGroupNode("leaf")

	scanGroup := memo.NewGroup(fakeSink{}, "v", []string{"id"}, false)
	scan := plannode.New(plannode.KindScanVertices, "v", []string{"id"})
	scan.Alias = "v"
	scan.SetDep(0, leafGN.Node())
	scanGN := memo.NewGroupNode(scan, []*memo.Group{leafGroup}, nil)
	require.NoError(t, scanGroup.Insert(scanGN))

	filter := plannode.New(plannode.KindFilter, "f", []string{"id"})
	filter.Condition = exprtree.Compare(exprtree.OpEQ, exprtree.PropertyRef("v", "person", "age"), exprtree.Constant(30))
	filter.SetDep(0, scan)
	filterGN := memo.NewGroupNode(filter, []*memo.Group{scanGroup}, nil)

	qc := qctx.New(nil, nil, 0)
	scan.UpdateSymbols(qc.Symtab)
	filter.UpdateSymbols(qc.Symtab)

	r := PushFilterDownScanVerticesRule{}
	mr := r.Pattern().Match(filterGN)
	require.NotNil(t, mr)
	ok, err := r.Match(qc, mr)
	require.NoError(t, err)
	require.True(t, ok)

	res, err := r.Transform(qc, mr)
	require.NoError(t, err)
	require.True(t, res.EraseAll)
	promoted := res.NewGroupNodes[0].Node()
	require.Equal(t, "f", promoted.OutputVar())
	require.NotNil(t, promoted.StorageFilter)
	require.Equal(t, exprtree.KindPropertyRef, promoted.StorageFilter.Left.Kind)
}

// TestPushDownVertexFilterRuleRequiresAliasScopedCondition confirms
// pushDownVertexFilterRule.Match rejects a Filter whose condition
// reaches beyond the target step's own alias.
func TestPushDownVertexFilterRuleRequiresAliasScopedCondition(t *testing.T) {
	leafGroup, leafGN := scanGroupNode("leaf")

	stepGroup := memo.NewGroup(fakeSink{}, "t", []string{"id"}, false)
	step := plannode.New(plannode.KindTraverse, "t", []string{"id"})
	step.Alias = "t"
	step.SetDep(0, leafGN.Node())
	stepGN := memo.NewGroupNode(step, []*memo.Group{leafGroup}, nil)
	require.NoError(t, stepGroup.Insert(stepGN))

	filter := plannode.New(plannode.KindFilter, "f", []string{"id"})
	filter.Condition = exprtree.Compare(exprtree.OpEQ, exprtree.PropertyRef("other", "tag", "p"), exprtree.Constant(1))
	filter.SetDep(0, step)
	filterGN := memo.NewGroupNode(filter, []*memo.Group{stepGroup}, nil)

	qc := qctx.New(nil, nil, 0)
	step.UpdateSymbols(qc.Symtab)
	filter.UpdateSymbols(qc.Symtab)

	r := PushFilterDownTraverseRule
	mr := r.Pattern().Match(filterGN)
	require.NotNil(t, mr)
	ok, err := r.Match(qc, mr)
	require.NoError(t, err)
	require.False(t, ok)
}

// TestPushDownVertexFilterRuleAcceptsAliasScopedCondition is the
// accepting counterpart: a predicate scoped to the Traverse step's own
// alias folds into its VertexFilter.
func TestPushDownVertexFilterRuleAcceptsAliasScopedCondition(t *testing.T) {
	leafGroup, leafGN := scanGroupNode("leaf")

	stepGroup := memo.NewGroup(fakeSink{}, "t", []string{"id"}, false)
	step := plannode.New(plannode.KindTraverse, "t", []string{"id"})
	step.Alias = "t"
	step.SetDep(0, leafGN.Node())
	stepGN := memo.NewGroupNode(step, []*memo.Group{leafGroup}, nil)
	require.NoError(t, stepGroup.Insert(stepGN))

	filter := plannode.New(plannode.KindFilter, "f", []string{"id"})
	filter.Condition = exprtree.Compare(exprtree.OpEQ, exprtree.PropertyRef("t", "tag", "p"), exprtree.Constant(1))
	filter.SetDep(0, step)
	filterGN := memo.NewGroupNode(filter, []*memo.Group{stepGroup}, nil)

	qc := qctx.New(nil, nil, 0)
	step.UpdateSymbols(qc.Symtab)
	filter.UpdateSymbols(qc.Symtab)

	r := PushFilterDownTraverseRule
	mr := r.Pattern().Match(filterGN)
	ok, err := r.Match(qc, mr)
	require.NoError(t, err)
	require.True(t, ok)

	res, err := r.Transform(qc, mr)
	require.NoError(t, err)
	require.True(t, res.EraseAll)
	promoted := res.NewGroupNodes[0].Node()
	require.NotNil(t, promoted.VertexFilter)
}

// TestPushFilterThroughAppendVerticesRule confirms a predicate that
// never touches AppendVertices' own alias moves past it into the
// upstream step's StorageFilter.
func TestPushFilterThroughAppendVerticesRule(t *testing.T) {
	grandGroup, grandGN := scanGroupNode("e")

	av := plannode.New(plannode.KindAppendVertices, "av", []string{"id"})
	av.Alias = "dst"
	av.SetDep(0, grandGN.Node())
	avGroup := memo.NewGroup(fakeSink{}, "av", []string{"id"}, false)
	avGN := memo.NewGroupNode(av, []*memo.Group{grandGroup}, nil)
	require.NoError(t, avGroup.Insert(avGN))

	filter := plannode.New(plannode.KindFilter, "f", []string{"id"})
	filter.Condition = exprtree.Compare(exprtree.OpEQ, exprtree.PropertyRef("e", "edge", "kind"), exprtree.Constant(1))
	filter.SetDep(0, av)
	filterGN := memo.NewGroupNode(filter, []*memo.Group{avGroup}, nil)

	qc := qctx.New(nil, nil, 0)
	av.UpdateSymbols(qc.Symtab)
	filter.UpdateSymbols(qc.Symtab)

	r := PushFilterThroughAppendVerticesRule{}
	mr := r.Pattern().Match(filterGN)
	require.NotNil(t, mr)
	ok, err := r.Match(qc, mr)
	require.NoError(t, err)
	require.True(t, ok)

	res, err := r.Transform(qc, mr)
	require.NoError(t, err)
	require.True(t, res.EraseAll)
	promoted := res.NewGroupNodes[0]
	require.Equal(t, "f", promoted.Node().OutputVar())
	require.Equal(t, plannode.KindAppendVertices, promoted.Node().Kind())

	require.Len(t, grandGroup.GroupNodes(), 1, "the original unfiltered scan candidate was erased")
	pushedScan := grandGroup.GroupNodes()[0].Node()
	require.NotNil(t, pushedScan.StorageFilter)
}

// TestPushFilterThroughAppendVerticesRuleKeepsAliasScopedResidual
// confirms a predicate that does reference AppendVertices' own alias is
// kept above it as a residual Filter rather than pushed through.
func TestPushFilterThroughAppendVerticesRuleKeepsAliasScopedResidual(t *testing.T) {
	grandGroup, grandGN := scanGroupNode("e")

	av := plannode.New(plannode.KindAppendVertices, "av", []string{"id"})
	av.Alias = "dst"
	av.SetDep(0, grandGN.Node())
	avGroup := memo.NewGroup(fakeSink{}, "av", []string{"id"}, false)
	avGN := memo.NewGroupNode(av, []*memo.Group{grandGroup}, nil)
	require.NoError(t, avGroup.Insert(avGN))

	filter := plannode.New(plannode.KindFilter, "f", []string{"id"})
	filter.Condition = exprtree.And(
		exprtree.Compare(exprtree.OpEQ, exprtree.PropertyRef("e", "edge", "kind"), exprtree.Constant(1)),
		exprtree.Compare(exprtree.OpEQ, exprtree.PropertyRef("dst", "person", "age"), exprtree.Constant(30)),
	)
	filter.SetDep(0, av)
	filterGN := memo.NewGroupNode(filter, []*memo.Group{avGroup}, nil)

	qc := qctx.New(nil, nil, 0)
	av.UpdateSymbols(qc.Symtab)
	filter.UpdateSymbols(qc.Symtab)

	r := PushFilterThroughAppendVerticesRule{}
	mr := r.Pattern().Match(filterGN)
	ok, err := r.Match(qc, mr)
	require.NoError(t, err)
	require.True(t, ok)

	res, err := r.Transform(qc, mr)
	require.NoError(t, err)
	require.True(t, res.EraseAll)

	residualFilter := res.NewGroupNodes[0].Node()
	require.Equal(t, "f", residualFilter.OutputVar())
	require.Equal(t, plannode.KindFilter, residualFilter.Kind())
	require.Equal(t, "dst", residualFilter.Condition.Left.Owner)
}
