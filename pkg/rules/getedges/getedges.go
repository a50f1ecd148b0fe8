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

// Package getedges implements the rules that recognize a
// scan-then-traverse subtree whose only purpose is to enumerate edges,
// and replace it with a direct edge scan.
package getedges

import (
	"github.com/matrixorigin/graphoptimizer/pkg/exprtree"
	"github.com/matrixorigin/graphoptimizer/pkg/memo"
	"github.com/matrixorigin/graphoptimizer/pkg/pattern"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
	"github.com/matrixorigin/graphoptimizer/pkg/qctx"
	"github.com/matrixorigin/graphoptimizer/pkg/rule"
)

// servableByScanEdges reports whether a Traverse's edge types can be
// produced by a single ScanEdges step: ScanEdges yields each stored edge
// once in its native direction, so a traverse that asks for both a type
// and its reverse pairing — (t, -t) — needs true bidirectional expansion
// a plain scan cannot replicate.
func servableByScanEdges(types []plannode.EdgeTypeSpec) bool {
	seen := make(map[int32]bool, len(types))
	reversed := make(map[int32]bool, len(types))
	for _, t := range types {
		if t.Reversed {
			reversed[t.Type] = true
		} else {
			seen[t.Type] = true
		}
	}
	for t := range seen {
		if reversed[t] {
			return false
		}
	}
	return true
}

// eligibleTraverse reports whether traverse is the single-step,
// src-only shape GetEdges can replace with a direct edge scan.
func eligibleTraverse(traverse *plannode.Node) bool {
	return traverse.Steps == 1 && traverse.SrcOnly && servableByScanEdges(traverse.EdgeTypes)
}

func buildScanEdgesAndProject(traverse, scanV *plannode.Node, outVar string, colNames []string) (*plannode.Node, *plannode.Node) {
	edgeVar := scanV.OutputVar() + "_se"
	scanE := plannode.New(plannode.KindScanEdges, edgeVar, []string{"_src", "_dst"})
	scanE.SpaceID = scanV.SpaceID
	scanE.EdgeTypes = traverse.EdgeTypes
	scanE.Direction = traverse.Direction
	scanE.StorageFilter = traverse.StorageFilter
	scanE.RowLimit = traverse.RowLimit

	proj := plannode.New(plannode.KindProject, outVar, colNames)
	proj.Projections = []plannode.ProjectItem{
		{Alias: scanV.OutputVar(), Expr: exprtree.VarProp(edgeVar, "_dst")},
	}
	proj.SetInputVar(0, edgeVar)
	return scanE, proj
}

// GetEdgesTransformRule rewrites AppendVertices ← Traverse(1-step,
// src-only) ← ScanVertices into AppendVertices ← Project ← ScanEdges when
// the scan+traverse's only purpose was to enumerate the destination
// vertex ids an edge scan could produce directly.
type GetEdgesTransformRule struct{}

func (GetEdgesTransformRule) String() string { return "GetEdgesTransform" }

func (GetEdgesTransformRule) Pattern() *pattern.Pattern {
	return pattern.OfKind(plannode.KindAppendVertices,
		pattern.OfKind(plannode.KindTraverse, pattern.OfKind(plannode.KindScanVertices)))
}

func (GetEdgesTransformRule) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	traverse := m.Dependencies[0].GroupNode.Node()
	if !eligibleTraverse(traverse) {
		return false, nil
	}
	return rule.CheckDataflowDeps(m, qc.Symtab), nil
}

func (GetEdgesTransformRule) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	av := m.GroupNode.Node()
	traverseMR := m.Dependencies[0]
	traverse := traverseMR.GroupNode.Node()
	scanV := traverseMR.Dependencies[0].GroupNode.Node()

	projVar := av.InputVar(0)
	scanE, proj := buildScanEdgesAndProject(traverse, scanV, projVar, []string{scanV.OutputVar()})
	seGroup := rule.NewGroup(scanE.OutputVar(), scanE.ColNames())
	seGN := memo.NewGroupNode(scanE, nil, nil)
	if err := seGroup.Insert(seGN); err != nil {
		return nil, err
	}
	proj.SetInputVar(0, scanE.OutputVar())

	projGroup := rule.NewGroup(projVar, proj.ColNames())
	projGN := memo.NewGroupNode(proj, []*memo.Group{seGroup}, nil)
	if err := projGroup.Insert(projGN); err != nil {
		return nil, err
	}

	clone := av.Clone()
	clone.SetOutputVar(av.OutputVar())
	gn := memo.NewGroupNode(clone, []*memo.Group{projGroup}, nil)
	return rule.NewTransformResult([]*memo.GroupNode{gn}, false, true), nil
}

// GetEdgesTransformLimitRule rewrites Project ← Limit ← Traverse(1-step,
// src-only) ← ScanVertices — the shape a caller that reads dst vertex ids
// straight off the traversal, with no vertex-append join-back, produces —
// into Project ← Limit ← Project ← ScanEdges, folding the limit's offset
// plus count into ScanEdges' own row cap. The outer Project and the Limit
// are rebuilt unchanged: the inner Project takes over the traverse's
// output variable and exposes ScanEdges' "_dst" column under the
// ScanVertices output-variable name, so the Limit still reads the same
// variable.
type GetEdgesTransformLimitRule struct{}

func (GetEdgesTransformLimitRule) String() string { return "GetEdgesTransformLimit" }

func (GetEdgesTransformLimitRule) Pattern() *pattern.Pattern {
	return pattern.OfKind(plannode.KindProject,
		pattern.OfKind(plannode.KindLimit,
			pattern.OfKind(plannode.KindTraverse, pattern.OfKind(plannode.KindScanVertices))))
}

func (GetEdgesTransformLimitRule) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	limitMR := m.Dependencies[0]
	traverse := limitMR.Dependencies[0].GroupNode.Node()
	if !eligibleTraverse(traverse) {
		return false, nil
	}
	return rule.CheckDataflowDeps(m, qc.Symtab), nil
}

func (GetEdgesTransformLimitRule) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	outerProj := m.GroupNode.Node()
	limitMR := m.Dependencies[0]
	limit := limitMR.GroupNode.Node()
	traverseMR := limitMR.Dependencies[0]
	traverse := traverseMR.GroupNode.Node()
	scanV := traverseMR.Dependencies[0].GroupNode.Node()

	scanE, proj := buildScanEdgesAndProject(traverse, scanV, limit.InputVar(0), []string{scanV.OutputVar()})
	scanE.RowLimit = limit.LimitOffset + limit.LimitCount
	seGroup := rule.NewGroup(scanE.OutputVar(), scanE.ColNames())
	seGN := memo.NewGroupNode(scanE, nil, nil)
	if err := seGroup.Insert(seGN); err != nil {
		return nil, err
	}
	proj.SetInputVar(0, scanE.OutputVar())

	projGroup := rule.NewGroup(proj.OutputVar(), proj.ColNames())
	projGN := memo.NewGroupNode(proj, []*memo.Group{seGroup}, nil)
	if err := projGroup.Insert(projGN); err != nil {
		return nil, err
	}

	newLimit := limit.Clone()
	newLimit.SetOutputVar(limit.OutputVar())
	limitGN := memo.NewGroupNode(newLimit, []*memo.Group{projGroup}, nil)
	limitGroup := rule.NewGroup(limit.OutputVar(), limit.ColNames())
	if err := limitGroup.Insert(limitGN); err != nil {
		return nil, err
	}

	newOuterProj := outerProj.Clone()
	newOuterProj.SetOutputVar(outerProj.OutputVar())
	gn := memo.NewGroupNode(newOuterProj, []*memo.Group{limitGroup}, nil)
	return rule.NewTransformResult([]*memo.GroupNode{gn}, false, true), nil
}

// GetEdgesTransformAppendVerticesLimitRule rewrites Project ← Limit ←
// AppendVertices ← Traverse(1-step, src-only) ← ScanVertices — the shape
// a caller that re-fetches full vertex data for each dst id produces —
// into Project ← Limit ← AppendVertices ← Project ← ScanEdges, folding
// the limit's offset plus count into ScanEdges' own row cap. It is kept distinct
// from GetEdgesTransformLimit, rather than sharing one pattern, because
// the AppendVertices step changes what the Limit and outer Project
// above it are actually forwarding.
type GetEdgesTransformAppendVerticesLimitRule struct{}

func (GetEdgesTransformAppendVerticesLimitRule) String() string {
	return "GetEdgesTransformAppendVerticesLimit"
}

func (GetEdgesTransformAppendVerticesLimitRule) Pattern() *pattern.Pattern {
	return pattern.OfKind(plannode.KindProject,
		pattern.OfKind(plannode.KindLimit,
			pattern.OfKind(plannode.KindAppendVertices,
				pattern.OfKind(plannode.KindTraverse, pattern.OfKind(plannode.KindScanVertices)))))
}

func (GetEdgesTransformAppendVerticesLimitRule) Match(qc *qctx.QueryContext, m *pattern.MatchedResult) (bool, error) {
	limitMR := m.Dependencies[0]
	avMR := limitMR.Dependencies[0]
	traverse := avMR.Dependencies[0].GroupNode.Node()
	if !eligibleTraverse(traverse) {
		return false, nil
	}
	return rule.CheckDataflowDeps(m, qc.Symtab), nil
}

func (GetEdgesTransformAppendVerticesLimitRule) Transform(qc *qctx.QueryContext, m *pattern.MatchedResult) (*rule.TransformResult, error) {
	outerProj := m.GroupNode.Node()
	limitMR := m.Dependencies[0]
	limit := limitMR.GroupNode.Node()
	avMR := limitMR.Dependencies[0]
	av := avMR.GroupNode.Node()
	traverseMR := avMR.Dependencies[0]
	traverse := traverseMR.GroupNode.Node()
	scanV := traverseMR.Dependencies[0].GroupNode.Node()

	projVar := av.InputVar(0)
	scanE, proj := buildScanEdgesAndProject(traverse, scanV, projVar, []string{scanV.OutputVar()})
	scanE.RowLimit = limit.LimitOffset + limit.LimitCount
	seGroup := rule.NewGroup(scanE.OutputVar(), scanE.ColNames())
	seGN := memo.NewGroupNode(scanE, nil, nil)
	if err := seGroup.Insert(seGN); err != nil {
		return nil, err
	}
	proj.SetInputVar(0, scanE.OutputVar())

	projGroup := rule.NewGroup(projVar, proj.ColNames())
	projGN := memo.NewGroupNode(proj, []*memo.Group{seGroup}, nil)
	if err := projGroup.Insert(projGN); err != nil {
		return nil, err
	}

	newAV := av.Clone()
	newAV.SetOutputVar(av.OutputVar())
	avGN := memo.NewGroupNode(newAV, []*memo.Group{projGroup}, nil)
	avGroup := rule.NewGroup(av.OutputVar(), av.ColNames())
	if err := avGroup.Insert(avGN); err != nil {
		return nil, err
	}

	newLimit := limit.Clone()
	newLimit.SetOutputVar(limit.OutputVar())
	limitGN := memo.NewGroupNode(newLimit, []*memo.Group{avGroup}, nil)
	limitGroup := rule.NewGroup(limit.OutputVar(), limit.ColNames())
	if err := limitGroup.Insert(limitGN); err != nil {
		return nil, err
	}

	newOuterProj := outerProj.Clone()
	newOuterProj.SetOutputVar(outerProj.OutputVar())
	gn := memo.NewGroupNode(newOuterProj, []*memo.Group{limitGroup}, nil)
	return rule.NewTransformResult([]*memo.GroupNode{gn}, false, true), nil
}
