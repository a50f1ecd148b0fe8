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

package planfile

import (
	"github.com/matrixorigin/graphoptimizer/pkg/memo"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
)

// PlanToDTO walks a materialized plannode.Node tree (as returned by
// Optimizer.FindBestPlan) back into the JSON-friendly NodeDTO shape, the
// inverse of BuildPlan, for cmd/planopt's default (non-memo-dump) output.
func PlanToDTO(n *plannode.Node) *NodeDTO {
	if n == nil {
		return nil
	}
	dto := &NodeDTO{
		Kind:          n.Kind().String(),
		OutputVar:     n.OutputVar(),
		ColNames:      n.ColNames(),
		Condition:     n.Condition,
		AlwaysFalse:   n.AlwaysFalse,
		Projections:   n.Projections,
		LimitCount:    n.LimitCount,
		LimitOffset:   n.LimitOffset,
		SortFactors:   n.SortFactors,
		SampleCount:   n.SampleCount,
		Random:        n.Random,
		DedupKey:      n.DedupKey,
		SpaceID:       n.SpaceID,
		Alias:         n.Alias,
		StorageFilter: n.StorageFilter,
		VertexFilter:  n.VertexFilter,
		RowLimit:      n.RowLimit,
		Dedup:         n.Dedup,
		Steps:         n.Steps,
		Direction:     n.Direction.String(),
		EdgeTypes:     n.EdgeTypes,
		SrcOnly:       n.SrcOnly,
		TagOrEdgeName: n.TagOrEdgeName,
		QueryContexts: n.QueryContexts,
		IndexOrderBy:  n.IndexOrderBy,
		DistinctVid:   n.DistinctVid,
		SrcExpr:       n.SrcExpr,
		EmptyDataset:  n.EmptyDataset,
		If:            PlanToDTO(n.If()),
		Else:          PlanToDTO(n.Else()),
		Body:          PlanToDTO(n.Body()),
	}
	for _, dep := range n.Dependencies() {
		dto.Deps = append(dto.Deps, PlanToDTO(dep))
	}
	return dto
}

// GroupNodeDump is one candidate realization of a MemoDump group: its
// plan node (with dependency/body groups dumped recursively) and cost.
type GroupNodeDump struct {
	Plan  *NodeDTO
	Cost  float64
	Deps  []*GroupDump
	Bodies []*GroupDump
}

// GroupDump is one equivalence class: every group node currently in it,
// plus the output variable/columns every member must agree on.
type GroupDump struct {
	GroupID    int64
	OutputVar  string
	ColNames   []string
	Candidates []GroupNodeDump
	BestCost   float64
}

// DumpGroup walks a memo group (and everything it depends on or bodies
// into) into a JSON-friendly tree, for cmd/planopt's --dump-memo output.
// Unlike PlanToDTO (one winning plan), this surfaces every candidate a
// group still holds, the way a query-plan explain tool's verbose mode
// shows rejected alternatives alongside the chosen one.
func DumpGroup(g *memo.Group) *GroupDump {
	return dumpGroup(g, make(map[*memo.Group]*GroupDump))
}

func dumpGroup(g *memo.Group, seen map[*memo.Group]*GroupDump) *GroupDump {
	if g == nil {
		return nil
	}
	if d, ok := seen[g]; ok {
		return d
	}
	d := &GroupDump{
		GroupID:   g.ID(),
		OutputVar: g.OutputVar(),
		ColNames:  g.ColNames(),
		BestCost:  g.BestCost(),
	}
	seen[g] = d
	for _, gn := range g.GroupNodes() {
		gnd := GroupNodeDump{Plan: PlanToDTO(gn.Node()), Cost: gn.Node().Cost()}
		for _, dep := range gn.Dependencies() {
			gnd.Deps = append(gnd.Deps, dumpGroup(dep, seen))
		}
		for _, b := range gn.Bodies() {
			gnd.Bodies = append(gnd.Bodies, dumpGroup(b, seen))
		}
		d.Candidates = append(d.Candidates, gnd)
	}
	return d
}
