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

// Package planfile loads the JSON fixtures cmd/planopt reads: a plan-node
// tree and a catalog snapshot. Nothing here is part of the optimizer's
// own contract; it exists only to get a *plannode.Node and a
// *catalog.Catalog out of a file without hand-building them in Go.
package planfile

import (
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/matrixorigin/graphoptimizer/pkg/catalog"
	"github.com/matrixorigin/graphoptimizer/pkg/exprtree"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
)

// NodeDTO mirrors plannode.Node's exported surface for JSON decoding:
// Node's identity, wiring and cost fields (id, kind, variables, column
// names, cost, dependencies, bodies) are unexported and set only through
// New and the setters, so a plan fixture decodes
// into this shape first and is then walked into real Nodes via
// BuildPlan.
type NodeDTO struct {
	Kind      string
	OutputVar string
	ColNames  []string
	Deps      []*NodeDTO

	Condition   *exprtree.Expr
	AlwaysFalse bool

	Projections []plannode.ProjectItem

	LimitCount  int64
	LimitOffset int64

	SortFactors []plannode.SortFactor

	SampleCount int64
	Random      bool

	DedupKey []string

	SpaceID       int64
	Alias         string
	StorageFilter *exprtree.Expr
	VertexFilter  *exprtree.Expr
	RowLimit      int64
	Dedup         bool
	Steps         int
	Direction     string
	EdgeTypes     []plannode.EdgeTypeSpec
	SrcOnly       bool

	TagOrEdgeName string
	QueryContexts []plannode.IndexQueryContext
	IndexOrderBy  []plannode.SortFactor

	DistinctVid bool

	SrcExpr *exprtree.Expr

	EmptyDataset bool

	If   *NodeDTO
	Else *NodeDTO
	Body *NodeDTO
}

// LoadPlan reads path as JSON and builds the plannode.Node tree it
// describes.
func LoadPlan(path string) (*plannode.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "planfile: read %q", path)
	}
	var dto NodeDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, errors.Wrapf(err, "planfile: decode %q", path)
	}
	return BuildPlan(&dto)
}

// BuildPlan converts a decoded NodeDTO tree into real plannode.Node
// values, minting each via plannode.New and wiring Deps/If/Else/Body
// through the exported setters. RowLimit defaults to -1 (unbounded) when
// the fixture omits it, since the zero value would otherwise read as "at
// most zero rows", the opposite of spec.md's convention.
func BuildPlan(dto *NodeDTO) (*plannode.Node, error) {
	if dto == nil {
		return nil, nil
	}
	kind, ok := plannode.ParseKind(dto.Kind)
	if !ok {
		return nil, errors.Newf("planfile: unknown node kind %q", dto.Kind)
	}
	n := plannode.New(kind, dto.OutputVar, dto.ColNames)

	n.Condition = dto.Condition
	n.AlwaysFalse = dto.AlwaysFalse
	n.Projections = dto.Projections
	n.LimitCount = dto.LimitCount
	n.LimitOffset = dto.LimitOffset
	n.SortFactors = dto.SortFactors
	n.SampleCount = dto.SampleCount
	n.Random = dto.Random
	n.DedupKey = dto.DedupKey
	n.SpaceID = dto.SpaceID
	n.Alias = dto.Alias
	n.StorageFilter = dto.StorageFilter
	n.VertexFilter = dto.VertexFilter
	if dto.RowLimit != 0 {
		n.RowLimit = dto.RowLimit
	} else {
		n.RowLimit = -1
	}
	n.Dedup = dto.Dedup
	n.Steps = dto.Steps
	if dto.Direction != "" {
		dir, ok := plannode.ParseDirection(dto.Direction)
		if !ok {
			return nil, errors.Newf("planfile: unknown direction %q", dto.Direction)
		}
		n.Direction = dir
	}
	n.EdgeTypes = dto.EdgeTypes
	n.SrcOnly = dto.SrcOnly
	n.TagOrEdgeName = dto.TagOrEdgeName
	n.QueryContexts = dto.QueryContexts
	n.IndexOrderBy = dto.IndexOrderBy
	n.DistinctVid = dto.DistinctVid
	n.SrcExpr = dto.SrcExpr
	n.EmptyDataset = dto.EmptyDataset

	for i, depDTO := range dto.Deps {
		dep, err := BuildPlan(depDTO)
		if err != nil {
			return nil, err
		}
		n.SetDep(i, dep)
	}
	ifBody, err := BuildPlan(dto.If)
	if err != nil {
		return nil, err
	}
	n.SetIf(ifBody)
	elseBody, err := BuildPlan(dto.Else)
	if err != nil {
		return nil, err
	}
	n.SetElse(elseBody)
	loopBody, err := BuildPlan(dto.Body)
	if err != nil {
		return nil, err
	}
	n.SetBody(loopBody)
	return n, nil
}

// EdgeSchemaEntry pairs an edge type with the schema it resolves to; the
// catalog has no single "edge schema list" the way it has tag schemas
// (ToEdgeName only maps type -> name), so the fixture names the pairing
// explicitly.
type EdgeSchemaEntry struct {
	EdgeType int32
	Schema   *catalog.Schema
}

// SpaceFixture is one graph space's catalog contents.
type SpaceFixture struct {
	SpaceID     int64
	TagSchemas  []*catalog.Schema
	EdgeSchemas []EdgeSchemaEntry
	TagIndexes  []catalog.IndexItem
	EdgeIndexes []catalog.IndexItem
}

// CatalogFixture is the top-level catalog JSON shape: one or more spaces.
type CatalogFixture struct {
	Spaces []SpaceFixture
}

// LoadCatalog reads path as JSON and builds the populated Catalog it
// describes.
func LoadCatalog(path string) (*catalog.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "planfile: read %q", path)
	}
	var fixture CatalogFixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return nil, errors.Wrapf(err, "planfile: decode %q", path)
	}
	cat := catalog.New()
	for _, sp := range fixture.Spaces {
		for _, s := range sp.TagSchemas {
			cat.AddTagSchema(sp.SpaceID, s)
		}
		for _, e := range sp.EdgeSchemas {
			cat.AddEdgeSchema(sp.SpaceID, e.EdgeType, e.Schema)
		}
		for _, it := range sp.TagIndexes {
			cat.AddTagIndex(sp.SpaceID, it)
		}
		for _, it := range sp.EdgeIndexes {
			cat.AddEdgeIndex(sp.SpaceID, it)
		}
	}
	return cat, nil
}
