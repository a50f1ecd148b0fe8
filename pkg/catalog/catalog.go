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

// Package catalog implements the MetaCatalog collaborator: a read-only,
// in-memory index/schema cache. Real metadata fetch against a meta
// service is out of scope; callers populate a Catalog up front (typically
// from a test fixture or the cmd/planopt JSON loader) and the optimizer
// only ever reads from it.
package catalog

import (
	"github.com/cockroachdb/errors"
)

// ColumnType classifies a schema column well enough for boundValue-style
// range-vs-equality reasoning in the index selector.
type ColumnType int

const (
	ColUnknown ColumnType = iota
	ColBool
	ColInt
	ColFloat
	ColString
	ColGeography
)

// ColumnDef is one column of a tag/edge schema.
type ColumnDef struct {
	Name string
	Type ColumnType
}

// Schema describes a tag or edge type's property columns.
type Schema struct {
	ID      int64
	Name    string
	Columns []ColumnDef
}

func (s *Schema) Column(name string) (ColumnDef, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// GeoIndexParams are the s2-cell covering parameters a geography index
// was built with; used by the geo-predicate index rules to convert a
// spatial predicate into scan ranges.
type GeoIndexParams struct {
	S2MaxLevel int
	S2MaxCells int
}

// IndexItem describes one candidate index: its ordered column list (the
// order a prefix/range scan must respect) and, for geography indexes,
// its s2 covering parameters.
type IndexItem struct {
	IndexID  int64
	SchemaID int64 // the tag or edge schema id this index covers
	Fields   []ColumnDef
	Geo      *GeoIndexParams
}

// FieldNames returns the ordered column names covered by the index.
func (it IndexItem) FieldNames() []string {
	names := make([]string, len(it.Fields))
	for i, f := range it.Fields {
		names[i] = f.Name
	}
	return names
}

type spaceEntry struct {
	tagIndexes  []IndexItem
	edgeIndexes []IndexItem
	tagIDs      map[string]int64
	edgeNames   map[int32]string
	tagSchemas  map[int64]*Schema
}

// Catalog is the in-memory MetaCatalog implementation. Zero value is not
// usable; construct with New.
type Catalog struct {
	spaces map[int64]*spaceEntry
}

// New returns an empty Catalog; use the Add* builder methods (or direct
// field population via a fixture loader) to populate it before running
// the optimizer.
func New() *Catalog {
	return &Catalog{spaces: make(map[int64]*spaceEntry)}
}

func (c *Catalog) space(spaceID int64) *spaceEntry {
	e, ok := c.spaces[spaceID]
	if !ok {
		e = &spaceEntry{
			tagIDs:     make(map[string]int64),
			edgeNames:  make(map[int32]string),
			tagSchemas: make(map[int64]*Schema),
		}
		c.spaces[spaceID] = e
	}
	return e
}

// AddTagIndex registers an index over a tag schema in spaceID.
func (c *Catalog) AddTagIndex(spaceID int64, item IndexItem) {
	e := c.space(spaceID)
	e.tagIndexes = append(e.tagIndexes, item)
}

// AddEdgeIndex registers an index over an edge schema in spaceID.
func (c *Catalog) AddEdgeIndex(spaceID int64, item IndexItem) {
	e := c.space(spaceID)
	e.edgeIndexes = append(e.edgeIndexes, item)
}

// AddTagSchema registers a tag's id, name, and schema in spaceID.
func (c *Catalog) AddTagSchema(spaceID int64, schema *Schema) {
	e := c.space(spaceID)
	e.tagIDs[schema.Name] = schema.ID
	e.tagSchemas[schema.ID] = schema
}

// AddEdgeSchema registers an edge type's id (edgeType), name, and schema
// in spaceID.
func (c *Catalog) AddEdgeSchema(spaceID int64, edgeType int32, schema *Schema) {
	e := c.space(spaceID)
	e.edgeNames[edgeType] = schema.Name
	e.tagSchemas[schema.ID] = schema
}

// GetTagIndexesFromCache returns every index registered against tags in
// spaceID.
func (c *Catalog) GetTagIndexesFromCache(spaceID int64) ([]IndexItem, error) {
	e, ok := c.spaces[spaceID]
	if !ok {
		return nil, errors.Newf("catalog: unknown space %d", spaceID)
	}
	return e.tagIndexes, nil
}

// GetEdgeIndexesFromCache returns every index registered against edges in
// spaceID.
func (c *Catalog) GetEdgeIndexesFromCache(spaceID int64) ([]IndexItem, error) {
	e, ok := c.spaces[spaceID]
	if !ok {
		return nil, errors.Newf("catalog: unknown space %d", spaceID)
	}
	return e.edgeIndexes, nil
}

// ToTagID resolves a tag name to its numeric id within spaceID.
func (c *Catalog) ToTagID(spaceID int64, name string) (int64, error) {
	e, ok := c.spaces[spaceID]
	if !ok {
		return 0, errors.Newf("catalog: unknown space %d", spaceID)
	}
	id, ok := e.tagIDs[name]
	if !ok {
		return 0, errors.Newf("catalog: unknown tag %q in space %d", name, spaceID)
	}
	return id, nil
}

// ToEdgeName resolves an edgeType to its schema name within spaceID.
func (c *Catalog) ToEdgeName(spaceID int64, edgeType int32) (string, error) {
	e, ok := c.spaces[spaceID]
	if !ok {
		return "", errors.Newf("catalog: unknown space %d", spaceID)
	}
	name, ok := e.edgeNames[edgeType]
	if !ok {
		return "", errors.Newf("catalog: unknown edge type %d in space %d", edgeType, spaceID)
	}
	return name, nil
}

// GetTagSchema returns the schema registered for tagID within spaceID.
func (c *Catalog) GetTagSchema(spaceID int64, tagID int64) (*Schema, error) {
	e, ok := c.spaces[spaceID]
	if !ok {
		return nil, errors.Newf("catalog: unknown space %d", spaceID)
	}
	s, ok := e.tagSchemas[tagID]
	if !ok {
		return nil, errors.Newf("catalog: unknown tag id %d in space %d", tagID, spaceID)
	}
	return s, nil
}
