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

package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTagIndexRoundTrip(t *testing.T) {
	cat := New()
	item := IndexItem{IndexID: 1, SchemaID: 10, Fields: []ColumnDef{{Name: "p1", Type: ColInt}}}
	cat.AddTagIndex(5, item)

	got, err := cat.GetTagIndexesFromCache(5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, []string{"p1"}, got[0].FieldNames())
}

func TestEdgeIndexRoundTrip(t *testing.T) {
	cat := New()
	item := IndexItem{IndexID: 2, SchemaID: 20}
	cat.AddEdgeIndex(5, item)

	got, err := cat.GetEdgeIndexesFromCache(5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.EqualValues(t, 2, got[0].IndexID)
}

func TestTagSchemaResolution(t *testing.T) {
	cat := New()
	schema := &Schema{ID: 100, Name: "person", Columns: []ColumnDef{{Name: "age", Type: ColInt}}}
	cat.AddTagSchema(5, schema)

	id, err := cat.ToTagID(5, "person")
	require.NoError(t, err)
	require.EqualValues(t, 100, id)

	got, err := cat.GetTagSchema(5, 100)
	require.NoError(t, err)
	require.Equal(t, "person", got.Name)

	col, ok := got.Column("age")
	require.True(t, ok)
	require.Equal(t, ColInt, col.Type)

	_, ok = got.Column("missing")
	require.False(t, ok)
}

func TestEdgeSchemaResolution(t *testing.T) {
	cat := New()
	schema := &Schema{ID: 200, Name: "knows"}
	cat.AddEdgeSchema(5, 7, schema)

	name, err := cat.ToEdgeName(5, 7)
	require.NoError(t, err)
	require.Equal(t, "knows", name)
}

func TestUnknownSpaceErrors(t *testing.T) {
	cat := New()
	_, err := cat.GetTagIndexesFromCache(999)
	require.Error(t, err)

	_, err = cat.ToTagID(999, "x")
	require.Error(t, err)

	_, err = cat.ToEdgeName(999, 1)
	require.Error(t, err)

	_, err = cat.GetTagSchema(999, 1)
	require.Error(t, err)
}

func TestUnknownNameWithinKnownSpaceErrors(t *testing.T) {
	cat := New()
	cat.AddTagSchema(5, &Schema{ID: 1, Name: "known"})

	_, err := cat.ToTagID(5, "unknown")
	require.Error(t, err)

	_, err = cat.GetTagSchema(5, 999)
	require.Error(t, err)
}
