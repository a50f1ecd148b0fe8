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

// Kind discriminates the plan-node family. The optimizer never switches
// on a Go type for a plan node, only on Kind, mirroring the flat
// protobuf-style plan message this family is modeled on.
type Kind int

const (
	KindUnknown Kind = iota

	KindStart
	KindValue

	KindFilter
	KindProject
	KindLimit
	KindTopN
	KindSort
	KindDedup
	KindSample

	KindScanVertices
	KindScanEdges
	KindTraverse
	KindAppendVertices
	KindGetNeighbors
	KindGetEdges
	KindGetVertices
	KindGetDstBySrc
	KindExpandAll
	KindAllPaths
	KindShortestPath
	KindDataCollect

	KindHashInnerJoin
	KindHashLeftJoin
	KindCrossJoin

	KindTagIndexFullScan
	KindEdgeIndexFullScan
	KindTagIndexPrefixScan
	KindTagIndexRangeScan
	KindEdgeIndexPrefixScan
	KindEdgeIndexRangeScan
	KindFulltextIndexScan
	KindVectorIndexScan
	KindIndexScan // generic, already carrying one-or-more IndexQueryContext entries

	KindLoop
	KindSelect
)

var kindNames = map[Kind]string{
	KindUnknown:            "Unknown",
	KindStart:              "Start",
	KindValue:              "Value",
	KindFilter:             "Filter",
	KindProject:            "Project",
	KindLimit:              "Limit",
	KindTopN:               "TopN",
	KindSort:               "Sort",
	KindDedup:              "Dedup",
	KindSample:             "Sample",
	KindScanVertices:       "ScanVertices",
	KindScanEdges:          "ScanEdges",
	KindTraverse:           "Traverse",
	KindAppendVertices:     "AppendVertices",
	KindGetNeighbors:       "GetNeighbors",
	KindGetEdges:           "GetEdges",
	KindGetVertices:        "GetVertices",
	KindGetDstBySrc:        "GetDstBySrc",
	KindExpandAll:          "ExpandAll",
	KindAllPaths:           "AllPaths",
	KindShortestPath:       "ShortestPath",
	KindDataCollect:        "DataCollect",
	KindHashInnerJoin:      "HashInnerJoin",
	KindHashLeftJoin:       "HashLeftJoin",
	KindCrossJoin:          "CrossJoin",
	KindTagIndexFullScan:   "TagIndexFullScan",
	KindEdgeIndexFullScan:  "EdgeIndexFullScan",
	KindTagIndexPrefixScan: "TagIndexPrefixScan",
	KindTagIndexRangeScan:  "TagIndexRangeScan",
	KindEdgeIndexPrefixScan: "EdgeIndexPrefixScan",
	KindEdgeIndexRangeScan: "EdgeIndexRangeScan",
	KindFulltextIndexScan:  "FulltextIndexScan",
	KindVectorIndexScan:    "VectorIndexScan",
	KindIndexScan:          "IndexScan",
	KindLoop:               "Loop",
	KindSelect:             "Select",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "Kind(?)"
}

var kindByName map[string]Kind

func init() {
	kindByName = make(map[string]Kind, len(kindNames))
	for k, n := range kindNames {
		kindByName[n] = k
	}
}

// ParseKind resolves a Kind's String() form back to its value, for JSON
// plan fixtures that spell the discriminant by name rather than number.
func ParseKind(name string) (Kind, bool) {
	k, ok := kindByName[name]
	return k, ok
}

// IsIndexScan reports whether k is any of the concrete index-scan kinds
// (including the generic, already-annotated KindIndexScan).
func (k Kind) IsIndexScan() bool {
	switch k {
	case KindTagIndexFullScan, KindEdgeIndexFullScan,
		KindTagIndexPrefixScan, KindTagIndexRangeScan,
		KindEdgeIndexPrefixScan, KindEdgeIndexRangeScan,
		KindFulltextIndexScan, KindVectorIndexScan, KindIndexScan:
		return true
	default:
		return false
	}
}

// IsTagIndexScan reports whether k scans a tag (vertex-property) index.
func (k Kind) IsTagIndexScan() bool {
	switch k {
	case KindTagIndexFullScan, KindTagIndexPrefixScan, KindTagIndexRangeScan:
		return true
	default:
		return false
	}
}

// IsEdgeIndexScan reports whether k scans an edge-property index.
func (k Kind) IsEdgeIndexScan() bool {
	switch k {
	case KindEdgeIndexFullScan, KindEdgeIndexPrefixScan, KindEdgeIndexRangeScan:
		return true
	default:
		return false
	}
}

// IsControlFlow reports whether k carries body/if-else group edges rather
// than (or in addition to) positional dependencies.
func (k Kind) IsControlFlow() bool {
	return k == KindLoop || k == KindSelect
}
