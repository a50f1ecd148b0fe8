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

// Package rules wires every rule family into the two standard RuleSets
// the optimizer runs: DefaultRules (index selection, always run first so
// every other family sees concrete scan kinds) and QueryRules (dead-code
// elimination, pushdown, and the remaining rewrites).
package rules

import (
	"github.com/matrixorigin/graphoptimizer/pkg/rule"
	"github.com/matrixorigin/graphoptimizer/pkg/rules/deadcode"
	"github.com/matrixorigin/graphoptimizer/pkg/rules/filterpushdown"
	"github.com/matrixorigin/graphoptimizer/pkg/rules/getedges"
	"github.com/matrixorigin/graphoptimizer/pkg/rules/indexscan"
	"github.com/matrixorigin/graphoptimizer/pkg/rules/limitpushdown"
	"github.com/matrixorigin/graphoptimizer/pkg/rules/misc"
)

// NewDefaultRules builds the index-selection RuleSet: the pipeline that
// turns a bare *IndexFullScan/IndexScan leaf into a concrete, cost-bearing
// scan. Run before QueryRules so every pushdown/merge rule downstream only
// ever sees fully-resolved scan kinds.
func NewDefaultRules() *rule.RuleSet {
	rs := rule.NewRuleSet("default")
	rs.Add(indexscan.IndexScanRule{})
	rs.Add(indexscan.OptimizeTagIndexScanByFilterRule)
	rs.Add(indexscan.OptimizeEdgeIndexScanByFilterRule)
	rs.Add(indexscan.UnionAllTagIndexScanRule)
	rs.Add(indexscan.UnionAllEdgeIndexScanRule)
	rs.Add(indexscan.GeoPredicateTagIndexScanRule)
	rs.Add(indexscan.GeoPredicateEdgeIndexScanRule)
	rs.Add(indexscan.IndexFullScanBaseRule{})
	rs.Add(indexscan.MergeGetVerticesAndDedupRule)
	rs.Add(indexscan.MergeGetNbrsAndDedupRule)
	return rs
}

// NewQueryRules builds the general query-shape RuleSet: dead-code
// elimination, filter/limit pushdown, the get-edges rewrite, and the
// miscellaneous shape simplifications.
func NewQueryRules() *rule.RuleSet {
	rs := rule.NewRuleSet("query")

	rs.Add(deadcode.RemoveNoopProjectRule{})
	rs.Add(deadcode.EliminateFilterRule{})
	rs.Add(deadcode.CombineFilterRule{})
	rs.Add(deadcode.InvalidFilterRule{})
	rs.Add(deadcode.CollapseProjectRule{})
	rs.Add(deadcode.EliminateAppendVerticesRule{})
	rs.Add(deadcode.RemoveAppendVerticesBelowJoinRule{})
	rs.Add(deadcode.OptimizeLeftJoinPredicateRule{})

	rs.Add(filterpushdown.PushFilterDownScanVerticesRule{})
	rs.Add(filterpushdown.PushVFilterDownScanVerticesRule{})
	rs.Add(filterpushdown.PushFilterDownTraverseRule)
	rs.Add(filterpushdown.PushFilterDownAppendVerticesRule)
	rs.Add(filterpushdown.PushFilterDownAllPathsRule)
	rs.Add(filterpushdown.PushFilterDownExpandAllRule)
	rs.Add(filterpushdown.PushFilterDownGetNeighborsRule)
	rs.Add(filterpushdown.PushFilterThroughAppendVerticesRule{})
	rs.Add(filterpushdown.PushFilterDownHashInnerJoinRule)
	rs.Add(filterpushdown.PushFilterDownHashLeftJoinRule)
	rs.Add(filterpushdown.PushFilterDownCrossJoinRule)
	rs.Add(filterpushdown.PushFilterDownProjectRule{})

	rs.Add(limitpushdown.TopNRule{})
	rs.Add(limitpushdown.PushLimitDownGetNeighborsRule)
	rs.Add(limitpushdown.PushLimitDownTagIndexScanRule)
	rs.Add(limitpushdown.PushLimitDownEdgeIndexScanRule)
	rs.Add(limitpushdown.PushLimitDownIndexScanRule)
	rs.Add(limitpushdown.PushLimitDownFulltextIndexScanRule)
	rs.Add(limitpushdown.PushLimitDownVectorIndexScanRule)
	rs.Add(limitpushdown.PushLimitDownProjectRule{})
	rs.Add(limitpushdown.PushLimitDownShortestPathRule{})
	rs.Add(limitpushdown.PushSampleDownGetNeighborsRule)
	rs.Add(limitpushdown.PushTopNDownIndexScanRule)

	rs.Add(getedges.GetEdgesTransformRule{})
	rs.Add(getedges.GetEdgesTransformLimitRule{})
	rs.Add(getedges.GetEdgesTransformAppendVerticesLimitRule{})

	rs.Add(misc.RemoveProjectDedupBeforeGetDstBySrcRule{})

	return rs
}
