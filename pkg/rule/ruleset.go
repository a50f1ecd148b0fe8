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

package rule

// RuleSet is an ordered collection of rules applied together. Order is
// insertion order and is never reshuffled: the fixed-point driver and
// each group's explored-rule bitmap both index rules by the position
// they were Add-ed at, which is what makes exploration order
// deterministic (spec.md's design notes call this out as an explicit
// fix over the legacy, non-deterministic exploration order).
type RuleSet struct {
	name  string
	rules []OptRule
	ids   map[OptRule]uint32
}

// NewRuleSet returns an empty, named RuleSet.
func NewRuleSet(name string) *RuleSet {
	return &RuleSet{name: name, ids: make(map[OptRule]uint32)}
}

// Add appends r to the set and returns the stable id it was assigned —
// the bitmap index memo.Group/memo.GroupNode's exploredRules use.
func (rs *RuleSet) Add(r OptRule) uint32 {
	id := uint32(len(rs.rules))
	rs.rules = append(rs.rules, r)
	rs.ids[r] = id
	return id
}

// Merge appends every rule of other to rs, preserving other's internal
// order, and returns rs for chaining.
func (rs *RuleSet) Merge(other *RuleSet) *RuleSet {
	for _, r := range other.rules {
		rs.Add(r)
	}
	return rs
}

// Rules returns the set's rules in insertion order.
func (rs *RuleSet) Rules() []OptRule { return rs.rules }

// ID returns the stable id r was assigned by Add. Callers must only pass
// rules that belong to this set.
func (rs *RuleSet) ID(r OptRule) uint32 { return rs.ids[r] }

// Name returns the set's name ("default" or "query" for the two
// standard sets). The driver's log lines and metric labels name rules
// by String(), not sets.
func (rs *RuleSet) Name() string { return rs.name }
