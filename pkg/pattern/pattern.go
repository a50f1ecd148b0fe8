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

// Package pattern implements the declarative tree-pattern matcher rules
// use to select candidate subtrees: Pattern describes the shape, and
// matching a Pattern against the memo yields a MatchedResult witness
// tree.
package pattern

import (
	"github.com/matrixorigin/graphoptimizer/pkg/memo"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
)

// Pattern is either a single-kind or multi-kind constraint on a group
// node, plus an ordered list of child patterns. An empty Children means
// "ignore children": matching stops here and everything below is a
// boundary the rewrite must not assume about.
type Pattern struct {
	kinds    map[plannode.Kind]struct{}
	matchAny bool
	Children []*Pattern
}

// OfKind builds a single-kind pattern.
func OfKind(k plannode.Kind, children ...*Pattern) *Pattern {
	return &Pattern{kinds: map[plannode.Kind]struct{}{k: {}}, Children: children}
}

// OfKinds builds a pattern accepting any of ks (a kind-set disjunction).
func OfKinds(ks []plannode.Kind, children ...*Pattern) *Pattern {
	m := make(map[plannode.Kind]struct{}, len(ks))
	for _, k := range ks {
		m[k] = struct{}{}
	}
	return &Pattern{kinds: m, Children: children}
}

// Any builds a pattern matching any kind (the kUnknown wildcard).
func Any(children ...*Pattern) *Pattern {
	return &Pattern{matchAny: true, Children: children}
}

func (p *Pattern) accepts(k plannode.Kind) bool {
	if p.matchAny {
		return true
	}
	_, ok := p.kinds[k]
	return ok
}

// MatchedResult is the witness tree produced by a successful match: one
// GroupNode at each level, plus its positional dependencies where the
// pattern chose to descend.
type MatchedResult struct {
	GroupNode *memo.GroupNode
	// Dependencies holds one entry per pattern.Children element, in
	// order. It is nil when the matched pattern had no child patterns
	// (Children == nil), meaning the group node's own dependencies are a
	// boundary, not part of the match.
	Dependencies []*MatchedResult
}

// Match attempts to match p against gn directly (not against the
// enclosing group).
func (p *Pattern) Match(gn *memo.GroupNode) *MatchedResult {
	if !p.accepts(gn.Node().Kind()) {
		return nil
	}
	if len(p.Children) == 0 {
		return &MatchedResult{GroupNode: gn}
	}
	deps := gn.Dependencies()
	if len(deps) != len(p.Children) {
		return nil
	}
	children := make([]*MatchedResult, len(deps))
	for i, childPat := range p.Children {
		cr := childPat.MatchGroup(deps[i])
		if cr == nil {
			return nil
		}
		children[i] = cr
	}
	return &MatchedResult{GroupNode: gn, Dependencies: children}
}

// MatchGroup matches p against g: it succeeds as soon as any group node
// in g matches, trying group nodes in insertion order (deterministic,
// per the fixed exploration-order design decision).
func (p *Pattern) MatchGroup(g *memo.Group) *MatchedResult {
	for _, gn := range g.GroupNodes() {
		if mr := p.Match(gn); mr != nil {
			return mr
		}
	}
	return nil
}

// PlanNode navigates the matched tree by a vector of child indices,
// returning the plan node bound at that path, or nil if the path runs
// past where the pattern stopped descending.
func (m *MatchedResult) PlanNode(path ...int) *plannode.Node {
	cur := m
	for _, idx := range path {
		if cur == nil || idx < 0 || idx >= len(cur.Dependencies) {
			return nil
		}
		cur = cur.Dependencies[idx]
	}
	if cur == nil {
		return nil
	}
	return cur.GroupNode.Node()
}

// CollectBoundary appends every group edge at the leaves of the matched
// subtree to out: a matched node's body groups (patterns never descend
// into Select/Loop bodies) plus, wherever the pattern stopped descending
// (Dependencies == nil but the underlying group node does have
// dependencies), that node's dependency groups. These are exactly the
// groups a rewrite is expected to preserve untouched.
func (m *MatchedResult) CollectBoundary(out *[]*memo.Group) {
	if m == nil {
		return
	}
	for _, b := range m.GroupNode.Bodies() {
		*out = append(*out, b)
	}
	if len(m.Dependencies) == 0 {
		*out = append(*out, m.GroupNode.Dependencies()...)
		return
	}
	for _, child := range m.Dependencies {
		child.CollectBoundary(out)
	}
}
