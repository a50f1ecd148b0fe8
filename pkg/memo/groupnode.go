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

package memo

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
	"github.com/matrixorigin/graphoptimizer/pkg/symtab"
)

// GroupNode is an OptGroupNode: one candidate realization of its
// enclosing group.
type GroupNode struct {
	id    int64
	node  *plannode.Node
	group *Group // weak back-pointer, set by Group.Insert

	dependencies []*Group // ordered, positional input groups
	bodies       []*Group // Select: [then, else]; Loop: [body]

	exploredRules *roaring.Bitmap
}

// NewGroupNode allocates a group node wrapping node, with the given
// positional dependency groups and (for control-flow kinds) body groups.
// It is not yet inserted into a group; callers pass it to Group.Insert.
func NewGroupNode(node *plannode.Node, deps []*Group, bodies []*Group) *GroupNode {
	return &GroupNode{
		id:            nextID(),
		node:          node,
		dependencies:  append([]*Group(nil), deps...),
		bodies:        append([]*Group(nil), bodies...),
		exploredRules: roaring.New(),
	}
}

func (gn *GroupNode) ID() int64 { return gn.id }

func (gn *GroupNode) Node() *plannode.Node { return gn.node }

func (gn *GroupNode) Group() *Group { return gn.group }

func (gn *GroupNode) Dependencies() []*Group { return gn.dependencies }

func (gn *GroupNode) Bodies() []*Group { return gn.bodies }

// SetDep replaces positional dependency i, updating both groups'
// referrer sets.
func (gn *GroupNode) SetDep(i int, g *Group, st *symtab.SymbolTable) {
	if i < len(gn.dependencies) && gn.dependencies[i] != nil {
		gn.dependencies[i].RemoveReferrer(gn, st)
	}
	for len(gn.dependencies) <= i {
		gn.dependencies = append(gn.dependencies, nil)
	}
	gn.dependencies[i] = g
	if g != nil {
		g.AddReferrer(gn)
	}
}

// attachToDeps registers gn as a referrer of every group it currently
// depends on or bodies into. Called once, by Group.Insert.
func (gn *GroupNode) attachToDeps() {
	for _, dep := range gn.dependencies {
		dep.AddReferrer(gn)
	}
	for _, b := range gn.bodies {
		b.AddReferrer(gn)
	}
}

// Release detaches gn from every group it depends on (decrementing each
// one's referrer set, possibly cascading into that group's own release)
// and deregisters its plan node's input variables from st.
func (gn *GroupNode) Release(st *symtab.SymbolTable) {
	for _, dep := range gn.dependencies {
		dep.RemoveReferrer(gn, st)
	}
	for _, b := range gn.bodies {
		b.RemoveReferrer(gn, st)
	}
	gn.node.ReleaseSymbols(st)
}

// SetExplored marks ruleID as explored at this group node.
func (gn *GroupNode) SetExplored(ruleID uint32) { gn.exploredRules.Add(ruleID) }

// SetUnexplored clears ruleID's explored bit at this group node.
func (gn *GroupNode) SetUnexplored(ruleID uint32) { gn.exploredRules.Remove(ruleID) }

// Explored reports whether ruleID has been marked explored at this group
// node.
func (gn *GroupNode) Explored(ruleID uint32) bool { return gn.exploredRules.Contains(ruleID) }
