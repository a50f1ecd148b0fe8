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

import (
	"github.com/samber/lo"

	"github.com/matrixorigin/graphoptimizer/pkg/memo"
	"github.com/matrixorigin/graphoptimizer/pkg/pattern"
	"github.com/matrixorigin/graphoptimizer/pkg/symtab"
)

// CheckDataflowDeps is the default data-flow preservation check every
// rule's Match should run unless it has a reason not to (e.g. it uses
// CheckBoundaryDataFlow instead because its transform crosses the match
// boundary). It walks the matched tree verifying that, for every
// positional dependency, the child's output variable equals the
// parent's input variable at that position, and that no intermediate
// output variable is read by more than one downstream node — a rewrite
// that fired here could otherwise silently change a result some other
// node still reads. A variable with no registered reader in st passes
// the check.
func CheckDataflowDeps(matched *pattern.MatchedResult, st *symtab.SymbolTable) bool {
	return checkDataflowRec(matched, st)
}

func checkDataflowRec(m *pattern.MatchedResult, st *symtab.SymbolTable) bool {
	if m == nil || len(m.Dependencies) == 0 {
		return true
	}
	node := m.GroupNode.Node()
	deps := m.GroupNode.Dependencies()
	for i, childMR := range m.Dependencies {
		if i >= len(deps) {
			return false
		}
		childGroup := deps[i]
		if node.InputVar(i) != childGroup.OutputVar() {
			return false
		}
		if st.ReaderCount(childGroup.OutputVar()) > 1 {
			return false
		}
		if !checkDataflowRec(childMR, st) {
			return false
		}
	}
	return true
}

// CheckBoundaryDataFlow is the looser check used by rules whose
// transform replaces more than the pattern's own descent covers — it
// only requires that groups at the matched subtree's boundary (where
// the pattern stopped descending, plus any control-flow bodies) are not
// read by more than one downstream node, without re-checking every
// intermediate level CheckDataflowDeps would.
func CheckBoundaryDataFlow(matched *pattern.MatchedResult, st *symtab.SymbolTable) bool {
	var boundary []*memo.Group
	matched.CollectBoundary(&boundary)
	return lo.EveryBy(boundary, func(g *memo.Group) bool {
		return st.ReaderCount(g.OutputVar()) <= 1
	})
}
