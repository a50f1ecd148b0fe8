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

// Package qctx defines QueryContext: the long-lived, per-query handle to
// the symbol table and catalog that the optimizer's OptContext wraps for
// the duration of one optimization. Rules read from it; they never own
// it.
package qctx

import (
	"github.com/matrixorigin/graphoptimizer/pkg/catalog"
	"github.com/matrixorigin/graphoptimizer/pkg/exprtree"
	"github.com/matrixorigin/graphoptimizer/pkg/plannode"
	"github.com/matrixorigin/graphoptimizer/pkg/symtab"
)

// QueryContext bundles the collaborators a rule needs beyond the memo
// itself, plus the plan Optimizer.FindBestPlan is asked to rewrite.
type QueryContext struct {
	Root    *plannode.Node
	Symtab  *symtab.SymbolTable
	Catalog *catalog.Catalog
	Arena   *exprtree.Arena
	SpaceID int64
}

// New returns a QueryContext with a fresh symbol table and expression
// arena over the given plan root, catalog, and space.
func New(root *plannode.Node, cat *catalog.Catalog, spaceID int64) *QueryContext {
	return &QueryContext{
		Root:    root,
		Symtab:  symtab.New(),
		Catalog: cat,
		Arena:   exprtree.NewArena(),
		SpaceID: spaceID,
	}
}
