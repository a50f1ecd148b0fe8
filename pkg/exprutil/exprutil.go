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

// Package exprutil holds the expression-rewrite helpers shared across
// the filter-pushdown and dead-code rule packages: splitting a
// conjunction by a predicate, renaming the variable a property
// expression is read through, and the two small normal-form rewrites
// (singleton IN, AND-over-OR distribution) the index-selection rules
// depend on.
package exprutil

import "github.com/matrixorigin/graphoptimizer/pkg/exprtree"

// SplitFilter splits cond's top-level conjunction: operands for which
// picker returns true go into picked, the rest stay in rest. A cond that
// isn't itself a top-level AND is treated as a single operand. Either
// return value is nil when its operand list is empty.
func SplitFilter(cond *exprtree.Expr, picker func(*exprtree.Expr) bool) (picked, rest *exprtree.Expr) {
	var operands []*exprtree.Expr
	switch {
	case cond == nil:
	case cond.Kind == exprtree.KindLogical && cond.CmpOp == exprtree.OpAnd:
		operands = cond.Operands
	default:
		operands = []*exprtree.Expr{cond}
	}

	var pickedOps, restOps []*exprtree.Expr
	for _, o := range operands {
		if picker(o) {
			pickedOps = append(pickedOps, o)
		} else {
			restOps = append(restOps, o)
		}
	}
	return andOrNil(pickedOps), andOrNil(restOps)
}

func andOrNil(ops []*exprtree.Expr) *exprtree.Expr {
	if len(ops) == 0 {
		return nil
	}
	return exprtree.And(ops...)
}

// RewriteInnerVar clones expr, replacing every variable-property's
// owning variable name (a $-.col VarProp's Var, or a v.tag.prop
// PropertyRef's Owner) with newVar.
func RewriteInnerVar(arena *exprtree.Arena, expr *exprtree.Expr, newVar string) *exprtree.Expr {
	if expr == nil {
		return nil
	}
	c := arena.Clone(expr)
	c.Walk(func(e *exprtree.Expr) {
		switch e.Kind {
		case exprtree.KindVarProp:
			e.Var = newVar
		case exprtree.KindPropertyRef:
			e.Owner = newVar
		}
	})
	return c
}

// RewriteVertexPropertyFilter clones expr, resolving every property
// reference's owning variable to alias — the form the storage layer
// expects once a vertex/edge variable has been bound to a concrete scan
// alias.
func RewriteVertexPropertyFilter(arena *exprtree.Arena, alias string, expr *exprtree.Expr) *exprtree.Expr {
	if expr == nil {
		return nil
	}
	c := arena.Clone(expr)
	c.Walk(func(e *exprtree.Expr) {
		if e.Kind == exprtree.KindPropertyRef {
			e.Owner = alias
		}
	})
	return c
}

// RewriteInExpr clones expr, rewriting every singleton "A IN [b]" into
// "A == b" while leaving multi-element IN lists (handled separately by
// the union-all index-scan rules) and the surrounding logical structure
// untouched.
func RewriteInExpr(arena *exprtree.Arena, expr *exprtree.Expr) *exprtree.Expr {
	if expr == nil {
		return nil
	}
	return rewriteInRec(arena.Clone(expr))
}

func rewriteInRec(e *exprtree.Expr) *exprtree.Expr {
	if e == nil {
		return nil
	}
	e.Left = rewriteInRec(e.Left)
	e.Right = rewriteInRec(e.Right)
	for i, o := range e.Operands {
		e.Operands[i] = rewriteInRec(o)
	}
	for i, a := range e.Args {
		e.Args[i] = rewriteInRec(a)
	}
	if e.Kind == exprtree.KindInList && len(e.Operands) == 1 {
		return exprtree.Compare(exprtree.OpEQ, e.Left, e.Operands[0])
	}
	return e
}

// RewriteLogicalAndToLogicalOr clones expr and distributes AND over OR
// (A OR B) AND C => (A AND C) OR (B AND C), recursively, the
// distributivity step the union-all index-scan rules use after exploding
// an IN expression into an OR of equalities.
func RewriteLogicalAndToLogicalOr(arena *exprtree.Arena, expr *exprtree.Expr) *exprtree.Expr {
	if expr == nil {
		return nil
	}
	return distribute(arena.Clone(expr))
}

func distribute(e *exprtree.Expr) *exprtree.Expr {
	if e == nil || e.Kind != exprtree.KindLogical || e.CmpOp != exprtree.OpAnd {
		return e
	}
	for i, o := range e.Operands {
		e.Operands[i] = distribute(o)
	}
	for i, o := range e.Operands {
		if o.Kind != exprtree.KindLogical || o.CmpOp != exprtree.OpOr {
			continue
		}
		others := make([]*exprtree.Expr, 0, len(e.Operands)-1)
		for j, oo := range e.Operands {
			if j != i {
				others = append(others, oo)
			}
		}
		orOperands := make([]*exprtree.Expr, 0, len(o.Operands))
		for _, branch := range o.Operands {
			conj := append(append([]*exprtree.Expr{}, others...), branch)
			orOperands = append(orOperands, distribute(exprtree.And(conj...)))
		}
		return exprtree.Or(orOperands...)
	}
	return e
}
