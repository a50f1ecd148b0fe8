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

// Package exprtree implements the ExpressionArena collaborator: a small
// boolean/arithmetic/property-access expression tree, enough to express
// every predicate shape the rule library pattern-matches on.
package exprtree

// Op enumerates the operators an Expr's Binary/Logical/Unary node can
// carry.
type Op int

const (
	OpUnknown Op = iota
	OpEQ
	OpNE
	OpLT
	OpLE
	OpGT
	OpGE
	OpAnd
	OpOr
	OpNot
	OpIn
)

func (o Op) Negate() Op {
	switch o {
	case OpEQ:
		return OpNE
	case OpNE:
		return OpEQ
	case OpLT:
		return OpGE
	case OpLE:
		return OpGT
	case OpGT:
		return OpLE
	case OpGE:
		return OpLT
	default:
		return OpUnknown
	}
}

// Kind discriminates the Expr variant, the same tagged-variant shape the
// plan node family uses.
type Kind int

const (
	KindConstant Kind = iota
	KindPropertyRef
	KindVarProp
	KindColumnRef
	KindCompare
	KindLogical
	KindUnary
	KindInList
	KindFuncCall
)

// Expr is an immutable-by-convention boolean/value expression node. Rules
// never mutate an Expr in place; they clone via Arena.Clone and build new
// nodes with the constructors below.
type Expr struct {
	Kind Kind

	// KindConstant
	ConstVal   interface{}
	ConstIsNull bool

	// KindPropertyRef: owner.tag.prop, e.g. v.person.age
	Owner string
	Tag   string
	Prop  string

	// KindVarProp: $-.col or $var.col references to an upstream row.
	Var string
	Col string

	// KindColumnRef: a positional output column, e.g. COLUMN[0].
	ColIndex int

	// KindCompare / KindLogical / KindUnary / KindInList
	CmpOp Op
	Left  *Expr
	Right *Expr

	Operands []*Expr // KindLogical (AND/OR, n-ary), KindInList items

	// KindFuncCall
	FuncName string
	Args     []*Expr
}

func Constant(v interface{}) *Expr { return &Expr{Kind: KindConstant, ConstVal: v} }

func Null() *Expr { return &Expr{Kind: KindConstant, ConstIsNull: true} }

func PropertyRef(owner, tag, prop string) *Expr {
	return &Expr{Kind: KindPropertyRef, Owner: owner, Tag: tag, Prop: prop}
}

func VarProp(varName, col string) *Expr {
	return &Expr{Kind: KindVarProp, Var: varName, Col: col}
}

func ColumnRef(i int) *Expr { return &Expr{Kind: KindColumnRef, ColIndex: i} }

func Compare(op Op, left, right *Expr) *Expr {
	return &Expr{Kind: KindCompare, CmpOp: op, Left: left, Right: right}
}

func And(operands ...*Expr) *Expr { return flattenLogical(OpAnd, operands) }
func Or(operands ...*Expr) *Expr  { return flattenLogical(OpOr, operands) }

func flattenLogical(op Op, operands []*Expr) *Expr {
	flat := make([]*Expr, 0, len(operands))
	for _, o := range operands {
		if o == nil {
			continue
		}
		if o.Kind == KindLogical && o.CmpOp == op {
			flat = append(flat, o.Operands...)
		} else {
			flat = append(flat, o)
		}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return &Expr{Kind: KindLogical, CmpOp: op, Operands: flat}
}

func Not(e *Expr) *Expr { return &Expr{Kind: KindUnary, CmpOp: OpNot, Left: e} }

func InList(left *Expr, items ...*Expr) *Expr {
	return &Expr{Kind: KindInList, Left: left, Operands: items}
}

func FuncCall(name string, args ...*Expr) *Expr {
	return &Expr{Kind: KindFuncCall, FuncName: name, Args: args}
}

// IsConstantBool reports whether e is a boolean constant, returning its
// value and ok=true if so.
func (e *Expr) IsConstantBool() (val bool, ok bool) {
	if e == nil || e.Kind != KindConstant || e.ConstIsNull {
		return false, false
	}
	b, isBool := e.ConstVal.(bool)
	return b, isBool
}

// IsConstantNull reports whether e is the literal NULL.
func (e *Expr) IsConstantNull() bool {
	return e != nil && e.Kind == KindConstant && e.ConstIsNull
}

// Equal performs a structural comparison, ignoring no hidden identity
// state (Expr carries none).
func (e *Expr) Equal(o *Expr) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.Kind != o.Kind || e.CmpOp != o.CmpOp {
		return false
	}
	switch e.Kind {
	case KindConstant:
		return e.ConstIsNull == o.ConstIsNull && e.ConstVal == o.ConstVal
	case KindPropertyRef:
		return e.Owner == o.Owner && e.Tag == o.Tag && e.Prop == o.Prop
	case KindVarProp:
		return e.Var == o.Var && e.Col == o.Col
	case KindColumnRef:
		return e.ColIndex == o.ColIndex
	case KindFuncCall:
		if e.FuncName != o.FuncName || len(e.Args) != len(o.Args) {
			return false
		}
		for i := range e.Args {
			if !e.Args[i].Equal(o.Args[i]) {
				return false
			}
		}
		return true
	default:
		if !e.Left.Equal(o.Left) || !e.Right.Equal(o.Right) {
			return false
		}
		if len(e.Operands) != len(o.Operands) {
			return false
		}
		for i := range e.Operands {
			if !e.Operands[i].Equal(o.Operands[i]) {
				return false
			}
		}
		return true
	}
}

// Walk visits e and every descendant, depth first, pre-order.
func (e *Expr) Walk(visit func(*Expr)) {
	if e == nil {
		return
	}
	visit(e)
	e.Left.Walk(visit)
	e.Right.Walk(visit)
	for _, o := range e.Operands {
		o.Walk(visit)
	}
	for _, a := range e.Args {
		a.Walk(visit)
	}
}
