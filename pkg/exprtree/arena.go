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

package exprtree

import "sync/atomic"

// Arena is the ExpressionArena collaborator: an allocation-only surface
// used by clone() and by rule-constructed replacement expressions. It
// carries no pooled backing storage (Go's GC already handles that); it
// exists so allocation sites stay uniform and countable, the same role
// the object-pool arena plays on the plan-node side.
type Arena struct {
	allocs int64
}

// NewArena returns an empty Arena, owned for the lifetime of one
// optimization.
func NewArena() *Arena { return &Arena{} }

// Clone returns a deep, arena-allocated copy of e. Rules must clone
// before mutating any expression already visible to another rule.
func (a *Arena) Clone(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	atomic.AddInt64(&a.allocs, 1)
	c := *e
	c.Left = a.Clone(e.Left)
	c.Right = a.Clone(e.Right)
	if e.Operands != nil {
		c.Operands = make([]*Expr, len(e.Operands))
		for i, o := range e.Operands {
			c.Operands[i] = a.Clone(o)
		}
	}
	if e.Args != nil {
		c.Args = make([]*Expr, len(e.Args))
		for i, arg := range e.Args {
			c.Args[i] = a.Clone(arg)
		}
	}
	return &c
}

// New records the allocation of a rule-constructed expression (one not
// produced by Clone) and returns it unchanged, so every expression that
// enters the memo passes through the arena exactly once.
func (a *Arena) New(e *Expr) *Expr {
	atomic.AddInt64(&a.allocs, 1)
	return e
}

// Allocs reports how many expression nodes this arena has vended, for
// diagnostics and tests.
func (a *Arena) Allocs() int64 { return atomic.LoadInt64(&a.allocs) }
