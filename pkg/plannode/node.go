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

// Package plannode implements the PlanNode collaborator described by the
// optimizer's external interfaces: a single tagged-variant struct,
// discriminated by Kind, with every field a rule in the library might
// need. It deliberately does not model a real executable plan — there is
// no physical execution here — only enough shape to pattern-match and
// rewrite against.
package plannode

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/matrixorigin/graphoptimizer/pkg/exprtree"
	"github.com/matrixorigin/graphoptimizer/pkg/symtab"
)

var idCounter int64

func nextID() int64 {
	return atomic.AddInt64(&idCounter, 1)
}

// Node is the plan-node family. Only the fields relevant to Kind are
// meaningful; others are left at their zero value. This mirrors the
// teacher's own flat, optional-field-heavy plan message more closely
// than a Go interface with one implementation per operator would.
type Node struct {
	id      int64
	traceID string
	kind    Kind

	outputVar string
	inputVars []string
	colNames  []string
	costVal   float64

	deps []*Node // positional dependencies

	// Control flow (Select: If/Else bodies; Loop: Body).
	ifBody   *Node
	elseBody *Node
	loopBody *Node

	// Filter
	Condition   *exprtree.Expr
	AlwaysFalse bool

	// Project
	Projections []ProjectItem

	// Limit / TopN
	LimitCount  int64
	LimitOffset int64

	// Sort / TopN
	SortFactors []SortFactor

	// Sample
	SampleCount int64
	Random      bool

	// Dedup
	DedupKey []string

	// Scan / traverse common
	SpaceID       int64
	Alias         string // node/edge alias this step binds, e.g. "v", "e"
	StorageFilter *exprtree.Expr
	VertexFilter  *exprtree.Expr
	RowLimit      int64 // -1 means unbounded; "at most N rows may leave this operator"
	Dedup         bool
	Steps         int // Traverse step count; 1 means single-step
	Direction     Direction
	EdgeTypes     []EdgeTypeSpec
	SrcOnly       bool // Traverse needs only the destination vertex, not edge props

	// Index scan
	TagOrEdgeName  string
	QueryContexts  []IndexQueryContext
	IndexOrderBy   []SortFactor

	// DataCollect
	DistinctVid bool

	// GetDstBySrc
	SrcExpr *exprtree.Expr

	// Value (dataset-producing leaf used by EliminateFilter)
	EmptyDataset bool
}

// New allocates a fresh Node of the given kind with a freshly minted id
// and output variable name. Callers fill in the kind-specific fields
// directly.
func New(kind Kind, outputVar string, colNames []string) *Node {
	return &Node{
		id:        nextID(),
		traceID:   uuid.NewString(),
		kind:      kind,
		outputVar: outputVar,
		colNames:  append([]string(nil), colNames...),
	}
}

func (n *Node) Kind() Kind { return n.kind }

func (n *Node) ID() int64 { return n.id }

// TraceID is a synthetic identifier minted alongside the node's memo id
// by New and Clone; it is never compared for plan equality, and no log
// line or metric label carries it.
func (n *Node) TraceID() string { return n.traceID }

// Clone returns a shallow copy with a new id and a new output-variable
// name ("<name>_clone"); callers that want to reclaim the original
// name call SetOutputVar afterward. Dependency/body pointers are copied
// by reference: clone() is used to re-parent a node, not to deep-copy its
// subtree.
func (n *Node) Clone() *Node {
	c := *n
	c.id = nextID()
	c.traceID = uuid.NewString()
	c.outputVar = c.outputVar + "_clone"
	c.inputVars = append([]string(nil), n.inputVars...)
	c.colNames = append([]string(nil), n.colNames...)
	c.deps = append([]*Node(nil), n.deps...)
	c.Projections = append([]ProjectItem(nil), n.Projections...)
	c.SortFactors = append([]SortFactor(nil), n.SortFactors...)
	c.EdgeTypes = append([]EdgeTypeSpec(nil), n.EdgeTypes...)
	c.QueryContexts = append([]IndexQueryContext(nil), n.QueryContexts...)
	c.IndexOrderBy = append([]SortFactor(nil), n.IndexOrderBy...)
	c.DedupKey = append([]string(nil), n.DedupKey...)
	return &c
}

func (n *Node) OutputVar() string { return n.outputVar }

func (n *Node) SetOutputVar(name string) { n.outputVar = name }

// InputVar returns the variable name this node expects to read at
// positional dependency i. It is distinct from Dependencies()[i]'s
// OutputVar() so a rule can detect (or deliberately author, via
// SetInputVar+SetDep together) a mismatch.
func (n *Node) InputVar(i int) string {
	if i < 0 || i >= len(n.inputVars) {
		return ""
	}
	return n.inputVars[i]
}

func (n *Node) SetInputVar(i int, name string) {
	n.growInputVars(i + 1)
	n.inputVars[i] = name
}

func (n *Node) growInputVars(size int) {
	for len(n.inputVars) < size {
		n.inputVars = append(n.inputVars, "")
	}
}

// Dependencies returns the ordered, positional input nodes.
func (n *Node) Dependencies() []*Node { return n.deps }

// SetDep sets positional dependency i to dep, also synchronizing
// InputVar(i) to dep's current OutputVar — callers that want a
// deliberate, rule-verified mismatch should call SetInputVar afterward.
func (n *Node) SetDep(i int, dep *Node) {
	for len(n.deps) <= i {
		n.deps = append(n.deps, nil)
	}
	n.deps[i] = dep
	if dep != nil {
		n.SetInputVar(i, dep.OutputVar())
	}
}

// AppendDep appends dep as the next positional dependency.
func (n *Node) AppendDep(dep *Node) {
	n.deps = append(n.deps, dep)
	n.inputVars = append(n.inputVars, dep.OutputVar())
}

func (n *Node) Cost() float64 { return n.costVal }

func (n *Node) SetCost(c float64) { n.costVal = c }

func (n *Node) ColNames() []string { return n.colNames }

func (n *Node) SetColNames(cols []string) { n.colNames = append([]string(nil), cols...) }

// If returns the "then" body of a Select node.
func (n *Node) If() *Node { return n.ifBody }

// Else returns the "otherwise" body of a Select node.
func (n *Node) Else() *Node { return n.elseBody }

// Body returns a Loop node's body.
func (n *Node) Body() *Node { return n.loopBody }

func (n *Node) SetIf(body *Node)   { n.ifBody = body }
func (n *Node) SetElse(body *Node) { n.elseBody = body }
func (n *Node) SetBody(body *Node) { n.loopBody = body }

// ReleaseSymbols deregisters this node as a reader of each of its input
// variables. Called when the node is dropped from the memo (its group
// node is released).
func (n *Node) ReleaseSymbols(st *symtab.SymbolTable) {
	for _, v := range n.inputVars {
		if v != "" {
			st.RemoveReader(v, n.id)
		}
	}
}

// UpdateSymbols registers this node as a reader of each of its current
// input variables and declares its own output variable. Called when the
// node is inserted into the memo or after a rule rewires its inputs.
func (n *Node) UpdateSymbols(st *symtab.SymbolTable) {
	if st.GetVar(n.outputVar) == nil {
		st.NewVar(n.outputVar, n.colNames)
	}
	for _, v := range n.inputVars {
		if v != "" {
			st.AddReader(v, n.id)
		}
	}
}
