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

// Package symtab implements the SymbolTable collaborator described in the
// optimizer's external interfaces: a map from output-variable name to the
// set of plan-node ids that currently consume it.
package symtab

// Variable is the bookkeeping the optimizer needs for one named dataset
// flowing between plan nodes.
type Variable struct {
	Name     string
	ColNames []string

	// ReadBy holds the ids of plan nodes that read this variable as an
	// input. Rules decline a rewrite below this variable when
	// len(ReadBy) > 1, so it won't silently change a result some other
	// node still reads.
	ReadBy map[int64]struct{}
}

// SymbolTable is the table shared by a QueryContext; plan nodes register
// and deregister themselves as producers/consumers of named variables as
// the memo is built and rewritten.
type SymbolTable struct {
	vars map[string]*Variable
}

// New returns an empty SymbolTable.
func New() *SymbolTable {
	return &SymbolTable{vars: make(map[string]*Variable)}
}

// GetVar returns the Variable bound to name, or nil if none has been
// declared yet.
func (t *SymbolTable) GetVar(name string) *Variable {
	return t.vars[name]
}

// NewVar declares name as producing the given columns, replacing any
// stale registration with the same name (called by Node.UpdateSymbols
// for the node's output variable, and by AddReader for a variable not
// yet declared).
func (t *SymbolTable) NewVar(name string, colNames []string) *Variable {
	v := &Variable{Name: name, ColNames: colNames, ReadBy: make(map[int64]struct{})}
	t.vars[name] = v
	return v
}

// AddReader registers nodeID as a reader of varName, creating the
// variable if it hasn't been declared yet.
func (t *SymbolTable) AddReader(varName string, nodeID int64) {
	v, ok := t.vars[varName]
	if !ok {
		v = t.NewVar(varName, nil)
	}
	v.ReadBy[nodeID] = struct{}{}
}

// RemoveReader deregisters nodeID as a reader of varName. It is a no-op
// if varName was never declared or nodeID was never a reader.
func (t *SymbolTable) RemoveReader(varName string, nodeID int64) {
	if v, ok := t.vars[varName]; ok {
		delete(v.ReadBy, nodeID)
	}
}

// ReaderCount reports how many distinct plan nodes currently read
// varName.
func (t *SymbolTable) ReaderCount(varName string) int {
	if v, ok := t.vars[varName]; ok {
		return len(v.ReadBy)
	}
	return 0
}

// String renders the table for debug logs.
func (t *SymbolTable) String() string {
	out := "SymbolTable{"
	first := true
	for name, v := range t.vars {
		if !first {
			out += ", "
		}
		first = false
		out += name
		out += ":"
		out += v.Name
	}
	return out + "}"
}
