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

// Package rule defines the OptRule contract and the shared data-flow
// preservation checks every rule's default Match relies on.
package rule

import (
	"github.com/matrixorigin/graphoptimizer/pkg/memo"
	"github.com/matrixorigin/graphoptimizer/pkg/pattern"
	"github.com/matrixorigin/graphoptimizer/pkg/qctx"
)

// OptRule is a (pattern, match, transform) triple that may replace a
// matched subtree with an equivalent one.
type OptRule interface {
	// Pattern returns the structural constraint this rule's candidate
	// subtrees must satisfy.
	Pattern() *pattern.Pattern
	// Match applies extra semantic constraints beyond the pattern shape.
	// A false result (with nil error) means "doesn't apply here", not a
	// bug. A non-nil error means the rule hit a genuine invariant
	// violation while inspecting the match.
	Match(qc *qctx.QueryContext, matched *pattern.MatchedResult) (bool, error)
	// Transform performs the rewrite. Returning (nil, nil) is the
	// NoTransform sentinel: the pattern matched and Match accepted, but
	// the rule declined to rewrite. A non-nil error aborts this rule's
	// application (IndexNotFound, SemanticError, PlanError, Internal).
	Transform(qc *qctx.QueryContext, matched *pattern.MatchedResult) (*TransformResult, error)
	// String is the rule's debug/log name.
	String() string
}

// TransformResult is the outcome of a successful rewrite.
type TransformResult struct {
	NewGroupNodes []*memo.GroupNode
	EraseCurr     bool
	EraseAll      bool
}

// NewTransformResult builds a TransformResult, normalizing the legacy
// "both eraseAll and eraseCurr set" shape into plain eraseAll — the
// coalescing spec.md's design notes call for.
func NewTransformResult(newNodes []*memo.GroupNode, eraseCurr, eraseAll bool) *TransformResult {
	if eraseAll {
		eraseCurr = false
	}
	return &TransformResult{NewGroupNodes: newNodes, EraseCurr: eraseCurr, EraseAll: eraseAll}
}

// NoTransform is the sentinel "no transform" result: a nil
// *TransformResult and a nil error, never an error value.
func NoTransform() (*TransformResult, error) { return nil, nil }
