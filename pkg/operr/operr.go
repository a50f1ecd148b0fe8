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

// Package operr defines the optimizer's error kinds. It wraps
// github.com/cockroachdb/errors so every constructed error carries a
// stack trace, and exposes a Kind accessor so callers can classify an
// error without string matching.
package operr

import (
	"github.com/cockroachdb/errors"
)

// Kind classifies an optimizer error. NoTransform is deliberately not a
// Kind: a rule declining to rewrite is communicated by an empty
// TransformResult, never by returning an error.
type Kind int

const (
	KindUnknown Kind = iota
	KindIndexNotFound
	KindSemanticError
	KindPlanError
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindIndexNotFound:
		return "IndexNotFound"
	case KindSemanticError:
		return "SemanticError"
	case KindPlanError:
		return "PlanError"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type every constructor in this package
// returns.
type Error struct {
	kind  Kind
	cause error
}

func (e *Error) Error() string { return e.kind.String() + ": " + e.cause.Error() }

func (e *Error) Unwrap() error { return e.cause }

// GetKind reports the classification of err, or KindUnknown if err was
// not constructed by this package.
func GetKind(err error) Kind {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.kind
	}
	return KindUnknown
}

// Is reports whether err was constructed with the given Kind.
func Is(err error, k Kind) bool {
	return GetKind(err) == k
}

func newKind(k Kind, format string, args ...interface{}) *Error {
	return &Error{kind: k, cause: errors.Newf(format, args...)}
}

// NewIndexNotFound reports that the index selector ran out of candidate
// indexes for a filter shape it had already committed to rewriting.
func NewIndexNotFound(format string, args ...interface{}) error {
	return newKind(KindIndexNotFound, format, args...)
}

// NewSemanticError reports a filter-to-column-hint lowering failure: the
// input filter violates an implicit assumption of the lowering (e.g.
// contradictory equalities on one column, a range scan on a type with no
// ordering).
func NewSemanticError(format string, args ...interface{}) error {
	return newKind(KindSemanticError, format, args...)
}

// NewPlanError reports a broken plan-level invariant detected while
// inspecting a matched subtree (unexpected dependency count, missing
// symbol-table entry, reachability violation).
func NewPlanError(format string, args ...interface{}) error {
	return newKind(KindPlanError, format, args...)
}

// NewInternal reports a bug: an invariant the driver itself is
// responsible for maintaining has broken.
func NewInternal(format string, args ...interface{}) error {
	return newKind(KindInternal, format, args...)
}
