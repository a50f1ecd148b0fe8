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

import "github.com/matrixorigin/graphoptimizer/pkg/memo"

// noopChangeSink discards MarkChanged: groups a rule mints on the fly
// (to host a brand-new intermediate operator introduced by a rewrite,
// rather than an existing boundary group) don't need one, since the
// fixed-point driver already learns a rewrite happened from the
// TransformResult the rule returns for its matched group.
type noopChangeSink struct{}

func (noopChangeSink) MarkChanged() {}

// NewGroup mints a fresh, non-root group not yet reachable from
// anywhere in the memo. Callers insert at least one group node into it
// and then reference it as a dependency from a group node they return in
// a TransformResult (or insert directly via InsertAlternative) — an
// orphaned group with no referrer is released the next time anything
// touches its referrer set.
func NewGroup(outputVar string, colNames []string) *memo.Group {
	return memo.NewGroup(noopChangeSink{}, outputVar, colNames, false)
}
