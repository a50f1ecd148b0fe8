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

// InsertAlternative inserts gn as an additional candidate realization of
// g and returns a non-nil, otherwise-empty TransformResult. Pushdown
// rules whose rewrite target is a dependency or boundary group rather
// than the matched group itself use this: the matched group is left
// untouched (no erase, no new node of its own), but returning a non-nil
// result still tells the driver a rewrite happened elsewhere in the DAG
// so the fixed point keeps iterating. Reserve NoTransform for rules that
// truly made no change anywhere.
func InsertAlternative(g *memo.Group, gn *memo.GroupNode) (*TransformResult, error) {
	if err := g.Insert(gn); err != nil {
		return nil, err
	}
	return NewTransformResult(nil, false, false), nil
}
