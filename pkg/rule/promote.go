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

// PromoteChild clones childGN's plan node under outputVar and wraps it
// in a fresh GroupNode with childGN's own dependency/body groups. Rules
// that drop an intervening operator (RemoveNoopProject,
// EliminateAppendVertices, MergeGetVerticesAndDedup, ...) use it to
// adopt a child's shape directly into the parent's group while
// preserving the parent's output variable identity.
func PromoteChild(childGN *memo.GroupNode, outputVar string) *memo.GroupNode {
	clone := childGN.Node().Clone()
	clone.SetOutputVar(outputVar)
	return memo.NewGroupNode(clone, childGN.Dependencies(), childGN.Bodies())
}
