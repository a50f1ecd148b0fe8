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

// Package oplog wraps go.uber.org/zap behind the small logging surface
// the optimizer uses: per-rule-attempt debug traces, per-round info
// summaries, and budget-exhaustion warnings.
package oplog

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu     sync.RWMutex
	global *zap.Logger
)

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	global = l
}

// SetLogger replaces the process-wide logger, e.g. to install a
// development logger in tests or the CLI.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	global = l
}

func get() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// L returns the current logger, named for the given component, the way
// the rest of this module expects to call oplog.L("optimizer").Info(...).
func L(component string) *zap.Logger {
	return get().Named(component)
}

// RuleAttempt logs a single rule match attempt at debug level.
func RuleAttempt(rule string, groupID int64, matched bool) {
	get().Named("rule").Debug("rule attempt",
		zap.String("rule", rule),
		zap.Int64("group", groupID),
		zap.Bool("matched", matched),
	)
}

// RuleApplied logs a successful transform at debug level.
func RuleApplied(rule string, groupID int64, newNodes int, eraseCurr, eraseAll bool) {
	get().Named("rule").Debug("rule applied",
		zap.String("rule", rule),
		zap.Int64("group", groupID),
		zap.Int("newGroupNodes", newNodes),
		zap.Bool("eraseCurr", eraseCurr),
		zap.Bool("eraseAll", eraseAll),
	)
}

// IterationSummary logs one fixed-point driver iteration at info level.
func IterationSummary(round int, changed bool) {
	get().Named("driver").Info("iteration complete",
		zap.Int("round", round),
		zap.Bool("changed", changed),
	)
}

// BudgetExhausted logs that a round cap was hit before reaching a fixed
// point.
func BudgetExhausted(what string, cap int) {
	get().Named("driver").Warn("round budget exhausted",
		zap.String("budget", what),
		zap.Int("cap", cap),
	)
}
