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

// Package optconfig loads the optimizer's tunables from an optional TOML
// file, the way the rest of this module's ancestry loads server-wide
// engine knobs.
package optconfig

import (
	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
)

// Defaults match spec section 4.4: a small outer iteration cap and a
// small per-rule exploration cap.
const (
	DefaultMaxIterationRound  = 8
	DefaultMaxExplorationRound = 8
)

// Config tunes the fixed-point driver's round caps and lets individual
// rules be disabled without recompiling.
type Config struct {
	MaxIterationRound  int             `toml:"max_iteration_round"`
	MaxExplorationRound int            `toml:"max_exploration_round"`
	DisabledRules      []string        `toml:"disabled_rules"`
	disabled           map[string]bool `toml:"-"`
}

// Default returns a Config with the spec's default round caps and no
// disabled rules.
func Default() *Config {
	return &Config{
		MaxIterationRound:   DefaultMaxIterationRound,
		MaxExplorationRound: DefaultMaxExplorationRound,
		disabled:            make(map[string]bool),
	}
}

// Load reads a TOML file at path and overlays it onto the defaults.
// Unset fields keep their default value.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, errors.Wrapf(err, "optconfig: load %q", path)
	}
	if cfg.MaxIterationRound <= 0 {
		cfg.MaxIterationRound = DefaultMaxIterationRound
	}
	if cfg.MaxExplorationRound <= 0 {
		cfg.MaxExplorationRound = DefaultMaxExplorationRound
	}
	cfg.index()
	return cfg, nil
}

func (c *Config) index() {
	c.disabled = make(map[string]bool, len(c.DisabledRules))
	for _, r := range c.DisabledRules {
		c.disabled[r] = true
	}
}

// RuleEnabled reports whether a rule named name is enabled. Rules never
// listed in DisabledRules are enabled by default.
func (c *Config) RuleEnabled(name string) bool {
	if c.disabled == nil {
		c.index()
	}
	return !c.disabled[name]
}
