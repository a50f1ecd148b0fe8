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

// Command planopt is an operational entry point for exercising the
// optimizer outside of a test: it loads a JSON plan fixture and a JSON
// catalog fixture, runs the full rule pipeline, and prints either the
// winning plan or a full memo dump.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"

	"github.com/matrixorigin/graphoptimizer/pkg/oplog"
	"github.com/matrixorigin/graphoptimizer/pkg/optconfig"
	"github.com/matrixorigin/graphoptimizer/pkg/optimizer"
	"github.com/matrixorigin/graphoptimizer/pkg/planfile"
	"github.com/matrixorigin/graphoptimizer/pkg/qctx"
	"github.com/matrixorigin/graphoptimizer/pkg/rules"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		planPath    string
		catalogPath string
		configPath  string
		spaceID     int64
		dumpMemo    bool
	)

	cmd := &cobra.Command{
		Use:   "planopt",
		Short: "Run the graph query-plan optimizer against a JSON plan fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := planfile.LoadPlan(planPath)
			if err != nil {
				return err
			}
			cat, err := planfile.LoadCatalog(catalogPath)
			if err != nil {
				return err
			}
			cfg := optconfig.Default()
			if configPath != "" {
				cfg, err = optconfig.Load(configPath)
				if err != nil {
					return err
				}
			}

			qc := qctx.New(root, cat, spaceID)
			opt := optimizer.New(cfg, rules.NewDefaultRules(), rules.NewQueryRules())

			var out []byte
			if dumpMemo {
				rootGroup, err := opt.Explore(qc)
				if err != nil {
					return err
				}
				out, err = json.Marshal(planfile.DumpGroup(rootGroup))
				if err != nil {
					return err
				}
			} else {
				best, err := opt.FindBestPlan(qc)
				if err != nil {
					return err
				}
				out, err = json.Marshal(planfile.PlanToDTO(best))
				if err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(pretty.Pretty(out)))
			return nil
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "path to a JSON plannode.Node fixture (required)")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "path to a JSON catalog fixture (required)")
	cmd.Flags().StringVar(&configPath, "config", "", "path to an optconfig TOML file (optional, default tunables if omitted)")
	cmd.Flags().Int64Var(&spaceID, "space", 0, "graph space id the plan runs against")
	cmd.Flags().BoolVar(&dumpMemo, "dump-memo", false, "print the full memo (every surviving candidate) instead of just the winning plan")
	_ = cmd.MarkFlagRequired("plan")
	_ = cmd.MarkFlagRequired("catalog")

	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if l, err := zap.NewDevelopment(); err == nil {
			oplog.SetLogger(l)
		}
	}

	return cmd
}
