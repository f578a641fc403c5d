// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/hostqe/upgradecheck/pkg/orchestrator"
	"github.com/hostqe/upgradecheck/pkg/upgrade"
)

func casesCmd() *cli.Command {
	return &cli.Command{
		Name:  "cases",
		Usage: "List the available cases and the strategies that run them by default",
		Action: func(_ context.Context, _ *cli.Command) error {
			return printCases(os.Stdout)
		},
	}
}

func printCases(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CASE\tDEFAULT FOR")
	for _, c := range orchestrator.Cases() {
		var strategies []string
		for _, s := range upgrade.Strategies() {
			if slices.Contains(orchestrator.DefaultCases(s), c) {
				strategies = append(strategies, s.String())
			}
		}
		fmt.Fprintf(tw, "%s\t%s\n", c, strings.Join(strategies, ", "))
	}
	return tw.Flush()
}
