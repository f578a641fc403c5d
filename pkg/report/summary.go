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

package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titler = cases.Title(language.English)

// Title turns a case or check name such as "basic_upgrade_check" or
// "imgbase-layout" into "Basic Upgrade Check" or "Imgbase Layout".
func Title(name string) string {
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return titler.String(name)
}

// WriteSummary prints a human readable summary of the run.
func (r *Report) WriteSummary(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(tw, "Run:\t%s\n", r.RunID)
	_, _ = fmt.Fprintf(tw, "Host:\t%s\n", r.Host)
	_, _ = fmt.Fprintf(tw, "Strategy:\t%s\n", Title(r.Strategy))
	_, _ = fmt.Fprintf(tw, "Upgrade:\t%s -> %s\n", r.Source, r.Target)
	_, _ = fmt.Fprintf(tw, "Status:\t%s\n", Title(string(r.Status)))
	if r.Error != "" {
		_, _ = fmt.Fprintf(tw, "Error:\t%s\n", r.Error)
	}
	_, _ = fmt.Fprintf(tw, "Duration:\t%s\n", r.Duration().Round(time.Second))

	if len(r.Cases) > 0 {
		_, _ = fmt.Fprintln(tw)
		_, _ = fmt.Fprintln(tw, "CASE\tSTATUS\tDURATION\tMESSAGE")
		_, _ = fmt.Fprintln(tw, "----\t------\t--------\t-------")
		for _, c := range r.Cases {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				Title(c.Name), c.Status, c.Duration.Round(time.Millisecond), firstLine(c.Message))
		}
	}

	if v := r.Verification; v != nil && len(v.Results) > 0 {
		_, _ = fmt.Fprintln(tw)
		_, _ = fmt.Fprintln(tw, "GROUP\tCHECK\tSTATUS\tCODE")
		_, _ = fmt.Fprintln(tw, "-----\t-----\t------\t----")
		for _, c := range v.Results {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", Title(c.Group), c.Name, c.Status, c.Code)
		}
	}

	return tw.Flush()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
