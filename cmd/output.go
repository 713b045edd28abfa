// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"strings"

	"archivist/internal/batch"
	"archivist/internal/catalog"
	"archivist/internal/config"
	"archivist/internal/formatters"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

func printProfiles(cfg *config.Config) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Profile", "Format", "Template", "Description"})
	for _, name := range cfg.ListProfiles() {
		p := cfg.Profiles[name]
		t.AppendRow(table.Row{name, p.Format, p.Template, p.Description})
	}
	t.Render()
}

func printTemplates(templates formatters.Templates) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 3, WidthMax: 80}})
	t.AppendHeader(table.Row{"Template", "Fields", "Columns"})
	for _, name := range templates.Names() {
		fields := templates[name]
		t.AppendRow(table.Row{name, len(fields), strings.Join(fields, ", ")})
	}
	t.Render()
}

func printRuns(runs []catalog.Run) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Archives", "Started"})
	total := 0
	for _, r := range runs {
		t.AppendRow(table.Row{r.RunID, r.Archives, r.StartedAt})
		total += r.Archives
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d runs", len(runs)), total, ""})
	t.Render()
}

// printSummary writes the run outcome to stderr so stdout stays free for
// the export.
func printSummary(summary *batch.Summary) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	bold := color.New(color.Bold)

	for _, r := range summary.Results {
		if r.OK() {
			locked := ""
			if r.Report != nil && r.Report.PeriodLocked {
				locked = " [period locked]"
			}
			fmt.Fprintf(os.Stderr, "  %s %s (%d pages, %d corrections)%s\n",
				green.Sprint("✓"), r.Name, r.PageCount, len(r.Report.Applied()), locked)
			continue
		}
		fmt.Fprintf(os.Stderr, "  %s %s: %s\n", red.Sprint("✗"), r.Name, r.Error)
	}

	fmt.Fprintf(os.Stderr, "%s run %s: %d archives, %d pages, %s, %s\n",
		bold.Sprint("Done."), summary.RunID, summary.TotalArchives, summary.TotalPages,
		green.Sprintf("%d succeeded", summary.SuccessCount),
		failColor(summary.FailCount, red).Sprintf("%d failed", summary.FailCount))
}

func failColor(n int, red *color.Color) *color.Color {
	if n == 0 {
		return color.New(color.Reset)
	}
	return red
}
