package main

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/nexconsult/nif-lookup/internal/models"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

// renderSummary prints the per-status counts of a finished run. submitted is
// the number of input names, which exceeds Total when the run was interrupted.
func renderSummary(out io.Writer, s models.BatchSummary, submitted int) {
	t := newTable(out)
	t.SetTitle("NIF lookup summary")
	t.AppendHeader(table.Row{"Outcome", "Companies"})
	t.AppendRows([]table.Row{
		{"Succeeded", s.Succeeded},
		{"  from cache", s.CacheHits},
		{"  suspect identifier", s.Suspect},
		{"  name mismatch", s.NameMismatch},
		{models.PlaceholderNotFound, s.IdentifierNotFound},
		{models.PlaceholderPageNotFound, s.PageNotFound},
		{"Search failed", s.SearchFailed},
	})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Retries", s.Retries})
	if submitted > s.Total {
		t.AppendRow(table.Row{"Not processed", submitted - s.Total})
	}
	t.AppendFooter(table.Row{"Total", s.Total})
	t.AppendFooter(table.Row{"Duration", s.Duration.Round(time.Second).String()})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	t.Render()
}
