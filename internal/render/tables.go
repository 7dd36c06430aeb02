// Package render writes reports for terminals and files: go-pretty tables
// in several styles, or JSON.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"

	"cajas/internal/core"
	"cajas/internal/report"
	"cajas/internal/services"
)

type Format string

const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatMarkdown, FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("invalid output format %q: must be one of [table markdown csv json]", s)
	}
}

// Section selects which parts of a report are written.
type Section string

const (
	SectionSummary     Section = "summary"
	SectionGroups      Section = "groups"
	SectionMovements   Section = "movements"
	SectionDiagnostics Section = "diagnostics"
)

type Options struct {
	Format    Format
	Formatter Formatter
	Sections  []Section
	// Color enables ANSI styling in FormatTable.
	Color bool
}

func (o Options) wants(s Section) bool {
	if len(o.Sections) == 0 {
		return s != SectionMovements && s != SectionDiagnostics
	}
	for _, x := range o.Sections {
		if x == s {
			return true
		}
	}
	return false
}

// Report writes r according to opts.
func Report(w io.Writer, r services.Report, opts Options) error {
	if opts.Format == "" {
		opts.Format = FormatTable
	}
	if opts.Formatter.printer == nil {
		opts.Formatter = MustFormatter(DefaultLocale, "$")
	}
	if opts.Format == FormatJSON {
		return JSON(w, r)
	}

	var tables []table.Writer
	if opts.wants(SectionSummary) {
		tables = append(tables, SummaryTable(r.Summaries, r.Overall, opts.Formatter))
	}
	if opts.wants(SectionGroups) {
		tables = append(tables, GroupTable(r.Groups, r.GroupBy, opts.Formatter))
	}
	if opts.wants(SectionMovements) {
		tables = append(tables, MovementTable(r.Movements, r.MovementTotal, opts.Formatter))
	}
	if opts.wants(SectionDiagnostics) {
		tables = append(tables, DiagnosticsTable(r.Diagnostics))
	}

	for i, t := range tables {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := write(w, t, opts); err != nil {
			return err
		}
	}
	return nil
}

func write(w io.Writer, t table.Writer, opts Options) error {
	if opts.Color && opts.Format == FormatTable {
		t.SetStyle(table.StyleColoredBright)
	} else {
		t.SetStyle(table.StyleRounded)
	}
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault

	var out string
	switch opts.Format {
	case FormatMarkdown:
		out = t.RenderMarkdown()
	case FormatCSV:
		out = t.RenderCSV()
	default:
		out = t.Render()
	}
	_, err := fmt.Fprintln(w, out)
	return err
}

// JSON writes v indented. Amounts stay decimal strings.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func rightAlign(cols ...int) []table.ColumnConfig {
	out := make([]table.ColumnConfig, 0, len(cols))
	for _, c := range cols {
		out = append(out, table.ColumnConfig{Number: c, Align: text.AlignRight, AlignFooter: text.AlignRight})
	}
	return out
}

func SummaryTable(rows []report.AggregateResult, overall report.AggregateResult, f Formatter) table.Writer {
	t := table.NewWriter()
	t.SetTitle("Resumen por caja")
	t.AppendHeader(table.Row{"Categoría", "Asignado", "Gastado", "Saldo", "% Gastado", "% Saldo"})
	for _, r := range rows {
		t.AppendRow(table.Row{
			r.Category,
			f.Amount(r.TotalAssigned),
			f.Amount(r.TotalSpent),
			f.Amount(r.TotalBalance),
			f.Percent(r.PercentSpent),
			f.Percent(r.PercentBalance),
		})
	}
	t.AppendFooter(table.Row{
		overall.Category,
		f.Amount(overall.TotalAssigned),
		f.Amount(overall.TotalSpent),
		f.Amount(overall.TotalBalance),
		f.Percent(overall.PercentSpent),
		f.Percent(overall.PercentBalance),
	})
	t.SetColumnConfigs(rightAlign(2, 3, 4, 5, 6))
	return t
}

func GroupTable(groups []report.GroupTotal, key report.GroupKey, f Formatter) table.Writer {
	t := table.NewWriter()
	header, title := groupLabels(key)
	t.SetTitle("Gasto por " + title)
	t.AppendHeader(table.Row{header, "Total", "Movimientos", "Promedio"})
	total, count := decimal.Zero, 0
	for _, g := range groups {
		t.AppendRow(table.Row{g.Key, f.Amount(g.Total), f.Int(g.Count), f.Amount(g.Mean)})
		total = total.Add(g.Total)
		count += g.Count
	}
	t.AppendFooter(table.Row{report.OverallCategory, f.Amount(total), f.Int(count), ""})
	t.SetColumnConfigs(rightAlign(2, 3, 4))
	return t
}

func groupLabels(key report.GroupKey) (header, title string) {
	switch key {
	case report.ByCategory:
		return "Categoría", "categoría"
	case report.ByPeriod:
		return "Periodo", "periodo"
	default:
		return "Proveedor", "proveedor"
	}
}

func MovementTable(rows []core.MovementRow, total decimal.Decimal, f Formatter) table.Writer {
	t := table.NewWriter()
	t.SetTitle("Movimientos")
	t.AppendHeader(table.Row{"Categoría", "Periodo", "Proveedor", "Monto"})
	for _, r := range rows {
		period := "-"
		if r.Period.IsValid() {
			period = r.Period.String()
		}
		t.AppendRow(table.Row{r.Category, period, r.Provider, f.Amount(r.Amount)})
	}
	t.AppendFooter(table.Row{report.OverallCategory, "", f.Int(len(rows)), f.Amount(total)})
	t.SetColumnConfigs(rightAlign(2, 4))
	return t
}

func DiagnosticsTable(d core.Diagnostics) table.Writer {
	t := table.NewWriter()
	t.SetTitle("Calidad de datos")
	t.AppendHeader(table.Row{"Hoja", "Fila", "Columna", "Valor"})
	for _, s := range d.Samples {
		t.AppendRow(table.Row{s.Sheet, s.Row, s.Column, s.Raw})
	}
	t.AppendFooter(table.Row{
		fmt.Sprintf("vacías: %d", d.Empty),
		fmt.Sprintf("inválidas: %d", d.Malformed),
		fmt.Sprintf("omitidas: %d", d.Skipped),
		fmt.Sprintf("periodos: %d", d.BadPeriods),
	})
	return t
}
