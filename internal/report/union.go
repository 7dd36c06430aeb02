// Package report merges the normalized per-category tables and computes the
// aggregates shown on the dashboard. Every function is pure: inputs are never
// mutated and the same inputs always give the same outputs.
package report

import (
	"fmt"
	"strings"

	"cajas/internal/core"
)

// Tagger is a row that can be stamped with a category label.
type Tagger[T any] interface {
	WithCategory(category string) T
}

// TagCategory returns a new slice with every row stamped with category.
func TagCategory[T Tagger[T]](rows []T, category string) []T {
	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = r.WithCategory(category)
	}
	return out
}

type (
	// MovementInput is one movements table together with the configuration
	// needed to read it. A zero Columns means core.DefaultColumns.
	MovementInput struct {
		Category string
		Family   core.FormatFamily
		Table    core.RawTable
		Columns  core.MovementColumns
		Policy   core.AmountPolicy
	}

	// SummaryInput is one summary table and its configuration.
	SummaryInput struct {
		Category string
		Family   core.FormatFamily
		Table    core.RawTable
		Columns  core.SummaryColumns
		Policy   core.AmountPolicy
	}
)

func (in MovementInput) columns() core.MovementColumns {
	return core.Columns{Movements: in.Columns}.WithDefaults().Movements
}

func (in SummaryInput) columns() core.SummaryColumns {
	return core.Columns{Summary: in.Columns}.WithDefaults().Summary
}

func checkBinding(category string, family core.FormatFamily) error {
	if strings.TrimSpace(category) == "" {
		return &core.ConfigurationError{Reason: "category name is empty"}
	}
	if !family.IsValid() {
		return &core.ConfigurationError{Category: category, Reason: fmt.Sprintf("no format family bound (%s)", family)}
	}
	return nil
}

// UnionMovements normalizes, tags and concatenates movement tables in input
// order. Every input is validated before any row is built, so a missing
// column fails with *core.SchemaError and no rows at all.
func UnionMovements(inputs ...MovementInput) ([]core.MovementRow, core.Diagnostics, error) {
	var diag core.Diagnostics
	for _, in := range inputs {
		if err := checkBinding(in.Category, in.Family); err != nil {
			return nil, diag, err
		}
		if err := core.CheckColumns(in.Table, in.Category, in.columns().Required()); err != nil {
			return nil, diag, err
		}
	}

	out := make([]core.MovementRow, 0)
	for _, in := range inputs {
		rows, d, err := core.ReadMovements(in.Table, in.Family, in.columns(), in.Policy)
		diag.Merge(d)
		if err != nil {
			return nil, diag, fmt.Errorf("category %q: %w", in.Category, err)
		}
		out = append(out, TagCategory(rows, in.Category)...)
	}
	return out, diag, nil
}

// UnionSummaries is UnionMovements for summary tables.
func UnionSummaries(inputs ...SummaryInput) ([]core.SummaryRow, core.Diagnostics, error) {
	var diag core.Diagnostics
	for _, in := range inputs {
		if err := checkBinding(in.Category, in.Family); err != nil {
			return nil, diag, err
		}
		if err := core.CheckColumns(in.Table, in.Category, in.columns().Required()); err != nil {
			return nil, diag, err
		}
	}

	out := make([]core.SummaryRow, 0)
	for _, in := range inputs {
		rows, d, err := core.ReadSummaries(in.Table, in.Family, in.columns(), in.Policy)
		diag.Merge(d)
		if err != nil {
			return nil, diag, fmt.Errorf("category %q: %w", in.Category, err)
		}
		out = append(out, TagCategory(rows, in.Category)...)
	}
	return out, diag, nil
}
