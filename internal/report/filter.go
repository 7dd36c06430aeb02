package report

import (
	"slices"
	"strings"

	"cajas/internal/core"
)

// All is the selection value that matches every row.
const All = "all"

// Selection is a multi-select filter value. An empty selection, or one
// holding the literal All, matches everything.
type Selection[T comparable] []T

// IsAll reports whether the selection is a no-op.
func (s Selection[T]) IsAll() bool {
	if len(s) == 0 {
		return true
	}
	for _, v := range s {
		if str, ok := any(v).(string); ok && strings.EqualFold(strings.TrimSpace(str), All) {
			return true
		}
	}
	return false
}

// Matches reports whether v is selected.
func (s Selection[T]) Matches(v T) bool {
	return s.IsAll() || slices.Contains(s, v)
}

// Filter holds one selection per dimension. The zero Filter matches all rows.
type Filter struct {
	Categories Selection[string]
	Periods    Selection[core.Period]
	Providers  Selection[string]
}

// FilterMovements returns the rows matching every dimension, in order.
func FilterMovements(rows []core.MovementRow, f Filter) []core.MovementRow {
	out := make([]core.MovementRow, 0, len(rows))
	for _, r := range rows {
		if f.Categories.Matches(r.Category) && f.Periods.Matches(r.Period) && f.Providers.Matches(r.Provider) {
			out = append(out, r)
		}
	}
	return out
}

// FilterSummaries applies the category and period selections. Summaries carry
// no provider, so Providers is ignored.
func FilterSummaries(rows []core.SummaryRow, f Filter) []core.SummaryRow {
	out := make([]core.SummaryRow, 0, len(rows))
	for _, r := range rows {
		if f.Categories.Matches(r.Category) && f.Periods.Matches(r.Period) {
			out = append(out, r)
		}
	}
	return out
}
