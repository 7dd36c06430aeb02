package report

import (
	"github.com/shopspring/decimal"

	"cajas/internal/core"
)

// OverallCategory labels the grand total returned by Overall.
const OverallCategory = "Total"

var hundred = decimal.NewFromInt(100)

// AggregateResult holds the summed summary rows of one category over a set of
// periods. Percentages are zero when nothing was assigned.
type AggregateResult struct {
	Category       string          `json:"category"`
	Periods        []core.Period   `json:"periods,omitempty"`
	Rows           int             `json:"rows"`
	TotalAssigned  decimal.Decimal `json:"total_assigned"`
	TotalSpent     decimal.Decimal `json:"total_spent"`
	TotalBalance   decimal.Decimal `json:"total_balance"`
	PercentSpent   float64         `json:"percent_spent"`
	PercentBalance float64         `json:"percent_balance"`
}

// SummarizeCategory sums assigned, spent and balance over the rows of category
// whose period is selected. An empty restriction yields an all-zero result.
func SummarizeCategory(rows []core.SummaryRow, category string, periods Selection[core.Period]) AggregateResult {
	res := AggregateResult{
		Category:      category,
		TotalAssigned: decimal.Zero,
		TotalSpent:    decimal.Zero,
		TotalBalance:  decimal.Zero,
	}
	if !periods.IsAll() {
		res.Periods = append([]core.Period(nil), periods...)
	}
	for _, r := range rows {
		if r.Category != category || !periods.Matches(r.Period) {
			continue
		}
		res.Rows++
		res.TotalAssigned = res.TotalAssigned.Add(r.Assigned)
		res.TotalSpent = res.TotalSpent.Add(r.Spent)
		res.TotalBalance = res.TotalBalance.Add(r.Balance)
	}
	res.PercentSpent, res.PercentBalance = percents(res.TotalAssigned, res.TotalSpent)
	return res
}

// SummarizeAll runs SummarizeCategory for each category in order.
func SummarizeAll(rows []core.SummaryRow, categories []string, periods Selection[core.Period]) []AggregateResult {
	out := make([]AggregateResult, 0, len(categories))
	for _, c := range categories {
		out = append(out, SummarizeCategory(rows, c, periods))
	}
	return out
}

// Overall adds up per-category results into one grand total.
func Overall(results []AggregateResult) AggregateResult {
	total := AggregateResult{
		Category:      OverallCategory,
		TotalAssigned: decimal.Zero,
		TotalSpent:    decimal.Zero,
		TotalBalance:  decimal.Zero,
	}
	for _, r := range results {
		if total.Periods == nil && r.Periods != nil {
			total.Periods = append([]core.Period(nil), r.Periods...)
		}
		total.Rows += r.Rows
		total.TotalAssigned = total.TotalAssigned.Add(r.TotalAssigned)
		total.TotalSpent = total.TotalSpent.Add(r.TotalSpent)
		total.TotalBalance = total.TotalBalance.Add(r.TotalBalance)
	}
	total.PercentSpent, total.PercentBalance = percents(total.TotalAssigned, total.TotalSpent)
	return total
}

// percents returns spent/assigned*100 and its complement to 100.
func percents(assigned, spent decimal.Decimal) (float64, float64) {
	if !assigned.IsPositive() {
		return 0, 0
	}
	pct := spent.Div(assigned).Mul(hundred)
	return pct.InexactFloat64(), hundred.Sub(pct).InexactFloat64()
}
