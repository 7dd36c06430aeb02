package report

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"cajas/internal/core"
)

// GroupKey selects the movement column used by GroupSum.
type GroupKey string

const (
	ByProvider GroupKey = "provider"
	ByCategory GroupKey = "category"
	ByPeriod   GroupKey = "period"
)

// ParseGroupKey parses a group key; the empty string means ByProvider.
func ParseGroupKey(s string) (GroupKey, error) {
	switch k := GroupKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return ByProvider, nil
	case ByProvider, ByCategory, ByPeriod:
		return k, nil
	default:
		return "", fmt.Errorf("invalid group key %q: must be one of [provider category period]", s)
	}
}

func (k GroupKey) value(r core.MovementRow) string {
	switch k {
	case ByCategory:
		return r.Category
	case ByPeriod:
		return r.Period.String()
	default:
		return r.Provider
	}
}

// GroupTotal is one entry of a grouped sum.
type GroupTotal struct {
	Key   string          `json:"key"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
	Mean  decimal.Decimal `json:"mean"`
}

// GroupSum sums movement amounts per key value. The result is ordered by
// descending total; equal totals keep the order in which the key was first
// seen. Unknown keys group by provider.
func GroupSum(rows []core.MovementRow, key GroupKey) []GroupTotal {
	index := map[string]int{}
	out := make([]GroupTotal, 0)
	for _, r := range rows {
		k := key.value(r)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, GroupTotal{Key: k, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(r.Amount)
		out[i].Count++
	}
	for i := range out {
		out[i].Mean = out[i].Total.Div(decimal.NewFromInt(int64(out[i].Count)))
	}
	slices.SortStableFunc(out, func(a, b GroupTotal) int {
		return b.Total.Cmp(a.Total)
	})
	return out
}

// Total sums the amounts of rows.
func Total(rows []core.MovementRow) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.Amount)
	}
	return sum
}

// Distinct returns the distinct non-zero keys of rows in first-seen order.
func Distinct[T any, K comparable](rows []T, key func(T) K) []K {
	var zero K
	seen := map[K]struct{}{}
	out := make([]K, 0)
	for _, r := range rows {
		k := key(r)
		if k == zero {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func Providers(rows []core.MovementRow) []string {
	return Distinct(rows, func(r core.MovementRow) string { return r.Provider })
}

func Categories(rows []core.MovementRow) []string {
	return Distinct(rows, func(r core.MovementRow) string { return r.Category })
}

// Periods returns the known periods present in rows, ascending.
func Periods(rows []core.MovementRow) []core.Period {
	ps := Distinct(rows, func(r core.MovementRow) core.Period { return r.Period })
	slices.Sort(ps)
	return ps
}
