package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// amountReader applies an AmountPolicy to the cells of one table.
type amountReader struct {
	sheet  string
	family FormatFamily
	policy AmountPolicy
	diag   *Diagnostics
}

// read returns the amount of a cell and whether the row survives.
func (r amountReader) read(row int, column string, raw any) (decimal.Decimal, bool, error) {
	d, err := ParseAmount(raw, r.family)
	switch {
	case err == nil:
		return d, true, nil
	case errors.Is(err, ErrEmptyAmount):
		r.diag.Empty++
		return decimal.Zero, true, nil
	case errors.Is(err, ErrUnknownFormat):
		return decimal.Zero, false, err
	}

	r.diag.recordMalformed(Fallback{Sheet: r.sheet, Row: row, Column: column, Raw: fmt.Sprint(raw)})
	switch r.policy {
	case PolicyStrict:
		return decimal.Zero, false, &ValueError{Sheet: r.sheet, Row: row, Column: column, Raw: raw, Err: err}
	case PolicySkip:
		return decimal.Zero, false, nil
	default:
		return decimal.Zero, true, nil
	}
}

// ReadMovements normalizes the records of a movements table. Rows are not
// tagged with a category. The caller is expected to have checked the
// required columns with CheckColumns; a missing column reads as empty.
func ReadMovements(t RawTable, family FormatFamily, cols MovementColumns, policy AmountPolicy) ([]MovementRow, Diagnostics, error) {
	var diag Diagnostics
	if !family.IsValid() {
		return nil, diag, fmt.Errorf("%w: %s", ErrUnknownFormat, family)
	}
	idx := NewHeaderIndex(t)
	periodCol, _ := idx.Lookup(cols.Period)
	providerCol, _ := idx.Lookup(cols.Provider)
	amountCol, _ := idx.Lookup(cols.Amount)
	known := map[string]bool{periodCol: true, providerCol: true, amountCol: true}

	amounts := amountReader{sheet: t.Sheet, family: family, policy: policy, diag: &diag}
	rows := make([]MovementRow, 0, len(t.Records))
	for i, rec := range t.Records {
		amount, keep, err := amounts.read(i+1, amountCol, rec[amountCol])
		if err != nil {
			return nil, diag, err
		}
		if !keep {
			diag.Skipped++
			continue
		}
		period, ok := ParsePeriod(rec[periodCol])
		if !ok {
			diag.BadPeriods++
		}
		rows = append(rows, MovementRow{
			Period:   period,
			Provider: cellText(rec[providerCol]),
			Amount:   amount,
			Extra:    extraColumns(rec, known),
		})
	}
	return rows, diag, nil
}

// ReadSummaries normalizes the records of a summary table. The three amount
// columns are read independently; under PolicySkip a single malformed cell
// drops the whole row.
func ReadSummaries(t RawTable, family FormatFamily, cols SummaryColumns, policy AmountPolicy) ([]SummaryRow, Diagnostics, error) {
	var diag Diagnostics
	if !family.IsValid() {
		return nil, diag, fmt.Errorf("%w: %s", ErrUnknownFormat, family)
	}
	idx := NewHeaderIndex(t)
	periodCol, _ := idx.Lookup(cols.Period)
	assignedCol, _ := idx.Lookup(cols.Assigned)
	spentCol, _ := idx.Lookup(cols.Spent)
	balanceCol, _ := idx.Lookup(cols.Balance)

	amounts := amountReader{sheet: t.Sheet, family: family, policy: policy, diag: &diag}
	rows := make([]SummaryRow, 0, len(t.Records))
	for i, rec := range t.Records {
		var (
			values [3]decimal.Decimal
			keep   = true
		)
		for j, col := range [3]string{assignedCol, spentCol, balanceCol} {
			v, ok, err := amounts.read(i+1, col, rec[col])
			if err != nil {
				return nil, diag, err
			}
			values[j] = v
			keep = keep && ok
		}
		if !keep {
			diag.Skipped++
			continue
		}
		period, ok := ParsePeriod(rec[periodCol])
		if !ok {
			diag.BadPeriods++
		}
		rows = append(rows, SummaryRow{
			Period:   period,
			Assigned: values[0],
			Spent:    values[1],
			Balance:  values[2],
		})
	}
	return rows, diag, nil
}

func cellText(v any) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func extraColumns(rec RawRecord, known map[string]bool) map[string]any {
	var extra map[string]any
	for k, v := range rec {
		if known[k] {
			continue
		}
		if extra == nil {
			extra = make(map[string]any, len(rec))
		}
		extra[k] = v
	}
	return extra
}
