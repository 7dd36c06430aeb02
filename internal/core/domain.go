package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Default category labels of the two expense pools.
const (
	Repuestos = "Repuestos"
	Petroleo  = "Petróleo"
)

type (
	// RawRecord maps a column name to the raw cell value read from a sheet.
	// Values are nil, string, a numeric type or decimal.Decimal.
	RawRecord map[string]any

	// RawTable is one worksheet: its header row and the records below it.
	RawTable struct {
		Sheet   string
		Columns []string
		Records []RawRecord
	}

	MovementRow struct {
		Category string          `json:"category"`
		Period   Period          `json:"period"`
		Provider string          `json:"provider"`
		Amount   decimal.Decimal `json:"amount"`
		// Extra holds the passthrough columns of the source record.
		Extra map[string]any `json:"extra,omitempty"`
	}

	SummaryRow struct {
		Category string          `json:"category"`
		Period   Period          `json:"period"`
		Assigned decimal.Decimal `json:"assigned"`
		Spent    decimal.Decimal `json:"spent"`
		Balance  decimal.Decimal `json:"balance"`
	}

	// Binding ties a category to its format family and its worksheets.
	Binding struct {
		Category       string
		Family         FormatFamily
		MovementsSheet string
		SummarySheet   string
	}

	// Dataset is the result of one load cycle. It is never mutated; the next
	// reload supersedes it.
	Dataset struct {
		SnapshotID  int64
		LoadedAt    time.Time
		Movements   []MovementRow
		Summaries   []SummaryRow
		Diagnostics Diagnostics
	}
)

var (
	ErrEmptyAmount     = errors.New("empty amount")
	ErrMalformedAmount = errors.New("malformed amount")
	ErrUnknownFormat   = errors.New("unknown format family")
)

// WithCategory returns a copy of the row stamped with category.
func (m MovementRow) WithCategory(category string) MovementRow {
	m.Category = category
	return m
}

// WithCategory returns a copy of the row stamped with category.
func (s SummaryRow) WithCategory(category string) SummaryRow {
	s.Category = category
	return s
}

// Validate checks that the binding can drive a load.
func (b Binding) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return &ConfigurationError{Reason: "category name is empty"}
	}
	if !b.Family.IsValid() {
		return &ConfigurationError{Category: b.Category, Reason: "no format family bound"}
	}
	if strings.TrimSpace(b.MovementsSheet) == "" && strings.TrimSpace(b.SummarySheet) == "" {
		return &ConfigurationError{Category: b.Category, Reason: "no movements or summary sheet"}
	}
	return nil
}

// DefaultBindings reproduces the four worksheets of the original spreadsheet.
func DefaultBindings() []Binding {
	return []Binding{
		{
			Category:       Repuestos,
			Family:         ThousandsDotDecimalComma,
			MovementsSheet: "Movimientos Repuestos",
			SummarySheet:   "Resumen Repuestos",
		},
		{
			Category:       Petroleo,
			Family:         ThousandsCommaDecimalDot,
			MovementsSheet: "Movimientos Petróleo",
			SummarySheet:   "Resumen Petróleo",
		},
	}
}

// Categories returns the category labels of bindings in order.
func Categories(bindings []Binding) []string {
	out := make([]string, 0, len(bindings))
	for _, b := range bindings {
		out = append(out, b.Category)
	}
	return out
}

// SchemaError reports required columns absent from an input table.
type SchemaError struct {
	Sheet    string
	Category string
	Missing  []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: sheet %q (category %q) missing columns %s",
		e.Sheet, e.Category, strings.Join(e.Missing, ", "))
}

// ConfigurationError reports a binding that cannot be used, such as a
// category without a format family.
type ConfigurationError struct {
	Category string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Category == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: category %q: %s", e.Category, e.Reason)
}

// ValueError locates a malformed cell. It is only returned under PolicyStrict.
type ValueError struct {
	Sheet  string
	Row    int // 1-based data row, header excluded
	Column string
	Raw    any
	Err    error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("sheet %q row %d column %q: %v", e.Sheet, e.Row, e.Column, e.Err)
}

func (e *ValueError) Unwrap() error {
	return e.Err
}
