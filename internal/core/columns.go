package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type (
	// MovementColumns names the source columns of a movements sheet.
	MovementColumns struct {
		Period   string `yaml:"period"`
		Provider string `yaml:"provider"`
		Amount   string `yaml:"amount"`
	}

	// SummaryColumns names the source columns of a summary sheet.
	SummaryColumns struct {
		Period   string `yaml:"period"`
		Assigned string `yaml:"assigned"`
		Spent    string `yaml:"spent"`
		Balance  string `yaml:"balance"`
	}

	Columns struct {
		Movements MovementColumns `yaml:"movements"`
		Summary   SummaryColumns  `yaml:"summary"`
	}
)

// DefaultColumns returns the headers used by the original spreadsheet.
func DefaultColumns() Columns {
	return Columns{
		Movements: MovementColumns{
			Period:   "Periodo",
			Provider: "Proveedor",
			Amount:   "Monto",
		},
		Summary: SummaryColumns{
			Period:   "Periodo",
			Assigned: "Monto",
			Spent:    "Total Gastado",
			Balance:  "Saldo Actual",
		},
	}
}

// WithDefaults fills every empty column name from DefaultColumns.
func (c Columns) WithDefaults() Columns {
	d := DefaultColumns()
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&c.Movements.Period, d.Movements.Period)
	fill(&c.Movements.Provider, d.Movements.Provider)
	fill(&c.Movements.Amount, d.Movements.Amount)
	fill(&c.Summary.Period, d.Summary.Period)
	fill(&c.Summary.Assigned, d.Summary.Assigned)
	fill(&c.Summary.Spent, d.Summary.Spent)
	fill(&c.Summary.Balance, d.Summary.Balance)
	return c
}

// Required returns the column names a movements sheet must carry.
func (c MovementColumns) Required() []string {
	return []string{c.Period, c.Provider, c.Amount}
}

// Required returns the column names a summary sheet must carry.
func (c SummaryColumns) Required() []string {
	return []string{c.Period, c.Assigned, c.Spent, c.Balance}
}

// FoldHeader canonicalizes a header for comparison: accents removed,
// lower case, inner whitespace collapsed. "Período " and "periodo" match.
func FoldHeader(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}

// HeaderIndex maps folded header names to the exact names used in the table.
type HeaderIndex map[string]string

// NewHeaderIndex indexes the columns of t. When the header row is absent
// the keys of the records are used instead.
func NewHeaderIndex(t RawTable) HeaderIndex {
	idx := HeaderIndex{}
	add := func(name string) {
		key := FoldHeader(name)
		if key == "" {
			return
		}
		if _, ok := idx[key]; !ok {
			idx[key] = name
		}
	}
	if len(t.Columns) > 0 {
		for _, c := range t.Columns {
			add(c)
		}
		return idx
	}
	for _, rec := range t.Records {
		for k := range rec {
			add(k)
		}
	}
	return idx
}

// Lookup returns the exact header matching name.
func (h HeaderIndex) Lookup(name string) (string, bool) {
	actual, ok := h[FoldHeader(name)]
	return actual, ok
}

// CheckColumns returns a *SchemaError listing every required column absent
// from t, or nil.
func CheckColumns(t RawTable, category string, required []string) error {
	idx := NewHeaderIndex(t)
	var missing []string
	for _, name := range required {
		if _, ok := idx.Lookup(name); !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Sheet: t.Sheet, Category: category, Missing: missing}
	}
	return nil
}
