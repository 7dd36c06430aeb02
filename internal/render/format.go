package render

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultLocale matches the spreadsheet's audience.
const DefaultLocale = "es-CL"

// Formatter turns amounts and percentages into locale-aware display text.
// JSON output never goes through it.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
	symbol  string
}

// NewFormatter builds a formatter for a BCP 47 locale such as "es-CL". An
// empty locale means DefaultLocale.
func NewFormatter(locale, symbol string) (Formatter, error) {
	if strings.TrimSpace(locale) == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(locale), "_", "-"))
	if err != nil {
		return Formatter{}, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	return Formatter{tag: tag, printer: message.NewPrinter(tag), symbol: symbol}, nil
}

// MustFormatter is NewFormatter for constant locales.
func MustFormatter(locale, symbol string) Formatter {
	f, err := NewFormatter(locale, symbol)
	if err != nil {
		panic(err)
	}
	return f
}

func (f Formatter) Locale() string { return f.tag.String() }

// Number formats d with grouping and at most two decimals.
func (f Formatter) Number(d decimal.Decimal) string {
	return f.printer.Sprint(number.Decimal(d.Round(2).InexactFloat64(), number.MaxFractionDigits(2)))
}

// Amount is Number with the currency symbol in front.
func (f Formatter) Amount(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-" + f.symbol + f.Number(d.Neg())
	}
	return f.symbol + f.Number(d)
}

// Percent formats p, already scaled to 0-100, with one decimal.
func (f Formatter) Percent(p float64) string {
	return f.printer.Sprint(number.Decimal(p, number.MaxFractionDigits(1))) + "%"
}

// Int formats a count with grouping.
func (f Formatter) Int(n int) string {
	return f.printer.Sprint(number.Decimal(n))
}
