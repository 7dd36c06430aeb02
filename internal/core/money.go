// Package core provides the domain types of the expense pools and the
// monetary normalizer that turns locale-formatted spreadsheet cells into
// decimal amounts.
//
// This file contains the normalizer. Normalize is a total function: any
// missing or malformed cell becomes zero. ParseAmount is its strict twin
// and reports why a cell could not be read.
package core

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var plainDecimal = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// familyRules rewrites cleaned text into plain "digits.digits" form.
var familyRules = map[FormatFamily]func(string) string{
	ThousandsDotDecimalComma: func(s string) string {
		s = strings.ReplaceAll(s, ".", "")
		return strings.ReplaceAll(s, ",", ".")
	},
	ThousandsCommaDecimalDot: func(s string) string {
		return strings.ReplaceAll(s, ",", "")
	},
	ThousandsNoneDecimalComma: func(s string) string {
		return strings.ReplaceAll(s, ",", ".")
	},
	ThousandsNoneDecimalDot: func(s string) string {
		return s
	},
}

// Normalize converts a raw cell into an amount under the given family.
// It never fails: empty, malformed or non-finite input yields zero.
//
// Examples:
//
//	Normalize("625.500,00", ThousandsDotDecimalComma) -> 625500.00
//	Normalize("625,500.00", ThousandsCommaDecimalDot) -> 625500.00
//	Normalize("abc", ThousandsDotDecimalComma)        -> 0
func Normalize(raw any, family FormatFamily) decimal.Decimal {
	d, err := ParseAmount(raw, family)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseAmount converts a raw cell into an amount and reports failures.
// Missing cells return ErrEmptyAmount, unparseable text ErrMalformedAmount.
func ParseAmount(raw any, family FormatFamily) (decimal.Decimal, error) {
	rule, ok := familyRules[family]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownFormat, family)
	}

	switch v := raw.(type) {
	case nil:
		return decimal.Zero, ErrEmptyAmount
	case decimal.Decimal:
		return v, nil
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, ErrEmptyAmount
		}
		return *v, nil
	case float64:
		return fromFloat(v)
	case float32:
		return fromFloat(float64(v))
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int8:
		return decimal.NewFromInt(int64(v)), nil
	case int16:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case uint:
		return decimal.NewFromUint64(uint64(v)), nil
	case uint8:
		return decimal.NewFromUint64(uint64(v)), nil
	case uint16:
		return decimal.NewFromUint64(uint64(v)), nil
	case uint32:
		return decimal.NewFromUint64(uint64(v)), nil
	case uint64:
		return decimal.NewFromUint64(v), nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, v.String())
		}
		return d, nil
	case string:
		return parseText(v, rule)
	case fmt.Stringer:
		return parseText(v.String(), rule)
	default:
		return parseText(fmt.Sprint(v), rule)
	}
}

func fromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("%w: non-finite %v", ErrMalformedAmount, f)
	}
	return decimal.NewFromFloat(f), nil
}

func parseText(raw string, rule func(string) string) (decimal.Decimal, error) {
	s := cleanText(raw)
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}
	s = rule(s)
	if !plainDecimal.MatchString(s) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, raw)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, raw)
	}
	return d, nil
}

// cleanText drops currency symbols and every kind of whitespace, including
// the non-breaking spaces spreadsheets use as digit grouping.
func cleanText(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, s)
}
