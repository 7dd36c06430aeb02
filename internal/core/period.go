package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxPeriod is the number of periods per year.
const MaxPeriod = 4

// Period is a coarse calendar bucket, 1..MaxPeriod. Zero means the source
// cell could not be read as a period.
type Period int

// IsValid returns true for 1..MaxPeriod
func (p Period) IsValid() bool {
	return p >= 1 && p <= MaxPeriod
}

func (p Period) String() string {
	return strconv.Itoa(int(p))
}

// Periods returns every valid period in order.
func Periods() []Period {
	out := make([]Period, 0, MaxPeriod)
	for p := Period(1); p <= MaxPeriod; p++ {
		out = append(out, p)
	}
	return out
}

// ParsePeriod normalizes a period cell. Numbers are used as-is; text yields
// its first run of digits ("1er trimestre" -> 1, "T3" -> 3).
func ParsePeriod(raw any) (Period, bool) {
	var n int
	switch v := raw.(type) {
	case nil:
		return 0, false
	case int:
		n = v
	case int64:
		n = int(v)
	case int32:
		n = int(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return 0, false
		}
		n = int(v)
	case decimal.Decimal:
		if !v.IsInteger() {
			return 0, false
		}
		n = int(v.IntPart())
	case Period:
		n = int(v)
	case string:
		digits := firstDigits(v)
		if digits == "" {
			return 0, false
		}
		parsed, err := strconv.Atoi(digits)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return ParsePeriod(fmt.Sprint(v))
	}
	p := Period(n)
	if !p.IsValid() {
		return 0, false
	}
	return p, true
}

func firstDigits(s string) string {
	s = strings.TrimSpace(s)
	start := strings.IndexFunc(s, isDigit)
	if start < 0 {
		return ""
	}
	end := start
	for end < len(s) && isDigit(rune(s[end])) {
		end++
	}
	return s[start:end]
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
