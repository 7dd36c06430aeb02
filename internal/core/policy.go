package core

import (
	"fmt"
	"strings"
)

// AmountPolicy decides what happens to a row whose amount cell cannot be
// parsed. Empty cells are zero under every policy.
type AmountPolicy string

const (
	// PolicyZero keeps the row with a zero amount.
	PolicyZero AmountPolicy = "zero"
	// PolicySkip drops the row.
	PolicySkip AmountPolicy = "skip"
	// PolicyStrict aborts the load with a *ValueError.
	PolicyStrict AmountPolicy = "strict"
)

// ParseAmountPolicy parses a policy name; the empty string means PolicyZero.
func ParseAmountPolicy(s string) (AmountPolicy, error) {
	switch p := AmountPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyZero, nil
	case PolicyZero, PolicySkip, PolicyStrict:
		return p, nil
	default:
		return "", fmt.Errorf("invalid amount policy %q: must be one of [zero skip strict]", s)
	}
}

// maxSamples bounds the fallbacks kept for display.
const maxSamples = 20

// Fallback records one malformed cell.
type Fallback struct {
	Sheet  string `json:"sheet"`
	Row    int    `json:"row"`
	Column string `json:"column"`
	Raw    string `json:"raw"`
}

// Diagnostics counts data-quality events of one load.
type Diagnostics struct {
	Empty      int        `json:"empty"`
	Malformed  int        `json:"malformed"`
	Skipped    int        `json:"skipped"`
	BadPeriods int        `json:"bad_periods"`
	Samples    []Fallback `json:"samples,omitempty"`
}

func (d *Diagnostics) recordMalformed(f Fallback) {
	d.Malformed++
	if len(d.Samples) < maxSamples {
		d.Samples = append(d.Samples, f)
	}
}

// Merge adds the counts of o into d.
func (d *Diagnostics) Merge(o Diagnostics) {
	d.Empty += o.Empty
	d.Malformed += o.Malformed
	d.Skipped += o.Skipped
	d.BadPeriods += o.BadPeriods
	for _, s := range o.Samples {
		if len(d.Samples) >= maxSamples {
			break
		}
		d.Samples = append(d.Samples, s)
	}
}
