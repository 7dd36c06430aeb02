package report

import (
	"fmt"
	"strings"

	"cajas/internal/core"
)

// Selection parameter names, shared by the query string and the CLI flags.
const (
	ParamCategory = "category"
	ParamPeriod   = "period"
	ParamProvider = "provider"
	ParamGroupBy  = "by"
)

// FilterError reports an unusable filter value.
type FilterError struct {
	Param string
	Value string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Param, e.Value)
}

// cleanValue removes control characters and trims whitespace.
func cleanValue(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		return r
	}, s)
}

// SplitValues flattens repeated and comma separated values, dropping blanks.
func SplitValues(vals ...string) []string {
	var out []string
	for _, v := range vals {
		for _, part := range strings.Split(v, ",") {
			if p := cleanValue(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func hasAll(vals []string) bool {
	for _, v := range vals {
		if strings.EqualFold(v, All) {
			return true
		}
	}
	return false
}

// ParseFilter builds a Filter from raw selections. Every value may be a comma
// list; a dimension with no values or holding "all" selects everything.
func ParseFilter(categories, periods, providers []string) (Filter, error) {
	var f Filter

	if cats := SplitValues(categories...); !hasAll(cats) {
		f.Categories = cats
	}
	if provs := SplitValues(providers...); !hasAll(provs) {
		f.Providers = provs
	}

	ps := SplitValues(periods...)
	if hasAll(ps) {
		return f, nil
	}
	for _, raw := range ps {
		p, ok := core.ParsePeriod(raw)
		if !ok {
			return Filter{}, &FilterError{Param: ParamPeriod, Value: raw}
		}
		f.Periods = append(f.Periods, p)
	}
	return f, nil
}

// ParseGroupBy is ParseGroupKey reporting failures as a FilterError.
func ParseGroupBy(raw string) (GroupKey, error) {
	raw = cleanValue(raw)
	key, err := ParseGroupKey(raw)
	if err != nil {
		return "", &FilterError{Param: ParamGroupBy, Value: raw}
	}
	return key, nil
}
