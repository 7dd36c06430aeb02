package core

import (
	"fmt"
	"strings"
)

// FormatFamily declares which thousands/decimal separator convention applies
// to the monetary cells of a category. It is configuration, never inferred
// from the cell content.
type FormatFamily int

const (
	// FormatUnknown is the zero value and is rejected by the normalizer.
	FormatUnknown FormatFamily = iota
	// ThousandsDotDecimalComma: "625.500,00" -> 625500.00
	ThousandsDotDecimalComma
	// ThousandsCommaDecimalDot: "625,500.00" -> 625500.00
	ThousandsCommaDecimalDot
	// ThousandsNoneDecimalComma: "625500,00" -> 625500.00; dots are not separators.
	ThousandsNoneDecimalComma
	// ThousandsNoneDecimalDot: "625500.00" -> 625500.00; commas are not separators.
	ThousandsNoneDecimalDot
)

var formatNames = map[FormatFamily]string{
	ThousandsDotDecimalComma:  "thousands_dot_decimal_comma",
	ThousandsCommaDecimalDot:  "thousands_comma_decimal_dot",
	ThousandsNoneDecimalComma: "thousands_none_decimal_comma",
	ThousandsNoneDecimalDot:   "thousands_none_decimal_dot",
}

// FormatFamilies returns every supported family in declaration order.
func FormatFamilies() []FormatFamily {
	return []FormatFamily{
		ThousandsDotDecimalComma,
		ThousandsCommaDecimalDot,
		ThousandsNoneDecimalComma,
		ThousandsNoneDecimalDot,
	}
}

// String implements fmt.Stringer
func (f FormatFamily) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// IsValid returns true if f is one of the supported families
func (f FormatFamily) IsValid() bool {
	_, ok := formatNames[f]
	return ok
}

// ParseFormatFamily maps a configuration name to its family. Matching ignores
// case, surrounding spaces and the '-' / '_' distinction.
func ParseFormatFamily(s string) (FormatFamily, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "-", "_")
	for f, name := range formatNames {
		if name == key {
			return f, nil
		}
	}
	names := make([]string, 0, len(formatNames))
	for _, f := range FormatFamilies() {
		names = append(names, f.String())
	}
	return FormatUnknown, fmt.Errorf("%w %q: must be one of %v", ErrUnknownFormat, s, names)
}

// MarshalText implements encoding.TextMarshaler
func (f FormatFamily) MarshalText() ([]byte, error) {
	if !f.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (f *FormatFamily) UnmarshalText(text []byte) error {
	parsed, err := ParseFormatFamily(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
