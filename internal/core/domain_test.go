package core

import (
	"errors"
	"testing"
)

func TestBindingValidate(t *testing.T) {
	cases := []struct {
		b  Binding
		ok bool
	}{
		{Binding{Category: "Repuestos", Family: ThousandsDotDecimalComma, MovementsSheet: "M"}, true},
		{Binding{Category: "Petróleo", Family: ThousandsCommaDecimalDot, SummarySheet: "S"}, true},
		{Binding{Category: " ", Family: ThousandsCommaDecimalDot, SummarySheet: "S"}, false},
		{Binding{Category: "X", MovementsSheet: "M"}, false}, // no family
		{Binding{Category: "X", Family: ThousandsNoneDecimalDot}, false},
	}
	for i, tc := range cases {
		err := tc.b.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok {
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("case %d expected ConfigurationError, got %v", i, err)
			}
		}
	}
}

func TestDefaultBindings(t *testing.T) {
	bs := DefaultBindings()
	if got := Categories(bs); len(got) != 2 || got[0] != Repuestos || got[1] != Petroleo {
		t.Fatalf("unexpected categories %v", got)
	}
	for _, b := range bs {
		if err := b.Validate(); err != nil {
			t.Fatalf("default binding %s invalid: %v", b.Category, err)
		}
	}
}

func TestWithCategoryCopies(t *testing.T) {
	m := MovementRow{Provider: "X"}
	tagged := m.WithCategory(Repuestos)
	if m.Category != "" || tagged.Category != Repuestos || tagged.Provider != "X" {
		t.Fatalf("unexpected rows original=%+v tagged=%+v", m, tagged)
	}
}

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		in   any
		want Period
		ok   bool
	}{
		{1, 1, true},
		{4.0, 4, true},
		{"3", 3, true},
		{" 2 ", 2, true},
		{"1er trimestre", 1, true},
		{"T4", 4, true},
		{"Periodo 2", 2, true},
		{int64(3), 3, true},
		{0, 0, false},
		{5, 0, false},
		{"12", 0, false},
		{2.5, 0, false},
		{"", 0, false},
		{nil, 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParsePeriod(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParsePeriod(%#v) = %d,%v want %d,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseAmountPolicy(t *testing.T) {
	cases := map[string]AmountPolicy{
		"":       PolicyZero,
		"zero":   PolicyZero,
		" Skip ": PolicySkip,
		"STRICT": PolicyStrict,
	}
	for in, want := range cases {
		got, err := ParseAmountPolicy(in)
		if err != nil || got != want {
			t.Fatalf("%q expected %s, got %s (err=%v)", in, want, got, err)
		}
	}
	if _, err := ParseAmountPolicy("lenient"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
