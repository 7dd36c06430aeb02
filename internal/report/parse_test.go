package report

import (
	"errors"
	"testing"
)

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter(
		[]string{"Repuestos, Petróleo", ""},
		[]string{"1", "3,4"},
		[]string{" X\x00 "},
	)
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	if len(f.Categories) != 2 || f.Categories[1] != "Petróleo" {
		t.Errorf("categories = %v", f.Categories)
	}
	if len(f.Periods) != 3 || f.Periods[2] != 4 {
		t.Errorf("periods = %v", f.Periods)
	}
	if len(f.Providers) != 1 || f.Providers[0] != "X" {
		t.Errorf("providers = %q", f.Providers)
	}

	f, err = ParseFilter([]string{"All"}, []string{"all"}, nil)
	if err != nil || !f.Categories.IsAll() || !f.Periods.IsAll() || !f.Providers.IsAll() {
		t.Errorf("all should clear the selection, got %+v err %v", f, err)
	}

	var fe *FilterError
	if _, err := ParseFilter(nil, []string{"x"}, nil); !errors.As(err, &fe) || fe.Param != ParamPeriod || fe.Value != "x" {
		t.Errorf("expected period FilterError, got %v", err)
	}
}

func TestParseGroupBy(t *testing.T) {
	tests := []struct {
		raw     string
		want    GroupKey
		wantErr bool
	}{
		{"", ByProvider, false},
		{" Category ", ByCategory, false},
		{"period", ByPeriod, false},
		{"month", "", true},
	}
	for _, tt := range tests {
		got, err := ParseGroupBy(tt.raw)
		if tt.wantErr {
			var fe *FilterError
			if !errors.As(err, &fe) || fe.Param != ParamGroupBy {
				t.Errorf("ParseGroupBy(%q): expected FilterError, got %v", tt.raw, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseGroupBy(%q) = %q, %v; want %q", tt.raw, got, err, tt.want)
		}
	}
}
