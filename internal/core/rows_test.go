package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func movementsTable() RawTable {
	return RawTable{
		Sheet:   "Movimientos Repuestos",
		Columns: []string{"Período", "PROVEEDOR", " Monto ", "Detalle"},
		Records: []RawRecord{
			{"Período": "1", "PROVEEDOR": "X", " Monto ": "1.000,50", "Detalle": "filtro"},
			{"Período": "2", "PROVEEDOR": "Y", " Monto ": "abc", "Detalle": nil},
			{"Período": "trimestre", "PROVEEDOR": " Z ", " Monto ": "", "Detalle": "n/a"},
		},
	}
}

func TestFoldHeader(t *testing.T) {
	cases := map[string]string{
		"Período":           "periodo",
		"  Total   Gastado": "total gastado",
		"SALDO ACTUAL":      "saldo actual",
		"Petróleo":          "petroleo",
	}
	for in, want := range cases {
		if got := FoldHeader(in); got != want {
			t.Errorf("FoldHeader(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCheckColumns(t *testing.T) {
	cols := DefaultColumns()
	if err := CheckColumns(movementsTable(), Repuestos, cols.Movements.Required()); err != nil {
		t.Fatalf("expected headers to match, got %v", err)
	}
	err := CheckColumns(movementsTable(), Repuestos, cols.Summary.Required())
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if len(schemaErr.Missing) != 2 || schemaErr.Missing[0] != "Total Gastado" || schemaErr.Missing[1] != "Saldo Actual" {
		t.Fatalf("unexpected missing columns %v", schemaErr.Missing)
	}
}

func TestReadMovementsZeroPolicy(t *testing.T) {
	rows, diag, err := ReadMovements(movementsTable(), ThousandsDotDecimalComma, DefaultColumns().Movements, PolicyZero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if !rows[0].Amount.Equal(decimal.RequireFromString("1000.50")) || rows[0].Provider != "X" || rows[0].Period != 1 {
		t.Fatalf("unexpected first row %+v", rows[0])
	}
	if rows[0].Extra["Detalle"] != "filtro" {
		t.Fatalf("expected passthrough column, got %v", rows[0].Extra)
	}
	if !rows[1].Amount.IsZero() || rows[2].Provider != "Z" || rows[2].Period != 0 {
		t.Fatalf("unexpected rows %+v %+v", rows[1], rows[2])
	}
	if diag.Malformed != 1 || diag.Empty != 1 || diag.BadPeriods != 1 || diag.Skipped != 0 {
		t.Fatalf("unexpected diagnostics %+v", diag)
	}
	if len(diag.Samples) != 1 || diag.Samples[0].Row != 2 || diag.Samples[0].Raw != "abc" {
		t.Fatalf("unexpected samples %+v", diag.Samples)
	}
}

func TestReadMovementsSkipPolicy(t *testing.T) {
	rows, diag, err := ReadMovements(movementsTable(), ThousandsDotDecimalComma, DefaultColumns().Movements, PolicySkip)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 || rows[1].Provider != "Z" {
		t.Fatalf("expected malformed row dropped, got %+v", rows)
	}
	if diag.Skipped != 1 {
		t.Fatalf("expected one skipped row, got %+v", diag)
	}
}

func TestReadMovementsStrictPolicy(t *testing.T) {
	_, _, err := ReadMovements(movementsTable(), ThousandsDotDecimalComma, DefaultColumns().Movements, PolicyStrict)
	var valErr *ValueError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValueError, got %v", err)
	}
	if valErr.Row != 2 || valErr.Column != " Monto " || !errors.Is(err, ErrMalformedAmount) {
		t.Fatalf("unexpected error location %+v", valErr)
	}
}

func TestReadSummaries(t *testing.T) {
	table := RawTable{
		Sheet:   "Resumen Petróleo",
		Columns: []string{"Periodo", "Monto", "Total Gastado", "Saldo Actual"},
		Records: []RawRecord{
			{"Periodo": 1, "Monto": "1,000.00", "Total Gastado": "250.00", "Saldo Actual": "750.00"},
			{"Periodo": 2, "Monto": "2,000.00", "Total Gastado": "oops", "Saldo Actual": nil},
		},
	}
	rows, diag, err := ReadSummaries(table, ThousandsCommaDecimalDot, DefaultColumns().Summary, PolicyZero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 || !rows[0].Assigned.Equal(decimal.NewFromInt(1000)) || !rows[0].Balance.Equal(decimal.NewFromInt(750)) {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if !rows[1].Spent.IsZero() || diag.Malformed != 1 || diag.Empty != 1 {
		t.Fatalf("unexpected fallback handling %+v %+v", rows[1], diag)
	}

	rows, _, err = ReadSummaries(table, ThousandsCommaDecimalDot, DefaultColumns().Summary, PolicySkip)
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected one row under skip, got %d (err=%v)", len(rows), err)
	}
}

func TestReadRejectsUnknownFamily(t *testing.T) {
	if _, _, err := ReadMovements(movementsTable(), FormatUnknown, DefaultColumns().Movements, PolicyZero); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}
