package xlsx

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	ports "cajas/internal/sheets"
)

// createWorkbook writes one worksheet per entry of sheets, first row header.
func createWorkbook(t *testing.T, sheets map[string][][]any) string {
	t.Helper()
	f := excelize.NewFile()
	first := f.GetSheetName(0)
	used := false
	for name, rows := range sheets {
		if !used {
			if err := f.SetSheetName(first, name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
			used = true
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
		for i, row := range rows {
			for j, v := range row {
				cell, err := excelize.CoordinatesToCellName(j+1, i+1)
				if err != nil {
					t.Fatalf("cell name: %v", err)
				}
				if err := f.SetCellValue(name, cell, v); err != nil {
					t.Fatalf("set %s: %v", cell, err)
				}
			}
		}
	}
	path := filepath.Join(t.TempDir(), "cajas.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to create test xlsx: %v", err)
	}
	return path
}

func TestReadTable(t *testing.T) {
	path := createWorkbook(t, map[string][][]any{
		"Movimientos Petroleo": {
			{"Periodo", "Proveedor", "Monto"},
			{"1", "Copec", "625,500.00"},
			{"2", "Shell", "1,200.50"},
		},
	})
	r := New(path)
	tbl, err := r.ReadTable(context.Background(), "Movimientos Petróleo")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if tbl.Sheet != "Movimientos Petróleo" {
		t.Fatalf("expected requested sheet name, got %q", tbl.Sheet)
	}
	if len(tbl.Records) != 2 || tbl.Records[0]["Proveedor"] != "Copec" || tbl.Records[1]["Monto"] != "1,200.50" {
		t.Fatalf("unexpected records %+v", tbl.Records)
	}
}

func TestReadTableMissingSheet(t *testing.T) {
	path := createWorkbook(t, map[string][][]any{"Resumen Repuestos": {{"Periodo"}}})
	_, err := New(path).ReadTable(context.Background(), "Resumen Petróleo")
	if !errors.Is(err, ports.ErrSheetNotFound) {
		t.Fatalf("expected ErrSheetNotFound, got %v", err)
	}
}

func TestReadTableMissingFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "none.xlsx")).ReadTable(context.Background(), "S")
	if err == nil {
		t.Fatal("expected error for missing workbook")
	}
}

func TestListSheets(t *testing.T) {
	path := createWorkbook(t, map[string][][]any{"A": {{"x"}}})
	names, err := New(path).ListSheets(context.Background())
	if err != nil || len(names) != 1 || names[0] != "A" {
		t.Fatalf("unexpected sheets %v err=%v", names, err)
	}
}

func TestFindSheet(t *testing.T) {
	names := []string{"Resumen Petroleo", "resumen petróleo"}
	cases := []struct {
		want string
		got  string
		ok   bool
	}{
		{"resumen petróleo", "resumen petróleo", true},
		{"Resumen Petróleo", "Resumen Petroleo", true},
		{"Otro", "", false},
	}
	for _, tc := range cases {
		got, ok := findSheet(names, tc.want)
		if got != tc.got || ok != tc.ok {
			t.Errorf("findSheet(%q) = %q,%v want %q,%v", tc.want, got, ok, tc.got, tc.ok)
		}
	}
}
