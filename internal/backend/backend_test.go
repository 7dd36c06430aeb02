package backend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cajas/internal/config"
	"cajas/internal/core"
	"cajas/internal/sheets/memory"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"memory", Config{Type: MemoryBackend}, ""},
		{"unknown", Config{Type: "sqlite"}, "invalid backend type"},
		{"sheets without id", Config{Type: SheetsBackend, GoogleServiceAccountJSON: "{}"}, "Spreadsheet ID"},
		{"sheets without credentials", Config{Type: SheetsBackend, GoogleSpreadsheetID: "abc"}, "GoogleServiceAccount"},
		{"sheets", Config{Type: SheetsBackend, GoogleSpreadsheetID: "abc", GoogleServiceAccountFile: "sa.json"}, ""},
		{"xlsx without path", Config{Type: XLSXBackend}, "workbook path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{DataBackend: "xlsx", XLSXPath: "book.xlsx", DataDir: "/srv"})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != XLSXBackend || cfg.XLSXPath != "book.xlsx" || cfg.DataDirectory != "/srv" {
		t.Errorf("unexpected config %+v", cfg)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "postgres"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestCreateMemorySource(t *testing.T) {
	dir := t.TempDir()
	seed := "sheets:\n  Movimientos Repuestos:\n    - [Periodo, Proveedor, Monto]\n    - [\"1\", X, \"10\"]\n"
	if err := os.WriteFile(filepath.Join(dir, memory.SeedFile), []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := NewFactory(nil).CreateSource(context.Background(), Config{Type: MemoryBackend, DataDirectory: dir})
	if err != nil {
		t.Fatalf("CreateSource: %v", err)
	}
	tbl, err := res.Source.ReadTable(context.Background(), "Movimientos Repuestos")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(tbl.Records) != 1 {
		t.Errorf("expected 1 record, got %d", len(tbl.Records))
	}
}

func TestCreateMemorySourceFallsBackToDemo(t *testing.T) {
	res, err := NewFactory(nil).CreateSource(context.Background(), Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
	if err != nil {
		t.Fatalf("CreateSource: %v", err)
	}
	missing, err := MissingSheets(context.Background(), res.Source, core.DefaultBindings())
	if err != nil {
		t.Fatalf("MissingSheets: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("demo workbook should cover the default bindings, missing %v", missing)
	}
}

func TestMissingSheets(t *testing.T) {
	src := memory.New(map[string][][]any{
		"movimientos repuestos": {{"Periodo"}},
		"Resumen Repuestos":     {{"Periodo"}},
		"Movimientos Petroleo":  {{"Periodo"}},
	})

	missing, err := MissingSheets(context.Background(), src, core.DefaultBindings())
	if err != nil {
		t.Fatalf("MissingSheets: %v", err)
	}
	want := []string{"Resumen Petróleo"}
	if len(missing) != len(want) || missing[0] != want[0] {
		t.Errorf("missing = %v, want %v", missing, want)
	}
}
