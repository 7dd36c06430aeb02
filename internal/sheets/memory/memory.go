package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"cajas/internal/core"
	ports "cajas/internal/sheets"
)

// SeedFile is the name of the optional seed inside the data directory.
const SeedFile = "seed_sheets.yaml"

// seed is the on-disk layout: worksheet name to rows, header first.
type seed struct {
	Sheets map[string][][]any `yaml:"sheets"`
}

type Store struct {
	mu     sync.RWMutex
	tables map[string]core.RawTable
	order  []string
}

var (
	_ ports.TableReader = (*Store)(nil)
	_ ports.SheetLister = (*Store)(nil)
)

func New(grids map[string][][]any) *Store {
	s := &Store{tables: map[string]core.RawTable{}}
	for name, grid := range grids {
		s.Put(name, grid)
	}
	return s
}

// NewFromFiles loads base/seed_sheets.yaml, or the demo workbook when the
// file does not exist.
func NewFromFiles(base string) (*Store, error) {
	path := filepath.Join(base, SeedFile)
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(DemoSheets()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var sd seed
	if err := yaml.Unmarshal(b, &sd); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return New(sd.Sheets), nil
}

// Put replaces a worksheet.
func (s *Store) Put(sheet string, grid [][]any) {
	t := ports.FromGrid(sheet, grid)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[sheet]; !ok {
		s.order = append(s.order, sheet)
	}
	s.tables[sheet] = t
}

func (s *Store) ReadTable(ctx context.Context, sheet string) (core.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return core.RawTable{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[sheet]
	if !ok {
		return core.RawTable{}, fmt.Errorf("%w: %s", ports.ErrSheetNotFound, sheet)
	}
	return copyTable(t), nil
}

func (s *Store) ListSheets(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...), nil
}

// copyTable keeps callers from mutating the stored records.
func copyTable(t core.RawTable) core.RawTable {
	out := core.RawTable{
		Sheet:   t.Sheet,
		Columns: append([]string(nil), t.Columns...),
		Records: make([]core.RawRecord, len(t.Records)),
	}
	for i, rec := range t.Records {
		cp := make(core.RawRecord, len(rec))
		for k, v := range rec {
			cp[k] = v
		}
		out.Records[i] = cp
	}
	return out
}

// DemoSheets is a small workbook in the layout of the real spreadsheet,
// each category in its own number format.
func DemoSheets() map[string][][]any {
	return map[string][][]any{
		"Movimientos Repuestos": {
			{"Periodo", "Proveedor", "Monto", "Detalle"},
			{"1", "Repuestos Andes", "125.400,00", "Filtros"},
			{"1", "Frenos Sur", "89.990,50", "Pastillas"},
			{"2", "Repuestos Andes", "310.000,00", "Embrague"},
			{"3", "Lubricentro Maipú", "45.300,00", "Aceite"},
			{"4", "Frenos Sur", "", "Pendiente"},
		},
		"Resumen Repuestos": {
			{"Periodo", "Monto", "Total Gastado", "Saldo Actual"},
			{"1", "500.000,00", "215.390,50", "284.609,50"},
			{"2", "500.000,00", "310.000,00", "190.000,00"},
			{"3", "400.000,00", "45.300,00", "354.700,00"},
			{"4", "400.000,00", "0,00", "400.000,00"},
		},
		"Movimientos Petróleo": {
			{"Periodo", "Proveedor", "Monto", "Detalle"},
			{"1", "Copec", "625,500.00", "Camión 1"},
			{"1", "Shell", "210,750.00", "Camión 2"},
			{"2", "Copec", "480,000.00", "Camión 1"},
			{"3", "Petrobras", "150,250.00", "Camión 3"},
		},
		"Resumen Petróleo": {
			{"Periodo", "Monto", "Total Gastado", "Saldo Actual"},
			{"1", "1,000,000.00", "836,250.00", "163,750.00"},
			{"2", "1,000,000.00", "480,000.00", "520,000.00"},
			{"3", "800,000.00", "150,250.00", "649,750.00"},
			{"4", "800,000.00", "0.00", "800,000.00"},
		},
	}
}
