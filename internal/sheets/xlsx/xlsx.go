// Package xlsx reads worksheets from an exported Excel workbook, for running
// the dashboard without Google credentials.
package xlsx

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"cajas/internal/core"
	ports "cajas/internal/sheets"
)

// Reader opens the workbook on every read so a replaced file is picked up
// without a restart.
type Reader struct {
	path string
}

var (
	_ ports.TableReader = (*Reader)(nil)
	_ ports.SheetLister = (*Reader)(nil)
)

func New(path string) *Reader {
	return &Reader{path: path}
}

// Path returns the workbook location.
func (r *Reader) Path() string { return r.path }

func (r *Reader) ReadTable(ctx context.Context, sheet string) (core.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return core.RawTable{}, err
	}
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return core.RawTable{}, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	name, ok := findSheet(f.GetSheetList(), sheet)
	if !ok {
		return core.RawTable{}, fmt.Errorf("%w: %s", ports.ErrSheetNotFound, sheet)
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return core.RawTable{}, fmt.Errorf("reading sheet %s: %w", name, err)
	}
	return ports.FromGrid(sheet, ports.StringGrid(rows)), nil
}

func (r *Reader) ListSheets(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// findSheet matches exactly first, then ignoring case and accents, since
// exported workbooks sometimes lose the accent of "Petróleo".
func findSheet(names []string, want string) (string, bool) {
	for _, n := range names {
		if n == want {
			return n, true
		}
	}
	key := core.FoldHeader(want)
	for _, n := range names {
		if core.FoldHeader(n) == key {
			return n, true
		}
	}
	return "", false
}
