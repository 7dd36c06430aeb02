package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cajas/internal/core"
)

// ErrSheetNotFound is returned when a worksheet does not exist.
var ErrSheetNotFound = errors.New("sheet not found")

// Ports for outbound adapters.
type (
	// TableReader returns one worksheet as a header row plus records.
	TableReader interface {
		ReadTable(ctx context.Context, sheet string) (core.RawTable, error)
	}

	// SheetLister is implemented by readers that can enumerate worksheets.
	SheetLister interface {
		ListSheets(ctx context.Context) ([]string, error)
	}
)

// FromGrid turns a values matrix into a table. The first row is the header:
// blank header cells are ignored and the first of duplicated headers wins.
// Short rows are padded with nil and fully blank rows are skipped.
func FromGrid(sheet string, grid [][]any) core.RawTable {
	t := core.RawTable{Sheet: sheet, Records: []core.RawRecord{}}
	if len(grid) == 0 {
		return t
	}

	type column struct {
		name string
		pos  int
	}
	var cols []column
	seen := map[string]struct{}{}
	for i, h := range grid[0] {
		name := strings.TrimSpace(cellString(h))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		cols = append(cols, column{name: name, pos: i})
		t.Columns = append(t.Columns, name)
	}

	for _, row := range grid[1:] {
		if isBlankRow(row) {
			continue
		}
		rec := make(core.RawRecord, len(cols))
		for _, c := range cols {
			if c.pos < len(row) {
				rec[c.name] = row[c.pos]
			} else {
				rec[c.name] = nil
			}
		}
		t.Records = append(t.Records, rec)
	}
	return t
}

func cellString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func isBlankRow(row []any) bool {
	for _, v := range row {
		if strings.TrimSpace(cellString(v)) != "" {
			return false
		}
	}
	return true
}

// StringGrid converts a matrix of strings, as returned by spreadsheet
// exporters, into the generic form accepted by FromGrid.
func StringGrid(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = make([]any, len(row))
		for j, v := range row {
			out[i][j] = v
		}
	}
	return out
}
