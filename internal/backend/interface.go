package backend

import (
	"context"

	"cajas/internal/sheets"
)

// Source is a data source the dataset service can read worksheets from.
type Source interface {
	sheets.TableReader
	sheets.SheetLister
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the source instance and optional cleanup function
type Result struct {
	Source  Source
	Cleanup CleanupFunc
}

// Factory creates data sources based on configuration
type Factory interface {
	CreateSource(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for source creation
type Config struct {
	Type BackendType

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleValueRender        string

	// Workbook specific
	XLSXPath string

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of data source
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SheetsBackend BackendType = "sheets"
	XLSXBackend   BackendType = "xlsx"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SheetsBackend, XLSXBackend:
		return true
	default:
		return false
	}
}
