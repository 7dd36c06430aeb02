package backend

import (
	"context"
	"fmt"
	"slices"

	"cajas/internal/core"
	"cajas/internal/log"
	gsheet "cajas/internal/sheets/google"
	"cajas/internal/sheets/memory"
	"cajas/internal/sheets/xlsx"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new source factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateSource implements Factory.CreateSource
func (f *DefaultFactory) CreateSource(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SheetsBackend:
		return f.createSheetsSource(ctx, config)
	case XLSXBackend:
		return f.createXLSXSource(ctx, config)
	case MemoryBackend:
		return f.createMemorySource(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSheetsSource(ctx context.Context, config Config) (*Result, error) {
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
		ValueRender:     config.GoogleValueRender,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized Google Sheets source", "spreadsheet_id", config.GoogleSpreadsheetID)
	return &Result{Source: cli}, nil
}

func (f *DefaultFactory) createXLSXSource(ctx context.Context, config Config) (*Result, error) {
	f.logger.InfoContext(ctx, "Initialized workbook source", "path", config.XLSXPath)
	return &Result{Source: xlsx.New(config.XLSXPath)}, nil
}

func (f *DefaultFactory) createMemorySource(ctx context.Context, config Config) (*Result, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store, err := memory.NewFromFiles(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory sheets: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized memory source", "data_directory", dataDir)
	return &Result{Source: store}, nil
}

// MissingSheets lists the worksheets named by bindings that src does not
// have, in binding order. Names are compared ignoring case and accents.
func MissingSheets(ctx context.Context, src Source, bindings []core.Binding) ([]string, error) {
	names, err := src.ListSheets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}
	have := make(map[string]bool, len(names))
	for _, n := range names {
		have[core.FoldHeader(n)] = true
	}
	var missing []string
	for _, b := range bindings {
		for _, sheet := range []string{b.MovementsSheet, b.SummarySheet} {
			if !have[core.FoldHeader(sheet)] && !slices.Contains(missing, sheet) {
				missing = append(missing, sheet)
			}
		}
	}
	return missing, nil
}
