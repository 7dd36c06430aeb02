package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"cajas/internal/core"
)

type (
	categoryEntry struct {
		Name           string `yaml:"name"`
		Format         string `yaml:"format"`
		MovementsSheet string `yaml:"movements_sheet"`
		SummarySheet   string `yaml:"summary_sheet"`
	}

	bindingsFile struct {
		Categories []categoryEntry `yaml:"categories"`
		Columns    core.Columns    `yaml:"columns"`
	}
)

// LoadBindings reads the category bindings and column names from path. An
// empty path yields the defaults of the original spreadsheet.
func LoadBindings(path string) ([]core.Binding, core.Columns, error) {
	if strings.TrimSpace(path) == "" {
		return core.DefaultBindings(), core.DefaultColumns(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, core.Columns{}, fmt.Errorf("read categories file: %w", err)
	}
	return ParseBindings(b)
}

// ParseBindings decodes a categories YAML document. Missing column names
// fall back to the defaults; every category must name a known format.
func ParseBindings(data []byte) ([]core.Binding, core.Columns, error) {
	var f bindingsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, core.Columns{}, fmt.Errorf("parse categories file: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, core.Columns{}, &core.ConfigurationError{Reason: "no categories defined"}
	}

	seen := map[string]bool{}
	out := make([]core.Binding, 0, len(f.Categories))
	for _, c := range f.Categories {
		name := strings.TrimSpace(c.Name)
		if seen[name] {
			return nil, core.Columns{}, &core.ConfigurationError{Category: name, Reason: "duplicate category"}
		}
		seen[name] = true

		family, err := core.ParseFormatFamily(c.Format)
		if err != nil {
			return nil, core.Columns{}, &core.ConfigurationError{Category: name, Reason: err.Error()}
		}
		b := core.Binding{
			Category:       name,
			Family:         family,
			MovementsSheet: strings.TrimSpace(c.MovementsSheet),
			SummarySheet:   strings.TrimSpace(c.SummarySheet),
		}
		if err := b.Validate(); err != nil {
			return nil, core.Columns{}, err
		}
		out = append(out, b)
	}
	return out, f.Columns.WithDefaults(), nil
}
