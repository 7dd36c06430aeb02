package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/GiGurra/boa/pkg/boa"

	"cajas/internal/cli"
	"cajas/internal/log"
	"cajas/internal/render"
	"cajas/internal/report"
)

type Params struct {
	Category string `descr:"Categories to include, comma separated (all by default)" optional:"true"`
	Period   string `descr:"Periods to include, comma separated (all by default)" optional:"true"`
	Provider string `descr:"Providers to include, comma separated (all by default)" optional:"true"`
	By       string `descr:"Group movements by" default:"provider" alts:"provider,category,period" strict:"true"`
	Format   string `descr:"Output format" default:"table" alts:"table,markdown,csv,json" strict:"true"`
	Sections string `descr:"Report sections, comma separated" default:"summary,groups" alts:"summary,groups,movements,diagnostics"`
	Locale   string `descr:"Locale used to format numbers" default:"es-CL"`
	Symbol   string `descr:"Currency symbol" default:"$"`
	Color    bool   `descr:"Colorize table output" optional:"true"`
	Timeout  int    `descr:"Load timeout in seconds" default:"60"`
}

func main() {
	boa.NewCmdT[Params]("cajas-report").
		WithShort("Print budget summaries and spending per provider from the cost sheets").
		WithLong("Loads the configured worksheets (DATA_BACKEND, CATEGORIES_FILE, ...), applies the filters and prints the summary, grouped spending, movements or load diagnostics. When the source cannot be reached the latest snapshot is used.").
		WithRunFunc(func(params *Params) {
			if err := run(params); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}).
		Run()
}

func run(p *Params) error {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentReport)
	cfg := cli.LoadAndValidateConfig(logger)

	filter, err := report.ParseFilter([]string{p.Category}, []string{p.Period}, []string{p.Provider})
	if err != nil {
		return err
	}
	key, err := report.ParseGroupBy(p.By)
	if err != nil {
		return err
	}

	format, err := render.ParseFormat(p.Format)
	if err != nil {
		return err
	}
	formatter, err := render.NewFormatter(p.Locale, p.Symbol)
	if err != nil {
		return err
	}
	sections, err := parseSections(p.Sections)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(p.Timeout)*time.Second)
	defer cancel()

	rt, err := cli.Bootstrap(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	rep, err := rt.Dataset.Report(ctx, filter, key)
	if err != nil {
		return err
	}
	if rep.FromSnapshot {
		logger.Warn("Source unavailable, report built from snapshot",
			log.FieldSnapshotID, rep.SnapshotID,
			"loaded_at", rep.LoadedAt.Format(time.RFC3339))
	}

	return render.Report(os.Stdout, rep, render.Options{
		Format:    format,
		Formatter: formatter,
		Sections:  sections,
		Color:     p.Color,
	})
}

func parseSections(s string) ([]render.Section, error) {
	var out []render.Section
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		switch sec := render.Section(part); sec {
		case "":
		case render.SectionSummary, render.SectionGroups, render.SectionMovements, render.SectionDiagnostics:
			out = append(out, sec)
		default:
			return nil, fmt.Errorf("invalid section %q: must be one of [summary groups movements diagnostics]", part)
		}
	}
	return out, nil
}
