package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"cajas/internal/cache"
	"cajas/internal/core"
	"cajas/internal/log"
	"cajas/internal/report"
	"cajas/internal/sheets"
)

// ErrSourceUnavailable marks a load that failed while talking to the data
// source, as opposed to a structural problem with the data itself.
var ErrSourceUnavailable = errors.New("data source unavailable")

const datasetKey = "dataset"

// SnapshotStore persists loaded datasets.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, ds *core.Dataset) (int64, error)
	LatestSnapshot(ctx context.Context) (*core.Dataset, error)
}

// DatasetOptions configures a DatasetService.
type DatasetOptions struct {
	Bindings []core.Binding
	Columns  core.Columns
	Policy   core.AmountPolicy
	CacheTTL time.Duration
	// LoadTimeout bounds a shared load. Defaults to two minutes.
	LoadTimeout time.Duration
	// Store is optional; a nil store disables snapshots.
	Store  SnapshotStore
	Logger *log.Logger
}

// DatasetService loads the configured sheets into a core.Dataset and builds
// reports from it.
type DatasetService struct {
	reader   sheets.TableReader
	bindings []core.Binding
	columns  core.Columns
	policy   core.AmountPolicy
	store    SnapshotStore
	logger   *log.Logger
	sl       *log.StructuredLogger

	datasets *cache.LRUCache[*core.Dataset]
	reports  *cache.LRUCache[Report]
	loads       singleflight.Group
	loadTimeout time.Duration

	mu           sync.RWMutex
	last         *core.Dataset
	fromSnapshot bool
	now          func() time.Time
}

func NewDatasetService(reader sheets.TableReader, opts DatasetOptions) *DatasetService {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if len(opts.Bindings) == 0 {
		opts.Bindings = core.DefaultBindings()
	}
	if opts.Policy == "" {
		opts.Policy = core.PolicyZero
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 2 * time.Minute
	}
	logger := opts.Logger.WithComponent(log.ComponentDataset)
	return &DatasetService{
		reader:   reader,
		bindings: slices.Clone(opts.Bindings),
		columns:  opts.Columns.WithDefaults(),
		policy:   opts.Policy,
		store:    opts.Store,
		logger:   logger,
		sl:       log.NewStructuredLogger(logger),
		datasets:    cache.NewLRUCache[*core.Dataset](1, opts.CacheTTL),
		reports:     cache.NewLRUCache[Report](64, opts.CacheTTL),
		loadTimeout: opts.LoadTimeout,
		now:         time.Now,
	}
}

// Cleaners returns the caches owned by the service, for a cache.Manager.
func (s *DatasetService) Cleaners() []cache.Cleaner {
	return []cache.Cleaner{s.datasets, s.reports}
}

// Bindings returns the configured category bindings.
func (s *DatasetService) Bindings() []core.Binding {
	return slices.Clone(s.bindings)
}

// Load returns the cached dataset, reading the sheets when the cache is empty
// or expired. Concurrent callers share a single read, which is detached from
// any one caller's cancellation; a caller whose ctx ends stops waiting but the
// read goes on for the others.
func (s *DatasetService) Load(ctx context.Context) (*core.Dataset, error) {
	if ds, ok := s.datasets.Get(datasetKey); ok {
		return ds, nil
	}
	ch := s.loads.DoChan(datasetKey, func() (any, error) {
		if ds, ok := s.datasets.Get(datasetKey); ok {
			return ds, nil
		}
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()
		return s.load(lctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*core.Dataset), nil
	}
}

// Invalidate drops the cached dataset and every report built from it.
func (s *DatasetService) Invalidate() {
	s.datasets.Purge()
	s.reports.Purge()
}

// Current returns the last dataset served, if any, and whether it came from
// a snapshot.
func (s *DatasetService) Current() (*core.Dataset, bool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.fromSnapshot, s.last != nil
}

func (s *DatasetService) load(ctx context.Context) (*core.Dataset, error) {
	start := s.now()
	ds, err := s.fetch(ctx)
	if err != nil {
		if s.store == nil || !errors.Is(err, ErrSourceUnavailable) {
			s.sl.LogError(ctx, "Dataset load failed", err, log.OpLoad, log.NewFields())
			return nil, err
		}
		snap, snapErr := s.store.LatestSnapshot(ctx)
		if snapErr != nil {
			s.sl.LogError(ctx, "Dataset load failed and no snapshot is usable", err, log.OpLoad,
				log.LogFields{"snapshot_error": snapErr.Error()})
			return nil, err
		}
		s.logger.WarnContext(ctx, "Serving latest snapshot, data source unavailable",
			log.FieldSnapshotID, snap.SnapshotID,
			log.FieldError, err.Error())
		s.remember(snap, true)
		s.sl.LogDatasetLoaded(ctx, snap, true)
		return snap, nil
	}

	if s.store != nil {
		id, err := s.store.SaveSnapshot(ctx, ds)
		if err != nil {
			s.sl.LogError(ctx, "Failed to save snapshot", err, log.OpSnapshot, log.NewFields())
		} else {
			ds.SnapshotID = id
		}
	}
	s.remember(ds, false)
	s.sl.LogDatasetLoaded(ctx, ds, false)
	s.logger.DebugContext(ctx, "Dataset load finished", log.FieldDuration, s.now().Sub(start).Milliseconds())
	return ds, nil
}

func (s *DatasetService) remember(ds *core.Dataset, fromSnapshot bool) {
	s.datasets.Set(datasetKey, ds)
	s.reports.Purge()
	s.mu.Lock()
	s.last, s.fromSnapshot = ds, fromSnapshot
	s.mu.Unlock()
}

type sheetTables struct {
	movements core.RawTable
	summary   core.RawTable
}

// fetch reads every bound sheet concurrently and unions the results in
// binding order.
func (s *DatasetService) fetch(ctx context.Context) (*core.Dataset, error) {
	tables := make([]sheetTables, len(s.bindings))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range s.bindings {
		if b.MovementsSheet != "" {
			g.Go(func() error {
				t, err := s.readSheet(gctx, b.Category, b.MovementsSheet)
				tables[i].movements = t
				return err
			})
		}
		if b.SummarySheet != "" {
			g.Go(func() error {
				t, err := s.readSheet(gctx, b.Category, b.SummarySheet)
				tables[i].summary = t
				return err
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var (
		mInputs []report.MovementInput
		sInputs []report.SummaryInput
	)
	for i, b := range s.bindings {
		if b.MovementsSheet != "" {
			mInputs = append(mInputs, report.MovementInput{
				Category: b.Category, Family: b.Family, Table: tables[i].movements,
				Columns: s.columns.Movements, Policy: s.policy,
			})
		}
		if b.SummarySheet != "" {
			sInputs = append(sInputs, report.SummaryInput{
				Category: b.Category, Family: b.Family, Table: tables[i].summary,
				Columns: s.columns.Summary, Policy: s.policy,
			})
		}
	}

	movements, diag, err := report.UnionMovements(mInputs...)
	if err != nil {
		return nil, fmt.Errorf("union movements: %w", err)
	}
	summaries, sDiag, err := report.UnionSummaries(sInputs...)
	if err != nil {
		return nil, fmt.Errorf("union summaries: %w", err)
	}
	diag.Merge(sDiag)

	return &core.Dataset{
		LoadedAt:    s.now().UTC(),
		Movements:   movements,
		Summaries:   summaries,
		Diagnostics: diag,
	}, nil
}

func (s *DatasetService) readSheet(ctx context.Context, category, sheet string) (core.RawTable, error) {
	t, err := s.reader.ReadTable(ctx, sheet)
	if err != nil {
		// A missing worksheet is a binding problem, not an outage.
		if errors.Is(err, sheets.ErrSheetNotFound) {
			return core.RawTable{}, &core.ConfigurationError{Category: category, Reason: err.Error()}
		}
		return core.RawTable{}, fmt.Errorf("%w: read %q: %w", ErrSourceUnavailable, sheet, err)
	}
	s.logger.DebugContext(ctx, "Sheet read", log.NewFields().WithSheet(category, sheet, len(t.Records)).ToSlice()...)
	return t, nil
}

// Options lists the values the presentation layer offers as filters.
type Options struct {
	Categories []string      `json:"categories"`
	Periods    []core.Period `json:"periods"`
	Providers  []string      `json:"providers"`
	GroupKeys  []string      `json:"group_keys"`
}

// Report is everything a dashboard view needs for one filter.
type Report struct {
	SnapshotID    int64                    `json:"snapshot_id,omitempty"`
	LoadedAt      time.Time                `json:"loaded_at"`
	FromSnapshot  bool                     `json:"from_snapshot"`
	GroupBy       report.GroupKey          `json:"group_by"`
	Movements     []core.MovementRow       `json:"movements"`
	MovementTotal decimal.Decimal          `json:"movement_total"`
	Summaries     []report.AggregateResult `json:"summaries"`
	Overall       report.AggregateResult   `json:"overall"`
	Groups        []report.GroupTotal      `json:"groups"`
	Options       Options                  `json:"options"`
	Diagnostics   core.Diagnostics         `json:"diagnostics"`
}

// Report loads the dataset and builds the report for filter f grouped by key.
// Reports are cached per dataset and filter.
func (s *DatasetService) Report(ctx context.Context, f report.Filter, key report.GroupKey) (Report, error) {
	if key == "" {
		key = report.ByProvider
	}
	ds, err := s.Load(ctx)
	if err != nil {
		return Report{}, err
	}
	cacheKey := reportKey(ds, f, key)
	if r, ok := s.reports.Get(cacheKey); ok {
		return r, nil
	}

	_, fromSnapshot, _ := s.Current()
	movements := report.FilterMovements(ds.Movements, f)
	summaries := report.SummarizeAll(ds.Summaries, s.selectedCategories(f.Categories), f.Periods)
	r := Report{
		SnapshotID:    ds.SnapshotID,
		LoadedAt:      ds.LoadedAt,
		FromSnapshot:  fromSnapshot,
		GroupBy:       key,
		Movements:     movements,
		MovementTotal: report.Total(movements),
		Summaries:     summaries,
		Overall:       report.Overall(summaries),
		Groups:        report.GroupSum(movements, key),
		Options:       s.options(ds),
		Diagnostics:   ds.Diagnostics,
	}
	s.reports.Set(cacheKey, r)
	return r, nil
}

// selectedCategories keeps binding order and drops categories that are not
// bound.
func (s *DatasetService) selectedCategories(sel report.Selection[string]) []string {
	all := core.Categories(s.bindings)
	if sel.IsAll() {
		return all
	}
	out := make([]string, 0, len(sel))
	for _, c := range all {
		if sel.Matches(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s *DatasetService) options(ds *core.Dataset) Options {
	periods := report.Periods(ds.Movements)
	for _, r := range ds.Summaries {
		if r.Period.IsValid() && !slices.Contains(periods, r.Period) {
			periods = append(periods, r.Period)
		}
	}
	periods = slices.DeleteFunc(periods, func(p core.Period) bool { return !p.IsValid() })
	slices.Sort(periods)
	return Options{
		Categories: core.Categories(s.bindings),
		Periods:    periods,
		Providers:  slices.DeleteFunc(report.Providers(ds.Movements), func(p string) bool { return p == "" }),
		GroupKeys:  []string{string(report.ByProvider), string(report.ByCategory), string(report.ByPeriod)},
	}
}

func reportKey(ds *core.Dataset, f report.Filter, key report.GroupKey) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|%d|%s", ds.LoadedAt.UnixNano(), ds.SnapshotID, key)
	fmt.Fprintf(&b, "|c=%q", []string(f.Categories))
	fmt.Fprintf(&b, "|p=%v", []core.Period(f.Periods))
	fmt.Fprintf(&b, "|v=%q", []string(f.Providers))
	return b.String()
}
