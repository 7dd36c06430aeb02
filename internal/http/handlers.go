package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"cajas/internal/core"
	"cajas/internal/log"
	"cajas/internal/report"
	"cajas/internal/services"
)

const readyTimeout = 10 * time.Second

type summaryResponse struct {
	LoadedAt     time.Time                `json:"loaded_at"`
	FromSnapshot bool                     `json:"from_snapshot"`
	Summaries    []report.AggregateResult `json:"summaries"`
	Overall      report.AggregateResult   `json:"overall"`
}

type movementsResponse struct {
	Movements []core.MovementRow `json:"movements"`
	Count     int                `json:"count"`
	Total     decimal.Decimal    `json:"total"`
}

type groupsResponse struct {
	GroupBy report.GroupKey     `json:"group_by"`
	Groups  []report.GroupTotal `json:"groups"`
}

type diagnosticsResponse struct {
	SnapshotID   int64            `json:"snapshot_id,omitempty"`
	LoadedAt     time.Time        `json:"loaded_at"`
	FromSnapshot bool             `json:"from_snapshot"`
	Diagnostics  core.Diagnostics `json:"diagnostics"`
}

type reloadResponse struct {
	SnapshotID   int64     `json:"snapshot_id,omitempty"`
	LoadedAt     time.Time `json:"loaded_at"`
	FromSnapshot bool      `json:"from_snapshot"`
	Movements    int       `json:"movements"`
	Summaries    int       `json:"summaries"`
}

// buildReport parses the query and asks the service for the report.
func (s *Server) buildReport(r *http.Request) (services.Report, error) {
	f, key, err := parseQuery(r.URL.Query())
	if err != nil {
		return services.Report{}, err
	}
	return s.svc.Report(r.Context(), f, key)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rep, err := s.buildReport(r)
	if err != nil {
		s.writeLoadError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		LoadedAt:     rep.LoadedAt,
		FromSnapshot: rep.FromSnapshot,
		Summaries:    rep.Summaries,
		Overall:      rep.Overall,
	})
}

func (s *Server) handleMovements(w http.ResponseWriter, r *http.Request) {
	rep, err := s.buildReport(r)
	if err != nil {
		s.writeLoadError(w, r, err)
		return
	}
	movements := rep.Movements
	if movements == nil {
		movements = []core.MovementRow{}
	}
	writeJSON(w, http.StatusOK, movementsResponse{
		Movements: movements,
		Count:     len(movements),
		Total:     rep.MovementTotal,
	})
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	rep, err := s.buildReport(r)
	if err != nil {
		s.writeLoadError(w, r, err)
		return
	}
	groups := rep.Groups
	if groups == nil {
		groups = []report.GroupTotal{}
	}
	writeJSON(w, http.StatusOK, groupsResponse{GroupBy: rep.GroupBy, Groups: groups})
}

// handleOptions lists the filter values of the whole dataset; query
// parameters are ignored.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	rep, err := s.svc.Report(r.Context(), report.Filter{}, report.ByProvider)
	if err != nil {
		s.writeLoadError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep.Options)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	ds, err := s.svc.Load(r.Context())
	if err != nil {
		s.writeLoadError(w, r, err)
		return
	}
	_, fromSnapshot, _ := s.svc.Current()
	writeJSON(w, http.StatusOK, diagnosticsResponse{
		SnapshotID:   ds.SnapshotID,
		LoadedAt:     ds.LoadedAt,
		FromSnapshot: fromSnapshot,
		Diagnostics:  ds.Diagnostics,
	})
}

// handleReload drops the cached dataset and reads the sheets again.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.svc.Invalidate()
	ds, err := s.svc.Load(ctx)
	if err != nil {
		s.writeLoadError(w, r, err)
		return
	}
	_, fromSnapshot, _ := s.svc.Current()
	log.FromContext(ctx).InfoContext(ctx, "Dataset reloaded",
		log.NewFields().WithDataset(ds).WithOperation(log.OpRefresh).ToSlice()...)

	if s.onReload != nil && !fromSnapshot {
		s.onReload(context.WithoutCancel(ctx), ds)
	}
	writeJSON(w, http.StatusOK, reloadResponse{
		SnapshotID:   ds.SnapshotID,
		LoadedAt:     ds.LoadedAt,
		FromSnapshot: fromSnapshot,
		Movements:    len(ds.Movements),
		Summaries:    len(ds.Summaries),
	})
}

func (s *Server) rejectReload(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Reload rate limited",
		log.FieldClientIP, s.detector.ExtractClientIP(r))
	writeError(w, r, http.StatusTooManyRequests, KindRateLimited, "reload rate limit exceeded, try again later")
}

// handleHealth is a liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks templates, external dependencies and that a dataset is
// available, loading one if needed.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := map[string]string{}
	fail := func(name string, err error) {
		checks[name] = "failed: " + err.Error()
		status = "not_ready"
		code = http.StatusServiceUnavailable
	}

	if s.templates == nil {
		fail("templates", fmt.Errorf("templates not loaded"))
	} else {
		checks["templates"] = "ok"
	}

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			fail("dependencies", err)
		} else {
			checks["dependencies"] = "ok"
		}
	}

	if _, fromSnapshot, ok := s.svc.Current(); ok {
		checks["dataset"] = "ok"
		if fromSnapshot {
			checks["dataset"] = "snapshot"
		}
	} else if _, err := s.svc.Load(ctx); err != nil {
		fail("dataset", err)
	} else {
		checks["dataset"] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

type indexData struct {
	Report     services.Report
	Categories []string
	Periods    []core.Period
	Providers  []string
	GroupBy    string
	Locale     string
	Error      string
}

// handleIndex renders the dashboard page for the query filter.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := indexData{Locale: s.formatter.Locale()}
	status := http.StatusOK

	f, key, err := parseQuery(r.URL.Query())
	if err == nil {
		data.Report, err = s.svc.Report(r.Context(), f, key)
	}
	if err != nil {
		var kind string
		status, kind = classify(err)
		log.FromContext(r.Context()).WarnContext(r.Context(), "Dashboard render without data",
			log.FieldError, err.Error(), "kind", kind)
		data.Error = err.Error()
	}
	data.Categories = f.Categories
	data.Periods = f.Periods
	data.Providers = f.Providers
	data.GroupBy = string(key)

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err.Error(), "template", "index.html", log.FieldOperation, log.OpRender)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
