// Package http provides HTTP server and handler implementations.
//
// This file keeps JSON responses and error mapping consistent across the
// API handlers.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"cajas/internal/core"
	"cajas/internal/log"
	"cajas/internal/report"
	"cajas/internal/services"
	"cajas/internal/sheets"
)

// ErrorBody is the JSON shape of every API error.
type ErrorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id,omitempty"`
}

// Error kinds.
const (
	KindBadRequest    = "bad_request"
	KindSchema        = "schema"
	KindConfiguration = "configuration"
	KindValue         = "value"
	KindUnavailable   = "unavailable"
	KindRateLimited   = "rate_limited"
	KindInternal      = "internal"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, kind, msg string) {
	writeJSON(w, status, ErrorBody{Error: msg, Kind: kind, RequestID: requestID(r)})
}

// classify maps load and filter errors to a status code and kind.
// Structural problems in the sheets are server errors, not client errors.
func classify(err error) (int, string) {
	var (
		filterErr *report.FilterError
		schemaErr *core.SchemaError
		cfgErr    *core.ConfigurationError
		valErr    *core.ValueError
	)
	switch {
	case errors.As(err, &filterErr):
		return http.StatusBadRequest, KindBadRequest
	case errors.As(err, &schemaErr):
		return http.StatusInternalServerError, KindSchema
	case errors.As(err, &cfgErr), errors.Is(err, sheets.ErrSheetNotFound):
		return http.StatusInternalServerError, KindConfiguration
	case errors.As(err, &valErr):
		return http.StatusInternalServerError, KindValue
	case errors.Is(err, services.ErrSourceUnavailable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, KindUnavailable
	default:
		return http.StatusInternalServerError, KindInternal
	}
}

// writeLoadError logs err and sends the mapped JSON error.
func (s *Server) writeLoadError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	logger := log.FromContext(r.Context())
	if status < 500 {
		logger.WarnContext(r.Context(), "Rejected request", log.FieldError, err.Error(), "kind", kind)
	} else {
		log.NewStructuredLogger(logger).LogError(r.Context(), "Report request failed", err, log.OpLoad, log.LogFields{"kind": kind})
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "30")
	}
	writeError(w, r, status, kind, err.Error())
}
