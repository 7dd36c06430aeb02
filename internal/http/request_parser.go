// Package http provides HTTP server and handler implementations.
//
// This file turns query strings into report filters. Every dimension accepts
// repeated parameters (?period=1&period=2), comma lists (?period=1,2) or a
// mix of both; an absent parameter or the value "all" selects everything.

package http

import (
	"net/url"

	"cajas/internal/report"
)

// parseQuery reads the filter and the grouping key from query parameters.
func parseQuery(q url.Values) (report.Filter, report.GroupKey, error) {
	f, err := report.ParseFilter(q[report.ParamCategory], q[report.ParamPeriod], q[report.ParamProvider])
	if err != nil {
		return report.Filter{}, "", err
	}
	key, err := report.ParseGroupBy(q.Get(report.ParamGroupBy))
	if err != nil {
		return report.Filter{}, "", err
	}
	return f, key, nil
}
