package http

import (
	"html/template"
	"net/http"

	"github.com/shopspring/decimal"

	"cajas/internal/core"
	"cajas/internal/middleware/trace"
	"cajas/internal/render"
)

func requestID(r *http.Request) string {
	return trace.GetRequestID(r.Context())
}

// templateFuncs exposes locale formatting to the HTML templates.
func templateFuncs(f render.Formatter) template.FuncMap {
	return template.FuncMap{
		"amount":  func(d decimal.Decimal) string { return f.Amount(d) },
		"percent": func(p float64) string { return f.Percent(p) },
		"count":   func(n int) string { return f.Int(n) },
		"period":  func(p core.Period) string { return p.String() },
		"selected": func(sel []string, v string) bool {
			for _, s := range sel {
				if s == v {
					return true
				}
			}
			return false
		},
		"selectedPeriod": func(sel []core.Period, p core.Period) bool {
			for _, s := range sel {
				if s == p {
					return true
				}
			}
			return false
		},
	}
}
