// Package http serves the dashboard: JSON endpoints over the filtered report
// plus a server-rendered HTML page built from the same data.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"cajas/internal/core"
	"cajas/internal/log"
	"cajas/internal/middleware/ratelimit"
	"cajas/internal/middleware/security"
	"cajas/internal/middleware/trace"
	"cajas/internal/render"
	"cajas/internal/report"
	"cajas/internal/services"
	appweb "cajas/web"
)

// ReportService is the part of services.DatasetService the handlers use.
type ReportService interface {
	Report(ctx context.Context, f report.Filter, key report.GroupKey) (services.Report, error)
	Load(ctx context.Context) (*core.Dataset, error)
	Invalidate()
	Current() (ds *core.Dataset, fromSnapshot bool, ok bool)
}

// Options tunes a Server. Zero values fall back to defaults.
type Options struct {
	Logger    *log.Logger
	Formatter *render.Formatter
	// ReloadLimit bounds POST /api/reload per client IP.
	ReloadLimit ratelimit.Config
	Headers     *security.HeadersConfig
	// TrustedProxies are CIDRs whose X-Forwarded-For is honored.
	TrustedProxies []string
	// Ready reports the health of dependencies outside the dataset, such as
	// the snapshot store.
	Ready func(ctx context.Context) error
	// OnReload runs after a successful manual reload.
	OnReload func(ctx context.Context, ds *core.Dataset)
}

type Server struct {
	http.Server
	svc       ReportService
	templates *template.Template
	formatter render.Formatter
	logger    *log.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	ready    func(ctx context.Context) error
	onReload func(ctx context.Context, ds *core.Dataset)
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, svc ReportService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	formatter := render.MustFormatter(render.DefaultLocale, "$")
	if opts.Formatter != nil {
		formatter = *opts.Formatter
	}
	limitCfg := opts.ReloadLimit
	if limitCfg.Requests <= 0 || limitCfg.Window <= 0 {
		limitCfg = ratelimit.DefaultConfig()
	}
	headers := security.DefaultHeadersConfig()
	if opts.Headers != nil {
		headers = *opts.Headers
	}

	s := &Server{
		svc:       svc,
		formatter: formatter,
		logger:    logger,
		limiter:   ratelimit.NewLimiter(limitCfg),
		detector:  security.NewDetector(),
		ready:     opts.Ready,
		onReload:  opts.OnReload,
		started:   time.Now(),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, log.FieldError, err.Error())
		}
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	t, err := template.New("").Funcs(templateFuncs(formatter)).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates", log.FieldError, err.Error())
	}
	s.templates = t

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	if static, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		files := http.StripPrefix("/static/", http.FileServerFS(static))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(86400)(files))
	}
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/movements", s.handleMovements)
	mux.HandleFunc("GET /api/groups", s.handleGroups)
	mux.HandleFunc("GET /api/options", s.handleOptions)
	mux.HandleFunc("GET /api/diagnostics", s.handleDiagnostics)
	mux.Handle("POST /api/reload", s.limiter.Middleware(s.detector.ExtractClientIP, s.rejectReload)(http.HandlerFunc(s.handleReload)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	var handler http.Handler = mux
	handler = s.detector.Middleware(handler)
	handler = security.Headers(headers)(handler)
	handler = s.tracer.Middleware(handler)
	handler = log.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops accepting requests and releases the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logger.InfoContext(ctx, "Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
