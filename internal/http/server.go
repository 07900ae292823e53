package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	dlog "diary/internal/log"
	"diary/internal/middleware/ratelimit"
	"diary/internal/middleware/security"
	"diary/internal/middleware/trace"
	"diary/internal/services"
	appweb "diary/web"
)

// CacheControl is the explicit invalidation surface of the read cache.
type CacheControl interface {
	InvalidateAll()
	Sizes() (taxonomy, entries int)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers call. Cache and Store are optional.
type Deps struct {
	Entries  *services.EntryService
	Taxonomy *services.TaxonomyService
	Reports  *services.ReportService
	Cache    CacheControl
	Store    Pinger
}

type Options struct {
	Addr               string
	RateLimitPerMinute int
	Logger             *dlog.Logger
	Now                func() time.Time // defaults to time.Now
}

type Server struct {
	http.Server
	templates *template.Template
	entries   *services.EntryService
	taxonomy  *services.TaxonomyService
	reports   *services.ReportService
	cache     CacheControl
	store     Pinger
	logger    *dlog.Logger
	now       func() time.Time

	traceMiddleware *trace.Middleware
	rateLimiter     *ratelimit.Limiter

	started      time.Time
	entryWrites  atomic.Int64
	taxWrites    atomic.Int64
	shutdownOnce sync.Once
}

// NewServer parses the embedded templates, registers the routes and wraps
// them in the trace, security headers and rate limit middleware.
func NewServer(opts Options, deps Deps) (*Server, error) {
	if deps.Entries == nil || deps.Taxonomy == nil || deps.Reports == nil {
		return nil, errors.New("entry, taxonomy and report services are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = dlog.New(dlog.DefaultConfig())
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		templates:       t,
		entries:         deps.Entries,
		taxonomy:        deps.Taxonomy,
		reports:         deps.Reports,
		cache:           deps.Cache,
		store:           deps.Store,
		logger:          logger.WithComponent(dlog.ComponentHTTP),
		now:             now,
		traceMiddleware: trace.NewMiddleware(logger, extractClientIP),
		rateLimiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		started:         now(),
	}

	mux := http.NewServeMux()
	if err := s.routes(mux); err != nil {
		s.rateLimiter.Stop()
		return nil, err
	}

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.rateLimiter.Middleware(extractClientIP, s.onRateLimit)(mux)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.traceMiddleware.Middleware(headers.Middleware(limited)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) error {
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("mount static assets: %w", err)
	}
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServerFS(static))))

	// Pages
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /reports", s.handleReports)
	mux.HandleFunc("GET /settings", s.handleSettings)

	// UI partials
	partial := func(h http.HandlerFunc) http.Handler { return security.NoStoreMiddleware(h) }
	mux.Handle("GET /ui/calendar", partial(s.handleCalendar))
	mux.Handle("GET /ui/day", partial(s.handleDay))
	mux.Handle("GET /ui/items", partial(s.handleItems))
	mux.Handle("GET /ui/report", partial(s.handleReportPartial))
	mux.HandleFunc("POST /ui/refresh", s.handleRefresh)

	// Entries
	entry := componentRoutes(mux, dlog.ComponentEntry)
	entry("POST /entries", s.handleCreateEntry)
	entry("PUT /entries/{id}", s.handleUpdateEntry)
	entry("DELETE /entries/{id}", s.handleDeleteEntry)
	entry("GET /api/entries", s.handleListEntries)

	// Taxonomy
	tax := componentRoutes(mux, dlog.ComponentTaxonomy)
	tax("GET /api/categories", s.handleListCategories)
	tax("POST /categories", s.handleCreateCategory)
	tax("PUT /categories/{id}", s.handleUpdateCategory)
	tax("POST /categories/{id}/active", s.handleSetCategoryActive)
	tax("POST /categories/{id}/move", s.handleMoveCategory)
	tax("DELETE /categories/{id}", s.handleDeleteCategory)
	tax("POST /categories/{id}/items", s.handleCreateItem)
	tax("PUT /items/{id}", s.handleUpdateItem)
	tax("POST /items/{id}/active", s.handleSetItemActive)
	tax("POST /items/{id}/move", s.handleMoveItem)
	tax("DELETE /items/{id}", s.handleDeleteItem)

	// Export
	componentRoutes(mux, dlog.ComponentExport)("GET /export", s.handleExport)

	// Ops
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	return nil
}

// componentRoutes returns a registrar tagging request logs with component.
func componentRoutes(mux *http.ServeMux, component string) func(pattern string, h http.HandlerFunc) {
	mw := dlog.ComponentMiddleware(component)
	return func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, mw(h))
	}
}

// Shutdown stops the rate limiter and gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		dlog.FieldClientIP, extractClientIP(r),
		dlog.FieldMethod, r.Method,
		dlog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests, slow down").
		Header("Retry-After", "60").
		TriggerNotification(NotificationWarning, "Too many requests, slow down", 5000).
		Write(w)
}

// respond renders the named template into b and writes it. Rendering happens
// before any header is sent, so a template failure still yields a clean 500.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		dlog.FromContext(r.Context()).ErrorContext(r.Context(), "Template render failed",
			dlog.FieldOperation, dlog.OpRender,
			"template", name,
			dlog.FieldError, err)
		InternalServerError("Rendering failed").Write(w)
		return
	}
	b.BodyHTMLBytes(buf.Bytes()).Write(w)
}

// isHTMX reports whether the request was issued by HTMX. Other clients get
// JSON or empty responses from the write endpoints.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
