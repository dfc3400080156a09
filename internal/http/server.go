package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"ledgerview/internal/listview"
	"ledgerview/internal/log"
	"ledgerview/internal/middleware/ratelimit"
	"ledgerview/internal/middleware/security"
	"ledgerview/internal/middleware/trace"
	"ledgerview/internal/records"
	"ledgerview/internal/services"
	"ledgerview/internal/workspace"
	appweb "ledgerview/web"
)

// Deps wires the server to the rest of the application. Registry, Tenants
// and Formatter are required.
type Deps struct {
	Registry  *workspace.Registry
	Tenants   records.TenantLister
	Formatter listview.Formatter
	// Publisher announces tenant switches to other replicas. Optional.
	Publisher services.Publisher
	// Ready reports store health for /readyz. Optional.
	Ready  func(ctx context.Context) error
	Logger *log.Logger
	Proxy  *security.ProxyTrust
	// RefreshLimit caps refreshes and tenant switches per caller per
	// minute. Zero disables the limit.
	RefreshLimit int
}

type Server struct {
	http.Server
	templates *template.Template
	logger    *log.Logger

	registry  *workspace.Registry
	tenants   records.TenantLister
	formatter listview.Formatter
	publisher services.Publisher
	ready     func(ctx context.Context) error

	proxy           *security.ProxyTrust
	rateLimiter     *ratelimit.Limiter
	traceMiddleware *trace.Middleware
	started         time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	proxy := deps.Proxy
	if proxy == nil {
		proxy = security.NewProxyTrust("")
	}

	s := &Server{
		logger:    logger.WithComponent(log.ComponentHTTP),
		registry:  deps.Registry,
		tenants:   deps.Tenants,
		formatter: deps.Formatter,
		publisher: deps.Publisher,
		ready:     deps.Ready,
		proxy:     proxy,
		started:   time.Now(),
	}
	s.traceMiddleware = trace.NewMiddleware(logger, proxy.ExtractClientIP)
	if deps.RefreshLimit > 0 {
		s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerWindow: deps.RefreshLimit,
			Window:            time.Minute,
		})
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldComponent, log.ComponentTemplate, "error", err)
	}
	s.templates = t

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(log.Middleware(s.logger))
	r.Use(s.traceMiddleware.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.Handle("/static/*", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.withWorkspace)

		r.Get("/", s.handleIndex)
		r.Get("/{slug}", s.handlePage)
		r.Get("/ui/lists/{slug}", s.handleListPartial)
		r.Get("/api/lists/{slug}", s.handleAPIList)

		r.Group(func(r chi.Router) {
			if s.rateLimiter != nil {
				r.Use(s.rateLimiter.Middleware(workspaceKey, s.onRateLimited))
			}
			r.Post("/ui/lists/{slug}/refresh", s.handleRefresh)
			r.Post("/tenant", s.handleSelectTenant)
		})
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldPath, r.URL.Path,
		"workspace", workspaceKey(r))
	ErrorResponse(http.StatusTooManyRequests, "Too many refreshes. Please wait a moment.").
		TriggerErrorNotification("Too many refreshes. Please wait a moment.").
		Write(w)
}
