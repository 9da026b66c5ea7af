// Package api is the HTTP surface of podreport.
package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/alextanhongpin/podreport/pkg/auth"
	"github.com/alextanhongpin/podreport/pkg/channel"
	"github.com/alextanhongpin/podreport/pkg/job"
	"github.com/alextanhongpin/podreport/pkg/report"
)

type Options struct {
	FrontendURL    string
	AllowedOrigins []string
	// StaticDir, when set, is served for every path outside /api with
	// index.html as the fallback.
	StaticDir string
	Secure    bool

	Jobs          *job.Service
	Reports       *report.Service
	Channels      *channel.Service
	Sessions      *auth.Sessions
	Authenticator Authenticator
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// GenerateLimit throttles POST /api/reports/generate when set.
	GenerateLimit *rate.Limiter
	Logger        zerolog.Logger
}

type API struct {
	jobs          *job.Service
	reports       *report.Service
	channels      *channel.Service
	sessions      *auth.Sessions
	authenticator Authenticator
	generateLimit *rate.Limiter
	frontendURL   string
	secure        bool
	log           zerolog.Logger
}

// New builds the router.
func New(opts Options) http.Handler {
	a := &API{
		jobs:          opts.Jobs,
		reports:       opts.Reports,
		channels:      opts.Channels,
		sessions:      opts.Sessions,
		authenticator: opts.Authenticator,
		generateLimit: opts.GenerateLimit,
		frontendURL:   trimSlash(opts.FrontendURL),
		secure:        opts.Secure,
		log:           opts.Logger.With().Str("pkg", "api").Logger(),
	}

	origins := opts.AllowedOrigins
	if opts.FrontendURL != "" {
		origins = append([]string{a.frontendURL}, origins...)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(a.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		if a.authenticator != nil {
			r.Route("/auth", a.authRoutes)
		}
		r.Route("/channel", a.channelRoutes)

		r.Group(func(r chi.Router) {
			r.Use(a.sessions.Require)
			r.Route("/jobs", a.jobRoutes)
			r.Route("/reports", a.reportRoutes)
		})
	})

	if opts.StaticDir != "" {
		r.NotFound(spa(opts.StaticDir))
	}

	return r
}

// GenerateLimiter allows perMinute report generations with a burst of half
// that. It returns nil, meaning unlimited, when perMinute is not positive.
func GenerateLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}

	return rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), max(perMinute/2, 1))
}

// throttle answers 429 once l runs out of tokens.
func throttle(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				writeJSON(w, http.StatusTooManyRequests, Envelope{
					Message: "Too many report requests, try again later",
				})

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// spa serves files from dir and falls back to index.html for client routes.
func spa(dir string) http.HandlerFunc {
	fs := http.FileServer(http.Dir(dir))

	return func(w http.ResponseWriter, r *http.Request) {
		if (r.Method != http.MethodGet && r.Method != http.MethodHead) || strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)

			return
		}

		p := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(p); err != nil || info.IsDir() {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))

			return
		}

		fs.ServeHTTP(w, r)
	}
}
