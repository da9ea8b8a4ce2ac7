// Package server exposes the ingestion trigger and read-only listing
// endpoints over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/motocodex/motofeeds/pkg/db"
	"github.com/motocodex/motofeeds/pkg/ingest"
	"github.com/motocodex/motofeeds/pkg/scoring"
)

//go:generate moq -out mocks/config.go -pkg mocks -skip-ensure -fmt goimports . ConfigProvider
//go:generate moq -out mocks/database.go -pkg mocks -skip-ensure -fmt goimports . Database
//go:generate moq -out mocks/ingester.go -pkg mocks -skip-ensure -fmt goimports . Ingester

// Server represents HTTP server instance
type Server struct {
	config   ConfigProvider
	database Database
	ingester Ingester
	scorer   *scoring.Engine
	secret   string
	version  string
	debug    bool

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// Database interface for read-only server operations
type Database interface {
	ListPosts(ctx context.Context, filter db.PostsFilter) ([]db.Post, error)
	GetRecentRuns(ctx context.Context, limit int) ([]db.IngestRun, error)
	GetSources(ctx context.Context) ([]db.Source, error)
	CountSources(ctx context.Context) (total, enabled int, err error)
	CountPosts(ctx context.Context) (int, error)
}

// Ingester runs ingestion passes and backfills on demand
type Ingester interface {
	Run(ctx context.Context) (*ingest.Summary, error)
	Rescore(ctx context.Context, workers int) (int, error)
}

// ConfigProvider provides server configuration
type ConfigProvider interface {
	GetServerConfig() (listen string, timeout time.Duration)
}

// Options holds server construction settings
type Options struct {
	Secret   string
	Version  string
	Debug    bool
	HalfLife time.Duration // recency decay for rank-ordered listing
}

// New initializes a new server instance
func New(cfg ConfigProvider, database Database, ingester Ingester, opts Options) *Server {
	s := &Server{
		config:   cfg,
		database: database,
		ingester: ingester,
		scorer:   scoring.NewEngine(opts.HalfLife),
		secret:   opts.Secret,
		version:  opts.Version,
		debug:    opts.Debug,
		router:   routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	listen, timeout := s.config.GetServerConfig()
	log.Printf("[INFO] starting server on %s", listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:         listen,
		Handler:      s.router,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		log.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("motofeeds", "motocodex", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)
		r.HandleFunc("GET /posts", s.postsHandler)
		r.HandleFunc("GET /runs", s.runsHandler)
		r.HandleFunc("GET /sources", s.sourcesHandler)

		r.Group().With(s.authMiddleware).Route(func(auth *routegroup.Bundle) {
			auth.HandleFunc("GET /ingest/run", s.ingestRunHandler)
			auth.HandleFunc("POST /ingest/run", s.ingestRunHandler)
			auth.HandleFunc("POST /posts/rescore", s.rescoreHandler)
		})
	})
}

// authMiddleware checks the shared secret from the token query parameter or
// the Authorization bearer header
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provided := r.URL.Query().Get("token")
		if provided == "" {
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				provided = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if s.secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(s.secret)) != 1 {
			RenderError(w, r, fmt.Errorf("unauthorized"), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RenderJSON sends JSON response
func RenderJSON(w http.ResponseWriter, _ *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// RenderError sends error response as JSON
func RenderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	RenderJSON(w, r, code, map[string]string{"error": errMsg})
}
