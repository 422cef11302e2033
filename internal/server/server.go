// Package server exposes published docbundle artifacts over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"

	derrors "git.home.luguber.info/inful/docbundle/internal/foundation/errors"
	"git.home.luguber.info/inful/docbundle/internal/loader"
	"git.home.luguber.info/inful/docbundle/internal/logfields"
	"git.home.luguber.info/inful/docbundle/internal/metrics"
	"git.home.luguber.info/inful/docbundle/internal/server/handlers"
	smw "git.home.luguber.info/inful/docbundle/internal/server/middleware"
)

// Options wires optional collaborators into the server.
type Options struct {
	Recorder metrics.Recorder
	// Registry is exposed on /metrics; nil serves the default registry.
	Registry *prom.Registry
}

// Server is the documentation API server.
type Server struct {
	Addr   string
	router *chi.Mux
	server *http.Server
	done   chan struct{}
}

// New creates a server for addr reading artifacts through l.
func New(addr string, l *loader.Loader, opts Options) *Server {
	s := &Server{
		Addr:   addr,
		router: chi.NewRouter(),
	}
	s.setupRoutes(l, opts)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes(l *loader.Loader, opts Options) {
	adapter := derrors.NewHTTPErrorAdapter(slog.Default())
	docs := handlers.NewDocsHandlers(l)
	artifacts := handlers.NewArtifactHandlers(l.Source())

	s.router.Use(chimw.RealIP)
	s.router.Use(smw.Chain(slog.Default(), adapter, opts.Recorder))

	s.router.Get("/healthz", docs.HandleHealth)
	s.router.Handle("/metrics", metrics.HTTPHandler(opts.Registry))

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/manifest", docs.HandleManifest)
		r.Get("/nav", docs.HandleNav)
		r.Get("/page", docs.HandlePage)
		r.Get("/docs/*", docs.HandleDoc)
	})
	s.router.Get("/artifacts/*", artifacts.HandleArtifact)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		adapter.WriteErrorResponse(w, r, derrors.NotFoundError("route not found").
			WithContext("path", r.URL.Path).
			Build())
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start binds the listen address and serves in the background. Binding
// errors are returned immediately; Addr is updated to the bound address.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.Addr)
	if err != nil {
		return derrors.NewError(derrors.CategoryRuntime, "failed to bind HTTP listener").
			WithCause(err).
			WithContext("addr", s.Addr).
			Build()
	}
	s.Addr = ln.Addr().String()
	s.done = make(chan struct{})
	slog.Info("HTTP server started", slog.String("addr", s.Addr))

	go func() {
		defer close(s.done)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", logfields.Error(err))
		}
	}()
	return nil
}

// Shutdown gracefully stops the server and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	if s.done != nil {
		select {
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
