// Package dashboard serves the analytics views and the assistant widget as
// server-rendered HTML, keeping one browser's state per session cookie.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
	"github.com/KaramelBytes/titanic-analytics/internal/logging"
)

const (
	sweepInterval = time.Hour
	shutdownGrace = 5 * time.Second
)

// Server is the dashboard web server.
type Server struct {
	src          api.Source
	sessionStore *sessions.CookieStore
	states       *registry
	addr         string
	pageSize     int
	timeouts     api.Timeouts
	hideIntro    bool
	now          func() time.Time
	logger       *slog.Logger
	views        *views
}

// Config holds configuration for the dashboard server.
type Config struct {
	Source api.Source
	Addr   string
	// SessionSecret signs the session cookie. Empty generates a key that
	// lives as long as the process.
	SessionSecret string
	PageSize      int
	Timeouts      api.Timeouts
	// HideIntro suppresses the intro panel for every session.
	HideIntro bool
	Now       func() time.Time
	Logger    *slog.Logger
}

// NewServer creates a new dashboard server instance.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("dashboard: no data source")
	}
	logger := logging.OrDiscard(cfg.Logger)
	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		logger.Warn("no session_secret configured, sessions will not survive a restart")
		secret = securecookie.GenerateRandomKey(32)
	}
	sessionStore := sessions.NewCookieStore(secret)
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	tmpl, err := parseViews()
	if err != nil {
		return nil, err
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Server{
		src:          cfg.Source,
		sessionStore: sessionStore,
		states:       newRegistry(now),
		addr:         cfg.Addr,
		pageSize:     cfg.PageSize,
		timeouts:     cfg.Timeouts,
		hideIntro:    cfg.HideIntro,
		now:          now,
		logger:       logger,
		views:        tmpl,
	}, nil
}

// Handler builds the router with middleware and every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.RequestLogger(&middleware.DefaultLogFormatter{
			Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
			NoColor: true,
		}),
		middleware.Recoverer,
		middleware.Compress(5),
	)
	s.setupRoutes(r)
	return r
}

// Serve listens on the configured address and blocks until ctx is
// cancelled. A bind failure is returned before anything is served.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("dashboard: listen %s: %w", s.addr, err)
	}
	return s.serve(ctx, ln)
}

// serve runs the HTTP server on ln next to the idle-session sweeper.
// Cancelling ctx stops the sweeper and drains in-flight requests.
func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("dashboard listening", "addr", ln.Addr().String(), "page_size", s.pageSize)
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("dashboard: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		tick := time.NewTicker(sweepInterval)
		defer tick.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-tick.C:
				if n := s.states.prune(); n > 0 {
					s.logger.Debug("dropped idle sessions", "count", n)
				}
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
		defer cancel()
		s.logger.Debug("dashboard draining", "sessions", s.states.len())
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
