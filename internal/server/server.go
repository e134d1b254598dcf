// Package server implements the Fastline HTTP API.
//
// The server wraps a database.Store and exposes fast lifecycle operations,
// day and month timelines, statistics, preferences and import/export over
// JSON. Every request is counted and timed in Prometheus; /metrics serves
// the registry and /api/metrics a JSON snapshot of the server's own
// counters.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mr-Dark-debug/fastline/internal/config"
	"github.com/Mr-Dark-debug/fastline/internal/database"
	"github.com/Mr-Dark-debug/fastline/internal/logging"
	"github.com/Mr-Dark-debug/fastline/internal/metrics"
	"github.com/Mr-Dark-debug/fastline/internal/stats"
	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Config holds configuration for the API server.
type Config struct {
	// ListenAddr is the TCP address to listen on.
	ListenAddr string

	// DefaultGoal applies to fasts started without an explicit goal.
	// A stored default_goal preference overrides it.
	DefaultGoal time.Duration

	// Location is the zone in which calendar days are cut. A stored
	// timezone preference overrides it.
	Location *time.Location

	// ShutdownTimeout bounds the graceful shutdown. Zero means 5s.
	ShutdownTimeout time.Duration

	// DayCacheSize is the number of settled day timelines kept in memory.
	// Zero means 366.
	DayCacheSize int
}

// Counters tracks server activity since start.
type Counters struct {
	Requests      int64 `json:"requests"`
	FastsStarted  int64 `json:"fasts_started"`
	FastsStopped  int64 `json:"fasts_stopped"`
	FastsImported int64 `json:"fasts_imported"`
	ErrorCount    int64 `json:"error_count"`
	Uptime        int64 `json:"uptime_seconds"`
}

// Server is the HTTP API in front of a store.
type Server struct {
	config Config
	store  database.Store
	logger zerolog.Logger
	router *mux.Router

	mu       sync.RWMutex
	settings config.Settings
	analyzer *stats.Analyzer

	// cacheGen counts purges; a response computed before a purge is not cached.
	cacheMu  sync.Mutex
	cacheGen uint64
	days     *lru.Cache[string, dayResponse]

	counters Counters
	started  time.Time
	now      func() time.Time
}

// New creates a server for store. The router is built immediately so
// Handler can be used without Run.
func New(config Config, store database.Store, logger zerolog.Logger) (*Server, error) {
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 5 * time.Second
	}
	if config.DayCacheSize == 0 {
		config.DayCacheSize = 366
	}

	days, err := lru.New[string, dayResponse](config.DayCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create day cache: %w", err)
	}

	s := &Server{
		config:  config,
		store:   store,
		logger:  logging.Component(logger, "server"),
		started: time.Now(),
		now:     time.Now,
		days:    days,
	}
	s.setSettings(s.base())
	s.router = s.setupRouter()
	return s, nil
}

// base is the configuration before stored preferences apply.
func (s *Server) base() config.Settings {
	return config.Settings{Location: s.config.Location, DefaultGoal: s.config.DefaultGoal}
}

// LoadPreferences applies the stored timezone and default goal on top of
// Config. Invalid stored values are logged and skipped.
func (s *Server) LoadPreferences(ctx context.Context) error {
	prefs, err := s.store.Preferences(ctx)
	if err != nil {
		return err
	}
	settings, err := s.base().Apply(prefs)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Ignoring invalid stored preferences")
	}
	s.setSettings(settings)
	s.purgeDays()
	s.logger.Debug().
		Str("timezone", settings.Location.String()).
		Dur("default_goal", settings.DefaultGoal).
		Msg("Preferences applied")
	return nil
}

func (s *Server) setSettings(settings config.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	s.analyzer = stats.NewAnalyzer(s.store, settings.Location)
}

// current returns the effective settings and an analyzer for their zone.
func (s *Server) current() (config.Settings, *stats.Analyzer) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, s.analyzer
}

// purgeDays drops every cached day timeline after a write.
func (s *Server) purgeDays() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cacheGen++
	s.days.Purge()
}

func (s *Server) dayGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.cacheGen
}

// cacheDay stores resp unless a purge happened since gen was read.
func (s *Server) cacheDay(gen uint64, key string, resp dayResponse) bool {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if gen != s.cacheGen {
		return false
	}
	s.days.Add(key, resp)
	return true
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Counters returns a snapshot of the activity counters.
func (s *Server) Counters() Counters {
	return Counters{
		Requests:      atomic.LoadInt64(&s.counters.Requests),
		FastsStarted:  atomic.LoadInt64(&s.counters.FastsStarted),
		FastsStopped:  atomic.LoadInt64(&s.counters.FastsStopped),
		FastsImported: atomic.LoadInt64(&s.counters.FastsImported),
		ErrorCount:    atomic.LoadInt64(&s.counters.ErrorCount),
		Uptime:        int64(time.Since(s.started).Seconds()),
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully. The listener is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := s.LoadPreferences(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read preferences")
	}
	s.syncActiveGauge(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("API server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving HTTP: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info().Msg("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	})

	err := g.Wait()
	s.logger.Info().Msg("API server stopped")
	return err
}

// setupRouter configures the HTTP router with all endpoints
func (s *Server) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.instrument)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/metrics", s.handleCounters).Methods(http.MethodGet)

	api.HandleFunc("/fasts", s.handleListFasts).Methods(http.MethodGet)
	api.HandleFunc("/fasts/active", s.handleActiveFast).Methods(http.MethodGet)
	api.HandleFunc("/fasts/start", s.handleStartFast).Methods(http.MethodPost)
	api.HandleFunc("/fasts/stop", s.handleStopFast).Methods(http.MethodPost)
	api.HandleFunc("/fasts/{id}", s.handleGetFast).Methods(http.MethodGet)
	api.HandleFunc("/fasts/{id}", s.handleUpdateFast).Methods(http.MethodPatch)
	api.HandleFunc("/fasts/{id}", s.handleDeleteFast).Methods(http.MethodDelete)

	api.HandleFunc("/days/{date}/timeline", s.handleDayTimeline).Methods(http.MethodGet)
	api.HandleFunc("/months/{year:[0-9]+}/{month:[0-9]+}", s.handleMonth).Methods(http.MethodGet)

	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)
	api.HandleFunc("/import", s.handleImport).Methods(http.MethodPost)

	api.HandleFunc("/preferences", s.handleListPreferences).Methods(http.MethodGet)
	api.HandleFunc("/preferences/{key}", s.handleSetPreference).Methods(http.MethodPut)
	api.HandleFunc("/preferences/{key}", s.handleDeletePreference).Methods(http.MethodDelete)

	return router
}

// instrument counts and times every routed request.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		atomic.AddInt64(&s.counters.Requests, 1)
		metrics.ObserveRequest(route, r.Method, rec.status, time.Since(start))

		s.logger.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// syncActiveGauge sets the active fast gauge from the store.
func (s *Server) syncActiveGauge(ctx context.Context) {
	active, err := s.store.ActiveFast(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read active fast")
		return
	}
	metrics.SetActive(active != nil)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
