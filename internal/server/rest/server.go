// Package rest exposes the habits API over HTTP using echo.
package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophhabits/internal/datex"
	"github.com/dmitrijs2005/gophhabits/internal/logging"
	"github.com/dmitrijs2005/gophhabits/internal/server/models"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// HabitManager is the lifecycle side of the API.
type HabitManager interface {
	Create(ctx context.Context, name string, description *string) (*models.Habit, error)
	Get(ctx context.Context, id string) (*models.Habit, error)
	Update(ctx context.Context, id string, u models.HabitUpdate) (*models.Habit, error)
	Delete(ctx context.Context, id string) error
	MarkCompletion(ctx context.Context, habitID string, date datex.Date) (*models.Completion, error)
	UnmarkCompletion(ctx context.Context, habitID string, date datex.Date) error
	MarkAbsence(ctx context.Context, habitID string, date datex.Date, reason *string) (*models.Absence, error)
	UnmarkAbsence(ctx context.Context, habitID string, date datex.Date) error
	ListCompletions(ctx context.Context, habitID string, r models.DateRange) ([]*models.Completion, error)
	ListAbsences(ctx context.Context, habitID string, r models.DateRange) ([]*models.Absence, error)
}

// StatsProvider computes habits with their statistics.
type StatsProvider interface {
	HabitWithStats(ctx context.Context, id string) (*models.HabitWithStats, error)
	ListHabitsWithStats(ctx context.Context) ([]*models.HabitWithStats, error)
}

// BackupCreator uploads a snapshot and returns its key and a download URL.
type BackupCreator interface {
	Create(ctx context.Context) (key, url string, err error)
}

// Pinger reports database reachability for /health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options configures NewServer.
type Options struct {
	Address         string
	CORSOrigins     []string
	RateLimit       float64 // requests per second per client; 0 disables
	ShutdownTimeout time.Duration
}

type Server struct {
	echo    *echo.Echo
	opts    Options
	habits  HabitManager
	stats   StatsProvider
	backups BackupCreator
	db      Pinger
	logger  logging.Logger
}

// NewServer builds the echo instance with middleware and routes. backups may
// be nil when snapshot uploads are disabled.
func NewServer(opts Options, l logging.Logger, hm HabitManager, sp StatsProvider, bc BackupCreator, db Pinger) (*Server, error) {
	if hm == nil || sp == nil {
		return nil, fmt.Errorf("habit and stats services are required")
	}
	if l == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		opts:    opts,
		habits:  hm,
		stats:   sp,
		backups: bc,
		db:      db,
		logger:  l.With("module", "http_server"),
	}

	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.observe)
	if len(opts.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     opts.CORSOrigins,
			AllowCredentials: true,
		}))
	}
	if opts.RateLimit > 0 {
		e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Skipper: func(c echo.Context) bool { return c.Path() == "/health" || c.Path() == "/metrics" },
			Store:   middleware.NewRateLimiterMemoryStore(rate.Limit(opts.RateLimit)),
		}))
	}

	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")
	api.GET("/", s.handleRoot)
	api.POST("/backups", s.handleCreateBackup)

	h := api.Group("/habits")
	h.GET("", s.handleListHabits)
	h.POST("", s.handleCreateHabit)
	h.GET("/:id", s.handleGetHabit)
	h.PUT("/:id", s.handleUpdateHabit)
	h.DELETE("/:id", s.handleDeleteHabit)
	h.GET("/:id/stats", s.handleHabitStats)

	h.POST("/:id/complete", s.handleComplete)
	h.GET("/:id/completions", s.handleListCompletions)
	h.DELETE("/:id/completions/:date", s.handleUncomplete)

	h.POST("/:id/absences", s.handleCreateAbsence)
	h.GET("/:id/absences", s.handleListAbsences)
	h.DELETE("/:id/absences/:date", s.handleDeleteAbsence)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.opts.Address)
		if err := s.echo.Start(s.opts.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
