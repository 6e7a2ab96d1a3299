// Package server wires the habits application together: it opens the
// database, builds the services, starts the HTTP and gRPC servers and the
// periodic backup, and handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophhabits/internal/datex"
	"github.com/dmitrijs2005/gophhabits/internal/dbx"
	"github.com/dmitrijs2005/gophhabits/internal/logging"
	"github.com/dmitrijs2005/gophhabits/internal/server/backup"
	"github.com/dmitrijs2005/gophhabits/internal/server/config"
	"github.com/dmitrijs2005/gophhabits/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophhabits/internal/server/rest"
	"github.com/dmitrijs2005/gophhabits/internal/server/services"
	"github.com/jmoiron/sqlx"

	gs "github.com/dmitrijs2005/gophhabits/internal/server/grpc"
)

type App struct {
	config        *config.Config
	logger        logging.Logger
	db            *sqlx.DB
	repomanager   repomanager.RepositoryManager
	habitService  *services.HabitService
	statsService  *services.StatsService
	backupService *backup.Service
}

// NewApp opens the database and builds the services. The caller must Close
// the app.
func NewApp(ctx context.Context, c *config.Config, l logging.Logger) (*App, error) {

	loc, err := c.Location()
	if err != nil {
		return nil, err
	}

	db, err := dbx.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	rm := repomanager.NewSQLRepositoryManager()
	clock := datex.SystemClock{}

	app := &App{
		config:       c,
		logger:       l,
		db:           db,
		repomanager:  rm,
		habitService: services.NewHabitService(db, rm, clock, loc, l),
		statsService: services.NewStatsService(db, rm, clock, loc, c.StatsWorkers),
	}

	if c.BackupEnabled {
		app.backupService = backup.NewService(db, rm, c, clock, l)
	}

	l.Info(ctx, "Database opened", "driver", db.DriverName(), "timezone", loc.String())

	return app, nil
}

// Migrate applies pending schema migrations.
func (app *App) Migrate(ctx context.Context) error {
	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}
	app.logger.Info(ctx, "Migrations applied")
	return nil
}

func (app *App) Close() error {
	return app.db.Close()
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "Signal received", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) newHTTPServer() (*rest.Server, error) {
	// a nil *backup.Service must not become a non-nil interface
	var bc rest.BackupCreator
	if app.backupService != nil {
		bc = app.backupService
	}

	return rest.NewServer(rest.Options{
		Address:         app.config.EndpointAddrHTTP,
		CORSOrigins:     app.config.CORSOrigins,
		RateLimit:       app.config.RateLimit,
		ShutdownTimeout: app.config.ShutdownTimeout,
	}, app.logger, app.habitService, app.statsService, bc, app.db)
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := app.newHTTPServer()

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	} else {

		if err := s.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.db)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run starts every component and blocks until a signal arrives, ctx is
// cancelled or a server fails.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.EndpointAddrGRPC != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	if app.backupService != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.backupService.RunPeriodic(ctx, app.config.BackupInterval)
		}()
	}

	wg.Wait()

	app.logger.Info(ctx, "App stopped")
}
