package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/gophhabits/internal/datex"
	"github.com/dmitrijs2005/gophhabits/internal/dbx"
	"github.com/dmitrijs2005/gophhabits/internal/server/metrics"
	"github.com/dmitrijs2005/gophhabits/internal/server/models"
	"github.com/dmitrijs2005/gophhabits/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophhabits/internal/stats"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

// StatsService loads habit histories from the store and runs the statistics
// engine over them.
type StatsService struct {
	db          *sqlx.DB
	repomanager repomanager.RepositoryManager
	clock       datex.Clock
	location    *time.Location
	workers     int
}

func NewStatsService(db *sqlx.DB, m repomanager.RepositoryManager, clock datex.Clock, loc *time.Location, workers int) *StatsService {
	if loc == nil {
		loc = time.UTC
	}
	if workers < 1 {
		workers = 1
	}
	return &StatsService{
		db:          db,
		repomanager: m,
		clock:       clock,
		location:    loc,
		workers:     workers,
	}
}

func (s *StatsService) today() datex.Date {
	return datex.In(s.clock.Now(), s.location)
}

func (s *StatsService) habit(ctx context.Context, id string) (*models.Habit, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	h, err := s.repomanager.Habits(s.db).Get(ctx, id)
	if err != nil {
		return nil, habitErr(err)
	}
	return h, nil
}

// history reads completions and absences of one habit from a single
// snapshot, so a concurrent mark cannot land between the two queries.
func (s *StatsService) history(ctx context.Context, habitID string) (stats.History, error) {
	var hist stats.History
	err := dbx.WithTx(ctx, s.db, s.snapshotOpts(), func(ctx context.Context, tx dbx.DBTX) error {
		completed, err := s.repomanager.Completions(tx).Dates(ctx, habitID)
		if err != nil {
			return err
		}
		excused, err := s.repomanager.Absences(tx).Dates(ctx, habitID)
		if err != nil {
			return err
		}
		hist = stats.NewHistory(completed, excused)
		return nil
	})
	return hist, err
}

// snapshotOpts asks Postgres for a repeatable-read snapshot. SQLite
// transactions are already serializable.
func (s *StatsService) snapshotOpts() *sql.TxOptions {
	if s.db.DriverName() == dbx.DriverPostgres {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}

func (s *StatsService) compute(ctx context.Context, h *models.Habit, today datex.Date) (*models.HabitWithStats, error) {
	hist, err := s.history(ctx, h.ID)
	if err != nil {
		return nil, err
	}
	created := datex.In(h.CreatedAt, s.location)
	return &models.HabitWithStats{Habit: *h, Stats: stats.Compute(hist, created, today)}, nil
}

// HabitWithStats returns the habit together with its statistics.
func (s *StatsService) HabitWithStats(ctx context.Context, id string) (*models.HabitWithStats, error) {
	start := time.Now()
	defer func() { metrics.StatsDuration.WithLabelValues("habit").Observe(time.Since(start).Seconds()) }()

	h, err := s.habit(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.compute(ctx, h, s.today())
}

// ListHabitsWithStats computes statistics for every habit. Habits are
// processed concurrently; the result keeps the store's order. Every habit is
// evaluated against the same "today".
func (s *StatsService) ListHabitsWithStats(ctx context.Context) ([]*models.HabitWithStats, error) {
	start := time.Now()
	defer func() { metrics.StatsDuration.WithLabelValues("list").Observe(time.Since(start).Seconds()) }()

	habits, err := s.repomanager.Habits(s.db).List(ctx)
	if err != nil {
		return nil, err
	}
	metrics.HabitsTotal.Set(float64(len(habits)))

	today := s.today()
	result := make([]*models.HabitWithStats, len(habits))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, h := range habits {
		g.Go(func() error {
			hs, err := s.compute(gctx, h, today)
			if err != nil {
				return err
			}
			result[i] = hs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *StatsService) load(ctx context.Context, id string) (*models.Habit, stats.History, error) {
	h, err := s.habit(ctx, id)
	if err != nil {
		return nil, stats.History{}, err
	}
	hist, err := s.history(ctx, h.ID)
	if err != nil {
		return nil, stats.History{}, err
	}
	return h, hist, nil
}

func (s *StatsService) CurrentStreak(ctx context.Context, id string) (int, error) {
	_, hist, err := s.load(ctx, id)
	if err != nil {
		return 0, err
	}
	return stats.CurrentStreak(hist, s.today()), nil
}

func (s *StatsService) BestStreak(ctx context.Context, id string) (int, error) {
	_, hist, err := s.load(ctx, id)
	if err != nil {
		return 0, err
	}
	return stats.BestStreak(hist, s.today()), nil
}

func (s *StatsService) CompletionRate(ctx context.Context, id string) (models.CompletionRate, error) {
	h, hist, err := s.load(ctx, id)
	if err != nil {
		return models.CompletionRate{}, err
	}
	return stats.Rates(hist, datex.In(h.CreatedAt, s.location), s.today()), nil
}

func (s *StatsService) IsCompletedToday(ctx context.Context, id string) (bool, error) {
	_, hist, err := s.load(ctx, id)
	if err != nil {
		return false, err
	}
	return stats.CompletedToday(hist, s.today()), nil
}
