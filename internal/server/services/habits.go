package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophhabits/internal/common"
	"github.com/dmitrijs2005/gophhabits/internal/datex"
	"github.com/dmitrijs2005/gophhabits/internal/dbx"
	"github.com/dmitrijs2005/gophhabits/internal/logging"
	"github.com/dmitrijs2005/gophhabits/internal/server/metrics"
	"github.com/dmitrijs2005/gophhabits/internal/server/models"
	"github.com/dmitrijs2005/gophhabits/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrHabitNotFound      = fmt.Errorf("habit %w", common.ErrorNotFound)
	ErrCompletionNotFound = fmt.Errorf("completion %w", common.ErrorNotFound)
	ErrAbsenceNotFound    = fmt.Errorf("absence %w", common.ErrorNotFound)
)

// HabitService manages habits and their completion and absence records.
type HabitService struct {
	db          *sqlx.DB
	repomanager repomanager.RepositoryManager
	clock       datex.Clock
	location    *time.Location
	logger      logging.Logger
}

func NewHabitService(db *sqlx.DB, m repomanager.RepositoryManager, clock datex.Clock, loc *time.Location, l logging.Logger) *HabitService {
	if loc == nil {
		loc = time.UTC
	}
	return &HabitService{
		db:          db,
		repomanager: m,
		clock:       clock,
		location:    loc,
		logger:      l.With("module", "habit_service"),
	}
}

// Today is the current calendar date in the service's time zone.
func (s *HabitService) Today() datex.Date {
	return datex.In(s.clock.Now(), s.location)
}

func (s *HabitService) now() time.Time {
	// Postgres keeps microseconds; truncate so stored and returned values match.
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

// validID rejects ids that cannot name a habit. A malformed id is reported as
// not found, like an unknown one.
func validID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrHabitNotFound
	}
	return nil
}

func habitErr(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return ErrHabitNotFound
	}
	return err
}

func (s *HabitService) Create(ctx context.Context, name string, description *string) (*models.Habit, error) {

	name, err := models.NormalizeName(name)
	if err != nil {
		return nil, err
	}
	description, err = models.NormalizeDescription(description)
	if err != nil {
		return nil, err
	}

	now := s.now()
	habit := &models.Habit{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	habit, err = s.repomanager.Habits(s.db).Create(ctx, habit)
	if err != nil {
		return nil, fmt.Errorf("error creating habit: %w", err)
	}

	s.logger.Info(ctx, "habit_created", "habit_id", habit.ID, "name", habit.Name)

	return habit, nil
}

func (s *HabitService) Get(ctx context.Context, id string) (*models.Habit, error) {
	if err := validID(id); err != nil {
		return nil, err
	}

	habit, err := s.repomanager.Habits(s.db).Get(ctx, id)
	if err != nil {
		return nil, habitErr(err)
	}
	return habit, nil
}

func (s *HabitService) List(ctx context.Context) ([]*models.Habit, error) {
	habits, err := s.repomanager.Habits(s.db).List(ctx)
	if err != nil {
		return nil, err
	}
	metrics.HabitsTotal.Set(float64(len(habits)))
	return habits, nil
}

// Update applies a partial update. updated_at is bumped only when a field
// actually changes.
func (s *HabitService) Update(ctx context.Context, id string, u models.HabitUpdate) (*models.Habit, error) {
	if err := validID(id); err != nil {
		return nil, err
	}

	var habit *models.Habit

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Habits(tx)

		h, err := repo.Get(ctx, id)
		if err != nil {
			return habitErr(err)
		}

		changed, err := u.Apply(h)
		if err != nil {
			return err
		}
		if !changed {
			habit = h
			return nil
		}

		h.UpdatedAt = s.now()
		habit, err = repo.Update(ctx, h)
		return habitErr(err)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "habit_updated", "habit_id", habit.ID)

	return habit, nil
}

// Delete removes the habit with all of its completions and absences in one
// transaction.
func (s *HabitService) Delete(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Completions(tx).DeleteByHabit(ctx, id); err != nil {
			return err
		}
		if err := s.repomanager.Absences(tx).DeleteByHabit(ctx, id); err != nil {
			return err
		}
		return habitErr(s.repomanager.Habits(tx).Delete(ctx, id))
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "habit_deleted", "habit_id", id)

	return nil
}

// MarkCompletion records a completion for date (today when zero). Marking an
// already completed date returns the stored record.
func (s *HabitService) MarkCompletion(ctx context.Context, habitID string, date datex.Date) (*models.Completion, error) {
	if _, err := s.Get(ctx, habitID); err != nil {
		return nil, err
	}
	if date.IsZero() {
		date = s.Today()
	}

	repo := s.repomanager.Completions(s.db)

	c := &models.Completion{HabitID: habitID, Date: date, CreatedAt: s.now()}

	err := repo.Create(ctx, c)
	switch {
	case err == nil:
		metrics.ObserveMark("completion", false)
		s.logger.Info(ctx, "completion_created", "habit_id", habitID, "date", date)
		return c, nil
	case errors.Is(err, common.ErrorConflict):
		existing, err := repo.Get(ctx, habitID, date)
		if err != nil {
			return nil, fmt.Errorf("error reading existing completion: %w", err)
		}
		metrics.ObserveMark("completion", true)
		s.logger.Info(ctx, "completion_already_exists", "habit_id", habitID, "date", date)
		return existing, nil
	case errors.Is(err, common.ErrorNotFound):
		// habit deleted concurrently
		return nil, ErrHabitNotFound
	default:
		return nil, err
	}
}

func (s *HabitService) UnmarkCompletion(ctx context.Context, habitID string, date datex.Date) error {
	if _, err := s.Get(ctx, habitID); err != nil {
		return err
	}

	err := s.repomanager.Completions(s.db).Delete(ctx, habitID, date)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ErrCompletionNotFound
		}
		return err
	}

	s.logger.Info(ctx, "completion_removed", "habit_id", habitID, "date", date)
	return nil
}

// MarkAbsence records an excused date (today when zero). Marking an already
// excused date returns the stored record; its reason is not overwritten.
func (s *HabitService) MarkAbsence(ctx context.Context, habitID string, date datex.Date, reason *string) (*models.Absence, error) {
	reason, err := models.NormalizeReason(reason)
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, habitID); err != nil {
		return nil, err
	}
	if date.IsZero() {
		date = s.Today()
	}

	repo := s.repomanager.Absences(s.db)

	a := &models.Absence{HabitID: habitID, Date: date, Reason: reason, CreatedAt: s.now()}

	err = repo.Create(ctx, a)
	switch {
	case err == nil:
		metrics.ObserveMark("absence", false)
		s.logger.Info(ctx, "absence_created", "habit_id", habitID, "date", date)
		return a, nil
	case errors.Is(err, common.ErrorConflict):
		existing, err := repo.Get(ctx, habitID, date)
		if err != nil {
			return nil, fmt.Errorf("error reading existing absence: %w", err)
		}
		metrics.ObserveMark("absence", true)
		s.logger.Info(ctx, "absence_already_exists", "habit_id", habitID, "date", date)
		return existing, nil
	case errors.Is(err, common.ErrorNotFound):
		return nil, ErrHabitNotFound
	default:
		return nil, err
	}
}

func (s *HabitService) UnmarkAbsence(ctx context.Context, habitID string, date datex.Date) error {
	if _, err := s.Get(ctx, habitID); err != nil {
		return err
	}

	err := s.repomanager.Absences(s.db).Delete(ctx, habitID, date)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ErrAbsenceNotFound
		}
		return err
	}

	s.logger.Info(ctx, "absence_removed", "habit_id", habitID, "date", date)
	return nil
}

// ListCompletions returns the habit's completions within r, oldest first.
func (s *HabitService) ListCompletions(ctx context.Context, habitID string, r models.DateRange) ([]*models.Completion, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, habitID); err != nil {
		return nil, err
	}
	return s.repomanager.Completions(s.db).List(ctx, habitID, r)
}

// ListAbsences returns the habit's absences within r, oldest first.
func (s *HabitService) ListAbsences(ctx context.Context, habitID string, r models.DateRange) ([]*models.Absence, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, habitID); err != nil {
		return nil, err
	}
	return s.repomanager.Absences(s.db).List(ctx, habitID, r)
}
