// Package completions provides the SQL repository for completion records.
package completions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophhabits/internal/common"
	"github.com/dmitrijs2005/gophhabits/internal/datex"
	"github.com/dmitrijs2005/gophhabits/internal/dbx"
	"github.com/dmitrijs2005/gophhabits/internal/server/models"
)

// SQLRepository implements completion storage over a dbx.DBTX.
type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Create(ctx context.Context, c *models.Completion) error {
	query :=
		`INSERT INTO completions (habit_id, completed_date, created_at)
		 VALUES (?, ?, ?)
		 `

	_, err := r.db.ExecContext(ctx, r.db.Rebind(query), c.HabitID, c.Date, c.CreatedAt)
	if err != nil {
		switch {
		case dbx.IsUniqueViolation(err):
			return common.ErrorConflict
		case dbx.IsForeignKeyViolation(err):
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *SQLRepository) Get(ctx context.Context, habitID string, date datex.Date) (*models.Completion, error) {
	query :=
		`SELECT habit_id, completed_date, created_at FROM completions
		 WHERE habit_id = ? AND completed_date = ?
		 `

	c := &models.Completion{}
	err := r.db.GetContext(ctx, c, r.db.Rebind(query), habitID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return c, nil
}

func (r *SQLRepository) Delete(ctx context.Context, habitID string, date datex.Date) error {
	query := `DELETE FROM completions WHERE habit_id = ? AND completed_date = ?`

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), habitID, date)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *SQLRepository) DeleteByHabit(ctx context.Context, habitID string) error {
	query := `DELETE FROM completions WHERE habit_id = ?`

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), habitID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *SQLRepository) List(ctx context.Context, habitID string, dr models.DateRange) ([]*models.Completion, error) {
	query := `SELECT habit_id, completed_date, created_at FROM completions WHERE habit_id = ?`
	args := []any{habitID}

	if !dr.Start.IsZero() {
		query += ` AND completed_date >= ?`
		args = append(args, dr.Start)
	}
	if !dr.End.IsZero() {
		query += ` AND completed_date <= ?`
		args = append(args, dr.End)
	}
	query += ` ORDER BY completed_date`

	var result []*models.Completion
	if err := r.db.SelectContext(ctx, &result, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// Dates returns every completion date of the habit, ascending.
func (r *SQLRepository) Dates(ctx context.Context, habitID string) ([]datex.Date, error) {
	query := `SELECT completed_date FROM completions WHERE habit_id = ? ORDER BY completed_date`

	var result []datex.Date
	if err := r.db.SelectContext(ctx, &result, r.db.Rebind(query), habitID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
