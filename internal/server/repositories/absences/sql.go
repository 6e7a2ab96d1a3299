// Package absences provides the SQL repository for absence records.
package absences

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

// SQLRepository implements absence storage over a dbx.DBTX.
type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Create(ctx context.Context, a *models.Absence) error {
	query :=
		`INSERT INTO absences (habit_id, absence_date, reason, created_at)
		 VALUES (?, ?, ?, ?)
		 `

	_, err := r.db.ExecContext(ctx, r.db.Rebind(query), a.HabitID, a.Date, a.Reason, a.CreatedAt)
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

func (r *SQLRepository) Get(ctx context.Context, habitID string, date datex.Date) (*models.Absence, error) {
	query :=
		`SELECT habit_id, absence_date, reason, created_at FROM absences
		 WHERE habit_id = ? AND absence_date = ?
		 `

	a := &models.Absence{}
	err := r.db.GetContext(ctx, a, r.db.Rebind(query), habitID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

func (r *SQLRepository) Delete(ctx context.Context, habitID string, date datex.Date) error {
	query := `DELETE FROM absences WHERE habit_id = ? AND absence_date = ?`

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
	query := `DELETE FROM absences WHERE habit_id = ?`

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), habitID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *SQLRepository) List(ctx context.Context, habitID string, dr models.DateRange) ([]*models.Absence, error) {
	query := `SELECT habit_id, absence_date, reason, created_at FROM absences WHERE habit_id = ?`
	args := []any{habitID}

	if !dr.Start.IsZero() {
		query += ` AND absence_date >= ?`
		args = append(args, dr.Start)
	}
	if !dr.End.IsZero() {
		query += ` AND absence_date <= ?`
		args = append(args, dr.End)
	}
	query += ` ORDER BY absence_date`

	var result []*models.Absence
	if err := r.db.SelectContext(ctx, &result, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// Dates returns every absence date of the habit, ascending.
func (r *SQLRepository) Dates(ctx context.Context, habitID string) ([]datex.Date, error) {
	query := `SELECT absence_date FROM absences WHERE habit_id = ? ORDER BY absence_date`

	var result []datex.Date
	if err := r.db.SelectContext(ctx, &result, r.db.Rebind(query), habitID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
