// Package habits provides the SQL repository for habits. Queries are written
// with '?' placeholders and rebound for the connected driver, so the same
// repository serves PostgreSQL and SQLite.
package habits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophhabits/internal/common"
	"github.com/dmitrijs2005/gophhabits/internal/dbx"
	"github.com/dmitrijs2005/gophhabits/internal/server/models"
)

// SQLRepository implements habit storage over a dbx.DBTX (*sqlx.DB or *sqlx.Tx).
type SQLRepository struct {
	db dbx.DBTX
}

// NewSQLRepository constructs a repository bound to the given DBTX.
func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Create(ctx context.Context, habit *models.Habit) (*models.Habit, error) {

	query :=
		`INSERT INTO habits (id, name, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 `

	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		habit.ID, habit.Name, habit.Description, habit.CreatedAt, habit.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return habit, nil
}

func (r *SQLRepository) Get(ctx context.Context, id string) (*models.Habit, error) {
	query :=
		`SELECT id, name, description, created_at, updated_at FROM habits
		 WHERE id = ?
		 `

	habit := &models.Habit{}
	err := r.db.GetContext(ctx, habit, r.db.Rebind(query), id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return habit, nil
}

// List returns every habit, oldest first.
func (r *SQLRepository) List(ctx context.Context) ([]*models.Habit, error) {
	query :=
		`SELECT id, name, description, created_at, updated_at FROM habits
		 ORDER BY created_at, id
		 `

	var result []*models.Habit
	if err := r.db.SelectContext(ctx, &result, query); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *SQLRepository) Update(ctx context.Context, habit *models.Habit) (*models.Habit, error) {
	query :=
		`UPDATE habits SET name = ?, description = ?, updated_at = ?
		 WHERE id = ?
		 `

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		habit.Name, habit.Description, habit.UpdatedAt, habit.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := expectOneRow(res); err != nil {
		return nil, err
	}

	return habit, nil
}

// Delete removes the habit row only; callers delete completions and absences
// in the same transaction.
func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM habits WHERE id = ?`

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
