package completions

import (
	"context"

	"github.com/dmitrijs2005/gophhabits/internal/datex"
	"github.com/dmitrijs2005/gophhabits/internal/server/models"
)

type Repository interface {
	// Create inserts a completion. It returns common.ErrorConflict when one
	// already exists for the date and common.ErrorNotFound when the habit
	// does not exist.
	Create(ctx context.Context, c *models.Completion) error
	Get(ctx context.Context, habitID string, date datex.Date) (*models.Completion, error)
	Delete(ctx context.Context, habitID string, date datex.Date) error
	DeleteByHabit(ctx context.Context, habitID string) error
	// List returns completions in ascending date order.
	List(ctx context.Context, habitID string, r models.DateRange) ([]*models.Completion, error)
	Dates(ctx context.Context, habitID string) ([]datex.Date, error)
}
