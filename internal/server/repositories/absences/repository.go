package absences

import (
	"context"

	"github.com/dmitrijs2005/gophhabits/internal/datex"
	"github.com/dmitrijs2005/gophhabits/internal/server/models"
)

type Repository interface {
	// Create inserts an absence. It returns common.ErrorConflict when one
	// already exists for the date and common.ErrorNotFound when the habit
	// does not exist.
	Create(ctx context.Context, a *models.Absence) error
	Get(ctx context.Context, habitID string, date datex.Date) (*models.Absence, error)
	Delete(ctx context.Context, habitID string, date datex.Date) error
	DeleteByHabit(ctx context.Context, habitID string) error
	// List returns absences in ascending date order.
	List(ctx context.Context, habitID string, r models.DateRange) ([]*models.Absence, error)
	Dates(ctx context.Context, habitID string) ([]datex.Date, error)
}
