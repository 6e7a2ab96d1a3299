package habits

import (
	"context"

	"github.com/dmitrijs2005/gophhabits/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, habit *models.Habit) (*models.Habit, error)
	Get(ctx context.Context, id string) (*models.Habit, error)
	List(ctx context.Context) ([]*models.Habit, error)
	Update(ctx context.Context, habit *models.Habit) (*models.Habit, error)
	Delete(ctx context.Context, id string) error
}
