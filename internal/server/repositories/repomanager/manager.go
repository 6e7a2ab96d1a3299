package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gophhabits/internal/dbx"
	"github.com/dmitrijs2005/gophhabits/internal/server/repositories/absences"
	"github.com/dmitrijs2005/gophhabits/internal/server/repositories/completions"
	"github.com/dmitrijs2005/gophhabits/internal/server/repositories/habits"
	"github.com/jmoiron/sqlx"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sqlx.DB) error
	Habits(db dbx.DBTX) habits.Repository
	Completions(db dbx.DBTX) completions.Repository
	Absences(db dbx.DBTX) absences.Repository
}
