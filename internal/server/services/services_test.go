package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophhabits/internal/datex"
	"github.com/dmitrijs2005/gophhabits/internal/dbx"
	"github.com/dmitrijs2005/gophhabits/internal/logging"
	"github.com/dmitrijs2005/gophhabits/internal/server/models"
	"github.com/dmitrijs2005/gophhabits/internal/server/repositories/repomanager"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// testClock is a settable clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type testEnv struct {
	db     *sqlx.DB
	clock  *testClock
	habits *HabitService
	stats  *StatsService
	today  datex.Date
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := dbx.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rm := repomanager.NewSQLRepositoryManager()
	require.NoError(t, rm.RunMigrations(ctx, db))

	clock := &testClock{now: testNow}

	return &testEnv{
		db:     db,
		clock:  clock,
		habits: NewHabitService(db, rm, clock, time.UTC, logging.NewNop()),
		stats:  NewStatsService(db, rm, clock, time.UTC, 4),
		today:  datex.Of(testNow),
	}
}

// createHabitAgo creates a habit whose creation timestamp lies the given
// number of days before testNow.
func (e *testEnv) createHabitAgo(t *testing.T, name string, days int) *models.Habit {
	t.Helper()
	e.clock.Set(testNow.AddDate(0, 0, -days))
	defer e.clock.Set(testNow)

	h, err := e.habits.Create(context.Background(), name, nil)
	require.NoError(t, err)
	return h
}

func (e *testEnv) complete(t *testing.T, habitID string, offsets ...int) {
	t.Helper()
	for _, o := range offsets {
		_, err := e.habits.MarkCompletion(context.Background(), habitID, e.today.AddDays(o))
		require.NoError(t, err)
	}
}

func (e *testEnv) excuse(t *testing.T, habitID string, offsets ...int) {
	t.Helper()
	for _, o := range offsets {
		_, err := e.habits.MarkAbsence(context.Background(), habitID, e.today.AddDays(o), nil)
		require.NoError(t, err)
	}
}

func (e *testEnv) count(t *testing.T, table, habitID string) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.Get(&n, e.db.Rebind(`SELECT COUNT(*) FROM `+table+` WHERE habit_id = ?`), habitID))
	return n
}

func ptr(s string) *string { return &s }
