package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophhabits/internal/dbx"
	"github.com/dmitrijs2005/gophhabits/internal/server/models"
	"github.com/dmitrijs2005/gophhabits/internal/server/repositories/absences"
	"github.com/dmitrijs2005/gophhabits/internal/server/repositories/completions"
	"github.com/dmitrijs2005/gophhabits/internal/server/repositories/repomanager"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsService_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		completions []int
		absences    []int
		current     int
		best        int
		week        float64
		today       bool
	}{
		{name: "no completions", current: 0, best: 0, week: 0},
		{name: "three days in a row", completions: []int{0, -1, -2}, current: 3, best: 3, week: 42.9, today: true},
		{name: "absence bridges", completions: []int{0, -2}, absences: []int{-1}, current: 2, best: 2, week: 33.3, today: true},
		{name: "today not yet done", completions: []int{-1, -2, -3}, current: 3, best: 3, week: 42.9},
		{name: "five of seven", completions: []int{0, -1, -3, -4, -6}, current: 2, best: 2, week: 71.4, today: true},
		{name: "three done two excused", completions: []int{-2, -3, -4}, absences: []int{0, -1}, current: 3, best: 3, week: 60},
		{name: "whole week excused", absences: []int{0, -1, -2, -3, -4, -5, -6}, current: 0, best: 0, week: 0},
		{name: "old run beats current", completions: []int{-9, -8, -7, -6, -1}, current: 1, best: 4, week: 28.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			ctx := context.Background()

			h := e.createHabitAgo(t, "Read", 10)
			e.complete(t, h.ID, tt.completions...)
			e.excuse(t, h.ID, tt.absences...)

			hs, err := e.stats.HabitWithStats(ctx, h.ID)
			require.NoError(t, err)
			assert.Equal(t, h.ID, hs.ID)
			assert.Equal(t, tt.current, hs.Stats.CurrentStreak)
			assert.Equal(t, tt.best, hs.Stats.BestStreak)
			assert.Equal(t, tt.week, hs.Stats.CompletionRate.Week)
			assert.Equal(t, tt.today, hs.Stats.CompletedToday)
			assert.GreaterOrEqual(t, hs.Stats.BestStreak, hs.Stats.CurrentStreak)

			cur, err := e.stats.CurrentStreak(ctx, h.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.current, cur)

			best, err := e.stats.BestStreak(ctx, h.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.best, best)

			rate, err := e.stats.CompletionRate(ctx, h.ID)
			require.NoError(t, err)
			assert.Equal(t, hs.Stats.CompletionRate, rate)

			done, err := e.stats.IsCompletedToday(ctx, h.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.today, done)
		})
	}
}

func TestStatsService_AllTimeUsesCreationDate(t *testing.T) {
	e := newTestEnv(t)

	// created 10 days ago: 11 days in the window
	h := e.createHabitAgo(t, "Read", 10)
	e.complete(t, h.ID, 0, -1, -2)

	rate, err := e.stats.CompletionRate(context.Background(), h.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CompletionRate{Week: 42.9, Month: 10, AllTime: 27.3}, rate)
}

func TestStatsService_TimezoneDefinesToday(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	h := e.createHabitAgo(t, "Read", 3)
	e.complete(t, h.ID, 0)

	// 12:00 UTC on June 15 is already June 16 twelve hours east.
	loc := time.FixedZone("NZST", 12*60*60+1)
	svc := NewStatsService(e.db, e.stats.repomanager, e.clock, loc, 1)

	done, err := svc.IsCompletedToday(ctx, h.ID)
	require.NoError(t, err)
	assert.False(t, done)

	cur, err := svc.CurrentStreak(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cur, "yesterday's completion still counts")
}

func TestStatsService_NotFound(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.stats.HabitWithStats(ctx, "3f1c2a0e-4b4e-4f7e-9a55-8d0b8a1e0c11")
	assert.ErrorIs(t, err, ErrHabitNotFound)

	_, err = e.stats.CurrentStreak(ctx, "bogus")
	assert.ErrorIs(t, err, ErrHabitNotFound)
}

func TestStatsService_ListHabitsWithStats(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	empty, err := e.stats.ListHabitsWithStats(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	var ids []string
	for i, name := range []string{"a", "b", "c", "d", "e", "f"} {
		h := e.createHabitAgo(t, name, 20-i)
		ids = append(ids, h.ID)
		for d := 0; d <= i; d++ {
			e.complete(t, h.ID, -d)
		}
	}

	list, err := e.stats.ListHabitsWithStats(ctx)
	require.NoError(t, err)
	require.Len(t, list, len(ids))

	for i, hs := range list {
		assert.Equal(t, ids[i], hs.ID, "store order kept")
		assert.Equal(t, i+1, hs.Stats.CurrentStreak)
		assert.True(t, hs.Stats.CompletedToday)
	}
}

// recordingRepoManager remembers the handles history reads are issued on.
type recordingRepoManager struct {
	repomanager.RepositoryManager
	completionsDB dbx.DBTX
	absencesDB    dbx.DBTX
}

func (m *recordingRepoManager) Completions(db dbx.DBTX) completions.Repository {
	m.completionsDB = db
	return m.RepositoryManager.Completions(db)
}

func (m *recordingRepoManager) Absences(db dbx.DBTX) absences.Repository {
	m.absencesDB = db
	return m.RepositoryManager.Absences(db)
}

func TestStatsService_HistoryReadsOneSnapshot(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	h := e.createHabitAgo(t, "Read", 5)
	e.complete(t, h.ID, 0, -1)
	e.excuse(t, h.ID, -2)

	rm := &recordingRepoManager{RepositoryManager: repomanager.NewSQLRepositoryManager()}
	svc := NewStatsService(e.db, rm, e.clock, time.UTC, 1)

	got, err := svc.HabitWithStats(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stats.CurrentStreak)

	tx, ok := rm.completionsDB.(*sqlx.Tx)
	require.True(t, ok, "completions read outside a transaction: %T", rm.completionsDB)
	assert.Same(t, tx, rm.absencesDB, "absences read on a different handle")
}
