// Package stats derives streaks and completion rates from the sparse sets of
// completion and absence dates recorded for a habit.
//
// Every function is pure and takes "today" explicitly; callers compute it
// once per request. A date that is both a completion and an absence counts
// as a completion.
package stats

import (
	"slices"
	"strconv"

	"github.com/dmitrijs2005/gophhabits/internal/datex"
	"github.com/dmitrijs2005/gophhabits/internal/server/models"
)

// Window lengths, today inclusive.
const (
	WeekDays  = 7
	MonthDays = 30
)

// DateSet is a set of calendar dates.
type DateSet map[datex.Date]struct{}

func NewDateSet(dates ...datex.Date) DateSet {
	s := make(DateSet, len(dates))
	for _, d := range dates {
		s[d] = struct{}{}
	}
	return s
}

func (s DateSet) Has(d datex.Date) bool {
	_, ok := s[d]
	return ok
}

// History is the input of every computation.
type History struct {
	Completions DateSet
	Absences    DateSet
}

func NewHistory(completions, absences []datex.Date) History {
	return History{Completions: NewDateSet(completions...), Absences: NewDateSet(absences...)}
}

// excused reports an absence that is not overridden by a completion.
func (h History) excused(d datex.Date) bool {
	return h.Absences.Has(d) && !h.Completions.Has(d)
}

// CurrentStreak counts completions walking back from today (or from
// yesterday when today is not completed yet). Absences keep the walk going
// without adding to the count; any other day ends it.
func CurrentStreak(h History, today datex.Date) int {
	if len(h.Completions) == 0 {
		return 0
	}

	cursor := today
	if !h.Completions.Has(today) {
		cursor = today.AddDays(-1)
	}

	// Every step consumes a stored record, so the walk is bounded by the
	// size of the history, not by the habit's age.
	streak := 0
	for {
		switch {
		case h.Completions.Has(cursor):
			streak++
		case h.Absences.Has(cursor):
		default:
			return streak
		}
		cursor = cursor.AddDays(-1)
	}
}

// BestStreak returns the longest run between the first completion and today
// under the same rule as CurrentStreak.
//
// Only recorded dates are visited: a day without a record resets the run, so
// it is enough to detect a hole between two consecutive recorded dates.
func BestStreak(h History, today datex.Date) int {
	if len(h.Completions) == 0 {
		return 0
	}

	first := today.AddDays(1)
	for d := range h.Completions {
		if d.Before(first) {
			first = d
		}
	}

	days := make([]datex.Date, 0, len(h.Completions)+len(h.Absences))
	for d := range h.Completions {
		if !d.After(today) {
			days = append(days, d)
		}
	}
	for d := range h.Absences {
		if h.excused(d) && d.After(first) && !d.After(today) {
			days = append(days, d)
		}
	}
	slices.SortFunc(days, datex.Date.Compare)

	best, run := 0, 0
	for i, d := range days {
		if i > 0 && d.Sub(days[i-1]) > 1 {
			run = 0
		}
		if h.Completions.Has(d) {
			run++
			best = max(best, run)
		}
	}

	return best
}

// CompletedToday reports whether today has a completion.
func CompletedToday(h History, today datex.Date) bool {
	return h.Completions.Has(today)
}

// Rate returns the share of applicable days in [start, end] that were
// completed, as a percentage rounded to one decimal. Excused days are not
// applicable; a window with no applicable days yields 0.
func Rate(h History, start, end datex.Date) float64 {
	if end.Before(start) {
		return 0
	}

	total := end.Sub(start) + 1

	completed := 0
	for d := range h.Completions {
		if !d.Before(start) && !d.After(end) {
			completed++
		}
	}

	excused := 0
	for d := range h.Absences {
		if !d.Before(start) && !d.After(end) && h.excused(d) {
			excused++
		}
	}

	applicable := total - excused
	if applicable <= 0 {
		return 0
	}

	return round1(100 * float64(completed) / float64(applicable))
}

// Rates computes the week, month and all-time rates. created is the habit's
// creation date; a zero value yields an all-time rate of 0.
func Rates(h History, created, today datex.Date) models.CompletionRate {
	r := models.CompletionRate{
		Week:  Rate(h, today.AddDays(-(WeekDays - 1)), today),
		Month: Rate(h, today.AddDays(-(MonthDays - 1)), today),
	}
	if !created.IsZero() {
		r.AllTime = Rate(h, created, today)
	}
	return r
}

// Compute bundles every statistic for one habit.
func Compute(h History, created, today datex.Date) models.HabitStats {
	return models.HabitStats{
		CurrentStreak:  CurrentStreak(h, today),
		BestStreak:     BestStreak(h, today),
		CompletionRate: Rates(h, created, today),
		CompletedToday: CompletedToday(h, today),
	}
}

// round1 rounds the exact binary value to one decimal, ties to even.
func round1(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	return r
}
