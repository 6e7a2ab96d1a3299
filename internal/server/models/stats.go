package models

// CompletionRate holds percentages rounded to one decimal.
type CompletionRate struct {
	Week    float64
	Month   float64
	AllTime float64
}

type HabitStats struct {
	CurrentStreak  int
	BestStreak     int
	CompletionRate CompletionRate
	CompletedToday bool
}

type HabitWithStats struct {
	Habit
	Stats HabitStats
}

// HabitHistory is a habit together with all of its records, as exported in
// backups.
type HabitHistory struct {
	Habit       Habit
	Completions []Completion
	Absences    []Absence
}
