package rest

import (
	"time"

	"github.com/dmitrijs2005/gophhabits/internal/datex"
	"github.com/dmitrijs2005/gophhabits/internal/server/models"
)

// HabitCreateRequest is the body of POST /api/habits.
type HabitCreateRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// HabitUpdateRequest is the body of PUT /api/habits/:id. Omitted or null
// fields are left unchanged; an empty description clears it.
type HabitUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type HabitResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CompletionRateResponse struct {
	Week    float64 `json:"week"`
	Month   float64 `json:"month"`
	AllTime float64 `json:"all_time"`
}

type HabitWithStatsResponse struct {
	HabitResponse
	CurrentStreak  int                    `json:"current_streak"`
	BestStreak     int                    `json:"best_streak"`
	CompletionRate CompletionRateResponse `json:"completion_rate"`
	CompletedToday bool                   `json:"completed_today"`
}

// CompletionCreateRequest is the optional body of POST /api/habits/:id/complete.
type CompletionCreateRequest struct {
	Date *datex.Date `json:"date"`
}

type CompletionResponse struct {
	HabitID   string     `json:"habit_id"`
	Date      datex.Date `json:"date"`
	Completed bool       `json:"completed"`
}

type CompletionsListResponse struct {
	HabitID     string       `json:"habit_id"`
	Completions []datex.Date `json:"completions"`
}

// AbsenceCreateRequest is the optional body of POST /api/habits/:id/absences.
type AbsenceCreateRequest struct {
	Date   *datex.Date `json:"date"`
	Reason *string     `json:"reason"`
}

type AbsenceResponse struct {
	HabitID string     `json:"habit_id"`
	Date    datex.Date `json:"date"`
	Reason  *string    `json:"reason"`
}

type AbsenceItem struct {
	Date   datex.Date `json:"date"`
	Reason *string    `json:"reason"`
}

type AbsencesListResponse struct {
	HabitID  string        `json:"habit_id"`
	Absences []AbsenceItem `json:"absences"`
}

type BackupResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type RootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func toHabitResponse(h *models.Habit) HabitResponse {
	return HabitResponse{
		ID:          h.ID,
		Name:        h.Name,
		Description: h.Description,
		CreatedAt:   h.CreatedAt,
		UpdatedAt:   h.UpdatedAt,
	}
}

func toHabitWithStatsResponse(h *models.HabitWithStats) HabitWithStatsResponse {
	return HabitWithStatsResponse{
		HabitResponse: toHabitResponse(&h.Habit),
		CurrentStreak: h.Stats.CurrentStreak,
		BestStreak:    h.Stats.BestStreak,
		CompletionRate: CompletionRateResponse{
			Week:    h.Stats.CompletionRate.Week,
			Month:   h.Stats.CompletionRate.Month,
			AllTime: h.Stats.CompletionRate.AllTime,
		},
		CompletedToday: h.Stats.CompletedToday,
	}
}
