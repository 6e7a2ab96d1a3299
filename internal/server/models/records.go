package models

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophhabits/internal/common"
	"github.com/dmitrijs2005/gophhabits/internal/datex"
)

// Completion records that a habit was done on Date.
type Completion struct {
	HabitID   string     `db:"habit_id"`
	Date      datex.Date `db:"completed_date"`
	CreatedAt time.Time  `db:"created_at"`
}

// Absence records that a habit was excused on Date.
type Absence struct {
	HabitID   string     `db:"habit_id"`
	Date      datex.Date `db:"absence_date"`
	Reason    *string    `db:"reason"`
	CreatedAt time.Time  `db:"created_at"`
}

// DateRange bounds a completion or absence listing; zero ends are open.
type DateRange struct {
	Start datex.Date
	End   datex.Date
}

func (r DateRange) Validate() error {
	if !r.Start.IsZero() && !r.End.IsZero() && r.Start.After(r.End) {
		return fmt.Errorf("%w: start_date must not be after end_date", common.ErrorValidation)
	}
	return nil
}

// NormalizeReason maps an empty reason to nil and checks the length limit.
func NormalizeReason(reason *string) (*string, error) {
	if reason == nil || *reason == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(*reason) > common.MaxAbsenceReasonLength {
		return nil, fmt.Errorf("%w: reason must be at most %d characters", common.ErrorValidation, common.MaxAbsenceReasonLength)
	}
	r := *reason
	return &r, nil
}
