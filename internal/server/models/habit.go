// Package models holds the value entities persisted by the record store and
// returned by the services.
package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophhabits/internal/common"
)

type Habit struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description *string   `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// HabitUpdate carries the fields of a partial update. Nil means "leave as is";
// an empty description clears it.
type HabitUpdate struct {
	Name        *string
	Description *string
}

// NormalizeName trims surrounding whitespace and checks the length limit.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n == 0 || n > common.MaxHabitNameLength {
		return "", fmt.Errorf("%w: name must be between 1 and %d characters", common.ErrorValidation, common.MaxHabitNameLength)
	}
	return name, nil
}

// NormalizeDescription maps an empty description to nil and checks the
// length limit.
func NormalizeDescription(description *string) (*string, error) {
	if description == nil || *description == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(*description) > common.MaxHabitDescriptionLength {
		return nil, fmt.Errorf("%w: description must be at most %d characters", common.ErrorValidation, common.MaxHabitDescriptionLength)
	}
	d := *description
	return &d, nil
}

// Apply validates u and applies it to h. It reports whether anything changed.
// h is left untouched when validation fails.
func (u HabitUpdate) Apply(h *Habit) (bool, error) {
	name, description := h.Name, h.Description

	if u.Name != nil {
		n, err := NormalizeName(*u.Name)
		if err != nil {
			return false, err
		}
		name = n
	}

	if u.Description != nil {
		d, err := NormalizeDescription(u.Description)
		if err != nil {
			return false, err
		}
		description = d
	}

	changed := name != h.Name || !equalStringPtr(description, h.Description)
	h.Name, h.Description = name, description

	return changed, nil
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
