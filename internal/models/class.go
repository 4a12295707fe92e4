package models

import "time"

// Class represents a scheduled gymnastics class.
type Class struct {
	ID                string      `db:"id" json:"id"`
	Name              string      `db:"name" json:"name"`
	ProgramType       ProgramType `db:"program_type" json:"program_type"`
	DayOfWeek         string      `db:"day_of_week" json:"day_of_week"`
	StartTime         string      `db:"start_time" json:"start_time"`
	EndTime           string      `db:"end_time" json:"end_time"`
	Capacity          int         `db:"capacity" json:"capacity"`
	AgeMin            *int        `db:"age_min" json:"age_min,omitempty"`
	AgeMax            *int        `db:"age_max" json:"age_max,omitempty"`
	SkillLevel        string      `db:"skill_level" json:"skill_level,omitempty"`
	MonthlyPriceCents *int64      `db:"monthly_price_cents" json:"monthly_price_cents,omitempty"`
	Active            bool        `db:"active" json:"active"`
	CreatedAt         time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at" json:"updated_at"`
}

// ClassDetail extends Class with the live count of active seats.
type ClassDetail struct {
	Class
	EnrolledCount int `db:"enrolled_count" json:"enrolled_count"`
}

// SeatsRemaining returns the number of open seats, never below zero.
func (c ClassDetail) SeatsRemaining() int {
	remaining := c.Capacity - c.EnrolledCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AcceptsAge reports whether the class age bounds admit the given age.
// A missing bound is open on that side.
func (c Class) AcceptsAge(age int) bool {
	if c.AgeMin != nil && age < *c.AgeMin {
		return false
	}
	if c.AgeMax != nil && age > *c.AgeMax {
		return false
	}
	return true
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	DayOfWeek   string
	ProgramType ProgramType
	ActiveOnly  bool
	Search      string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
