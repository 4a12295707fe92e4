package models

import "time"

// SeatStatus represents the lifecycle of a class seat.
type SeatStatus string

// Possible seat statuses.
const (
	SeatStatusActive    SeatStatus = "active"
	SeatStatusPaused    SeatStatus = "paused"
	SeatStatusCancelled SeatStatus = "cancelled"
)

// ClassEnrollment records that an approved student occupies one seat in a
// class. Only active seats count against capacity.
type ClassEnrollment struct {
	ID            string     `db:"id" json:"id"`
	ClassID       string     `db:"class_id" json:"class_id"`
	ApplicationID string     `db:"application_id" json:"application_id"`
	EnrolledAt    time.Time  `db:"enrolled_at" json:"enrolled_at"`
	Status        SeatStatus `db:"status" json:"status"`
}

// RosterEntry enriches a seat with student facts for listings and exports.
// Medical fields are deliberately absent.
type RosterEntry struct {
	ClassEnrollment
	FirstName   string      `db:"first_name" json:"first_name"`
	LastName    string      `db:"last_name" json:"last_name"`
	ProgramType ProgramType `db:"program_type" json:"program_type"`
	ParentName  string      `db:"parent_name" json:"parent_name"`
	ParentPhone string      `db:"parent_phone" json:"parent_phone"`
}
