package models

import (
	"encoding/json"
	"time"
)

// ProgramType identifies the program an application enrolls into. Matching
// against class program types is exact, no fallback.
type ProgramType string

// Supported programs.
const (
	ProgramBoysRecreational  ProgramType = "boys_recreational"
	ProgramGirlsRecreational ProgramType = "girls_recreational"
	ProgramBoysCompetitive   ProgramType = "boys_competitive"
	ProgramGirlsCompetitive  ProgramType = "girls_competitive"
	ProgramNinja             ProgramType = "ninja"
	ProgramPreschool         ProgramType = "preschool"
)

// Valid reports whether the program type is one of the supported programs.
func (p ProgramType) Valid() bool {
	switch p {
	case ProgramBoysRecreational, ProgramGirlsRecreational,
		ProgramBoysCompetitive, ProgramGirlsCompetitive,
		ProgramNinja, ProgramPreschool:
		return true
	}
	return false
}

// ApplicationStatus represents the admin review state of an application.
type ApplicationStatus string

// Application workflow states. Waitlist is reserved and never assigned.
const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusApproved ApplicationStatus = "approved"
	ApplicationStatusRejected ApplicationStatus = "rejected"
	ApplicationStatusWaitlist ApplicationStatus = "waitlist"
)

// Sensitive carries medical free-text fields. The value is opaque to the
// service; encryption at rest is the storage collaborator's concern. String
// and GoString are redacted so the plaintext cannot leak through fmt or zap.
type Sensitive string

// String implements fmt.Stringer with a redacted value.
func (Sensitive) String() string { return "[redacted]" }

// GoString implements fmt.GoStringer with a redacted value.
func (Sensitive) GoString() string { return "models.Sensitive([redacted])" }

// MarshalJSON emits the raw value; API responses carry the plaintext.
func (s Sensitive) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON reads the raw value.
func (s *Sensitive) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Sensitive(raw)
	return nil
}

// Application is an enrollment application submitted by a guardian.
type Application struct {
	ID          string      `db:"id" json:"id"`
	FirstName   string      `db:"first_name" json:"first_name"`
	LastName    string      `db:"last_name" json:"last_name"`
	DateOfBirth *time.Time  `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender      string      `db:"gender" json:"gender,omitempty"`
	Experience  string      `db:"experience" json:"experience,omitempty"`
	ProgramType ProgramType `db:"program_type" json:"program_type"`

	ParentName  string `db:"parent_name" json:"parent_name"`
	ParentEmail string `db:"parent_email" json:"parent_email"`
	ParentPhone string `db:"parent_phone" json:"parent_phone"`
	Address     string `db:"address" json:"address,omitempty"`

	EmergencyContact string    `db:"emergency_contact" json:"emergency_contact,omitempty"`
	Allergies        Sensitive `db:"allergies" json:"allergies,omitempty"`
	Conditions       Sensitive `db:"conditions" json:"conditions,omitempty"`
	Medications      Sensitive `db:"medications" json:"medications,omitempty"`

	Status      ApplicationStatus `db:"status" json:"status"`
	SubmittedAt time.Time         `db:"submitted_at" json:"submitted_at"`
	DecidedAt   *time.Time        `db:"decided_at" json:"decided_at,omitempty"`
}

// ApplicationFilter provides filters for listing applications.
type ApplicationFilter struct {
	Status   ApplicationStatus
	Page     int
	PageSize int
}

// AgeAt returns age in whole calendar years at the given instant: the year
// difference, minus one if the birthday has not yet occurred that year.
// A Feb 29 birthday counts from Mar 1 in non-leap years.
func AgeAt(dateOfBirth, now time.Time) int {
	years := now.Year() - dateOfBirth.Year()
	anniversary := time.Date(now.Year(), dateOfBirth.Month(), dateOfBirth.Day(), 0, 0, 0, 0, now.Location())
	if now.Before(anniversary) {
		years--
	}
	if years < 0 {
		years = 0
	}
	return years
}
