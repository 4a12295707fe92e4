package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/apexgym/studio-api/internal/models"
)

// ClassEnrollmentRepository handles persistence of class seats.
type ClassEnrollmentRepository struct {
	db *sqlx.DB
}

// NewClassEnrollmentRepository constructs the repository.
func NewClassEnrollmentRepository(db *sqlx.DB) *ClassEnrollmentRepository {
	return &ClassEnrollmentRepository{db: db}
}

// InsertIfCapacity writes the seat only while the class has room: the insert
// carries its own capacity predicate so concurrent enrollments against a
// near-full class cannot jointly exceed capacity. Returns false when the
// class was full (or missing) at write time.
func (r *ClassEnrollmentRepository) InsertIfCapacity(ctx context.Context, seat *models.ClassEnrollment) (bool, error) {
	if seat.ID == "" {
		seat.ID = uuid.NewString()
	}
	if seat.EnrolledAt.IsZero() {
		seat.EnrolledAt = time.Now().UTC()
	}
	if seat.Status == "" {
		seat.Status = models.SeatStatusActive
	}
	const query = `INSERT INTO class_enrollments (id, class_id, application_id, enrolled_at, status)
        SELECT $1, $2, $3, $4, $5
        WHERE (SELECT COUNT(*) FROM class_enrollments WHERE class_id = $2 AND status = 'active')
            < (SELECT capacity FROM classes WHERE id = $2)`
	result, err := r.db.ExecContext(ctx, query, seat.ID, seat.ClassID, seat.ApplicationID, seat.EnrolledAt, seat.Status)
	if err != nil {
		return false, fmt.Errorf("insert seat: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert seat rows: %w", err)
	}
	return rows > 0, nil
}

// CountActive returns the number of active seats in a class.
func (r *ClassEnrollmentRepository) CountActive(ctx context.Context, classID string) (int, error) {
	const query = `SELECT COUNT(*) FROM class_enrollments WHERE class_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, classID, models.SeatStatusActive); err != nil {
		return 0, fmt.Errorf("count active seats: %w", err)
	}
	return count, nil
}

// ExistsActiveForApplication reports whether the application already holds an
// active seat in any class.
func (r *ClassEnrollmentRepository) ExistsActiveForApplication(ctx context.Context, applicationID string) (bool, error) {
	const query = `SELECT 1 FROM class_enrollments WHERE application_id = $1 AND status = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, applicationID, models.SeatStatusActive); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check application seat: %w", err)
	}
	return true, nil
}

// ListRoster returns the active seats of a class joined with student facts.
func (r *ClassEnrollmentRepository) ListRoster(ctx context.Context, classID string) ([]models.RosterEntry, error) {
	const query = `SELECT e.id, e.class_id, e.application_id, e.enrolled_at, e.status,
        a.first_name, a.last_name, a.program_type, a.parent_name, a.parent_phone
        FROM class_enrollments e
        JOIN applications a ON a.id = e.application_id
        WHERE e.class_id = $1 AND e.status = $2
        ORDER BY a.last_name, a.first_name`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, classID, models.SeatStatusActive); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return roster, nil
}

// UpdateStatus changes a seat's status (pause or cancel).
func (r *ClassEnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.SeatStatus) (bool, error) {
	const query = `UPDATE class_enrollments SET status = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return false, fmt.Errorf("update seat status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update seat status rows: %w", err)
	}
	return rows > 0, nil
}
