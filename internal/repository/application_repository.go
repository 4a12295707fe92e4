package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/apexgym/studio-api/internal/models"
)

const applicationColumns = `id, first_name, last_name, date_of_birth, gender, experience, program_type,
        parent_name, parent_email, parent_phone, address, emergency_contact,
        allergies, conditions, medications, status, submitted_at, decided_at`

// ApplicationRepository handles persistence of enrollment applications.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// List returns applications newest first, optionally filtered by status.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	base := "FROM applications"
	var args []interface{}
	if filter.Status != "" {
		base += " WHERE status = $1"
		args = append(args, filter.Status)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY submitted_at DESC LIMIT %d OFFSET %d", applicationColumns, base, size, offset)
	var applications []models.Application
	if err := r.db.SelectContext(ctx, &applications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return applications, total, nil
}

// FindByID returns an application by its ID.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.Application, error) {
	query := fmt.Sprintf("SELECT %s FROM applications WHERE id = $1", applicationColumns)
	var application models.Application
	if err := r.db.GetContext(ctx, &application, query, id); err != nil {
		return nil, err
	}
	return &application, nil
}

// ListByParentEmail returns every application filed under the guardian email.
// The caller is expected to pass an already-normalised (lowercased) address.
func (r *ApplicationRepository) ListByParentEmail(ctx context.Context, email string) ([]models.Application, error) {
	query := fmt.Sprintf("SELECT %s FROM applications WHERE parent_email = $1", applicationColumns)
	var applications []models.Application
	if err := r.db.SelectContext(ctx, &applications, query, email); err != nil {
		return nil, fmt.Errorf("list applications by email: %w", err)
	}
	return applications, nil
}

// Create persists a new application record.
func (r *ApplicationRepository) Create(ctx context.Context, application *models.Application) error {
	if application.ID == "" {
		application.ID = uuid.NewString()
	}
	if application.SubmittedAt.IsZero() {
		application.SubmittedAt = time.Now().UTC()
	}
	if application.Status == "" {
		application.Status = models.ApplicationStatusPending
	}
	const query = `INSERT INTO applications (id, first_name, last_name, date_of_birth, gender, experience, program_type,
        parent_name, parent_email, parent_phone, address, emergency_contact,
        allergies, conditions, medications, status, submitted_at, decided_at)
        VALUES (:id, :first_name, :last_name, :date_of_birth, :gender, :experience, :program_type,
        :parent_name, :parent_email, :parent_phone, :address, :emergency_contact,
        :allergies, :conditions, :medications, :status, :submitted_at, :decided_at)`
	if _, err := r.db.NamedExecContext(ctx, query, application); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// UpdateStatusFromPending transitions a pending application to a terminal
// status. Returns false without error when the application was not pending
// (or does not exist); callers distinguish those two by loading first.
func (r *ApplicationRepository) UpdateStatusFromPending(ctx context.Context, id string, status models.ApplicationStatus, decidedAt time.Time) (bool, error) {
	const query = `UPDATE applications SET status = $2, decided_at = $3 WHERE id = $1 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, id, status, decidedAt, models.ApplicationStatusPending)
	if err != nil {
		return false, fmt.Errorf("update application status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update application status rows: %w", err)
	}
	return rows > 0, nil
}

// DeletePending removes an application only while it is still pending.
func (r *ApplicationRepository) DeletePending(ctx context.Context, id string) (bool, error) {
	const query = `DELETE FROM applications WHERE id = $1 AND status = $2`
	result, err := r.db.ExecContext(ctx, query, id, models.ApplicationStatusPending)
	if err != nil {
		return false, fmt.Errorf("delete application: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete application rows: %w", err)
	}
	return rows > 0, nil
}
