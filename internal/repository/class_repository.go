package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/apexgym/studio-api/internal/models"
)

const classColumns = `c.id, c.name, c.program_type, c.day_of_week, c.start_time, c.end_time,
        c.capacity, c.age_min, c.age_max, c.skill_level, c.monthly_price_cents, c.active, c.created_at, c.updated_at`

const enrolledCountExpr = `(SELECT COUNT(*) FROM class_enrollments e WHERE e.class_id = c.id AND e.status = 'active') AS enrolled_count`

// ClassRepository manages persistence for classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns classes with live seat counts matching filter criteria.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	base := "FROM classes c WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.DayOfWeek != "" {
		conditions = append(conditions, fmt.Sprintf("c.day_of_week = $%d", len(args)+1))
		args = append(args, strings.ToLower(filter.DayOfWeek))
	}
	if filter.ProgramType != "" {
		conditions = append(conditions, fmt.Sprintf("c.program_type = $%d", len(args)+1))
		args = append(args, filter.ProgramType)
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "c.active = TRUE")
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(c.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":        true,
		"day_of_week": true,
		"capacity":    true,
		"created_at":  true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s, %s %s ORDER BY c.%s %s LIMIT %d OFFSET %d",
		classColumns, enrolledCountExpr, base, sortBy, order, size, offset)
	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// ListActiveByProgram returns active classes of the program type with live
// seat counts, ordered by creation time so matcher tie-breaks are stable.
func (r *ClassRepository) ListActiveByProgram(ctx context.Context, programType models.ProgramType) ([]models.ClassDetail, error) {
	query := fmt.Sprintf(`SELECT %s, %s FROM classes c WHERE c.program_type = $1 AND c.active = TRUE ORDER BY c.created_at`,
		classColumns, enrolledCountExpr)
	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, programType); err != nil {
		return nil, fmt.Errorf("list program classes: %w", err)
	}
	return classes, nil
}

// FindByID returns a class by its ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, program_type, day_of_week, start_time, end_time,
        capacity, age_min, age_max, skill_level, monthly_price_cents, active, created_at, updated_at
        FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// FindDetailByID returns a class with its live seat count.
func (r *ClassRepository) FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	query := fmt.Sprintf("SELECT %s, %s FROM classes c WHERE c.id = $1", classColumns, enrolledCountExpr)
	var detail models.ClassDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create persists a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, name, program_type, day_of_week, start_time, end_time,
        capacity, age_min, age_max, skill_level, monthly_price_cents, active, created_at, updated_at)
        VALUES (:id, :name, :program_type, :day_of_week, :start_time, :end_time,
        :capacity, :age_min, :age_max, :skill_level, :monthly_price_cents, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update rewrites the mutable attributes of a class.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, program_type = :program_type, day_of_week = :day_of_week,
        start_time = :start_time, end_time = :end_time, capacity = :capacity,
        age_min = :age_min, age_max = :age_max, skill_level = :skill_level,
        monthly_price_cents = :monthly_price_cents, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// SetActive flips the soft-deletion flag. Classes are never hard-deleted so
// historical seat relations stay resolvable.
func (r *ClassRepository) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	const query = `UPDATE classes SET active = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("set class active: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set class active rows: %w", err)
	}
	return rows > 0, nil
}
