package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/apexgym/studio-api/internal/models"
	appErrors "github.com/apexgym/studio-api/pkg/errors"
)

const catalogCacheKey = "catalog:classes:v1"

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	SetActive(ctx context.Context, id string, active bool) (bool, error)
}

type seatCounter interface {
	CountActive(ctx context.Context, classID string) (int, error)
}

type catalogCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CreateClassRequest describes class creation payload.
type CreateClassRequest struct {
	Name              string `json:"name" validate:"required"`
	ProgramType       string `json:"program_type" validate:"required"`
	DayOfWeek         string `json:"day_of_week" validate:"required"`
	StartTime         string `json:"start_time" validate:"required"`
	EndTime           string `json:"end_time" validate:"required"`
	Capacity          int    `json:"capacity" validate:"required,gt=0"`
	AgeMin            *int   `json:"age_min,omitempty"`
	AgeMax            *int   `json:"age_max,omitempty"`
	SkillLevel        string `json:"skill_level,omitempty"`
	MonthlyPriceCents *int64 `json:"monthly_price_cents,omitempty"`
}

// UpdateClassRequest describes class update payload; shape matches creation.
type UpdateClassRequest = CreateClassRequest

var weekdays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

// ClassService manages the class catalog.
type ClassService struct {
	repo      classRepository
	seats     seatCounter
	cache     catalogCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs ClassService. The cache is optional.
func NewClassService(repo classRepository, seats seatCounter, cache catalogCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, seats: seats, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// List returns classes with seat counts for the admin view.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return classes, pagination, nil
}

// ListPublic returns the active catalog, optionally filtered by day. The
// unfiltered snapshot is cached; the day filter applies in memory so a single
// cache key covers every variant.
func (s *ClassService) ListPublic(ctx context.Context, dayOfWeek string) ([]models.ClassDetail, error) {
	var classes []models.ClassDetail

	if s.cache != nil {
		hit, err := s.cache.GetJSON(ctx, catalogCacheKey, &classes)
		if err != nil {
			s.logger.Warn("catalog cache read failed", zap.Error(err))
		}
		if hit {
			return filterByDay(classes, dayOfWeek), nil
		}
	}

	classes, _, err := s.repo.List(ctx, models.ClassFilter{ActiveOnly: true, PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, catalogCacheKey, classes, s.cacheTTL); err != nil {
			s.logger.Warn("catalog cache write failed", zap.Error(err))
		}
	}
	return filterByDay(classes, dayOfWeek), nil
}

func filterByDay(classes []models.ClassDetail, dayOfWeek string) []models.ClassDetail {
	if dayOfWeek == "" {
		return classes
	}
	day := strings.ToLower(dayOfWeek)
	filtered := make([]models.ClassDetail, 0, len(classes))
	for _, class := range classes {
		if class.DayOfWeek == day {
			filtered = append(filtered, class)
		}
	}
	return filtered
}

// Get returns a class with its seat count.
func (s *ClassService) Get(ctx context.Context, id string) (*models.ClassDetail, error) {
	class, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create adds a class to the catalog.
func (s *ClassService) Create(ctx context.Context, req CreateClassRequest) (*models.Class, error) {
	if err := s.validateClassPayload(req); err != nil {
		return nil, err
	}
	class := &models.Class{
		Name:              strings.TrimSpace(req.Name),
		ProgramType:       models.ProgramType(strings.ToLower(req.ProgramType)),
		DayOfWeek:         strings.ToLower(req.DayOfWeek),
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		Capacity:          req.Capacity,
		AgeMin:            req.AgeMin,
		AgeMax:            req.AgeMax,
		SkillLevel:        req.SkillLevel,
		MonthlyPriceCents: req.MonthlyPriceCents,
		Active:            true,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	s.invalidateCatalog(ctx)
	return class, nil
}

// Update rewrites a class's attributes.
func (s *ClassService) Update(ctx context.Context, id string, req UpdateClassRequest) (*models.Class, error) {
	if err := s.validateClassPayload(req); err != nil {
		return nil, err
	}
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	class.Name = strings.TrimSpace(req.Name)
	class.ProgramType = models.ProgramType(strings.ToLower(req.ProgramType))
	class.DayOfWeek = strings.ToLower(req.DayOfWeek)
	class.StartTime = req.StartTime
	class.EndTime = req.EndTime
	class.Capacity = req.Capacity
	class.AgeMin = req.AgeMin
	class.AgeMax = req.AgeMax
	class.SkillLevel = req.SkillLevel
	class.MonthlyPriceCents = req.MonthlyPriceCents

	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	s.invalidateCatalog(ctx)
	return class, nil
}

// Deactivate soft-deletes a class. Refused while students still hold active
// seats, so seat relations can never point at a retired class.
func (s *ClassService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	count, err := s.seats.CountActive(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count seats")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "class still has enrolled students")
	}

	if _, err := s.repo.SetActive(ctx, id, false); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate class")
	}
	s.invalidateCatalog(ctx)
	return nil
}

// Activate re-enables a deactivated class.
func (s *ClassService) Activate(ctx context.Context, id string) error {
	updated, err := s.repo.SetActive(ctx, id, true)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate class")
	}
	if !updated {
		return appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	s.invalidateCatalog(ctx)
	return nil
}

func (s *ClassService) validateClassPayload(req CreateClassRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	if !models.ProgramType(strings.ToLower(req.ProgramType)).Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown program type")
	}
	if !weekdays[strings.ToLower(req.DayOfWeek)] {
		return appErrors.Clone(appErrors.ErrValidation, "invalid day of week")
	}
	if req.AgeMin != nil && req.AgeMax != nil && *req.AgeMin > *req.AgeMax {
		return appErrors.Clone(appErrors.ErrValidation, "age_min must not exceed age_max")
	}
	return nil
}

func (s *ClassService) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, catalogCacheKey); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}
