package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/apexgym/studio-api/internal/models"
	appErrors "github.com/apexgym/studio-api/pkg/errors"
)

type applicationRepository interface {
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error)
	FindByID(ctx context.Context, id string) (*models.Application, error)
	ListByParentEmail(ctx context.Context, email string) ([]models.Application, error)
	Create(ctx context.Context, application *models.Application) error
	UpdateStatusFromPending(ctx context.Context, id string, status models.ApplicationStatus, decidedAt time.Time) (bool, error)
	DeletePending(ctx context.Context, id string) (bool, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type applicationPlacer interface {
	PlaceApplication(ctx context.Context, application *models.Application) (*models.ClassEnrollment, error)
}

// SubmitApplicationRequest carries the public enrollment form.
type SubmitApplicationRequest struct {
	FirstName   string     `json:"first_name" validate:"required"`
	LastName    string     `json:"last_name" validate:"required"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Gender      string     `json:"gender,omitempty"`
	Experience  string     `json:"experience,omitempty"`
	ProgramType string     `json:"program_type" validate:"required"`

	ParentName  string `json:"parent_name" validate:"required"`
	ParentEmail string `json:"parent_email" validate:"required,email"`
	ParentPhone string `json:"parent_phone" validate:"required"`
	Address     string `json:"address,omitempty"`

	EmergencyContact string `json:"emergency_contact,omitempty"`
	Allergies        string `json:"allergies,omitempty"`
	Conditions       string `json:"conditions,omitempty"`
	Medications      string `json:"medications,omitempty"`
}

// UpdateStatusRequest carries the admin decision for an application.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// StatusUpdateResult reports the outcome of a status transition.
type StatusUpdateResult struct {
	Applied     bool                     `json:"applied"`
	Application *models.Application      `json:"application,omitempty"`
	Seat        *models.ClassEnrollment `json:"seat,omitempty"`
}

// EnrollmentService orchestrates the application intake and review workflow.
type EnrollmentService struct {
	repo       applicationRepository
	audit      auditRecorder
	placer     applicationPlacer
	validator  *validator.Validate
	logger     *zap.Logger
	autoAssign bool
	now        func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo applicationRepository, audit auditRecorder, placer applicationPlacer, validate *validator.Validate, logger *zap.Logger, autoAssign bool) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, audit: audit, placer: placer, validator: validate, logger: logger, autoAssign: autoAssign, now: time.Now}
}

// Submit validates a public application, rejects duplicates and persists it
// as pending.
func (s *EnrollmentService) Submit(ctx context.Context, req SubmitApplicationRequest) (*models.Application, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	programType := models.ProgramType(strings.ToLower(strings.TrimSpace(req.ProgramType)))
	if !programType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown program type")
	}

	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	parentEmail := strings.ToLower(strings.TrimSpace(req.ParentEmail))

	duplicate, err := s.isDuplicate(ctx, firstName, lastName, parentEmail)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return nil, appErrors.Clone(appErrors.ErrDuplicate, "")
	}

	application := &models.Application{
		FirstName:        firstName,
		LastName:         lastName,
		DateOfBirth:      req.DateOfBirth,
		Gender:           req.Gender,
		Experience:       req.Experience,
		ProgramType:      programType,
		ParentName:       strings.TrimSpace(req.ParentName),
		ParentEmail:      parentEmail,
		ParentPhone:      strings.TrimSpace(req.ParentPhone),
		Address:          req.Address,
		EmergencyContact: req.EmergencyContact,
		Allergies:        models.Sensitive(req.Allergies),
		Conditions:       models.Sensitive(req.Conditions),
		Medications:      models.Sensitive(req.Medications),
		Status:           models.ApplicationStatusPending,
		SubmittedAt:      s.now().UTC(),
	}
	if err := s.repo.Create(ctx, application); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}

	s.recordAudit(ctx, nil, models.AuditActionApplicationSubmit, application.ID, models.AuditOutcomeSuccess)
	return application, nil
}

// isDuplicate reports whether a non-deleted application for the same student
// and guardian email is already on file. Names compare case-insensitively
// after trimming; the email is expected pre-lowercased. Store errors
// propagate so a submission never slips past a failed check.
func (s *EnrollmentService) isDuplicate(ctx context.Context, firstName, lastName, parentEmail string) (bool, error) {
	existing, err := s.repo.ListByParentEmail(ctx, parentEmail)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check for duplicates")
	}
	for _, application := range existing {
		if strings.EqualFold(strings.TrimSpace(application.FirstName), firstName) &&
			strings.EqualFold(strings.TrimSpace(application.LastName), lastName) {
			return true, nil
		}
	}
	return false, nil
}

// List returns applications newest first with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, *models.Pagination, error) {
	applications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return applications, pagination, nil
}

// Get returns a single application.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Application, error) {
	application, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	return application, nil
}

// UpdateStatus applies an admin decision. Only pending applications change;
// a decision on an already-decided application reports Applied=false without
// error. Approval triggers best-effort placement: no eligible class is a
// valid outcome. Every attempt lands in the audit trail.
func (s *EnrollmentService) UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest, actorID string) (*StatusUpdateResult, error) {
	newStatus := models.ApplicationStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	var action string
	switch newStatus {
	case models.ApplicationStatusApproved:
		action = models.AuditActionApplicationApprove
	case models.ApplicationStatusRejected:
		action = models.AuditActionApplicationReject
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be approved or rejected")
	}

	application, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordAudit(ctx, &actorID, action, id, models.AuditOutcomeFailure)
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		s.recordAudit(ctx, &actorID, action, id, models.AuditOutcomeFailure)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}

	if application.Status != models.ApplicationStatusPending {
		s.recordAudit(ctx, &actorID, action, id, models.AuditOutcomeNoop)
		return &StatusUpdateResult{Applied: false, Application: application}, nil
	}

	decidedAt := s.now().UTC()
	applied, err := s.repo.UpdateStatusFromPending(ctx, id, newStatus, decidedAt)
	if err != nil {
		s.recordAudit(ctx, &actorID, action, id, models.AuditOutcomeFailure)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}
	if !applied {
		// Decided by a concurrent admin between the read and the guarded write.
		s.recordAudit(ctx, &actorID, action, id, models.AuditOutcomeNoop)
		return &StatusUpdateResult{Applied: false, Application: application}, nil
	}

	application.Status = newStatus
	application.DecidedAt = &decidedAt
	result := &StatusUpdateResult{Applied: true, Application: application}

	if newStatus == models.ApplicationStatusApproved && s.autoAssign && s.placer != nil {
		seat, err := s.placer.PlaceApplication(ctx, application)
		if err != nil {
			// The approval itself stands; placement can be retried via assign.
			s.logger.Warn("placement failed after approval",
				zap.String("application_id", id), zap.Error(err))
		} else {
			result.Seat = seat
		}
	}

	s.recordAudit(ctx, &actorID, action, id, models.AuditOutcomeSuccess)
	return result, nil
}

// Assign re-runs placement for an approved application that has no seat yet.
func (s *EnrollmentService) Assign(ctx context.Context, id, actorID string) (*models.ClassEnrollment, error) {
	application, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if application.Status != models.ApplicationStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "application is not approved")
	}
	seat, err := s.placer.PlaceApplication(ctx, application)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, &actorID, models.AuditActionApplicationAssign, id, models.AuditOutcomeSuccess)
	return seat, nil
}

// Delete removes an application, permitted only while it is still pending.
func (s *EnrollmentService) Delete(ctx context.Context, id, actorID string) error {
	deleted, err := s.repo.DeletePending(ctx, id)
	if err != nil {
		s.recordAudit(ctx, &actorID, models.AuditActionApplicationDelete, id, models.AuditOutcomeFailure)
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete application")
	}
	if !deleted {
		s.recordAudit(ctx, &actorID, models.AuditActionApplicationDelete, id, models.AuditOutcomeFailure)
		return appErrors.Clone(appErrors.ErrNotFound, "application not found or no longer pending")
	}
	s.recordAudit(ctx, &actorID, models.AuditActionApplicationDelete, id, models.AuditOutcomeSuccess)
	return nil
}

func (s *EnrollmentService) recordAudit(ctx context.Context, actorID *string, action, targetID, outcome string) {
	if s.audit == nil {
		return
	}
	values, _ := json.Marshal(map[string]string{"outcome": outcome})
	entry := &models.AuditLog{
		UserID:     actorID,
		Action:     action,
		Resource:   "application",
		ResourceID: &targetID,
		NewValues:  values,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
