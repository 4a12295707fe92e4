package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/apexgym/studio-api/internal/models"
	appErrors "github.com/apexgym/studio-api/pkg/errors"
)

type paymentRepository interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error)
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) error
	UpdateStatus(ctx context.Context, id string, status models.PaymentStatus) (bool, error)
}

type paymentApplicationReader interface {
	FindByID(ctx context.Context, id string) (*models.Application, error)
}

// CreatePaymentRequest describes a new ledger entry.
type CreatePaymentRequest struct {
	ApplicationID string `json:"application_id,omitempty"`
	AmountCents   int64  `json:"amount_cents" validate:"required,gt=0"`
	Currency      string `json:"currency,omitempty"`
	Method        string `json:"method,omitempty"`
	ExternalRef   string `json:"external_ref,omitempty"`
	Description   string `json:"description,omitempty"`
}

// UpdatePaymentStatusRequest moves a ledger entry to a new state.
type UpdatePaymentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// PaymentService maintains the payment ledger. Charges are executed by the
// external processor; this service only records outcomes.
type PaymentService struct {
	repo            paymentRepository
	applications    paymentApplicationReader
	validator       *validator.Validate
	logger          *zap.Logger
	defaultCurrency string
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(repo paymentRepository, applications paymentApplicationReader, validate *validator.Validate, logger *zap.Logger, defaultCurrency string) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &PaymentService{repo: repo, applications: applications, validator: validate, logger: logger, defaultCurrency: defaultCurrency}
}

// List returns ledger entries with pagination metadata.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error) {
	payments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
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
	return payments, pagination, nil
}

// Create records a new ledger entry, optionally tied to an application.
func (s *PaymentService) Create(ctx context.Context, req CreatePaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	payment := &models.Payment{
		AmountCents: req.AmountCents,
		Currency:    strings.ToUpper(req.Currency),
		Method:      req.Method,
		Status:      models.PaymentStatusPending,
		Description: req.Description,
	}
	if payment.Currency == "" {
		payment.Currency = s.defaultCurrency
	}
	if req.ExternalRef != "" {
		ref := req.ExternalRef
		payment.ExternalRef = &ref
	}
	if req.ApplicationID != "" {
		if _, err := s.applications.FindByID(ctx, req.ApplicationID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
		}
		appID := req.ApplicationID
		payment.ApplicationID = &appID
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create payment")
	}
	return payment, nil
}

// UpdateStatus moves a ledger entry to a new state.
func (s *PaymentService) UpdateStatus(ctx context.Context, id string, req UpdatePaymentStatusRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	status := models.PaymentStatus(strings.ToLower(req.Status))
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown payment status")
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
	}

	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	return payment, nil
}
