package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/apexgym/studio-api/internal/models"
	appErrors "github.com/apexgym/studio-api/pkg/errors"
)

type placementClassRepository interface {
	ListActiveByProgram(ctx context.Context, programType models.ProgramType) ([]models.ClassDetail, error)
	FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error)
}

type seatRepository interface {
	InsertIfCapacity(ctx context.Context, seat *models.ClassEnrollment) (bool, error)
	CountActive(ctx context.Context, classID string) (int, error)
	ExistsActiveForApplication(ctx context.Context, applicationID string) (bool, error)
}

type placementApplicationReader interface {
	FindByID(ctx context.Context, id string) (*models.Application, error)
}

// PlacementService matches approved applications to classes and owns seat
// writes, so every enrollment path goes through the capacity-checked insert.
type PlacementService struct {
	classes      placementClassRepository
	seats        seatRepository
	applications placementApplicationReader
	logger       *zap.Logger
	now          func() time.Time
}

// NewPlacementService constructs PlacementService.
func NewPlacementService(classes placementClassRepository, seats seatRepository, applications placementApplicationReader, logger *zap.Logger) *PlacementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlacementService{classes: classes, seats: seats, applications: applications, logger: logger, now: time.Now}
}

// FindBestClass returns the best-fit class for the program and student age,
// or nil when nothing eligible has room. Pure read: nothing is written.
func (s *PlacementService) FindBestClass(ctx context.Context, programType models.ProgramType, dateOfBirth *time.Time) (*models.ClassDetail, error) {
	candidates, err := s.rankCandidates(ctx, programType, dateOfBirth)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	best := candidates[0]
	return &best, nil
}

// rankCandidates applies the eligibility pipeline: exact program match,
// age bounds when a birth date is known, open seats, then orders by seats
// remaining descending. The sort is stable, so exact ties keep catalog order.
func (s *PlacementService) rankCandidates(ctx context.Context, programType models.ProgramType, dateOfBirth *time.Time) ([]models.ClassDetail, error) {
	classes, err := s.classes.ListActiveByProgram(ctx, programType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	if len(classes) == 0 {
		return nil, nil
	}

	var age *int
	if dateOfBirth != nil {
		a := models.AgeAt(*dateOfBirth, s.now())
		age = &a
	}

	candidates := make([]models.ClassDetail, 0, len(classes))
	for _, class := range classes {
		if age != nil && !class.AcceptsAge(*age) {
			continue
		}
		if class.EnrolledCount >= class.Capacity {
			continue
		}
		candidates = append(candidates, class)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].SeatsRemaining() > candidates[j].SeatsRemaining()
	})
	return candidates, nil
}

// PlaceApplication seats an approved application in its best-fit class. The
// ranked candidates are tried in order through the capacity-checked insert,
// so a class that filled after the ranking snapshot is simply skipped. A nil
// seat with nil error means no eligible class had room, which is a valid
// outcome, not a failure.
func (s *PlacementService) PlaceApplication(ctx context.Context, application *models.Application) (*models.ClassEnrollment, error) {
	seated, err := s.seats.ExistsActiveForApplication(ctx, application.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing seat")
	}
	if seated {
		return nil, nil
	}

	candidates, err := s.rankCandidates(ctx, application.ProgramType, application.DateOfBirth)
	if err != nil {
		return nil, err
	}

	for _, class := range candidates {
		seat := &models.ClassEnrollment{
			ClassID:       class.ID,
			ApplicationID: application.ID,
			EnrolledAt:    s.now().UTC(),
			Status:        models.SeatStatusActive,
		}
		inserted, err := s.seats.InsertIfCapacity(ctx, seat)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write seat")
		}
		if inserted {
			s.logger.Info("application placed",
				zap.String("application_id", application.ID),
				zap.String("class_id", class.ID))
			return seat, nil
		}
		// Filled between ranking and write; try the next candidate.
	}
	return nil, nil
}

// EnrollDirect seats a specific application in a specific class on explicit
// admin request.
func (s *PlacementService) EnrollDirect(ctx context.Context, applicationID, classID string) (*models.ClassEnrollment, error) {
	application, err := s.applications.FindByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	if application.Status != models.ApplicationStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "application is not approved")
	}

	class, err := s.classes.FindDetailByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if !class.Active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class is inactive")
	}

	seated, err := s.seats.ExistsActiveForApplication(ctx, applicationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing seat")
	}
	if seated {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already holds an active seat")
	}

	seat := &models.ClassEnrollment{
		ClassID:       classID,
		ApplicationID: applicationID,
		EnrolledAt:    s.now().UTC(),
		Status:        models.SeatStatusActive,
	}
	inserted, err := s.seats.InsertIfCapacity(ctx, seat)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write seat")
	}
	if !inserted {
		return nil, appErrors.Clone(appErrors.ErrCapacityFull, "")
	}
	return seat, nil
}

// HasCapacity reports whether a class currently has an open seat. Advisory
// only; the conditional insert is the authoritative check.
func (s *PlacementService) HasCapacity(ctx context.Context, classID string) (bool, error) {
	class, err := s.classes.FindDetailByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	count, err := s.seats.CountActive(ctx, classID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count seats")
	}
	return count < class.Capacity, nil
}
