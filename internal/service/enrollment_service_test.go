package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexgym/studio-api/internal/models"
	appErrors "github.com/apexgym/studio-api/pkg/errors"
)

type mockApplicationRepo struct {
	applications map[string]models.Application
	created      *models.Application
	deleted      []string
}

func (m *mockApplicationRepo) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	var list []models.Application
	for _, app := range m.applications {
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		list = append(list, app)
	}
	return list, len(list), nil
}

func (m *mockApplicationRepo) FindByID(ctx context.Context, id string) (*models.Application, error) {
	if app, ok := m.applications[id]; ok {
		return &app, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockApplicationRepo) ListByParentEmail(ctx context.Context, email string) ([]models.Application, error) {
	var list []models.Application
	for _, app := range m.applications {
		if app.ParentEmail == email {
			list = append(list, app)
		}
	}
	return list, nil
}

func (m *mockApplicationRepo) Create(ctx context.Context, application *models.Application) error {
	if m.applications == nil {
		m.applications = make(map[string]models.Application)
	}
	if application.ID == "" {
		application.ID = "new-app"
	}
	m.applications[application.ID] = *application
	m.created = application
	return nil
}

func (m *mockApplicationRepo) UpdateStatusFromPending(ctx context.Context, id string, status models.ApplicationStatus, decidedAt time.Time) (bool, error) {
	app, ok := m.applications[id]
	if !ok || app.Status != models.ApplicationStatusPending {
		return false, nil
	}
	app.Status = status
	app.DecidedAt = &decidedAt
	m.applications[id] = app
	return true, nil
}

func (m *mockApplicationRepo) DeletePending(ctx context.Context, id string) (bool, error) {
	app, ok := m.applications[id]
	if !ok || app.Status != models.ApplicationStatusPending {
		return false, nil
	}
	delete(m.applications, id)
	m.deleted = append(m.deleted, id)
	return true, nil
}

type mockAuditRecorder struct {
	entries []models.AuditLog
}

func (m *mockAuditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.entries = append(m.entries, *log)
	return nil
}

func (m *mockAuditRecorder) lastOutcome() string {
	if len(m.entries) == 0 {
		return ""
	}
	return string(m.entries[len(m.entries)-1].NewValues)
}

type mockPlacer struct {
	seat   *models.ClassEnrollment
	err    error
	placed []string
}

func (m *mockPlacer) PlaceApplication(ctx context.Context, application *models.Application) (*models.ClassEnrollment, error) {
	m.placed = append(m.placed, application.ID)
	return m.seat, m.err
}

func validSubmitRequest() SubmitApplicationRequest {
	return SubmitApplicationRequest{
		FirstName:   "Emma",
		LastName:    "Stone",
		ProgramType: "girls_recreational",
		ParentName:  "Alex Stone",
		ParentEmail: "alex@example.com",
		ParentPhone: "555-0100",
	}
}

func newEnrollmentFixture(placer *mockPlacer) (*EnrollmentService, *mockApplicationRepo, *mockAuditRecorder) {
	repo := &mockApplicationRepo{applications: map[string]models.Application{}}
	audit := &mockAuditRecorder{}
	svc := NewEnrollmentService(repo, audit, placer, nil, nil, true)
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }
	return svc, repo, audit
}

func TestSubmitCreatesPendingApplication(t *testing.T) {
	svc, repo, audit := newEnrollmentFixture(&mockPlacer{})

	app, err := svc.Submit(context.Background(), validSubmitRequest())
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusPending, app.Status)
	assert.Equal(t, "alex@example.com", app.ParentEmail)
	assert.NotNil(t, repo.created)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionApplicationSubmit, audit.entries[0].Action)
}

func TestSubmitRejectsDuplicateCaseInsensitive(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(&mockPlacer{})
	repo.applications["existing"] = models.Application{
		ID:          "existing",
		FirstName:   "emma",
		LastName:    "STONE",
		ParentEmail: "alex@example.com",
		Status:      models.ApplicationStatusRejected,
	}

	req := validSubmitRequest()
	req.ParentEmail = "ALEX@Example.com"
	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicate.Code))
}

func TestSubmitAllowsSameNameDifferentGuardian(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(&mockPlacer{})
	repo.applications["existing"] = models.Application{
		ID:          "existing",
		FirstName:   "Emma",
		LastName:    "Stone",
		ParentEmail: "someone-else@example.com",
		Status:      models.ApplicationStatusPending,
	}

	_, err := svc.Submit(context.Background(), validSubmitRequest())
	require.NoError(t, err)
}

func TestSubmitUnknownProgramType(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(&mockPlacer{})

	req := validSubmitRequest()
	req.ProgramType = "parkour"
	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation.Code))
}

func TestUpdateStatusApproveTriggersPlacement(t *testing.T) {
	placer := &mockPlacer{seat: &models.ClassEnrollment{ID: "seat-1", ClassID: "c1"}}
	svc, repo, audit := newEnrollmentFixture(placer)
	repo.applications["app-1"] = models.Application{
		ID: "app-1", Status: models.ApplicationStatusPending, ProgramType: models.ProgramNinja,
	}

	result, err := svc.UpdateStatus(context.Background(), "app-1", UpdateStatusRequest{Status: "approved"}, "admin-1")
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, models.ApplicationStatusApproved, result.Application.Status)
	require.NotNil(t, result.Seat)
	assert.Equal(t, "c1", result.Seat.ClassID)
	assert.Equal(t, []string{"app-1"}, placer.placed)
	assert.Contains(t, audit.lastOutcome(), models.AuditOutcomeSuccess)
}

func TestUpdateStatusRejectSkipsPlacement(t *testing.T) {
	placer := &mockPlacer{}
	svc, repo, _ := newEnrollmentFixture(placer)
	repo.applications["app-1"] = models.Application{
		ID: "app-1", Status: models.ApplicationStatusPending,
	}

	result, err := svc.UpdateStatus(context.Background(), "app-1", UpdateStatusRequest{Status: "rejected"}, "admin-1")
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Nil(t, result.Seat)
	assert.Empty(t, placer.placed)
}

func TestUpdateStatusNonPendingIsNoop(t *testing.T) {
	placer := &mockPlacer{seat: &models.ClassEnrollment{ID: "seat-1"}}
	svc, repo, audit := newEnrollmentFixture(placer)
	repo.applications["app-1"] = models.Application{
		ID: "app-1", Status: models.ApplicationStatusApproved,
	}

	result, err := svc.UpdateStatus(context.Background(), "app-1", UpdateStatusRequest{Status: "approved"}, "admin-1")
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Nil(t, result.Seat)
	// A repeated decision must not seat the student a second time.
	assert.Empty(t, placer.placed)
	assert.Contains(t, audit.lastOutcome(), models.AuditOutcomeNoop)
}

func TestUpdateStatusInvalidValue(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(&mockPlacer{})
	repo.applications["app-1"] = models.Application{ID: "app-1", Status: models.ApplicationStatusPending}

	_, err := svc.UpdateStatus(context.Background(), "app-1", UpdateStatusRequest{Status: "waitlist"}, "admin-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation.Code))
}

func TestUpdateStatusPlacementFailureKeepsApproval(t *testing.T) {
	placer := &mockPlacer{err: errors.New("store down")}
	svc, repo, audit := newEnrollmentFixture(placer)
	repo.applications["app-1"] = models.Application{
		ID: "app-1", Status: models.ApplicationStatusPending,
	}

	result, err := svc.UpdateStatus(context.Background(), "app-1", UpdateStatusRequest{Status: "approved"}, "admin-1")
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Nil(t, result.Seat)
	assert.Equal(t, models.ApplicationStatusApproved, repo.applications["app-1"].Status)
	assert.Contains(t, audit.lastOutcome(), models.AuditOutcomeSuccess)
}

func TestUpdateStatusUnknownApplication(t *testing.T) {
	svc, _, audit := newEnrollmentFixture(&mockPlacer{})

	_, err := svc.UpdateStatus(context.Background(), "missing", UpdateStatusRequest{Status: "approved"}, "admin-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound.Code))
	assert.Contains(t, audit.lastOutcome(), models.AuditOutcomeFailure)
}

func TestDeleteOnlyPendingApplications(t *testing.T) {
	svc, repo, audit := newEnrollmentFixture(&mockPlacer{})
	repo.applications["approved"] = models.Application{ID: "approved", Status: models.ApplicationStatusApproved}
	repo.applications["pending"] = models.Application{ID: "pending", Status: models.ApplicationStatusPending}

	err := svc.Delete(context.Background(), "approved", "admin-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound.Code))
	assert.Contains(t, audit.lastOutcome(), models.AuditOutcomeFailure)

	err = svc.Delete(context.Background(), "pending", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"pending"}, repo.deleted)
}

func TestAssignRequiresApprovedApplication(t *testing.T) {
	placer := &mockPlacer{seat: &models.ClassEnrollment{ID: "seat-1"}}
	svc, repo, _ := newEnrollmentFixture(placer)
	repo.applications["app-1"] = models.Application{ID: "app-1", Status: models.ApplicationStatusPending}

	_, err := svc.Assign(context.Background(), "app-1", "admin-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict.Code))
	assert.Empty(t, placer.placed)
}

func TestAssignPlacesApprovedApplication(t *testing.T) {
	placer := &mockPlacer{seat: &models.ClassEnrollment{ID: "seat-1", ClassID: "c1"}}
	svc, repo, _ := newEnrollmentFixture(placer)
	repo.applications["app-1"] = models.Application{ID: "app-1", Status: models.ApplicationStatusApproved}

	seat, err := svc.Assign(context.Background(), "app-1", "admin-1")
	require.NoError(t, err)
	require.NotNil(t, seat)
	assert.Equal(t, "c1", seat.ClassID)
}
