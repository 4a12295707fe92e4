package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexgym/studio-api/internal/models"
	appErrors "github.com/apexgym/studio-api/pkg/errors"
)

type mockPlacementClassRepo struct {
	classes []models.ClassDetail
}

func (m *mockPlacementClassRepo) ListActiveByProgram(ctx context.Context, programType models.ProgramType) ([]models.ClassDetail, error) {
	var matched []models.ClassDetail
	for _, class := range m.classes {
		if class.Active && class.ProgramType == programType {
			matched = append(matched, class)
		}
	}
	return matched, nil
}

func (m *mockPlacementClassRepo) FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	for _, class := range m.classes {
		if class.ID == id {
			c := class
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

type mockSeatRepo struct {
	fullClasses map[string]bool
	seated      map[string]bool
	inserted    []models.ClassEnrollment
	counts      map[string]int
}

func (m *mockSeatRepo) InsertIfCapacity(ctx context.Context, seat *models.ClassEnrollment) (bool, error) {
	if m.fullClasses[seat.ClassID] {
		return false, nil
	}
	if seat.ID == "" {
		seat.ID = "seat-1"
	}
	m.inserted = append(m.inserted, *seat)
	return true, nil
}

func (m *mockSeatRepo) CountActive(ctx context.Context, classID string) (int, error) {
	return m.counts[classID], nil
}

func (m *mockSeatRepo) ExistsActiveForApplication(ctx context.Context, applicationID string) (bool, error) {
	return m.seated[applicationID], nil
}

type mockApplicationReader struct {
	applications map[string]*models.Application
}

func (m *mockApplicationReader) FindByID(ctx context.Context, id string) (*models.Application, error) {
	if app, ok := m.applications[id]; ok {
		return app, nil
	}
	return nil, sql.ErrNoRows
}

func classDetail(id string, program models.ProgramType, capacity, enrolled int, ageMin, ageMax *int) models.ClassDetail {
	return models.ClassDetail{
		Class: models.Class{
			ID:          id,
			Name:        id,
			ProgramType: program,
			Capacity:    capacity,
			AgeMin:      ageMin,
			AgeMax:      ageMax,
			Active:      true,
		},
		EnrolledCount: enrolled,
	}
}

func intPtr(v int) *int { return &v }

func newPlacementFixture(classes ...models.ClassDetail) (*PlacementService, *mockSeatRepo) {
	classRepo := &mockPlacementClassRepo{classes: classes}
	seats := &mockSeatRepo{fullClasses: map[string]bool{}, seated: map[string]bool{}, counts: map[string]int{}}
	apps := &mockApplicationReader{applications: map[string]*models.Application{}}
	svc := NewPlacementService(classRepo, seats, apps, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }
	return svc, seats
}

func TestFindBestClassFiltersByAgeAndCapacity(t *testing.T) {
	dob := time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC) // age 6 at the fixed now
	svc, _ := newPlacementFixture(
		classDetail("too-old", models.ProgramGirlsRecreational, 10, 0, intPtr(9), intPtr(12)),
		classDetail("full", models.ProgramGirlsRecreational, 8, 8, intPtr(5), intPtr(8)),
		classDetail("fits", models.ProgramGirlsRecreational, 10, 4, intPtr(5), intPtr(8)),
	)

	best, err := svc.FindBestClass(context.Background(), models.ProgramGirlsRecreational, &dob)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, "fits", best.ID)
}

func TestFindBestClassPrefersMostOpenSeats(t *testing.T) {
	svc, _ := newPlacementFixture(
		classDetail("two-left", models.ProgramNinja, 10, 8, nil, nil),
		classDetail("six-left", models.ProgramNinja, 10, 4, nil, nil),
	)

	best, err := svc.FindBestClass(context.Background(), models.ProgramNinja, nil)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, "six-left", best.ID)
}

func TestFindBestClassTieKeepsCatalogOrder(t *testing.T) {
	svc, _ := newPlacementFixture(
		classDetail("older", models.ProgramNinja, 10, 5, nil, nil),
		classDetail("newer", models.ProgramNinja, 10, 5, nil, nil),
	)

	best, err := svc.FindBestClass(context.Background(), models.ProgramNinja, nil)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, "older", best.ID)
}

func TestFindBestClassUnknownAgeSkipsAgeFilter(t *testing.T) {
	svc, _ := newPlacementFixture(
		classDetail("bounded", models.ProgramPreschool, 10, 0, intPtr(3), intPtr(5)),
	)

	best, err := svc.FindBestClass(context.Background(), models.ProgramPreschool, nil)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, "bounded", best.ID)
}

func TestFindBestClassNoneEligible(t *testing.T) {
	svc, _ := newPlacementFixture(
		classDetail("full", models.ProgramBoysCompetitive, 5, 5, nil, nil),
	)

	best, err := svc.FindBestClass(context.Background(), models.ProgramBoysCompetitive, nil)
	require.NoError(t, err)
	assert.Nil(t, best)
}

func TestPlaceApplicationSkipsAlreadySeated(t *testing.T) {
	svc, seats := newPlacementFixture(
		classDetail("open", models.ProgramNinja, 10, 0, nil, nil),
	)
	seats.seated["app-1"] = true

	seat, err := svc.PlaceApplication(context.Background(), &models.Application{
		ID: "app-1", ProgramType: models.ProgramNinja, Status: models.ApplicationStatusApproved,
	})
	require.NoError(t, err)
	assert.Nil(t, seat)
	assert.Empty(t, seats.inserted)
}

func TestPlaceApplicationFallsBackWhenClassFillsConcurrently(t *testing.T) {
	svc, seats := newPlacementFixture(
		classDetail("best", models.ProgramNinja, 10, 2, nil, nil),
		classDetail("second", models.ProgramNinja, 10, 5, nil, nil),
	)
	// "best" ranks first but fills between ranking and the guarded insert.
	seats.fullClasses["best"] = true

	seat, err := svc.PlaceApplication(context.Background(), &models.Application{
		ID: "app-1", ProgramType: models.ProgramNinja, Status: models.ApplicationStatusApproved,
	})
	require.NoError(t, err)
	require.NotNil(t, seat)
	assert.Equal(t, "second", seat.ClassID)
	assert.Equal(t, models.SeatStatusActive, seat.Status)
}

func TestPlaceApplicationNoCandidatesIsNotAnError(t *testing.T) {
	svc, seats := newPlacementFixture()

	seat, err := svc.PlaceApplication(context.Background(), &models.Application{
		ID: "app-1", ProgramType: models.ProgramNinja, Status: models.ApplicationStatusApproved,
	})
	require.NoError(t, err)
	assert.Nil(t, seat)
	assert.Empty(t, seats.inserted)
}

func TestEnrollDirectRequiresApprovedApplication(t *testing.T) {
	classRepo := &mockPlacementClassRepo{classes: []models.ClassDetail{
		classDetail("c1", models.ProgramNinja, 10, 0, nil, nil),
	}}
	seats := &mockSeatRepo{fullClasses: map[string]bool{}, seated: map[string]bool{}}
	apps := &mockApplicationReader{applications: map[string]*models.Application{
		"app-1": {ID: "app-1", Status: models.ApplicationStatusPending, ProgramType: models.ProgramNinja},
	}}
	svc := NewPlacementService(classRepo, seats, apps, nil)

	_, err := svc.EnrollDirect(context.Background(), "app-1", "c1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict.Code))
}

func TestEnrollDirectFullClass(t *testing.T) {
	classRepo := &mockPlacementClassRepo{classes: []models.ClassDetail{
		classDetail("c1", models.ProgramNinja, 5, 5, nil, nil),
	}}
	seats := &mockSeatRepo{fullClasses: map[string]bool{"c1": true}, seated: map[string]bool{}}
	apps := &mockApplicationReader{applications: map[string]*models.Application{
		"app-1": {ID: "app-1", Status: models.ApplicationStatusApproved, ProgramType: models.ProgramNinja},
	}}
	svc := NewPlacementService(classRepo, seats, apps, nil)

	_, err := svc.EnrollDirect(context.Background(), "app-1", "c1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCapacityFull.Code))
}

func TestEnrollDirectSuccess(t *testing.T) {
	classRepo := &mockPlacementClassRepo{classes: []models.ClassDetail{
		classDetail("c1", models.ProgramNinja, 5, 2, nil, nil),
	}}
	seats := &mockSeatRepo{fullClasses: map[string]bool{}, seated: map[string]bool{}}
	apps := &mockApplicationReader{applications: map[string]*models.Application{
		"app-1": {ID: "app-1", Status: models.ApplicationStatusApproved, ProgramType: models.ProgramNinja},
	}}
	svc := NewPlacementService(classRepo, seats, apps, nil)

	seat, err := svc.EnrollDirect(context.Background(), "app-1", "c1")
	require.NoError(t, err)
	require.NotNil(t, seat)
	assert.Equal(t, "c1", seat.ClassID)
	assert.Equal(t, "app-1", seat.ApplicationID)
}
