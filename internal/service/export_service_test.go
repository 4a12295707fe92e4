package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexgym/studio-api/internal/models"
	appErrors "github.com/apexgym/studio-api/pkg/errors"
)

type mockRosterReader struct {
	roster []models.RosterEntry
}

func (m *mockRosterReader) ListRoster(ctx context.Context, classID string) ([]models.RosterEntry, error) {
	return m.roster, nil
}

type mockExportClassReader struct {
	classes map[string]*models.Class
}

func (m *mockExportClassReader) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if class, ok := m.classes[id]; ok {
		return class, nil
	}
	return nil, sql.ErrNoRows
}

func newExportFixture() *ExportService {
	roster := &mockRosterReader{roster: []models.RosterEntry{
		{
			ClassEnrollment: models.ClassEnrollment{
				ID: "seat-1", ClassID: "c1", ApplicationID: "app-1",
				EnrolledAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
				Status:     models.SeatStatusActive,
			},
			FirstName:   "Emma",
			LastName:    "Stone",
			ProgramType: models.ProgramGirlsRecreational,
			ParentName:  "Alex Stone",
			ParentPhone: "555-0100",
		},
	}}
	classes := &mockExportClassReader{classes: map[string]*models.Class{
		"c1": {ID: "c1", Name: "Tuesday Tumblers", DayOfWeek: "tuesday", StartTime: "16:00", EndTime: "17:00"},
	}}
	return NewExportService(roster, classes, nil)
}

func TestClassRosterCSV(t *testing.T) {
	svc := newExportFixture()

	result, err := svc.ClassRoster(context.Background(), "c1", ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "roster_tuesday_tumblers.csv", result.Filename)

	content := string(result.Content)
	assert.True(t, strings.HasPrefix(content, "Student,Program,Parent,Parent Phone,Enrolled At"))
	assert.Contains(t, content, "Emma Stone")
	assert.Contains(t, content, "2026-02-01")
}

func TestClassRosterPDF(t *testing.T) {
	svc := newExportFixture()

	result, err := svc.ClassRoster(context.Background(), "c1", ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Equal(t, "roster_tuesday_tumblers.pdf", result.Filename)
	assert.True(t, strings.HasPrefix(string(result.Content), "%PDF"))
}

func TestClassRosterUnknownClass(t *testing.T) {
	svc := newExportFixture()

	_, err := svc.ClassRoster(context.Background(), "missing", ExportFormatCSV)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound.Code))
}

func TestClassRosterUnknownFormat(t *testing.T) {
	svc := newExportFixture()

	_, err := svc.ClassRoster(context.Background(), "c1", ExportFormat("xlsx"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation.Code))
}
