package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/apexgym/studio-api/internal/models"
)

func TestClassEnrollmentInsertIfCapacitySucceeds(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassEnrollmentRepository(db)

	seat := &models.ClassEnrollment{ClassID: "class-1", ApplicationID: "app-1"}
	mock.ExpectExec("INSERT INTO class_enrollments (.+) SELECT (.+) WHERE").
		WithArgs(sqlmock.AnyArg(), "class-1", "app-1", sqlmock.AnyArg(), models.SeatStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := repo.InsertIfCapacity(context.Background(), seat)
	require.NoError(t, err)
	require.True(t, inserted)
	require.NotEmpty(t, seat.ID)
	require.False(t, seat.EnrolledAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassEnrollmentInsertIfCapacityFull(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassEnrollmentRepository(db)

	seat := &models.ClassEnrollment{ClassID: "class-full", ApplicationID: "app-2", EnrolledAt: time.Now().UTC()}
	mock.ExpectExec("INSERT INTO class_enrollments (.+) SELECT (.+) WHERE").
		WithArgs(sqlmock.AnyArg(), "class-full", "app-2", sqlmock.AnyArg(), models.SeatStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.InsertIfCapacity(context.Background(), seat)
	require.NoError(t, err)
	require.False(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassEnrollmentCountActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassEnrollmentRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM class_enrollments WHERE class_id = \\$1 AND status = \\$2").
		WithArgs("class-1", models.SeatStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountActive(context.Background(), "class-1")
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassEnrollmentExistsActiveForApplicationMiss(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassEnrollmentRepository(db)

	mock.ExpectQuery("SELECT 1 FROM class_enrollments WHERE application_id = \\$1 AND status = \\$2 LIMIT 1").
		WithArgs("app-1", models.SeatStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}))

	exists, err := repo.ExistsActiveForApplication(context.Background(), "app-1")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}
