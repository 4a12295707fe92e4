package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/apexgym/studio-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestApplicationRepositoryListByParentEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	rows := sqlmock.NewRows([]string{"id", "first_name", "last_name", "date_of_birth", "gender", "experience", "program_type",
		"parent_name", "parent_email", "parent_phone", "address", "emergency_contact",
		"allergies", "conditions", "medications", "status", "submitted_at", "decided_at"}).
		AddRow("app-1", "Emma", "Wilson", nil, "", "", models.ProgramGirlsRecreational,
			"Sarah Wilson", "sarah@x.com", "555-0100", "", "",
			"", "", "", models.ApplicationStatusPending, time.Now(), nil)
	mock.ExpectQuery("SELECT (.+) FROM applications WHERE parent_email = \\$1").
		WithArgs("sarah@x.com").
		WillReturnRows(rows)

	applications, err := repo.ListByParentEmail(context.Background(), "sarah@x.com")
	require.NoError(t, err)
	require.Len(t, applications, 1)
	require.Equal(t, "Emma", applications[0].FirstName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryUpdateStatusFromPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	decidedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications SET status = $2, decided_at = $3 WHERE id = $1 AND status = $4")).
		WithArgs("app-1", models.ApplicationStatusApproved, decidedAt, models.ApplicationStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	applied, err := repo.UpdateStatusFromPending(context.Background(), "app-1", models.ApplicationStatusApproved, decidedAt)
	require.NoError(t, err)
	require.True(t, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryUpdateStatusAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	decidedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications SET status = $2, decided_at = $3 WHERE id = $1 AND status = $4")).
		WithArgs("app-1", models.ApplicationStatusRejected, decidedAt, models.ApplicationStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err := repo.UpdateStatusFromPending(context.Background(), "app-1", models.ApplicationStatusRejected, decidedAt)
	require.NoError(t, err)
	require.False(t, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryDeletePendingOnly(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM applications WHERE id = $1 AND status = $2")).
		WithArgs("app-9", models.ApplicationStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.DeletePending(context.Background(), "app-9")
	require.NoError(t, err)
	require.False(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}
