package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	start := time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), "clinic-a", "svc-1", "pat-1", "",
			"ana@example.com", start, end, "2026-03-02", "SCHEDULED", "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewPgRepositoryWithQuerier(mock)
	created, err := repo.Create(context.Background(), "clinic-a", Appointment{
		ServiceID:    "svc-1",
		PatientID:    "pat-1",
		PatientEmail: "ana@example.com",
		StartTime:    start,
		EndTime:      end,
		LocalDay:     "2026-03-02",
		Status:       StatusScheduled,
	})
	require.NoError(t, err)
	assert.Equal(t, "clinic-a", created.ClinicID)
	assert.NotEmpty(t, created.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCreateUniqueViolation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	start := time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{
			Code:           "23505",
			ConstraintName: "idx_appointments_same_day_fingerprint",
		})

	repo := NewPgRepositoryWithQuerier(mock)
	_, err = repo.Create(context.Background(), "clinic-a", Appointment{
		ServiceID:    "svc-1",
		PatientID:    "pat-1",
		PatientEmail: "ana@example.com",
		StartTime:    start,
		EndTime:      start.Add(30 * time.Minute),
		LocalDay:     "2026-03-02",
		Status:       StatusScheduled,
	})
	assert.True(t, errors.Is(err, ErrDuplicateSameDay), "got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgListBlockingBetween(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	from := time.Date(2026, 3, 1, 16, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	start := from.Add(10 * time.Hour)
	created := from.Add(-time.Hour)

	rows := pgxmock.NewRows([]string{
		"id", "clinic_id", "service_id", "patient_id", "staff_id",
		"patient_email", "start_time", "end_time", "local_day", "status", "notes", "created_at",
	}).AddRow(
		"appt-1", "clinic-a", "svc-1", "pat-1", "",
		"ana@example.com", start, start.Add(30*time.Minute), "2026-03-02", "SCHEDULED", "", created,
	)

	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs("clinic-a", from, to).
		WillReturnRows(rows)

	repo := NewPgRepositoryWithQuerier(mock)
	got, err := repo.ListBlockingBetween(context.Background(), "clinic-a", from, to)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "appt-1", got[0].ID)
	assert.Equal(t, StatusScheduled, got[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgHasSameDayBooking(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	dayStart := time.Date(2026, 3, 1, 16, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	mock.ExpectQuery("SELECT 1").
		WithArgs("clinic-a", "svc-1", "ana@example.com", dayStart, dayEnd).
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	repo := NewPgRepositoryWithQuerier(mock)
	dup, err := repo.HasSameDayBooking(context.Background(), "clinic-a", "svc-1", "ana@example.com", dayStart, dayEnd)
	require.NoError(t, err)
	assert.True(t, dup)

	mock.ExpectQuery("SELECT 1").
		WithArgs("clinic-a", "svc-1", "ben@example.com", dayStart, dayEnd).
		WillReturnError(pgx.ErrNoRows)

	dup, err = repo.HasSameDayBooking(context.Background(), "clinic-a", "svc-1", "ben@example.com", dayStart, dayEnd)
	require.NoError(t, err)
	assert.False(t, dup)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE appointments").
		WithArgs("clinic-a", "appt-1", "CANCELLED").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewPgRepositoryWithQuerier(mock)
	require.NoError(t, repo.UpdateStatus(context.Background(), "clinic-a", "appt-1", StatusCancelled))

	mock.ExpectExec("UPDATE appointments").
		WithArgs("clinic-b", "appt-1", "CANCELLED").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.UpdateStatus(context.Background(), "clinic-b", "appt-1", StatusCancelled)
	assert.True(t, errors.Is(err, ErrAppointmentNotFound), "got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}
