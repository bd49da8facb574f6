package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicops/booking-platform/internal/datastore"
	"github.com/clinicops/booking-platform/internal/tenancy"
)

func newTestRepo() *GuardRepository {
	guard := tenancy.NewGuard(datastore.New(), []string{Collection})
	return NewGuardRepository(guard)
}

func mustCreate(t *testing.T, repo *GuardRepository, clinicID string, appt Appointment) *Appointment {
	t.Helper()
	created, err := repo.Create(context.Background(), clinicID, appt)
	require.NoError(t, err)
	return created
}

func TestCreateScopesToClinic(t *testing.T) {
	repo := newTestRepo()
	created := mustCreate(t, repo, "clinic-a", Appointment{
		ServiceID: "svc-1",
		Status:    StatusScheduled,
		StartTime: time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 3, 2, 2, 30, 0, 0, time.UTC),
	})

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "clinic-a", created.ClinicID)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestListBlockingBetween(t *testing.T) {
	repo := newTestRepo()
	ctx := context.Background()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	blocking := mustCreate(t, repo, "clinic-a", Appointment{
		Status:    StatusScheduled,
		StartTime: day.Add(10 * time.Hour),
		EndTime:   day.Add(10*time.Hour + 30*time.Minute),
	})
	mustCreate(t, repo, "clinic-a", Appointment{
		Status:    StatusCancelled,
		StartTime: day.Add(11 * time.Hour),
		EndTime:   day.Add(11*time.Hour + 30*time.Minute),
	})
	mustCreate(t, repo, "clinic-a", Appointment{
		Status:    StatusNoShow,
		StartTime: day.Add(12 * time.Hour),
		EndTime:   day.Add(12*time.Hour + 30*time.Minute),
	})
	// Other clinic, same window.
	mustCreate(t, repo, "clinic-b", Appointment{
		Status:    StatusScheduled,
		StartTime: day.Add(10 * time.Hour),
		EndTime:   day.Add(10*time.Hour + 30*time.Minute),
	})
	// Outside the window.
	mustCreate(t, repo, "clinic-a", Appointment{
		Status:    StatusScheduled,
		StartTime: day.Add(40 * time.Hour),
		EndTime:   day.Add(41 * time.Hour),
	})

	got, err := repo.ListBlockingBetween(ctx, "clinic-a", day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, blocking.ID, got[0].ID)
}

func TestHasSameDayBooking(t *testing.T) {
	repo := newTestRepo()
	ctx := context.Background()
	dayStart := time.Date(2026, 3, 1, 16, 0, 0, 0, time.UTC) // local midnight in Manila
	dayEnd := dayStart.Add(24 * time.Hour)

	mustCreate(t, repo, "clinic-a", Appointment{
		ServiceID:    "svc-1",
		PatientEmail: "ana@example.com",
		Status:       StatusScheduled,
		StartTime:    dayStart.Add(10 * time.Hour),
		EndTime:      dayStart.Add(10*time.Hour + 30*time.Minute),
	})

	dup, err := repo.HasSameDayBooking(ctx, "clinic-a", "svc-1", "ana@example.com", dayStart, dayEnd)
	require.NoError(t, err)
	assert.True(t, dup)

	// Different service, same patient/day: not a duplicate.
	dup, err = repo.HasSameDayBooking(ctx, "clinic-a", "svc-2", "ana@example.com", dayStart, dayEnd)
	require.NoError(t, err)
	assert.False(t, dup)

	// Different patient.
	dup, err = repo.HasSameDayBooking(ctx, "clinic-a", "svc-1", "ben@example.com", dayStart, dayEnd)
	require.NoError(t, err)
	assert.False(t, dup)

	// Different clinic.
	dup, err = repo.HasSameDayBooking(ctx, "clinic-b", "svc-1", "ana@example.com", dayStart, dayEnd)
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestHasSameDayBooking_IgnoresCancelled(t *testing.T) {
	repo := newTestRepo()
	ctx := context.Background()
	dayStart := time.Date(2026, 3, 1, 16, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	mustCreate(t, repo, "clinic-a", Appointment{
		ServiceID:    "svc-1",
		PatientEmail: "ana@example.com",
		Status:       StatusCancelled,
		StartTime:    dayStart.Add(10 * time.Hour),
		EndTime:      dayStart.Add(10*time.Hour + 30*time.Minute),
	})

	dup, err := repo.HasSameDayBooking(ctx, "clinic-a", "svc-1", "ana@example.com", dayStart, dayEnd)
	require.NoError(t, err)
	assert.False(t, dup, "cancelled bookings must not trip the fingerprint")
}

func TestUpdateStatus(t *testing.T) {
	repo := newTestRepo()
	ctx := context.Background()

	created := mustCreate(t, repo, "clinic-a", Appointment{Status: StatusScheduled})

	require.NoError(t, repo.UpdateStatus(ctx, "clinic-a", created.ID, StatusCancelled))

	// Cross-clinic update must not find the row.
	err := repo.UpdateStatus(ctx, "clinic-b", created.ID, StatusCompleted)
	assert.True(t, errors.Is(err, ErrAppointmentNotFound), "got %v", err)

	got, err := repo.ListBlockingBetween(ctx, "clinic-a", time.Time{}, time.Now().Add(1000*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got, "cancelled appointment must stop blocking")
}
