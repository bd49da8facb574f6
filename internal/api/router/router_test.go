package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicops/booking-platform/internal/appointments"
	"github.com/clinicops/booking-platform/internal/booking"
	"github.com/clinicops/booking-platform/internal/clinic"
	"github.com/clinicops/booking-platform/internal/datastore"
	"github.com/clinicops/booking-platform/internal/idempotency"
	"github.com/clinicops/booking-platform/internal/locking"
	"github.com/clinicops/booking-platform/internal/patients"
	"github.com/clinicops/booking-platform/internal/tenancy"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	clinics := clinic.NewStore()
	c, err := clinics.Register(context.Background(), clinic.Clinic{
		Slug:     "downtown",
		Name:     "Downtown Clinic",
		Timezone: "America/New_York",
		Hours:    clinic.WeekdayHours("09:00", "17:00"),
		Rules:    clinic.BookingRules{LeadTimeMinutes: 60, MaxAdvanceDays: 30, SlotStepMinutes: 15},
	})
	require.NoError(t, err)
	_, err = clinics.AddService(context.Background(), clinic.Service{
		ClinicID: c.ID, Name: "Checkup", DurationMinutes: 30, Active: true,
	})
	require.NoError(t, err)

	guard := tenancy.NewGuard(datastore.New(), []string{appointments.Collection, patients.Collection})
	service := booking.NewService(booking.Deps{
		Clinics:      clinics,
		Appointments: appointments.NewGuardRepository(guard),
		Patients:     patients.NewRepository(guard),
		Ledger:       idempotency.NewLedger(),
		Locker:       locking.NewMemoryLocker(),
		Now:          func() time.Time { return time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC) },
	})

	return New(&Config{
		BookingHandler:     booking.NewHandler(service, nil),
		CORSAllowedOrigins: []string{"*"},
	})
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)
}

func TestPublicSlotsRoute(t *testing.T) {
	h := newTestHandler(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/api/v1/public/clinics/downtown/services/unknown/slots?date=2026-03-03", nil))

	// Route resolves; unknown service is a domain 404, not a router 404.
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "SERVICE_NOT_FOUND")
}

func TestUnknownRoute404(t *testing.T) {
	h := newTestHandler(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
