package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicops/booking-platform/internal/appointments"
	"github.com/clinicops/booking-platform/internal/clinic"
	"github.com/clinicops/booking-platform/internal/patients"
)

func TestConfirmationNotifier(t *testing.T) {
	email := &fakeEmail{}
	svc, _ := newTestService(t, email)
	n := NewConfirmationNotifier(svc)

	c := clinic.Clinic{ID: "clinic-a", Name: "Manila Aesthetics", Timezone: "Asia/Manila"}
	appt := appointments.Appointment{
		ID:        "appt-1",
		ClinicID:  c.ID,
		StartTime: time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC), // 10:00 Manila
	}
	p := patients.Patient{FirstName: "Maria", LastName: "Santos", Email: "maria@example.com"}

	require.NoError(t, n.SendBookingConfirmation(context.Background(), c, appt, p))
	require.Len(t, email.sent, 1)

	msg := email.sent[0]
	assert.Equal(t, "maria@example.com", msg.To)
	assert.Contains(t, msg.Body, "Manila Aesthetics")
	assert.Contains(t, msg.Body, "10:00 AM")
	assert.Contains(t, msg.Body, "Monday, March 2, 2026")

	// Resending for the same appointment replays, not re-sends.
	require.NoError(t, n.SendBookingConfirmation(context.Background(), c, appt, p))
	assert.Len(t, email.sent, 1)
}
