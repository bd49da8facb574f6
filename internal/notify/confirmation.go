package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/clinicops/booking-platform/internal/appointments"
	"github.com/clinicops/booking-platform/internal/booking"
	"github.com/clinicops/booking-platform/internal/clinic"
	"github.com/clinicops/booking-platform/internal/patients"
)

// ConfirmationNotifier turns an admitted booking into a confirmation
// email through the admission guard. It satisfies the booking service's
// ConfirmationSender dependency.
type ConfirmationNotifier struct {
	service *Service
}

// NewConfirmationNotifier creates the notifier.
func NewConfirmationNotifier(service *Service) *ConfirmationNotifier {
	if service == nil {
		panic("notify: service required")
	}
	return &ConfirmationNotifier{service: service}
}

// SendBookingConfirmation emails the patient their appointment details.
// The idempotency key derives from the appointment id, so a repeated call
// for the same appointment replays instead of double-sending.
func (n *ConfirmationNotifier) SendBookingConfirmation(ctx context.Context, c clinic.Clinic, appt appointments.Appointment, p patients.Patient) error {
	local := appt.StartTime.In(c.Location())

	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour appointment at %s is confirmed for %s at %s.\n\nSee you then!\n%s",
		p.FirstName,
		c.Name,
		local.Format("Monday, January 2, 2006"),
		local.Format("3:04 PM"),
		c.Name,
	)

	_, err := n.service.Send(ctx, SendRequest{
		ClinicID:       c.ID,
		Timezone:       c.Timezone,
		IdempotencyKey: "booking-confirmation:" + appt.ID,
		Type:           TypeBookingConfirmation,
		Channel:        ChannelEmail,
		Recipient:      p.Email,
		RecipientName:  name,
		Subject:        fmt.Sprintf("Appointment confirmed - %s", local.Format("Jan 2, 3:04 PM")),
		Body:           body,
	})
	return err
}

// SendBookingCancellation emails the patient that their appointment was
// cancelled. Best-effort, same guard path as confirmations.
func (n *ConfirmationNotifier) SendBookingCancellation(ctx context.Context, c clinic.Clinic, appt appointments.Appointment, p patients.Patient) error {
	local := appt.StartTime.In(c.Location())

	_, err := n.service.Send(ctx, SendRequest{
		ClinicID:       c.ID,
		Timezone:       c.Timezone,
		IdempotencyKey: "booking-cancellation:" + appt.ID,
		Type:           TypeBookingCancellation,
		Channel:        ChannelEmail,
		Recipient:      p.Email,
		RecipientName:  strings.TrimSpace(p.FirstName + " " + p.LastName),
		Subject:        "Appointment cancelled",
		Body: fmt.Sprintf("Hi %s,\n\nYour appointment at %s on %s has been cancelled.\n",
			p.FirstName, c.Name, local.Format("Monday, January 2 at 3:04 PM")),
	})
	return err
}

var _ booking.ConfirmationSender = (*ConfirmationNotifier)(nil)
