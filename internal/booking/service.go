package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/clinicops/booking-platform/internal/appointments"
	"github.com/clinicops/booking-platform/internal/clinic"
	"github.com/clinicops/booking-platform/internal/idempotency"
	"github.com/clinicops/booking-platform/internal/locking"
	"github.com/clinicops/booking-platform/internal/observability/metrics"
	"github.com/clinicops/booking-platform/internal/patients"
	"github.com/clinicops/booking-platform/internal/slots"
	"github.com/clinicops/booking-platform/internal/tenancy"
	"github.com/clinicops/booking-platform/pkg/logging"
)

// ConfirmationSender delivers a booking confirmation after admission. The
// send is best-effort: a delivery failure never unwinds the appointment.
type ConfirmationSender interface {
	SendBookingConfirmation(ctx context.Context, c clinic.Clinic, appt appointments.Appointment, p patients.Patient) error
}

// Deps are the service's collaborators. Clinics, Appointments, Patients,
// Ledger and Locker are required; the rest default sensibly.
type Deps struct {
	Clinics       *clinic.Store
	Appointments  appointments.Repository
	Patients      *patients.Repository
	Ledger        *idempotency.Ledger
	Locker        locking.Locker
	Metrics       *metrics.BookingMetrics
	Logger        *logging.Logger
	Confirmations ConfirmationSender

	// Defaults fill in booking rules a clinic leaves at zero.
	Defaults clinic.BookingRules

	IdempotencyTTL time.Duration
	Now            func() time.Time
}

// Service is the booking admission controller: it owns the single write
// path that turns a slot choice into an appointment row, enforcing
// idempotency, booking-window rules, the same-day duplicate rule and
// slot-level serialization.
type Service struct {
	clinics       *clinic.Store
	appointments  appointments.Repository
	patients      *patients.Repository
	ledger        *idempotency.Ledger
	locker        locking.Locker
	metrics       *metrics.BookingMetrics
	logger        *logging.Logger
	confirmations ConfirmationSender
	defaults      clinic.BookingRules
	ttl           time.Duration
	now           func() time.Time
	tracer        trace.Tracer
}

// NewService wires the admission controller.
func NewService(deps Deps) *Service {
	if deps.Clinics == nil {
		panic("booking: clinic store required")
	}
	if deps.Appointments == nil {
		panic("booking: appointments repository required")
	}
	if deps.Patients == nil {
		panic("booking: patients repository required")
	}
	if deps.Ledger == nil {
		panic("booking: idempotency ledger required")
	}
	if deps.Locker == nil {
		panic("booking: locker required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	if deps.IdempotencyTTL <= 0 {
		deps.IdempotencyTTL = idempotency.DefaultTTL
	}

	return &Service{
		clinics:       deps.Clinics,
		appointments:  deps.Appointments,
		patients:      deps.Patients,
		ledger:        deps.Ledger,
		locker:        deps.Locker,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		confirmations: deps.Confirmations,
		defaults:      deps.Defaults,
		ttl:           deps.IdempotencyTTL,
		now:           deps.Now,
		tracer:        otel.Tracer("booking"),
	}
}

// ListSlots computes the bookable slots for one service on one date.
// Existing blocking appointments for the clinic's local day are folded in
// as busy intervals before the engine runs.
func (s *Service) ListSlots(ctx context.Context, clinicSlug, serviceID, date string) ([]slots.Slot, error) {
	ctx, span := s.tracer.Start(ctx, "booking.ListSlots",
		trace.WithAttributes(attribute.String("clinic.slug", clinicSlug)))
	defer span.End()

	c, err := s.clinics.GetBySlug(ctx, clinicSlug)
	if err != nil {
		return nil, admissionErr(CodeClinicNotFound, "clinic %q not found", clinicSlug)
	}
	svc, err := s.clinics.GetService(ctx, c.ID, serviceID)
	if err != nil || !svc.Active {
		return nil, admissionErr(CodeServiceNotFound, "service %q not found", serviceID)
	}

	rules := s.effectiveRules(c)
	busy, err := s.busyIntervals(ctx, c, date)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	out, err := slots.Compute(slots.Params{
		Date:            date,
		Timezone:        c.Timezone,
		DurationMinutes: svc.DurationMinutes,
		StepMinutes:     rules.SlotStepMinutes,
		LeadTimeMinutes: rules.LeadTimeMinutes,
		MaxAdvanceDays:  rules.MaxAdvanceDays,
		Hours:           c.Hours,
		Busy:            busy,
		Now:             s.now(),
	})
	s.metrics.ObserveSlotCompute(time.Since(started).Seconds())
	if err != nil {
		return nil, admissionErr(CodeInvalidRequest, "invalid availability query: %v", err)
	}
	return out, nil
}

// Book admits one booking request exactly once per idempotency key.
//
// Replays return the stored response unchanged; business-rule failures
// release the key so it can be retried with corrected input; a concurrent
// first attempt yields ErrRequestInProgress.
func (s *Service) Book(ctx context.Context, idempotencyKey string, req Request) (*Response, error) {
	ctx, span := s.tracer.Start(ctx, "booking.Book",
		trace.WithAttributes(
			attribute.String("clinic.slug", req.ClinicSlug),
			attribute.String("service.id", req.ServiceID),
		))
	defer span.End()

	if idempotencyKey == "" {
		s.metrics.ObserveAdmission(string(CodeInvalidRequest))
		return nil, admissionErr(CodeInvalidRequest, "Idempotency-Key header is required")
	}

	res := s.ledger.Reserve(idempotencyKey, s.ttl)
	switch res.Outcome {
	case idempotency.OutcomeReplay:
		stored, ok := res.Response.(*Response)
		if !ok {
			// Stored under a different shape; treat as in progress rather
			// than re-executing a completed booking.
			return nil, ErrRequestInProgress
		}
		replay := *stored
		replay.Replayed = true
		s.metrics.ObserveReplay()
		s.logger.Info("booking replayed from idempotency ledger",
			"idempotency_key", idempotencyKey, "appointment_id", replay.AppointmentID)
		return &replay, nil
	case idempotency.OutcomeInProgress:
		return nil, ErrRequestInProgress
	}

	resp, err := s.admit(ctx, idempotencyKey, req)
	if err != nil {
		// Failures never poison the key.
		s.ledger.Release(idempotencyKey)
		var ae *AdmissionError
		if errors.As(err, &ae) {
			s.metrics.ObserveAdmission(string(ae.Code))
		}
		return nil, err
	}

	s.ledger.Complete(idempotencyKey, resp, s.ttl)
	s.metrics.ObserveAdmission("success")
	return resp, nil
}

func (s *Service) admit(ctx context.Context, idempotencyKey string, req Request) (*Response, error) {
	c, err := s.clinics.GetBySlug(ctx, req.ClinicSlug)
	if err != nil {
		return nil, admissionErr(CodeClinicNotFound, "clinic %q not found", req.ClinicSlug)
	}
	// Bind the tenant for everything downstream of clinic resolution.
	ctx = tenancy.WithClinicID(ctx, c.ID)

	svc, err := s.clinics.GetService(ctx, c.ID, req.ServiceID)
	if err != nil || !svc.Active {
		return nil, admissionErr(CodeServiceNotFound, "service %q not found", req.ServiceID)
	}

	email := patients.NormalizeEmail(req.Patient.Email)
	if email == "" {
		return nil, admissionErr(CodeInvalidRequest, "patient email is required")
	}

	start, err := time.Parse(time.RFC3339, req.SlotStartTime)
	if err != nil {
		return nil, &AdmissionError{
			Code:    CodeInvalidSlotStart,
			Message: "slotStartTime must be an RFC 3339 timestamp",
			Details: map[string]any{"slotStartTime": req.SlotStartTime},
		}
	}
	start = start.UTC()
	end := start.Add(time.Duration(svc.DurationMinutes) * time.Minute)

	rules := s.effectiveRules(c)
	now := s.now()
	// A slot starting exactly at now is already in the past for booking
	// purposes: the patient cannot arrive at an instant that has begun.
	if !start.After(now) {
		return nil, admissionErr(CodeBookingInPast, "slot start %s is not in the future", start.Format(time.RFC3339))
	}
	if start.Before(now.Add(time.Duration(rules.LeadTimeMinutes) * time.Minute)) {
		return nil, &AdmissionError{
			Code:    CodeLeadTime,
			Message: fmt.Sprintf("bookings require at least %d minutes notice", rules.LeadTimeMinutes),
			Details: map[string]any{"leadTimeMinutes": rules.LeadTimeMinutes},
		}
	}
	if start.After(now.Add(time.Duration(rules.MaxAdvanceDays) * 24 * time.Hour)) {
		return nil, &AdmissionError{
			Code:    CodeAdvanceLimit,
			Message: fmt.Sprintf("bookings may be made at most %d days in advance", rules.MaxAdvanceDays),
			Details: map[string]any{"maxAdvanceDays": rules.MaxAdvanceDays},
		}
	}

	// The duplicate rule keys on the clinic's local calendar day, not the
	// UTC day, so an evening slot in Manila cannot dodge the check.
	loc := c.Location()
	local := start.In(loc)
	localDay := local.Format("2006-01-02")
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	// Two locks nest here. The fingerprint lock serializes all of a
	// patient's same-day attempts regardless of slot, so the duplicate
	// check and the insert are atomic with respect to each other; the
	// slot lock inside it serializes writers for one slot across
	// patients. Lock order is fixed (fingerprint, then slot), so the
	// pair cannot deadlock.
	var resp *Response
	fingerprintKey := c.ID + "|" + svc.ID + "|" + email + "|" + localDay
	err = s.locker.WithLock(ctx, fingerprintKey, func(ctx context.Context) error {
		dup, err := s.appointments.HasSameDayBooking(ctx, c.ID, svc.ID, email, dayStart, dayEnd)
		if err != nil {
			return fmt.Errorf("booking: duplicate check: %w", err)
		}
		if dup {
			return duplicateErr(svc.ID, localDay)
		}

		slotKey := c.ID + "|" + start.Format(time.RFC3339)
		err = s.locker.WithLock(ctx, slotKey, func(ctx context.Context) error {
			open, err := s.slotStillOpen(ctx, c, svc, rules, start, localDay, now)
			if err != nil {
				return err
			}
			if !open {
				return &AdmissionError{
					Code:    CodeSlotUnavailable,
					Message: "the requested slot is no longer available",
					Details: map[string]any{"slotStartTime": start.Format(time.RFC3339)},
				}
			}

			patient, err := s.patients.UpsertByEmail(ctx, c.ID, patients.Patient{
				FirstName: req.Patient.FirstName,
				LastName:  req.Patient.LastName,
				Email:     email,
				Phone:     req.Patient.Phone,
			})
			if err != nil {
				return fmt.Errorf("booking: patient upsert: %w", err)
			}

			appt, err := s.appointments.Create(ctx, c.ID, appointments.Appointment{
				ServiceID:    svc.ID,
				PatientID:    patient.ID,
				PatientEmail: email,
				StartTime:    start,
				EndTime:      end,
				LocalDay:     localDay,
				Status:       appointments.StatusScheduled,
				Notes:        req.Notes,
			})
			if errors.Is(err, appointments.ErrDuplicateSameDay) {
				// The store's unique fingerprint index caught a write that
				// raced past the lock (e.g. another node without a shared
				// locker).
				return duplicateErr(svc.ID, localDay)
			}
			if err != nil {
				return fmt.Errorf("booking: create appointment: %w", err)
			}

			resp = &Response{
				BookingID:      uuid.New().String(),
				AppointmentID:  appt.ID,
				PatientID:      patient.ID,
				ClinicSlug:     c.Slug,
				ServiceID:      svc.ID,
				SlotStartTime:  start.Format(time.RFC3339),
				SlotEndTime:    end.Format(time.RFC3339),
				Status:         string(appointments.StatusScheduled),
				IdempotencyKey: idempotencyKey,
			}

			s.logger.WithClinic(c.ID).Info("booking admitted",
				"appointment_id", appt.ID,
				"service_id", svc.ID,
				"slot_start", start.Format(time.RFC3339))

			if s.confirmations != nil {
				if err := s.confirmations.SendBookingConfirmation(ctx, *c, *appt, *patient); err != nil {
					s.logger.WithClinic(c.ID).Warn("booking confirmation not sent",
						"appointment_id", appt.ID, "error", err)
				}
			}
			return nil
		})
		if errors.Is(err, locking.ErrLockNotAcquired) {
			return &AdmissionError{
				Code:    CodeSlotUnavailable,
				Message: "another booking for this slot is in flight",
				Details: map[string]any{"slotStartTime": start.Format(time.RFC3339)},
			}
		}
		return err
	})
	if errors.Is(err, locking.ErrLockNotAcquired) {
		// Fingerprint contention: a concurrent attempt for the same
		// patient, service and day is already past the duplicate check.
		return nil, duplicateErr(svc.ID, localDay)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func duplicateErr(serviceID, localDay string) *AdmissionError {
	return &AdmissionError{
		Code:    CodeDuplicateBooking,
		Message: "a booking for this service and patient already exists on this day",
		Details: map[string]any{"serviceId": serviceID, "date": localDay},
	}
}

// Cancel marks an appointment CANCELLED. A cancelled appointment stops
// blocking availability immediately, so its slot is offered again on the
// next computation.
func (s *Service) Cancel(ctx context.Context, clinicSlug, appointmentID string) error {
	ctx, span := s.tracer.Start(ctx, "booking.Cancel",
		trace.WithAttributes(attribute.String("clinic.slug", clinicSlug)))
	defer span.End()

	c, err := s.clinics.GetBySlug(ctx, clinicSlug)
	if err != nil {
		return admissionErr(CodeClinicNotFound, "clinic %q not found", clinicSlug)
	}
	if err := s.appointments.UpdateStatus(ctx, c.ID, appointmentID, appointments.StatusCancelled); err != nil {
		return fmt.Errorf("booking: cancel: %w", err)
	}
	s.logger.WithClinic(c.ID).Info("appointment cancelled", "appointment_id", appointmentID)
	return nil
}

// slotStillOpen re-runs the availability engine under the slot lock and
// checks the requested start is among the offered slots. This is the
// race-closing check: two concurrent requests for the same slot serialize
// on the lock and the loser sees the winner's appointment as busy.
func (s *Service) slotStillOpen(ctx context.Context, c *clinic.Clinic, svc *clinic.Service, rules clinic.BookingRules, start time.Time, localDate string, now time.Time) (bool, error) {
	busy, err := s.busyIntervals(ctx, c, localDate)
	if err != nil {
		return false, err
	}
	offered, err := slots.Compute(slots.Params{
		Date:            localDate,
		Timezone:        c.Timezone,
		DurationMinutes: svc.DurationMinutes,
		StepMinutes:     rules.SlotStepMinutes,
		LeadTimeMinutes: rules.LeadTimeMinutes,
		MaxAdvanceDays:  rules.MaxAdvanceDays,
		Hours:           c.Hours,
		Busy:            busy,
		Now:             now,
	})
	if err != nil {
		return false, fmt.Errorf("booking: slot revalidation: %w", err)
	}
	for _, sl := range offered {
		if sl.Start.Equal(start) {
			return true, nil
		}
	}
	return false, nil
}

// busyIntervals loads the clinic's blocking appointments for the local
// calendar day named by date (YYYY-MM-DD).
func (s *Service) busyIntervals(ctx context.Context, c *clinic.Clinic, date string) ([]slots.Interval, error) {
	loc := c.Location()
	dayStart, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return nil, admissionErr(CodeInvalidRequest, "date must be YYYY-MM-DD")
	}
	dayEnd := dayStart.AddDate(0, 0, 1)

	appts, err := s.appointments.ListBlockingBetween(ctx, c.ID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("booking: load busy intervals: %w", err)
	}
	busy := make([]slots.Interval, 0, len(appts))
	for _, a := range appts {
		busy = append(busy, slots.Interval{Start: a.StartTime, End: a.EndTime})
	}
	return busy, nil
}

func (s *Service) effectiveRules(c *clinic.Clinic) clinic.BookingRules {
	rules := c.Rules
	if rules.LeadTimeMinutes <= 0 {
		rules.LeadTimeMinutes = s.defaults.LeadTimeMinutes
	}
	if rules.MaxAdvanceDays <= 0 {
		rules.MaxAdvanceDays = s.defaults.MaxAdvanceDays
	}
	if rules.SlotStepMinutes <= 0 {
		rules.SlotStepMinutes = s.defaults.SlotStepMinutes
	}
	return rules
}
