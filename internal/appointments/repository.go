package appointments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/booking-platform/internal/datastore"
	"github.com/clinicops/booking-platform/internal/tenancy"
)

// Collection name in the shared datastore.
const Collection = "appointments"

// Repository is the persistence boundary for appointments. Every method
// requires a clinic id, so an unscoped call is a compile error rather than
// a runtime leak.
type Repository interface {
	Create(ctx context.Context, clinicID string, appt Appointment) (*Appointment, error)
	ListBlockingBetween(ctx context.Context, clinicID string, from, to time.Time) ([]Appointment, error)
	HasSameDayBooking(ctx context.Context, clinicID, serviceID, patientEmail string, dayStart, dayEnd time.Time) (bool, error)
	UpdateStatus(ctx context.Context, clinicID, appointmentID string, status Status) error
}

// GuardRepository stores appointments through the tenant scoping guard, so
// even this package cannot issue an unscoped read or write.
type GuardRepository struct {
	guard *tenancy.Guard
}

// NewGuardRepository creates the in-memory, guard-backed repository.
func NewGuardRepository(guard *tenancy.Guard) *GuardRepository {
	if guard == nil {
		panic("appointments: tenancy guard required")
	}
	return &GuardRepository{guard: guard}
}

// Create persists the appointment under clinicID.
func (r *GuardRepository) Create(ctx context.Context, clinicID string, appt Appointment) (*Appointment, error) {
	if appt.ID == "" {
		appt.ID = uuid.New().String()
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now().UTC()
	}

	rec, err := r.guard.Create(clinicID, Collection, datastore.Record{
		"id":            appt.ID,
		"service_id":    appt.ServiceID,
		"patient_id":    appt.PatientID,
		"staff_id":      appt.StaffID,
		"patient_email": appt.PatientEmail,
		"start_time":    appt.StartTime,
		"end_time":      appt.EndTime,
		"local_day":     appt.LocalDay,
		"status":        string(appt.Status),
		"notes":         appt.Notes,
		"created_at":    appt.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("appointments: create: %w", err)
	}
	out := recordToAppointment(rec)
	return &out, nil
}

// ListBlockingBetween returns the clinic's appointments whose [start, end)
// interval intersects [from, to) and whose status blocks availability.
func (r *GuardRepository) ListBlockingBetween(ctx context.Context, clinicID string, from, to time.Time) ([]Appointment, error) {
	recs, err := r.guard.FindMany(clinicID, Collection, nil)
	if err != nil {
		return nil, fmt.Errorf("appointments: list blocking: %w", err)
	}

	var out []Appointment
	for _, rec := range recs {
		appt := recordToAppointment(rec)
		if !appt.Status.Blocks() {
			continue
		}
		if appt.StartTime.Before(to) && from.Before(appt.EndTime) {
			out = append(out, appt)
		}
	}
	return out, nil
}

// HasSameDayBooking reports whether a non-cancelled booking already exists
// for the service + patient email inside [dayStart, dayEnd), the clinic's
// local calendar day.
func (r *GuardRepository) HasSameDayBooking(ctx context.Context, clinicID, serviceID, patientEmail string, dayStart, dayEnd time.Time) (bool, error) {
	recs, err := r.guard.FindMany(clinicID, Collection, datastore.Filter{
		"service_id":    serviceID,
		"patient_email": patientEmail,
	})
	if err != nil {
		return false, fmt.Errorf("appointments: duplicate check: %w", err)
	}

	for _, rec := range recs {
		appt := recordToAppointment(rec)
		if !appt.Status.Blocks() {
			continue
		}
		if !appt.StartTime.Before(dayStart) && appt.StartTime.Before(dayEnd) {
			return true, nil
		}
	}
	return false, nil
}

// UpdateStatus changes one appointment's status through the clinic-filtered
// bulk verb; the guard forbids point updates by global id.
func (r *GuardRepository) UpdateStatus(ctx context.Context, clinicID, appointmentID string, status Status) error {
	n, err := r.guard.UpdateMany(clinicID, Collection,
		datastore.Filter{"id": appointmentID},
		datastore.Record{"status": string(status)})
	if err != nil {
		return fmt.Errorf("appointments: update status: %w", err)
	}
	if n == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func recordToAppointment(rec datastore.Record) Appointment {
	appt := Appointment{
		ID:           str(rec["id"]),
		ClinicID:     str(rec["clinic_id"]),
		ServiceID:    str(rec["service_id"]),
		PatientID:    str(rec["patient_id"]),
		StaffID:      str(rec["staff_id"]),
		PatientEmail: str(rec["patient_email"]),
		LocalDay:     str(rec["local_day"]),
		Status:       Status(str(rec["status"])),
		Notes:        str(rec["notes"]),
	}
	if t, ok := rec["start_time"].(time.Time); ok {
		appt.StartTime = t
	}
	if t, ok := rec["end_time"].(time.Time); ok {
		appt.EndTime = t
	}
	if t, ok := rec["created_at"].(time.Time); ok {
		appt.CreatedAt = t
	}
	return appt
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

var _ Repository = (*GuardRepository)(nil)
