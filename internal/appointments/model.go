package appointments

import "time"

// Status of an appointment.
type Status string

const (
	StatusScheduled  Status = "SCHEDULED"
	StatusCheckedIn  Status = "CHECKED_IN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusNoShow     Status = "NO_SHOW"
	StatusCancelled  Status = "CANCELLED"
)

// Blocks reports whether an appointment in this status occupies its time
// interval. CANCELLED and NO_SHOW free the slot; everything else blocks.
func (s Status) Blocks() bool {
	return s != StatusCancelled && s != StatusNoShow
}

// Appointment is one booked visit. StartTime/EndTime are UTC instants.
// PatientEmail is stored normalized (lowercased, trimmed) because the
// duplicate-booking fingerprint keys on it.
type Appointment struct {
	ID           string    `json:"id"`
	ClinicID     string    `json:"clinic_id"`
	ServiceID    string    `json:"service_id"`
	PatientID    string    `json:"patient_id"`
	StaffID      string    `json:"staff_id,omitempty"`
	PatientEmail string    `json:"patient_email"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	// LocalDay is StartTime's clinic-local calendar day (YYYY-MM-DD); it
	// backs the store's same-day duplicate fingerprint.
	LocalDay  string    `json:"local_day"`
	Status    Status    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
