package booking

// PatientInfo is the patient portion of a public booking request.
type PatientInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// Request is the public booking request body. The idempotency key travels
// in the Idempotency-Key header and is not part of the payload.
type Request struct {
	ClinicSlug    string      `json:"clinicSlug"`
	ServiceID     string      `json:"serviceId"`
	SlotStartTime string      `json:"slotStartTime"` // RFC 3339 instant
	Patient       PatientInfo `json:"patient"`
	Notes         string      `json:"notes,omitempty"`
}

// Response is the public booking response body. Replayed marks a response
// served from the idempotency ledger instead of a fresh admission.
type Response struct {
	BookingID      string `json:"bookingId"`
	AppointmentID  string `json:"appointmentId"`
	PatientID      string `json:"patientId"`
	ClinicSlug     string `json:"clinicSlug"`
	ServiceID      string `json:"serviceId"`
	SlotStartTime  string `json:"slotStartTime"`
	SlotEndTime    string `json:"slotEndTime"`
	Status         string `json:"status"`
	IdempotencyKey string `json:"idempotencyKey"`
	Replayed       bool   `json:"replayed"`
}
