package booking

import (
	"errors"
	"fmt"
)

// Code identifies why an admission was refused. The set is closed so the
// UI can render a precise message per code.
type Code string

const (
	CodeClinicNotFound   Code = "CLINIC_NOT_FOUND"
	CodeServiceNotFound  Code = "SERVICE_NOT_FOUND"
	CodeInvalidSlotStart Code = "INVALID_SLOT_START"
	CodeBookingInPast    Code = "BOOKING_IN_PAST"
	CodeLeadTime         Code = "BOOKING_LEAD_TIME_VIOLATION"
	CodeAdvanceLimit     Code = "BOOKING_ADVANCE_LIMIT_VIOLATION"
	CodeDuplicateBooking Code = "DUPLICATE_BOOKING"
	CodeSlotUnavailable  Code = "SLOT_UNAVAILABLE"
	CodeInvalidRequest   Code = "INVALID_REQUEST"
)

// AdmissionError is a structured business-rule or validation failure. The
// ledger entry for the request has already been released when one of these
// is returned, so the same key may be retried with corrected input.
type AdmissionError struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("booking: %s: %s", e.Code, e.Message)
}

func admissionErr(code Code, format string, args ...any) *AdmissionError {
	return &AdmissionError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrRequestInProgress signals that the first attempt with this
// idempotency key is still running. Callers treat it as a transient
// conflict, not a failure to display.
var ErrRequestInProgress = errors.New("booking request already in progress")
