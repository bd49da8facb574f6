package appointments

import "errors"

// ErrAppointmentNotFound is returned when a status update matches no row
// inside the caller's clinic.
var ErrAppointmentNotFound = errors.New("appointment not found")

// ErrDuplicateSameDay is returned when an insert collides with the
// store's unique same-day fingerprint (clinic, service, patient email,
// local day).
var ErrDuplicateSameDay = errors.New("appointment duplicates a same-day booking")
