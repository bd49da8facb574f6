package slots

import "errors"

var (
	// ErrInvalidDate is returned when the date is not a real YYYY-MM-DD date.
	ErrInvalidDate = errors.New("date must be YYYY-MM-DD")

	// ErrInvalidDuration is returned for a non-positive service duration.
	ErrInvalidDuration = errors.New("duration must be a positive number of minutes")

	// ErrInvalidStep is returned for a non-positive slot step.
	ErrInvalidStep = errors.New("slot step must be a positive number of minutes")

	// ErrInvalidTimezone is returned when the IANA zone cannot be loaded.
	ErrInvalidTimezone = errors.New("unknown timezone")

	// ErrInvalidClock is returned for a malformed HH:MM operating-hours value.
	ErrInvalidClock = errors.New("invalid clock time")
)
