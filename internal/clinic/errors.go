package clinic

import "errors"

var (
	// ErrClinicNotFound is returned when no clinic matches the slug or id.
	ErrClinicNotFound = errors.New("clinic not found")

	// ErrServiceNotFound is returned when the service does not exist or
	// belongs to another clinic.
	ErrServiceNotFound = errors.New("service not found")

	// ErrDuplicateSlug is returned when registering a clinic with a slug
	// already in use.
	ErrDuplicateSlug = errors.New("clinic slug already registered")
)
