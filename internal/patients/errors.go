package patients

import "errors"

// ErrEmailRequired is returned when an upsert has no usable email.
var ErrEmailRequired = errors.New("patient email is required")
