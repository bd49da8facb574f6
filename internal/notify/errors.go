package notify

import (
	"errors"
	"fmt"
)

// ErrDailyCapReached signals that the recipient already received the
// maximum number of notifications of this type and channel today.
var ErrDailyCapReached = errors.New("DAILY_NOTIFICATION_CAP_REACHED")

// ErrInvalidRecipient signals an empty or unusable recipient address.
var ErrInvalidRecipient = errors.New("notify: recipient required")

// CapError carries the cap details alongside ErrDailyCapReached.
type CapError struct {
	Cap     int
	Count   int
	ResetAt string // clinic-local date the cap applies to
}

func (e *CapError) Error() string {
	return fmt.Sprintf("notify: daily cap of %d reached (%d sent)", e.Cap, e.Count)
}

func (e *CapError) Unwrap() error { return ErrDailyCapReached }
