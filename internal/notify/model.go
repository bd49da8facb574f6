package notify

import "time"

// Collection name in the shared datastore.
const Collection = "notifications"

// Type classifies what a notification is about.
type Type string

const (
	TypeBookingConfirmation Type = "BOOKING_CONFIRMATION"
	TypeBookingCancellation Type = "BOOKING_CANCELLATION"
	TypeReminder            Type = "REMINDER"
)

// Channel is the delivery transport.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Status of a notification record. FAILED is terminal: a provider error is
// recorded once and never retried automatically.
type Status string

const (
	StatusSent   Status = "SENT"
	StatusFailed Status = "FAILED"
)

// Notification is one admitted outbound message, clinic-scoped like every
// other tenant record.
type Notification struct {
	ID        string    `json:"id"`
	ClinicID  string    `json:"clinic_id"`
	Type      Type      `json:"type"`
	Channel   Channel   `json:"channel"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"body"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
