package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/booking-platform/internal/datastore"
	"github.com/clinicops/booking-platform/internal/tenancy"
)

// Store records every admitted notification through the tenant scoping
// guard. It is the audit trail, not the cap counter.
type Store struct {
	guard *tenancy.Guard
}

// NewStore creates the guard-backed notification store.
func NewStore(guard *tenancy.Guard) *Store {
	if guard == nil {
		panic("notify: tenancy guard required")
	}
	return &Store{guard: guard}
}

// Record persists one notification under its clinic.
func (s *Store) Record(ctx context.Context, n Notification) (*Notification, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	rec, err := s.guard.Create(n.ClinicID, Collection, datastore.Record{
		"id":         n.ID,
		"type":       string(n.Type),
		"channel":    string(n.Channel),
		"recipient":  n.Recipient,
		"subject":    n.Subject,
		"body":       n.Body,
		"status":     string(n.Status),
		"error":      n.Error,
		"created_at": n.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("notify: record: %w", err)
	}
	out := recordToNotification(rec)
	return &out, nil
}

// ListForRecipient returns the clinic's notifications of one type and
// channel to one recipient, for audits and tests.
func (s *Store) ListForRecipient(ctx context.Context, clinicID string, typ Type, channel Channel, recipient string) ([]Notification, error) {
	recs, err := s.guard.FindMany(clinicID, Collection, datastore.Filter{
		"type":      string(typ),
		"channel":   string(channel),
		"recipient": recipient,
	})
	if err != nil {
		return nil, fmt.Errorf("notify: list: %w", err)
	}
	out := make([]Notification, 0, len(recs))
	for _, rec := range recs {
		out = append(out, recordToNotification(rec))
	}
	return out, nil
}

func recordToNotification(rec datastore.Record) Notification {
	n := Notification{
		ID:        str(rec["id"]),
		ClinicID:  str(rec["clinic_id"]),
		Type:      Type(str(rec["type"])),
		Channel:   Channel(str(rec["channel"])),
		Recipient: str(rec["recipient"]),
		Subject:   str(rec["subject"]),
		Body:      str(rec["body"]),
		Status:    Status(str(rec["status"])),
		Error:     str(rec["error"]),
	}
	if t, ok := rec["created_at"].(time.Time); ok {
		n.CreatedAt = t
	}
	return n
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
