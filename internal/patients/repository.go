package patients

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/booking-platform/internal/datastore"
	"github.com/clinicops/booking-platform/internal/tenancy"
)

// Collection name in the shared datastore.
const Collection = "patients"

// Patient is a clinic-scoped patient record. Email is stored normalized
// so it can serve as the natural key for upserts and duplicate detection.
type Patient struct {
	ID        string    `json:"id"`
	ClinicID  string    `json:"clinic_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeEmail lowercases and trims an email for comparison and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Repository stores patients through the tenant scoping guard.
type Repository struct {
	guard *tenancy.Guard
}

// NewRepository creates the guard-backed patient repository.
func NewRepository(guard *tenancy.Guard) *Repository {
	if guard == nil {
		panic("patients: tenancy guard required")
	}
	return &Repository{guard: guard}
}

// UpsertByEmail returns the clinic's patient with the given email,
// creating the record on first contact. Contact fields are refreshed on
// every booking so the clinic sees the latest phone number.
func (r *Repository) UpsertByEmail(ctx context.Context, clinicID string, p Patient) (*Patient, error) {
	email := NormalizeEmail(p.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	recs, err := r.guard.FindMany(clinicID, Collection, datastore.Filter{"email": email})
	if err != nil {
		return nil, fmt.Errorf("patients: lookup: %w", err)
	}
	if len(recs) > 0 {
		existing := recordToPatient(recs[0])
		if _, err := r.guard.UpdateMany(clinicID, Collection,
			datastore.Filter{"email": email},
			datastore.Record{"first_name": p.FirstName, "last_name": p.LastName, "phone": p.Phone},
		); err != nil {
			return nil, fmt.Errorf("patients: refresh: %w", err)
		}
		existing.FirstName = p.FirstName
		existing.LastName = p.LastName
		existing.Phone = p.Phone
		return &existing, nil
	}

	rec, err := r.guard.Create(clinicID, Collection, datastore.Record{
		"id":         uuid.New().String(),
		"first_name": p.FirstName,
		"last_name":  p.LastName,
		"email":      email,
		"phone":      p.Phone,
		"created_at": time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("patients: create: %w", err)
	}
	created := recordToPatient(rec)
	return &created, nil
}

// ListForClinic returns all of the clinic's patients.
func (r *Repository) ListForClinic(ctx context.Context, clinicID string) ([]Patient, error) {
	recs, err := r.guard.FindMany(clinicID, Collection, nil)
	if err != nil {
		return nil, fmt.Errorf("patients: list: %w", err)
	}
	out := make([]Patient, 0, len(recs))
	for _, rec := range recs {
		out = append(out, recordToPatient(rec))
	}
	return out, nil
}

func recordToPatient(rec datastore.Record) Patient {
	p := Patient{
		ID:        str(rec["id"]),
		ClinicID:  str(rec["clinic_id"]),
		FirstName: str(rec["first_name"]),
		LastName:  str(rec["last_name"]),
		Email:     str(rec["email"]),
		Phone:     str(rec["phone"]),
	}
	if t, ok := rec["created_at"].(time.Time); ok {
		p.CreatedAt = t
	}
	return p
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
