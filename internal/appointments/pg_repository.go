package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgxpool used here; mocks implement it in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgRepository persists appointments in Postgres. Tenant scoping is
// structural: clinic_id is a required argument of every query.
type PgRepository struct {
	pool Querier
}

// NewPgRepository creates a repository backed by a pgx pool.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PgRepository{pool: pool}
}

// NewPgRepositoryWithQuerier allows injecting mocks for tests.
func NewPgRepositoryWithQuerier(q Querier) *PgRepository {
	if q == nil {
		panic("appointments: querier required")
	}
	return &PgRepository{pool: q}
}

// Create inserts the appointment row under clinicID.
func (r *PgRepository) Create(ctx context.Context, clinicID string, appt Appointment) (*Appointment, error) {
	if appt.ID == "" {
		appt.ID = uuid.New().String()
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now().UTC()
	}
	appt.ClinicID = clinicID

	query := `
		INSERT INTO appointments (
			id, clinic_id, service_id, patient_id, staff_id,
			patient_email, start_time, end_time, local_day, status, notes, created_at
		)
		VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,$7,$8,$9,$10,$11,$12)
	`
	_, err := r.pool.Exec(ctx, query,
		appt.ID, clinicID, appt.ServiceID, appt.PatientID, appt.StaffID,
		appt.PatientEmail, appt.StartTime, appt.EndTime, appt.LocalDay,
		string(appt.Status), appt.Notes, appt.CreatedAt,
	)
	if err != nil {
		// The partial unique fingerprint index rejects a second active
		// same-day booking; surface it as the domain error.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("appointments: insert: %w", ErrDuplicateSameDay)
		}
		return nil, fmt.Errorf("appointments: insert: %w", err)
	}
	return &appt, nil
}

// ListBlockingBetween returns the clinic's blocking appointments whose
// interval intersects [from, to).
func (r *PgRepository) ListBlockingBetween(ctx context.Context, clinicID string, from, to time.Time) ([]Appointment, error) {
	query := `
		SELECT id, clinic_id, service_id, patient_id, COALESCE(staff_id, ''),
			patient_email, start_time, end_time, local_day, status, notes, created_at
		FROM appointments
		WHERE clinic_id = $1
		  AND start_time < $3
		  AND end_time > $2
		  AND status NOT IN ('CANCELLED', 'NO_SHOW')
		ORDER BY start_time
	`
	rows, err := r.pool.Query(ctx, query, clinicID, from, to)
	if err != nil {
		return nil, fmt.Errorf("appointments: list blocking: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var appt Appointment
		var status string
		if err := rows.Scan(
			&appt.ID, &appt.ClinicID, &appt.ServiceID, &appt.PatientID, &appt.StaffID,
			&appt.PatientEmail, &appt.StartTime, &appt.EndTime, &appt.LocalDay,
			&status, &appt.Notes, &appt.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		appt.Status = Status(status)
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: rows: %w", err)
	}
	return out, nil
}

// HasSameDayBooking checks the duplicate fingerprint inside the clinic's
// local calendar day [dayStart, dayEnd).
func (r *PgRepository) HasSameDayBooking(ctx context.Context, clinicID, serviceID, patientEmail string, dayStart, dayEnd time.Time) (bool, error) {
	query := `
		SELECT 1
		FROM appointments
		WHERE clinic_id = $1
		  AND service_id = $2
		  AND patient_email = $3
		  AND start_time >= $4
		  AND start_time < $5
		  AND status NOT IN ('CANCELLED', 'NO_SHOW')
		LIMIT 1
	`
	var one int
	err := r.pool.QueryRow(ctx, query, clinicID, serviceID, patientEmail, dayStart, dayEnd).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("appointments: duplicate check: %w", err)
	}
	return true, nil
}

// UpdateStatus updates one appointment, clinic-qualified.
func (r *PgRepository) UpdateStatus(ctx context.Context, clinicID, appointmentID string, status Status) error {
	query := `UPDATE appointments SET status = $3 WHERE clinic_id = $1 AND id = $2`
	ct, err := r.pool.Exec(ctx, query, clinicID, appointmentID, string(status))
	if err != nil {
		return fmt.Errorf("appointments: update status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

var _ Repository = (*PgRepository)(nil)
