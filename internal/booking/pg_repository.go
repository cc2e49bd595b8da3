package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const slotColumns = `id, veterinarian_id, start_time, end_time, mode, capacity, booked_count, created_at, updated_at`

const apptColumns = `id, pet_id, owner_id, veterinarian_id, slot_id, appointment_date, type, status,
	reason, notes, prescription, cancellation_reason, meeting_link, idempotency_key, created_at, updated_at`

// Helpers

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot

	err := row.Scan(
		&s.ID,
		&s.VeterinarianID,
		&s.StartTime,
		&s.EndTime,
		&s.Mode,
		&s.Capacity,
		&s.BookedCount,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PetID,
		&a.OwnerID,
		&a.VeterinarianID,
		&a.SlotID,
		&a.AppointmentDate,
		&a.Type,
		&a.Status,
		&a.Reason,
		&a.Notes,
		&a.Prescription,
		&a.CancellationReason,
		&a.MeetingLink,
		&a.IdempotencyKey,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func collectSlots(rows pgx.Rows) ([]Slot, error) {
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Slots

func (r *PgRepository) CreateSlot(ctx context.Context, slot *Slot) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO slots (id, veterinarian_id, start_time, end_time, mode, capacity, booked_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, now(), now())
		RETURNING `+slotColumns+`
	`, slot.ID, slot.VeterinarianID, slot.StartTime, slot.EndTime, slot.Mode, slot.Capacity)

	created, err := scanSlot(row)
	if err != nil {
		return fmt.Errorf("insert slot: %w", err)
	}

	*slot = *created
	return nil
}

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) ListSlotsByVet(ctx context.Context, vetID uuid.UUID, from, to time.Time) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE veterinarian_id = $1
		  AND ($2::timestamptz IS NULL OR end_time > $2)
		  AND ($3::timestamptz IS NULL OR start_time < $3)
		ORDER BY start_time ASC
	`, vetID, nullableTime(from), nullableTime(to))
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

func (r *PgRepository) ListAvailableSlots(ctx context.Context, vetIDs []uuid.UUID, from, to time.Time) ([]Slot, error) {
	if len(vetIDs) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE veterinarian_id = ANY($1)
		  AND booked_count < capacity
		  AND start_time > $2
		  AND ($3::timestamptz IS NULL OR start_time < $3)
		ORDER BY start_time ASC
	`, vetIDs, from, nullableTime(to))
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

func (r *PgRepository) DeleteEmptySlot(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM slots
		WHERE id = $1
		  AND booked_count = 0
	`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM slots WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check slot existence: %w", err)
		}
		if !exists {
			return ErrSlotNotFound
		}
		return ErrSlotHasBookings
	}
	return nil
}

// Appointments

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentByIdempotencyKey(ctx context.Context, ownerID uuid.UUID, key string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE owner_id = $1
		  AND idempotency_key = $2
	`, ownerID, key)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointmentsByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE owner_id = $1
		ORDER BY appointment_date DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListAppointmentsByVet(ctx context.Context, vetID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE veterinarian_id = $1
		ORDER BY appointment_date DESC
		LIMIT $2 OFFSET $3
	`, vetID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// CreateSlotAppointment runs the conditional capacity increment and the
// appointment insert inside one transaction. The WHERE booked_count < capacity
// guard is what makes overselling impossible regardless of how many requests
// race on the slot.
func (r *PgRepository) CreateSlotAppointment(ctx context.Context, appt *Appointment) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin booking tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE slots
		SET booked_count = booked_count + 1,
		    updated_at = now()
		WHERE id = $1
		  AND booked_count < capacity
	`, *appt.SlotID)
	if err != nil {
		return nil, fmt.Errorf("reserve slot capacity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM slots WHERE id = $1)`, *appt.SlotID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check slot existence: %w", err)
		}
		if !exists {
			return nil, ErrSlotNotFound
		}
		return nil, ErrSlotFull
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, pet_id, owner_id, veterinarian_id, slot_id, appointment_date, type, status,
			reason, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8, $9, now(), now())
		RETURNING `+apptColumns+`
	`, appt.ID, appt.PetID, appt.OwnerID, appt.VeterinarianID, *appt.SlotID, appt.AppointmentDate, appt.Type,
		appt.Reason, appt.IdempotencyKey)

	created, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit booking tx: %w", err)
	}

	return created, nil
}

func (r *PgRepository) CreateUnslottedAppointment(ctx context.Context, appt *Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, pet_id, owner_id, veterinarian_id, slot_id, appointment_date, type, status,
			reason, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULL, $5, $6, 'pending', $7, $8, now(), now())
		RETURNING `+apptColumns+`
	`, appt.ID, appt.PetID, appt.OwnerID, appt.VeterinarianID, appt.AppointmentDate, appt.Type,
		appt.Reason, appt.IdempotencyKey)

	return scanAppointment(row)
}

// UpdateAppointmentStatus performs the status compare-and-swap and, when
// requested, the capacity release on the bound slot in the same transaction.
func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, w StatusWrite) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin status tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    notes = COALESCE($4, notes),
		    prescription = COALESCE($5, prescription),
		    cancellation_reason = COALESCE($6, cancellation_reason),
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+apptColumns+`
	`, id, to, from, w.Notes, w.Prescription, w.CancellationReason)

	updated, err := scanAppointment(row)
	if err != nil {
		return nil, err
	}

	if w.ReleaseSlot && updated.SlotID != nil {
		_, err := tx.Exec(ctx, `
			UPDATE slots
			SET booked_count = booked_count - 1,
			    updated_at = now()
			WHERE id = $1
			  AND booked_count > 0
		`, *updated.SlotID)
		if err != nil {
			return nil, fmt.Errorf("release slot capacity: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit status tx: %w", err)
	}

	return updated, nil
}

func (r *PgRepository) SetMeetingLink(ctx context.Context, id uuid.UUID, link string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET meeting_link = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'confirmed'
		RETURNING `+apptColumns+`
	`, id, link)

	return scanAppointment(row)
}

// Events

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}
