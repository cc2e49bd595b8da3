package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StatusWrite carries the field updates that must land in the same atomic unit
// as a status transition. ReleaseSlot pairs the status write with a
// booked_count decrement on the appointment's slot.
type StatusWrite struct {
	Notes              *string
	Prescription       *string
	CancellationReason *string
	ReleaseSlot        bool
}

// Repository contains all DB interactions needed by the services.
type Repository interface {
	CreateSlot(ctx context.Context, slot *Slot) error
	GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	// ListSlotsByVet returns the vet's slots overlapping [from, to), ordered
	// by start time ascending. Zero times mean an open bound.
	ListSlotsByVet(ctx context.Context, vetID uuid.UUID, from, to time.Time) ([]Slot, error)
	// ListAvailableSlots returns slots for the given vets starting after
	// `from` (and before `to` unless zero) with at least one free spot,
	// ordered by start time ascending.
	ListAvailableSlots(ctx context.Context, vetIDs []uuid.UUID, from, to time.Time) ([]Slot, error)
	// DeleteEmptySlot removes the slot only if booked_count is zero,
	// returning ErrSlotHasBookings otherwise.
	DeleteEmptySlot(ctx context.Context, id uuid.UUID) error

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentByIdempotencyKey(ctx context.Context, ownerID uuid.UUID, key string) (*Appointment, error)
	ListAppointmentsByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Appointment, error)
	ListAppointmentsByVet(ctx context.Context, vetID uuid.UUID, limit, offset int) ([]Appointment, error)

	// CreateSlotAppointment increments the slot's booked_count and inserts the
	// appointment as one atomic unit. Returns ErrSlotFull when the conditional
	// increment finds no free spot.
	CreateSlotAppointment(ctx context.Context, appt *Appointment) (*Appointment, error)
	// CreateUnslottedAppointment inserts a fallback appointment with no slot
	// binding and no capacity accounting.
	CreateUnslottedAppointment(ctx context.Context, appt *Appointment) (*Appointment, error)
	// UpdateAppointmentStatus performs a compare-and-swap on status (only when
	// the current status equals `from`) together with the writes in `w`.
	// Returns ErrAppointmentNotFound when the CAS matches no row.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, w StatusWrite) (*Appointment, error)
	// SetMeetingLink attaches a meeting link to a confirmed appointment.
	SetMeetingLink(ctx context.Context, id uuid.UUID, link string) (*Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}

// PetDirectory is the out-of-scope pet service, consumed for ownership checks.
type PetDirectory interface {
	GetPet(ctx context.Context, id uuid.UUID) (*Pet, error)
}

type VetFilter struct {
	Specialization  *string
	Location        *string
	TeleconsultOnly bool
}

// VetDirectory is the out-of-scope veterinarian service, consumed by search
// filters and slot ownership resolution.
type VetDirectory interface {
	GetVeterinarian(ctx context.Context, id uuid.UUID) (*Veterinarian, error)
	ListVeterinarians(ctx context.Context, f VetFilter) ([]Veterinarian, error)
}
