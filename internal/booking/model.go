package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SlotMode string

const (
	ModeTeleconsult SlotMode = "teleconsult"
	ModeInClinic    SlotMode = "in_clinic"
	ModeBoth        SlotMode = "both"
)

func (m SlotMode) Valid() bool {
	switch m {
	case ModeTeleconsult, ModeInClinic, ModeBoth:
		return true
	}
	return false
}

// Accepts reports whether a slot published with this mode can host an
// appointment of the given consultation type.
func (m SlotMode) Accepts(t AppointmentType) bool {
	switch m {
	case ModeBoth:
		return true
	case ModeTeleconsult:
		return t == TypeTeleconsult
	case ModeInClinic:
		return t == TypeInClinic
	}
	return false
}

type AppointmentType string

const (
	TypeTeleconsult AppointmentType = "teleconsult"
	TypeInClinic    AppointmentType = "in_clinic"
)

func (t AppointmentType) Valid() bool {
	return t == TypeTeleconsult || t == TypeInClinic
}

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

// Terminal statuses admit no further transitions; a terminal appointment is
// immutable.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

type Role string

const (
	RoleOwner Role = "owner"
	RoleVet   Role = "vet"
	RoleAdmin Role = "admin"
)

// Actor is the acting principal resolved by the identity layer.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// Slot is a vet-published, time-boxed, capacity-limited offer of availability.
// BookedCount counts the slot's non-terminal appointments and never exceeds
// Capacity.
type Slot struct {
	ID             uuid.UUID
	VeterinarianID uuid.UUID
	StartTime      time.Time
	EndTime        time.Time
	Mode           SlotMode
	Capacity       int
	BookedCount    int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (s *Slot) AvailableSpots() int {
	return s.Capacity - s.BookedCount
}

// Appointment binds a pet, owner, and vet to a consultation. SlotID is nil for
// the fallback path where the owner supplies a date without picking a slot; no
// capacity accounting applies there.
type Appointment struct {
	ID                 uuid.UUID
	PetID              uuid.UUID
	OwnerID            uuid.UUID
	VeterinarianID     uuid.UUID
	SlotID             *uuid.UUID
	AppointmentDate    time.Time
	Type               AppointmentType
	Status             AppointmentStatus
	Reason             *string
	Notes              *string
	Prescription       *string
	CancellationReason *string
	MeetingLink        *string
	IdempotencyKey     *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Pet is the external pet-directory read model.
type Pet struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
	Name    string
	Species string
}

// Veterinarian is the external vet-directory read model.
type Veterinarian struct {
	ID                   uuid.UUID
	Name                 string
	Specialization       *string
	ClinicAddress        *string
	TeleconsultAvailable bool
	ConsultationFee      decimal.Decimal
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
