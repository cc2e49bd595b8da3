package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	redisclient "github.com/pawlink/vet-scheduling/internal/redis"
)

const (
	EventAppointmentBooked = "APPOINTMENT_BOOKED"

	reasonMinLen = 5
	reasonMaxLen = 500
)

// BookingRequest is a booking attempt from an owner. SlotID nil takes the
// fallback path: the appointment is created for AppointmentDate with no
// capacity accounting. IdempotencyKey, when supplied, dedupes network retries.
type BookingRequest struct {
	PetID           uuid.UUID
	VeterinarianID  uuid.UUID
	SlotID          *uuid.UUID
	Type            AppointmentType
	Reason          *string
	AppointmentDate *time.Time
	IdempotencyKey  *string
}

// Engine validates and commits booking requests. It is the sole writer of slot
// capacity on the reserve side; releases go through the Lifecycle.
type Engine struct {
	repo      Repository
	pets      PetDirectory
	vets      VetDirectory
	locker    redisclient.Locker
	lifecycle *Lifecycle
	log       *zap.Logger
	now       func() time.Time
}

func NewEngine(repo Repository, pets PetDirectory, vets VetDirectory, locker redisclient.Locker, lifecycle *Lifecycle, log *zap.Logger) *Engine {
	return &Engine{
		repo:      repo,
		pets:      pets,
		vets:      vets,
		locker:    locker,
		lifecycle: lifecycle,
		log:       log,
		now:       time.Now,
	}
}

// BookAppointment runs the ordered validation chain and then commits the
// capacity increment and the PENDING appointment as one atomic unit. Under
// contention the conditional increment inside the repository is the final
// arbiter; the availability pre-check here only produces a friendlier early
// failure.
func (e *Engine) BookAppointment(ctx context.Context, actor Actor, req BookingRequest) (*Appointment, error) {
	if !req.Type.Valid() {
		return nil, ErrInvalidType
	}

	pet, err := e.pets.GetPet(ctx, req.PetID)
	if err != nil {
		return nil, err
	}
	if pet.OwnerID != actor.ID {
		return nil, ErrForbidden
	}

	if _, err := e.vets.GetVeterinarian(ctx, req.VeterinarianID); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != nil && *req.IdempotencyKey != "" {
		existing, err := e.repo.GetAppointmentByIdempotencyKey(ctx, actor.ID, *req.IdempotencyKey)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, ErrAppointmentNotFound) {
			return nil, fmt.Errorf("idempotency lookup: %w", err)
		}
	}

	if req.SlotID == nil {
		return e.bookWithoutSlot(ctx, actor, req)
	}

	slot, err := e.repo.GetSlotByID(ctx, *req.SlotID)
	if err != nil {
		return nil, err
	}
	if slot.VeterinarianID != req.VeterinarianID {
		return nil, ErrSlotVetMismatch
	}
	if !slot.StartTime.After(e.now()) {
		return nil, ErrSlotInPast
	}
	if !slot.Mode.Accepts(req.Type) {
		return nil, ErrModeMismatch
	}
	if slot.AvailableSpots() <= 0 {
		return nil, ErrSlotFull
	}
	if err := validateReason(req.Reason); err != nil {
		return nil, err
	}

	var created *Appointment

	err = e.locker.WithSlotLock(ctx, slot.ID, func(lockCtx context.Context) error {
		appt := &Appointment{
			ID:              uuid.New(),
			PetID:           req.PetID,
			OwnerID:         actor.ID,
			VeterinarianID:  req.VeterinarianID,
			SlotID:          &slot.ID,
			AppointmentDate: slot.StartTime,
			Type:            req.Type,
			Status:          StatusPending,
			Reason:          req.Reason,
			IdempotencyKey:  req.IdempotencyKey,
		}

		created, err = e.repo.CreateSlotAppointment(lockCtx, appt)
		if err != nil {
			return err
		}

		e.logEvent(lockCtx, created.ID, EventAppointmentBooked, map[string]any{
			"slot_id": slot.ID.String(),
			"pet_id":  req.PetID.String(),
			"type":    string(req.Type),
		})

		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBusy
		}
		return nil, err
	}

	e.log.Info("appointment booked",
		zap.String("appointment_id", created.ID.String()),
		zap.String("slot_id", slot.ID.String()),
		zap.String("owner_id", actor.ID.String()),
	)

	return created, nil
}

// bookWithoutSlot handles the deliberate fallback path: no slot binding, no
// capacity accounting, caller-supplied date.
func (e *Engine) bookWithoutSlot(ctx context.Context, actor Actor, req BookingRequest) (*Appointment, error) {
	if req.AppointmentDate == nil {
		return nil, ErrMissingDate
	}
	if !req.AppointmentDate.After(e.now()) {
		return nil, ErrDateInPast
	}
	if err := validateReason(req.Reason); err != nil {
		return nil, err
	}

	appt := &Appointment{
		ID:              uuid.New(),
		PetID:           req.PetID,
		OwnerID:         actor.ID,
		VeterinarianID:  req.VeterinarianID,
		AppointmentDate: *req.AppointmentDate,
		Type:            req.Type,
		Status:          StatusPending,
		Reason:          req.Reason,
		IdempotencyKey:  req.IdempotencyKey,
	}

	created, err := e.repo.CreateUnslottedAppointment(ctx, appt)
	if err != nil {
		return nil, fmt.Errorf("create unslotted appointment: %w", err)
	}

	e.logEvent(ctx, created.ID, EventAppointmentBooked, map[string]any{
		"pet_id": req.PetID.String(),
		"type":   string(req.Type),
		"slot":   "none",
	})

	e.log.Info("appointment booked without slot",
		zap.String("appointment_id", created.ID.String()),
		zap.String("owner_id", actor.ID.String()),
	)

	return created, nil
}

// CancelAppointment transitions the appointment to CANCELLED through the
// lifecycle, releasing slot capacity when slot-bound.
func (e *Engine) CancelAppointment(ctx context.Context, actor Actor, appointmentID uuid.UUID) (*Appointment, error) {
	return e.lifecycle.UpdateStatus(ctx, actor, appointmentID, StatusCancelled, StatusChange{})
}

func validateReason(reason *string) error {
	if reason == nil {
		return nil
	}
	if n := len([]rune(*reason)); n < reasonMinLen || n > reasonMaxLen {
		return ErrInvalidReason
	}
	return nil
}

func (e *Engine) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		e.log.Warn("marshal event payload", zap.String("event", eventType), zap.Error(err))
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     e.now(),
	}

	if err := e.repo.InsertEvent(ctx, ev); err != nil {
		e.log.Warn("insert event log",
			zap.String("event", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err),
		)
	}
}
