package booking

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	redisclient "github.com/pawlink/vet-scheduling/internal/redis"
)

const (
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentNoShow    = "APPOINTMENT_NO_SHOW"
)

// transitions is the full state machine. Absent targets are invalid; terminal
// states have no entry at all.
var transitions = map[AppointmentStatus]map[AppointmentStatus]bool{
	StatusPending: {
		StatusConfirmed: true,
		StatusCancelled: true,
	},
	StatusConfirmed: {
		StatusCompleted: true,
		StatusCancelled: true,
		StatusNoShow:    true,
	},
}

// StatusChange carries the optional vet-authored fields accompanying a
// transition.
type StatusChange struct {
	Notes           *string
	Prescription    *string
	RejectionReason *string
}

// Lifecycle governs every status change an appointment can undergo after
// creation: the transition table, per-transition authorization, capacity
// release into terminal cancellation/no-show, and the teleconsult meeting
// link on confirmation.
type Lifecycle struct {
	repo     Repository
	locker   redisclient.Locker
	meetings MeetingLinkProvider
	log      *zap.Logger
	now      func() time.Time
}

func NewLifecycle(repo Repository, locker redisclient.Locker, meetings MeetingLinkProvider, log *zap.Logger) *Lifecycle {
	return &Lifecycle{
		repo:     repo,
		locker:   locker,
		meetings: meetings,
		log:      log,
		now:      time.Now,
	}
}

// UpdateStatus moves an appointment to the target status on behalf of the
// actor. Failure order: missing appointment, terminal state, invalid
// transition, wrong actor.
func (l *Lifecycle) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, target AppointmentStatus, change StatusChange) (*Appointment, error) {
	appt, err := l.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if appt.Status.Terminal() {
		return nil, ErrAlreadyTerminal
	}
	if !transitions[appt.Status][target] {
		return nil, ErrInvalidTransition
	}
	if err := authorize(actor, appt, target); err != nil {
		return nil, err
	}

	w := StatusWrite{}
	switch target {
	case StatusCompleted:
		w.Notes = change.Notes
		w.Prescription = change.Prescription
	case StatusCancelled:
		w.CancellationReason = change.RejectionReason
		w.ReleaseSlot = appt.SlotID != nil
	case StatusNoShow:
		w.ReleaseSlot = appt.SlotID != nil
	}

	var updated *Appointment

	apply := func(applyCtx context.Context) error {
		var err error
		updated, err = l.repo.UpdateAppointmentStatus(applyCtx, id, appt.Status, target, w)
		return err
	}

	// Capacity release must be serialized against concurrent bookings and
	// slot deletion on the same slot.
	if w.ReleaseSlot {
		err = l.locker.WithSlotLock(ctx, *appt.SlotID, apply)
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBusy
		}
	} else {
		err = apply(ctx)
	}
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost the CAS: someone else transitioned first. Reclassify
			// against the current state.
			return nil, l.reclassify(ctx, id)
		}
		return nil, err
	}

	l.logEvent(ctx, updated, target, change)

	if target == StatusConfirmed && updated.Type == TypeTeleconsult {
		updated = l.attachMeetingLink(ctx, updated)
	}

	l.log.Info("appointment status updated",
		zap.String("appointment_id", id.String()),
		zap.String("from", string(appt.Status)),
		zap.String("to", string(target)),
		zap.String("actor_role", string(actor.Role)),
	)

	return updated, nil
}

// authorize enforces the role gates: the owner may only request cancellation
// of their own appointment; confirm, complete, and no-show belong to the
// assigned vet, who may also reject-to-cancelled.
func authorize(actor Actor, appt *Appointment, target AppointmentStatus) error {
	isOwner := actor.Role == RoleOwner && actor.ID == appt.OwnerID
	isVet := actor.Role == RoleVet && actor.ID == appt.VeterinarianID

	switch target {
	case StatusCancelled:
		if isOwner || isVet {
			return nil
		}
	case StatusConfirmed, StatusCompleted, StatusNoShow:
		if isVet {
			return nil
		}
	}
	return ErrForbidden
}

// reclassify reloads the appointment after a lost CAS and returns the error
// the caller would have seen had it arrived second in the first place.
func (l *Lifecycle) reclassify(ctx context.Context, id uuid.UUID) error {
	current, err := l.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Status.Terminal() {
		return ErrAlreadyTerminal
	}
	return ErrInvalidTransition
}

// attachMeetingLink is best-effort and runs outside the critical section. A
// provider failure leaves the confirmation committed with no link.
func (l *Lifecycle) attachMeetingLink(ctx context.Context, appt *Appointment) *Appointment {
	link, err := l.meetings.NewMeetingLink(ctx, appt.ID)
	if err != nil {
		l.log.Warn("meeting link generation failed",
			zap.String("appointment_id", appt.ID.String()),
			zap.Error(err),
		)
		return appt
	}

	withLink, err := l.repo.SetMeetingLink(ctx, appt.ID, link)
	if err != nil {
		l.log.Warn("meeting link persist failed",
			zap.String("appointment_id", appt.ID.String()),
			zap.Error(err),
		)
		return appt
	}

	return withLink
}

func (l *Lifecycle) logEvent(ctx context.Context, appt *Appointment, target AppointmentStatus, change StatusChange) {
	var eventType string
	payload := map[string]any{}

	switch target {
	case StatusConfirmed:
		eventType = EventAppointmentConfirmed
	case StatusCompleted:
		eventType = EventAppointmentCompleted
	case StatusCancelled:
		eventType = EventAppointmentCancelled
		if change.RejectionReason != nil {
			payload["rejection_reason"] = *change.RejectionReason
		}
	case StatusNoShow:
		eventType = EventAppointmentNoShow
	default:
		return
	}

	if appt.SlotID != nil {
		payload["slot_id"] = appt.SlotID.String()
	}

	data, err := json.Marshal(payload)
	if err != nil {
		l.log.Warn("marshal event payload", zap.String("event", eventType), zap.Error(err))
		data = nil
	}

	apptID := appt.ID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     l.now(),
	}

	if err := l.repo.InsertEvent(ctx, ev); err != nil {
		l.log.Warn("insert event log",
			zap.String("event", eventType),
			zap.String("appointment_id", appt.ID.String()),
			zap.Error(err),
		)
	}
}

// GetAppointment returns an appointment visible to the actor: its owner, its
// assigned vet, or an admin.
func (l *Lifecycle) GetAppointment(ctx context.Context, actor Actor, id uuid.UUID) (*Appointment, error) {
	appt, err := l.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.Role == RoleAdmin:
	case actor.Role == RoleOwner && actor.ID == appt.OwnerID:
	case actor.Role == RoleVet && actor.ID == appt.VeterinarianID:
	default:
		return nil, ErrForbidden
	}

	return appt, nil
}

// ListAppointments returns the actor's own appointments, newest first.
func (l *Lifecycle) ListAppointments(ctx context.Context, actor Actor, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	switch actor.Role {
	case RoleVet:
		return l.repo.ListAppointmentsByVet(ctx, actor.ID, limit, offset)
	default:
		return l.repo.ListAppointmentsByOwner(ctx, actor.ID, limit, offset)
	}
}
