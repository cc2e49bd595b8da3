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
	EventSlotCreated = "SLOT_CREATED"
	EventSlotDeleted = "SLOT_DELETED"
)

// Catalog owns vet-published slots: creation, listing, and deletion guarded by
// active bookings. Capacity itself is only ever mutated through the booking
// and lifecycle paths.
type Catalog struct {
	repo   Repository
	vets   VetDirectory
	locker redisclient.Locker
	log    *zap.Logger
}

func NewCatalog(repo Repository, vets VetDirectory, locker redisclient.Locker, log *zap.Logger) *Catalog {
	return &Catalog{
		repo:   repo,
		vets:   vets,
		locker: locker,
		log:    log,
	}
}

func (c *Catalog) CreateSlot(ctx context.Context, vetID uuid.UUID, start, end time.Time, mode SlotMode, capacity int) (*Slot, error) {
	if !end.After(start) {
		return nil, ErrInvalidRange
	}
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	if !mode.Valid() {
		return nil, ErrInvalidMode
	}

	if _, err := c.vets.GetVeterinarian(ctx, vetID); err != nil {
		return nil, err
	}

	slot := &Slot{
		ID:             uuid.New(),
		VeterinarianID: vetID,
		StartTime:      start,
		EndTime:        end,
		Mode:           mode,
		Capacity:       capacity,
	}

	if err := c.repo.CreateSlot(ctx, slot); err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}

	c.log.Info("slot created",
		zap.String("slot_id", slot.ID.String()),
		zap.String("vet_id", vetID.String()),
		zap.Time("start", start),
		zap.Int("capacity", capacity),
	)
	c.logEvent(ctx, EventSlotCreated, map[string]any{
		"slot_id":  slot.ID.String(),
		"vet_id":   vetID.String(),
		"capacity": capacity,
	})

	return slot, nil
}

// ListSlots returns the vet's slots overlapping the window, ordered by start
// time. Lock-free snapshot read; counts may be slightly stale.
func (c *Catalog) ListSlots(ctx context.Context, vetID uuid.UUID, from, to time.Time) ([]Slot, error) {
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		return nil, ErrInvalidRange
	}
	slots, err := c.repo.ListSlotsByVet(ctx, vetID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

// DeleteSlot removes a slot with no active bookings. It runs under the slot
// lock so a concurrent cancellation cannot decrement the counter of a slot
// that is mid-deletion.
func (c *Catalog) DeleteSlot(ctx context.Context, actor Actor, slotID uuid.UUID) error {
	slot, err := c.repo.GetSlotByID(ctx, slotID)
	if err != nil {
		return err
	}

	if !(actor.Role == RoleAdmin || (actor.Role == RoleVet && actor.ID == slot.VeterinarianID)) {
		return ErrForbidden
	}

	err = c.locker.WithSlotLock(ctx, slotID, func(lockCtx context.Context) error {
		return c.repo.DeleteEmptySlot(lockCtx, slotID)
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return ErrSlotBusy
		}
		return err
	}

	c.log.Info("slot deleted",
		zap.String("slot_id", slotID.String()),
		zap.String("vet_id", slot.VeterinarianID.String()),
	)
	c.logEvent(ctx, EventSlotDeleted, map[string]any{
		"slot_id": slotID.String(),
		"vet_id":  slot.VeterinarianID.String(),
	})

	return nil
}

// Slot events carry no appointment reference; the slot is identified in the
// payload. Failures are logged, never surfaced.
func (c *Catalog) logEvent(ctx context.Context, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.log.Warn("marshal event payload", zap.String("event", eventType), zap.Error(err))
		data = nil
	}

	ev := EventLog{
		EventType: eventType,
		Payload:   data,
		CreatedAt: time.Now(),
	}

	if err := c.repo.InsertEvent(ctx, ev); err != nil {
		c.log.Warn("insert event log", zap.String("event", eventType), zap.Error(err))
	}
}
