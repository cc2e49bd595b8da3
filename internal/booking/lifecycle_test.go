package booking

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestLifecycle_ConfirmThenComplete(t *testing.T) {
	env := setupTestEnv(t)
	slot := env.futureSlot(t, ModeBoth, 1)
	appt := env.book(t, slot.ID, TypeInClinic)
	ctx := context.Background()

	confirmed, err := env.lifecycle.UpdateStatus(ctx, env.vet, appt.ID, StatusConfirmed, StatusChange{})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", confirmed.Status)
	}
	if confirmed.MeetingLink != nil {
		t.Fatal("in-clinic confirmation must not get a meeting link")
	}

	completed, err := env.lifecycle.UpdateStatus(ctx, env.vet, appt.ID, StatusCompleted, StatusChange{
		Notes:        strPtr("Healthy, mild ear infection"),
		Prescription: strPtr("Ear drops, twice daily for 7 days"),
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", completed.Status)
	}
	if completed.Notes == nil || completed.Prescription == nil {
		t.Fatal("completion must attach notes and prescription")
	}

	// Completing never releases capacity.
	if got := env.slotState(t, slot.ID).BookedCount; got != 1 {
		t.Fatalf("completed appointment should keep booked count, got %d", got)
	}
}

func TestLifecycle_PendingToCompletedInvalid(t *testing.T) {
	env := setupTestEnv(t)
	slot := env.futureSlot(t, ModeBoth, 1)
	appt := env.book(t, slot.ID, TypeInClinic)

	_, err := env.lifecycle.UpdateStatus(context.Background(), env.vet, appt.ID, StatusCompleted, StatusChange{})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestLifecycle_TerminalStatesAreImmutable(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	terminalVia := []struct {
		name  string
		reach func(t *testing.T, apptID uuid.UUID)
	}{
		{"cancelled", func(t *testing.T, id uuid.UUID) {
			if _, err := env.lifecycle.UpdateStatus(ctx, env.owner, id, StatusCancelled, StatusChange{}); err != nil {
				t.Fatalf("cancel: %v", err)
			}
		}},
		{"completed", func(t *testing.T, id uuid.UUID) {
			if _, err := env.lifecycle.UpdateStatus(ctx, env.vet, id, StatusConfirmed, StatusChange{}); err != nil {
				t.Fatalf("confirm: %v", err)
			}
			if _, err := env.lifecycle.UpdateStatus(ctx, env.vet, id, StatusCompleted, StatusChange{}); err != nil {
				t.Fatalf("complete: %v", err)
			}
		}},
		{"no_show", func(t *testing.T, id uuid.UUID) {
			if _, err := env.lifecycle.UpdateStatus(ctx, env.vet, id, StatusConfirmed, StatusChange{}); err != nil {
				t.Fatalf("confirm: %v", err)
			}
			if _, err := env.lifecycle.UpdateStatus(ctx, env.vet, id, StatusNoShow, StatusChange{}); err != nil {
				t.Fatalf("no-show: %v", err)
			}
		}},
	}

	for _, tc := range terminalVia {
		t.Run(tc.name, func(t *testing.T) {
			slot := env.futureSlot(t, ModeBoth, 1)
			appt := env.book(t, slot.ID, TypeInClinic)
			tc.reach(t, appt.ID)

			for _, target := range []AppointmentStatus{StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow} {
				if _, err := env.lifecycle.UpdateStatus(ctx, env.vet, appt.ID, target, StatusChange{}); !errors.Is(err, ErrAlreadyTerminal) {
					t.Fatalf("transition to %s from terminal %s: expected ErrAlreadyTerminal, got %v", target, tc.name, err)
				}
			}
		})
	}
}

func TestLifecycle_Authorization(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	stranger := Actor{ID: uuid.New(), Role: RoleOwner}
	admin := Actor{ID: uuid.New(), Role: RoleAdmin}

	t.Run("owner cannot confirm", func(t *testing.T) {
		slot := env.futureSlot(t, ModeBoth, 1)
		appt := env.book(t, slot.ID, TypeInClinic)
		if _, err := env.lifecycle.UpdateStatus(ctx, env.owner, appt.ID, StatusConfirmed, StatusChange{}); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("foreign vet cannot confirm", func(t *testing.T) {
		slot := env.futureSlot(t, ModeBoth, 1)
		appt := env.book(t, slot.ID, TypeInClinic)
		if _, err := env.lifecycle.UpdateStatus(ctx, env.otherVet, appt.ID, StatusConfirmed, StatusChange{}); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("stranger cannot cancel", func(t *testing.T) {
		slot := env.futureSlot(t, ModeBoth, 1)
		appt := env.book(t, slot.ID, TypeInClinic)
		if _, err := env.lifecycle.UpdateStatus(ctx, stranger, appt.ID, StatusCancelled, StatusChange{}); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("admin holds no transition rights", func(t *testing.T) {
		slot := env.futureSlot(t, ModeBoth, 1)
		appt := env.book(t, slot.ID, TypeInClinic)
		if _, err := env.lifecycle.UpdateStatus(ctx, admin, appt.ID, StatusCancelled, StatusChange{}); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("owner cancels own pending", func(t *testing.T) {
		slot := env.futureSlot(t, ModeBoth, 1)
		appt := env.book(t, slot.ID, TypeInClinic)
		if _, err := env.lifecycle.UpdateStatus(ctx, env.owner, appt.ID, StatusCancelled, StatusChange{}); err != nil {
			t.Fatalf("owner cancel: %v", err)
		}
	})
}

func TestLifecycle_TeleconsultConfirmationGetsMeetingLink(t *testing.T) {
	env := setupTestEnv(t)
	slot := env.futureSlot(t, ModeTeleconsult, 1)
	appt := env.book(t, slot.ID, TypeTeleconsult)

	confirmed, err := env.lifecycle.UpdateStatus(context.Background(), env.vet, appt.ID, StatusConfirmed, StatusChange{})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.MeetingLink == nil || *confirmed.MeetingLink == "" {
		t.Fatal("teleconsult confirmation must carry a meeting link")
	}
}

type failingLinkProvider struct{}

func (failingLinkProvider) NewMeetingLink(context.Context, uuid.UUID) (string, error) {
	return "", errors.New("video backend unavailable")
}

func TestLifecycle_MeetingLinkFailureDoesNotRollBack(t *testing.T) {
	env := setupTestEnv(t)
	lifecycle := NewLifecycle(env.repo, NoopLocker{}, failingLinkProvider{}, zap.NewNop())

	slot := env.futureSlot(t, ModeTeleconsult, 1)
	appt := env.book(t, slot.ID, TypeTeleconsult)

	confirmed, err := lifecycle.UpdateStatus(context.Background(), env.vet, appt.ID, StatusConfirmed, StatusChange{})
	if err != nil {
		t.Fatalf("confirm should survive link failure, got %v", err)
	}
	if confirmed.Status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", confirmed.Status)
	}
	if confirmed.MeetingLink != nil {
		t.Fatal("failed provider must leave the link unset")
	}
}

func TestLifecycle_CancelConfirmedReleasesOneSpot(t *testing.T) {
	env := setupTestEnv(t)
	slot := env.futureSlot(t, ModeBoth, 2)
	appt := env.book(t, slot.ID, TypeInClinic)
	ctx := context.Background()

	if _, err := env.lifecycle.UpdateStatus(ctx, env.vet, appt.ID, StatusConfirmed, StatusChange{}); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	before := env.slotState(t, slot.ID).AvailableSpots()
	if _, err := env.lifecycle.UpdateStatus(ctx, env.owner, appt.ID, StatusCancelled, StatusChange{}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	after := env.slotState(t, slot.ID).AvailableSpots()

	if after != before+1 {
		t.Fatalf("cancel must release exactly one spot: before=%d after=%d", before, after)
	}
}

func TestLifecycle_NoShowReleasesCapacity(t *testing.T) {
	env := setupTestEnv(t)
	slot := env.futureSlot(t, ModeBoth, 1)
	appt := env.book(t, slot.ID, TypeInClinic)
	ctx := context.Background()

	if _, err := env.lifecycle.UpdateStatus(ctx, env.vet, appt.ID, StatusConfirmed, StatusChange{}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	marked, err := env.lifecycle.UpdateStatus(ctx, env.vet, appt.ID, StatusNoShow, StatusChange{})
	if err != nil {
		t.Fatalf("no-show: %v", err)
	}
	if marked.Status != StatusNoShow {
		t.Fatalf("expected no_show, got %s", marked.Status)
	}
	if got := env.slotState(t, slot.ID).BookedCount; got != 0 {
		t.Fatalf("no-show must release capacity, booked count %d", got)
	}
}

func TestLifecycle_VetRejectStoresReason(t *testing.T) {
	env := setupTestEnv(t)
	slot := env.futureSlot(t, ModeBoth, 1)
	appt := env.book(t, slot.ID, TypeInClinic)

	rejected, err := env.lifecycle.UpdateStatus(context.Background(), env.vet, appt.ID, StatusCancelled, StatusChange{
		RejectionReason: strPtr("Fully booked with emergencies that day"),
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", rejected.Status)
	}
	if rejected.CancellationReason == nil {
		t.Fatal("rejection reason must be persisted with the transition")
	}
}

func TestLifecycle_GetAppointmentVisibility(t *testing.T) {
	env := setupTestEnv(t)
	slot := env.futureSlot(t, ModeBoth, 1)
	appt := env.book(t, slot.ID, TypeInClinic)
	ctx := context.Background()

	for _, actor := range []Actor{env.owner, env.vet, {ID: uuid.New(), Role: RoleAdmin}} {
		if _, err := env.lifecycle.GetAppointment(ctx, actor, appt.ID); err != nil {
			t.Fatalf("actor %s should see the appointment: %v", actor.Role, err)
		}
	}

	stranger := Actor{ID: uuid.New(), Role: RoleOwner}
	if _, err := env.lifecycle.GetAppointment(ctx, stranger, appt.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for stranger, got %v", err)
	}
}

// Walks the full scenario: two owners fill a capacity-2 slot, a third bounces,
// the vet confirms one and rejects the other, and the freed spot is rebooked.
func TestLifecycle_EndToEndScenario(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	slot := env.futureSlot(t, ModeBoth, 2)

	ownerA, petA := env.addOwnerWithPet("Bella")
	ownerB, petB := env.addOwnerWithPet("Coco")
	ownerC, petC := env.addOwnerWithPet("Daisy")

	bookFor := func(actor Actor, pet uuid.UUID, typ AppointmentType) (*Appointment, error) {
		return env.engine.BookAppointment(ctx, actor, BookingRequest{
			PetID:          pet,
			VeterinarianID: env.vet.ID,
			SlotID:         &slot.ID,
			Type:           typ,
		})
	}

	apptA, err := bookFor(ownerA, petA, TypeInClinic)
	if err != nil {
		t.Fatalf("owner A books: %v", err)
	}
	if apptA.Status != StatusPending || env.slotState(t, slot.ID).BookedCount != 1 {
		t.Fatal("after A: want pending status and booked count 1")
	}

	apptB, err := bookFor(ownerB, petB, TypeTeleconsult)
	if err != nil {
		t.Fatalf("owner B books (BOTH accepts teleconsult): %v", err)
	}
	if env.slotState(t, slot.ID).BookedCount != 2 {
		t.Fatal("after B: want booked count 2")
	}

	if _, err := bookFor(ownerC, petC, TypeInClinic); !errors.Is(err, ErrSlotFull) {
		t.Fatalf("owner C should hit ErrSlotFull, got %v", err)
	}

	confirmedA, err := env.lifecycle.UpdateStatus(ctx, env.vet, apptA.ID, StatusConfirmed, StatusChange{})
	if err != nil {
		t.Fatalf("confirm A: %v", err)
	}
	if confirmedA.MeetingLink != nil {
		t.Fatal("in-clinic confirmation must not carry a meeting link")
	}

	rejectedB, err := env.lifecycle.UpdateStatus(ctx, env.vet, apptB.ID, StatusCancelled, StatusChange{
		RejectionReason: strPtr("Teleconsult equipment down that morning"),
	})
	if err != nil {
		t.Fatalf("reject B: %v", err)
	}
	if rejectedB.Status != StatusCancelled || env.slotState(t, slot.ID).BookedCount != 1 {
		t.Fatal("after rejecting B: want cancelled status and booked count 1")
	}

	if _, err := bookFor(ownerC, petC, TypeInClinic); err != nil {
		t.Fatalf("owner C retry should land in the freed spot: %v", err)
	}
	if env.slotState(t, slot.ID).BookedCount != 2 {
		t.Fatal("after C retry: want booked count 2")
	}
}
