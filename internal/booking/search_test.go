package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSearch_ExcludesFullAndPastSlots(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	open := env.futureSlot(t, ModeBoth, 2)
	full := env.futureSlot(t, ModeBoth, 1)
	env.book(t, full.ID, TypeInClinic)

	past := time.Now().Add(-3 * time.Hour)
	pastSlot := &Slot{
		ID:             uuid.New(),
		VeterinarianID: env.vet.ID,
		StartTime:      past,
		EndTime:        past.Add(30 * time.Minute),
		Mode:           ModeBoth,
		Capacity:       1,
	}
	if err := env.repo.CreateSlot(ctx, pastSlot); err != nil {
		t.Fatalf("create past slot: %v", err)
	}

	results, err := env.search.SearchVetsWithAvailability(ctx, SearchFilter{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	var slots []Slot
	for _, res := range results {
		if res.Veterinarian.ID == env.vet.ID {
			slots = res.AvailableSlots
		}
	}
	if len(slots) != 1 || slots[0].ID != open.ID {
		t.Fatalf("expected only the open future slot, got %d slots", len(slots))
	}
}

func TestSearch_SpecializationFilter(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	derm := "Dermatology"
	dermVet := Actor{ID: uuid.New(), Role: RoleVet}
	env.repo.AddVeterinarian(Veterinarian{ID: dermVet.ID, Name: "Dr. Clark", Specialization: &derm})

	start := time.Now().Add(24 * time.Hour)
	if _, err := env.catalog.CreateSlot(ctx, dermVet.ID, start, start.Add(time.Hour), ModeInClinic, 1); err != nil {
		t.Fatalf("create slot: %v", err)
	}
	env.futureSlot(t, ModeBoth, 1) // general practice vet

	results, err := env.search.SearchVetsWithAvailability(ctx, SearchFilter{Specialization: &derm})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Veterinarian.ID != dermVet.ID {
		t.Fatalf("expected only the dermatology vet, got %d results", len(results))
	}
}

func TestSearch_TypeFilter(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.futureSlot(t, ModeInClinic, 1)
	tele := env.futureSlot(t, ModeTeleconsult, 1)
	both := env.futureSlot(t, ModeBoth, 1)

	typ := TypeTeleconsult
	results, err := env.search.SearchVetsWithAvailability(ctx, SearchFilter{Type: &typ})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected one vet with teleconsult availability, got %d", len(results))
	}
	got := map[uuid.UUID]bool{}
	for _, s := range results[0].AvailableSlots {
		got[s.ID] = true
	}
	if len(got) != 2 || !got[tele.ID] || !got[both.ID] {
		t.Fatalf("expected teleconsult and both slots only, got %v", got)
	}
}

func TestSearch_DateWindow(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	tomorrow := time.Now().Add(24 * time.Hour)
	inDay := env.futureSlot(t, ModeBoth, 1)

	later := tomorrow.AddDate(0, 0, 5)
	if _, err := env.catalog.CreateSlot(ctx, env.vet.ID, later, later.Add(time.Hour), ModeBoth, 1); err != nil {
		t.Fatalf("create slot: %v", err)
	}

	results, err := env.search.SearchVetsWithAvailability(ctx, SearchFilter{Date: &tomorrow})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one vet, got %d", len(results))
	}
	if len(results[0].AvailableSlots) != 1 || results[0].AvailableSlots[0].ID != inDay.ID {
		t.Fatal("date filter must keep only that day's slots")
	}
}

func TestSearch_IsAdvisoryNotAReservation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	slot := env.futureSlot(t, ModeBoth, 1)

	results, err := env.search.SearchVetsWithAvailability(ctx, SearchFilter{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || len(results[0].AvailableSlots) != 1 {
		t.Fatal("expected the slot to show as available")
	}

	// Someone else wins the race between search and book.
	rival, rivalPet := env.addOwnerWithPet("Ziggy")
	if _, err := env.engine.BookAppointment(ctx, rival, BookingRequest{
		PetID:          rivalPet,
		VeterinarianID: env.vet.ID,
		SlotID:         &slot.ID,
		Type:           TypeInClinic,
	}); err != nil {
		t.Fatalf("rival booking: %v", err)
	}

	// The stale hint now fails at booking time, as it must.
	_, err = env.engine.BookAppointment(ctx, env.owner, BookingRequest{
		PetID:          env.petID,
		VeterinarianID: env.vet.ID,
		SlotID:         &slot.ID,
		Type:           TypeInClinic,
	})
	if !errors.Is(err, ErrSlotFull) {
		t.Fatalf("expected ErrSlotFull on stale hint, got %v", err)
	}

	// Search never mutated anything along the way.
	if got := env.slotState(t, slot.ID).BookedCount; got != 1 {
		t.Fatalf("expected booked count 1, got %d", got)
	}
}

func TestSearch_TeleconsultOnly(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	// otherVet has no teleconsult flag; give them an open slot anyway.
	start := time.Now().Add(24 * time.Hour)
	if _, err := env.catalog.CreateSlot(ctx, env.otherVet.ID, start, start.Add(time.Hour), ModeBoth, 1); err != nil {
		t.Fatalf("create slot: %v", err)
	}
	env.futureSlot(t, ModeBoth, 1)

	results, err := env.search.SearchVetsWithAvailability(ctx, SearchFilter{TeleconsultOnly: true})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Veterinarian.ID != env.vet.ID {
		t.Fatalf("expected only the teleconsult-capable vet, got %d results", len(results))
	}
}
