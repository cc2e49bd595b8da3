package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type testEnv struct {
	repo      *MemoryRepository
	catalog   *Catalog
	engine    *Engine
	lifecycle *Lifecycle
	search    *SearchIndex

	vet      Actor
	owner    Actor
	petID    uuid.UUID
	otherVet Actor
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := NewMemoryRepository()
	locker := NoopLocker{}
	log := zap.NewNop()

	lifecycle := NewLifecycle(repo, locker, &OpaqueLinkProvider{}, log)

	env := &testEnv{
		repo:      repo,
		catalog:   NewCatalog(repo, repo, locker, log),
		engine:    NewEngine(repo, repo, repo, locker, lifecycle, log),
		lifecycle: lifecycle,
		search:    NewSearchIndex(repo, repo),
	}

	env.vet = Actor{ID: uuid.New(), Role: RoleVet}
	env.otherVet = Actor{ID: uuid.New(), Role: RoleVet}
	env.owner = Actor{ID: uuid.New(), Role: RoleOwner}
	env.petID = uuid.New()

	spec := "General Practice"
	repo.AddVeterinarian(Veterinarian{ID: env.vet.ID, Name: "Dr. Adams", Specialization: &spec, TeleconsultAvailable: true})
	repo.AddVeterinarian(Veterinarian{ID: env.otherVet.ID, Name: "Dr. Brook", Specialization: &spec})
	repo.AddPet(Pet{ID: env.petID, OwnerID: env.owner.ID, Name: "Rex", Species: "dog"})

	return env
}

// addOwnerWithPet registers a fresh owner/pet pair, for multi-owner scenarios.
func (env *testEnv) addOwnerWithPet(name string) (Actor, uuid.UUID) {
	owner := Actor{ID: uuid.New(), Role: RoleOwner}
	petID := uuid.New()
	env.repo.AddPet(Pet{ID: petID, OwnerID: owner.ID, Name: name, Species: "cat"})
	return owner, petID
}

// futureSlot creates a bookable slot for env.vet starting tomorrow.
func (env *testEnv) futureSlot(t *testing.T, mode SlotMode, capacity int) *Slot {
	t.Helper()

	start := time.Now().Add(24 * time.Hour)
	slot, err := env.catalog.CreateSlot(context.Background(), env.vet.ID, start, start.Add(30*time.Minute), mode, capacity)
	if err != nil {
		t.Fatalf("create slot: %v", err)
	}
	return slot
}

// book is a shorthand for a slot-bound booking by the default owner.
func (env *testEnv) book(t *testing.T, slotID uuid.UUID, typ AppointmentType) *Appointment {
	t.Helper()

	appt, err := env.engine.BookAppointment(context.Background(), env.owner, BookingRequest{
		PetID:          env.petID,
		VeterinarianID: env.vet.ID,
		SlotID:         &slotID,
		Type:           typ,
	})
	if err != nil {
		t.Fatalf("book appointment: %v", err)
	}
	return appt
}

func (env *testEnv) slotState(t *testing.T, slotID uuid.UUID) *Slot {
	t.Helper()

	slot, err := env.repo.GetSlotByID(context.Background(), slotID)
	if err != nil {
		t.Fatalf("reload slot: %v", err)
	}
	return slot
}

func strPtr(s string) *string { return &s }
