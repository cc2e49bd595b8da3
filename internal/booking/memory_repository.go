package booking

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is a mutex-guarded, in-process Repository plus both
// directory contracts. Package tests, API tests, and the simulator's local
// mode run against it. The single mutex gives the same serialization the
// Postgres implementation gets from conditional updates in transactions.
type MemoryRepository struct {
	mu           sync.Mutex
	slots        map[uuid.UUID]*Slot
	appointments map[uuid.UUID]*Appointment
	pets         map[uuid.UUID]*Pet
	vets         map[uuid.UUID]*Veterinarian
	events       []EventLog
	clock        func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		slots:        make(map[uuid.UUID]*Slot),
		appointments: make(map[uuid.UUID]*Appointment),
		pets:         make(map[uuid.UUID]*Pet),
		vets:         make(map[uuid.UUID]*Veterinarian),
		clock:        time.Now,
	}
}

// SetClock overrides the timestamp source, for tests.
func (m *MemoryRepository) SetClock(clock func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = clock
}

// Fixture loading

func (m *MemoryRepository) AddPet(p Pet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pets[p.ID] = &p
}

func (m *MemoryRepository) AddVeterinarian(v Veterinarian) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vets[v.ID] = &v
}

// Events returns a copy of the recorded event log.
func (m *MemoryRepository) Events() []EventLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EventLog, len(m.events))
	copy(out, m.events)
	return out
}

// Repository

func (m *MemoryRepository) CreateSlot(_ context.Context, slot *Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	slot.CreatedAt = now
	slot.UpdatedAt = now
	cp := *slot
	m.slots[slot.ID] = &cp
	return nil
}

func (m *MemoryRepository) GetSlotByID(_ context.Context, id uuid.UUID) (*Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryRepository) ListSlotsByVet(_ context.Context, vetID uuid.UUID, from, to time.Time) ([]Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Slot
	for _, s := range m.slots {
		if s.VeterinarianID != vetID {
			continue
		}
		if !from.IsZero() && !s.EndTime.After(from) {
			continue
		}
		if !to.IsZero() && !s.StartTime.Before(to) {
			continue
		}
		result = append(result, *s)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result, nil
}

func (m *MemoryRepository) ListAvailableSlots(_ context.Context, vetIDs []uuid.UUID, from, to time.Time) ([]Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := make(map[uuid.UUID]bool, len(vetIDs))
	for _, id := range vetIDs {
		want[id] = true
	}

	var result []Slot
	for _, s := range m.slots {
		if !want[s.VeterinarianID] {
			continue
		}
		if s.BookedCount >= s.Capacity {
			continue
		}
		if !s.StartTime.After(from) {
			continue
		}
		if !to.IsZero() && !s.StartTime.Before(to) {
			continue
		}
		result = append(result, *s)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result, nil
}

func (m *MemoryRepository) DeleteEmptySlot(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	if s.BookedCount > 0 {
		return ErrSlotHasBookings
	}
	delete(m.slots, id)
	return nil
}

func (m *MemoryRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryRepository) GetAppointmentByIdempotencyKey(_ context.Context, ownerID uuid.UUID, key string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.appointments {
		if a.OwnerID == ownerID && a.IdempotencyKey != nil && *a.IdempotencyKey == key {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (m *MemoryRepository) ListAppointmentsByOwner(_ context.Context, ownerID uuid.UUID, limit, offset int) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listAppointments(func(a *Appointment) bool { return a.OwnerID == ownerID }, limit, offset), nil
}

func (m *MemoryRepository) ListAppointmentsByVet(_ context.Context, vetID uuid.UUID, limit, offset int) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listAppointments(func(a *Appointment) bool { return a.VeterinarianID == vetID }, limit, offset), nil
}

func (m *MemoryRepository) listAppointments(match func(*Appointment) bool, limit, offset int) []Appointment {
	var all []Appointment
	for _, a := range m.appointments {
		if match(a) {
			all = append(all, *a)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].AppointmentDate.After(all[j].AppointmentDate)
	})

	if offset >= len(all) {
		return nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

func (m *MemoryRepository) CreateSlotAppointment(_ context.Context, appt *Appointment) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.slots[*appt.SlotID]
	if !ok {
		return nil, ErrSlotNotFound
	}
	if slot.BookedCount >= slot.Capacity {
		return nil, ErrSlotFull
	}

	now := m.clock()
	slot.BookedCount++
	slot.UpdatedAt = now

	cp := *appt
	cp.Status = StatusPending
	cp.CreatedAt = now
	cp.UpdatedAt = now
	m.appointments[cp.ID] = &cp

	out := cp
	return &out, nil
}

func (m *MemoryRepository) CreateUnslottedAppointment(_ context.Context, appt *Appointment) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	cp := *appt
	cp.SlotID = nil
	cp.Status = StatusPending
	cp.CreatedAt = now
	cp.UpdatedAt = now
	m.appointments[cp.ID] = &cp

	out := cp
	return &out, nil
}

func (m *MemoryRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to AppointmentStatus, w StatusWrite) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}

	a.Status = to
	if w.Notes != nil {
		a.Notes = w.Notes
	}
	if w.Prescription != nil {
		a.Prescription = w.Prescription
	}
	if w.CancellationReason != nil {
		a.CancellationReason = w.CancellationReason
	}
	a.UpdatedAt = m.clock()

	if w.ReleaseSlot && a.SlotID != nil {
		if slot, ok := m.slots[*a.SlotID]; ok && slot.BookedCount > 0 {
			slot.BookedCount--
			slot.UpdatedAt = a.UpdatedAt
		}
	}

	cp := *a
	return &cp, nil
}

func (m *MemoryRepository) SetMeetingLink(_ context.Context, id uuid.UUID, link string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok || a.Status != StatusConfirmed {
		return nil, ErrAppointmentNotFound
	}

	a.MeetingLink = &link
	a.UpdatedAt = m.clock()

	cp := *a
	return &cp, nil
}

func (m *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev.ID = int64(len(m.events) + 1)
	m.events = append(m.events, ev)
	return nil
}

// PetDirectory

func (m *MemoryRepository) GetPet(_ context.Context, id uuid.UUID) (*Pet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pets[id]
	if !ok {
		return nil, ErrPetNotFound
	}
	cp := *p
	return &cp, nil
}

// VetDirectory

func (m *MemoryRepository) GetVeterinarian(_ context.Context, id uuid.UUID) (*Veterinarian, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.vets[id]
	if !ok {
		return nil, ErrVetNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *MemoryRepository) ListVeterinarians(_ context.Context, f VetFilter) ([]Veterinarian, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Veterinarian
	for _, v := range m.vets {
		if f.Specialization != nil && (v.Specialization == nil || !strings.EqualFold(*v.Specialization, *f.Specialization)) {
			continue
		}
		if f.Location != nil && (v.ClinicAddress == nil || !strings.Contains(strings.ToLower(*v.ClinicAddress), strings.ToLower(*f.Location))) {
			continue
		}
		if f.TeleconsultOnly && !v.TeleconsultAvailable {
			continue
		}
		result = append(result, *v)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// NoopLocker runs critical sections directly; the MemoryRepository's own mutex
// already serializes them within one process.
type NoopLocker struct{}

func (NoopLocker) WithSlotLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
