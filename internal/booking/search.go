package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SearchFilter narrows the vet + availability search. All fields are optional.
type SearchFilter struct {
	Specialization  *string
	Location        *string
	Date            *time.Time
	TeleconsultOnly bool
	Type            *AppointmentType
}

// VetAvailability pairs a veterinarian with their future slots that still have
// free spots, ordered by start time.
type VetAvailability struct {
	Veterinarian   Veterinarian
	AvailableSlots []Slot
}

// SearchIndex is the read-only discovery path over the vet directory and the
// slot catalog. Results are an advisory snapshot, never a reservation; a slot
// listed here can still come back ErrSlotFull at booking time.
type SearchIndex struct {
	repo Repository
	vets VetDirectory
	now  func() time.Time
}

func NewSearchIndex(repo Repository, vets VetDirectory) *SearchIndex {
	return &SearchIndex{
		repo: repo,
		vets: vets,
		now:  time.Now,
	}
}

// SearchVetsWithAvailability returns vets matching the filter that have at
// least one bookable slot. Pure read, no locks, no side effects.
func (s *SearchIndex) SearchVetsWithAvailability(ctx context.Context, f SearchFilter) ([]VetAvailability, error) {
	if f.Type != nil && !f.Type.Valid() {
		return nil, ErrInvalidType
	}

	vets, err := s.vets.ListVeterinarians(ctx, VetFilter{
		Specialization:  f.Specialization,
		Location:        f.Location,
		TeleconsultOnly: f.TeleconsultOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("list veterinarians: %w", err)
	}
	if len(vets) == 0 {
		return nil, nil
	}

	from := s.now()
	var to time.Time
	if f.Date != nil {
		dayStart := time.Date(f.Date.Year(), f.Date.Month(), f.Date.Day(), 0, 0, 0, 0, f.Date.Location())
		if dayStart.After(from) {
			from = dayStart
		}
		to = dayStart.AddDate(0, 0, 1)
		if !to.After(from) {
			// Whole day already in the past.
			return nil, nil
		}
	}

	vetIDs := make([]uuid.UUID, 0, len(vets))
	for _, v := range vets {
		vetIDs = append(vetIDs, v.ID)
	}

	slots, err := s.repo.ListAvailableSlots(ctx, vetIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("list available slots: %w", err)
	}

	wantType := f.Type
	if wantType == nil && f.TeleconsultOnly {
		t := TypeTeleconsult
		wantType = &t
	}

	// Repo rows are ordered by start time; grouping per vet preserves that.
	byVet := make(map[uuid.UUID][]Slot, len(vets))
	for _, slot := range slots {
		if wantType != nil && !slot.Mode.Accepts(*wantType) {
			continue
		}
		byVet[slot.VeterinarianID] = append(byVet[slot.VeterinarianID], slot)
	}

	var result []VetAvailability
	for _, v := range vets {
		avail := byVet[v.ID]
		if len(avail) == 0 {
			continue
		}
		result = append(result, VetAvailability{
			Veterinarian:   v,
			AvailableSlots: avail,
		})
	}

	return result, nil
}
