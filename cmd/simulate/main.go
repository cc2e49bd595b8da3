// Command simulate fires a storm of concurrent booking attempts at a single
// slot and checks the capacity invariant: with N workers and capacity C,
// exactly min(N, C) bookings succeed, the rest fail with slot_full, and the
// final booked count equals the successes. It runs fully in-process against
// the in-memory repository, so it needs no infrastructure.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pawlink/vet-scheduling/internal/booking"
)

type OperationMetrics struct {
	Total    int64
	Success  int64
	SlotFull int64
	Error    int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, err error) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case err == nil:
		atomic.AddInt64(&om.Success, 1)
	case errors.Is(err, booking.ErrSlotFull):
		atomic.AddInt64(&om.SlotFull, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95, max time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.latencies) == 0 {
		return 0, 0, 0, 0
	}

	sorted := make([]time.Duration, len(om.latencies))
	copy(sorted, om.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}

	avg = sum / time.Duration(len(sorted))
	p50 = sorted[len(sorted)*50/100]
	p95idx := len(sorted) * 95 / 100
	if p95idx >= len(sorted) {
		p95idx = len(sorted) - 1
	}
	p95 = sorted[p95idx]
	max = sorted[len(sorted)-1]
	return avg, p50, p95, max
}

func main() {
	log.SetFlags(log.LstdFlags)

	workers := flag.Int("workers", 50, "concurrent booking attempts")
	capacity := flag.Int("capacity", 5, "slot capacity")
	rounds := flag.Int("rounds", 1, "book/cancel rounds")
	flag.Parse()

	if *workers < 1 || *capacity < 1 || *rounds < 1 {
		log.Fatal("workers, capacity, and rounds must all be >= 1")
	}

	ctx := context.Background()
	repo := booking.NewMemoryRepository()
	locker := booking.NoopLocker{}
	zlog := zap.NewNop()

	lifecycle := booking.NewLifecycle(repo, locker, &booking.OpaqueLinkProvider{}, zlog)
	engine := booking.NewEngine(repo, repo, repo, locker, lifecycle, zlog)
	catalog := booking.NewCatalog(repo, repo, locker, zlog)

	vetID := uuid.New()
	repo.AddVeterinarian(booking.Veterinarian{ID: vetID, Name: "Dr. Simulated", TeleconsultAvailable: true})

	owners := make([]booking.Actor, *workers)
	pets := make([]uuid.UUID, *workers)
	for i := range owners {
		ownerID := uuid.New()
		petID := uuid.New()
		owners[i] = booking.Actor{ID: ownerID, Role: booking.RoleOwner}
		pets[i] = petID
		repo.AddPet(booking.Pet{ID: petID, OwnerID: ownerID, Name: fmt.Sprintf("pet-%d", i), Species: "dog"})
	}

	start := time.Now().Add(24 * time.Hour)
	slot, err := catalog.CreateSlot(ctx, vetID, start, start.Add(30*time.Minute), booking.ModeBoth, *capacity)
	if err != nil {
		log.Fatalf("create slot: %v", err)
	}

	exitCode := 0
	for round := 1; round <= *rounds; round++ {
		log.Printf("round %d: firing %d concurrent bookings at capacity %d", round, *workers, *capacity)

		metrics := &OperationMetrics{}
		var created sync.Map
		var wg sync.WaitGroup

		for i := 0; i < *workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()

				began := time.Now()
				appt, err := engine.BookAppointment(ctx, owners[i], booking.BookingRequest{
					PetID:          pets[i],
					VeterinarianID: vetID,
					SlotID:         &slot.ID,
					Type:           booking.TypeInClinic,
				})
				metrics.Record(time.Since(began), err)
				if err == nil {
					created.Store(i, appt.ID)
				}
			}(i)
		}
		wg.Wait()

		final, err := repo.GetSlotByID(ctx, slot.ID)
		if err != nil {
			log.Fatalf("reload slot: %v", err)
		}

		expected := int64(*capacity)
		if int64(*workers) < expected {
			expected = int64(*workers)
		}

		avg, p50, p95, max := metrics.Stats()
		log.Printf("round %d results: total=%d success=%d slot_full=%d error=%d", round, metrics.Total, metrics.Success, metrics.SlotFull, metrics.Error)
		log.Printf("round %d latency: avg=%s p50=%s p95=%s max=%s", round, avg, p50, p95, max)
		log.Printf("round %d booked_count=%d capacity=%d", round, final.BookedCount, final.Capacity)

		if metrics.Success != expected || int64(final.BookedCount) != expected || metrics.Error != 0 {
			log.Printf("round %d INVARIANT VIOLATION: expected exactly %d successes", round, expected)
			exitCode = 1
		}

		// Release everything so the next round starts from an empty slot.
		created.Range(func(key, value any) bool {
			i := key.(int)
			if _, err := engine.CancelAppointment(ctx, owners[i], value.(uuid.UUID)); err != nil {
				log.Printf("cancel appointment: %v", err)
				exitCode = 1
			}
			return true
		})

		drained, err := repo.GetSlotByID(ctx, slot.ID)
		if err != nil {
			log.Fatalf("reload slot: %v", err)
		}
		if drained.BookedCount != 0 {
			log.Printf("round %d INVARIANT VIOLATION: booked_count=%d after cancelling all", round, drained.BookedCount)
			exitCode = 1
		}
	}

	if exitCode == 0 {
		log.Println("all rounds passed")
	}
	os.Exit(exitCode)
}
