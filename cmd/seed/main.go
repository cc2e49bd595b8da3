package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pawlink/vet-scheduling/internal/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS veterinarians (
	id uuid PRIMARY KEY,
	name text NOT NULL,
	specialization text,
	clinic_address text,
	teleconsult_available boolean NOT NULL DEFAULT false,
	consultation_fee numeric(10,2) NOT NULL DEFAULT 0,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pets (
	id uuid PRIMARY KEY,
	owner_id uuid NOT NULL,
	name text NOT NULL,
	species text NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS slots (
	id uuid PRIMARY KEY,
	veterinarian_id uuid NOT NULL,
	start_time timestamptz NOT NULL,
	end_time timestamptz NOT NULL,
	mode text NOT NULL,
	capacity int NOT NULL,
	booked_count int NOT NULL DEFAULT 0,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now(),
	CONSTRAINT slots_time_order CHECK (end_time > start_time),
	CONSTRAINT slots_capacity_min CHECK (capacity >= 1),
	CONSTRAINT slots_booked_bounds CHECK (booked_count >= 0 AND booked_count <= capacity)
);

CREATE INDEX IF NOT EXISTS slots_vet_start_idx ON slots (veterinarian_id, start_time);

CREATE TABLE IF NOT EXISTS appointments (
	id uuid PRIMARY KEY,
	pet_id uuid NOT NULL,
	owner_id uuid NOT NULL,
	veterinarian_id uuid NOT NULL,
	slot_id uuid,
	appointment_date timestamptz NOT NULL,
	type text NOT NULL,
	status text NOT NULL,
	reason text,
	notes text,
	prescription text,
	cancellation_reason text,
	meeting_link text,
	idempotency_key text,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS appointments_idempotency_idx
	ON appointments (owner_id, idempotency_key)
	WHERE idempotency_key IS NOT NULL;

CREATE INDEX IF NOT EXISTS appointments_owner_idx ON appointments (owner_id, appointment_date DESC);
CREATE INDEX IF NOT EXISTS appointments_vet_idx ON appointments (veterinarian_id, appointment_date DESC);

CREATE TABLE IF NOT EXISTS event_logs (
	id bigserial PRIMARY KEY,
	event_type text NOT NULL,
	appointment_id uuid,
	payload jsonb,
	created_at timestamptz NOT NULL DEFAULT now()
);
`

var specializations = []string{
	"General Practice",
	"Dermatology",
	"Cardiology",
	"Orthopedics",
	"Dentistry",
	"Exotic Animals",
	"Ophthalmology",
	"Behavior",
}

var species = []string{"dog", "cat", "rabbit", "parrot", "hamster", "reptile"}

var modes = []string{"teleconsult", "in_clinic", "both"}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(context.Background(), schema); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}
	log.Println("schema ensured")

	gofakeit.Seed(time.Now().UnixNano())

	vetIDs, err := seedVeterinarians(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed veterinarians: %v", err)
	}
	if err := seedPets(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed pets: %v", err)
	}
	if err := seedSlots(context.Background(), pool, vetIDs, 14); err != nil {
		log.Fatalf("seed slots: %v", err)
	}

	log.Println("seed complete")
}

func seedVeterinarians(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d veterinarians", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		spec := specializations[gofakeit.Number(0, len(specializations)-1)]
		address := gofakeit.Street() + ", " + gofakeit.City()
		teleconsult := gofakeit.Bool()
		fee := gofakeit.Price(20, 150)

		_, err := tx.Exec(ctx, `
			INSERT INTO veterinarians (id, name, specialization, clinic_address, teleconsult_available, consultation_fee, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		`, id, name, spec, address, teleconsult, fee)
		if err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("veterinarians seeded")
	return ids, nil
}

func seedPets(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d pets", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			ownerID := uuid.New()
			name := gofakeit.PetName()
			sp := species[gofakeit.Number(0, len(species)-1)]

			_, err := tx.Exec(ctx, `
				INSERT INTO pets (id, owner_id, name, species, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, id, ownerID, name, sp)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("pets seeded: %d/%d", end, count)
	}

	return nil
}

func seedSlots(ctx context.Context, pool *pgxpool.Pool, vetIDs []uuid.UUID, days int) error {
	log.Printf("seeding slots for %d veterinarians over %d days", len(vetIDs), days)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	total := 0
	dayStart := time.Now().Truncate(24 * time.Hour).Add(24 * time.Hour)

	for _, vetID := range vetIDs {
		for d := 0; d < days; d++ {
			// Morning and afternoon blocks, 30 minute slots.
			for _, hour := range []int{9, 10, 11, 14, 15, 16} {
				start := dayStart.AddDate(0, 0, d).Add(time.Duration(hour) * time.Hour)
				end := start.Add(30 * time.Minute)
				mode := modes[gofakeit.Number(0, len(modes)-1)]
				capacity := gofakeit.Number(1, 3)

				_, err := tx.Exec(ctx, `
					INSERT INTO slots (id, veterinarian_id, start_time, end_time, mode, capacity, booked_count, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, $6, 0, now(), now())
				`, uuid.New(), vetID, start, end, mode, capacity)
				if err != nil {
					return err
				}
				total++
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Printf("slots seeded: %d", total)
	return nil
}
