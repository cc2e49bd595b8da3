package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgDirectory reads the pet and veterinarian reference tables. These belong to
// out-of-scope services; this core only ever looks them up.
type PgDirectory struct {
	pool *pgxpool.Pool
}

func NewPgDirectory(pool *pgxpool.Pool) *PgDirectory {
	return &PgDirectory{pool: pool}
}

func scanVet(row pgx.Row) (*Veterinarian, error) {
	var v Veterinarian

	err := row.Scan(
		&v.ID,
		&v.Name,
		&v.Specialization,
		&v.ClinicAddress,
		&v.TeleconsultAvailable,
		&v.ConsultationFee,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVetNotFound
		}
		return nil, err
	}

	return &v, nil
}

func (d *PgDirectory) GetPet(ctx context.Context, id uuid.UUID) (*Pet, error) {
	var p Pet

	err := d.pool.QueryRow(ctx, `
		SELECT id, owner_id, name, species
		FROM pets
		WHERE id = $1
	`, id).Scan(&p.ID, &p.OwnerID, &p.Name, &p.Species)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPetNotFound
		}
		return nil, err
	}

	return &p, nil
}

func (d *PgDirectory) GetVeterinarian(ctx context.Context, id uuid.UUID) (*Veterinarian, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT id, name, specialization, clinic_address, teleconsult_available, consultation_fee
		FROM veterinarians
		WHERE id = $1
	`, id)
	return scanVet(row)
}

func (d *PgDirectory) ListVeterinarians(ctx context.Context, f VetFilter) ([]Veterinarian, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, name, specialization, clinic_address, teleconsult_available, consultation_fee
		FROM veterinarians
		WHERE ($1::text IS NULL OR specialization ILIKE $1)
		  AND ($2::text IS NULL OR clinic_address ILIKE '%' || $2 || '%')
		  AND (NOT $3 OR teleconsult_available)
		ORDER BY name ASC
	`, f.Specialization, f.Location, f.TeleconsultOnly)
	if err != nil {
		return nil, fmt.Errorf("list veterinarians: %w", err)
	}
	defer rows.Close()

	var result []Veterinarian
	for rows.Next() {
		v, err := scanVet(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
