package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fieldmark/fieldmark/internal/core/domain"
)

// FarmRepo implements ports.FarmRepository with pgx.
type FarmRepo struct {
	db *DB
}

// NewFarmRepo creates a new FarmRepo.
func NewFarmRepo(db *DB) *FarmRepo {
	return &FarmRepo{db: db}
}

// Upsert inserts or updates a farm.
func (r *FarmRepo) Upsert(ctx context.Context, f *domain.Farm) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO farms (id, name, owner_name, location, created_at)
		VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, owner_name = EXCLUDED.owner_name,
		    location = EXCLUDED.location
	`, f.ID, f.Name, f.OwnerName, f.Location.Lon, f.Location.Lat, f.CreatedAt)
	return err
}

// GetByID returns one farm.
func (r *FarmRepo) GetByID(ctx context.Context, id string) (*domain.Farm, error) {
	var f domain.Farm
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(owner_name, ''),
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       created_at
		FROM farms WHERE id = $1
	`, id).Scan(&f.ID, &f.Name, &f.OwnerName, &f.Location.Lat, &f.Location.Lon, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("farm %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// List returns all farms ordered by name.
func (r *FarmRepo) List(ctx context.Context) ([]domain.Farm, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, COALESCE(owner_name, ''),
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       created_at
		FROM farms ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var farms []domain.Farm
	for rows.Next() {
		var f domain.Farm
		if err := rows.Scan(&f.ID, &f.Name, &f.OwnerName, &f.Location.Lat, &f.Location.Lon, &f.CreatedAt); err != nil {
			return nil, err
		}
		farms = append(farms, f)
	}
	return farms, rows.Err()
}
