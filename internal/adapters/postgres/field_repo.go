package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fieldmark/fieldmark/internal/core/domain"
)

// FieldRepo implements ports.FieldRepository with pgx. The reference point
// lives in a PostGIS geography column for proximity queries; the boundary
// ring is stored as JSONB alongside its precomputed geometry.
type FieldRepo struct {
	db *DB
}

// NewFieldRepo creates a new FieldRepo.
func NewFieldRepo(db *DB) *FieldRepo {
	return &FieldRepo{db: db}
}

// Upsert inserts or updates a field.
func (r *FieldRepo) Upsert(ctx context.Context, f *domain.Field) error {
	boundary, err := json.Marshal(f.Boundary)
	if err != nil {
		return fmt.Errorf("encode boundary: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO fields (id, farm_id, name, location, boundary, area_acres, perimeter_meters, created_at)
		VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, location = EXCLUDED.location,
		    boundary = EXCLUDED.boundary,
		    area_acres = EXCLUDED.area_acres,
		    perimeter_meters = EXCLUDED.perimeter_meters
	`, f.ID, f.FarmID, f.Name, f.Location.Lon, f.Location.Lat,
		boundary, f.AreaAcres, f.PerimeterMeters, f.CreatedAt)
	return err
}

// GetByID returns one field.
func (r *FieldRepo) GetByID(ctx context.Context, id string) (*domain.Field, error) {
	f, err := scanField(r.db.Pool.QueryRow(ctx, `
		SELECT id, farm_id, name,
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       COALESCE(boundary, '[]'), area_acres, perimeter_meters, created_at
		FROM fields WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("field %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ListByFarm returns the fields of one farm ordered by name.
func (r *FieldRepo) ListByFarm(ctx context.Context, farmID string) ([]domain.Field, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, farm_id, name,
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       COALESCE(boundary, '[]'), area_acres, perimeter_meters, created_at
		FROM fields WHERE farm_id = $1 ORDER BY name
	`, farmID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFields(rows, false)
}

// FindNearby returns fields within radiusMeters using PostGIS ST_DWithin,
// closest first.
func (r *FieldRepo) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Field, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, farm_id, name,
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       COALESCE(boundary, '[]'), area_acres, perimeter_meters, created_at,
		       ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) as distance
		FROM fields
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY distance
		LIMIT $4
	`, lon, lat, radiusMeters, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFields(rows, true)
}

// UpdateBoundary replaces a field's boundary ring and geometry.
func (r *FieldRepo) UpdateBoundary(ctx context.Context, fieldID string, ring []domain.GeoPoint, areaAcres, perimeterMeters float64) error {
	boundary, err := json.Marshal(ring)
	if err != nil {
		return fmt.Errorf("encode boundary: %w", err)
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE fields
		SET boundary = $2, area_acres = $3, perimeter_meters = $4
		WHERE id = $1
	`, fieldID, boundary, areaAcres, perimeterMeters)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("field %s not found", fieldID)
	}
	return nil
}

func scanField(row pgx.Row) (*domain.Field, error) {
	var f domain.Field
	var boundary []byte
	if err := row.Scan(
		&f.ID, &f.FarmID, &f.Name,
		&f.Location.Lat, &f.Location.Lon,
		&boundary, &f.AreaAcres, &f.PerimeterMeters, &f.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(boundary, &f.Boundary); err != nil {
		return nil, fmt.Errorf("decode boundary: %w", err)
	}
	return &f, nil
}

func collectFields(rows pgx.Rows, withDistance bool) ([]domain.Field, error) {
	var fields []domain.Field
	for rows.Next() {
		var f domain.Field
		var boundary []byte
		var dist float64

		dest := []any{
			&f.ID, &f.FarmID, &f.Name,
			&f.Location.Lat, &f.Location.Lon,
			&boundary, &f.AreaAcres, &f.PerimeterMeters, &f.CreatedAt,
		}
		if withDistance {
			dest = append(dest, &dist)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(boundary, &f.Boundary); err != nil {
			return nil, fmt.Errorf("decode boundary: %w", err)
		}
		if withDistance {
			d := dist
			f.Distance = &d
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}
