package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fieldmark/fieldmark/internal/core/domain"
	"github.com/fieldmark/fieldmark/internal/core/ports"
	"github.com/fieldmark/fieldmark/internal/pkg/geospatial"
	"github.com/fieldmark/fieldmark/internal/pkg/metrics"
)

// FieldService handles the hub-side farm and field registry.
type FieldService struct {
	farms  ports.FarmRepository
	fields ports.FieldRepository
	cache  ports.CacheService
}

// NewFieldService creates a new FieldService. cache may be nil.
func NewFieldService(farms ports.FarmRepository, fields ports.FieldRepository, cache ports.CacheService) *FieldService {
	return &FieldService{farms: farms, fields: fields, cache: cache}
}

// CreateFarm registers a farm, validating its location.
func (s *FieldService) CreateFarm(ctx context.Context, farm *domain.Farm) error {
	if farm.Name == "" {
		return fmt.Errorf("farm name must not be empty")
	}
	if err := domain.ValidateLatLon(farm.Location.Lat, farm.Location.Lon); err != nil {
		return err
	}
	if farm.ID == "" {
		farm.ID = uuid.NewString()
	}
	if farm.CreatedAt.IsZero() {
		farm.CreatedAt = time.Now()
	}
	return s.farms.Upsert(ctx, farm)
}

// GetFarm returns a single farm.
func (s *FieldService) GetFarm(ctx context.Context, id string) (*domain.Farm, error) {
	return s.farms.GetByID(ctx, id)
}

// ListFarms returns all registered farms.
func (s *FieldService) ListFarms(ctx context.Context) ([]domain.Farm, error) {
	return s.farms.List(ctx)
}

// CreateField registers a field under a farm. When a boundary ring is given
// its area and perimeter are computed server-side; client-reported geometry
// is ignored.
func (s *FieldService) CreateField(ctx context.Context, field *domain.Field) error {
	if field.Name == "" {
		return fmt.Errorf("field name must not be empty")
	}
	if _, err := s.farms.GetByID(ctx, field.FarmID); err != nil {
		return fmt.Errorf("farm %s: %w", field.FarmID, err)
	}
	if err := domain.ValidateLatLon(field.Location.Lat, field.Location.Lon); err != nil {
		return err
	}
	if field.ID == "" {
		field.ID = uuid.NewString()
	}
	if field.CreatedAt.IsZero() {
		field.CreatedAt = time.Now()
	}
	if len(field.Boundary) > 0 {
		field.AreaAcres = geospatial.PolygonAreaAcres(field.Boundary)
		field.PerimeterMeters = geospatial.PolygonPerimeterMeters(field.Boundary)
	}
	if err := s.fields.Upsert(ctx, field); err != nil {
		return err
	}
	s.invalidateField(ctx, field.ID)
	return nil
}

// GetField returns a single field, read through the cache.
func (s *FieldService) GetField(ctx context.Context, id string) (*domain.Field, error) {
	cacheKey := "fields:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var field domain.Field
			if err := json.Unmarshal(data, &field); err == nil {
				metrics.CacheHits.WithLabelValues("field").Inc()
				return &field, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("field").Inc()
	}

	field, err := s.fields.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(field); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}
	return field, nil
}

// ListFields returns the fields of one farm.
func (s *FieldService) ListFields(ctx context.Context, farmID string) ([]domain.Field, error) {
	return s.fields.ListByFarm(ctx, farmID)
}

// FindNearby returns fields within radiusMeters of the given point, closest
// first.
func (s *FieldService) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Field, error) {
	if err := domain.ValidateLatLon(lat, lon); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	cacheKey := fmt.Sprintf("fields:nearby:%.4f:%.4f:%.0f:%d", lat, lon, radiusMeters, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var fields []domain.Field
			if err := json.Unmarshal(data, &fields); err == nil {
				metrics.CacheHits.WithLabelValues("fields_nearby").Inc()
				return fields, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("fields_nearby").Inc()
	}

	fields, err := s.fields.FindNearby(ctx, lat, lon, radiusMeters, limit)
	if err != nil {
		return nil, err
	}

	// Boundaries change rarely; five minutes is plenty.
	if s.cache != nil {
		if data, err := json.Marshal(fields); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}
	return fields, nil
}

// ApplyBoundary replaces a field's boundary with a recorded ring and
// recomputes its geometry.
func (s *FieldService) ApplyBoundary(ctx context.Context, fieldID string, ring []domain.GeoPoint) error {
	if len(ring) < 3 {
		return fmt.Errorf("boundary needs at least 3 vertices, got %d", len(ring))
	}
	for _, p := range ring {
		if err := domain.ValidateLatLon(p.Lat, p.Lon); err != nil {
			return err
		}
	}

	area := geospatial.PolygonAreaAcres(ring)
	perimeter := geospatial.PolygonPerimeterMeters(ring)
	if err := s.fields.UpdateBoundary(ctx, fieldID, ring, area, perimeter); err != nil {
		return err
	}
	s.invalidateField(ctx, fieldID)
	return nil
}

// InvalidateField drops any cached entry for a field whose geometry changed
// outside this service's own write path, such as a boundary artifact arriving
// through the broker.
func (s *FieldService) InvalidateField(ctx context.Context, id string) {
	s.invalidateField(ctx, id)
}

func (s *FieldService) invalidateField(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, "fields:id:"+id)
}
