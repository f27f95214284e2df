package ports

import (
	"context"

	"github.com/fieldmark/fieldmark/internal/core/domain"
)

// CaptureStore is the durable on-device artifact store. It must survive
// process restarts and long offline periods. Listings preserve insertion
// order within a kind; Mark transitions on unknown ids are silent no-ops
// because sync can race local deletion.
type CaptureStore interface {
	Put(ctx context.Context, artifact *domain.CaptureArtifact) error
	Get(ctx context.Context, id string) (*domain.CaptureArtifact, error)
	List(ctx context.Context, filter domain.ArtifactFilter) ([]domain.CaptureArtifact, error)
	MarkSyncing(ctx context.Context, id string) error
	MarkSynced(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
}

// ArtifactRepository persists synced artifacts on the hub.
type ArtifactRepository interface {
	Upsert(ctx context.Context, artifact *domain.CaptureArtifact) error
	GetByID(ctx context.Context, id string) (*domain.CaptureArtifact, error)
	List(ctx context.Context, kind domain.ArtifactKind, limit int) ([]domain.CaptureArtifact, error)
}

// FarmRepository persists farms.
type FarmRepository interface {
	Upsert(ctx context.Context, farm *domain.Farm) error
	GetByID(ctx context.Context, id string) (*domain.Farm, error)
	List(ctx context.Context) ([]domain.Farm, error)
}

// FieldRepository persists fields and their boundary geometry.
type FieldRepository interface {
	Upsert(ctx context.Context, field *domain.Field) error
	GetByID(ctx context.Context, id string) (*domain.Field, error)
	ListByFarm(ctx context.Context, farmID string) ([]domain.Field, error)
	FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Field, error)
	UpdateBoundary(ctx context.Context, fieldID string, ring []domain.GeoPoint, areaAcres, perimeterMeters float64) error
}
