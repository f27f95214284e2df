package ports

import (
	"context"

	"github.com/fieldmark/fieldmark/internal/core/domain"
)

// PositionSource supplies device position fixes, either one-shot or as a
// continuous subscription. Watch's channel closes when ctx is cancelled,
// which is how a recording session deterministically unsubscribes.
type PositionSource interface {
	Current(ctx context.Context) (*domain.Coordinate, error)
	Watch(ctx context.Context) (<-chan domain.Coordinate, error)
}

// SyncTarget uploads one artifact to the remote endpoint for its kind.
// Failure must be observable and retryable; uploads are idempotent per id.
type SyncTarget interface {
	Upload(ctx context.Context, artifact *domain.CaptureArtifact) error
}

// EventPublisher publishes capture events to a message broker.
type EventPublisher interface {
	PublishRecordingUpdate(ctx context.Context, session *domain.BoundarySession) error
	PublishArtifactSynced(ctx context.Context, artifact *domain.CaptureArtifact) error
}

// EventSubscriber subscribes to capture events from a message broker.
type EventSubscriber interface {
	SubscribeArtifactSynced(ctx context.Context, handler func(ctx context.Context, artifact *domain.CaptureArtifact) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
