package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fieldmark/fieldmark/internal/core/domain"
	"github.com/fieldmark/fieldmark/internal/core/ports"
	"github.com/fieldmark/fieldmark/internal/pkg/metrics"
)

// CaptureService writes capture artifacts to the durable offline store and
// keeps the pending gauge current. Every capture lands in the store before
// any sync attempt is made.
type CaptureService struct {
	store ports.CaptureStore
}

func NewCaptureService(store ports.CaptureStore) *CaptureService {
	return &CaptureService{store: store}
}

// Put persists an artifact, assigning an id and pending state when absent.
// Re-putting an existing id overwrites the payload without resetting sync
// progress; the store owns that rule.
func (s *CaptureService) Put(ctx context.Context, artifact *domain.CaptureArtifact) error {
	if !domain.ValidKind(artifact.Kind) {
		return fmt.Errorf("capture %q: unknown artifact kind", artifact.Kind)
	}
	if artifact.ID == "" {
		artifact.ID = uuid.NewString()
	}
	if artifact.SyncState == "" {
		artifact.SyncState = domain.SyncPending
	}

	if err := s.store.Put(ctx, artifact); err != nil {
		return fmt.Errorf("capture %s: %w", artifact.ID, err)
	}

	slog.Debug("artifact captured", "id", artifact.ID, "kind", artifact.Kind)
	s.refreshPendingGauge(ctx)
	return nil
}

// CaptureLocation validates and stores a single coordinate capture.
func (s *CaptureService) CaptureLocation(ctx context.Context, c domain.Coordinate) (*domain.CaptureArtifact, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	artifact, err := domain.NewLocationArtifact(c)
	if err != nil {
		return nil, err
	}
	if err := s.Put(ctx, artifact); err != nil {
		return nil, err
	}
	return artifact, nil
}

// CaptureBoundary stores a completed recording session. The artifact reuses
// the session id so a re-stopped session overwrites rather than duplicates.
func (s *CaptureService) CaptureBoundary(ctx context.Context, session domain.BoundarySession) (*domain.CaptureArtifact, error) {
	artifact, err := domain.NewBoundaryArtifact(session)
	if err != nil {
		return nil, err
	}
	if err := s.Put(ctx, artifact); err != nil {
		return nil, err
	}
	return artifact, nil
}

// CaptureMedia stores a photo or voice note reference with its metadata.
func (s *CaptureService) CaptureMedia(ctx context.Context, kind domain.ArtifactKind, payload domain.MediaPayload) (*domain.CaptureArtifact, error) {
	if kind != domain.KindPhoto && kind != domain.KindVoiceNote {
		return nil, fmt.Errorf("capture %q: not a media kind", kind)
	}
	artifact, err := domain.NewMediaArtifact(kind, payload)
	if err != nil {
		return nil, err
	}
	if err := s.Put(ctx, artifact); err != nil {
		return nil, err
	}
	return artifact, nil
}

// Get returns a stored artifact by id.
func (s *CaptureService) Get(ctx context.Context, id string) (*domain.CaptureArtifact, error) {
	return s.store.Get(ctx, id)
}

// List returns stored artifacts matching the filter, in insertion order.
func (s *CaptureService) List(ctx context.Context, filter domain.ArtifactFilter) ([]domain.CaptureArtifact, error) {
	return s.store.List(ctx, filter)
}

// Remove deletes an artifact from the store.
func (s *CaptureService) Remove(ctx context.Context, id string) error {
	if err := s.store.Remove(ctx, id); err != nil {
		return err
	}
	s.refreshPendingGauge(ctx)
	return nil
}

func (s *CaptureService) refreshPendingGauge(ctx context.Context) {
	pending, err := s.store.List(ctx, domain.ArtifactFilter{
		SyncStates: []domain.SyncState{domain.SyncPending, domain.SyncFailed},
	})
	if err != nil {
		return
	}
	metrics.ArtifactsPending.Set(float64(len(pending)))
}
