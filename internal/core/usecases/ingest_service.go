package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fieldmark/fieldmark/internal/core/domain"
	"github.com/fieldmark/fieldmark/internal/core/ports"
	"github.com/fieldmark/fieldmark/internal/pkg/metrics"
)

// IngestService is the hub intake for agent uploads. Intake is idempotent
// by artifact id so agents can re-send anything they are unsure about.
type IngestService struct {
	artifacts ports.ArtifactRepository
	fields    ports.FieldRepository
	publisher ports.EventPublisher
}

// NewIngestService creates a new IngestService. fields and publisher may be
// nil; boundary application and broker notifications are then skipped.
func NewIngestService(artifacts ports.ArtifactRepository, fields ports.FieldRepository, publisher ports.EventPublisher) *IngestService {
	return &IngestService{artifacts: artifacts, fields: fields, publisher: publisher}
}

// Ingest validates and stores one uploaded artifact. Boundary artifacts
// carrying a field id also update that field's geometry.
func (s *IngestService) Ingest(ctx context.Context, artifact *domain.CaptureArtifact) error {
	if artifact.ID == "" {
		return fmt.Errorf("ingest: artifact id must not be empty")
	}
	if !domain.ValidKind(artifact.Kind) {
		return fmt.Errorf("ingest %s: unknown artifact kind %q", artifact.ID, artifact.Kind)
	}
	if len(artifact.Payload) == 0 {
		return fmt.Errorf("ingest %s: empty payload", artifact.ID)
	}

	artifact.SyncState = domain.SyncSynced
	if err := s.artifacts.Upsert(ctx, artifact); err != nil {
		return fmt.Errorf("ingest %s: %w", artifact.ID, err)
	}
	metrics.ArtifactsIngested.WithLabelValues(string(artifact.Kind)).Inc()

	if artifact.Kind == domain.KindBoundary && s.fields != nil {
		if err := s.applyBoundary(ctx, artifact); err != nil {
			// The artifact is stored; geometry application is retried on
			// the next re-send.
			slog.Warn("apply boundary from artifact", "id", artifact.ID, "error", err)
		}
	}

	if s.publisher != nil {
		_ = s.publisher.PublishArtifactSynced(ctx, artifact)
	}

	slog.Debug("artifact ingested", "id", artifact.ID, "kind", artifact.Kind)
	return nil
}

// Get returns a stored artifact.
func (s *IngestService) Get(ctx context.Context, id string) (*domain.CaptureArtifact, error) {
	return s.artifacts.GetByID(ctx, id)
}

// List returns stored artifacts of one kind, newest first.
func (s *IngestService) List(ctx context.Context, kind domain.ArtifactKind, limit int) ([]domain.CaptureArtifact, error) {
	if kind != "" && !domain.ValidKind(kind) {
		return nil, fmt.Errorf("list: unknown artifact kind %q", kind)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.artifacts.List(ctx, kind, limit)
}

func (s *IngestService) applyBoundary(ctx context.Context, artifact *domain.CaptureArtifact) error {
	var session domain.BoundarySession
	if err := json.Unmarshal(artifact.Payload, &session); err != nil {
		return err
	}
	if session.FieldID == "" || len(session.Vertices) < 3 {
		return nil
	}
	return s.fields.UpdateBoundary(ctx, session.FieldID, session.Ring(), session.AreaAcres, session.PerimeterMeters)
}
