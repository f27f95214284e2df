package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/fieldmark/fieldmark/internal/core/domain"
)

// ArtifactRepo implements ports.ArtifactRepository with pgx.
type ArtifactRepo struct {
	db *DB
}

// NewArtifactRepo creates a new ArtifactRepo.
func NewArtifactRepo(db *DB) *ArtifactRepo {
	return &ArtifactRepo{db: db}
}

// Upsert inserts or replaces a synced artifact by id.
func (r *ArtifactRepo) Upsert(ctx context.Context, a *domain.CaptureArtifact) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO capture_artifacts (id, kind, payload, captured_at, sync_state, attempts)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET kind = EXCLUDED.kind, payload = EXCLUDED.payload,
		    captured_at = EXCLUDED.captured_at,
		    sync_state = EXCLUDED.sync_state,
		    attempts = EXCLUDED.attempts,
		    received_at = now()
	`, a.ID, string(a.Kind), a.Payload, a.CapturedAt, string(a.SyncState), a.Attempts)
	return err
}

// GetByID returns one artifact.
func (r *ArtifactRepo) GetByID(ctx context.Context, id string) (*domain.CaptureArtifact, error) {
	var a domain.CaptureArtifact
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, kind, payload, captured_at, sync_state, attempts
		FROM capture_artifacts WHERE id = $1
	`, id).Scan(&a.ID, &a.Kind, &a.Payload, &a.CapturedAt, &a.SyncState, &a.Attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrArtifactNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns artifacts, optionally restricted to one kind, newest first.
func (r *ArtifactRepo) List(ctx context.Context, kind domain.ArtifactKind, limit int) ([]domain.CaptureArtifact, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, kind, payload, captured_at, sync_state, attempts
		FROM capture_artifacts
		WHERE ($1 = '' OR kind = $1)
		ORDER BY captured_at DESC
		LIMIT $2
	`, string(kind), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []domain.CaptureArtifact
	for rows.Next() {
		var a domain.CaptureArtifact
		if err := rows.Scan(&a.ID, &a.Kind, &a.Payload, &a.CapturedAt, &a.SyncState, &a.Attempts); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}
