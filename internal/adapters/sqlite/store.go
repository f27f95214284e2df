// Package sqlite implements the on-device capture store on an embedded
// SQLite database so captures survive restarts and long offline periods.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fieldmark/fieldmark/internal/core/domain"
)

// artifactRecord is the persisted row shape. Seq preserves insertion order
// across restarts; drain cycles rely on it.
type artifactRecord struct {
	Seq        int64  `gorm:"primaryKey;autoIncrement"`
	ID         string `gorm:"uniqueIndex;size:64"`
	Kind       string `gorm:"index;size:16"`
	Payload    []byte
	CapturedAt time.Time
	SyncState  string `gorm:"index;size:16"`
	Attempts   int
}

func (artifactRecord) TableName() string { return "capture_artifacts" }

// Store is a CaptureStore backed by a local SQLite file.
type Store struct {
	db *gorm.DB
}

// New opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for an ephemeral store.
func New(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open capture store %s: %w", path, err)
	}
	if err := db.AutoMigrate(&artifactRecord{}); err != nil {
		return nil, fmt.Errorf("migrate capture store: %w", err)
	}
	return &Store{db: db}, nil
}

// Put inserts or overwrites an artifact. Overwrites keep the existing sync
// state and attempt count; the payload is the only thing a re-capture may
// change.
func (s *Store) Put(ctx context.Context, artifact *domain.CaptureArtifact) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing artifactRecord
		err := tx.Where("id = ?", artifact.ID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&artifactRecord{
				ID:         artifact.ID,
				Kind:       string(artifact.Kind),
				Payload:    artifact.Payload,
				CapturedAt: artifact.CapturedAt,
				SyncState:  string(artifact.SyncState),
				Attempts:   artifact.Attempts,
			}).Error
		case err != nil:
			return err
		}

		return tx.Model(&artifactRecord{}).Where("id = ?", artifact.ID).Updates(map[string]any{
			"kind":        string(artifact.Kind),
			"payload":     artifact.Payload,
			"captured_at": artifact.CapturedAt,
		}).Error
	})
}

// Get returns one artifact by id, or domain.ErrArtifactNotFound.
func (s *Store) Get(ctx context.Context, id string) (*domain.CaptureArtifact, error) {
	var rec artifactRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrArtifactNotFound
	}
	if err != nil {
		return nil, err
	}
	artifact := toDomain(rec)
	return &artifact, nil
}

// List returns artifacts matching the filter in insertion order.
func (s *Store) List(ctx context.Context, filter domain.ArtifactFilter) ([]domain.CaptureArtifact, error) {
	q := s.db.WithContext(ctx).Order("seq asc")
	if filter.Kind != "" {
		q = q.Where("kind = ?", string(filter.Kind))
	}
	if len(filter.SyncStates) > 0 {
		states := make([]string, len(filter.SyncStates))
		for i, st := range filter.SyncStates {
			states[i] = string(st)
		}
		q = q.Where("sync_state IN ?", states)
	}

	var recs []artifactRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.CaptureArtifact, len(recs))
	for i, rec := range recs {
		out[i] = toDomain(rec)
	}
	return out, nil
}

// MarkSyncing flags an artifact as being uploaded. Unknown ids are no-ops.
func (s *Store) MarkSyncing(ctx context.Context, id string) error {
	return s.setState(ctx, id, domain.SyncSyncing, false)
}

// MarkSynced flags an artifact as uploaded.
func (s *Store) MarkSynced(ctx context.Context, id string) error {
	return s.setState(ctx, id, domain.SyncSynced, false)
}

// MarkFailed flags an artifact as failed and counts the attempt.
func (s *Store) MarkFailed(ctx context.Context, id string) error {
	return s.setState(ctx, id, domain.SyncFailed, true)
}

// Remove deletes an artifact. Unknown ids are no-ops.
func (s *Store) Remove(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&artifactRecord{}).Error
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) setState(ctx context.Context, id string, state domain.SyncState, bumpAttempts bool) error {
	updates := map[string]any{"sync_state": string(state)}
	if bumpAttempts {
		updates["attempts"] = gorm.Expr("attempts + 1")
	}
	return s.db.WithContext(ctx).
		Model(&artifactRecord{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func toDomain(rec artifactRecord) domain.CaptureArtifact {
	return domain.CaptureArtifact{
		ID:         rec.ID,
		Kind:       domain.ArtifactKind(rec.Kind),
		Payload:    rec.Payload,
		CapturedAt: rec.CapturedAt,
		SyncState:  domain.SyncState(rec.SyncState),
		Attempts:   rec.Attempts,
	}
}
