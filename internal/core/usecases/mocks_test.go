package usecases_test

import (
	"context"
	"sync"

	"github.com/fieldmark/fieldmark/internal/core/domain"
)

// memStore is an in-memory CaptureStore preserving insertion order.
type memStore struct {
	mu    sync.Mutex
	order []string
	items map[string]domain.CaptureArtifact
}

func newMemStore() *memStore {
	return &memStore{items: make(map[string]domain.CaptureArtifact)}
}

func (m *memStore) Put(ctx context.Context, artifact *domain.CaptureArtifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.items[artifact.ID]; ok {
		artifact.SyncState = existing.SyncState
		artifact.Attempts = existing.Attempts
	} else {
		m.order = append(m.order, artifact.ID)
	}
	m.items[artifact.ID] = *artifact
	return nil
}

func (m *memStore) Get(ctx context.Context, id string) (*domain.CaptureArtifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return nil, domain.ErrArtifactNotFound
	}
	return &a, nil
}

func (m *memStore) List(ctx context.Context, filter domain.ArtifactFilter) ([]domain.CaptureArtifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CaptureArtifact
	for _, id := range m.order {
		if a := m.items[id]; filter.Matches(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) mark(id string, state domain.SyncState, bumpAttempts bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return nil
	}
	a.SyncState = state
	if bumpAttempts {
		a.Attempts++
	}
	m.items[id] = a
	return nil
}

func (m *memStore) MarkSyncing(ctx context.Context, id string) error {
	return m.mark(id, domain.SyncSyncing, false)
}

func (m *memStore) MarkSynced(ctx context.Context, id string) error {
	return m.mark(id, domain.SyncSynced, false)
}

func (m *memStore) MarkFailed(ctx context.Context, id string) error {
	return m.mark(id, domain.SyncFailed, true)
}

func (m *memStore) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return nil
	}
	delete(m.items, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

type mockPositionSource struct {
	currentFn func(ctx context.Context) (*domain.Coordinate, error)
	watchFn   func(ctx context.Context) (<-chan domain.Coordinate, error)
}

func (m *mockPositionSource) Current(ctx context.Context) (*domain.Coordinate, error) {
	return m.currentFn(ctx)
}

func (m *mockPositionSource) Watch(ctx context.Context) (<-chan domain.Coordinate, error) {
	return m.watchFn(ctx)
}

type mockSyncTarget struct {
	uploadFn func(ctx context.Context, artifact *domain.CaptureArtifact) error
}

func (m *mockSyncTarget) Upload(ctx context.Context, artifact *domain.CaptureArtifact) error {
	return m.uploadFn(ctx, artifact)
}

type mockPublisher struct {
	recordingFn func(ctx context.Context, session *domain.BoundarySession) error
	syncedFn    func(ctx context.Context, artifact *domain.CaptureArtifact) error
}

func (m *mockPublisher) PublishRecordingUpdate(ctx context.Context, session *domain.BoundarySession) error {
	if m.recordingFn == nil {
		return nil
	}
	return m.recordingFn(ctx, session)
}

func (m *mockPublisher) PublishArtifactSynced(ctx context.Context, artifact *domain.CaptureArtifact) error {
	if m.syncedFn == nil {
		return nil
	}
	return m.syncedFn(ctx, artifact)
}
