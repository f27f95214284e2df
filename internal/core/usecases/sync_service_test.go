package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fieldmark/fieldmark/internal/core/domain"
	"github.com/fieldmark/fieldmark/internal/core/usecases"
)

func seedArtifacts(t *testing.T, store *memStore, ids ...string) {
	t.Helper()
	for _, id := range ids {
		err := store.Put(context.Background(), &domain.CaptureArtifact{
			ID:         id,
			Kind:       domain.KindLocation,
			Payload:    []byte(`{}`),
			CapturedAt: time.Now(),
			SyncState:  domain.SyncPending,
		})
		if err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
}

func TestSyncAll_OfflineIsNoop(t *testing.T) {
	store := newMemStore()
	seedArtifacts(t, store, "a")

	uploads := 0
	target := &mockSyncTarget{
		uploadFn: func(ctx context.Context, artifact *domain.CaptureArtifact) error {
			uploads++
			return nil
		},
	}
	svc := usecases.NewSyncService(store, target, nil, false)

	report, err := svc.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if uploads != 0 {
		t.Fatalf("uploads while offline = %d, want 0", uploads)
	}
	if report != (usecases.SyncReport{}) {
		t.Fatalf("report = %+v, want zero", report)
	}
}

func TestSyncAll_DrainsInInsertionOrder(t *testing.T) {
	store := newMemStore()
	seedArtifacts(t, store, "a", "b", "c")

	var uploaded []string
	target := &mockSyncTarget{
		uploadFn: func(ctx context.Context, artifact *domain.CaptureArtifact) error {
			uploaded = append(uploaded, artifact.ID)
			return nil
		},
	}
	svc := usecases.NewSyncService(store, target, nil, false)
	svc.SetOnline(true)

	report, err := svc.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if report.Synced != 3 || report.Failed != 0 {
		t.Fatalf("report = %+v, want 3 synced", report)
	}
	want := []string{"a", "b", "c"}
	for i := range want {
		if uploaded[i] != want[i] {
			t.Fatalf("upload order %v, want %v", uploaded, want)
		}
	}

	remaining, _ := store.List(context.Background(), domain.ArtifactFilter{})
	if len(remaining) != 0 {
		t.Fatalf("store holds %d artifacts after drain, want 0", len(remaining))
	}
}

func TestSyncAll_RetainSyncedKeepsArtifacts(t *testing.T) {
	store := newMemStore()
	seedArtifacts(t, store, "a")

	target := &mockSyncTarget{
		uploadFn: func(ctx context.Context, artifact *domain.CaptureArtifact) error {
			return nil
		},
	}
	svc := usecases.NewSyncService(store, target, nil, true)
	svc.SetOnline(true)

	if _, err := svc.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	artifact, err := store.Get(context.Background(), "a")
	if err != nil {
		t.Fatalf("retained artifact: %v", err)
	}
	if artifact.SyncState != domain.SyncSynced {
		t.Fatalf("state = %q, want synced", artifact.SyncState)
	}
}

func TestSyncAll_FailureKeepsArtifactAndBacksOff(t *testing.T) {
	store := newMemStore()
	seedArtifacts(t, store, "a", "b")

	var uploaded []string
	target := &mockSyncTarget{
		uploadFn: func(ctx context.Context, artifact *domain.CaptureArtifact) error {
			uploaded = append(uploaded, artifact.ID)
			if artifact.ID == "a" {
				return errors.New("hub unreachable")
			}
			return nil
		},
	}
	svc := usecases.NewSyncService(store, target, nil, false)
	svc.SetOnline(true)

	clock := time.Now()
	svc.SetClock(func() time.Time { return clock })

	report, err := svc.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if report.Failed != 1 || report.Synced != 1 {
		t.Fatalf("report = %+v, want 1 failed 1 synced", report)
	}

	// Failure keeps the artifact, marks it failed, counts the attempt.
	artifact, err := store.Get(context.Background(), "a")
	if err != nil {
		t.Fatalf("failed artifact: %v", err)
	}
	if artifact.SyncState != domain.SyncFailed {
		t.Fatalf("state = %q, want failed", artifact.SyncState)
	}
	if artifact.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", artifact.Attempts)
	}

	// Still inside the backoff window: deferred, not retried.
	report, err = svc.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if report.Deferred != 1 || report.Synced != 0 {
		t.Fatalf("report = %+v, want 1 deferred", report)
	}
	if len(uploaded) != 2 {
		t.Fatalf("uploads = %d, want 2 (no retry inside backoff)", len(uploaded))
	}

	// Past the worst-case backoff the retry fires and succeeds.
	clock = clock.Add(usecases.TestMaxBackoff + time.Second)
	report, err = svc.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if report.Synced != 1 {
		t.Fatalf("report = %+v, want retry synced", report)
	}
	if _, err := store.Get(context.Background(), "a"); !errors.Is(err, domain.ErrArtifactNotFound) {
		t.Fatalf("artifact still present after successful retry: %v", err)
	}
}

func TestSyncAll_PublishesSyncedEvents(t *testing.T) {
	store := newMemStore()
	seedArtifacts(t, store, "a")

	var published []string
	pub := &mockPublisher{
		syncedFn: func(ctx context.Context, artifact *domain.CaptureArtifact) error {
			published = append(published, artifact.ID)
			return nil
		},
	}
	target := &mockSyncTarget{
		uploadFn: func(ctx context.Context, artifact *domain.CaptureArtifact) error {
			return nil
		},
	}
	svc := usecases.NewSyncService(store, target, pub, false)
	svc.SetOnline(true)

	if _, err := svc.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if len(published) != 1 || published[0] != "a" {
		t.Fatalf("published = %v, want [a]", published)
	}
}

func TestSetOnline_TriggersOnlyOnTransition(t *testing.T) {
	svc := usecases.NewSyncService(newMemStore(), &mockSyncTarget{}, nil, false)

	svc.SetOnline(true)
	if !svc.TriggerQueued() {
		t.Fatal("offline→online transition did not trigger a cycle")
	}

	svc.SetOnline(true)
	if svc.TriggerQueued() {
		t.Fatal("repeated SetOnline(true) queued a trigger")
	}

	svc.SetOnline(false)
	if svc.Online() {
		t.Fatal("Online() = true after SetOnline(false)")
	}
}

func TestBackoff_GrowsAndCaps(t *testing.T) {
	svc := usecases.NewSyncService(newMemStore(), &mockSyncTarget{}, nil, false)

	for attempts := 1; attempts <= 12; attempts++ {
		full := usecases.TestBaseBackoff << (attempts - 1)
		if full > usecases.TestMaxBackoff || full <= 0 {
			full = usecases.TestMaxBackoff
		}
		got := svc.Backoff(attempts)
		if got < full/2 || got > full {
			t.Fatalf("backoff(%d) = %v, want within [%v, %v]", attempts, got, full/2, full)
		}
	}

	if got := svc.Backoff(100); got > usecases.TestMaxBackoff {
		t.Fatalf("backoff(100) = %v, exceeds cap %v", got, usecases.TestMaxBackoff)
	}
}

func TestRun_DrainsOnTrigger(t *testing.T) {
	store := newMemStore()
	seedArtifacts(t, store, "a")

	done := make(chan string, 1)
	target := &mockSyncTarget{
		uploadFn: func(ctx context.Context, artifact *domain.CaptureArtifact) error {
			done <- artifact.ID
			return nil
		},
	}
	svc := usecases.NewSyncService(store, target, nil, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx, time.Hour)

	svc.SetOnline(true)

	select {
	case id := <-done:
		if id != "a" {
			t.Fatalf("uploaded %q, want a", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("trigger did not start a drain cycle")
	}
}
