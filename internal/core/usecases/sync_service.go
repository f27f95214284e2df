package usecases

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/fieldmark/fieldmark/internal/core/domain"
	"github.com/fieldmark/fieldmark/internal/core/ports"
	"github.com/fieldmark/fieldmark/internal/pkg/metrics"
)

const (
	syncBaseBackoff = 2 * time.Second
	syncMaxBackoff  = 5 * time.Minute
)

// SyncReport summarizes one drain cycle.
type SyncReport struct {
	Synced   int `json:"synced"`
	Failed   int `json:"failed"`
	Deferred int `json:"deferred"`
}

// SyncService drains pending and failed artifacts to the remote target in
// insertion order. Cycles run only while connectivity is reported up; a
// failed upload keeps its artifact in the store and defers the next attempt
// with exponential backoff and jitter.
type SyncService struct {
	store     ports.CaptureStore
	target    ports.SyncTarget
	publisher ports.EventPublisher

	// retainSynced keeps synced artifacts in the store instead of
	// removing them after upload.
	retainSynced bool

	baseBackoff time.Duration
	maxBackoff  time.Duration
	now         func() time.Time

	mu          sync.Mutex
	online      bool
	draining    bool
	nextAttempt map[string]time.Time

	trigger chan struct{}
}

func NewSyncService(store ports.CaptureStore, target ports.SyncTarget, publisher ports.EventPublisher, retainSynced bool) *SyncService {
	return &SyncService{
		store:        store,
		target:       target,
		publisher:    publisher,
		retainSynced: retainSynced,
		baseBackoff:  syncBaseBackoff,
		maxBackoff:   syncMaxBackoff,
		now:          time.Now,
		nextAttempt:  make(map[string]time.Time),
		trigger:      make(chan struct{}, 1),
	}
}

// SetOnline records the current connectivity view. A transition to online
// nudges the run loop so queued work drains promptly.
func (s *SyncService) SetOnline(online bool) {
	s.mu.Lock()
	wasOnline := s.online
	s.online = online
	s.mu.Unlock()

	if online && !wasOnline {
		slog.Info("connectivity restored, scheduling sync")
		s.TriggerSync()
	}
	if !online && wasOnline {
		slog.Info("connectivity lost, sync paused")
	}
}

// Online reports the last connectivity view set via SetOnline.
func (s *SyncService) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// TriggerSync requests a drain cycle without waiting for the next tick.
func (s *SyncService) TriggerSync() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run drains on a fixed interval and on explicit triggers until ctx ends.
func (s *SyncService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.trigger:
		}
		if report, err := s.SyncAll(ctx); err != nil {
			slog.Error("sync cycle failed", "error", err)
		} else if report.Synced > 0 || report.Failed > 0 {
			slog.Info("sync cycle done",
				"synced", report.Synced,
				"failed", report.Failed,
				"deferred", report.Deferred)
		}
	}
}

// SyncAll drains every pending and failed artifact whose backoff window has
// elapsed. It returns immediately when offline or when a drain is already
// running. A mid-cycle failure does not stop the cycle; remaining artifacts
// are still attempted.
func (s *SyncService) SyncAll(ctx context.Context) (SyncReport, error) {
	s.mu.Lock()
	if !s.online || s.draining {
		s.mu.Unlock()
		return SyncReport{}, nil
	}
	s.draining = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.draining = false
		s.mu.Unlock()
	}()

	started := s.now()
	defer func() {
		metrics.SyncCycleDuration.Observe(time.Since(started).Seconds())
	}()

	queue, err := s.store.List(ctx, domain.ArtifactFilter{
		SyncStates: []domain.SyncState{domain.SyncPending, domain.SyncFailed},
	})
	if err != nil {
		return SyncReport{}, err
	}

	var report SyncReport
	for i := range queue {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if !s.Online() {
			break
		}

		artifact := queue[i]
		if !s.due(artifact.ID) {
			report.Deferred++
			continue
		}

		if err := s.syncOne(ctx, &artifact); err != nil {
			report.Failed++
			slog.Warn("artifact sync failed",
				"id", artifact.ID,
				"kind", artifact.Kind,
				"attempts", artifact.Attempts+1,
				"error", err)
		} else {
			report.Synced++
		}
	}

	s.refreshPendingGauge(ctx)
	return report, nil
}

func (s *SyncService) syncOne(ctx context.Context, artifact *domain.CaptureArtifact) error {
	if err := s.store.MarkSyncing(ctx, artifact.ID); err != nil {
		return err
	}

	if err := s.target.Upload(ctx, artifact); err != nil {
		metrics.SyncAttempts.WithLabelValues(string(artifact.Kind), "failure").Inc()
		if markErr := s.store.MarkFailed(ctx, artifact.ID); markErr != nil {
			slog.Error("mark failed after upload error", "id", artifact.ID, "error", markErr)
		}
		s.deferAttempt(artifact.ID, artifact.Attempts+1)
		return err
	}

	metrics.SyncAttempts.WithLabelValues(string(artifact.Kind), "success").Inc()
	if err := s.store.MarkSynced(ctx, artifact.ID); err != nil {
		return err
	}
	s.clearBackoff(artifact.ID)

	if s.publisher != nil {
		_ = s.publisher.PublishArtifactSynced(ctx, artifact)
	}

	if !s.retainSynced {
		if err := s.store.Remove(ctx, artifact.ID); err != nil {
			slog.Warn("remove synced artifact", "id", artifact.ID, "error", err)
		}
	}
	return nil
}

func (s *SyncService) due(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.nextAttempt[id]
	return !ok || !s.now().Before(at)
}

func (s *SyncService) deferAttempt(id string, attempts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAttempt[id] = s.now().Add(s.backoff(attempts))
}

func (s *SyncService) clearBackoff(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nextAttempt, id)
}

// backoff returns base*2^(attempts-1) capped at the maximum, with the upper
// half jittered so a fleet of agents coming back online does not retry in
// lockstep.
func (s *SyncService) backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := s.baseBackoff
	for i := 1; i < attempts && d < s.maxBackoff; i++ {
		d *= 2
	}
	if d > s.maxBackoff {
		d = s.maxBackoff
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

func (s *SyncService) refreshPendingGauge(ctx context.Context) {
	pending, err := s.store.List(ctx, domain.ArtifactFilter{
		SyncStates: []domain.SyncState{domain.SyncPending, domain.SyncFailed},
	})
	if err != nil {
		return
	}
	metrics.ArtifactsPending.Set(float64(len(pending)))
}
