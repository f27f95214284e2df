package usecases

import "time"

// Hooks for external tests. Production code keeps the sync clock, the drain
// trigger, and the backoff schedule private; tests need all three.

const (
	TestBaseBackoff = syncBaseBackoff
	TestMaxBackoff  = syncMaxBackoff
)

// SetClock replaces the sync service's time source.
func (s *SyncService) SetClock(now func() time.Time) {
	s.now = now
}

// Backoff exposes the per-attempt retry delay.
func (s *SyncService) Backoff(attempts int) time.Duration {
	return s.backoff(attempts)
}

// TriggerQueued consumes a pending drain trigger, reporting whether one
// was queued.
func (s *SyncService) TriggerQueued() bool {
	select {
	case <-s.trigger:
		return true
	default:
		return false
	}
}
