package usecases

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldmark/fieldmark/internal/core/domain"
	"github.com/fieldmark/fieldmark/internal/core/ports"
	"github.com/fieldmark/fieldmark/internal/pkg/geospatial"
	"github.com/fieldmark/fieldmark/internal/pkg/metrics"
)

// RecordingObserver receives a session snapshot after every accepted fix and
// on every lifecycle transition.
type RecordingObserver func(domain.BoundarySession)

// RecordingService runs the boundary recording state machine:
// idle → recording → completed, with discard returning to idle from any
// non-idle state. While recording it consumes a position subscription,
// appends vertices, and recomputes area and perimeter after every append.
type RecordingService struct {
	source    ports.PositionSource
	captures  *CaptureService
	publisher ports.EventPublisher

	// Fixes worse than this accuracy are dropped while recording.
	// Zero accepts everything.
	maxAccuracyMeters float64

	mu        sync.Mutex
	session   domain.BoundarySession
	cancel    context.CancelFunc
	observers []RecordingObserver

	// updates feeds a single publish loop so broker subscribers see
	// snapshots in the order they were taken. Nil when publisher is nil.
	updates chan domain.BoundarySession
}

// NewRecordingService creates a RecordingService. captures may be nil when
// completed sessions should not be persisted (e.g. dry runs); publisher may
// be nil when no broker is attached.
func NewRecordingService(source ports.PositionSource, captures *CaptureService, publisher ports.EventPublisher, maxAccuracyMeters float64) *RecordingService {
	s := &RecordingService{
		source:            source,
		captures:          captures,
		publisher:         publisher,
		maxAccuracyMeters: maxAccuracyMeters,
		session:           domain.BoundarySession{Status: domain.SessionIdle},
	}
	if publisher != nil {
		s.updates = make(chan domain.BoundarySession, 64)
		go s.publishLoop()
	}
	return s
}

// publishLoop drains snapshots to the broker one at a time. A single
// consumer keeps subscriber-visible updates in capture order.
func (s *RecordingService) publishLoop() {
	for snapshot := range s.updates {
		_ = s.publisher.PublishRecordingUpdate(context.Background(), &snapshot)
	}
}

// Subscribe registers an observer for session snapshots.
func (s *RecordingService) Subscribe(obs RecordingObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

// Start begins continuous position capture for a new session. It fails with
// ErrAlreadyRecording if a recording is in progress. Any prior vertex list
// is cleared.
func (s *RecordingService) Start(ctx context.Context, fieldID string) error {
	s.mu.Lock()
	if s.session.Status == domain.SessionRecording {
		s.mu.Unlock()
		return domain.ErrAlreadyRecording
	}

	watchCtx, cancel := context.WithCancel(ctx)
	fixes, err := s.source.Watch(watchCtx)
	if err != nil {
		cancel()
		s.mu.Unlock()
		return err
	}

	s.cancel = cancel
	s.session = domain.BoundarySession{
		ID:        uuid.NewString(),
		FieldID:   fieldID,
		Status:    domain.SessionRecording,
		StartedAt: time.Now(),
	}
	snapshot := s.snapshotLocked()
	s.enqueueLocked(snapshot)
	s.mu.Unlock()

	go func() {
		for fix := range fixes {
			s.HandleFix(fix)
		}
	}()

	s.notify(snapshot)
	return nil
}

// HandleFix appends one fix as a boundary vertex. It is a no-op unless a
// recording is in progress, and is safe to call rapidly: each invocation does
// O(vertex count) geometry work, bounded by realistic boundary sizes.
func (s *RecordingService) HandleFix(fix domain.Coordinate) {
	s.mu.Lock()
	if s.session.Status != domain.SessionRecording {
		s.mu.Unlock()
		return
	}

	if s.maxAccuracyMeters > 0 && fix.AccuracyMeters != nil && *fix.AccuracyMeters > s.maxAccuracyMeters {
		s.mu.Unlock()
		metrics.FixesRejected.Inc()
		return
	}

	if fix.CapturedAt.IsZero() {
		fix.CapturedAt = time.Now()
	}
	s.session.Vertices = append(s.session.Vertices, domain.BoundaryVertex{
		Coordinate: fix,
		Sequence:   len(s.session.Vertices),
	})
	s.recomputeLocked()
	snapshot := s.snapshotLocked()
	s.enqueueLocked(snapshot)
	s.mu.Unlock()

	metrics.FixesCaptured.Inc()
	s.notify(snapshot)
}

// Stop ends the recording and hands the completed session to the capture
// store as a boundary artifact. Sessions with fewer than three vertices
// complete gracefully with zero geometry; the caller may discard them.
func (s *RecordingService) Stop(ctx context.Context) (domain.BoundarySession, error) {
	s.mu.Lock()
	if s.session.Status != domain.SessionRecording {
		s.mu.Unlock()
		return domain.BoundarySession{}, domain.ErrNotRecording
	}

	s.cancel()
	s.cancel = nil

	now := time.Now()
	s.session.Status = domain.SessionCompleted
	s.session.CompletedAt = &now
	s.recomputeLocked()
	snapshot := s.snapshotLocked()
	s.enqueueLocked(snapshot)
	s.mu.Unlock()

	metrics.BoundaryVertices.Observe(float64(len(snapshot.Vertices)))

	if s.captures != nil {
		if _, err := s.captures.CaptureBoundary(ctx, snapshot); err != nil {
			return snapshot, err
		}
	}

	s.notify(snapshot)
	return snapshot, nil
}

// Discard clears vertices and geometry and returns to idle from any
// non-idle state. Discarding while recording also stops the subscription.
func (s *RecordingService) Discard() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.session = domain.BoundarySession{Status: domain.SessionIdle}
	snapshot := s.snapshotLocked()
	s.enqueueLocked(snapshot)
	s.mu.Unlock()

	s.notify(snapshot)
}

// Session returns a snapshot of the current session.
func (s *RecordingService) Session() domain.BoundarySession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *RecordingService) recomputeLocked() {
	ring := s.session.Ring()
	s.session.AreaAcres = geospatial.PolygonAreaAcres(ring)
	s.session.PerimeterMeters = geospatial.PolygonPerimeterMeters(ring)
}

func (s *RecordingService) snapshotLocked() domain.BoundarySession {
	snapshot := s.session
	snapshot.Vertices = append([]domain.BoundaryVertex(nil), s.session.Vertices...)
	return snapshot
}

// enqueueLocked hands a snapshot to the publish loop without blocking the
// fix path. When the buffer is full the oldest snapshot is dropped so the
// newest state always lands.
func (s *RecordingService) enqueueLocked(snapshot domain.BoundarySession) {
	if s.updates == nil {
		return
	}
	for {
		select {
		case s.updates <- snapshot:
			return
		default:
			select {
			case <-s.updates:
			default:
			}
		}
	}
}

func (s *RecordingService) notify(snapshot domain.BoundarySession) {
	s.mu.Lock()
	observers := append([]RecordingObserver(nil), s.observers...)
	s.mu.Unlock()

	for _, obs := range observers {
		obs(snapshot)
	}
}
