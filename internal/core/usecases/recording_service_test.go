package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/fieldmark/fieldmark/internal/core/domain"
	"github.com/fieldmark/fieldmark/internal/core/usecases"
	"github.com/fieldmark/fieldmark/internal/pkg/metrics"
)

func idleSource() *mockPositionSource {
	return &mockPositionSource{
		watchFn: func(ctx context.Context) (<-chan domain.Coordinate, error) {
			ch := make(chan domain.Coordinate)
			go func() {
				<-ctx.Done()
				close(ch)
			}()
			return ch, nil
		},
	}
}

func vertexFix(lat, lon float64) domain.Coordinate {
	acc := 4.0
	return domain.Coordinate{
		Latitude:       lat,
		Longitude:      lon,
		AccuracyMeters: &acc,
		CapturedAt:     time.Now(),
	}
}

func TestStart_RejectsWhileRecording(t *testing.T) {
	svc := usecases.NewRecordingService(idleSource(), nil, nil, 0)

	if err := svc.Start(context.Background(), "field-1"); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := svc.Start(context.Background(), "field-1"); !errors.Is(err, domain.ErrAlreadyRecording) {
		t.Fatalf("second Start: got %v, want ErrAlreadyRecording", err)
	}
	svc.Discard()
}

func TestStart_WatchErrorLeavesIdle(t *testing.T) {
	boom := errors.New("no gps permission")
	src := &mockPositionSource{
		watchFn: func(ctx context.Context) (<-chan domain.Coordinate, error) {
			return nil, boom
		},
	}
	svc := usecases.NewRecordingService(src, nil, nil, 0)

	if err := svc.Start(context.Background(), ""); !errors.Is(err, boom) {
		t.Fatalf("Start: got %v, want watch error", err)
	}
	if got := svc.Session().Status; got != domain.SessionIdle {
		t.Fatalf("status after failed Start = %q, want idle", got)
	}
}

func TestHandleFix_AppendsAndRecomputes(t *testing.T) {
	svc := usecases.NewRecordingService(idleSource(), nil, nil, 0)
	if err := svc.Start(context.Background(), "field-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Discard()

	// Roughly a 100 m square near Nairobi.
	svc.HandleFix(vertexFix(-1.2864, 36.8172))
	svc.HandleFix(vertexFix(-1.2864, 36.8181))
	if got := svc.Session().AreaAcres; got != 0 {
		t.Fatalf("area with 2 vertices = %v, want 0", got)
	}

	svc.HandleFix(vertexFix(-1.2855, 36.8181))
	svc.HandleFix(vertexFix(-1.2855, 36.8172))

	session := svc.Session()
	if len(session.Vertices) != 4 {
		t.Fatalf("vertices = %d, want 4", len(session.Vertices))
	}
	for i, v := range session.Vertices {
		if v.Sequence != i {
			t.Fatalf("vertex %d sequence = %d", i, v.Sequence)
		}
	}
	if session.AreaAcres <= 0 {
		t.Fatalf("area = %v, want > 0", session.AreaAcres)
	}
	if session.PerimeterMeters <= 0 {
		t.Fatalf("perimeter = %v, want > 0", session.PerimeterMeters)
	}
}

func TestHandleFix_DropsInaccurateFixes(t *testing.T) {
	svc := usecases.NewRecordingService(idleSource(), nil, nil, 20)
	if err := svc.Start(context.Background(), ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Discard()

	bad := vertexFix(-1.2864, 36.8172)
	*bad.AccuracyMeters = 55
	svc.HandleFix(bad)
	svc.HandleFix(vertexFix(-1.2864, 36.8172))

	if got := len(svc.Session().Vertices); got != 1 {
		t.Fatalf("vertices = %d, want 1 (inaccurate fix dropped)", got)
	}
}

func TestHandleFix_IgnoredWhenIdle(t *testing.T) {
	svc := usecases.NewRecordingService(idleSource(), nil, nil, 0)
	svc.HandleFix(vertexFix(-1.2864, 36.8172))
	if got := len(svc.Session().Vertices); got != 0 {
		t.Fatalf("vertices = %d, want 0", got)
	}
}

func TestStop_PersistsBoundaryArtifact(t *testing.T) {
	store := newMemStore()
	captures := usecases.NewCaptureService(store)
	svc := usecases.NewRecordingService(idleSource(), captures, nil, 0)

	if err := svc.Start(context.Background(), "field-9"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	svc.HandleFix(vertexFix(-1.2864, 36.8172))
	svc.HandleFix(vertexFix(-1.2864, 36.8181))
	svc.HandleFix(vertexFix(-1.2855, 36.8181))

	session, err := svc.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if session.Status != domain.SessionCompleted {
		t.Fatalf("status = %q, want completed", session.Status)
	}
	if session.CompletedAt == nil {
		t.Fatal("CompletedAt not set")
	}

	artifact, err := store.Get(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("stored artifact: %v", err)
	}
	if artifact.Kind != domain.KindBoundary {
		t.Fatalf("artifact kind = %q, want boundary", artifact.Kind)
	}
	if artifact.SyncState != domain.SyncPending {
		t.Fatalf("artifact state = %q, want pending", artifact.SyncState)
	}
}

func TestStop_WithoutRecording(t *testing.T) {
	svc := usecases.NewRecordingService(idleSource(), nil, nil, 0)
	if _, err := svc.Stop(context.Background()); !errors.Is(err, domain.ErrNotRecording) {
		t.Fatalf("Stop: got %v, want ErrNotRecording", err)
	}
}

func TestStop_CancelsWatch(t *testing.T) {
	watchDone := make(chan struct{})
	src := &mockPositionSource{
		watchFn: func(ctx context.Context) (<-chan domain.Coordinate, error) {
			ch := make(chan domain.Coordinate)
			go func() {
				<-ctx.Done()
				close(ch)
				close(watchDone)
			}()
			return ch, nil
		},
	}
	svc := usecases.NewRecordingService(src, nil, nil, 0)
	if err := svc.Start(context.Background(), ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	select {
	case <-watchDone:
	case <-time.After(time.Second):
		t.Fatal("watch context not cancelled on Stop")
	}
}

func TestDiscard_ResetsToIdle(t *testing.T) {
	svc := usecases.NewRecordingService(idleSource(), nil, nil, 0)
	if err := svc.Start(context.Background(), "field-2"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	svc.HandleFix(vertexFix(-1.2864, 36.8172))

	svc.Discard()

	session := svc.Session()
	if session.Status != domain.SessionIdle {
		t.Fatalf("status = %q, want idle", session.Status)
	}
	if len(session.Vertices) != 0 {
		t.Fatalf("vertices = %d, want 0", len(session.Vertices))
	}
	if session.AreaAcres != 0 || session.PerimeterMeters != 0 {
		t.Fatalf("geometry not cleared: area=%v perimeter=%v", session.AreaAcres, session.PerimeterMeters)
	}

	// A fresh Start must be possible after Discard.
	if err := svc.Start(context.Background(), "field-2"); err != nil {
		t.Fatalf("Start after Discard: %v", err)
	}
	svc.Discard()
}

func TestObserver_SeesEveryAcceptedFix(t *testing.T) {
	svc := usecases.NewRecordingService(idleSource(), nil, nil, 0)

	var counts []int
	svc.Subscribe(func(s domain.BoundarySession) {
		counts = append(counts, len(s.Vertices))
	})

	if err := svc.Start(context.Background(), ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	svc.HandleFix(vertexFix(-1.2864, 36.8172))
	svc.HandleFix(vertexFix(-1.2864, 36.8181))
	svc.Discard()

	want := []int{0, 1, 2, 0}
	if len(counts) != len(want) {
		t.Fatalf("observer calls = %d, want %d", len(counts), len(want))
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Fatalf("observer call %d saw %d vertices, want %d", i, counts[i], want[i])
		}
	}
}

func TestHandleFix_CountsAcceptedFixes(t *testing.T) {
	svc := usecases.NewRecordingService(idleSource(), nil, nil, 20)
	if err := svc.Start(context.Background(), ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Discard()

	before := testutil.ToFloat64(metrics.FixesCaptured)
	svc.HandleFix(vertexFix(-1.2864, 36.8172))
	bad := vertexFix(-1.2864, 36.8173)
	*bad.AccuracyMeters = 55
	svc.HandleFix(bad)

	if got := testutil.ToFloat64(metrics.FixesCaptured) - before; got != 1 {
		t.Fatalf("accepted fix counter advanced by %v, want 1", got)
	}
}

func TestPublish_SnapshotsInCaptureOrder(t *testing.T) {
	var mu sync.Mutex
	var seen []domain.BoundarySession
	pub := &mockPublisher{
		recordingFn: func(ctx context.Context, session *domain.BoundarySession) error {
			mu.Lock()
			seen = append(seen, *session)
			mu.Unlock()
			return nil
		},
	}
	svc := usecases.NewRecordingService(idleSource(), nil, pub, 0)
	if err := svc.Start(context.Background(), "field-3"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	svc.HandleFix(vertexFix(-1.2864, 36.8172))
	svc.HandleFix(vertexFix(-1.2864, 36.8181))
	svc.HandleFix(vertexFix(-1.2855, 36.8181))
	if _, err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// The publish loop runs behind the fix path; wait for the completed
	// snapshot to land before judging order.
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(seen)
		done := n > 0 && seen[n-1].Status == domain.SessionCompleted
		mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("completed snapshot never published")
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	prev := -1
	for i, s := range seen {
		if len(s.Vertices) < prev {
			t.Fatalf("publish %d went backwards: %d vertices after %d", i, len(s.Vertices), prev)
		}
		prev = len(s.Vertices)
	}
}
