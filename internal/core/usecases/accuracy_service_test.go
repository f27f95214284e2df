package usecases_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/fieldmark/fieldmark/internal/core/domain"
	"github.com/fieldmark/fieldmark/internal/core/usecases"
)

func fix(lat, lon, accuracy float64) domain.Coordinate {
	return domain.Coordinate{
		Latitude:       lat,
		Longitude:      lon,
		AccuracyMeters: &accuracy,
		CapturedAt:     time.Now(),
	}
}

func TestClassify_Buckets(t *testing.T) {
	svc := usecases.NewAccuracyService(2)

	tests := []struct {
		accuracy float64
		level    domain.AccuracyLevel
	}{
		{3, domain.AccuracyExcellent},
		{5, domain.AccuracyExcellent},
		{8, domain.AccuracyGood},
		{15, domain.AccuracyFair},
		{35, domain.AccuracyPoor},
		{80, domain.AccuracyUnacceptable},
	}
	for _, tt := range tests {
		got := svc.Classify(fix(-1.2864, 36.8172, tt.accuracy))
		if got.Level != tt.level {
			t.Errorf("Classify(%vm).Level = %s, want %s", tt.accuracy, got.Level, tt.level)
		}
		if got.Confidence < 0 || got.Confidence > 1 {
			t.Errorf("Classify(%vm).Confidence = %v, outside [0,1]", tt.accuracy, got.Confidence)
		}
	}
}

func TestClassify_ConfidenceMonotone(t *testing.T) {
	svc := usecases.NewAccuracyService(2)
	prev := 2.0
	for _, acc := range []float64{1, 5, 10, 20, 50, 100, 500} {
		c := svc.Classify(fix(0, 0, acc)).Confidence
		if c >= prev {
			t.Errorf("confidence not strictly decreasing at %vm: %v >= %v", acc, c, prev)
		}
		prev = c
	}
}

func TestClassify_MissingAccuracyIsUnacceptable(t *testing.T) {
	svc := usecases.NewAccuracyService(2)
	got := svc.Classify(domain.Coordinate{Latitude: 0, Longitude: 0})
	if got.Level != domain.AccuracyUnacceptable {
		t.Errorf("missing accuracy classified %s, want unacceptable", got.Level)
	}
}

func TestImprove_InsufficientFixes(t *testing.T) {
	svc := usecases.NewAccuracyService(2)
	_, err := svc.Improve([]domain.Coordinate{fix(-1.2864, 36.8172, 5)})
	if !errors.Is(err, domain.ErrInsufficientFixes) {
		t.Errorf("got %v, want ErrInsufficientFixes", err)
	}
}

func TestImprove_RejectsOutlierAndGainsAccuracy(t *testing.T) {
	svc := usecases.NewAccuracyService(2)

	// Four tight readings around a point plus one 50 m-accuracy fix offset
	// ~55 m away. The outlier must be dropped and the result must never
	// claim worse than the best single reading.
	base := domain.GeoPoint{Lat: -1.286389, Lon: 36.817223}
	fixes := []domain.Coordinate{
		fix(base.Lat+0.00001, base.Lon, 5),
		fix(base.Lat-0.00001, base.Lon+0.00001, 8),
		fix(base.Lat, base.Lon-0.00001, 6),
		fix(base.Lat+0.0005, base.Lon, 50), // outlier
		fix(base.Lat, base.Lon+0.00001, 7),
	}

	improved, err := svc.Improve(fixes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if improved.AccuracyMeters == nil {
		t.Fatal("improved fix has no accuracy")
	}
	// min(5,8,6,7)/sqrt(4) = 2.5
	if *improved.AccuracyMeters > 5 {
		t.Errorf("accuracy = %v, want <= 5 (best single reading)", *improved.AccuracyMeters)
	}
	// The outlier would have dragged latitude north; rejection keeps the
	// estimate within the tight cluster.
	if improved.Latitude > base.Lat+0.0001 {
		t.Errorf("latitude %v still biased by the outlier", improved.Latitude)
	}
}

func TestImprove_AccuracyNeverBeatsBestInput(t *testing.T) {
	svc := usecases.NewAccuracyService(2)
	fixes := []domain.Coordinate{
		fix(-1.2864, 36.8172, 4),
		fix(-1.28641, 36.81721, 9),
		fix(-1.28639, 36.81719, 6),
	}
	improved, err := svc.Improve(fixes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *improved.AccuracyMeters > 4 {
		t.Errorf("accuracy = %v, exceeds best input 4", *improved.AccuracyMeters)
	}
}

func TestImprove_AllFixesRejected(t *testing.T) {
	// With a minimum of five, dropping one outlier from a set of five
	// leaves too few to improve.
	svc := usecases.NewAccuracyService(5)
	base := domain.GeoPoint{Lat: -1.286389, Lon: 36.817223}
	fixes := []domain.Coordinate{
		fix(base.Lat+0.00001, base.Lon, 5),
		fix(base.Lat-0.00001, base.Lon, 6),
		fix(base.Lat, base.Lon+0.00001, 7),
		fix(base.Lat, base.Lon-0.00001, 8),
		fix(base.Lat+0.0005, base.Lon, 40), // far outside the cluster
	}
	_, err := svc.Improve(fixes)
	if !errors.Is(err, domain.ErrAllFixesRejected) {
		t.Errorf("got %v, want ErrAllFixesRejected", err)
	}
}

func TestImprove_IdenticalFixes(t *testing.T) {
	svc := usecases.NewAccuracyService(2)
	fixes := []domain.Coordinate{
		fix(-1.2864, 36.8172, 5),
		fix(-1.2864, 36.8172, 5),
		fix(-1.2864, 36.8172, 5),
	}
	improved, err := svc.Improve(fixes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if improved.Latitude != -1.2864 || improved.Longitude != 36.8172 {
		t.Errorf("centroid moved: (%v, %v)", improved.Latitude, improved.Longitude)
	}
}

func TestImprove_ZeroAccuracyFix(t *testing.T) {
	svc := usecases.NewAccuracyService(2)
	// Some receivers report 0m when they have no error estimate; the
	// weighting must not divide by it.
	fixes := []domain.Coordinate{
		fix(-1.2864, 36.8172, 0),
		fix(-1.2865, 36.8173, 5),
	}
	improved, err := svc.Improve(fixes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.IsNaN(improved.Latitude) || math.IsNaN(improved.Longitude) {
		t.Fatalf("centroid is NaN: (%v, %v)", improved.Latitude, improved.Longitude)
	}
	if improved.AccuracyMeters == nil || *improved.AccuracyMeters <= 0 {
		t.Fatalf("improved accuracy not positive: %v", improved.AccuracyMeters)
	}
	if improved.Latitude > -1.2864 || improved.Latitude < -1.2865 {
		t.Errorf("centroid outside input span: %v", improved.Latitude)
	}
}
