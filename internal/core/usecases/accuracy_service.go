package usecases

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/fieldmark/fieldmark/internal/core/domain"
	"github.com/fieldmark/fieldmark/internal/pkg/geospatial"
)

// Accuracy bucket thresholds in meters. These are a tunable field policy;
// ordering must stay strict and confidence monotone.
const (
	thresholdExcellent = 5.0
	thresholdGood      = 10.0
	thresholdFair      = 20.0
	thresholdPoor      = 50.0
)

// defaultAccuracyMeters stands in for fixes that report no accuracy at all.
// Treated as very poor rather than rejected, so a bare receiver still works.
const defaultAccuracyMeters = 100.0

// minAccuracyMeters floors reported accuracies before weighting. Receivers
// occasionally report 0m, which would make the 1/acc² weight infinite and
// the averaged position NaN.
const minAccuracyMeters = 0.01

// outlierMedianFactor drops fixes farther than this multiple of the median
// distance from the unweighted centroid before the weighted pass.
const outlierMedianFactor = 3.0

// AccuracyService classifies single position fixes and statistically combines
// several into one improved estimate. Pure computation; the caller sequences
// repeated capture (typically five readings, two seconds apart) and persists
// the result.
type AccuracyService struct {
	minFixes int
}

// NewAccuracyService creates an AccuracyService requiring at least minFixes
// readings for improvement. Values below 2 are raised to 2.
func NewAccuracyService(minFixes int) *AccuracyService {
	if minFixes < 2 {
		minFixes = 2
	}
	return &AccuracyService{minFixes: minFixes}
}

// MinFixes reports how many readings Improve requires.
func (s *AccuracyService) MinFixes() int {
	return s.minFixes
}

// Classify buckets a fix by its reported accuracy and recommends how the
// operator could do better.
func (s *AccuracyService) Classify(fix domain.Coordinate) domain.AccuracyAssessment {
	acc := defaultAccuracyMeters
	if fix.AccuracyMeters != nil {
		acc = *fix.AccuracyMeters
	}

	var level domain.AccuracyLevel
	var action domain.RecommendedAction
	switch {
	case acc <= thresholdExcellent:
		level, action = domain.AccuracyExcellent, domain.ActionNone
	case acc <= thresholdGood:
		level, action = domain.AccuracyGood, domain.ActionMultiReadingAvg
	case acc <= thresholdFair:
		level, action = domain.AccuracyFair, domain.ActionDifferentialGPS
	case acc <= thresholdPoor:
		level, action = domain.AccuracyPoor, domain.ActionRTKCorrection
	default:
		level, action = domain.AccuracyUnacceptable, domain.ActionSignalFiltering
	}

	return domain.AccuracyAssessment{
		Level:             level,
		Confidence:        confidence(acc),
		RecommendedAction: action,
	}
}

// confidence maps accuracy meters to [0,1], strictly decreasing.
func confidence(accuracyMeters float64) float64 {
	if accuracyMeters <= 0 {
		return 1
	}
	return 1 / (1 + accuracyMeters/thresholdGood)
}

// Improve combines several fixes of roughly the same point into one estimate.
// Fixes farther than three times the median distance from the unweighted
// centroid are dropped as outliers; the survivors are averaged with weights
// 1/accuracy². The reported accuracy is the best input accuracy divided by
// √N — averaging gain, never spurious precision beyond the best reading.
func (s *AccuracyService) Improve(fixes []domain.Coordinate) (*domain.Coordinate, error) {
	if len(fixes) < s.minFixes {
		return nil, fmt.Errorf("%w: got %d, need %d", domain.ErrInsufficientFixes, len(fixes), s.minFixes)
	}

	kept := rejectOutliers(fixes)
	if len(kept) < s.minFixes {
		return nil, fmt.Errorf("%w: %d of %d fixes survived", domain.ErrAllFixesRejected, len(kept), len(fixes))
	}

	var sumW, sumLat, sumLon float64
	bestAccuracy := math.MaxFloat64
	var altSum float64
	altCount := 0
	latest := kept[0].CapturedAt

	for _, fix := range kept {
		acc := defaultAccuracyMeters
		if fix.AccuracyMeters != nil {
			acc = *fix.AccuracyMeters
		}
		if acc < minAccuracyMeters {
			acc = minAccuracyMeters
		}
		if acc < bestAccuracy {
			bestAccuracy = acc
		}
		w := 1 / (acc * acc)
		sumW += w
		sumLat += fix.Latitude * w
		sumLon += fix.Longitude * w
		if fix.AltitudeMeters != nil {
			altSum += *fix.AltitudeMeters
			altCount++
		}
		if fix.CapturedAt.After(latest) {
			latest = fix.CapturedAt
		}
	}

	improvedAccuracy := bestAccuracy / math.Sqrt(float64(len(kept)))
	result := &domain.Coordinate{
		Latitude:       sumLat / sumW,
		Longitude:      sumLon / sumW,
		AccuracyMeters: &improvedAccuracy,
		CapturedAt:     latest,
	}
	if altCount > 0 {
		alt := altSum / float64(altCount)
		result.AltitudeMeters = &alt
	}
	if result.CapturedAt.IsZero() {
		result.CapturedAt = time.Now()
	}
	return result, nil
}

// rejectOutliers drops fixes far from the unweighted centroid.
func rejectOutliers(fixes []domain.Coordinate) []domain.Coordinate {
	var cLat, cLon float64
	for _, f := range fixes {
		cLat += f.Latitude
		cLon += f.Longitude
	}
	cLat /= float64(len(fixes))
	cLon /= float64(len(fixes))

	distances := make([]float64, len(fixes))
	for i, f := range fixes {
		distances[i] = geospatial.Haversine(cLat, cLon, f.Latitude, f.Longitude)
	}

	sorted := append([]float64(nil), distances...)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		median = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}
	if median == 0 {
		// All fixes identical; nothing to reject.
		return fixes
	}

	limit := outlierMedianFactor * median
	kept := make([]domain.Coordinate, 0, len(fixes))
	for i, f := range fixes {
		if distances[i] <= limit {
			kept = append(kept, f)
		}
	}
	return kept
}
