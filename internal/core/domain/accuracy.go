package domain

// AccuracyLevel buckets a fix by its reported horizontal accuracy.
type AccuracyLevel string

const (
	AccuracyExcellent    AccuracyLevel = "excellent"
	AccuracyGood         AccuracyLevel = "good"
	AccuracyFair         AccuracyLevel = "fair"
	AccuracyPoor         AccuracyLevel = "poor"
	AccuracyUnacceptable AccuracyLevel = "unacceptable"
)

// RecommendedAction suggests how the operator can get a better fix.
type RecommendedAction string

const (
	ActionNone            RecommendedAction = "none"
	ActionMultiReadingAvg RecommendedAction = "multi_reading_average"
	ActionDifferentialGPS RecommendedAction = "differential_gps"
	ActionRTKCorrection   RecommendedAction = "rtk_correction"
	ActionSignalFiltering RecommendedAction = "signal_filtering"
)

// AccuracyAssessment is derived purely from a fix's accuracy_meters. It is
// never persisted apart from the coordinate it assesses.
type AccuracyAssessment struct {
	Level             AccuracyLevel     `json:"level"`
	Confidence        float64           `json:"confidence"` // [0,1], monotone in accuracy
	RecommendedAction RecommendedAction `json:"recommended_action"`
}
