// Package geodesy converts among decimal degrees, degrees/minutes/seconds,
// UTM, and MGRS notations. All functions are stateless and deterministic;
// decimal degrees remain the source of truth throughout the application.
package geodesy

import (
	"math"

	"github.com/fieldmark/fieldmark/internal/core/domain"
)

// Axis selects which coordinate axis a DMS value describes.
type Axis int

const (
	AxisLatitude Axis = iota
	AxisLongitude
)

// ToDMS converts one axis of a decimal-degree coordinate to DMS notation.
func ToDMS(value float64, axis Axis) (domain.DMS, error) {
	if axis == AxisLatitude {
		if value < -90 || value > 90 {
			return domain.DMS{}, domain.ErrLatitudeRange
		}
	} else if value < -180 || value > 180 {
		return domain.DMS{}, domain.ErrLongitudeRange
	}

	abs := math.Abs(value)
	degrees := math.Floor(abs)
	minFloat := (abs - degrees) * 60
	minutes := math.Floor(minFloat)
	seconds := (minFloat - minutes) * 60

	// Guard against float drift pushing seconds to exactly 60.
	if seconds >= 60 {
		seconds = 0
		minutes++
	}
	if minutes >= 60 {
		minutes = 0
		degrees++
	}

	var hemi domain.Hemisphere
	switch {
	case axis == AxisLatitude && value < 0:
		hemi = domain.HemisphereSouth
	case axis == AxisLatitude:
		hemi = domain.HemisphereNorth
	case value < 0:
		hemi = domain.HemisphereWest
	default:
		hemi = domain.HemisphereEast
	}

	return domain.DMS{
		Degrees:    int(degrees),
		Minutes:    int(minutes),
		Seconds:    seconds,
		Hemisphere: hemi,
	}, nil
}

// FromDMS converts a DMS value back to decimal degrees. Minutes and seconds
// outside their bounds are clamped rather than rejected, matching permissive
// user entry; the resulting decimal value is still range-checked.
func FromDMS(d domain.DMS) (float64, error) {
	degrees := d.Degrees
	if degrees < 0 {
		degrees = 0
	}
	minutes := clampInt(d.Minutes, 0, 59)
	seconds := clampFloat(d.Seconds, 0, math.Nextafter(60, 0))

	value := float64(degrees) + float64(minutes)/60 + seconds/3600

	switch d.Hemisphere {
	case domain.HemisphereSouth, domain.HemisphereWest:
		value = -value
	}

	switch d.Hemisphere {
	case domain.HemisphereNorth, domain.HemisphereSouth:
		if value < -90 || value > 90 {
			return 0, domain.ErrLatitudeRange
		}
	default:
		if value < -180 || value > 180 {
			return 0, domain.ErrLongitudeRange
		}
	}
	return value, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
