package domain

import (
	"time"
)

// GeoPoint represents a geographic coordinate pair (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Coordinate is a single captured position fix. Latitude and longitude are
// always decimal degrees; every other notation (DMS, UTM, MGRS) is a derived
// view, never the source of truth.
type Coordinate struct {
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters *float64  `json:"accuracy_meters,omitempty"`
	AltitudeMeters *float64  `json:"altitude_meters,omitempty"`
	CapturedAt     time.Time `json:"captured_at"`
}

// Validate checks that latitude and longitude are inside their domains.
func (c Coordinate) Validate() error {
	if err := ValidateLatLon(c.Latitude, c.Longitude); err != nil {
		return err
	}
	return nil
}

// Point returns the coordinate as a bare lat/lon pair.
func (c Coordinate) Point() GeoPoint {
	return GeoPoint{Lat: c.Latitude, Lon: c.Longitude}
}

// ValidateLatLon rejects out-of-domain latitude or longitude.
func ValidateLatLon(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return ErrLatitudeRange
	}
	if lon < -180 || lon > 180 {
		return ErrLongitudeRange
	}
	return nil
}

// Hemisphere is a single compass letter qualifying one axis of a coordinate.
type Hemisphere string

const (
	HemisphereNorth Hemisphere = "N"
	HemisphereSouth Hemisphere = "S"
	HemisphereEast  Hemisphere = "E"
	HemisphereWest  Hemisphere = "W"
)

// DMS is the degrees/minutes/seconds view of one axis of a coordinate.
type DMS struct {
	Degrees    int        `json:"degrees"`
	Minutes    int        `json:"minutes"`
	Seconds    float64    `json:"seconds"`
	Hemisphere Hemisphere `json:"hemisphere"`
}

// UTMCoordinate is a Universal Transverse Mercator grid position.
type UTMCoordinate struct {
	Zone       int        `json:"zone"` // 1..60
	Hemisphere Hemisphere `json:"hemisphere"`
	Easting    float64    `json:"easting"`
	Northing   float64    `json:"northing"`
}
