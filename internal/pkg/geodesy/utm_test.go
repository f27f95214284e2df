package geodesy_test

import (
	"errors"
	"math"
	"testing"

	"github.com/fieldmark/fieldmark/internal/core/domain"
	"github.com/fieldmark/fieldmark/internal/pkg/geodesy"
)

func TestZoneFor(t *testing.T) {
	tests := []struct {
		lon  float64
		zone int
	}{
		{-180, 1},
		{-2.935, 30},
		{0, 31},
		{36.817, 37},
		{179.999, 60},
		{180, 60},
	}
	for _, tt := range tests {
		if got := geodesy.ZoneFor(tt.lon); got != tt.zone {
			t.Errorf("ZoneFor(%v) = %d, want %d", tt.lon, got, tt.zone)
		}
	}
}

func TestToUTM_KnownPoint(t *testing.T) {
	// Bilbao Abando: 43.263N 2.935W is in zone 30T,
	// easting ~505.2 km, northing ~4790 km.
	u, err := geodesy.ToUTM(43.263, -2.935)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Zone != 30 {
		t.Errorf("zone = %d, want 30", u.Zone)
	}
	if u.Hemisphere != domain.HemisphereNorth {
		t.Errorf("hemisphere = %s, want N", u.Hemisphere)
	}
	if math.Abs(u.Easting-505270) > 200 {
		t.Errorf("easting = %.0f, want ~505270", u.Easting)
	}
	if math.Abs(u.Northing-4790500) > 1500 {
		t.Errorf("northing = %.0f, want ~4790500", u.Northing)
	}
}

func TestToUTM_SouthernHemisphereFalseNorthing(t *testing.T) {
	u, err := geodesy.ToUTM(-1.286389, 36.817223) // Nairobi
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Hemisphere != domain.HemisphereSouth {
		t.Errorf("hemisphere = %s, want S", u.Hemisphere)
	}
	if u.Northing < 9000000 {
		t.Errorf("northing = %.0f, false northing not applied", u.Northing)
	}
}

func TestUTM_RoundTrip(t *testing.T) {
	points := []struct{ lat, lon float64 }{
		{43.263, -2.935},
		{-1.286389, 36.817223},
		{51.5074, -0.1278},
		{-33.8688, 151.2093},
		{0.0001, 6.5},
		{68.97, 33.05},
	}
	for _, p := range points {
		u, err := geodesy.ToUTM(p.lat, p.lon)
		if err != nil {
			t.Fatalf("ToUTM(%v, %v): %v", p.lat, p.lon, err)
		}
		lat, lon, err := geodesy.FromUTM(u)
		if err != nil {
			t.Fatalf("FromUTM(%+v): %v", u, err)
		}
		// 1e-6 degrees is ~0.1 m, well within the series' accuracy.
		if math.Abs(lat-p.lat) > 1e-6 || math.Abs(lon-p.lon) > 1e-6 {
			t.Errorf("round trip (%v, %v) -> (%v, %v)", p.lat, p.lon, lat, lon)
		}
	}
}

func TestToUTM_RangeErrors(t *testing.T) {
	if _, err := geodesy.ToUTM(91, 0); !errors.Is(err, domain.ErrLatitudeRange) {
		t.Errorf("lat 91: got %v, want ErrLatitudeRange", err)
	}
	if _, err := geodesy.ToUTM(0, 181); !errors.Is(err, domain.ErrLongitudeRange) {
		t.Errorf("lon 181: got %v, want ErrLongitudeRange", err)
	}
}

func TestFromUTM_ZoneRange(t *testing.T) {
	_, _, err := geodesy.FromUTM(domain.UTMCoordinate{Zone: 61, Hemisphere: domain.HemisphereNorth, Easting: 500000, Northing: 0})
	if !errors.Is(err, domain.ErrZoneRange) {
		t.Errorf("zone 61: got %v, want ErrZoneRange", err)
	}
}
