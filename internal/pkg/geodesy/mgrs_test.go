package geodesy_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/fieldmark/fieldmark/internal/core/domain"
	"github.com/fieldmark/fieldmark/internal/pkg/geodesy"
)

func TestToMGRS_Format(t *testing.T) {
	s, err := geodesy.ToMGRS(43.263, -2.935)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tokens := strings.Fields(s)
	if len(tokens) != 3 {
		t.Fatalf("want 3 tokens, got %d: %q", len(tokens), s)
	}
	if !strings.HasPrefix(tokens[0], "30T") {
		t.Errorf("designator = %q, want 30T prefix", tokens[0])
	}
	if len(tokens[1]) != 6 || len(tokens[2]) != 7 {
		t.Errorf("easting/northing padding wrong: %q %q", tokens[1], tokens[2])
	}
}

func TestMGRS_RoundTrip(t *testing.T) {
	points := []struct{ lat, lon float64 }{
		{43.263, -2.935},
		{-1.286389, 36.817223},
		{-33.8688, 151.2093},
	}
	for _, p := range points {
		s, err := geodesy.ToMGRS(p.lat, p.lon)
		if err != nil {
			t.Fatalf("ToMGRS(%v, %v): %v", p.lat, p.lon, err)
		}
		lat, lon, err := geodesy.FromMGRS(s)
		if err != nil {
			t.Fatalf("FromMGRS(%q): %v", s, err)
		}
		// Easting/northing are rounded to whole meters, so allow ~1.5 m.
		if math.Abs(lat-p.lat) > 2e-5 || math.Abs(lon-p.lon) > 2e-5 {
			t.Errorf("round trip (%v, %v) via %q -> (%v, %v)", p.lat, p.lon, s, lat, lon)
		}
	}
}

func TestFromMGRS_Rejects(t *testing.T) {
	bad := []string{
		"",
		"30T",
		"30T 505270",
		"30T 505270 4790500 extra",
		"XYT 505270 4790500",
		"61T 505270 4790500",
		"0T 505270 4790500",
		"30I 505270 4790500", // I is not a valid band letter
		"30T abc 4790500",
		"30T 505270 north",
	}
	for _, s := range bad {
		if _, _, err := geodesy.FromMGRS(s); !errors.Is(err, domain.ErrFormat) && !errors.Is(err, domain.ErrZoneRange) {
			t.Errorf("FromMGRS(%q): got %v, want format error", s, err)
		}
	}
}

func TestFromMGRS_SouthernBand(t *testing.T) {
	s, err := geodesy.ToMGRS(-1.286389, 36.817223)
	if err != nil {
		t.Fatalf("ToMGRS: %v", err)
	}
	// Band M covers 8S..0; equatorward of that the point is southern.
	lat, _, err := geodesy.FromMGRS(s)
	if err != nil {
		t.Fatalf("FromMGRS(%q): %v", s, err)
	}
	if lat >= 0 {
		t.Errorf("parsed latitude %v should be southern", lat)
	}
}

func TestToMGRS_OutsideCoverage(t *testing.T) {
	if _, err := geodesy.ToMGRS(87.0, 10.0); err == nil {
		t.Error("latitude 87 should be outside MGRS band coverage")
	}
}
