package geodesy

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/fieldmark/fieldmark/internal/core/domain"
)

// Latitude band letters for 8-degree bands from 80°S northward.
// I and O are skipped to avoid confusion with digits.
const bandLetters = "CDEFGHJKLMNPQRSTUVWX"

// ToMGRS renders a coordinate as grid-reference text:
// "<zone><band> <easting> <northing>", three space-delimited tokens.
func ToMGRS(lat, lon float64) (string, error) {
	utm, err := ToUTM(lat, lon)
	if err != nil {
		return "", err
	}
	band, err := latitudeBand(lat)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d%c %06d %07d",
		utm.Zone, band,
		int(utm.Easting+0.5), int(utm.Northing+0.5)), nil
}

// FromMGRS parses grid-reference text produced by ToMGRS back to a WGS-84
// latitude and longitude. Input must split into exactly three tokens.
func FromMGRS(s string) (lat, lon float64, err error) {
	tokens := strings.Fields(strings.TrimSpace(s))
	if len(tokens) != 3 {
		return 0, 0, fmt.Errorf("%w: want three tokens, got %d", domain.ErrFormat, len(tokens))
	}

	designator := tokens[0]
	if len(designator) < 2 {
		return 0, 0, fmt.Errorf("%w: grid-zone designator %q too short", domain.ErrFormat, designator)
	}

	bandRune := rune(designator[len(designator)-1])
	band := unicode.ToUpper(bandRune)
	if !strings.ContainsRune(bandLetters, band) {
		return 0, 0, fmt.Errorf("%w: invalid latitude band %q", domain.ErrFormat, string(bandRune))
	}

	zone, err := strconv.Atoi(designator[:len(designator)-1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid zone %q", domain.ErrFormat, designator)
	}
	if zone < 1 || zone > 60 {
		return 0, 0, fmt.Errorf("%w: zone %d", domain.ErrFormat, zone)
	}

	easting, err := strconv.ParseFloat(tokens[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid easting %q", domain.ErrFormat, tokens[1])
	}
	northing, err := strconv.ParseFloat(tokens[2], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid northing %q", domain.ErrFormat, tokens[2])
	}

	hemi := domain.HemisphereSouth
	if band >= 'N' {
		hemi = domain.HemisphereNorth
	}

	return FromUTM(domain.UTMCoordinate{
		Zone:       zone,
		Hemisphere: hemi,
		Easting:    easting,
		Northing:   northing,
	})
}

// latitudeBand returns the MGRS band letter for a latitude. Band X is
// stretched to cover 72..84; latitudes above 84 or below -80 have no band.
func latitudeBand(lat float64) (rune, error) {
	if lat < -80 || lat > 84 {
		return 0, fmt.Errorf("%w: latitude %.4f outside MGRS coverage", domain.ErrFormat, lat)
	}
	idx := int((lat + 80) / 8)
	if idx >= len(bandLetters) {
		idx = len(bandLetters) - 1
	}
	return rune(bandLetters[idx]), nil
}
