package geodesy

import (
	"math"

	"github.com/fieldmark/fieldmark/internal/core/domain"
)

// WGS-84 ellipsoid.
const (
	semiMajorAxis = 6378137.0
	flattening    = 1 / 298.257223563
	scaleFactor   = 0.9996
	falseEasting  = 500000.0
	falseNorthing = 10000000.0 // southern hemisphere only
)

var (
	ecc2  = flattening * (2 - flattening) // first eccentricity squared
	ecc4  = ecc2 * ecc2
	ecc6  = ecc4 * ecc2
	eccP2 = ecc2 / (1 - ecc2) // second eccentricity squared
)

// ZoneFor returns the UTM zone number for a longitude.
func ZoneFor(lon float64) int {
	zone := int(math.Floor((lon+180)/6)) + 1
	if zone > 60 {
		zone = 60 // lon == 180 wraps into the last zone
	}
	return zone
}

// ToUTM projects a WGS-84 coordinate onto the UTM grid using the standard
// ellipsoidal transverse Mercator series.
func ToUTM(lat, lon float64) (domain.UTMCoordinate, error) {
	if err := domain.ValidateLatLon(lat, lon); err != nil {
		return domain.UTMCoordinate{}, err
	}

	zone := ZoneFor(lon)
	lonOrigin := float64((zone-1)*6 - 180 + 3)

	phi := lat * math.Pi / 180
	lambda := (lon - lonOrigin) * math.Pi / 180

	sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)
	tanPhi := math.Tan(phi)

	n := semiMajorAxis / math.Sqrt(1-ecc2*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	c := eccP2 * cosPhi * cosPhi
	a := cosPhi * lambda

	m := meridianArc(phi)

	easting := scaleFactor*n*(a+
		(1-t+c)*a*a*a/6+
		(5-18*t+t*t+72*c-58*eccP2)*math.Pow(a, 5)/120) + falseEasting

	northing := scaleFactor * (m + n*tanPhi*(a*a/2+
		(5-t+9*c+4*c*c)*math.Pow(a, 4)/24+
		(61-58*t+t*t+600*c-330*eccP2)*math.Pow(a, 6)/720))

	hemi := domain.HemisphereNorth
	if lat < 0 {
		hemi = domain.HemisphereSouth
		northing += falseNorthing
	}

	return domain.UTMCoordinate{
		Zone:       zone,
		Hemisphere: hemi,
		Easting:    easting,
		Northing:   northing,
	}, nil
}

// FromUTM inverts ToUTM back to a WGS-84 latitude and longitude.
func FromUTM(u domain.UTMCoordinate) (lat, lon float64, err error) {
	if u.Zone < 1 || u.Zone > 60 {
		return 0, 0, domain.ErrZoneRange
	}

	x := u.Easting - falseEasting
	y := u.Northing
	if u.Hemisphere == domain.HemisphereSouth {
		y -= falseNorthing
	}

	lonOrigin := float64((u.Zone-1)*6 - 180 + 3)

	m := y / scaleFactor
	mu := m / (semiMajorAxis * (1 - ecc2/4 - 3*ecc4/64 - 5*ecc6/256))

	e1 := (1 - math.Sqrt(1-ecc2)) / (1 + math.Sqrt(1-ecc2))
	phi1 := mu +
		(3*e1/2-27*math.Pow(e1, 3)/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*math.Pow(e1, 4)/32)*math.Sin(4*mu) +
		(151*math.Pow(e1, 3)/96)*math.Sin(6*mu) +
		(1097*math.Pow(e1, 4)/512)*math.Sin(8*mu)

	sinPhi1, cosPhi1 := math.Sin(phi1), math.Cos(phi1)
	tanPhi1 := math.Tan(phi1)

	c1 := eccP2 * cosPhi1 * cosPhi1
	t1 := tanPhi1 * tanPhi1
	n1 := semiMajorAxis / math.Sqrt(1-ecc2*sinPhi1*sinPhi1)
	r1 := semiMajorAxis * (1 - ecc2) / math.Pow(1-ecc2*sinPhi1*sinPhi1, 1.5)
	d := x / (n1 * scaleFactor)

	phi := phi1 - (n1*tanPhi1/r1)*(d*d/2-
		(5+3*t1+10*c1-4*c1*c1-9*eccP2)*math.Pow(d, 4)/24+
		(61+90*t1+298*c1+45*t1*t1-252*eccP2-3*c1*c1)*math.Pow(d, 6)/720)

	lambda := (d -
		(1+2*t1+c1)*math.Pow(d, 3)/6 +
		(5-2*c1+28*t1-3*c1*c1+8*eccP2+24*t1*t1)*math.Pow(d, 5)/120) / cosPhi1

	lat = phi * 180 / math.Pi
	lon = lonOrigin + lambda*180/math.Pi
	return lat, lon, nil
}

// meridianArc is the distance along the meridian from the equator to phi.
func meridianArc(phi float64) float64 {
	return semiMajorAxis * ((1-ecc2/4-3*ecc4/64-5*ecc6/256)*phi -
		(3*ecc2/8+3*ecc4/32+45*ecc6/1024)*math.Sin(2*phi) +
		(15*ecc4/256+45*ecc6/1024)*math.Sin(4*phi) -
		(35*ecc6/3072)*math.Sin(6*phi))
}
