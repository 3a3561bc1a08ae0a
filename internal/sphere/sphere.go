// Package sphere provides spherical-geometry primitives for the celestial
// sphere: angle normalization, angular separation, and the transform from
// equatorial (RA/Dec) to observer-local horizontal (azimuth/altitude)
// coordinates.
package sphere

import (
	"math"
	"time"

	"github.com/maxxcraig/Stargazer/internal/astrotime"
)

// Equatorial is a position on the celestial sphere.
// RA in [0, 360), Dec in [-90, 90], both degrees, J2000 frame.
type Equatorial struct {
	RADeg  float64 `json:"ra"`
	DecDeg float64 `json:"dec"`
}

// Horizontal is a position in an observer's local frame.
// Azimuth: 0 = North, 90 = East, measured clockwise, [0, 360).
// Altitude: 0 = horizon, 90 = zenith, [-90, 90]. Degrees.
type Horizontal struct {
	AzimuthDeg  float64 `json:"azimuth"`
	AltitudeDeg float64 `json:"altitude"`
}

// Observer is a ground observer's geodetic location.
// Latitude north-positive, longitude east-positive, degrees.
type Observer struct {
	LatDeg    float64 `json:"latitude"`
	LonDeg    float64 `json:"longitude"`
	AltitudeM float64 `json:"altitude,omitempty"`
}

// azSingularityEps bounds cos(lat)*cos(alt) below which azimuth is treated
// as geometrically undefined (pole observer, or object at zenith/nadir).
// 1e-6 keeps the convention stable even when rounding leaves the altitude a
// few nanoradians short of exactly 90.
const azSingularityEps = 1e-6

// NormalizeDeg reduces an angle to [0, 360). Modulo arithmetic, so it behaves
// like repeated ±360 for arbitrarily large or negative inputs.
func NormalizeDeg(x float64) float64 {
	x = math.Mod(x, 360)
	if x < 0 {
		x += 360
	}
	return x
}

// clamp restricts x to [-1, 1] so floating rounding never pushes an inverse
// trig argument out of domain.
func clamp(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

// AngularSeparationDeg returns the great-circle angle between two celestial
// positions, in [0, 180] degrees. Spherical law of cosines with the argument
// clamped, so near-identical and near-antipodal inputs never produce NaN.
func AngularSeparationDeg(a, b Equatorial) float64 {
	ra1 := degToRad(a.RADeg)
	dec1 := degToRad(a.DecDeg)
	ra2 := degToRad(b.RADeg)
	dec2 := degToRad(b.DecDeg)

	cosSep := math.Sin(dec1)*math.Sin(dec2) +
		math.Cos(dec1)*math.Cos(dec2)*math.Cos(ra1-ra2)

	return radToDeg(math.Acos(clamp(cosSep)))
}

// ToHorizontal converts an equatorial position to the observer's horizontal
// frame at the given instant.
//
// Altitude comes from the clamped asin of
// sin(dec)sin(lat) + cos(dec)cos(lat)cos(HA); azimuth from the clamped acos
// with the usual quadrant fix (hour angle west of meridian mirrors azimuth).
// At the azimuth singularity (observer at a pole or object at zenith/nadir)
// azimuth is 0 by convention.
func ToHorizontal(eq Equatorial, obs Observer, t time.Time) Horizontal {
	jd := astrotime.JulianDay(t)
	lst := astrotime.LocalSiderealTimeDeg(jd, obs.LonDeg)
	return ToHorizontalLST(eq, obs.LatDeg, lst)
}

// ToHorizontalLST is ToHorizontal with the local sidereal time supplied by the
// caller. Batch conversions at a fixed instant compute LST once and reuse it
// for every position.
func ToHorizontalLST(eq Equatorial, latDeg, lstDeg float64) Horizontal {
	ha := degToRad(lstDeg - eq.RADeg)
	dec := degToRad(eq.DecDeg)
	lat := degToRad(latDeg)

	sinAlt := math.Sin(dec)*math.Sin(lat) + math.Cos(dec)*math.Cos(lat)*math.Cos(ha)
	alt := math.Asin(clamp(sinAlt))

	denom := math.Cos(lat) * math.Cos(alt)
	if math.Abs(denom) < azSingularityEps {
		return Horizontal{AzimuthDeg: 0, AltitudeDeg: radToDeg(alt)}
	}

	cosAz := (math.Sin(dec) - math.Sin(lat)*sinAlt) / denom
	az := math.Acos(clamp(cosAz))

	if math.Sin(ha) > 0 {
		az = 2*math.Pi - az
	}

	return Horizontal{
		AzimuthDeg:  NormalizeDeg(radToDeg(az)),
		AltitudeDeg: radToDeg(alt),
	}
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180 }

func radToDeg(rad float64) float64 { return rad * 180 / math.Pi }
