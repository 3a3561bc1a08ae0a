// Package orbit turns Keplerian orbital elements into apparent sky positions.
//
// Two approximations live side by side, on purpose. The Sun's position comes
// from a standalone low-order solar-longitude series rather than from orbital
// elements, and the planetary geocentric conversion reads the heliocentric
// vector directly as ecliptic spherical coordinates without subtracting
// Earth's own position. Both match the accuracy target of visual sky
// placement (a few degrees), not navigation-grade ephemerides.
package orbit

import (
	"math"
	"time"

	"github.com/maxxcraig/Stargazer/internal/astrotime"
	"github.com/maxxcraig/Stargazer/internal/kepler"
	"github.com/maxxcraig/Stargazer/internal/sphere"
)

// meanObliquityDeg is the J2000 mean obliquity of the ecliptic. Fixed; the
// sub-arcminute drift per decade is far below the accuracy target.
const meanObliquityDeg = 23.439

// Elements are Keplerian orbital elements referenced to the J2000 epoch.
type Elements struct {
	SemiMajorAxisAU       float64 `yaml:"semi_major_axis_au" json:"semi_major_axis_au"`
	Eccentricity          float64 `yaml:"eccentricity" json:"eccentricity"`
	InclinationDeg        float64 `yaml:"inclination_deg" json:"inclination_deg"`
	AscendingNodeDeg      float64 `yaml:"ascending_node_deg" json:"ascending_node_deg"`
	ArgPeriapsisDeg       float64 `yaml:"arg_periapsis_deg" json:"arg_periapsis_deg"`
	MeanAnomalyAtEpochDeg float64 `yaml:"mean_anomaly_at_epoch_deg" json:"mean_anomaly_at_epoch_deg"`
	EpochJD               float64 `yaml:"epoch_jd" json:"epoch_jd"`
	DailyMotionDeg        float64 `yaml:"daily_motion_deg" json:"daily_motion_deg"`
}

// Vec3 is a heliocentric ecliptic Cartesian position in AU.
type Vec3 struct {
	X, Y, Z float64
}

// Norm returns the vector magnitude.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// SunPosition returns the Sun's apparent geocentric equatorial coordinates.
//
// Mean longitude plus the first two equation-of-center harmonics in the mean
// anomaly, converted through the fixed mean obliquity. Good to a couple of
// hundredths of a degree, which is plenty for placing the Sun in a sky view.
func SunPosition(t time.Time) sphere.Equatorial {
	d := astrotime.JulianDay(t) - astrotime.J2000

	// Mean longitude and mean anomaly of the Sun (degrees).
	L := sphere.NormalizeDeg(280.460 + 0.9856474*d)
	g := degToRad(sphere.NormalizeDeg(357.528 + 0.9856003*d))

	// Ecliptic longitude with the equation-of-center correction.
	lambda := degToRad(L + 1.915*math.Sin(g) + 0.020*math.Sin(2*g))

	eps := degToRad(meanObliquityDeg)

	ra := math.Atan2(math.Cos(eps)*math.Sin(lambda), math.Cos(lambda))
	dec := math.Asin(math.Sin(eps) * math.Sin(lambda))

	return sphere.Equatorial{
		RADeg:  sphere.NormalizeDeg(radToDeg(ra)),
		DecDeg: radToDeg(dec),
	}
}

// Heliocentric returns the heliocentric ecliptic Cartesian position for a
// body at the given true anomaly.
//
// The polar radius r = a(1-e²)/(1+e·cos ν) places the body in its orbital
// plane; three rotations (argument of periapsis, inclination, ascending
// node) carry it into the ecliptic frame.
func Heliocentric(el Elements, trueAnomalyDeg float64) Vec3 {
	nu := degToRad(trueAnomalyDeg)
	a := el.SemiMajorAxisAU
	e := el.Eccentricity

	r := a * (1 - e*e) / (1 + e*math.Cos(nu))

	// Angle from the ascending node within the orbital plane.
	u := nu + degToRad(el.ArgPeriapsisDeg)

	i := degToRad(el.InclinationDeg)
	om := degToRad(el.AscendingNodeDeg)

	cosU, sinU := math.Cos(u), math.Sin(u)
	cosI, sinI := math.Cos(i), math.Sin(i)
	cosOm, sinOm := math.Cos(om), math.Sin(om)

	return Vec3{
		X: r * (cosOm*cosU - sinOm*sinU*cosI),
		Y: r * (sinOm*cosU + cosOm*sinU*cosI),
		Z: r * (sinU * sinI),
	}
}

// GeocentricFromHeliocentric converts a heliocentric ecliptic vector to
// apparent equatorial coordinates through the fixed mean obliquity.
//
// The heliocentric vector is read directly as geocentric ecliptic
// longitude/latitude; Earth's own heliocentric position is not subtracted.
// For the outer planets the error is small; for inner planets it can reach
// tens of degrees at unfavorable geometry. Kept as-is: consumers of this
// catalog place bodies in a rendered sky, and the consistent, cheap
// approximation is preferred over a half-rigorous one.
func GeocentricFromHeliocentric(v Vec3) sphere.Equatorial {
	lon := math.Atan2(v.Y, v.X)

	r := v.Norm()
	var lat float64
	if r > 0 {
		lat = math.Asin(v.Z / r)
	}

	eps := degToRad(meanObliquityDeg)
	sinLon := math.Sin(lon)

	ra := math.Atan2(sinLon*math.Cos(eps)-math.Tan(lat)*math.Sin(eps), math.Cos(lon))
	dec := math.Asin(math.Sin(lat)*math.Cos(eps) + math.Cos(lat)*math.Sin(eps)*sinLon)

	return sphere.Equatorial{
		RADeg:  sphere.NormalizeDeg(radToDeg(ra)),
		DecDeg: radToDeg(dec),
	}
}

// MeanAnomalyDeg returns the mean anomaly at time t from the epoch value and
// the daily motion, normalized to [0, 360).
func MeanAnomalyDeg(el Elements, t time.Time) float64 {
	days := astrotime.JulianDay(t) - el.EpochJD
	return sphere.NormalizeDeg(el.MeanAnomalyAtEpochDeg + el.DailyMotionDeg*days)
}

// ApparentPosition runs the full pipeline for a planet's current apparent
// equatorial coordinates: mean anomaly at t, Kepler solve, true anomaly,
// heliocentric position, geocentric conversion.
func ApparentPosition(el Elements, t time.Time) sphere.Equatorial {
	m := MeanAnomalyDeg(el, t)
	eccAnomaly := kepler.Solve(m, el.Eccentricity)
	nu := kepler.TrueAnomalyDeg(eccAnomaly, el.Eccentricity)
	return GeocentricFromHeliocentric(Heliocentric(el, nu))
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180 }

func radToDeg(rad float64) float64 { return rad * 180 / math.Pi }
