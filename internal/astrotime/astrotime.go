// Package astrotime converts civil timestamps to the astronomical time
// scales the coordinate transforms need: Julian Day and sidereal time.
package astrotime

import (
	"math"
	"time"
)

// J2000 is the Julian Day of the J2000.0 epoch (January 1, 2000, 12:00:00 UTC).
const J2000 = 2451545.0

// JulianDay converts a time.Time to a Julian Day number, including the
// fractional day from the time of day. Uses the standard Gregorian-calendar
// algorithm; valid well before and after 2000 with no special casing.
func JulianDay(t time.Time) float64 {
	t = t.UTC()

	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	h := float64(t.Hour())
	min := float64(t.Minute())
	s := float64(t.Second()) + float64(t.Nanosecond())/1e9

	// Treat January/February as months 13/14 of the previous year.
	if m <= 2 {
		y -= 1
		m += 12
	}

	A := math.Floor(y / 100)
	B := 2 - A + math.Floor(A/4)

	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + B - 1524.5
	jd += (h + min/60.0 + s/3600.0) / 24.0

	return jd
}

// GreenwichSiderealTimeDeg returns Greenwich Mean Sidereal Time in degrees
// for a Julian Day, normalized to [0, 360).
//
// Uses the IAU 1982 polynomial:
//
//	GMST = 280.46061837 + 360.98564736629*(JD-2451545) + 0.000387933*T² - T³/38710000
//
// where T is Julian centuries from J2000.0.
func GreenwichSiderealTimeDeg(jd float64) float64 {
	T := (jd - J2000) / 36525.0

	gmst := 280.46061837 +
		360.98564736629*(jd-J2000) +
		0.000387933*T*T -
		T*T*T/38710000.0

	gmst = math.Mod(gmst, 360)
	if gmst < 0 {
		gmst += 360
	}
	return gmst
}

// LocalSiderealTimeDeg returns Local Mean Sidereal Time in degrees for a
// Julian Day and an east-positive longitude, normalized to [0, 360).
func LocalSiderealTimeDeg(jd, lonDeg float64) float64 {
	lst := math.Mod(GreenwichSiderealTimeDeg(jd)+lonDeg, 360)
	if lst < 0 {
		lst += 360
	}
	return lst
}
