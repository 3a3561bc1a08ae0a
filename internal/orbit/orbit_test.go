package orbit

import (
	"math"
	"testing"
	"time"

	"github.com/maxxcraig/Stargazer/internal/kepler"
	"github.com/maxxcraig/Stargazer/internal/sphere"
)

// marsElements are J2000 Keplerian elements for Mars, matching the catalog
// seed data.
var marsElements = Elements{
	SemiMajorAxisAU:       1.52366231,
	Eccentricity:          0.09341233,
	InclinationDeg:        1.85061,
	AscendingNodeDeg:      49.57854,
	ArgPeriapsisDeg:       286.46230,
	MeanAnomalyAtEpochDeg: 19.41248,
	EpochJD:               2451545.0,
	DailyMotionDeg:        0.52402068,
}

func TestSunPosition_SeasonalReferencePoints(t *testing.T) {
	tests := []struct {
		name    string
		time    time.Time
		wantRA  float64
		wantDec float64
		tol     float64
	}{
		{
			name:    "spring equinox 2024",
			time:    time.Date(2024, 3, 20, 3, 6, 0, 0, time.UTC),
			wantRA:  0,
			wantDec: 0,
			tol:     1.0,
		},
		{
			name:    "summer solstice 2024",
			time:    time.Date(2024, 6, 20, 20, 51, 0, 0, time.UTC),
			wantRA:  90,
			wantDec: 23.44,
			tol:     1.0,
		},
		{
			name:    "autumn equinox 2024",
			time:    time.Date(2024, 9, 22, 12, 44, 0, 0, time.UTC),
			wantRA:  180,
			wantDec: 0,
			tol:     1.0,
		},
		{
			name:    "winter solstice 2024",
			time:    time.Date(2024, 12, 21, 9, 21, 0, 0, time.UTC),
			wantRA:  270,
			wantDec: -23.44,
			tol:     1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SunPosition(tt.time)

			raDiff := math.Abs(got.RADeg - tt.wantRA)
			if raDiff > 180 {
				raDiff = 360 - raDiff
			}
			if raDiff > tt.tol {
				t.Errorf("Sun RA = %v, want %v ±%v", got.RADeg, tt.wantRA, tt.tol)
			}
			if math.Abs(got.DecDeg-tt.wantDec) > tt.tol {
				t.Errorf("Sun Dec = %v, want %v ±%v", got.DecDeg, tt.wantDec, tt.tol)
			}
		})
	}
}

func TestSunPosition_DecBoundedByObliquity(t *testing.T) {
	// Over a full year the Sun's declination must stay within the obliquity.
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for d := 0; d < 366; d += 3 {
		eq := SunPosition(start.AddDate(0, 0, d))
		if math.Abs(eq.DecDeg) > 23.5 {
			t.Fatalf("day %d: Sun dec %v exceeds obliquity", d, eq.DecDeg)
		}
		if eq.RADeg < 0 || eq.RADeg >= 360 {
			t.Fatalf("day %d: Sun RA %v out of range", d, eq.RADeg)
		}
	}
}

func TestHeliocentric_RadiusBounds(t *testing.T) {
	a := marsElements.SemiMajorAxisAU
	e := marsElements.Eccentricity
	perihelion := a * (1 - e)
	aphelion := a * (1 + e)

	for nu := 0.0; nu < 360; nu += 10 {
		r := Heliocentric(marsElements, nu).Norm()
		if r < perihelion-1e-9 || r > aphelion+1e-9 {
			t.Errorf("ν=%v: r=%v outside [%v, %v]", nu, r, perihelion, aphelion)
		}
	}

	// Periapsis and apoapsis hit the bounds exactly.
	if r := Heliocentric(marsElements, 0).Norm(); math.Abs(r-perihelion) > 1e-9 {
		t.Errorf("periapsis r=%v, want %v", r, perihelion)
	}
	if r := Heliocentric(marsElements, 180).Norm(); math.Abs(r-aphelion) > 1e-9 {
		t.Errorf("apoapsis r=%v, want %v", r, aphelion)
	}
}

func TestHeliocentric_ZeroInclinationStaysInPlane(t *testing.T) {
	flat := marsElements
	flat.InclinationDeg = 0

	for nu := 0.0; nu < 360; nu += 30 {
		if z := Heliocentric(flat, nu).Z; math.Abs(z) > 1e-12 {
			t.Errorf("ν=%v: Z=%v for zero-inclination orbit", nu, z)
		}
	}
}

func TestGeocentricFromHeliocentric_Axes(t *testing.T) {
	// +X points at the vernal equinox: RA 0, Dec 0.
	eq := GeocentricFromHeliocentric(Vec3{X: 1})
	if math.Abs(eq.RADeg) > 1e-9 || math.Abs(eq.DecDeg) > 1e-9 {
		t.Errorf("+X axis → (%v, %v), want (0, 0)", eq.RADeg, eq.DecDeg)
	}

	// +Y in the ecliptic plane: RA 90, Dec equal to the obliquity.
	eq = GeocentricFromHeliocentric(Vec3{Y: 1})
	if math.Abs(eq.RADeg-90) > 1e-9 {
		t.Errorf("+Y axis RA = %v, want 90", eq.RADeg)
	}
	if math.Abs(eq.DecDeg-23.439) > 1e-6 {
		t.Errorf("+Y axis Dec = %v, want 23.439", eq.DecDeg)
	}

	// Zero vector must not produce NaN.
	eq = GeocentricFromHeliocentric(Vec3{})
	if math.IsNaN(eq.RADeg) || math.IsNaN(eq.DecDeg) {
		t.Errorf("zero vector → NaN: %+v", eq)
	}
}

func TestMeanAnomalyDeg_EpochAndPeriod(t *testing.T) {
	epoch := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)

	// At the epoch the anomaly is the epoch value.
	if m := MeanAnomalyDeg(marsElements, epoch); math.Abs(m-19.41248) > 1e-6 {
		t.Errorf("mean anomaly at epoch = %v, want 19.41248", m)
	}

	// One full period later it wraps back around.
	periodDays := 360.0 / marsElements.DailyMotionDeg
	later := epoch.Add(time.Duration(periodDays * 24 * float64(time.Hour)))
	m := MeanAnomalyDeg(marsElements, later)
	diff := math.Min(math.Abs(m-19.41248), 360-math.Abs(m-19.41248))
	if diff > 0.01 {
		t.Errorf("mean anomaly after one period = %v, want ~19.41248", m)
	}
}

func TestApparentPosition_WellFormed(t *testing.T) {
	// The pipeline output is a valid equatorial coordinate with declination
	// bounded by obliquity plus inclination, at any query time.
	times := []time.Time{
		time.Date(1988, 7, 4, 6, 0, 0, 0, time.UTC),
		time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 14, 22, 30, 0, 0, time.UTC),
		time.Date(2044, 11, 30, 3, 15, 0, 0, time.UTC),
	}

	maxDec := 23.439 + marsElements.InclinationDeg + 0.01
	for _, at := range times {
		eq := ApparentPosition(marsElements, at)
		if eq.RADeg < 0 || eq.RADeg >= 360 {
			t.Errorf("%v: RA %v out of range", at, eq.RADeg)
		}
		if math.Abs(eq.DecDeg) > maxDec {
			t.Errorf("%v: Dec %v exceeds bound %v", at, eq.DecDeg, maxDec)
		}
	}
}

func TestApparentPosition_MatchesManualPipeline(t *testing.T) {
	at := time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC)

	m := MeanAnomalyDeg(marsElements, at)
	ecc := kepler.Solve(m, marsElements.Eccentricity)
	nu := kepler.TrueAnomalyDeg(ecc, marsElements.Eccentricity)
	want := GeocentricFromHeliocentric(Heliocentric(marsElements, nu))

	got := ApparentPosition(marsElements, at)
	if sphere.AngularSeparationDeg(got, want) > 1e-9 {
		t.Errorf("ApparentPosition = %+v, want %+v", got, want)
	}
}
