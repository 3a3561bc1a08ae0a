// Package kepler solves Kepler's equation M = E - e·sin(E) and converts
// between the anomaly angles of an elliptical orbit.
package kepler

import "math"

// Solver defaults. Ten Newton-Raphson steps reach the tolerance for every
// bound orbit the catalog carries; the cap keeps the solve time bounded for
// eccentricities approaching 1.
const (
	DefaultToleranceRad = 1e-8
	DefaultMaxIter      = 10
)

// Solve returns the eccentric anomaly in degrees for a mean anomaly (degrees)
// and eccentricity in [0, 1), using the default tolerance and iteration cap.
func Solve(meanAnomalyDeg, e float64) float64 {
	return SolveWith(meanAnomalyDeg, e, DefaultToleranceRad, DefaultMaxIter)
}

// SolveWith runs Newton-Raphson on f(E) = E - e·sin(E) - M with E₀ = M.
// Iteration stops early once the step falls below tolRad. If the cap is hit
// first the best estimate is returned; non-convergence is a bounded
// approximation here, never a failure.
func SolveWith(meanAnomalyDeg, e, tolRad float64, maxIter int) float64 {
	m := degToRad(meanAnomalyDeg)
	ecc := m

	for i := 0; i < maxIter; i++ {
		delta := (ecc - e*math.Sin(ecc) - m) / (1 - e*math.Cos(ecc))
		ecc -= delta
		if math.Abs(delta) < tolRad {
			break
		}
	}

	return radToDeg(ecc)
}

// TrueAnomalyDeg converts an eccentric anomaly (degrees) to the true anomaly
// in [0, 360) via the half-angle form, which is well behaved at every point
// of the orbit including periapsis and apoapsis.
func TrueAnomalyDeg(eccAnomalyDeg, e float64) float64 {
	half := degToRad(eccAnomalyDeg) / 2

	nu := 2 * math.Atan2(
		math.Sqrt(1+e)*math.Sin(half),
		math.Sqrt(1-e)*math.Cos(half),
	)

	deg := math.Mod(radToDeg(nu), 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180 }

func radToDeg(rad float64) float64 { return rad * 180 / math.Pi }
