package orrery

import "math"

const (
	// DefaultKeplerTolerance is the default stopping criterion on |ΔE|, in radians.
	DefaultKeplerTolerance = 1e-8
	// DefaultKeplerMaxIterations is the default cap on Newton-Raphson iterations.
	DefaultKeplerMaxIterations = 100
)

// KeplerSolver solves Kepler's equation M = E - e sin(E) with Newton-Raphson.
// Zero valued fields fall back to the defaults.
type KeplerSolver struct {
	Tolerance     float64 // radians
	MaxIterations int
}

// DefaultKeplerSolver returns a solver with the default tolerance and cap.
func DefaultKeplerSolver() KeplerSolver {
	return KeplerSolver{Tolerance: DefaultKeplerTolerance, MaxIterations: DefaultKeplerMaxIterations}
}

func (k KeplerSolver) tolerance() float64 {
	if k.Tolerance <= 0 {
		return DefaultKeplerTolerance
	}
	return k.Tolerance
}

func (k KeplerSolver) maxIterations() int {
	if k.MaxIterations <= 0 {
		return DefaultKeplerMaxIterations
	}
	return k.MaxIterations
}

// Solve returns the eccentric anomaly E (radians) for the mean anomaly M
// (radians) and the eccentricity e.
// Reaching the iteration cap is not an error: the last estimate is returned
// with converged set to false.
func (k KeplerSolver) Solve(M, e float64) (E float64, iterations int, converged bool) {
	tol := k.tolerance()
	maxIter := k.maxIterations()
	E = M
	for iterations < maxIter {
		sinE, cosE := math.Sincos(E)
		ΔE := (E - e*sinE - M) / (1 - e*cosE)
		E -= ΔE
		iterations++
		if math.Abs(ΔE) < tol {
			converged = true
			break
		}
	}
	return
}

// TrueAnomaly returns the true anomaly ν (radians) from the eccentric anomaly E.
func TrueAnomaly(E, e float64) float64 {
	sinE2, cosE2 := math.Sincos(E / 2)
	return 2 * math.Atan2(math.Sqrt(1+e)*sinE2, math.Sqrt(1-e)*cosE2)
}

// Radius returns the length of the radius vector for the eccentric anomaly E.
func Radius(a, e, E float64) float64 {
	return a * (1 - e*math.Cos(E))
}
