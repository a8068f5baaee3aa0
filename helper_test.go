package orrery

import (
	"math"

	"github.com/gonum/floats"
)

func vectorsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := len(a) - 1; i >= 0; i-- {
		if !floats.EqualWithinRel(a[i], b[i], 1e-3) {
			return false
		}
	}
	return true
}

// norm returns the norm of a 3x1 vector.
func norm(v []float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// anglesEqual returns whether two angles in degrees are within ε of each other.
func anglesEqual(a, b, ε float64) bool {
	return floats.EqualWithinAbs(AngleDelta(a, b), 0, ε)
}
