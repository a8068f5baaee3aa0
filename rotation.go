package orrery

import (
	"math"

	"github.com/gonum/matrix/mat64"
)

// PQW2Ecliptic rotates a perifocal (orbital plane) vector into the ecliptic
// frame. All angles are in radians.
func PQW2Ecliptic(i, ω, Ω float64, vPQW []float64) []float64 {
	return MxV33(R3R1R3(Ω, i, ω).T(), vPQW)
}

// R3R1R3 performs a 3-1-3 Euler parameter rotation.
// From Schaub and Junkins: R3(θ3) * R1(θ2) * R3(θ1).
func R3R1R3(θ1, θ2, θ3 float64) *mat64.Dense {
	sθ1, cθ1 := math.Sincos(θ1)
	sθ2, cθ2 := math.Sincos(θ2)
	sθ3, cθ3 := math.Sincos(θ3)
	return mat64.NewDense(3, 3, []float64{cθ3*cθ1 - sθ3*cθ2*sθ1, cθ3*sθ1 + sθ3*cθ2*cθ1, sθ3 * sθ2,
		-sθ3*cθ1 - cθ3*cθ2*sθ1, -sθ3*sθ1 + cθ3*cθ2*cθ1, cθ3 * sθ2,
		sθ2 * sθ1, -sθ2 * cθ1, cθ2})
}

// MxV33 multiplies a matrix with a vector. Note that there is no dimension check!
func MxV33(m mat64.Matrix, v []float64) (o []float64) {
	vVec := mat64.NewVector(len(v), v)
	var rVec mat64.Vector
	rVec.MulVec(m, vVec)
	return []float64{rVec.At(0, 0), rVec.At(1, 0), rVec.At(2, 0)}
}
