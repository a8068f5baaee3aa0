package orrery

import "math"

const (
	rad2deg = 180 / math.Pi
)

// NormalizeAngle maps an angle in degrees into [0, 360).
func NormalizeAngle(deg float64) float64 {
	return math.Mod(math.Mod(deg, 360)+360, 360)
}

// AngleDelta returns the signed difference to - from in degrees, wrapped into (-180, 180].
func AngleDelta(from, to float64) float64 {
	δ := NormalizeAngle(to - from)
	if δ > 180 {
		δ -= 360
	}
	return δ
}
