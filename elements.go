package orrery

import (
	"fmt"
	"time"
)

// At returns the osculating elements T Julian centuries after J2000.0.
func (el OrbitalElements) At(T float64) ElementSet {
	return ElementSet{
		A:        el.Epoch.A + el.Rate.A*T,
		E:        el.Epoch.E + el.Rate.E*T,
		I:        el.Epoch.I + el.Rate.I*T,
		L:        el.Epoch.L + el.Rate.L*T,
		LongPeri: el.Epoch.LongPeri + el.Rate.LongPeri*T,
		LongNode: el.Epoch.LongNode + el.Rate.LongNode*T,
	}
}

// ArgPeri returns the argument of perihelion ω in degrees.
func (s ElementSet) ArgPeri() float64 {
	return s.LongPeri - s.LongNode
}

// MeanAnomaly returns the mean anomaly M in degrees. It is not normalized.
func (s ElementSet) MeanAnomaly() float64 {
	return s.L - s.LongPeri
}

// Perihelion returns the perihelion distance in AU.
func (s ElementSet) Perihelion() float64 {
	return s.A * (1 - s.E)
}

// Aphelion returns the aphelion distance in AU.
func (s ElementSet) Aphelion() float64 {
	return s.A * (1 + s.E)
}

// Osculating returns the elements of the provided planet at the provided instant.
func (t Table) Osculating(p Planet, dt time.Time) (ElementSet, error) {
	el, ok := t.Lookup(p)
	if !ok {
		return ElementSet{}, fmt.Errorf("%w: %q", ErrUnknownPlanet, string(p))
	}
	return el.At(J2000Centuries(dt)), nil
}
