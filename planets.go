package orrery

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownPlanet is returned when a planet is not part of the element table.
var ErrUnknownPlanet = errors.New("unknown planet")

// Planet identifies a body of the element table.
type Planet string

// The eight planets of the JPL approximate positions table.
const (
	Mercury Planet = "mercury"
	Venus   Planet = "venus"
	Earth   Planet = "earth"
	Mars    Planet = "mars"
	Jupiter Planet = "jupiter"
	Saturn  Planet = "saturn"
	Uranus  Planet = "uranus"
	Neptune Planet = "neptune"
)

// Planets lists the default planets from the Sun outwards.
var Planets = []Planet{Mercury, Venus, Earth, Mars, Jupiter, Saturn, Uranus, Neptune}

// String implements the Stringer interface.
func (p Planet) String() string {
	return string(p)
}

// PlanetFromString returns the planet from its name, ignoring case.
func PlanetFromString(name string) (Planet, error) {
	p := Planet(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Planets {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPlanet, name)
}

// ElementSet holds the six elements used to place a planet.
// Distances are in AU and angles in degrees.
type ElementSet struct {
	A        float64 `json:"a" mapstructure:"a"`                 // semi-major axis
	E        float64 `json:"e" mapstructure:"e"`                 // eccentricity
	I        float64 `json:"i" mapstructure:"i"`                 // inclination
	L        float64 `json:"L" mapstructure:"l"`                 // mean longitude
	LongPeri float64 `json:"longPeri" mapstructure:"long_peri"` // longitude of perihelion
	LongNode float64 `json:"longNode" mapstructure:"long_node"` // longitude of the ascending node
}

// OrbitalElements are the elements at J2000.0 and their rates per Julian century.
type OrbitalElements struct {
	Epoch ElementSet `json:"epoch" mapstructure:"epoch"`
	Rate  ElementSet `json:"rate" mapstructure:"rate"`
}

// Validate returns an error if these elements cannot describe a closed orbit at J2000.
func (el OrbitalElements) Validate() error {
	if el.Epoch.A <= 0 {
		return fmt.Errorf("semi-major axis must be positive, got %f", el.Epoch.A)
	}
	if el.Epoch.E < 0 || el.Epoch.E >= 1 {
		return fmt.Errorf("eccentricity must be within [0, 1), got %f", el.Epoch.E)
	}
	return nil
}

// Table maps planets to their orbital elements. A Table is never modified once
// built and may be shared freely between goroutines.
type Table struct {
	rows  map[Planet]OrbitalElements
	order []Planet
}

// NewTable builds a table from a copy of the provided rows.
func NewTable(rows map[Planet]OrbitalElements) Table {
	t := Table{rows: make(map[Planet]OrbitalElements, len(rows))}
	for p, el := range rows {
		t.rows[p] = el
		t.order = append(t.order, p)
	}
	sort.Slice(t.order, func(i, j int) bool {
		ai, aj := t.rows[t.order[i]].Epoch.A, t.rows[t.order[j]].Epoch.A
		if ai == aj {
			return t.order[i] < t.order[j]
		}
		return ai < aj
	})
	return t
}

// Lookup returns the elements of the provided planet.
func (t Table) Lookup(p Planet) (OrbitalElements, bool) {
	el, ok := t.rows[p]
	return el, ok
}

// Planets returns the planets of this table sorted by semi-major axis.
func (t Table) Planets() []Planet {
	return append([]Planet(nil), t.order...)
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.rows)
}

// With returns a new table with the provided row added or replaced.
func (t Table) With(p Planet, el OrbitalElements) Table {
	rows := make(map[Planet]OrbitalElements, len(t.rows)+1)
	for k, v := range t.rows {
		rows[k] = v
	}
	rows[p] = el
	return NewTable(rows)
}

// DefaultTable returns the JPL table of approximate planet positions, valid
// from 1800 AD to 2050 AD (https://ssd.jpl.nasa.gov/planets/approx_pos.html).
func DefaultTable() Table {
	return defaultTable
}

var defaultTable = NewTable(map[Planet]OrbitalElements{
	// Mercury is fast.
	Mercury: {
		Epoch: ElementSet{A: 0.38709927, E: 0.20563593, I: 7.00497902, L: 252.25032350, LongPeri: 77.45779628, LongNode: 48.33076593},
		Rate:  ElementSet{A: 0.00000037, E: 0.00001906, I: -0.00594749, L: 149472.67411175, LongPeri: 0.16047689, LongNode: -0.12534081},
	},
	// Venus is poisonous.
	Venus: {
		Epoch: ElementSet{A: 0.72333566, E: 0.00677672, I: 3.39467605, L: 181.97909950, LongPeri: 131.60246718, LongNode: 76.67984255},
		Rate:  ElementSet{A: 0.00000390, E: -0.00004107, I: -0.00078890, L: 58517.81538729, LongPeri: 0.00268329, LongNode: -0.27769418},
	},
	// Earth is home. These are really the elements of the Earth-Moon barycenter.
	Earth: {
		Epoch: ElementSet{A: 1.00000261, E: 0.01671123, I: -0.00001531, L: 100.46457166, LongPeri: 102.93768193, LongNode: 0.0},
		Rate:  ElementSet{A: 0.00000562, E: -0.00004392, I: -0.01294668, L: 35999.37244981, LongPeri: 0.32327364, LongNode: 0.0},
	},
	// Mars is the vacation place.
	Mars: {
		Epoch: ElementSet{A: 1.52371034, E: 0.09339410, I: 1.84969142, L: -4.55343205, LongPeri: -23.94362959, LongNode: 49.55953891},
		Rate:  ElementSet{A: 0.00001847, E: 0.00007882, I: -0.00813131, L: 19140.30268499, LongPeri: 0.44441088, LongNode: -0.29257343},
	},
	// Jupiter is big.
	Jupiter: {
		Epoch: ElementSet{A: 5.20288700, E: 0.04838624, I: 1.30439695, L: 34.39644051, LongPeri: 14.72847983, LongNode: 100.47390909},
		Rate:  ElementSet{A: -0.00011607, E: -0.00013253, I: -0.00183714, L: 3034.74612775, LongPeri: 0.21252668, LongNode: 0.20469106},
	},
	// Saturn floats and that's really cool.
	Saturn: {
		Epoch: ElementSet{A: 9.53667594, E: 0.05386179, I: 2.48599187, L: 49.95424423, LongPeri: 92.59887831, LongNode: 113.66242448},
		Rate:  ElementSet{A: -0.00125060, E: -0.00050991, I: 0.00193609, L: 1222.49362201, LongPeri: -0.41897216, LongNode: -0.28867794},
	},
	// Uranus is no joke.
	Uranus: {
		Epoch: ElementSet{A: 19.18916464, E: 0.04725744, I: 0.77263783, L: 313.23810451, LongPeri: 170.95427630, LongNode: 74.01692503},
		Rate:  ElementSet{A: -0.00196176, E: -0.00004397, I: -0.00242939, L: 428.48202785, LongPeri: 0.40805281, LongNode: 0.04240589},
	},
	// Neptune is far.
	Neptune: {
		Epoch: ElementSet{A: 30.06992276, E: 0.00859048, I: 1.77004347, L: -55.12002969, LongPeri: 44.96476227, LongNode: 131.78422574},
		Rate:  ElementSet{A: 0.00026291, E: 0.00005105, I: 0.00035372, L: 218.45945325, LongPeri: -0.32241464, LongNode: -0.00508664},
	},
})
