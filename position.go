package orrery

import (
	"fmt"
	"math"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/soniakeys/unit"
)

// Position is the heliocentric state of a planet at a given instant.
// Coordinates are ecliptic J2000 in AU; anomalies are in radians.
type Position struct {
	Planet           Planet     `json:"planet"`
	DT               time.Time  `json:"time"`
	JD               float64    `json:"jd"`
	T                float64    `json:"centuries"` // Julian centuries since J2000.0
	Elements         ElementSet `json:"elements"`
	MeanAnomaly      float64    `json:"M"`
	EccentricAnomaly float64    `json:"E"`
	TrueAnomaly      float64    `json:"nu"`
	Iterations       int        `json:"iterations"`
	Converged        bool       `json:"converged"`
	XOrbital         float64    `json:"xOrbital"`
	YOrbital         float64    `json:"yOrbital"`
	X                float64    `json:"x"`
	Y                float64    `json:"y"`
	Z                float64    `json:"z"`
	R                float64    `json:"r"`
	Angle            float64    `json:"angle"` // atan2(y, x) in degrees, within [-180, 180]
}

// Vector returns the ecliptic position vector.
func (p Position) Vector() []float64 {
	return []float64{p.X, p.Y, p.Z}
}

// String implements the Stringer interface.
func (p Position) String() string {
	return fmt.Sprintf("%s @ %s: r=%.6f AU λ=%.4f x=%.6f y=%.6f z=%.6f", p.Planet, p.DT.UTC().Format(time.RFC3339), p.R, p.Angle, p.X, p.Y, p.Z)
}

// Snapshot is a position along with its angle normalized into [0, 360).
type Snapshot struct {
	Position
	NormalizedAngle float64 `json:"normalizedAngle"`
}

// Result is the outcome of a single planet lookup within a batch. Err is
// ErrUnknownPlanet when the planet is not in the element table.
type Result struct {
	Snapshot
	Err error `json:"-"`
}

// OK returns whether this result holds a position.
func (r Result) OK() bool {
	return r.Err == nil
}

// Ephemeris computes planet positions.
type Ephemeris interface {
	HeliocentricPosition(p Planet, dt time.Time) (Position, error)
	AllPositions(dt time.Time) map[Planet]Snapshot
}

// Engine computes positions from an element table. An Engine holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	table  Table
	solver KeplerSolver
	logger kitlog.Logger
}

// NewEngine returns a new engine. A nil logger discards everything.
func NewEngine(table Table, solver KeplerSolver, logger kitlog.Logger) *Engine {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &Engine{table: table, solver: solver, logger: logger}
}

// DefaultEngine returns an engine on the JPL table with the default solver.
func DefaultEngine() *Engine {
	return defaultEngine
}

var defaultEngine = NewEngine(DefaultTable(), DefaultKeplerSolver(), nil)

// Table returns the element table of this engine.
func (e *Engine) Table() Table {
	return e.table
}

// Solver returns the Kepler solver of this engine.
func (e *Engine) Solver() KeplerSolver {
	return e.solver
}

// HeliocentricPosition returns the position of the planet at the provided instant.
func (e *Engine) HeliocentricPosition(p Planet, dt time.Time) (Position, error) {
	el, ok := e.table.Lookup(p)
	if !ok {
		return Position{}, fmt.Errorf("%w: %q", ErrUnknownPlanet, string(p))
	}
	jd := JulianDay(dt)
	T := J2000Centuries(dt)
	osc := el.At(T)

	M := unit.AngleFromDeg(osc.MeanAnomaly()).Rad()
	E, iterations, converged := e.solver.Solve(M, osc.E)
	if !converged {
		e.logger.Log("level", "warning", "subsys", "kepler", "planet", p, "jd", jd, "iterations", iterations, "message", "iteration cap reached")
	}
	ν := TrueAnomaly(E, osc.E)
	r := Radius(osc.A, osc.E, E)

	sinν, cosν := math.Sincos(ν)
	xOrbital := r * cosν
	yOrbital := r * sinν

	i := unit.AngleFromDeg(osc.I).Rad()
	ω := unit.AngleFromDeg(osc.ArgPeri()).Rad()
	Ω := unit.AngleFromDeg(osc.LongNode).Rad()
	R := PQW2Ecliptic(i, ω, Ω, []float64{xOrbital, yOrbital, 0})

	return Position{
		Planet:           p,
		DT:               dt,
		JD:               jd,
		T:                T,
		Elements:         osc,
		MeanAnomaly:      M,
		EccentricAnomaly: E,
		TrueAnomaly:      ν,
		Iterations:       iterations,
		Converged:        converged,
		XOrbital:         xOrbital,
		YOrbital:         yOrbital,
		X:                R[0],
		Y:                R[1],
		Z:                R[2],
		R:                r,
		Angle:            math.Atan2(R[1], R[0]) * rad2deg,
	}, nil
}

// AllPositions returns the snapshot of every planet of the table. Planets
// which fail are omitted.
func (e *Engine) AllPositions(dt time.Time) map[Planet]Snapshot {
	positions := make(map[Planet]Snapshot, e.table.Len())
	for _, p := range e.table.Planets() {
		pos, err := e.HeliocentricPosition(p, dt)
		if err != nil {
			continue
		}
		positions[p] = NewSnapshot(pos)
	}
	return positions
}

// Positions returns one result per requested planet. Unknown planets are
// reported in their result and do not affect the others.
func (e *Engine) Positions(dt time.Time, planets ...Planet) map[Planet]Result {
	results := make(map[Planet]Result, len(planets))
	for _, p := range planets {
		pos, err := e.HeliocentricPosition(p, dt)
		if err != nil {
			results[p] = Result{Err: err}
			continue
		}
		results[p] = Result{Snapshot: NewSnapshot(pos)}
	}
	return results
}

// NewSnapshot attaches the normalized angle to a position.
func NewSnapshot(pos Position) Snapshot {
	return Snapshot{Position: pos, NormalizedAngle: NormalizeAngle(pos.Angle)}
}

// HeliocentricPosition returns the position of the planet using the default engine.
func HeliocentricPosition(p Planet, dt time.Time) (Position, error) {
	return defaultEngine.HeliocentricPosition(p, dt)
}

// AllPositions returns the snapshots of all planets using the default engine.
func AllPositions(dt time.Time) map[Planet]Snapshot {
	return defaultEngine.AllPositions(dt)
}
