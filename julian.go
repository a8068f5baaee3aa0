package orrery

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/base"
)

// JulianDay returns the continuous Julian Day of the provided instant.
// The instant is read in UTC and UTC is used as if it were TT: the ~69 s
// offset between the two is ignored, which is well below the precision of the
// element table.
func JulianDay(dt time.Time) float64 {
	dt = dt.UTC()
	month := int(dt.Month())
	a := floorDiv(14-month, 12)
	y := dt.Year() + 4800 - a
	m := month + 12*a - 3

	jdn := dt.Day() + floorDiv(153*m+2, 5) + 365*y + floorDiv(y, 4) - floorDiv(y, 100) + floorDiv(y, 400) - 32045

	// JD days start at noon.
	fraction := float64(dt.Hour()-12)/24 +
		float64(dt.Minute())/1440 +
		float64(dt.Second())/86400 +
		float64(dt.Nanosecond())/8.64e13

	return float64(jdn) + fraction
}

// J2000Centuries returns the number of Julian centuries elapsed between J2000.0
// and the provided instant. Negative before the epoch.
func J2000Centuries(dt time.Time) float64 {
	return base.J2000Century(JulianDay(dt))
}

var j2000Epoch = time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)

// TimeFromJulianDay is the inverse of JulianDay on the proleptic Gregorian
// calendar. The day fraction is rounded to the microsecond.
func TimeFromJulianDay(jd float64) time.Time {
	days := math.Floor(jd - base.J2000)
	micros := math.Round((jd - base.J2000 - days) * 86400e6)
	return j2000Epoch.AddDate(0, 0, int(days)).Add(time.Duration(micros) * time.Microsecond)
}

// floorDiv is an integer division rounding towards negative infinity, so that
// proleptic dates before year -4800 still convert properly.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
