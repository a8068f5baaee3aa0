package orrery

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// ExportConfig configures the export of sampled positions.
type ExportConfig struct {
	Filename  string
	OutputDir string
	Timestamp bool // Append the creation time to the file name
}

// IsUseless returns whether this config doesn't actually do anything.
func (c ExportConfig) IsUseless() bool {
	return c.Filename == ""
}

// Path returns the path of the CSV file for this configuration.
func (c ExportConfig) Path(now time.Time) string {
	name := c.Filename
	if c.Timestamp {
		name = fmt.Sprintf("%s-%d-%02d-%02dT%02d.%02d.%02d", name, now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second())
	}
	return filepath.Join(c.OutputDir, "positions-"+name+".csv")
}

// csvHeader lists the columns written by WriteCSV.
var csvHeader = []string{"time", "jd", "planet", "x", "y", "z", "r", "angle", "normalizedAngle"}

// CreateCSVFile creates the export file with its comment header and returns
// it. The caller must close it.
func CreateCSVFile(conf ExportConfig, start time.Time) (*os.File, error) {
	if conf.IsUseless() {
		return nil, fmt.Errorf("no export file name provided")
	}
	now := time.Now().UTC()
	f, err := os.Create(conf.Path(now))
	if err != nil {
		return nil, err
	}
	// Header
	if _, err := fmt.Fprintf(f, `# Creation date (UTC): %s
# Heliocentric ecliptic J2000 positions, in AU. Angles are in degrees.
#   Time is UTC, used as TT for the Julian date
#   Sampling start (UTC): %s
`, now, start.UTC()); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// WriteCSV writes the provided samples as CSV, header row included.
func WriteCSV(w io.Writer, samples []Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, s := range samples {
		record := []string{
			s.DT.UTC().Format(time.RFC3339Nano),
			strconv.FormatFloat(s.JD, 'f', 8, 64),
			s.Planet.String(),
			strconv.FormatFloat(s.X, 'g', -1, 64),
			strconv.FormatFloat(s.Y, 'g', -1, 64),
			strconv.FormatFloat(s.Z, 'g', -1, 64),
			strconv.FormatFloat(s.R, 'g', -1, 64),
			strconv.FormatFloat(s.Angle, 'f', 6, 64),
			strconv.FormatFloat(s.NormalizedAngle, 'f', 6, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes the samples to the file described by the configuration and
// returns its path.
func ExportCSV(conf ExportConfig, samples []Snapshot) (string, error) {
	var start time.Time
	if len(samples) > 0 {
		start = samples[0].DT
	}
	f, err := CreateCSVFile(conf, start)
	if err != nil {
		return "", err
	}
	if err := writeAndClose(f, samples); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// writeAndClose writes the samples and closes w. A failed close is an error
// since buffered data may not have reached the file.
func writeAndClose(w io.WriteCloser, samples []Snapshot) error {
	if err := WriteCSV(w, samples); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
