package orrery

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestExportConfigPath(t *testing.T) {
	now := time.Date(2017, 3, 4, 5, 6, 7, 0, time.UTC)
	conf := ExportConfig{Filename: "mars", OutputDir: "/tmp/out"}
	if p := conf.Path(now); p != "/tmp/out/positions-mars.csv" {
		t.Fatalf("unexpected path %s", p)
	}
	conf.Timestamp = true
	if p := conf.Path(now); p != "/tmp/out/positions-mars-2017-03-04T05.06.07.csv" {
		t.Fatalf("unexpected path %s", p)
	}
	if (ExportConfig{}).IsUseless() != true || conf.IsUseless() {
		t.Fatal("IsUseless is wrong")
	}
}

func TestWriteCSV(t *testing.T) {
	samples, err := Track(context.Background(), DefaultEngine(), Venus, j2000, j2000.Add(48*time.Hour), 24*time.Hour, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, samples); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Fatalf("expected a header and 3 rows, got %d records", len(records))
	}
	if strings.Join(records[0], ",") != "time,jd,planet,x,y,z,r,angle,normalizedAngle" {
		t.Fatalf("unexpected header %v", records[0])
	}
	if records[1][0] != "2000-01-01T12:00:00Z" || records[1][1] != "2451545.00000000" || records[1][2] != "venus" {
		t.Fatalf("unexpected first row %v", records[1])
	}
	if records[3][1] != "2451547.00000000" {
		t.Fatalf("unexpected last row %v", records[3])
	}
}

func TestExportCSV(t *testing.T) {
	dir := t.TempDir()
	if _, err := ExportCSV(ExportConfig{OutputDir: dir}, nil); err == nil {
		t.Fatal("expected an error without a file name")
	}
	samples := []Snapshot{NewSnapshot(mustPosition(t, Saturn, j2000))}
	path, err := ExportCSV(ExportConfig{Filename: "saturn", OutputDir: dir}, samples)
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "positions-saturn.csv") {
		t.Fatalf("unexpected path %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "# Creation date (UTC): ") {
		t.Fatal("missing comment header")
	}
	if !strings.Contains(content, "Sampling start (UTC): 2000-01-01 12:00:00 +0000 UTC") {
		t.Fatalf("missing sampling start in\n%s", content)
	}
	if !strings.Contains(content, "\n2000-01-01T12:00:00Z,2451545.00000000,saturn,") {
		t.Fatalf("missing data row in\n%s", content)
	}
}

type closeFailure struct {
	bytes.Buffer
	closed bool
}

func (c *closeFailure) Close() error {
	c.closed = true
	return errors.New("disk full")
}

func TestWriteAndCloseReportsClose(t *testing.T) {
	var w closeFailure
	samples := []Snapshot{NewSnapshot(mustPosition(t, Uranus, j2000))}
	if err := writeAndClose(&w, samples); err == nil || err.Error() != "disk full" {
		t.Fatalf("expected the close error, got %v", err)
	}
	if !w.closed || !strings.Contains(w.String(), ",uranus,") {
		t.Fatalf("closed=%t, content:\n%s", w.closed, w.String())
	}
}

func TestExportCSVMissingDir(t *testing.T) {
	conf := ExportConfig{Filename: "neptune", OutputDir: filepath.Join(t.TempDir(), "missing")}
	if path, err := ExportCSV(conf, nil); err == nil || path != "" {
		t.Fatalf("expected an error, got path %q", path)
	}
}

func mustPosition(t *testing.T, p Planet, dt time.Time) Position {
	t.Helper()
	pos, err := HeliocentricPosition(p, dt)
	if err != nil {
		t.Fatal(err)
	}
	return pos
}
