package main

import (
	"bytes"
	"errors"
	"math"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ChristopherRabotin/orrery"
	kitlog "github.com/go-kit/kit/log"
	"github.com/gonum/floats"
	"github.com/gorilla/websocket"
	dto "github.com/prometheus/client_model/go"
)

var j2000 = time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)

func testServer(t *testing.T, conf orrery.ServerConfig) *httptest.Server {
	t.Helper()
	engine, err := orrery.NewCachedEngine(orrery.DefaultEngine(), 16)
	if err != nil {
		t.Fatal(err)
	}
	if conf.StreamInterval == 0 {
		conf.StreamInterval = time.Second
	}
	s := newServer(engine, conf, kitlog.NewNopLogger())
	s.now = func() time.Time { return j2000 }
	ts := httptest.NewServer(s.routes())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("%s: %s", url, err)
		}
	}
	return resp.StatusCode
}

func TestPositionsEndpoint(t *testing.T) {
	ts := testServer(t, orrery.ServerConfig{})
	for _, query := range []string{"", "?t=2000-01-01T12:00:00Z", "?jd=2451545.0", "?t=2000-01-01T13:00:00%2B01:00"} {
		var f frame
		if code := get(t, ts.URL+"/api/v1/positions"+query, &f); code != http.StatusOK {
			t.Fatalf("%q: status %d", query, code)
		}
		if len(f.Positions) != len(orrery.Planets) {
			t.Fatalf("%q: got %d positions", query, len(f.Positions))
		}
		if !floats.EqualWithinAbs(f.JD, 2451545.0, 1e-8) {
			t.Fatalf("%q: JD=%f", query, f.JD)
		}
		earth := f.Positions[orrery.Earth]
		if !floats.EqualWithinAbs(earth.NormalizedAngle, 100.38, 1e-2) || !floats.EqualWithinAbs(earth.R, 0.9833, 1e-4) {
			t.Fatalf("%q: unexpected Earth %+v", query, earth)
		}
	}
}

func TestPlanetEndpoint(t *testing.T) {
	ts := testServer(t, orrery.ServerConfig{})
	var s orrery.Snapshot
	if code := get(t, ts.URL+"/api/v1/positions/Mars?t=2000-01-01T12:00:00Z", &s); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if s.Planet != orrery.Mars || !floats.EqualWithinAbs(s.Angle, -0.5517, 1e-3) || !floats.EqualWithinAbs(s.NormalizedAngle, 359.4483, 1e-3) {
		t.Fatalf("unexpected Mars %+v", s)
	}
	var e map[string]string
	if code := get(t, ts.URL+"/api/v1/positions/pluto", &e); code != http.StatusNotFound {
		t.Fatalf("pluto: status %d", code)
	}
	if !strings.Contains(e["error"], "pluto") {
		t.Fatalf("unexpected error %q", e["error"])
	}
}

func TestBadRequests(t *testing.T) {
	ts := testServer(t, orrery.ServerConfig{MaxSpeed: 1e6})
	for _, path := range []string{
		"/api/v1/positions?t=yesterday",
		"/api/v1/positions?jd=abc",
		"/api/v1/positions?t=2000-01-01T12:00:00Z&jd=2451545",
		"/api/v1/positions/earth?t=noon",
		"/api/v1/positions?jd=NaN",
		"/api/v1/positions?jd=Inf",
		"/api/v1/positions?jd=-Inf",
		"/api/v1/positions?jd=1e300",
		"/api/v1/positions?jd=-1",
		"/api/v1/positions?jd=1721059",
		"/api/v1/positions/mars?jd=5373484.5",
		"/api/v1/stream?jd=NaN",
		"/api/v1/julian?jd=x",
		"/api/v1/stream?interval=1ms",
		"/api/v1/stream?interval=soon",
		"/api/v1/stream?speed=1e9",
		"/api/v1/stream?speed=fast",
	} {
		var e map[string]string
		if code := get(t, ts.URL+path, &e); code != http.StatusBadRequest {
			t.Fatalf("%s: status %d", path, code)
		}
		if e["error"] == "" {
			t.Fatalf("%s: no error message", path)
		}
	}
}

func TestJDRange(t *testing.T) {
	ts := testServer(t, orrery.ServerConfig{})
	for _, jd := range []string{"1721059.5", "2451545", "5373484.4"} {
		var f frame
		if code := get(t, ts.URL+"/api/v1/positions?jd="+jd, &f); code != http.StatusOK {
			t.Fatalf("jd=%s: status %d", jd, code)
		}
		if len(f.Positions) != len(orrery.Planets) {
			t.Fatalf("jd=%s: got %d positions", jd, len(f.Positions))
		}
	}
}

func TestJulianEndpoint(t *testing.T) {
	ts := testServer(t, orrery.ServerConfig{})
	var resp struct {
		Time      time.Time `json:"time"`
		JD        float64   `json:"jd"`
		Centuries float64   `json:"centuries"`
	}
	if code := get(t, ts.URL+"/api/v1/julian?t=2100-01-01T12:00:00Z", &resp); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if resp.JD != 2488070.0 || !floats.EqualWithinAbs(resp.Centuries, 1, 1e-12) {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestRateLimit(t *testing.T) {
	ts := testServer(t, orrery.ServerConfig{Rate: 1e-3, Burst: 2})
	for i := 0; i < 2; i++ {
		if code := get(t, ts.URL+"/api/v1/julian", nil); code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, code)
		}
	}
	if code := get(t, ts.URL+"/api/v1/julian", nil); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
	// Health and metrics are not limited.
	if code := get(t, ts.URL+"/healthz", nil); code != http.StatusOK {
		t.Fatalf("healthz: status %d", code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := testServer(t, orrery.ServerConfig{})
	get(t, ts.URL+"/api/v1/positions/venus", nil)
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, name := range []string{
		`orrery_http_requests_total{code="200",method="GET",path="/api/v1/positions/{planet}"}`,
		"orrery_kepler_iterations_bucket",
		"orrery_kepler_nonconverged_total",
	} {
		if !bytes.Contains(body, []byte(name)) {
			t.Fatalf("%s missing from metrics", name)
		}
	}
}

func TestStream(t *testing.T) {
	ts := testServer(t, orrery.ServerConfig{MaxSpeed: 1e7})
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream?t=2000-01-01T12:00:00Z&interval=20ms&speed=86400"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %s", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var frames []frame
	for i := 0; i < 3; i++ {
		var f frame
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatal(err)
		}
		if len(f.Positions) != len(orrery.Planets) {
			t.Fatalf("frame %d has %d positions", i, len(f.Positions))
		}
		frames = append(frames, f)
	}
	if frames[0].Time.Before(j2000) || frames[0].Time.After(j2000.Add(time.Hour)) {
		t.Fatalf("first frame at %s", frames[0].Time)
	}
	for i := 1; i < len(frames); i++ {
		if !frames[i].Time.After(frames[i-1].Time) || frames[i].JD <= frames[i-1].JD {
			t.Fatalf("frame %d at %s, previous at %s", i, frames[i].Time, frames[i-1].Time)
		}
	}
	// Two ticks of 20ms at one day per second are close to an hour.
	if δ := frames[2].Time.Sub(frames[0].Time); δ < 20*time.Minute {
		t.Fatalf("only %s simulated between three frames", δ)
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func TestStreamParams(t *testing.T) {
	p := streamParams{start: j2000, interval: time.Second, speed: -3600}
	dt, err := p.at(2 * time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if !dt.Equal(j2000.Add(-2 * time.Hour)) {
		t.Fatalf("unexpected instant %s", dt)
	}
	p.speed = 1e7
	if _, err := p.at(1000 * time.Hour); err == nil {
		t.Fatal("expected an out of range error")
	}
	// At the int64 boundary the offset must neither wrap nor be accepted.
	limit := float64(math.MaxInt64) / float64(time.Second)
	for _, speed := range []float64{limit, -limit, math.Inf(1), math.NaN()} {
		p.speed = speed
		if dt, err := p.at(time.Second); err == nil {
			t.Fatalf("speed %g: expected an out of range error, got %s", speed, dt)
		}
	}
	p.speed = math.Nextafter(limit, 0)
	dt, err = p.at(time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if !dt.After(j2000.Add(290 * 365 * 24 * time.Hour)) {
		t.Fatalf("offset wrapped: %s", dt)
	}
}

func TestCountNonConvergence(t *testing.T) {
	var before, after dto.Metric
	keplerNonConverged.Write(&before)

	var buf bytes.Buffer
	logger := countNonConvergence(kitlog.NewLogfmtLogger(&buf))
	engine := orrery.NewEngine(orrery.DefaultTable(), orrery.KeplerSolver{Tolerance: 1e-300, MaxIterations: 1}, logger)
	engine.AllPositions(j2000)
	logger.Log("level", "info", "subsys", "http")

	keplerNonConverged.Write(&after)
	if δ := after.GetCounter().GetValue() - before.GetCounter().GetValue(); δ != float64(len(orrery.Planets)) {
		t.Fatalf("counted %f non-convergences", δ)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != len(orrery.Planets)+1 {
		t.Fatalf("expected all records to be forwarded, got %d", lines)
	}
}

type failingJSON struct{}

func (failingJSON) MarshalJSON() ([]byte, error) {
	return nil, errors.New("cannot encode")
}

func TestWriteJSONFailure(t *testing.T) {
	var buf bytes.Buffer
	engine, _ := orrery.NewCachedEngine(orrery.DefaultEngine(), 1)
	s := newServer(engine, orrery.ServerConfig{}, kitlog.NewLogfmtLogger(&buf))
	rec := httptest.NewRecorder()
	s.writeJSON(rec, http.StatusOK, failingJSON{})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rec.Code)
	}
	var e map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil || e["error"] == "" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if !strings.Contains(buf.String(), "level=error") || !strings.Contains(buf.String(), "cannot encode") {
		t.Fatalf("encoding error not logged: %s", buf.String())
	}
}

func TestPrintPositions(t *testing.T) {
	var buf bytes.Buffer
	printPositions(&buf, orrery.DefaultEngine(), orrery.Planets, j2000)
	out := buf.String()
	if !strings.Contains(out, "JD 2451545.000000") {
		t.Fatalf("missing JD in\n%s", out)
	}
	for _, p := range orrery.Planets {
		if !strings.Contains(out, string(p)) {
			t.Fatalf("%s missing in\n%s", p, out)
		}
	}
	if !strings.Contains(out, "100.38") {
		t.Fatalf("missing Earth angle in\n%s", out)
	}
}
