package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ChristopherRabotin/orrery"
	kitlog "github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Julian days accepted by the API: the years 0 to 9999 of RFC3339, on the
// proleptic Gregorian calendar.
const (
	minJD = 1721059.5 // 0000-01-01T00:00:00Z
	maxJD = 5373484.5 // 10000-01-01T00:00:00Z, excluded
)

// frame is the payload of the positions endpoint and of every streamed message.
type frame struct {
	Time      time.Time                         `json:"time"`
	JD        float64                           `json:"jd"`
	Positions map[orrery.Planet]orrery.Snapshot `json:"positions"`
}

type server struct {
	engine  *orrery.CachedEngine
	conf    orrery.ServerConfig
	logger  kitlog.Logger
	limiter *rate.Limiter
	now     func() time.Time
}

func newServer(engine *orrery.CachedEngine, conf orrery.ServerConfig, logger kitlog.Logger) *server {
	limit := rate.Inf
	if conf.Rate > 0 {
		limit = rate.Limit(conf.Rate)
	}
	return &server{
		engine:  engine,
		conf:    conf,
		logger:  kitlog.With(logger, "subsys", "http"),
		limiter: rate.NewLimiter(limit, conf.Burst),
		now:     time.Now,
	}
}

func (s *server) routes() http.Handler {
	router := mux.NewRouter()
	router.Use(metricsMiddleware)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.rateLimit)
	api.HandleFunc("/positions", s.handlePositions).Methods(http.MethodGet)
	api.HandleFunc("/positions/{planet}", s.handlePosition).Methods(http.MethodGet)
	api.HandleFunc("/julian", s.handleJulian).Methods(http.MethodGet)
	api.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)
	return router
}

// ListenAndServe serves the API until the server fails.
func (s *server) ListenAndServe() error {
	srv := &http.Server{
		Addr:              s.conf.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Log("level", "info", "status", "listening", "addr", s.conf.Addr)
	return srv.ListenAndServe()
}

func (s *server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			rateLimited.Inc()
			s.writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) handlePositions(w http.ResponseWriter, r *http.Request) {
	dt, err := s.instant(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.frame(dt))
}

func (s *server) handlePosition(w http.ResponseWriter, r *http.Request) {
	dt, err := s.instant(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	p := orrery.Planet(strings.ToLower(mux.Vars(r)["planet"]))
	pos, err := s.engine.HeliocentricPosition(p, dt)
	if err != nil {
		if errors.Is(err, orrery.ErrUnknownPlanet) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	keplerIterations.Observe(float64(pos.Iterations))
	s.writeJSON(w, http.StatusOK, orrery.NewSnapshot(pos))
}

func (s *server) handleJulian(w http.ResponseWriter, r *http.Request) {
	dt, err := s.instant(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, struct {
		Time      time.Time `json:"time"`
		JD        float64   `json:"jd"`
		Centuries float64   `json:"centuries"`
	}{dt.UTC(), orrery.JulianDay(dt), orrery.J2000Centuries(dt)})
}

// frame returns the snapshots of all planets at the provided instant.
func (s *server) frame(dt time.Time) frame {
	positions := s.engine.AllPositions(dt)
	for _, snap := range positions {
		keplerIterations.Observe(float64(snap.Iterations))
	}
	return frame{Time: dt.UTC(), JD: orrery.JulianDay(dt), Positions: positions}
}

// instant reads the instant of a request from either the t (RFC3339) or the
// jd query parameter, and defaults to now.
func (s *server) instant(r *http.Request) (time.Time, error) {
	q := r.URL.Query()
	tStr, jdStr := q.Get("t"), q.Get("jd")
	switch {
	case tStr != "" && jdStr != "":
		return time.Time{}, errors.New("only one of t and jd may be provided")
	case tStr != "":
		dt, err := time.Parse(time.RFC3339Nano, tStr)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid t: %w", err)
		}
		return dt.UTC(), nil
	case jdStr != "":
		jd, err := strconv.ParseFloat(jdStr, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid jd: %w", err)
		}
		// Also rejects NaN.
		if !(jd >= minJD && jd < maxJD) {
			return time.Time{}, fmt.Errorf("jd must be within [%.1f, %.1f), got %g", minJD, maxJD, jd)
		}
		return orrery.TimeFromJulianDay(jd), nil
	default:
		return s.now().UTC(), nil
	}
}

// writeJSON encodes the value before writing any header, so an encoding
// failure becomes a 500 instead of a truncated 200.
func (s *server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Log("level", "error", "encode", fmt.Sprintf("%T", v), "err", err)
		code = http.StatusInternalServerError
		data, _ = json.Marshal(map[string]string{"error": "could not encode the response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(append(data, '\n')); err != nil {
		s.logger.Log("level", "warning", "write", fmt.Sprintf("%T", v), "err", err)
	}
}

func (s *server) writeError(w http.ResponseWriter, code int, err error) {
	s.writeJSON(w, code, map[string]string{"error": err.Error()})
}
