package main

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

const (
	minStreamInterval = 10 * time.Millisecond
	writeWait         = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamParams are the query parameters of the stream endpoint.
type streamParams struct {
	start    time.Time
	interval time.Duration
	speed    float64 // simulated seconds per wall-clock second
}

func (s *server) streamParams(r *http.Request) (streamParams, error) {
	start, err := s.instant(r)
	if err != nil {
		return streamParams{}, err
	}
	params := streamParams{start: start, interval: s.conf.StreamInterval, speed: 1}
	q := r.URL.Query()
	if str := q.Get("interval"); str != "" {
		if params.interval, err = time.ParseDuration(str); err != nil {
			return streamParams{}, fmt.Errorf("invalid interval: %w", err)
		}
	}
	if params.interval < minStreamInterval {
		return streamParams{}, fmt.Errorf("interval must be at least %s", minStreamInterval)
	}
	if str := q.Get("speed"); str != "" {
		if params.speed, err = strconv.ParseFloat(str, 64); err != nil {
			return streamParams{}, fmt.Errorf("invalid speed: %w", err)
		}
	}
	if math.IsNaN(params.speed) || (s.conf.MaxSpeed > 0 && math.Abs(params.speed) > s.conf.MaxSpeed) {
		return streamParams{}, fmt.Errorf("speed must be within ±%g", s.conf.MaxSpeed)
	}
	return params, nil
}

// at returns the simulated instant after the provided wall-clock duration.
func (p streamParams) at(elapsed time.Duration) (time.Time, error) {
	offset := elapsed.Seconds() * p.speed * float64(time.Second)
	// float64(math.MaxInt64) rounds up to 2^63, so any smaller value fits.
	if math.IsNaN(offset) || math.Abs(offset) >= float64(math.MaxInt64) {
		return time.Time{}, errors.New("simulated time out of range")
	}
	return p.start.Add(time.Duration(offset)), nil
}

// handleStream pushes all the planet positions every interval, at the
// simulated time start + elapsed·speed, until the client goes away.
func (s *server) handleStream(w http.ResponseWriter, r *http.Request) {
	params, err := s.streamParams(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already replied to the client.
		s.logger.Log("level", "warning", "stream", "upgrade", "err", err)
		return
	}
	defer conn.Close()
	streamClients.Inc()
	defer streamClients.Dec()
	s.logger.Log("level", "info", "stream", "open", "remote", r.RemoteAddr, "start", params.start, "speed", params.speed, "interval", params.interval)

	// Reading is required to process close frames.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(params.interval)
	defer ticker.Stop()
	wallStart := time.Now()
	for {
		dt, err := params.at(time.Since(wallStart))
		if err != nil {
			conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, err.Error()), time.Now().Add(writeWait))
			return
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(s.frame(dt)); err != nil {
			s.logger.Log("level", "info", "stream", "closed", "remote", r.RemoteAddr, "err", err)
			return
		}
		select {
		case <-ticker.C:
		case <-closed:
			s.logger.Log("level", "info", "stream", "closed", "remote", r.RemoteAddr)
			return
		case <-r.Context().Done():
			return
		}
	}
}
