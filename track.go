package orrery

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxTrackSamples is the default cap on the number of samples of a track.
const DefaultMaxTrackSamples = 1000000

// Track samples the position of a planet every step from start until end
// (inclusive), using up to workers goroutines (all CPUs if workers <= 0).
// Tracks of more than maxSamples samples are refused (DefaultMaxTrackSamples
// if maxSamples <= 0). Samples are returned in chronological order.
func Track(ctx context.Context, eph Ephemeris, p Planet, start, end time.Time, step time.Duration, workers, maxSamples int) ([]Snapshot, error) {
	if step <= 0 {
		return nil, errors.New("track step must be positive")
	}
	if end.Before(start) {
		return nil, errors.New("track end is before its start")
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if maxSamples <= 0 {
		maxSamples = DefaultMaxTrackSamples
	}
	// Checked before adding the end sample, which may overflow at 1ns steps.
	intervals := int64(end.Sub(start) / step)
	if intervals >= int64(maxSamples) {
		return nil, fmt.Errorf("track of %s every %s exceeds %d samples", end.Sub(start), step, maxSamples)
	}
	// Fail early rather than once per sample.
	if _, err := eph.HeliocentricPosition(p, start); err != nil {
		return nil, err
	}

	count := int(intervals) + 1
	samples := make([]Snapshot, count)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < count; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i // per-iteration copy; go directive lowered to 1.21
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pos, err := eph.HeliocentricPosition(p, start.Add(time.Duration(i)*step))
			if err != nil {
				return err
			}
			samples[i] = NewSnapshot(pos)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// Sweep returns the total signed angle in degrees swept between consecutive
// samples, assuming no sample pair is more than half a turn apart.
func Sweep(samples []Snapshot) float64 {
	var total float64
	for i := 1; i < len(samples); i++ {
		total += AngleDelta(samples[i-1].Angle, samples[i].Angle)
	}
	return total
}
