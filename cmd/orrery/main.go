package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ChristopherRabotin/orrery"
	kitlog "github.com/go-kit/kit/log"
)

var (
	timeStr    string
	planetName string
	trackDur   time.Duration
	timeStep   time.Duration
	csvName    string
	serveAddr  string
	serve      bool
	workers    int
)

func init() {
	// Read flags
	flag.StringVar(&timeStr, "time", "", "instant as RFC3339 (defaults to now)")
	flag.StringVar(&planetName, "planet", "", "planet to track")
	flag.DurationVar(&trackDur, "track", 0, "duration of the track from -time, e.g. 8760h")
	flag.DurationVar(&timeStep, "step", 24*time.Hour, "sampling step of the track")
	flag.StringVar(&csvName, "csv", "", "export the track to positions-<name>.csv in the configured output path")
	flag.BoolVar(&serve, "serve", false, "start the HTTP server")
	flag.StringVar(&serveAddr, "addr", "", "listen address of the HTTP server (overrides server.addr)")
	flag.IntVar(&workers, "workers", 0, "number of workers sampling the track (defaults to the number of CPUs)")
}

func main() {
	flag.Parse()
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)

	conf, err := orrery.ConfigFromEnv()
	if err != nil {
		logger.Log("level", "critical", "subsys", "config", "err", err)
		os.Exit(1)
	}
	engine, err := orrery.NewEngineFromConfig(conf, countNonConvergence(logger))
	if err != nil {
		logger.Log("level", "critical", "subsys", "config", "err", err)
		os.Exit(1)
	}

	if serve {
		if serveAddr != "" {
			conf.Server.Addr = serveAddr
		}
		if err := newServer(engine, conf.Server, logger).ListenAndServe(); err != nil {
			logger.Log("level", "critical", "subsys", "http", "err", err)
			os.Exit(1)
		}
		return
	}

	dt := time.Now().UTC()
	if timeStr != "" {
		if dt, err = time.Parse(time.RFC3339Nano, timeStr); err != nil {
			logger.Log("level", "critical", "subsys", "cli", "time", timeStr, "err", err)
			os.Exit(1)
		}
	}

	if trackDur == 0 {
		printPositions(os.Stdout, engine, engine.Table().Planets(), dt)
		return
	}

	p := orrery.Planet(strings.ToLower(planetName))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	samples, err := orrery.Track(ctx, engine, p, dt, dt.Add(trackDur), timeStep, workers, conf.MaxTrackSamples)
	if err != nil {
		logger.Log("level", "critical", "subsys", "track", "planet", p, "err", err)
		os.Exit(1)
	}
	logger.Log("level", "notice", "subsys", "track", "planet", p, "samples", len(samples), "sweep(deg)", orrery.Sweep(samples))

	if csvName != "" {
		path, err := orrery.ExportCSV(orrery.ExportConfig{Filename: csvName, OutputDir: conf.OutputDir, Timestamp: true}, samples)
		if err != nil {
			logger.Log("level", "critical", "subsys", "export", "err", err)
			os.Exit(1)
		}
		logger.Log("level", "info", "subsys", "export", "file", path)
		return
	}
	printSamples(os.Stdout, samples)
}

// printPositions prints the snapshot of every planet at the provided instant.
func printPositions(w io.Writer, eph orrery.Ephemeris, planets []orrery.Planet, dt time.Time) {
	positions := eph.AllPositions(dt)
	fmt.Fprintf(w, "Positions @ %s (JD %.6f)\n", dt.UTC().Format(time.RFC3339), orrery.JulianDay(dt))
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "planet\tangle (deg)\tr (AU)\tx (AU)\ty (AU)\tz (AU)\t")
	for _, p := range planets {
		s, ok := positions[p]
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%.3f\t%.6f\t%.6f\t%.6f\t\n", p, s.NormalizedAngle, s.R, s.X, s.Y, s.Z)
	}
	tw.Flush()
}

func printSamples(w io.Writer, samples []orrery.Snapshot) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "time\tangle (deg)\tr (AU)\t")
	for _, s := range samples {
		fmt.Fprintf(tw, "%s\t%.4f\t%.6f\t\n", s.DT.UTC().Format(time.RFC3339), s.NormalizedAngle, s.R)
	}
	tw.Flush()
}
