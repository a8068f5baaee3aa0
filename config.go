package orrery

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/spf13/viper"
)

// ConfigEnv is the environment variable holding the directory of conf.toml.
const ConfigEnv = "ORRERY_CONFIG"

// Config holds the orrery configuration.
type Config struct {
	Kepler          KeplerSolver
	CacheSize       int
	OutputDir       string
	MaxTrackSamples int // cap on the number of samples of a track
	Server          ServerConfig
	Table           Table
}

// ServerConfig configures the HTTP server of the orrery command.
type ServerConfig struct {
	Addr           string
	Rate           float64 // requests per second, all clients included
	Burst          int
	StreamInterval time.Duration // default interval between two streamed frames
	MaxSpeed       float64       // maximum simulated seconds per wall-clock second
}

// ConfigFromEnv loads the configuration from the directory named by ORRERY_CONFIG.
// The defaults are returned if the variable is unset.
func ConfigFromEnv() (Config, error) {
	return LoadConfig(os.Getenv(ConfigEnv))
}

// LoadConfig loads conf.toml from the provided directory. A missing file is
// not an error. Any key may be overridden with an ORRERY_ prefixed
// environment variable, e.g. ORRERY_KEPLER_TOLERANCE.
func LoadConfig(dir string) (Config, error) {
	v := viper.New()
	v.SetConfigName("conf")
	v.SetConfigType("toml")
	v.SetEnvPrefix("ORRERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("kepler.tolerance", DefaultKeplerTolerance)
	v.SetDefault("kepler.max_iterations", DefaultKeplerMaxIterations)
	v.SetDefault("cache.size", DefaultCacheSize)
	v.SetDefault("general.output_path", ".")
	v.SetDefault("track.max_samples", DefaultMaxTrackSamples)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.rate", 50.0)
	v.SetDefault("server.burst", 100)
	v.SetDefault("server.stream_interval", time.Second)
	v.SetDefault("server.max_speed", 1e7)

	if dir != "" {
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("reading %s/conf.toml: %w", dir, err)
			}
		}
	}

	conf := Config{
		Kepler: KeplerSolver{
			Tolerance:     v.GetFloat64("kepler.tolerance"),
			MaxIterations: v.GetInt("kepler.max_iterations"),
		},
		CacheSize:       v.GetInt("cache.size"),
		OutputDir:       v.GetString("general.output_path"),
		MaxTrackSamples: v.GetInt("track.max_samples"),
		Server: ServerConfig{
			Addr:           v.GetString("server.addr"),
			Rate:           v.GetFloat64("server.rate"),
			Burst:          v.GetInt("server.burst"),
			StreamInterval: v.GetDuration("server.stream_interval"),
			MaxSpeed:       v.GetFloat64("server.max_speed"),
		},
	}
	if conf.Kepler.Tolerance <= 0 {
		return Config{}, fmt.Errorf("kepler.tolerance must be positive, got %g", conf.Kepler.Tolerance)
	}
	if conf.Kepler.MaxIterations < 1 {
		return Config{}, fmt.Errorf("kepler.max_iterations must be at least 1, got %d", conf.Kepler.MaxIterations)
	}
	if conf.MaxTrackSamples < 1 {
		return Config{}, fmt.Errorf("track.max_samples must be at least 1, got %d", conf.MaxTrackSamples)
	}

	table, err := readElements(v, DefaultTable())
	if err != nil {
		return Config{}, err
	}
	conf.Table = table
	return conf, nil
}

// readElements adds or replaces the rows found under [elements.<planet>].
func readElements(v *viper.Viper, table Table) (Table, error) {
	var names []string
	for name := range v.GetStringMap("elements") {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		var el OrbitalElements
		if err := v.UnmarshalKey("elements."+name, &el); err != nil {
			return Table{}, fmt.Errorf("elements of %s: %w", name, err)
		}
		if err := el.Validate(); err != nil {
			return Table{}, fmt.Errorf("elements of %s: %w", name, err)
		}
		table = table.With(Planet(strings.ToLower(name)), el)
	}
	return table, nil
}

// NewEngineFromConfig returns a cached engine on the configured table and solver.
func NewEngineFromConfig(conf Config, logger kitlog.Logger) (*CachedEngine, error) {
	table := conf.Table
	if table.Len() == 0 {
		table = DefaultTable()
	}
	return NewCachedEngine(NewEngine(table, conf.Kepler, logger), conf.CacheSize)
}
