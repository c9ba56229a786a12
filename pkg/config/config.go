// Package config loads the simulator settings from YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ardalan-sia/queue-traffic/pkg/agent"
	"github.com/ardalan-sia/queue-traffic/pkg/simulation"
	"github.com/ardalan-sia/queue-traffic/pkg/traffic"
)

// Config holds every tunable of a run. The engine constants (layout,
// kinematics, release cadence, all-red length) default to the values the
// simulator was calibrated with.
type Config struct {
	Network string `yaml:"network"`
	Output  string `yaml:"output"`

	Interval time.Duration `yaml:"interval"`
	Running  bool          `yaml:"running"`
	Ticks    int           `yaml:"ticks"`
	Seed     uint64        `yaml:"seed"`

	QueueCapacity int              `yaml:"queue_capacity"`
	ReleaseEvery  int              `yaml:"release_every"`
	AllRedTicks   int              `yaml:"all_red_ticks"`
	Layout        traffic.Layout   `yaml:"layout"`
	Kinematics    agent.Kinematics `yaml:"kinematics"`

	MetricsAddr string `yaml:"metrics_addr"`
	LogEvery    uint64 `yaml:"log_every"`
	LogLevel    string `yaml:"log_level"`
}

// DefaultConfig returns a configuration that runs immediately.
func DefaultConfig() Config {
	p := simulation.DefaultParams()
	return Config{
		Interval:      p.Interval,
		Running:       true,
		Seed:          p.Seed,
		QueueCapacity: p.QueueCapacity,
		ReleaseEvery:  p.ReleaseEvery,
		AllRedTicks:   p.AllRedTicks,
		Layout:        traffic.DefaultLayout(),
		Kinematics:    p.Kinematics,
		LogEvery:      500,
		LogLevel:      "info",
	}
}

// LoadConfig reads the YAML file at path on top of the defaults. Unknown
// keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("YAML syntax error in config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects values the engine cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be > 0, got %s", c.Interval))
	}
	if c.Ticks < 0 {
		errs = append(errs, fmt.Errorf("ticks must be >= 0, got %d", c.Ticks))
	}
	if c.QueueCapacity < 1 {
		errs = append(errs, fmt.Errorf("queue_capacity must be >= 1, got %d", c.QueueCapacity))
	}
	if c.ReleaseEvery < 1 {
		errs = append(errs, fmt.Errorf("release_every must be >= 1, got %d", c.ReleaseEvery))
	}
	if c.AllRedTicks < 0 {
		errs = append(errs, fmt.Errorf("all_red_ticks must be >= 0, got %d", c.AllRedTicks))
	}
	if c.Layout.StopLine < 0 || c.Layout.Gap < 0 {
		errs = append(errs, fmt.Errorf("layout distances must be >= 0, got %+v", c.Layout))
	}
	if c.Kinematics.Speed <= 0 {
		errs = append(errs, fmt.Errorf("kinematics.speed must be > 0, got %v", c.Kinematics.Speed))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Params converts the engine section into simulation parameters.
func (c Config) Params() simulation.Params {
	return simulation.Params{
		Kinematics:    c.Kinematics,
		ReleaseEvery:  c.ReleaseEvery,
		AllRedTicks:   c.AllRedTicks,
		QueueCapacity: c.QueueCapacity,
		Seed:          c.Seed,
		Interval:      c.Interval,
	}
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}
