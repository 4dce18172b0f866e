// Package config loads navigator settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/globe-navigator/core"
	"github.com/signalsfoundry/globe-navigator/globe"
	"github.com/signalsfoundry/globe-navigator/internal/logging"
	"github.com/signalsfoundry/globe-navigator/internal/observability"
	"github.com/signalsfoundry/globe-navigator/model"
	"github.com/signalsfoundry/globe-navigator/timectrl"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid navigator config")

// Position is a YAML-friendly geographic position in degrees and metres.
type Position struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Altitude  float64 `yaml:"altitude"`
}

// Logging mirrors logging.Config.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Tracing mirrors observability.TracingConfig.
type Tracing struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Navigator is the full configuration of one navigation session and its host.
type Navigator struct {
	ThrottleMillis  int64         `yaml:"throttle_ms"`
	CoastMillis     float64       `yaml:"coast_duration_ms"`
	FrameInterval   time.Duration `yaml:"frame_interval"`
	StopDelayMillis int64         `yaml:"stop_delay_ms"`

	Start   Position `yaml:"start"`
	Heading float64  `yaml:"heading"`
	Tilt    float64  `yaml:"tilt"`

	Logging Logging `yaml:"logging"`
	Tracing Tracing `yaml:"tracing"`

	MetricsAddr string `yaml:"metrics_addr"`
	GRPCAddr    string `yaml:"grpc_addr"`
}

// Default returns the configuration used when no file is given.
func Default() Navigator {
	return Navigator{
		ThrottleMillis:  core.DefaultThrottleMillis,
		CoastMillis:     core.DefaultCoastMillis,
		FrameInterval:   timectrl.DefaultFrameInterval,
		StopDelayMillis: globe.DefaultStopDelayMillis,
		Start:           Position{Altitude: 10_000_000},
		Logging:         Logging{Level: "info", Format: "text"},
		Tracing:         Tracing{Exporter: "stdout", ServiceName: "globe-navigator", SampleRatio: 1},
	}
}

// Load reads path, applies environment overrides and defaults, and validates
// the result. An empty path yields the defaults plus environment overrides.
func Load(path string) (Navigator, error) {
	if path == "" {
		return finish(Default())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Navigator{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Navigator{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default and finishes it like Load.
func Parse(data []byte) (Navigator, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Navigator{}, fmt.Errorf("unmarshal: %w", err)
	}
	return finish(cfg)
}

func finish(cfg Navigator) (Navigator, error) {
	if err := applyEnv(&cfg); err != nil {
		return Navigator{}, err
	}
	cfg = cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Navigator{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero or negative tunables with their defaults.
func (n Navigator) ApplyDefaults() Navigator {
	if n.ThrottleMillis <= 0 {
		n.ThrottleMillis = core.DefaultThrottleMillis
	}
	if n.CoastMillis <= 0 {
		n.CoastMillis = core.DefaultCoastMillis
	}
	if n.FrameInterval <= 0 {
		n.FrameInterval = timectrl.DefaultFrameInterval
	}
	if n.StopDelayMillis <= 0 {
		n.StopDelayMillis = globe.DefaultStopDelayMillis
	}
	if n.Tracing.ServiceName == "" {
		n.Tracing.ServiceName = "globe-navigator"
	}
	if n.Tracing.Exporter == "" {
		n.Tracing.Exporter = "stdout"
	}
	return n
}

// Validate reports the first out-of-range field.
func (n Navigator) Validate() error {
	switch {
	case n.Start.Latitude < -90 || n.Start.Latitude > 90:
		return fmt.Errorf("%w: start.latitude %v outside [-90, 90]", ErrInvalid, n.Start.Latitude)
	case n.Start.Longitude < -180 || n.Start.Longitude > 180:
		return fmt.Errorf("%w: start.longitude %v outside [-180, 180]", ErrInvalid, n.Start.Longitude)
	case n.Start.Altitude <= 0:
		return fmt.Errorf("%w: start.altitude must be positive", ErrInvalid)
	case n.Tilt < 0 || n.Tilt > globe.MaxTilt:
		return fmt.Errorf("%w: tilt %v outside [0, %v]", ErrInvalid, n.Tilt, globe.MaxTilt)
	case n.Tracing.SampleRatio < 0 || n.Tracing.SampleRatio > 1:
		return fmt.Errorf("%w: tracing.sample_ratio %v outside [0, 1]", ErrInvalid, n.Tracing.SampleRatio)
	}
	return nil
}

// Tuning returns the hot-reloadable subset.
func (n Navigator) Tuning() core.Tuning {
	return core.Tuning{ThrottleMillis: n.ThrottleMillis, CoastMillis: n.CoastMillis}
}

// StartPosition returns the initial camera position.
func (n Navigator) StartPosition() model.Position {
	return model.Position{Latitude: n.Start.Latitude, Longitude: n.Start.Longitude, Altitude: n.Start.Altitude}
}

// LoggingConfig converts to logging.Config.
func (n Navigator) LoggingConfig() logging.Config {
	return logging.Config{Level: n.Logging.Level, Format: n.Logging.Format, File: n.Logging.File}
}

// TracingConfig converts to observability.TracingConfig.
func (n Navigator) TracingConfig() observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     n.Tracing.Enabled,
		ServiceName: n.Tracing.ServiceName,
		Exporter:    n.Tracing.Exporter,
		Endpoint:    n.Tracing.Endpoint,
		SampleRatio: n.Tracing.SampleRatio,
	}
}

func applyEnv(n *Navigator) error {
	if raw := os.Getenv("NAV_THROTTLE_MS"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: NAV_THROTTLE_MS: %v", ErrInvalid, err)
		}
		n.ThrottleMillis = v
	}
	if raw := os.Getenv("NAV_COAST_MS"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%w: NAV_COAST_MS: %v", ErrInvalid, err)
		}
		n.CoastMillis = v
	}
	if raw := os.Getenv("NAV_TRACING_ENABLED"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%w: NAV_TRACING_ENABLED: %v", ErrInvalid, err)
		}
		n.Tracing.Enabled = v
	}
	if raw := os.Getenv("NAV_TRACING_EXPORTER"); raw != "" {
		n.Tracing.Exporter = strings.ToLower(raw)
	}
	if raw := os.Getenv("NAV_OTLP_ENDPOINT"); raw != "" {
		n.Tracing.Endpoint = raw
	}
	if raw := os.Getenv("NAV_TRACING_SAMPLE_RATIO"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%w: NAV_TRACING_SAMPLE_RATIO: %v", ErrInvalid, err)
		}
		n.Tracing.SampleRatio = v
	}
	return nil
}
