// Package config loads the single process configuration document
// (rfscout.yaml by default) shared by the daemon and its subcommands.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kx9v/rfscout/internal/logging"
)

// Device configures the SDR tuner backend.
type Device struct {
	Driver      string  `yaml:"driver"` // "rtltcp" or "mock"
	Address     string  `yaml:"address"`
	SampleRate  float64 `yaml:"sample_rate_hz"`
	Gain        string  `yaml:"gain"`
	PPM         float64 `yaml:"ppm"`
	DeviceIndex int     `yaml:"device_index"`
}

// Scan configures the spectrum scanner.
type Scan struct {
	FFTSize     int     `yaml:"fft_size"`
	ThresholdDB float64 `yaml:"threshold_db"`
	USBRetries  int     `yaml:"usb_retries"`
}

// Store configures the embedded asset/signal database.
type Store struct {
	Path string `yaml:"path"`
}

// Notify configures outbound alert delivery.
type Notify struct {
	Sinks     []string `yaml:"sinks"` // e.g. "console", "ntfy:topic"
	NtfyTopic string   `yaml:"ntfy_topic"`
	NtfyAddr  string   `yaml:"ntfy_server"`
	NtfyToken string   `yaml:"ntfy_token"`
}

// Audit configures the compliance audit trail.
type Audit struct {
	Path string `yaml:"path"` // empty disables auditing
}

// Logging configures the process-wide structured logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Backend string `yaml:"backend"` // "std" or "zap"
}

// Config is the complete process configuration.
type Config struct {
	Device  Device  `yaml:"device"`
	Scan    Scan    `yaml:"scan"`
	Store   Store   `yaml:"store"`
	Notify  Notify  `yaml:"notify"`
	Audit   Audit   `yaml:"audit"`
	Logging Logging `yaml:"logging"`

	WatchStateDir string `yaml:"watch_state_dir"`
}

// Default returns the teacher's customary defaults, mirroring
// scanner.New/baseline.New where this package's concerns overlap theirs.
func Default() Config {
	home, _ := os.UserHomeDir()
	base := home
	if base == "" {
		base = "."
	}
	return Config{
		Device: Device{
			Driver:      "rtltcp",
			Address:     "127.0.0.1:1234",
			SampleRate:  2_400_000,
			Gain:        "auto",
			DeviceIndex: 0,
		},
		Scan: Scan{
			FFTSize:     8192,
			ThresholdDB: -30,
			USBRetries:  3,
		},
		Store: Store{
			Path: base + "/.rfscout/rfscout.db",
		},
		Notify: Notify{
			Sinks: []string{"console"},
		},
		Audit: Audit{
			Path: base + "/.rfscout/audit.jsonl",
		},
		Logging: Logging{
			Level:   "info",
			Format:  "text",
			Backend: "std",
		},
		WatchStateDir: base + "/.rfscout/watches",
	}
}

// Load reads and parses path, starting from Default and overlaying
// whatever fields the document sets, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	body, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, Validate(&cfg)
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(body, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := Validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate clamps and defaults fields the way telemetry.validateConfig
// does in the teacher's stack: reject what can't be coerced, fill in what
// can.
func Validate(c *Config) error {
	if c.Device.SampleRate <= 0 {
		c.Device.SampleRate = 2_400_000
	}
	if c.Device.Driver == "" {
		c.Device.Driver = "rtltcp"
	}
	if c.Device.Driver != "rtltcp" && c.Device.Driver != "mock" {
		return fmt.Errorf("device.driver must be %q or %q, got %q", "rtltcp", "mock", c.Device.Driver)
	}
	if c.Scan.FFTSize <= 0 {
		c.Scan.FFTSize = 8192
	}
	if c.Scan.FFTSize&(c.Scan.FFTSize-1) != 0 {
		return fmt.Errorf("scan.fft_size must be a power of two, got %d", c.Scan.FFTSize)
	}
	if c.Scan.USBRetries < 0 {
		return fmt.Errorf("scan.usb_retries must be >= 0, got %d", c.Scan.USBRetries)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	if len(c.Notify.Sinks) == 0 {
		c.Notify.Sinks = []string{"console"}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		return fmt.Errorf("logging.format: %w", err)
	}
	if c.Logging.Backend != "std" && c.Logging.Backend != "zap" {
		return fmt.Errorf("logging.backend must be %q or %q, got %q", "std", "zap", c.Logging.Backend)
	}
	if c.WatchStateDir == "" {
		return fmt.Errorf("watch_state_dir must not be empty")
	}
	return nil
}

// NewLogger builds the process logger described by c.Logging, choosing
// between the stdlib-backed and zap-backed implementations the same way
// both satisfy logging.Logger without call sites caring which.
func NewLogger(c Logging) (logging.Logger, error) {
	level, err := logging.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(c.Format)
	if err != nil {
		return nil, err
	}
	if c.Backend == "zap" {
		return logging.NewZap(level, format)
	}
	return logging.New(level, format, os.Stderr), nil
}
