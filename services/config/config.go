package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"sensorhub-go/drivers/bhi160"
	"sensorhub-go/x/logx"
	"sensorhub-go/x/mathx"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. SENSORHUB_DEVICE_BUS.
	EnvPrefix = "SENSORHUB"
	// EnvConfig names a config file when Load is given an empty path.
	EnvConfig = "SENSORHUB_CONFIG"
)

// SensorSpec enables one virtual sensor at start-up.
type SensorSpec struct {
	Name      string `mapstructure:"name" yaml:"name"`
	RateHz    uint16 `mapstructure:"rate" yaml:"rate"`
	LatencyMs uint16 `mapstructure:"latency" yaml:"latency"`
}

// DeviceConfig locates the hub and bounds the parameter handshake.
type DeviceConfig struct {
	Bus          string        `mapstructure:"bus" yaml:"bus"`
	Address      uint16        `mapstructure:"address" yaml:"address"`
	Firmware     string        `mapstructure:"firmware" yaml:"firmware"`
	PollInterval time.Duration `mapstructure:"pollInterval" yaml:"pollInterval"`
	AckTimeout   time.Duration `mapstructure:"ackTimeout" yaml:"ackTimeout"`
	MaxPolls     int           `mapstructure:"maxPolls" yaml:"maxPolls"`
	Sensors      []SensorSpec  `mapstructure:"sensors" yaml:"sensors"`
}

// TelemetryConfig paces FIFO draining.
type TelemetryConfig struct {
	Interval    time.Duration `mapstructure:"interval" yaml:"interval"`
	BufferSize  int           `mapstructure:"bufferSize" yaml:"bufferSize"`
	DrainRate   float64       `mapstructure:"drainRate" yaml:"drainRate"` // drains per second
	Burst       int           `mapstructure:"burst" yaml:"burst"`
	TopicPrefix string        `mapstructure:"topicPrefix" yaml:"topicPrefix"`
}

type MetricsConfig struct {
	Enable bool   `mapstructure:"enable" yaml:"enable"`
	Addr   string `mapstructure:"addr" yaml:"addr"`
	Path   string `mapstructure:"path" yaml:"path"`
}

type HeartbeatConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// Config is the top-level application configuration.
type Config struct {
	Device    DeviceConfig    `mapstructure:"device" yaml:"device"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Logging   logx.Config     `mapstructure:"logging" yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Heartbeat HeartbeatConfig `mapstructure:"heartbeat" yaml:"heartbeat"`
}

// Loader reads configuration from defaults, an optional file and the
// environment, in increasing priority.
type Loader struct {
	v    *viper.Viper
	path string
}

// NewLoader prepares a loader. An empty path falls back to $SENSORHUB_CONFIG
// and then to sensorhub.yaml in the working directory or /etc/sensorhub.
func NewLoader(path string) (*Loader, error) {
	v := viper.New()

	if err := setDefaults(v); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/sensorhub")
		v.SetConfigName("sensorhub")
		v.SetConfigType("yaml")
	}
	return &Loader{v: v, path: path}, nil
}

// Load reads the configuration and validates it.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		// A missing default file is fine; an explicit path must exist.
		var notFound viper.ConfigFileNotFoundError
		if l.path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// File reports the config file in use, if any.
func (l *Loader) File() string { return l.v.ConfigFileUsed() }

// Watch calls fn with the reloaded configuration whenever the config file
// changes. Invalid edits are reported through onErr and otherwise ignored.
func (l *Loader) Watch(fn func(*Config), onErr func(error)) {
	l.v.OnConfigChange(func(fsnotify.Event) {
		var cfg Config
		err := l.v.Unmarshal(&cfg)
		if err == nil {
			err = cfg.Validate()
		}
		if err != nil {
			if onErr != nil {
				onErr(err)
			}
			return
		}
		fn(&cfg)
	})
	l.v.WatchConfig()
}

// Load is NewLoader(path).Load().
func Load(path string) (*Config, error) {
	l, err := NewLoader(path)
	if err != nil {
		return nil, err
	}
	return l.Load()
}

// Default returns the built-in configuration, ignoring files and the
// environment.
func Default() *Config {
	v := viper.New()
	var cfg Config
	err := setDefaults(v)
	if err == nil {
		err = v.Unmarshal(&cfg)
	}
	if err != nil {
		panic(fmt.Sprintf("config: built-in defaults: %v", err))
	}
	return &cfg
}

// setDefaults registers every leaf of the embedded document as a viper
// default.
func setDefaults(v *viper.Viper) error {
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(defaultConfig), &doc); err != nil {
		return fmt.Errorf("parse default config: %w", err)
	}
	setTree(v, "", doc)
	return nil
}

func setTree(v *viper.Viper, prefix string, m map[string]any) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			setTree(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// Validate checks ranges the services depend on.
func (c *Config) Validate() error {
	if c.Device.Bus == "" {
		return errors.New("device.bus is required")
	}
	if !mathx.Between[uint16](c.Device.Address, 0x03, 0x77) {
		return fmt.Errorf("device.address %#x is not a 7-bit I2C address", c.Device.Address)
	}
	if err := c.DriverConfig().Validate(); err != nil {
		return fmt.Errorf("device: %w", err)
	}
	for _, s := range c.Device.Sensors {
		if _, ok := bhi160.ParseSensorID(s.Name); !ok {
			return fmt.Errorf("device.sensors: unknown sensor %q", s.Name)
		}
	}
	if c.Telemetry.Interval <= 0 {
		return errors.New("telemetry.interval must be positive")
	}
	if c.Telemetry.BufferSize <= 0 {
		return errors.New("telemetry.bufferSize must be positive")
	}
	if c.Telemetry.DrainRate < 0 || c.Telemetry.Burst < 0 {
		return errors.New("telemetry.drainRate and telemetry.burst must not be negative")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q: want json or console", c.Logging.Format)
	}
	if c.Heartbeat.Interval <= 0 {
		return errors.New("heartbeat.interval must be positive")
	}
	return nil
}

// DriverConfig derives the hub driver settings.
func (c *Config) DriverConfig() bhi160.Config {
	return bhi160.Config{
		PollInterval: c.Device.PollInterval,
		AckTimeout:   c.Device.AckTimeout,
		MaxPolls:     c.Device.MaxPolls,
	}
}

// Dump renders the configuration as YAML.
func (c *Config) Dump() ([]byte, error) { return yaml.Marshal(c) }
