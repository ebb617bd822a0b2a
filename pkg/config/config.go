// Package config loads the adaptive-brightness configuration file.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/adaptive-brightness/adaptive-brightness/pkg/display"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/sensor"
)

const (
	appName  = "adaptive-brightness"
	fileName = "config.yaml"

	// EnvPrefix prefixes environment variable overrides, e.g.
	// ADAPTIVE_BRIGHTNESS_SENSOR_BUS=1.
	EnvPrefix = "ADAPTIVE_BRIGHTNESS"
)

const (
	defaultIntegrationTime = 100 * time.Millisecond
	defaultFastInterval    = 100 * time.Millisecond
	defaultIdleInterval    = 5 * time.Second
	defaultHistoryInterval = 5 * time.Minute
	defaultRetention       = 30 * 24 * time.Hour
)

// DefaultConfig is used when no configuration file is found.
const DefaultConfig = `
monitors:
  - identifier:
      type: default
    curve: [[0, 10], [250, 100]]
`

// Config is the whole configuration file.
type Config struct {
	Log      LogConfig       `mapstructure:"log" yaml:"log"`
	Sensor   SensorConfig    `mapstructure:"sensor" yaml:"sensor"`
	Display  DisplayConfig   `mapstructure:"display" yaml:"display"`
	Poll     PollConfig      `mapstructure:"poll" yaml:"poll"`
	Daemon   DaemonConfig    `mapstructure:"daemon" yaml:"daemon"`
	History  HistoryConfig   `mapstructure:"history" yaml:"history"`
	Monitors []MonitorConfig `mapstructure:"monitors" yaml:"monitors"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"` // trace, debug, info, warn, error
}

// SensorConfig configures the ambient light sensor.
type SensorConfig struct {
	Driver          string        `mapstructure:"driver" yaml:"driver"` // tsl2591, mock
	Bus             string        `mapstructure:"bus" yaml:"bus"`
	Address         uint16        `mapstructure:"address" yaml:"address"`
	Gain            string        `mapstructure:"gain" yaml:"gain"`
	IntegrationTime time.Duration `mapstructure:"integration_time" yaml:"integration_time"`
	// KeepConfig uses the gain and integration time already set in the chip.
	KeepConfig bool `mapstructure:"keep_config" yaml:"keep_config"`

	MockLux       float64 `mapstructure:"mock_lux" yaml:"mock_lux"`
	MockVariation float64 `mapstructure:"mock_variation" yaml:"mock_variation"`
}

// DisplayConfig selects how displays are detected and written.
type DisplayConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend"` // ddc, ddcutil
	DDCUtilPath string `mapstructure:"ddcutil_path" yaml:"ddcutil_path"`
}

// PollConfig sets the sensor polling intervals.
type PollConfig struct {
	// FastInterval is used after a cycle that changed a display.
	FastInterval time.Duration `mapstructure:"fast_interval" yaml:"fast_interval"`
	// IdleInterval is used when every display is settled.
	IdleInterval time.Duration `mapstructure:"idle_interval" yaml:"idle_interval"`
}

type DaemonConfig struct {
	// Socket is the unix socket of the status API. Set it to "" to disable
	// the API.
	Socket string `mapstructure:"socket" yaml:"socket"`
}

// HistoryConfig configures the ambient light log.
type HistoryConfig struct {
	// Path is the sqlite database. Empty disables the history.
	Path          string        `mapstructure:"path" yaml:"path"`
	Interval      time.Duration `mapstructure:"interval" yaml:"interval"`
	Retention     time.Duration `mapstructure:"retention" yaml:"retention"`
	PruneSchedule string        `mapstructure:"prune_schedule" yaml:"prune_schedule"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("sensor.driver", "tsl2591")
	v.SetDefault("sensor.bus", "")
	v.SetDefault("sensor.address", sensor.DefaultTSL2591Address)
	v.SetDefault("sensor.gain", "medium")
	v.SetDefault("sensor.integration_time", defaultIntegrationTime)
	v.SetDefault("sensor.keep_config", false)
	v.SetDefault("sensor.mock_lux", 150.0)
	v.SetDefault("sensor.mock_variation", 20.0)

	v.SetDefault("display.backend", "ddc")
	v.SetDefault("display.ddcutil_path", "ddcutil")

	v.SetDefault("poll.fast_interval", defaultFastInterval)
	v.SetDefault("poll.idle_interval", defaultIdleInterval)

	v.SetDefault("daemon.socket", DefaultSocketPath())

	v.SetDefault("history.path", "")
	v.SetDefault("history.interval", defaultHistoryInterval)
	v.SetDefault("history.retention", defaultRetention)
	v.SetDefault("history.prune_schedule", "@daily")
}

// SearchPaths returns the directories searched for config.yaml, in order.
func SearchPaths() []string {
	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, appName))
	}
	return append(paths, filepath.Join("/etc", appName))
}

// DefaultPath is where gen-config writes when no path is given.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", pkgerrors.Wrap(err, "failed to determine user config directory")
	}
	return filepath.Join(dir, appName, fileName), nil
}

// DefaultSocketPath is the status API socket in the user's runtime
// directory.
func DefaultSocketPath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, appName+".sock")
}

// Load reads the configuration. An explicit path must exist. Without one,
// the search paths are tried and the built-in default is used when nothing
// is found. The returned string is the file actually read, empty for the
// built-in default.
func Load(path string) (*Config, string, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	used := ""
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", pkgerrors.Wrapf(err, "failed to read config file %s", path)
		}
		used = path
	} else {
		v.SetConfigName(strings.TrimSuffix(fileName, filepath.Ext(fileName)))
		v.SetConfigType("yaml")
		for _, p := range SearchPaths() {
			v.AddConfigPath(p)
		}

		err := v.ReadInConfig()
		var notFound viper.ConfigFileNotFoundError
		switch {
		case err == nil:
			used = v.ConfigFileUsed()
		case errors.As(err, &notFound):
			logrus.WithField("searched", SearchPaths()).Warn("config file not found in any standard location, using default configuration")
			if err := v.ReadConfig(strings.NewReader(DefaultConfig)); err != nil {
				return nil, "", pkgerrors.Wrap(err, "failed to read default config")
			}
		default:
			return nil, "", pkgerrors.Wrap(err, "failed to read config file")
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, "", pkgerrors.Wrap(err, "failed to unmarshal config")
	}

	if err := c.Validate(); err != nil {
		return nil, "", err
	}

	return &c, used, nil
}

// Validate checks the parts of the configuration that are not checked when
// they are used.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return pkgerrors.Wrap(err, "invalid log.level")
	}
	if c.Poll.FastInterval <= 0 || c.Poll.IdleInterval <= 0 {
		return pkgerrors.New("poll intervals must be positive")
	}
	if c.History.Path != "" && c.History.Interval < 0 {
		return pkgerrors.New("history.interval must not be negative")
	}

	for i, m := range c.Monitors {
		if _, err := m.Identifier.identifier(); err != nil {
			return pkgerrors.Wrapf(err, "monitors[%d]", i)
		}
		for j, p := range m.Curve {
			if len(p) != 2 {
				return pkgerrors.Errorf("monitors[%d].curve[%d]: breakpoint must have exactly 2 values, got %d", i, j, len(p))
			}
		}
	}

	return nil
}

// SensorOptions converts the sensor section.
func (c *Config) SensorOptions() (sensor.Options, error) {
	opts := sensor.Options{
		Driver:        c.Sensor.Driver,
		Bus:           c.Sensor.Bus,
		MockLux:       c.Sensor.MockLux,
		MockVariation: c.Sensor.MockVariation,
	}

	gain, err := sensor.ParseGain(c.Sensor.Gain)
	if err != nil {
		return opts, pkgerrors.Wrap(err, "invalid sensor.gain")
	}
	opts.TSL2591 = sensor.TSL2591Options{
		Address:         c.Sensor.Address,
		Gain:            gain,
		IntegrationTime: c.Sensor.IntegrationTime,
		KeepConfig:      c.Sensor.KeepConfig,
	}

	return opts, nil
}

// DisplayOptions converts the display section.
func (c *Config) DisplayOptions() display.Options {
	return display.Options{
		Backend:     c.Display.Backend,
		DDCUtilPath: c.Display.DDCUtilPath,
	}
}

// LogrusFields summarises the configuration for logging.
func (c *Config) LogrusFields() logrus.Fields {
	return logrus.Fields{
		"sensor":       c.Sensor.Driver,
		"sensorBus":    c.Sensor.Bus,
		"display":      c.Display.Backend,
		"fastInterval": c.Poll.FastInterval.String(),
		"idleInterval": c.Poll.IdleInterval.String(),
		"socket":       c.Daemon.Socket,
		"history":      c.History.Path,
		"monitors":     len(c.Monitors),
	}
}
