package config

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"

	"github.com/adaptive-brightness/adaptive-brightness/pkg/curve"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/display"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/monitor"
)

// Identifier types.
const (
	IdentifierDefault     = "default"
	IdentifierBus         = "bus"
	IdentifierModel       = "model"
	IdentifierSerial      = "serial"
	IdentifierModelSerial = "model-serial"
)

// MonitorConfig is one brightness rule.
type MonitorConfig struct {
	Identifier IdentifierConfig `mapstructure:"identifier" yaml:"identifier"`
	Curve      Curve            `mapstructure:"curve" yaml:"curve"`
}

// IdentifierConfig selects displays. Which fields are used depends on Type.
type IdentifierConfig struct {
	Type         string `mapstructure:"type" yaml:"type"`
	Bus          *int   `mapstructure:"bus" yaml:"bus,omitempty"`
	Manufacturer string `mapstructure:"manufacturer" yaml:"manufacturer,omitempty"`
	Model        string `mapstructure:"model" yaml:"model,omitempty"`
	Serial       string `mapstructure:"serial" yaml:"serial,omitempty"`
}

// Curve is a list of [input, output] breakpoints.
type Curve [][]uint32

// DefaultCurve maps darkness to 10% and 250 lux and above to 100%.
var DefaultCurve = Curve{{0, 10}, {250, 100}}

func (i IdentifierConfig) identifier() (monitor.Identifier, error) {
	switch i.Type {
	case IdentifierDefault:
		return monitor.Default{}, nil
	case IdentifierBus:
		if i.Bus == nil {
			return nil, fmt.Errorf("identifier %q requires bus", i.Type)
		}
		if *i.Bus < 0 {
			return nil, fmt.Errorf("invalid bus %d", *i.Bus)
		}
		return monitor.BusID{Bus: *i.Bus}, nil
	case IdentifierModel:
		if i.Manufacturer == "" && i.Model == "" {
			return nil, fmt.Errorf("identifier %q requires manufacturer or model", i.Type)
		}
		return monitor.Model{Manufacturer: i.Manufacturer, Model: i.Model}, nil
	case IdentifierSerial:
		if i.Serial == "" {
			return nil, fmt.Errorf("identifier %q requires serial", i.Type)
		}
		return monitor.Serial{Serial: i.Serial}, nil
	case IdentifierModelSerial:
		if i.Manufacturer == "" && i.Model == "" && i.Serial == "" {
			return nil, fmt.Errorf("identifier %q requires manufacturer, model or serial", i.Type)
		}
		return monitor.ModelSerial{Manufacturer: i.Manufacturer, Model: i.Model, Serial: i.Serial}, nil
	case "":
		return nil, fmt.Errorf("identifier type is required")
	default:
		return nil, fmt.Errorf("unknown identifier type %q", i.Type)
	}
}

// Points converts the curve. Breakpoints must have two values.
func (c Curve) Points() ([]curve.Point, error) {
	points := make([]curve.Point, 0, len(c))
	for i, p := range c {
		if len(p) != 2 {
			return nil, fmt.Errorf("breakpoint %d must have exactly 2 values, got %d", i, len(p))
		}
		points = append(points, curve.Point{Input: p[0], Output: p[1]})
	}
	return points, nil
}

// Rules returns the monitor rules in priority order.
func (c *Config) Rules() ([]monitor.Config, error) {
	ret := make([]monitor.Config, 0, len(c.Monitors))
	for i, m := range c.Monitors {
		ident, err := m.Identifier.identifier()
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "monitors[%d]", i)
		}
		points, err := m.Curve.Points()
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "monitors[%d]", i)
		}
		ret = append(ret, monitor.Config{Identifier: ident, Breakpoints: points})
	}

	monitor.SortConfigs(ret)

	return ret, nil
}

// Generate returns a configuration with one rule per display, identified by
// manufacturer, model and serial, all using DefaultCurve. Without displays
// a single default rule is generated.
func Generate(displays []display.Info) *Config {
	c := &Config{
		Log:     LogConfig{Level: "info"},
		Sensor:  SensorConfig{Driver: "tsl2591", Address: 0x29, Gain: "medium", IntegrationTime: defaultIntegrationTime, MockLux: 150, MockVariation: 20},
		Display: DisplayConfig{Backend: "ddc", DDCUtilPath: "ddcutil"},
		Daemon:  DaemonConfig{Socket: DefaultSocketPath()},
		Poll:    PollConfig{FastInterval: defaultFastInterval, IdleInterval: defaultIdleInterval},
		History: HistoryConfig{Interval: defaultHistoryInterval, Retention: defaultRetention, PruneSchedule: "@daily"},
	}

	for _, d := range displays {
		c.Monitors = append(c.Monitors, MonitorConfig{
			Identifier: IdentifierConfig{
				Type:         IdentifierModelSerial,
				Manufacturer: d.Manufacturer,
				Model:        d.Model,
				Serial:       d.Serial,
			},
			Curve: DefaultCurve,
		})
	}

	if len(c.Monitors) == 0 {
		c.Monitors = []MonitorConfig{{
			Identifier: IdentifierConfig{Type: IdentifierDefault},
			Curve:      DefaultCurve,
		}}
	}

	return c
}
