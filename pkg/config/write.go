package config

import (
	"io"
	"os"
	"path/filepath"
	"strconv"

	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Write encodes c to a new file at path, creating parent directories.
// An existing file is never overwritten.
func Write(path string, c *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return pkgerrors.Wrapf(err, "failed to create parent directory of %s", path)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to create new config file %s", path)
	}
	defer f.Close()

	if err := Encode(f, c); err != nil {
		return pkgerrors.Wrapf(err, "failed to write config file %s", path)
	}

	return f.Close()
}

// Encode writes c as YAML.
func Encode(w io.Writer, c *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

// MarshalYAML writes the curve as [[in, out], ...].
func (c Curve) MarshalYAML() (interface{}, error) {
	n := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, p := range c {
		pn := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, v := range p {
			pn.Content = append(pn.Content, &yaml.Node{
				Kind:  yaml.ScalarNode,
				Tag:   "!!int",
				Value: strconv.FormatUint(uint64(v), 10),
			})
		}
		n.Content = append(n.Content, pn)
	}
	return n, nil
}

// The following write durations in their string form so that the file
// reads back through viper.

func (s SensorConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Driver          string  `yaml:"driver"`
		Bus             string  `yaml:"bus"`
		Address         uint16  `yaml:"address"`
		Gain            string  `yaml:"gain"`
		IntegrationTime string  `yaml:"integration_time"`
		KeepConfig      bool    `yaml:"keep_config"`
		MockLux         float64 `yaml:"mock_lux"`
		MockVariation   float64 `yaml:"mock_variation"`
	}{
		Driver:          s.Driver,
		Bus:             s.Bus,
		Address:         s.Address,
		Gain:            s.Gain,
		IntegrationTime: s.IntegrationTime.String(),
		KeepConfig:      s.KeepConfig,
		MockLux:         s.MockLux,
		MockVariation:   s.MockVariation,
	}, nil
}

func (p PollConfig) MarshalYAML() (interface{}, error) {
	return struct {
		FastInterval string `yaml:"fast_interval"`
		IdleInterval string `yaml:"idle_interval"`
	}{
		FastInterval: p.FastInterval.String(),
		IdleInterval: p.IdleInterval.String(),
	}, nil
}

func (h HistoryConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Path          string `yaml:"path"`
		Interval      string `yaml:"interval"`
		Retention     string `yaml:"retention"`
		PruneSchedule string `yaml:"prune_schedule"`
	}{
		Path:          h.Path,
		Interval:      h.Interval.String(),
		Retention:     h.Retention.String(),
		PruneSchedule: h.PruneSchedule,
	}, nil
}
