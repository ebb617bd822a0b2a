package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adaptive-brightness/adaptive-brightness/pkg/display"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/monitor"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/sensor"
)

const testConfig = `
log:
  level: debug
sensor:
  driver: mock
  bus: "1"
  gain: high
  integration_time: 300ms
  mock_lux: 42
poll:
  idle_interval: 2s
history:
  path: /var/lib/adaptive-brightness/history.db
monitors:
  - identifier:
      type: default
    curve: [[0, 10], [250, 100]]
  - identifier:
      type: model-serial
      manufacturer: DEL
      model: DELL U2720Q
      serial: 8ABCDE3
    curve: [[0, 20], [500, 90]]
  - identifier:
      type: bus
      bus: 6
    curve: [[100, 50]]
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, testConfig)

	c, used, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if used != path {
		t.Errorf("Load() used = %q, want %q", used, path)
	}

	if c.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", c.Log.Level)
	}
	if c.Sensor.Driver != "mock" || c.Sensor.Bus != "1" || c.Sensor.MockLux != 42 {
		t.Errorf("Sensor = %+v", c.Sensor)
	}
	if c.Sensor.IntegrationTime != 300*time.Millisecond {
		t.Errorf("Sensor.IntegrationTime = %v, want 300ms", c.Sensor.IntegrationTime)
	}
	if c.Sensor.Address != sensor.DefaultTSL2591Address {
		t.Errorf("Sensor.Address = %#x, want default", c.Sensor.Address)
	}
	if c.Poll.FastInterval != 100*time.Millisecond || c.Poll.IdleInterval != 2*time.Second {
		t.Errorf("Poll = %+v", c.Poll)
	}
	if c.History.Interval != 5*time.Minute || c.History.PruneSchedule != "@daily" {
		t.Errorf("History = %+v", c.History)
	}
	if c.Display.Backend != "ddc" {
		t.Errorf("Display.Backend = %q, want ddc", c.Display.Backend)
	}
	if len(c.Monitors) != 3 {
		t.Fatalf("len(Monitors) = %d, want 3", len(c.Monitors))
	}
}

func TestLoadMonitorsPriority(t *testing.T) {
	c, _, err := Load(writeFile(t, testConfig))
	if err != nil {
		t.Fatal(err)
	}

	monitors, err := c.Rules()
	if err != nil {
		t.Fatalf("Rules() error = %v", err)
	}

	want := []monitor.Identifier{
		monitor.BusID{Bus: 6},
		monitor.ModelSerial{Manufacturer: "DEL", Model: "DELL U2720Q", Serial: "8ABCDE3"},
		monitor.Default{},
	}
	for i, m := range monitors {
		if m.Identifier != want[i] {
			t.Errorf("monitors[%d] = %v, want %v", i, m.Identifier, want[i])
		}
	}
	if got := monitors[1].Breakpoints[1]; got.Input != 500 || got.Output != 90 {
		t.Errorf("monitors[1].Breakpoints[1] = %v, want (500, 90)", got)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ADAPTIVE_BRIGHTNESS_SENSOR_BUS", "3")
	t.Setenv("ADAPTIVE_BRIGHTNESS_POLL_FAST_INTERVAL", "250ms")

	c, _, err := Load(writeFile(t, testConfig))
	if err != nil {
		t.Fatal(err)
	}
	if c.Sensor.Bus != "3" {
		t.Errorf("Sensor.Bus = %q, want 3", c.Sensor.Bus)
	}
	if c.Poll.FastInterval != 250*time.Millisecond {
		t.Errorf("Poll.FastInterval = %v, want 250ms", c.Poll.FastInterval)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() error = nil, want error")
	}
}

func TestLoadDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if _, err := os.Stat("/etc/adaptive-brightness/config.yaml"); err == nil {
		t.Skip("system config present")
	}

	c, used, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if used != "" {
		t.Errorf("Load() used = %q, want built-in default", used)
	}

	monitors, err := c.Rules()
	if err != nil {
		t.Fatal(err)
	}
	if len(monitors) != 1 || monitors[0].Identifier != (monitor.Default{}) {
		t.Fatalf("Rules() = %v, want a single default rule", monitors)
	}
	if len(monitors[0].Breakpoints) != 2 || monitors[0].Breakpoints[1].Output != 100 {
		t.Errorf("Breakpoints = %v", monitors[0].Breakpoints)
	}
}

func TestLoadSearchPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path := filepath.Join(dir, "adaptive-brightness", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(testConfig), 0644); err != nil {
		t.Fatal(err)
	}

	_, used, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if used != path {
		t.Errorf("Load() used = %q, want %q", used, path)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{
			name:    "unknown identifier",
			content: "monitors:\n  - identifier: {type: name}\n    curve: [[0, 1]]\n",
			errText: "unknown identifier type",
		},
		{
			name:    "bus without number",
			content: "monitors:\n  - identifier: {type: bus}\n    curve: [[0, 1]]\n",
			errText: "requires bus",
		},
		{
			name:    "serial without serial",
			content: "monitors:\n  - identifier: {type: serial}\n    curve: [[0, 1]]\n",
			errText: "requires serial",
		},
		{
			name:    "short breakpoint",
			content: "monitors:\n  - identifier: {type: default}\n    curve: [[0, 1], [5]]\n",
			errText: "exactly 2 values",
		},
		{
			name:    "bad log level",
			content: "log:\n  level: loud\n",
			errText: "log.level",
		},
		{
			name:    "zero interval",
			content: "poll:\n  fast_interval: 0s\n",
			errText: "poll intervals",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Load(writeFile(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("Load() error = %v, want error containing %q", err, tt.errText)
			}
		})
	}
}

func TestLoadEmptyCurveAccepted(t *testing.T) {
	c, _, err := Load(writeFile(t, "monitors:\n  - identifier: {type: default}\n    curve: []\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	monitors, err := c.Rules()
	if err != nil {
		t.Fatalf("Rules() error = %v", err)
	}
	if len(monitors) != 1 || len(monitors[0].Breakpoints) != 0 {
		t.Errorf("Rules() = %v", monitors)
	}
}

func TestSensorOptions(t *testing.T) {
	c, _, err := Load(writeFile(t, testConfig))
	if err != nil {
		t.Fatal(err)
	}

	opts, err := c.SensorOptions()
	if err != nil {
		t.Fatalf("SensorOptions() error = %v", err)
	}
	if opts.Driver != "mock" || opts.TSL2591.Gain != sensor.GainHigh || opts.TSL2591.IntegrationTime != 300*time.Millisecond {
		t.Errorf("SensorOptions() = %+v", opts)
	}

	c.Sensor.Gain = "huge"
	if _, err := c.SensorOptions(); err == nil {
		t.Error("SensorOptions() error = nil, want invalid gain")
	}
}

func TestGenerateWriteLoad(t *testing.T) {
	displays := []display.Info{
		{Bus: 6, Manufacturer: "DEL", Model: "DELL U2720Q", Serial: "8ABCDE3"},
		{Bus: 7, Manufacturer: "GSM", Model: "LG HDR 4K"},
	}
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if err := Write(path, Generate(displays)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "curve: [[0, 10], [250, 100]]") {
		t.Errorf("generated config does not use flow style curves:\n%s", b)
	}

	c, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v\n%s", err, b)
	}
	if c.Poll.IdleInterval != 5*time.Second || c.History.Retention != 720*time.Hour {
		t.Errorf("Poll = %+v, History = %+v", c.Poll, c.History)
	}

	monitors, err := c.Rules()
	if err != nil {
		t.Fatal(err)
	}
	if len(monitors) != 2 {
		t.Fatalf("len(Rules()) = %d, want 2", len(monitors))
	}
	for i, m := range monitors {
		if !m.Identifier.Matches(displays[i]) {
			t.Errorf("monitors[%d] = %v does not match %v", i, m.Identifier, displays[i])
		}
	}

	if err := Write(path, Generate(nil)); !errors.Is(err, os.ErrExist) {
		t.Errorf("Write() over existing file error = %v, want %v", err, os.ErrExist)
	}
}

func TestGenerateWithoutDisplays(t *testing.T) {
	c := Generate(nil)
	if len(c.Monitors) != 1 || c.Monitors[0].Identifier.Type != IdentifierDefault {
		t.Errorf("Generate(nil).Monitors = %+v, want a single default rule", c.Monitors)
	}
}
