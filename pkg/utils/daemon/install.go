// Package daemon installs adaptive-brightness as a systemd user service.
package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	unitName = "adaptive-brightness.service"

	unitTemplate = `[Unit]
Description=Adaptive display brightness from an ambient light sensor
After=graphical-session.target

[Service]
Type=simple
ExecStart={{exec}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`
)

// Systemctl runs systemctl with args.
type Systemctl func(args ...string) error

func runSystemctl(args ...string) error {
	out, err := exec.Command("systemctl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Options configures Install and Uninstall. Zero values use the current
// executable, the user's systemd unit directory and the real systemctl.
type Options struct {
	Executable string
	ConfigPath string
	UnitDir    string
	Systemctl  Systemctl
}

func (o *Options) defaults() error {
	if o.UnitDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("failed to get the user config directory: %w", err)
		}
		o.UnitDir = filepath.Join(dir, "systemd", "user")
	}
	if o.Systemctl == nil {
		o.Systemctl = runSystemctl
	}
	return nil
}

// UnitPath returns where the unit file is written.
func (o Options) UnitPath() string {
	return filepath.Join(o.UnitDir, unitName)
}

// Install writes the user unit and enables it.
func Install(opts Options) error {
	if err := opts.defaults(); err != nil {
		return err
	}

	exePath := opts.Executable
	if exePath == "" {
		p, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get the path to the current executable: %w", err)
		}
		exePath = p
	}
	exePath, err := filepath.Abs(exePath)
	if err != nil {
		return fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}

	logrus.Infof("current executable path: %s", exePath)

	cmdline := exePath + " run"
	if opts.ConfigPath != "" {
		abs, err := filepath.Abs(opts.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to get the absolute path to %s: %w", opts.ConfigPath, err)
		}
		cmdline += " --config " + abs
	}
	unit := strings.ReplaceAll(unitTemplate, "{{exec}}", cmdline)

	if err := os.MkdirAll(opts.UnitDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", opts.UnitDir, err)
	}

	path := opts.UnitPath()
	if _, err := os.Stat(path); err == nil {
		logrus.Warnf("%s already exists, overwriting", path)
	}

	logrus.Infof("writing systemd unit to %s", path)
	if err := os.WriteFile(path, []byte(unit), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := opts.Systemctl("--user", "daemon-reload"); err != nil {
		return err
	}

	logrus.Infof("starting adaptive-brightness")

	return opts.Systemctl("--user", "enable", "--now", unitName)
}
