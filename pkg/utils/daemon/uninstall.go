package daemon

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Uninstall stops and disables the user unit and removes its file.
func Uninstall(opts Options) error {
	if err := opts.defaults(); err != nil {
		return err
	}

	path := opts.UnitPath()

	// if the file doesn't exist, there is nothing to stop
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			logrus.Infof("%s not found, nothing to uninstall", path)
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	logrus.Infof("stopping adaptive-brightness")

	if err := opts.Systemctl("--user", "disable", "--now", unitName); err != nil {
		return err
	}

	logrus.Infof("removing %s", path)

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}

	return opts.Systemctl("--user", "daemon-reload")
}
