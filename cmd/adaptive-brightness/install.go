package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	daemonutils "github.com/adaptive-brightness/adaptive-brightness/pkg/utils/daemon"
)

// NewInstallCommand .
func NewInstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "install",
		Short:   "Install adaptive-brightness as a systemd user service",
		GroupID: gInstallation,
		Long: `Install the daemon as a systemd user service and start it.

The service runs the current binary, so do not move it after installing. Once
it is moved or deleted, run 'adaptive-brightness install' again.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := daemonutils.Options{ConfigPath: configPath}
			if err := daemonutils.Install(opts); err != nil {
				return fmt.Errorf("failed to install daemon: %w", err)
			}

			logrus.Infof("installation succeeded")
			cmd.Println("Check the service with 'systemctl --user status adaptive-brightness'.")

			return nil
		},
	}
}

// NewUninstallCommand .
func NewUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall",
		Short:   "Uninstall the systemd user service",
		GroupID: gInstallation,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := daemonutils.Uninstall(daemonutils.Options{}); err != nil {
				return fmt.Errorf("failed to uninstall daemon: %w", err)
			}

			cmd.Println("successfully uninstalled")
			cmd.Println("Your config file is kept. Remove it manually for a complete uninstall.")

			return nil
		},
	}
}
