package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/adaptive-brightness/adaptive-brightness/pkg/client"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/config"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/daemon"
)

var (
	logLevel   = "info"
	configPath = ""
	socketPath = config.DefaultSocketPath()
)

var (
	gBasic        = "Basic:"
	gConfig       = "Configuration:"
	gInstallation = "Installation:"
	commandGroups = []string{
		gBasic,
		gConfig,
		gInstallation,
	}
)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	switch {
	case errors.Is(err, client.ErrDaemonNotRunning):
		fmt.Fprintln(os.Stderr, "\nError: adaptive-brightness daemon is not running")
		fmt.Fprintln(os.Stderr, "Start it with 'adaptive-brightness run' or install it with 'adaptive-brightness install'.")
	case errors.Is(err, client.ErrPermissionDenied):
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - The daemon socket belongs to another user. Use --socket to point at your own daemon.")
	case errors.Is(err, daemon.ErrNoMonitors):
		fmt.Fprintln(os.Stderr, "\nError: none of the detected displays can be controlled")
		fmt.Fprintln(os.Stderr, "Run 'adaptive-brightness check' to see which displays were found and which rules match them.")
	}
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adaptive-brightness",
		Short: "adaptive-brightness adjusts external monitor brightness to the ambient light",
		Long: `adaptive-brightness reads an ambient light sensor and adjusts the brightness
of external monitors over DDC/CI, following a per-monitor brightness curve.

Running it without a subcommand starts the control loop in the foreground.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogger()
		},
		RunE: runDaemon,
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVarP(&configPath, "config", "c", configPath, "config file path (searched in the standard locations when empty)")
	globalFlags.StringVar(&socketPath, "socket", socketPath, "daemon unix socket path")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewRunCommand(),
		NewStatusCommand(),
		NewWatchCommand(),
		NewHistoryCommand(),
		NewCheckCommand(),
		NewGenConfigCommand(),
		NewVersionCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
	)

	return cmd
}
