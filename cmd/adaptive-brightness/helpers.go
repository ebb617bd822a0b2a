package main

import (
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/adaptive-brightness/adaptive-brightness/pkg/client"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/config"
)

// newAPIClient connects to the socket given by --socket, or to the one in
// the config file when the flag is not set.
func newAPIClient(cmd *cobra.Command) *client.Client {
	path := socketPath
	if !cmd.Flags().Changed("socket") {
		if conf, _, err := config.Load(configPath); err == nil && conf.Daemon.Socket != "" {
			path = conf.Daemon.Socket
		} else if err != nil {
			logrus.WithError(err).Debug("failed to load config, using default socket")
		}
	}
	logrus.WithField("socket", path).Debug("connecting to daemon")
	return client.NewClient(path)
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
