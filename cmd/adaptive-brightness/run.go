package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/adaptive-brightness/adaptive-brightness/pkg/config"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/daemon"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/version"
)

// NewRunCommand .
func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "run",
		Short:   "Run the brightness control loop in the foreground",
		GroupID: gBasic,
		Long: `Run the brightness control loop in the foreground.

Displays are detected once at startup and matched against the monitor rules
in the config file. The loop runs until interrupted or until the ambient light
sensor fails.`,
		RunE: runDaemon,
	}
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	conf, used, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// the config file only sets the level when the flag does not
	if !cmd.Flags().Changed("log-level") {
		logLevel = conf.Log.Level
		if err := setupLogger(); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("socket") {
		conf.Daemon.Socket = socketPath
	}

	logrus.WithFields(logrus.Fields{
		"version": version.Version,
		"commit":  version.GitCommit,
		"config":  used,
	}).Info("adaptive-brightness starting")

	return daemon.Run(cmd.Context(), conf)
}
