package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/adaptive-brightness/adaptive-brightness/pkg/config"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/display"
)

// NewGenConfigCommand .
func NewGenConfigCommand() *cobra.Command {
	backendName := "ddc"

	cmd := &cobra.Command{
		Use:     "gen-config",
		Short:   "Generate a config file for the connected displays",
		GroupID: gConfig,
		Long: `Generate a config file with one rule per connected display, each using the
default curve. The file is written to --config, or to the user config
directory when no path is given. An existing file is never overwritten.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configPath
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}

			backend, err := display.NewBackend(display.Options{Backend: backendName, DDCUtilPath: "ddcutil"})
			if err != nil {
				return err
			}
			defer backend.Close()

			displays, err := backend.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, d := range displays {
				logrus.WithFields(d.LogrusFields()).Info("display detected")
			}

			conf := config.Generate(displays)
			conf.Display.Backend = backendName

			if err := config.Write(path, conf); err != nil {
				return err
			}

			cmd.Printf("Config written to %s\n", path)

			return nil
		},
	}

	cmd.Flags().StringVar(&backendName, "backend", backendName, "display backend used to detect displays (ddc, ddcutil)")

	return cmd
}
