package main

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/adaptive-brightness/adaptive-brightness/pkg/daemon"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/version"
)

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current status of the daemon",
		Long:    `Get the ambient light level and the brightness of every controlled display.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := newAPIClient(cmd)

			if daemonVersion, err := c.GetVersion(); err == nil && daemonVersion != version.Version {
				logrus.WithFields(logrus.Fields{
					"clientVersion": version.Version,
					"daemonVersion": daemonVersion,
				}).Warn("version mismatch between client and daemon")
			}

			st, err := c.GetStatus()
			if err != nil {
				return err
			}

			printStatus(cmd, st, time.Now())

			return nil
		},
	}
}

func printStatus(cmd *cobra.Command, st *daemon.Status, now time.Time) {
	cmd.Println(bold("Ambient light:"))
	if st.UpdatedAt.IsZero() {
		cmd.Println("  No reading yet")
	} else {
		cmd.Printf("  %.1f lux (%s ago)\n", st.Lux, now.Sub(st.UpdatedAt).Round(time.Second))
	}
	cmd.Printf("  Cycles in the last minute: %d\n", st.Cycles)
	if st.LastError != "" {
		cmd.Printf("  Last error: %s\n", st.LastError)
	}

	cmd.Println()
	cmd.Println(bold("Displays:"))
	if len(st.Monitors) == 0 {
		cmd.Println("  None")
	}
	for _, m := range st.Monitors {
		cmd.Printf("  %s\n", bold("%s", m.Name))
		cmd.Printf("    Rule: %s\n", m.Identifier)
		cmd.Printf("    Brightness: %d%%\n", m.Brightness)
		cmd.Printf("    Target: %d%%\n", m.Target)
		cmd.Printf("    Settled: %s\n", bool2Text(m.Settled))
	}
}
