package main

import (
	"github.com/spf13/cobra"

	"github.com/adaptive-brightness/adaptive-brightness/pkg/config"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/curve"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/display"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/monitor"
)

// NewCheckCommand .
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "check",
		Short:   "Check the config against the connected displays",
		GroupID: gConfig,
		Long: `Load the config, print it, and show which rule and curve each connected
display would use. Nothing is written to the displays.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, used, err := config.Load(configPath)
			if err != nil {
				return err
			}

			if used == "" {
				used = "(built-in default)"
			}
			cmd.Println(bold("Config: ") + used)
			if err := config.Encode(cmd.OutOrStdout(), conf); err != nil {
				return err
			}
			cmd.Println()

			rules, err := conf.Rules()
			if err != nil {
				return err
			}

			backend, err := display.NewBackend(conf.DisplayOptions())
			if err != nil {
				return err
			}
			defer backend.Close()

			displays, err := backend.List(cmd.Context())
			if err != nil {
				cmd.Println(bool2Text(false) + " failed to detect displays: " + err.Error())
				return nil
			}

			cmd.Println(bold("Detected displays: %d", len(displays)))
			for _, m := range monitor.MatchDisplays(rules, displays) {
				printMatch(cmd, m)
			}

			return nil
		},
	}
}

func printMatch(cmd *cobra.Command, m monitor.Match) {
	d := m.Display
	cmd.Printf("  %s\n", bold("i2c-%d", d.Bus))
	cmd.Printf("    Manufacturer: %s\n", d.Manufacturer)
	cmd.Printf("    Model: %s\n", d.Model)
	cmd.Printf("    Serial: %s\n", d.Serial)

	if m.Config == nil {
		cmd.Println("    " + bool2Text(false) + " No matching configuration!")
		return
	}

	cmd.Printf("    %s Rule: %s\n", bool2Text(true), m.Config.Identifier)
	c, err := curve.FromBreakpoints(m.Config.Breakpoints)
	if err != nil {
		cmd.Printf("    %s Curve: %v\n", bool2Text(false), err)
		return
	}
	cmd.Printf("    %s Curve: %s\n", bool2Text(true), c)
}
