package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/adaptive-brightness/adaptive-brightness/pkg/config"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/history"
)

func NewHistoryCommand() *cobra.Command {
	since := time.Hour

	cmd := &cobra.Command{
		Use:     "history",
		GroupID: gBasic,
		Short:   "Print recorded ambient light samples",
		Long: `Print the ambient light samples recorded by the daemon.

History is only recorded when history.path is set in the config file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, _, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if conf.History.Path == "" {
				return errors.New("history is disabled, set history.path in the config file")
			}

			repo, err := history.Open(conf.History.Path)
			if err != nil {
				return err
			}
			defer repo.Close()

			now := time.Now()
			samples, err := repo.Range(cmd.Context(), now.Add(-since), now.Add(time.Second))
			if err != nil {
				return err
			}

			if len(samples) == 0 {
				cmd.Printf("No samples in the last %s\n", since)
				return nil
			}

			cmd.Println(bold("%-20s %10s", "Time", "Lux"))
			for _, s := range samples {
				cmd.Printf("%-20s %10.1f\n", s.Time.Local().Format(time.DateTime), s.Lux)
			}

			return nil
		},
	}

	cmd.Flags().DurationVar(&since, "since", since, "how far back to print")

	return cmd
}
