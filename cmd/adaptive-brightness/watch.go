package main

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/adaptive-brightness/adaptive-brightness/pkg/events"
)

func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "watch",
		GroupID: gBasic,
		Short:   "Stream brightness changes from the daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ch, err := newAPIClient(cmd).SubscribeEvents(cmd.Context())
			if err != nil {
				return err
			}

			for ev := range ch {
				printEvent(cmd, ev)
			}

			return nil
		},
	}
}

func printEvent(cmd *cobra.Command, ev events.Event) {
	switch ev.Name {
	case events.MonitorBrightness:
		b, err := events.DecodeAs[events.BrightnessEvent](ev)
		if err != nil {
			logrus.WithError(err).Warn("malformed brightness event")
			return
		}
		cmd.Printf("%s %s %d%% -> %d%% (target %d%%, %d lux)\n",
			clock(b.Ts), bold("%s", b.Display), b.From, b.To, b.Target, b.Lux)
	case events.MonitorError:
		e, err := events.DecodeAs[events.ErrorEvent](ev)
		if err != nil {
			logrus.WithError(err).Warn("malformed error event")
			return
		}
		cmd.Printf("%s %s %s %s\n", clock(e.Ts), bool2Text(false), bold("%s", e.Display), e.Message)
	default:
		logrus.WithField("event", ev.Name).Debug("ignoring unknown event")
	}
}

func clock(unix int64) string {
	return time.Unix(unix, 0).Format("15:04:05")
}
