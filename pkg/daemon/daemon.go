// Package daemon runs the brightness control loop and its status API.
package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/adaptive-brightness/adaptive-brightness/pkg/config"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/display"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/events"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/history"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/monitor"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/sensor"
)

// ErrNoMonitors is returned when no detected display can be controlled.
var ErrNoMonitors = errors.New("no controllable monitors")

// BuildControllers opens a controller for every display that matches a
// rule. Displays without a rule, with an invalid curve, or that cannot be
// opened are logged and left out.
func BuildControllers(backend display.Backend, rules []monitor.Config, displays []display.Info) []*monitor.Controller {
	var controllers []*monitor.Controller

	for _, m := range monitor.MatchDisplays(rules, displays) {
		l := logrus.WithFields(m.Display.LogrusFields())

		if m.Config == nil {
			l.Warn("no matching configuration, display ignored")
			continue
		}

		h, err := backend.Open(m.Display)
		if err != nil {
			l.WithError(err).Error("failed to open display")
			continue
		}

		c, err := monitor.NewController(m.Display, *m.Config, h)
		if err != nil {
			l.WithError(err).WithField("identifier", m.Config.Identifier.String()).Error("invalid brightness curve, display ignored")
			_ = h.Close()
			continue
		}

		l.WithFields(logrus.Fields{
			"identifier": m.Config.Identifier.String(),
			"curve":      m.Config.Breakpoints,
		}).Info("display matched")

		controllers = append(controllers, c)
	}

	return controllers
}

// Run detects displays, connects the sensor and runs the brightness loop
// until SIGINT or SIGTERM, or until the sensor fails.
func Run(ctx context.Context, conf *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logrus.WithFields(conf.LogrusFields()).Info("config loaded")

	backend, err := display.NewBackend(conf.DisplayOptions())
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logrus.WithError(err).Error("failed to close display backend")
		}
	}()

	displays, err := backend.List(ctx)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to detect displays")
	}
	logrus.WithField("count", len(displays)).Info("displays detected")

	rules, err := conf.Rules()
	if err != nil {
		return err
	}

	controllers := BuildControllers(backend, rules, displays)
	if len(controllers) == 0 {
		return ErrNoMonitors
	}
	defer func() {
		for _, c := range controllers {
			if err := c.Close(); err != nil {
				logrus.WithError(err).WithField("display", c.Name()).Error("failed to close display")
			}
		}
	}()

	sensorOpts, err := conf.SensorOptions()
	if err != nil {
		return err
	}
	reader, err := sensor.Open(sensorOpts)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to open ambient light sensor")
	}
	defer reader.Close()

	hub := events.NewHub()
	store := NewStatusStore()

	opts := []SchedulerOption{
		WithIntervals(conf.Poll.FastInterval, conf.Poll.IdleInterval),
		WithEventHub(hub),
		WithStatusStore(store),
	}

	if conf.History.Path != "" {
		repo, err := history.Open(conf.History.Path)
		if err != nil {
			return err
		}
		defer repo.Close()

		rec := history.NewRecorder(repo, conf.History.Interval)
		if err := rec.StartPruning(conf.History.PruneSchedule, conf.History.Retention); err != nil {
			return err
		}
		defer rec.Stop()

		logrus.WithField("path", conf.History.Path).Info("recording ambient light history")
		opts = append(opts, WithObserver(rec))
	}

	var srv *http.Server
	if conf.Daemon.Socket != "" {
		srv, err = serve(conf.Daemon.Socket, setupRoutes(store, hub))
		if err != nil {
			return err
		}
	}

	err = NewScheduler(reader, controllers, opts...).Run(ctx)
	if errors.Is(err, context.Canceled) {
		logrus.Info("shutting down")
		err = nil
	}

	// end event streams first so that Shutdown does not wait for them
	hub.Close()

	if srv != nil {
		logrus.Info("shutting down http server")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if serr := srv.Shutdown(sctx); serr != nil {
			logrus.Errorf("failed to shutdown http server: %v", serr)
		}
		cancel()
		_ = os.Remove(conf.Daemon.Socket)
	}

	return err
}

func serve(socketPath string, handler http.Handler) (*http.Server, error) {
	// a socket left behind by a previous run
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return nil, pkgerrors.Wrapf(err, "failed to remove stale socket %s", socketPath)
		}
	}

	l, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to listen on %s", socketPath)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("http server stopped")
		}
	}()

	return srv, nil
}
