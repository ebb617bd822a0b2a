package daemon

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/adaptive-brightness/adaptive-brightness/pkg/events"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/monitor"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/sensor"
)

const (
	// DefaultFastInterval is the poll interval after a cycle that wrote to
	// a display.
	DefaultFastInterval = 100 * time.Millisecond
	// DefaultIdleInterval is the poll interval when nothing changed.
	DefaultIdleInterval = 5 * time.Second
)

// ErrSensor wraps errors from the ambient light sensor. They stop the loop.
var ErrSensor = errors.New("sensor error")

// Observer is offered every sensor sample, e.g. a history recorder.
type Observer interface {
	Observe(ctx context.Context, lux float64)
}

// Scheduler polls the sensor and ticks every controller, faster while
// displays are still converging.
type Scheduler struct {
	reader      sensor.Reader
	controllers []*monitor.Controller

	fastInterval time.Duration
	idleInterval time.Duration

	hub      *events.Hub
	status   *StatusStore
	observer Observer

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

type SchedulerOption func(*Scheduler)

// WithIntervals overrides the poll intervals. Non-positive values keep the
// defaults.
func WithIntervals(fast, idle time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if fast > 0 {
			s.fastInterval = fast
		}
		if idle > 0 {
			s.idleInterval = idle
		}
	}
}

// WithEventHub publishes brightness changes and display errors to hub.
func WithEventHub(hub *events.Hub) SchedulerOption {
	return func(s *Scheduler) { s.hub = hub }
}

// WithStatusStore keeps store updated after every cycle.
func WithStatusStore(store *StatusStore) SchedulerOption {
	return func(s *Scheduler) { s.status = store }
}

// WithObserver offers every sample to o.
func WithObserver(o Observer) SchedulerOption {
	return func(s *Scheduler) { s.observer = o }
}

// NewScheduler returns a scheduler ticking controllers in the given order.
func NewScheduler(reader sensor.Reader, controllers []*monitor.Controller, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		reader:       reader,
		controllers:  controllers,
		fastInterval: DefaultFastInterval,
		idleInterval: DefaultIdleInterval,
		sleep:        sleepContext,
		now:          time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Initialize reads one sample and sets every display to its curve value.
// Displays that cannot be written are logged and retried on later ticks.
func (s *Scheduler) Initialize(ctx context.Context) error {
	luxF, err := s.read(ctx)
	if err != nil {
		return err
	}
	lux := luxToInput(luxF)

	var lastErr error
	for _, c := range s.controllers {
		if err := c.Initialize(ctx, lux); err != nil {
			s.displayError(c, err)
			lastErr = err
		}
	}

	s.publishStatus(luxF, lastErr)

	return nil
}

// RunOnce reads one sample and ticks every controller. It reports whether
// any display was written. Only sensor errors are returned: a display that
// fails is logged and skipped for this cycle.
func (s *Scheduler) RunOnce(ctx context.Context) (bool, error) {
	luxF, err := s.read(ctx)
	if err != nil {
		s.publishStatus(0, err)
		return false, err
	}
	lux := luxToInput(luxF)

	changed := false
	var lastErr error
	for _, c := range s.controllers {
		from := c.Brightness()

		wrote, err := c.Tick(ctx, lux)
		if err != nil {
			s.displayError(c, err)
			lastErr = err
			continue
		}
		if !wrote {
			continue
		}

		changed = true
		s.hub.Publish(events.MonitorBrightness, events.BrightnessEvent{
			Display: c.Name(),
			From:    from,
			To:      c.Brightness(),
			Target:  c.Target(),
			Lux:     lux,
			Ts:      s.now().Unix(),
		})
	}

	s.publishStatus(luxF, lastErr)

	return changed, nil
}

// Run initializes the displays and polls until ctx is cancelled or the
// sensor fails. On cancellation ctx.Err() is returned.
func (s *Scheduler) Run(ctx context.Context) error {
	logrus.WithFields(logrus.Fields{
		"monitors":     len(s.controllers),
		"fastInterval": s.fastInterval.String(),
		"idleInterval": s.idleInterval.String(),
	}).Info("brightness loop starting")

	if err := s.Initialize(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	for {
		changed, err := s.RunOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		interval := s.idleInterval
		if changed {
			interval = s.fastInterval
		}

		if err := s.sleep(ctx, interval); err != nil {
			return err
		}
	}
}

func (s *Scheduler) read(ctx context.Context) (float64, error) {
	lux, err := s.reader.ReadLux(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSensor, err)
	}

	logrus.WithField("lux", lux).Trace("sensor sample")

	if s.observer != nil {
		s.observer.Observe(ctx, lux)
	}

	return lux, nil
}

func (s *Scheduler) displayError(c *monitor.Controller, err error) {
	logrus.WithError(err).WithFields(c.Display().LogrusFields()).Error("failed to update display brightness")

	s.hub.Publish(events.MonitorError, events.ErrorEvent{
		Display: c.Name(),
		Message: err.Error(),
		Ts:      s.now().Unix(),
	})
}

func (s *Scheduler) publishStatus(lux float64, lastErr error) {
	if s.status == nil {
		return
	}

	monitors := make([]monitor.Status, 0, len(s.controllers))
	for _, c := range s.controllers {
		monitors = append(monitors, c.Status())
	}

	s.status.update(s.now(), lux, monitors, lastErr)
}

// luxToInput converts a sensor reading to the curve domain, truncating
// toward zero and saturating. NaN and negative readings become 0.
func luxToInput(lux float64) uint32 {
	switch {
	case math.IsNaN(lux) || lux <= 0:
		return 0
	case lux >= math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(lux)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
