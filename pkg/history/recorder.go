package history

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Recorder saves at most one sample per interval and prunes old samples on
// a cron schedule. Storage errors are logged and never returned to the
// caller of Observe.
type Recorder struct {
	repo     *Repository
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last time.Time

	cron *cron.Cron
}

// NewRecorder returns a recorder saving to repo every interval.
func NewRecorder(repo *Repository, interval time.Duration) *Recorder {
	return &Recorder{
		repo:     repo,
		interval: interval,
		now:      time.Now,
	}
}

// Observe offers a sensor reading. It is saved when at least the interval
// has passed since the last saved sample.
func (r *Recorder) Observe(ctx context.Context, lux float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if !r.last.IsZero() && now.Sub(r.last) < r.interval {
		return
	}

	s := &Sample{Lux: lux, Time: now}
	if err := r.repo.Save(ctx, s); err != nil {
		logrus.WithError(err).Error("failed to record ambient light sample")
		return
	}
	r.last = now

	logrus.WithFields(logrus.Fields{
		"lux": lux,
		"id":  s.ID,
	}).Trace("recorded ambient light sample")
}

// StartPruning deletes samples older than retention on the given cron
// schedule, e.g. "@daily" or "0 3 * * *".
func (r *Recorder) StartPruning(schedule string, retention time.Duration) error {
	c := cron.New(cron.WithParser(cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)))

	_, err := c.AddFunc(schedule, func() {
		n, err := r.repo.DeleteOlderThan(context.Background(), retention)
		if err != nil {
			logrus.WithError(err).Error("failed to prune history")
			return
		}
		logrus.WithFields(logrus.Fields{
			"deleted":   n,
			"retention": retention.String(),
		}).Info("pruned history")
	})
	if err != nil {
		return pkgerrors.Wrapf(err, "invalid prune schedule %q", schedule)
	}

	r.mu.Lock()
	r.cron = c
	r.mu.Unlock()

	c.Start()

	return nil
}

// Stop stops pruning and waits for a running prune to finish.
func (r *Recorder) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}
