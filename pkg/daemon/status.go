package daemon

import (
	"sync"
	"time"

	"github.com/adaptive-brightness/adaptive-brightness/pkg/monitor"
)

// Status is the state of the brightness loop as served by GET /status.
type Status struct {
	Lux       float64          `json:"lux"`
	UpdatedAt time.Time        `json:"updatedAt"`
	Monitors  []monitor.Status `json:"monitors"`
	LastError string           `json:"lastError,omitempty"`
	// Cycles is the number of loop cycles in the last minute.
	Cycles int `json:"cyclesLastMinute"`
}

// StatusStore holds the latest Status. It is written by the scheduler and
// read by the HTTP handlers.
type StatusStore struct {
	mu     sync.RWMutex
	st     Status
	cycles *TimeSeriesRecorder
}

func NewStatusStore() *StatusStore {
	return &StatusStore{
		st:     Status{Monitors: []monitor.Status{}},
		cycles: NewTimeSeriesRecorder(1200),
	}
}

// Get returns a copy of the current status.
func (s *StatusStore) Get() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.st
	st.Monitors = append([]monitor.Status(nil), s.st.Monitors...)
	st.Cycles = s.cycles.CountSince(st.UpdatedAt.Add(-time.Minute))

	return st
}

func (s *StatusStore) update(now time.Time, lux float64, monitors []monitor.Status, lastErr error) {
	s.cycles.Add(now)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.UpdatedAt = now.Round(0)
	s.st.Lux = lux
	s.st.Monitors = monitors
	s.st.LastError = ""
	if lastErr != nil {
		s.st.LastError = lastErr.Error()
	}
}

// TimeSeriesRecorder keeps the last N event times.
type TimeSeriesRecorder struct {
	max     int
	records []time.Time
	mu      sync.Mutex
}

func NewTimeSeriesRecorder(max int) *TimeSeriesRecorder {
	return &TimeSeriesRecorder{max: max}
}

// Add records t, dropping the oldest record when full.
func (r *TimeSeriesRecorder) Add(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Strip monotonic clock reading so records compare by wall clock.
	t = t.Round(0)

	if len(r.records) >= r.max {
		r.records = r.records[1:]
	}
	r.records = append(r.records, t)
}

// CountSince returns the number of records at or after since.
func (r *TimeSeriesRecorder) CountSince(since time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].Before(since) {
			break
		}
		count++
	}
	return count
}
