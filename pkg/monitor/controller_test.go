package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/adaptive-brightness/adaptive-brightness/pkg/curve"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/display"
)

type fakeHandle struct {
	writes []uint16
	err    error
	closed bool
}

func (h *fakeHandle) SetBrightness(_ context.Context, pct uint16) error {
	if h.err != nil {
		return h.err
	}
	h.writes = append(h.writes, pct)
	return nil
}

func (h *fakeHandle) Close() error {
	h.closed = true
	return nil
}

var (
	identityCurve = []curve.Point{{Input: 0, Output: 0}, {Input: 100, Output: 100}}
	defaultCurve  = []curve.Point{{Input: 0, Output: 10}, {Input: 250, Output: 100}}
)

func newTestController(t *testing.T, points []curve.Point, initLux uint32) (*Controller, *fakeHandle) {
	t.Helper()

	h := &fakeHandle{}
	c, err := NewController(display.Info{Bus: 6, Model: "TEST"}, Config{Identifier: Default{}, Breakpoints: points}, h)
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	if err := c.Initialize(context.Background(), initLux); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return c, h
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		raw, committed uint16
		want           uint16
	}{
		{raw: 50, committed: 50, want: 50},
		{raw: 46, committed: 50, want: 50},
		{raw: 49, committed: 50, want: 50},
		{raw: 51, committed: 50, want: 50},
		{raw: 54, committed: 50, want: 50},
		{raw: 55, committed: 50, want: 55},
		{raw: 45, committed: 50, want: 45},
		{raw: 44, committed: 50, want: 45},
		{raw: 99, committed: 50, want: 95},
		{raw: 99, committed: 100, want: 100},
		{raw: 21, committed: 0, want: 20},
		{raw: 20, committed: 0, want: 20},
		{raw: 19, committed: 0, want: 18},
		{raw: 7, committed: 10, want: 8},
		{raw: 0, committed: 10, want: 0},
		{raw: 13, committed: 13, want: 13},
	}
	for _, tt := range tests {
		if got := quantize(tt.raw, tt.committed); got != tt.want {
			t.Errorf("quantize(%d, %d) = %d, want %d", tt.raw, tt.committed, got, tt.want)
		}
	}
}

func TestStep(t *testing.T) {
	tests := []struct {
		committed, target uint16
		want              uint16
	}{
		{committed: 0, target: 50, want: 2},
		{committed: 50, target: 0, want: 48},
		{committed: 10, target: 13, want: 13},
		{committed: 13, target: 10, want: 10},
		{committed: 10, target: 14, want: 12},
		{committed: 14, target: 10, want: 12},
		{committed: 1, target: 0, want: 0},
		{committed: 0, target: 0, want: 0},
	}
	for _, tt := range tests {
		if got := step(tt.committed, tt.target); got != tt.want {
			t.Errorf("step(%d, %d) = %d, want %d", tt.committed, tt.target, got, tt.want)
		}
	}
}

func TestNewControllerEmptyCurve(t *testing.T) {
	_, err := NewController(display.Info{Bus: 1}, Config{Identifier: Default{}}, &fakeHandle{})
	if !errors.Is(err, curve.ErrInvalidCurve) {
		t.Errorf("NewController() error = %v, want %v", err, curve.ErrInvalidCurve)
	}
}

func TestControllerInitialize(t *testing.T) {
	c, h := newTestController(t, defaultCurve, 0)

	if len(h.writes) != 1 || h.writes[0] != 10 {
		t.Fatalf("writes = %v, want [10]", h.writes)
	}
	if c.Brightness() != 10 || c.Target() != 10 || !c.Settled() {
		t.Errorf("Brightness() = %d, Target() = %d, Settled() = %v", c.Brightness(), c.Target(), c.Settled())
	}
}

func TestControllerInitializeNotQuantized(t *testing.T) {
	c, h := newTestController(t, identityCurve, 37)

	if c.Brightness() != 37 || h.writes[0] != 37 {
		t.Errorf("Brightness() = %d, want 37", c.Brightness())
	}
}

func TestControllerClampsCurveOutput(t *testing.T) {
	c, _ := newTestController(t, []curve.Point{{Input: 0, Output: 150}}, 0)

	if c.Brightness() != 100 {
		t.Errorf("Brightness() = %d, want 100", c.Brightness())
	}
}

func TestControllerHysteresis(t *testing.T) {
	c, h := newTestController(t, identityCurve, 50)

	for lux := uint32(46); lux <= 54; lux++ {
		changed, err := c.Tick(context.Background(), lux)
		if err != nil {
			t.Fatalf("Tick(%d) error = %v", lux, err)
		}
		if changed {
			t.Errorf("Tick(%d) = true, want false", lux)
		}
	}
	if len(h.writes) != 1 {
		t.Errorf("writes = %v, want only the initial write", h.writes)
	}

	if _, err := c.Tick(context.Background(), 55); err != nil {
		t.Fatal(err)
	}
	if c.Target() != 55 || c.Brightness() != 52 {
		t.Errorf("after lux 55: Target() = %d, Brightness() = %d, want 55, 52", c.Target(), c.Brightness())
	}
}

func TestControllerHysteresisDown(t *testing.T) {
	c, _ := newTestController(t, identityCurve, 50)

	if _, err := c.Tick(context.Background(), 45); err != nil {
		t.Fatal(err)
	}
	if c.Target() != 45 || c.Brightness() != 48 {
		t.Errorf("after lux 45: Target() = %d, Brightness() = %d, want 45, 48", c.Target(), c.Brightness())
	}
}

func TestControllerRateLimit(t *testing.T) {
	c, h := newTestController(t, identityCurve, 0)

	changed, err := c.Tick(context.Background(), 54)
	if err != nil {
		t.Fatal(err)
	}
	if !changed || c.Brightness() != 2 || h.writes[len(h.writes)-1] != 2 {
		t.Errorf("Tick() = %v, Brightness() = %d, want true, 2", changed, c.Brightness())
	}
	if c.Target() != 50 {
		t.Errorf("Target() = %d, want 50", c.Target())
	}
}

func TestControllerConverges(t *testing.T) {
	c, h := newTestController(t, identityCurve, 0)

	for i := 0; i < 100; i++ {
		changed, err := c.Tick(context.Background(), 54)
		if err != nil {
			t.Fatal(err)
		}
		if !changed {
			break
		}
		if c.Brightness() > 50 {
			t.Fatalf("Brightness() = %d overshoots target 50", c.Brightness())
		}
	}

	if c.Brightness() != 50 || !c.Settled() {
		t.Fatalf("Brightness() = %d, Settled() = %v, want 50, true", c.Brightness(), c.Settled())
	}

	// 0 -> 48 in steps of 2, then the final jump to 50
	if got, want := len(h.writes), 1+24+1; got != want {
		t.Errorf("writes = %d, want %d", got, want)
	}

	n := len(h.writes)
	for i := 0; i < 10; i++ {
		changed, err := c.Tick(context.Background(), 54)
		if err != nil || changed {
			t.Fatalf("Tick() = %v, %v after settling", changed, err)
		}
	}
	if len(h.writes) != n {
		t.Errorf("writes after settling = %d, want %d", len(h.writes), n)
	}
}

func TestControllerEndToEnd(t *testing.T) {
	c, h := newTestController(t, defaultCurve, 0)

	for i := 0; i < 1000; i++ {
		changed, err := c.Tick(context.Background(), 300)
		if err != nil {
			t.Fatal(err)
		}
		if !changed {
			break
		}
	}

	if c.Brightness() != 100 {
		t.Fatalf("Brightness() = %d, want 100", c.Brightness())
	}
	for i := 1; i < len(h.writes); i++ {
		if h.writes[i] <= h.writes[i-1] {
			t.Fatalf("writes not increasing: %v", h.writes)
		}
		if d := h.writes[i] - h.writes[i-1]; d > 3 {
			t.Fatalf("step %d -> %d larger than allowed", h.writes[i-1], h.writes[i])
		}
	}
}

func TestControllerWriteFailure(t *testing.T) {
	c, h := newTestController(t, identityCurve, 0)

	errBus := errors.New("bus error")
	h.err = errBus

	changed, err := c.Tick(context.Background(), 80)
	if !errors.Is(err, errBus) {
		t.Errorf("Tick() error = %v, want %v", err, errBus)
	}
	if changed {
		t.Error("Tick() = true, want false")
	}
	if c.Brightness() != 0 {
		t.Errorf("Brightness() = %d, want 0", c.Brightness())
	}

	h.err = nil
	if _, err := c.Tick(context.Background(), 80); err != nil {
		t.Fatal(err)
	}
	if c.Brightness() != 2 {
		t.Errorf("Brightness() = %d, want 2", c.Brightness())
	}
}

func TestControllerInitializeRetriedOnTick(t *testing.T) {
	errBus := errors.New("bus error")
	h := &fakeHandle{err: errBus}
	c, err := NewController(display.Info{Bus: 3}, Config{Identifier: Default{}, Breakpoints: identityCurve}, h)
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Initialize(context.Background(), 70); !errors.Is(err, errBus) {
		t.Fatalf("Initialize() error = %v, want %v", err, errBus)
	}
	if c.Settled() {
		t.Error("Settled() = true before a successful write")
	}

	h.err = nil
	changed, err := c.Tick(context.Background(), 70)
	if err != nil || !changed {
		t.Fatalf("Tick() = %v, %v, want true, nil", changed, err)
	}
	if c.Brightness() != 70 {
		t.Errorf("Brightness() = %d, want 70", c.Brightness())
	}
}

func TestControllerStatus(t *testing.T) {
	c, h := newTestController(t, defaultCurve, 250)

	s := c.Status()
	if s.Brightness != 100 || s.Target != 100 || !s.Settled {
		t.Errorf("Status() = %+v", s)
	}
	if s.Name != "TEST (i2c-6)" || s.Identifier != "Default" {
		t.Errorf("Status() name = %q, identifier = %q", s.Name, s.Identifier)
	}
	if len(s.Curve) != 2 {
		t.Errorf("Status().Curve = %v", s.Curve)
	}

	if err := c.Close(); err != nil || !h.closed {
		t.Errorf("Close() = %v, closed = %v", err, h.closed)
	}
}
